package address

import (
	"strings"

	"github.com/xaenox/gideon-bot/internal/models"
)

// Action is the outcome of the addressing decision for one message.
type Action int

const (
	// ActionSkip means the message is not for the bot; nothing is sent.
	ActionSkip Action = iota
	// ActionPRReply short-circuits pull-request requests with a canned
	// reply, without calling the completion endpoint.
	ActionPRReply
	// ActionRespond proceeds to the completion endpoint with the
	// selected persona.
	ActionRespond
)

// Decision is the addressing outcome; Persona is meaningful only for
// ActionRespond.
type Decision struct {
	Action  Action
	Persona models.Persona
}

// Resolver decides whether and how the bot answers an inbound message.
type Resolver struct {
	MainChannelID string
	BotID         string
	Aliases       []string
}

// Keyword tables are a cheap deterministic pre-filter: they pick the system
// prompt before the expensive completion call, which re-applies its own
// stricter addressing judgment and may still answer with silence.
var developerKeywords = []string{
	"code", "function", "compile", "compiler", "debug", "bug", "stack trace",
	"exception", "error message", "golang", "python", "javascript", "typescript",
	"sql", "regex", "docker", "kubernetes", "git ", "github", "api", "endpoint",
	"refactor", "unit test", "deploy", "repository", "library", "package",
}

var pullRequestKeywords = []string{
	"pull request", "open a pr", "create a pr", "make a pr", "raise a pr",
	"merge request", "open pr", "create pr",
}

// Decide applies the addressing rules in order: bot authors are never
// answered, empty messages are dropped, the main channel always proceeds,
// and other channels require a mention or a reply to the bot.
func (r Resolver) Decide(msg models.InboundMessage) Decision {
	if msg.AuthorIsBot {
		return Decision{Action: ActionSkip}
	}
	if strings.TrimSpace(msg.Content) == "" {
		return Decision{Action: ActionSkip}
	}
	if msg.ChannelID != r.MainChannelID {
		// BotID may still be empty before the ready event; an empty id
		// must not match non-reply messages.
		replyToBot := r.BotID != "" && msg.ReplyToAuthorID == r.BotID
		if !r.mentioned(msg) && !replyToBot {
			return Decision{Action: ActionSkip}
		}
	}
	return r.selectPersona(msg.Content)
}

// mentioned is true for a platform mention or for any of the bot's names
// appearing in the text. Name cues count as being addressed; the completion
// prompt applies the stricter judgment and may still answer with silence.
func (r Resolver) mentioned(msg models.InboundMessage) bool {
	for _, id := range msg.MentionIDs {
		if id == r.BotID {
			return true
		}
	}
	lowered := strings.ToLower(msg.Content)
	for _, alias := range r.Aliases {
		if alias != "" && strings.Contains(lowered, strings.ToLower(alias)) {
			return true
		}
	}
	return false
}

func (r Resolver) selectPersona(content string) Decision {
	lowered := strings.ToLower(content)
	for _, kw := range pullRequestKeywords {
		if strings.Contains(lowered, kw) {
			return Decision{Action: ActionPRReply}
		}
	}
	if strings.Contains(content, "```") {
		return Decision{Action: ActionRespond, Persona: models.PersonaDeveloper}
	}
	for _, kw := range developerKeywords {
		if strings.Contains(lowered, kw) {
			return Decision{Action: ActionRespond, Persona: models.PersonaDeveloper}
		}
	}
	return Decision{Action: ActionRespond, Persona: models.PersonaAssistant}
}
