package gateway

import (
	"fmt"
	"strings"
	"time"

	"github.com/xaenox/gideon-bot/internal/models"
)

const assistantIntro = "You are Gideon, a helpful assistant in a Discord server. " +
	"Be concise, friendly, and informative. If asked about future features, answer based on known roadmap plans."

const developerIntro = "You are Gideon, a senior software engineer helping in a Discord server. " +
	"Answer technical and programming questions precisely, with short code examples where they help."

// directiveInstructions spell out the structured block formats. The
// delimiters and field names must stay in sync with the directive parser.
const directiveInstructions = `When the user asks you to schedule, move, or cancel a calendar event, do not describe the action. Instead emit exactly one of these blocks, with a JSON object between the tags:

[SCHEDULE_EVENT] {"title": "...", "description": "...", "participants": ["..."], "datetime": "YYYY-MM-DDTHH:MM:SS", "timezone": "Area/City"} [/SCHEDULE_EVENT]
[UPDATE_EVENT] {"title": "...", "datetime": "YYYY-MM-DDTHH:MM:SS", "fields_to_update": {"name": "...", "description": "...", "datetime": "...", "timezone": "Area/City"}} [/UPDATE_EVENT]
[CANCEL_EVENT] {"title": "...", "datetime": "YYYY-MM-DDTHH:MM:SS"} [/CANCEL_EVENT]

For update and cancel, title and datetime identify the existing event as the user referred to it; leave datetime empty if the user gave no time. Use the user's timezone in the datetime and timezone fields. All fields_to_update values must be strings.`

const addressingInstructions = `You only respond when you are actually being addressed. If the message clearly is not directed at you by name or by context, respond with exactly NO_REPLY and nothing else. When any of your names is used or the message continues a conversation with you, answer normally.`

func systemPrompt(persona models.Persona, botNames []string, channelName string) string {
	intro := assistantIntro
	if persona == models.PersonaDeveloper {
		intro = developerIntro
	}

	var b strings.Builder
	b.WriteString(intro)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "The current time is %s.\n", time.Now().Format("2006-01-02T15:04:05-07:00"))
	if channelName != "" {
		fmt.Fprintf(&b, "You are reading the #%s channel.\n", channelName)
	}
	if len(botNames) > 0 {
		fmt.Fprintf(&b, "You answer to the names: %s.\n", strings.Join(botNames, ", "))
	}
	b.WriteString("\n")
	b.WriteString(directiveInstructions)
	b.WriteString("\n\n")
	b.WriteString(addressingInstructions)
	return b.String()
}
