package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/xaenox/gideon-bot/internal/github"
	"github.com/xaenox/gideon-bot/internal/models"
	"github.com/xaenox/gideon-bot/internal/storage"
)

// Completer produces the completion response for one inbound message. It
// never fails; gateway errors come back as user-facing apology text.
type Completer interface {
	Complete(ctx context.Context, message string, botNames []string, history []models.ConversationTurn, persona models.Persona, channelName string) string
}

// PullRequestLister is the slice of the GitHub client the bot uses when
// repository automation is configured.
type PullRequestLister interface {
	ListPullRequests(ctx context.Context, owner, repo, state string) []github.PullRequest
}

// Options holds parameters for creating a Bot.
type Options struct {
	Token         string
	MainChannelID string
	Aliases       []string
	// GitHub and GitHubRepo ("owner/name") are optional; when unset,
	// pull-request questions get the canned reply only.
	GitHub     PullRequestLister
	GitHubRepo string
	// For testing: inject a mock session instead of the real Discord API.
	Session session
}

type Bot struct {
	sess          session
	store         storage.Storage
	completer     Completer
	logger        *zap.Logger
	mainChannelID string
	aliases       []string
	github        PullRequestLister
	githubRepo    string

	mu       sync.RWMutex
	selfID   string
	selfName string
}

func New(opts Options, store storage.Storage, completer Completer, logger *zap.Logger) (*Bot, error) {
	b := &Bot{
		sess:          opts.Session,
		store:         store,
		completer:     completer,
		logger:        logger,
		mainChannelID: opts.MainChannelID,
		aliases:       opts.Aliases,
		github:        opts.GitHub,
		githubRepo:    opts.GitHubRepo,
	}

	if b.sess == nil {
		dg, err := discordgo.New("Bot " + opts.Token)
		if err != nil {
			return nil, fmt.Errorf("failed to create bot: %w", err)
		}
		dg.Identify.Intents = discordgo.IntentsGuildMessages |
			discordgo.IntentsGuildVoiceStates |
			discordgo.IntentMessageContent
		b.sess = &realSession{s: dg}
	}

	return b, nil
}

// Start registers the gateway handlers and opens the websocket connection.
// It returns once connected; Close shuts the connection down.
func (b *Bot) Start() error {
	b.sess.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		b.setSelf(r.User.ID, r.User.Username)
		b.logger.Info("Bot is online",
			zap.String("username", r.User.Username),
			zap.String("main_channel_id", b.mainChannelID))
	})
	b.sess.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		b.onMessageCreate(m)
	})

	if err := b.sess.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}
	return nil
}

func (b *Bot) Close() error {
	return b.sess.Close()
}

func (b *Bot) setSelf(id, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selfID = id
	b.selfName = name
}

func (b *Bot) self() (id, name string) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.selfID, b.selfName
}

// botNames lists the names the completion prompt recognizes as "you".
func (b *Bot) botNames() []string {
	_, name := b.self()
	names := make([]string, 0, len(b.aliases)+1)
	if name != "" {
		names = append(names, name)
	}
	names = append(names, b.aliases...)
	return names
}

// onMessageCreate converts a Discord message into the transport-independent
// form and dispatches it on its own goroutine. Messages never block each
// other.
func (b *Bot) onMessageCreate(m *discordgo.MessageCreate) {
	if m.Author == nil {
		return
	}

	channelName := ""
	if ch, err := b.sess.Channel(m.ChannelID); err == nil {
		channelName = ch.Name
	}

	replyToAuthor := ""
	if m.ReferencedMessage != nil && m.ReferencedMessage.Author != nil {
		replyToAuthor = m.ReferencedMessage.Author.ID
	}

	mentions := make([]string, 0, len(m.Mentions))
	for _, u := range m.Mentions {
		mentions = append(mentions, u.ID)
	}

	msg := models.InboundMessage{
		ID:              m.ID,
		AuthorID:        m.Author.ID,
		AuthorName:      m.Author.Username,
		AuthorIsBot:     m.Author.Bot,
		Content:         m.Content,
		ChannelID:       m.ChannelID,
		ChannelName:     channelName,
		GuildID:         m.GuildID,
		ReplyToAuthorID: replyToAuthor,
		MentionIDs:      mentions,
	}

	go b.dispatch(context.Background(), msg)
}
