package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xaenox/gideon-bot/internal/address"
	"github.com/xaenox/gideon-bot/internal/directive"
	"github.com/xaenox/gideon-bot/internal/models"
)

const (
	// historyWindow is how many stored turns go into the completion context.
	historyWindow = 10
	// maxMessageLen is Discord's outbound message limit.
	maxMessageLen = 2000

	prUnavailableReply = "Opening pull requests from chat isn't available yet, but it's on the roadmap!"
)

// dispatch runs the full pipeline for one inbound message: addressing,
// history snapshot, completion, directive parse, and execution. Every
// recoverable failure is normalized into at most one outbound message;
// nothing propagates out of a run.
func (b *Bot) dispatch(ctx context.Context, msg models.InboundMessage) {
	selfID, _ := b.self()
	logger := b.logger.With(
		zap.String("run_id", uuid.New().String()),
		zap.String("channel_id", msg.ChannelID),
		zap.String("author_id", msg.AuthorID))

	addr := address.Resolver{
		MainChannelID: b.mainChannelID,
		BotID:         selfID,
		Aliases:       b.aliases,
	}

	decision := addr.Decide(msg)
	switch decision.Action {
	case address.ActionSkip:
		return
	case address.ActionPRReply:
		logger.Info("Pull-request intent, sending canned reply")
		b.handlePRIntent(ctx, logger, msg)
		return
	}

	history, err := b.store.RecentTurns(ctx, msg.ChannelID, historyWindow)
	if err != nil {
		logger.Error("Failed to load conversation history", zap.Error(err))
		history = nil
	}

	text := b.completer.Complete(ctx, msg.Content, b.botNames(), history, decision.Persona, msg.ChannelName)
	d := directive.Parse(text)

	switch d.Kind {
	case models.DirectiveSilence:
		logger.Info("Completion chose silence")
	case models.DirectiveReply:
		b.reply(ctx, logger, msg, d.Reply)
	case models.DirectiveSchedule:
		b.handleSchedule(ctx, logger, msg, d.Schedule)
	case models.DirectiveUpdate:
		b.handleUpdate(ctx, logger, msg, d.Update)
	case models.DirectiveCancel:
		b.handleCancel(ctx, logger, msg, d.Cancel)
	}
}

// handlePRIntent answers pull-request requests without a completion call.
// Opening PRs from chat isn't supported; when repository automation is
// configured the reply at least lists what is currently open.
func (b *Bot) handlePRIntent(ctx context.Context, logger *zap.Logger, msg models.InboundMessage) {
	reply := prUnavailableReply

	if b.github != nil {
		if owner, repo, ok := strings.Cut(b.githubRepo, "/"); ok {
			prs := b.github.ListPullRequests(ctx, owner, repo, "open")
			if len(prs) > 0 {
				var sb strings.Builder
				sb.WriteString(reply)
				fmt.Fprintf(&sb, "\n\nOpen pull requests on %s:", b.githubRepo)
				for _, pr := range prs {
					fmt.Fprintf(&sb, "\n• #%d %s (%s)", pr.Number, pr.Title, pr.URL)
				}
				reply = sb.String()
			}
		}
	}

	b.send(logger, msg.ChannelID, reply)
}

// reply sends the completion text verbatim and records both turns so later
// dispatches in the channel see the exchange.
func (b *Bot) reply(ctx context.Context, logger *zap.Logger, msg models.InboundMessage, text string) {
	b.send(logger, msg.ChannelID, text)

	if err := b.store.AppendTurn(ctx, msg.ChannelID, models.ConversationTurn{
		Role:    models.RoleUser,
		Content: msg.Content,
	}); err != nil {
		logger.Error("Failed to record user turn", zap.Error(err))
	}
	if err := b.store.AppendTurn(ctx, msg.ChannelID, models.ConversationTurn{
		Role:    models.RoleAssistant,
		Content: text,
	}); err != nil {
		logger.Error("Failed to record assistant turn", zap.Error(err))
	}
}

func (b *Bot) send(logger *zap.Logger, channelID, text string) {
	// Discord's limit counts characters, not bytes.
	text = truncate(text, maxMessageLen)
	if _, err := b.sess.ChannelMessageSend(channelID, text); err != nil {
		logger.Error("Failed to send message",
			zap.Error(err),
			zap.String("channel_id", channelID))
	}
}
