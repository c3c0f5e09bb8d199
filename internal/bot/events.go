package bot

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/xaenox/gideon-bot/internal/models"
	"github.com/xaenox/gideon-bot/internal/resolver"
)

// Discord's scheduled-event field limits.
const (
	maxEventNameLen = 100
	maxEventDescLen = 1000

	// externalEventDuration is the implicit length of events created
	// outside a voice channel; the API requires an end time for those.
	externalEventDuration = time.Hour
)

const (
	noMatchingEventReply = "Sorry, I couldn't find a matching event."
	pastTimeReply        = "That time is already in the past. Please give me a future date and time."
)

func (b *Bot) handleSchedule(ctx context.Context, logger *zap.Logger, msg models.InboundMessage, sched *models.ScheduleEvent) {
	if msg.GuildID == "" {
		b.send(logger, msg.ChannelID, "I can only manage events inside a server.")
		return
	}

	start, err := parseEventTime(sched.Datetime, sched.Timezone)
	if err != nil {
		logger.Error("Unparseable event time",
			zap.Error(err),
			zap.String("datetime", sched.Datetime),
			zap.String("timezone", sched.Timezone))
		b.send(logger, msg.ChannelID, fmt.Sprintf("Sorry, I couldn't understand the event time %q.", sched.Datetime))
		return
	}
	if !start.After(time.Now().UTC()) {
		b.send(logger, msg.ChannelID, pastTimeReply)
		return
	}

	description := sched.Description
	if len(sched.Participants) > 0 {
		if description != "" {
			description += "\n\n"
		}
		description += "Participants: " + strings.Join(sched.Participants, ", ")
	}

	params := &discordgo.GuildScheduledEventParams{
		Name:               truncate(sched.Title, maxEventNameLen),
		Description:        truncate(description, maxEventDescLen),
		ScheduledStartTime: &start,
		PrivacyLevel:       discordgo.GuildScheduledEventPrivacyLevelGuildOnly,
	}

	if b.inVoiceChannel(msg.ChannelID) {
		params.EntityType = discordgo.GuildScheduledEventEntityTypeVoice
		params.ChannelID = msg.ChannelID
	} else {
		end := start.Add(externalEventDuration)
		location := msg.ChannelName
		if location == "" {
			location = "Discord"
		}
		params.EntityType = discordgo.GuildScheduledEventEntityTypeExternal
		params.ScheduledEndTime = &end
		params.EntityMetadata = &discordgo.GuildScheduledEventEntityMetadata{Location: location}
	}

	created, err := b.sess.GuildScheduledEventCreate(msg.GuildID, params)
	if err != nil {
		logger.Error("Failed to create scheduled event",
			zap.Error(err),
			zap.String("guild_id", msg.GuildID),
			zap.String("title", sched.Title))
		b.send(logger, msg.ChannelID, "Sorry, something went wrong while creating the event.")
		return
	}

	logger.Info("Created scheduled event",
		zap.String("event_id", created.ID),
		zap.Time("start", start))
	b.send(logger, msg.ChannelID, fmt.Sprintf("📅 Scheduled \"%s\" for %s.",
		created.Name, start.Format("Mon, 02 Jan 2006 15:04 MST")))
}

func (b *Bot) handleUpdate(ctx context.Context, logger *zap.Logger, msg models.InboundMessage, upd *models.UpdateEvent) {
	ev, ok := b.findEvent(logger, msg, upd.Title, upd.Datetime, "updating")
	if !ok {
		return
	}

	// A timezone entry qualifies the datetime entry, mirroring the
	// schedule payload; bare times would otherwise shift to UTC.
	tz := upd.FieldsToUpdate["timezone"]

	params := &discordgo.GuildScheduledEventParams{}
	for field, value := range upd.FieldsToUpdate {
		switch strings.ToLower(field) {
		case "timezone":
			// consumed alongside datetime
		case "name", "title":
			params.Name = truncate(value, maxEventNameLen)
		case "description":
			params.Description = truncate(value, maxEventDescLen)
		case "datetime", "start_time":
			start, err := parseEventTime(value, tz)
			if err != nil {
				logger.Error("Unparseable updated event time",
					zap.Error(err),
					zap.String("datetime", value))
				b.send(logger, msg.ChannelID, fmt.Sprintf("Sorry, I couldn't understand the new event time %q.", value))
				return
			}
			params.ScheduledStartTime = &start
		default:
			logger.Warn("Ignoring unknown update field", zap.String("field", field))
		}
	}

	updated, err := b.sess.GuildScheduledEventEdit(msg.GuildID, ev.ID, params)
	if err != nil {
		logger.Error("Failed to update scheduled event",
			zap.Error(err),
			zap.String("event_id", ev.ID))
		b.send(logger, msg.ChannelID, "Sorry, something went wrong while updating the event.")
		return
	}

	logger.Info("Updated scheduled event", zap.String("event_id", updated.ID))
	b.send(logger, msg.ChannelID, fmt.Sprintf("✏️ Updated \"%s\".", updated.Name))
}

func (b *Bot) handleCancel(ctx context.Context, logger *zap.Logger, msg models.InboundMessage, cancel *models.CancelEvent) {
	ev, ok := b.findEvent(logger, msg, cancel.Title, cancel.Datetime, "cancelling")
	if !ok {
		return
	}

	if err := b.sess.GuildScheduledEventDelete(msg.GuildID, ev.ID); err != nil {
		logger.Error("Failed to cancel scheduled event",
			zap.Error(err),
			zap.String("event_id", ev.ID))
		b.send(logger, msg.ChannelID, "Sorry, something went wrong while cancelling the event.")
		return
	}

	logger.Info("Cancelled scheduled event", zap.String("event_id", ev.ID))
	b.send(logger, msg.ChannelID, fmt.Sprintf("🗑️ Cancelled \"%s\".", ev.Name))
}

// findEvent lists the guild's events once and resolves the fuzzy reference
// against that snapshot. A missing guild, a listing failure, or no match
// each end the run with one user-visible message.
func (b *Bot) findEvent(logger *zap.Logger, msg models.InboundMessage, titleHint, datetimeHint, verb string) (models.ScheduledEvent, bool) {
	if msg.GuildID == "" {
		b.send(logger, msg.ChannelID, "I can only manage events inside a server.")
		return models.ScheduledEvent{}, false
	}

	listing, err := b.sess.GuildScheduledEvents(msg.GuildID, false)
	if err != nil {
		logger.Error("Failed to list scheduled events",
			zap.Error(err),
			zap.String("guild_id", msg.GuildID))
		b.send(logger, msg.ChannelID, fmt.Sprintf("Sorry, something went wrong while %s the event.", verb))
		return models.ScheduledEvent{}, false
	}

	events := make([]models.ScheduledEvent, 0, len(listing))
	for _, ev := range listing {
		events = append(events, models.ScheduledEvent{
			ID:          ev.ID,
			Name:        ev.Name,
			Description: ev.Description,
			StartTime:   ev.ScheduledStartTime,
		})
	}

	found, ok := resolver.Resolve(events, titleHint, datetimeHint)
	if !ok {
		b.send(logger, msg.ChannelID, noMatchingEventReply)
		return models.ScheduledEvent{}, false
	}
	return found, true
}

func (b *Bot) inVoiceChannel(channelID string) bool {
	ch, err := b.sess.Channel(channelID)
	return err == nil && ch.Type == discordgo.ChannelTypeGuildVoice
}

// parseEventTime accepts either a full RFC 3339 timestamp or a bare local
// timestamp interpreted in tz (UTC when tz is empty or unknown). Time
// parsing is delegated to the completion endpoint; this only fixes the
// instant.
func parseEventTime(value, tz string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	loc := time.UTC
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	return time.ParseInLocation("2006-01-02T15:04:05", value, loc)
}

// truncate caps s at max characters without splitting a rune.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
