package storage

import (
	"context"

	"github.com/xaenox/gideon-bot/internal/models"
)

// Storage keeps per-channel conversation history, the context window handed
// to the completion endpoint.
type Storage interface {
	AppendTurn(ctx context.Context, channelID string, turn models.ConversationTurn) error

	// RecentTurns returns up to limit turns for the channel, oldest-first.
	RecentTurns(ctx context.Context, channelID string, limit int) ([]models.ConversationTurn, error)

	Close() error
}
