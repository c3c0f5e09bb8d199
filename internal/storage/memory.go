package storage

import (
	"context"
	"sync"

	"github.com/xaenox/gideon-bot/internal/models"
)

// maxTurnsPerChannel bounds in-memory history; completion context only ever
// needs the tail of it.
const maxTurnsPerChannel = 50

type MemoryStorage struct {
	mu    sync.RWMutex
	turns map[string][]models.ConversationTurn
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		turns: make(map[string][]models.ConversationTurn),
	}
}

func (s *MemoryStorage) AppendTurn(ctx context.Context, channelID string, turn models.ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.turns[channelID], turn)
	if len(turns) > maxTurnsPerChannel {
		turns = turns[len(turns)-maxTurnsPerChannel:]
	}
	s.turns[channelID] = turns
	return nil
}

func (s *MemoryStorage) RecentTurns(ctx context.Context, channelID string, limit int) ([]models.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.turns[channelID]
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}

	out := make([]models.ConversationTurn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *MemoryStorage) Close() error {
	return nil
}
