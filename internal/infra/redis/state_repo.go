package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"media-courier-bot/internal/domain/model"
	"media-courier-bot/internal/domain/ports/repository"
)

var _ repository.StateRepository = (*StateRepo)(nil)

// StateRepo keeps conversation states as kind-tagged JSON. A zero ttl keeps
// them until they are cleared.
type StateRepo struct {
	client RedisClient
	ttl    time.Duration
}

func NewStateRepo(client RedisClient, ttl time.Duration) *StateRepo {
	return &StateRepo{
		client: client,
		ttl:    ttl,
	}
}

func (s *StateRepo) stateKey(conv int64) string {
	return fmt.Sprintf("conv_state:%d", conv)
}

func (s *StateRepo) Set(ctx context.Context, conv int64, entry model.StateEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.stateKey(conv), data, s.ttl)
}

func (s *StateRepo) Get(ctx context.Context, conv int64) (model.StateEntry, bool, error) {
	data, err := s.client.Get(ctx, s.stateKey(conv))
	if errors.Is(err, Nil) {
		return model.StateEntry{}, false, nil
	}
	if err != nil {
		return model.StateEntry{}, false, err
	}

	var entry model.StateEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return model.StateEntry{}, false, fmt.Errorf("decode state %d: %w", conv, err)
	}
	return entry, true, nil
}

func (s *StateRepo) Clear(ctx context.Context, conv int64) error {
	return s.client.Del(ctx, s.stateKey(conv))
}
