package repository

import (
	"context"

	"media-courier-bot/internal/domain/model"
)

// StateRepository keeps at most one pending interaction per conversation.
// Set replaces any previous entry wholesale.
type StateRepository interface {
	Get(ctx context.Context, conversationID int64) (model.StateEntry, bool, error)
	Set(ctx context.Context, conversationID int64, entry model.StateEntry) error
	Clear(ctx context.Context, conversationID int64) error
}
