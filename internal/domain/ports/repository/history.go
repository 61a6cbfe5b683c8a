package repository

import (
	"context"

	"media-courier-bot/internal/domain/model"
)

type HistoryRepository interface {
	Record(ctx context.Context, rec *model.DownloadRecord) error
	ListRecent(ctx context.Context, conversationID int64, limit int) ([]*model.DownloadRecord, error)
}

// ChatRegistry remembers every conversation that has talked to the bot.
type ChatRegistry interface {
	Save(ctx context.Context, conversationID int64) error
	List(ctx context.Context) ([]int64, error)
}
