package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"media-courier-bot/internal/domain/model"
	"media-courier-bot/internal/domain/ports/repository"
)

var _ repository.HistoryRepository = (*historyRepo)(nil)

const historySchema = `
CREATE TABLE IF NOT EXISTS download_history (
    id              TEXT PRIMARY KEY,
    conversation_id BIGINT      NOT NULL,
    session_id      TEXT        NOT NULL,
    kind            TEXT        NOT NULL,
    title           TEXT        NOT NULL,
    source          TEXT        NOT NULL DEFAULT '',
    success         BOOLEAN     NOT NULL,
    reason          TEXT        NOT NULL DEFAULT '',
    size_bytes      BIGINT      NOT NULL DEFAULT 0,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS download_history_conv_created_idx
    ON download_history (conversation_id, created_at DESC);`

type historyRepo struct {
	pool *pgxpool.Pool
}

func NewHistoryRepo(pool *pgxpool.Pool) *historyRepo {
	return &historyRepo{pool: pool}
}

// EnsureSchema creates the history table when it does not exist yet.
func (r *historyRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, historySchema); err != nil {
		return fmt.Errorf("ensure download_history schema: %w", err)
	}
	return nil
}

func (r *historyRepo) Record(ctx context.Context, rec *model.DownloadRecord) error {
	const q = `
INSERT INTO download_history (id, conversation_id, session_id, kind, title, source, success, reason, size_bytes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO NOTHING`
	_, err := r.pool.Exec(ctx, q,
		rec.ID, rec.ConversationID, rec.SessionID, rec.Kind, rec.Title,
		rec.Source, rec.Success, rec.Reason, rec.SizeBytes, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert download record: %w", err)
	}
	return nil
}

func (r *historyRepo) ListRecent(ctx context.Context, conv int64, limit int) ([]*model.DownloadRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `
SELECT id, conversation_id, session_id, kind, title, source, success, reason, size_bytes, created_at
FROM download_history
WHERE conversation_id = $1
ORDER BY created_at DESC
LIMIT $2`
	rows, err := r.pool.Query(ctx, q, conv, limit)
	if err != nil {
		return nil, fmt.Errorf("query download history: %w", err)
	}
	defer rows.Close()

	var out []*model.DownloadRecord
	for rows.Next() {
		var rec model.DownloadRecord
		if err := rows.Scan(&rec.ID, &rec.ConversationID, &rec.SessionID, &rec.Kind, &rec.Title,
			&rec.Source, &rec.Success, &rec.Reason, &rec.SizeBytes, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan download record: %w", err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
