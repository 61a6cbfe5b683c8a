package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"media-courier-bot/internal/domain/ports/adapter"
	"media-courier-bot/internal/domain/ports/repository"
	"media-courier-bot/internal/infra/metrics"
	"media-courier-bot/internal/infra/worker"
)

const broadcastLockKey = "lock:broadcast"

type BroadcastUseCase interface {
	BroadcastMessage(ctx context.Context, message string, exclude []int64) (worker.Summary, error)
}

// Locker serializes broadcasts across processes; a nil Locker skips locking.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

type broadcastUC struct {
	chats     repository.ChatRegistry
	transport adapter.Transport
	throttle  *worker.Throttle
	chunkSize int
	locker    Locker
	log       *zerolog.Logger
}

func NewBroadcastUseCase(
	chats repository.ChatRegistry,
	transport adapter.Transport,
	throttle *worker.Throttle,
	chunkSize int,
	locker Locker,
	logger *zerolog.Logger,
) BroadcastUseCase {
	l := logger.With().Str("component", "BroadcastUseCase").Logger()
	return &broadcastUC{
		chats:     chats,
		transport: transport,
		throttle:  throttle,
		chunkSize: chunkSize,
		locker:    locker,
		log:       &l,
	}
}

// BroadcastMessage sends message to every saved chat not in exclude. Sends
// run in chunks; one failing chat never stops the others.
func (uc *broadcastUC) BroadcastMessage(ctx context.Context, message string, exclude []int64) (worker.Summary, error) {
	if uc.locker != nil {
		token, err := uc.locker.TryLock(ctx, broadcastLockKey, 10*time.Minute)
		if err != nil {
			return worker.Summary{}, fmt.Errorf("acquire broadcast lock: %w", err)
		}
		defer func() {
			if err := uc.locker.Unlock(context.Background(), broadcastLockKey, token); err != nil {
				uc.log.Warn().Err(err).Msg("failed to release broadcast lock")
			}
		}()
	}

	all, err := uc.chats.List(ctx)
	if err != nil {
		uc.log.Error().Err(err).Msg("Failed to fetch saved chats for broadcast")
		return worker.Summary{}, err
	}

	skip := make(map[int64]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	recipients := make([]int64, 0, len(all))
	for _, id := range all {
		if _, ok := skip[id]; !ok {
			recipients = append(recipients, id)
		}
	}

	uc.log.Info().Int("chat_count", len(recipients)).Msg("Starting broadcast")
	sum := worker.SettleChunked(ctx, uc.throttle, recipients, uc.chunkSize, func(ctx context.Context, chatID int64) error {
		if _, err := uc.transport.SendText(ctx, chatID, message); err != nil {
			// Usually the user blocked the bot.
			uc.log.Warn().Err(err).Int64("conv_id", chatID).Msg("Failed to send broadcast message to chat")
			return err
		}
		return nil
	})
	metrics.AddBroadcastRecipients(sum.Succeeded, sum.Failed)
	uc.log.Info().Int("succeeded", sum.Succeeded).Int("failed", sum.Failed).Msg("Broadcast finished")
	return sum, nil
}
