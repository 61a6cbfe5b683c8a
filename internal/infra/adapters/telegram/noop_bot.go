package telegram

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"

	"media-courier-bot/internal/domain/ports/adapter"
)

var (
	_ adapter.Transport = (*NoopBotAdapter)(nil)
	_ adapter.Editor    = (*NoopBotAdapter)(nil)
)

// NoopBotAdapter logs outbound traffic instead of calling Telegram. Used for
// local runs without a bot token.
type NoopBotAdapter struct {
	log    *zerolog.Logger
	nextID int64
}

func NewNoopBotAdapter(logger *zerolog.Logger) *NoopBotAdapter {
	return &NoopBotAdapter{log: logger}
}

func (b *NoopBotAdapter) handle(chatID int64) adapter.MessageHandle {
	return adapter.MessageHandle{ConversationID: chatID, MessageID: int(atomic.AddInt64(&b.nextID, 1))}
}

func (b *NoopBotAdapter) SendText(ctx context.Context, chatID int64, text string) (adapter.MessageHandle, error) {
	if err := ctx.Err(); err != nil {
		return adapter.MessageHandle{}, err
	}
	h := b.handle(chatID)
	b.log.Info().Int64("conv_id", chatID).Int("msg_id", h.MessageID).Str("text", text).Msg("[noop-telegram] text")
	return h, nil
}

func (b *NoopBotAdapter) SendImage(ctx context.Context, chatID int64, image []byte, caption string) (adapter.MessageHandle, error) {
	h := b.handle(chatID)
	b.log.Info().Int64("conv_id", chatID).Int("bytes", len(image)).Str("caption", caption).Msg("[noop-telegram] image")
	return h, ctx.Err()
}

func (b *NoopBotAdapter) SendDocument(ctx context.Context, chatID int64, path, caption string) (adapter.MessageHandle, error) {
	h := b.handle(chatID)
	b.log.Info().Int64("conv_id", chatID).Str("path", path).Str("caption", caption).Msg("[noop-telegram] document")
	return h, ctx.Err()
}

func (b *NoopBotAdapter) SendAudio(ctx context.Context, chatID int64, path, caption string) (adapter.MessageHandle, error) {
	h := b.handle(chatID)
	b.log.Info().Int64("conv_id", chatID).Str("path", path).Str("caption", caption).Msg("[noop-telegram] audio")
	return h, ctx.Err()
}

func (b *NoopBotAdapter) EditText(_ context.Context, h adapter.MessageHandle, text string) error {
	b.log.Debug().Int64("conv_id", h.ConversationID).Int("msg_id", h.MessageID).Str("text", text).Msg("[noop-telegram] edit")
	return nil
}

func (b *NoopBotAdapter) DeleteMessage(_ context.Context, h adapter.MessageHandle) error {
	b.log.Debug().Int64("conv_id", h.ConversationID).Int("msg_id", h.MessageID).Msg("[noop-telegram] delete")
	return nil
}

func (b *NoopBotAdapter) SetPresence(_ context.Context, chatID int64, p adapter.Presence) error {
	b.log.Debug().Int64("conv_id", chatID).Str("presence", string(p)).Msg("[noop-telegram] presence")
	return nil
}

// StartPolling has nothing to poll; it blocks until ctx is canceled.
func (b *NoopBotAdapter) StartPolling(ctx context.Context, _ Handler) error {
	<-ctx.Done()
	return ctx.Err()
}
