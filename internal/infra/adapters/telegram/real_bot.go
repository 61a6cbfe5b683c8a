package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"media-courier-bot/internal/application"
	"media-courier-bot/internal/config"
	"media-courier-bot/internal/domain/ports/adapter"
	"media-courier-bot/internal/infra/logging"
	"media-courier-bot/internal/infra/metrics"
)

var (
	_ adapter.Transport = (*RealTelegramBotAdapter)(nil)
	_ adapter.Editor    = (*RealTelegramBotAdapter)(nil)
)

const (
	maxTextRunes    = adapter.MaxSingleMessageRunes
	maxCaptionRunes = 1024
)

// botAPI is the subset of *tgbotapi.BotAPI the adapter uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Handler consumes one inbound text message.
type Handler func(ctx context.Context, in application.Inbound) error

// RealTelegramBotAdapter implements adapter.Transport over the Bot API and
// polls updates into a fixed set of workers sharded by chat.
type RealTelegramBotAdapter struct {
	bot     botAPI
	limiter *rate.Limiter
	log     *zerolog.Logger

	// updateWorkers is how many goroutines concurrently process updates.
	updateWorkers int
	cancelPolling context.CancelFunc
}

func NewRealTelegramBotAdapter(cfg *config.BotConfig, logger *zerolog.Logger) (*RealTelegramBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("username", bot.Self.UserName).Msg("telegram bot authorized")
	return newAdapter(bot, cfg.Workers, cfg.SendRate, logger), nil
}

func newAdapter(bot botAPI, workers int, sendRate float64, logger *zerolog.Logger) *RealTelegramBotAdapter {
	if workers <= 0 {
		workers = 5
	}
	r := &RealTelegramBotAdapter{bot: bot, log: logger, updateWorkers: workers}
	if sendRate > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(sendRate), int(sendRate)+1)
	}
	return r
}

// StartPolling feeds updates to handle until ctx is canceled. Updates of one
// chat always land on the same worker so a conversation is handled in order.
func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context, handle Handler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel
	defer r.bot.StopReceivingUpdates()

	return r.consume(ctx, updates, handle)
}

func (r *RealTelegramBotAdapter) consume(ctx context.Context, updates <-chan tgbotapi.Update, handle Handler) error {
	shards := make([]chan application.Inbound, r.updateWorkers)
	var wg sync.WaitGroup
	for i := range shards {
		shards[i] = make(chan application.Inbound, 32)
		wg.Add(1)
		go func(id int, in <-chan application.Inbound) {
			defer wg.Done()
			for msg := range in {
				if err := handle(ctx, msg); err != nil {
					r.log.Warn().Err(err).Int("worker", id).Int64("conv_id", msg.ConversationID).Msg("update handling failed")
				}
			}
		}(i, shards[i])
	}
	stop := func() {
		for _, ch := range shards {
			close(ch)
		}
		wg.Wait()
	}

	for {
		select {
		case <-ctx.Done():
			stop()
			return ctx.Err()
		case up, ok := <-updates:
			if !ok {
				stop()
				return nil
			}
			in, ok := toInbound(up)
			if !ok {
				continue
			}
			select {
			case shards[shardFor(in.ConversationID, len(shards))] <- in:
			case <-ctx.Done():
				stop()
				return ctx.Err()
			}
		}
	}
}

func (r *RealTelegramBotAdapter) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

func shardFor(chatID int64, n int) int {
	if chatID < 0 {
		chatID = -chatID
	}
	return int(chatID % int64(n))
}

// toInbound keeps text messages and captioned media; everything else is ignored.
func toInbound(up tgbotapi.Update) (application.Inbound, bool) {
	msg := up.Message
	if msg == nil || msg.Chat == nil {
		return application.Inbound{}, false
	}
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if text == "" {
		return application.Inbound{}, false
	}
	in := application.Inbound{ConversationID: msg.Chat.ID, Text: text}
	if msg.From != nil {
		in.UserID = msg.From.ID
		in.Username = msg.From.UserName
		if in.Username == "" {
			in.Username = msg.From.FirstName
		}
	}
	return in, true
}

func (r *RealTelegramBotAdapter) wait(ctx context.Context) error {
	if r.limiter == nil {
		return ctx.Err()
	}
	return r.limiter.Wait(ctx)
}

func (r *RealTelegramBotAdapter) send(ctx context.Context, method string, c tgbotapi.Chattable) (adapter.MessageHandle, error) {
	if err := r.wait(ctx); err != nil {
		return adapter.MessageHandle{}, err
	}
	msg, err := r.bot.Send(c)
	metrics.IncTelegramAPICall(method, err)
	if err != nil {
		return adapter.MessageHandle{}, fmt.Errorf("telegram %s: %w", method, err)
	}
	var chatID int64
	if msg.Chat != nil {
		chatID = msg.Chat.ID
	}
	return adapter.MessageHandle{ConversationID: chatID, MessageID: msg.MessageID}, nil
}

func (r *RealTelegramBotAdapter) request(ctx context.Context, method string, c tgbotapi.Chattable) error {
	if err := r.wait(ctx); err != nil {
		return err
	}
	_, err := r.bot.Request(c)
	metrics.IncTelegramAPICall(method, err)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	return nil
}

// SendText splits long texts into several messages and returns the last handle.
func (r *RealTelegramBotAdapter) SendText(ctx context.Context, chatID int64, text string) (adapter.MessageHandle, error) {
	var h adapter.MessageHandle
	for _, part := range splitRunes(text, maxTextRunes) {
		var err error
		h, err = r.send(ctx, "sendMessage", tgbotapi.NewMessage(chatID, part))
		if err != nil {
			return h, err
		}
	}
	return h, nil
}

func (r *RealTelegramBotAdapter) SendImage(ctx context.Context, chatID int64, image []byte, caption string) (adapter.MessageHandle, error) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "image.jpg", Bytes: image})
	photo.Caption = truncateRunes(caption, maxCaptionRunes)
	return r.send(ctx, "sendPhoto", photo)
}

func (r *RealTelegramBotAdapter) SendDocument(ctx context.Context, chatID int64, path, caption string) (adapter.MessageHandle, error) {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	doc.Caption = truncateRunes(caption, maxCaptionRunes)
	return r.send(ctx, "sendDocument", doc)
}

func (r *RealTelegramBotAdapter) SendAudio(ctx context.Context, chatID int64, path, caption string) (adapter.MessageHandle, error) {
	audio := tgbotapi.NewAudio(chatID, tgbotapi.FilePath(path))
	audio.Caption = truncateRunes(caption, maxCaptionRunes)
	return r.send(ctx, "sendAudio", audio)
}

func (r *RealTelegramBotAdapter) EditText(ctx context.Context, h adapter.MessageHandle, text string) error {
	edit := tgbotapi.NewEditMessageText(h.ConversationID, h.MessageID, truncateRunes(text, maxTextRunes))
	return r.request(ctx, "editMessageText", edit)
}

func (r *RealTelegramBotAdapter) DeleteMessage(ctx context.Context, h adapter.MessageHandle) error {
	return r.request(ctx, "deleteMessage", tgbotapi.NewDeleteMessage(h.ConversationID, h.MessageID))
}

func (r *RealTelegramBotAdapter) SetPresence(ctx context.Context, chatID int64, p adapter.Presence) error {
	l := logging.With(ctx, r.log)
	action, ok := chatAction(p)
	if !ok {
		l.Debug().Str("presence", string(p)).Msg("unknown presence ignored")
		return nil
	}
	return r.request(ctx, "sendChatAction", tgbotapi.NewChatAction(chatID, action))
}

func chatAction(p adapter.Presence) (string, bool) {
	switch p {
	case adapter.PresenceTyping:
		return tgbotapi.ChatTyping, true
	case adapter.PresenceUploadPhoto:
		return tgbotapi.ChatUploadPhoto, true
	case adapter.PresenceUploadDocument:
		return tgbotapi.ChatUploadDocument, true
	case adapter.PresenceUploadAudio:
		return tgbotapi.ChatUploadVoice, true
	}
	return "", false
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

func splitRunes(s string, n int) []string {
	r := []rune(s)
	if len(r) <= n {
		return []string{s}
	}
	var parts []string
	for len(r) > n {
		parts = append(parts, string(r[:n]))
		r = r[n:]
	}
	if len(r) > 0 {
		parts = append(parts, string(r))
	}
	return parts
}
