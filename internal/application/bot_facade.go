// Package application turns inbound chat messages into searches, state
// transitions and supervised download jobs. It knows nothing about the
// messaging platform beyond the adapter.Transport port.
package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"media-courier-bot/internal/conversation"
	"media-courier-bot/internal/dispatch"
	"media-courier-bot/internal/domain"
	"media-courier-bot/internal/domain/model"
	"media-courier-bot/internal/domain/ports/adapter"
	"media-courier-bot/internal/domain/ports/repository"
	"media-courier-bot/internal/infra/logging"
	"media-courier-bot/internal/infra/metrics"
	"media-courier-bot/internal/infra/worker"
	"media-courier-bot/internal/jobs"
)

// Translator resolves reply templates.
type Translator interface {
	T(key string, args ...interface{}) string
}

// RateLimiter counts events per key inside a fixed window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Broadcaster delivers one text to every saved chat.
type Broadcaster interface {
	BroadcastMessage(ctx context.Context, message string, exclude []int64) (worker.Summary, error)
}

// Inbound is one text message from a conversation.
type Inbound struct {
	ConversationID int64
	UserID         int64
	Username       string
	Text           string
}

// Deps are the collaborators the facade drives. Searchers and stores may be
// nil; the commands that need them then answer with a "not available" reply.
type Deps struct {
	Transport  adapter.Transport
	States     *conversation.Machine
	Supervisor *jobs.Supervisor
	Registry   *jobs.Registry
	Dispatcher *dispatch.Dispatcher
	Pool       *worker.Pool

	Videos   adapter.VideoSearcher
	Channels adapter.ChannelSearcher
	Music    adapter.MusicSearcher
	Images   adapter.ImageSearcher
	Anime    adapter.AnimeCatalog
	Media    adapter.MediaGetter

	Files   repository.FileStore
	Cookies repository.CredentialStore
	History repository.HistoryRepository
	Chats   repository.ChatRegistry

	Broadcast  Broadcaster
	Limiter    RateLimiter
	Translator Translator
}

type Options struct {
	AdminIDs      []int64
	VideoLimit    int
	ChannelLimit  int
	MusicLimit    int
	ImageDefault  int
	RecentVideos  int
	MaxRecent     int
	CommandLimit  int
	CommandWindow time.Duration
	AudioFormat   string
	HistoryLimit  int
}

func (o *Options) applyDefaults() {
	if o.VideoLimit <= 0 {
		o.VideoLimit = 5
	}
	if o.ChannelLimit <= 0 {
		o.ChannelLimit = 5
	}
	if o.MusicLimit <= 0 {
		o.MusicLimit = 8
	}
	if o.ImageDefault <= 0 {
		o.ImageDefault = 5
	}
	if o.RecentVideos <= 0 {
		o.RecentVideos = 5
	}
	if o.MaxRecent <= 0 {
		o.MaxRecent = 20
	}
	if o.CommandLimit <= 0 {
		o.CommandLimit = 20
	}
	if o.CommandWindow <= 0 {
		o.CommandWindow = time.Minute
	}
	if o.AudioFormat == "" {
		o.AudioFormat = "mp3"
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = 10
	}
}

// BotFacade is the transport-agnostic bot.
type BotFacade struct {
	Deps
	opts   Options
	admins map[int64]struct{}
	log    *zerolog.Logger
}

func NewBotFacade(deps Deps, opts Options, logger *zerolog.Logger) (*BotFacade, error) {
	if deps.Transport == nil {
		return nil, errors.New("transport is nil")
	}
	if deps.States == nil {
		return nil, errors.New("conversation machine is nil")
	}
	if deps.Translator == nil {
		return nil, errors.New("translator is nil")
	}
	opts.applyDefaults()

	admins := make(map[int64]struct{}, len(opts.AdminIDs))
	for _, id := range opts.AdminIDs {
		admins[id] = struct{}{}
	}
	l := logger.With().Str("component", "BotFacade").Logger()
	b := &BotFacade{Deps: deps, opts: opts, admins: admins, log: &l}
	b.registerStates()
	return b, nil
}

func (b *BotFacade) registerStates() {
	m := b.States
	m.Register(model.StateFileSelection, conversation.AcceptIndex, b.onFileSelection)
	m.Register(model.StateDeleteConfirmation, conversation.AcceptAny, b.onDeleteConfirmation)
	m.Register(model.StateVideoSelection, conversation.AcceptVideoChoice, b.onVideoSelection)
	m.Register(model.StateChannelSelection, conversation.AcceptChannelChoice, b.onChannelSelection)
	m.Register(model.StateAnimeSelection, conversation.AcceptIndex, b.onAnimeSelection)
	m.Register(model.StateEpisodeSelection, conversation.AcceptEpisodeSelection, b.onEpisodeSelection)
	m.Register(model.StateQualitySelection, conversation.AcceptIndex, b.onQualitySelection)
	m.Register(model.StateAutomationConfirmation, conversation.AcceptAny, b.onAutomationConfirmation)
	m.Register(model.StateMusicSelection, conversation.AcceptIndex, b.onMusicSelection)
	m.Register(model.StateCookieText, conversation.AcceptAny, b.onCookieText)
}

// HandleMessage processes one inbound message to completion. Errors are
// reported to the conversation; the returned error is only for logging by the
// transport loop.
func (b *BotFacade) HandleMessage(ctx context.Context, in Inbound) (err error) {
	ctx = logging.WithTraceID(ctx, uuid.NewString())
	ctx = logging.WithUserID(logging.WithConvID(ctx, in.ConversationID), in.UserID)
	l := logging.With(ctx, b.log)

	defer func() {
		if r := recover(); r != nil {
			l.Error().Interface("panic", r).Msg("message handler panicked")
			b.reply(ctx, in.ConversationID, b.Translator.T("error_generic"))
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	if b.Chats != nil {
		if err := b.Chats.Save(ctx, in.ConversationID); err != nil {
			l.Warn().Err(err).Msg("failed to save chat")
		} else {
			metrics.IncChatSeen()
		}
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil
	}
	if strings.HasPrefix(text, "/") {
		return b.routeCommand(ctx, in, text)
	}

	handled, err := b.States.Dispatch(ctx, in.ConversationID, text)
	if err != nil {
		return b.fail(ctx, in.ConversationID, err)
	}
	if handled {
		return nil
	}
	return b.replyUnhandled(ctx, in.ConversationID)
}

// replyUnhandled re-prompts a conversation that has a pending state and gives
// the default answer otherwise.
func (b *BotFacade) replyUnhandled(ctx context.Context, conv int64) error {
	entry, ok, err := b.States.Get(ctx, conv)
	if err != nil {
		return b.fail(ctx, conv, err)
	}
	if !ok {
		b.reply(ctx, conv, b.Translator.T("default_reply"))
		return nil
	}
	b.reply(ctx, conv, b.Translator.T("retry_"+string(entry.State.Name())))
	return nil
}

func isValidation(err error) bool {
	return errors.Is(err, domain.ErrInvalidSelection) ||
		errors.Is(err, domain.ErrEmptyRange) ||
		errors.Is(err, domain.ErrUnsupportedQuality) ||
		errors.Is(err, domain.ErrInvalidCredential) ||
		errors.Is(err, domain.ErrInvalidArgument)
}

func (b *BotFacade) userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidSelection):
		return b.Translator.T("error_invalid_selection")
	case errors.Is(err, domain.ErrEmptyRange):
		return b.Translator.T("error_empty_range")
	case errors.Is(err, domain.ErrUnsupportedQuality):
		return b.Translator.T("error_unsupported_quality")
	case errors.Is(err, domain.ErrInvalidCredential):
		return b.Translator.T("error_invalid_cookie")
	case errors.Is(err, domain.ErrInvalidArgument):
		return b.Translator.T("error_invalid_argument")
	case errors.Is(err, domain.ErrNoResults):
		return b.Translator.T("error_no_results")
	case errors.Is(err, domain.ErrQueueFull), errors.Is(err, domain.ErrLocked):
		return b.Translator.T("error_busy")
	case errors.Is(err, domain.ErrDownloaderUnavailable):
		return b.Translator.T("error_downloader")
	case errors.Is(err, domain.ErrNotFound):
		return b.Translator.T("error_not_available")
	default:
		return b.Translator.T("error_generic")
	}
}

// fail reports err to the conversation. Validation errors keep the pending
// state so the user can retry; anything else ends the current attempt.
func (b *BotFacade) fail(ctx context.Context, conv int64, err error) error {
	l := logging.With(ctx, b.log)
	if isValidation(err) {
		l.Debug().Err(err).Msg("rejected reply")
		b.reply(ctx, conv, b.userMessage(err))
		return nil
	}
	if cerr := b.States.Clear(ctx, conv); cerr != nil {
		l.Warn().Err(cerr).Msg("failed to clear state after error")
	}
	if errors.Is(err, domain.ErrNoResults) || errors.Is(err, domain.ErrQueueFull) {
		l.Info().Err(err).Msg("request ended")
	} else {
		l.Error().Err(err).Msg("request failed")
	}
	b.reply(ctx, conv, b.userMessage(err))
	return nil
}

// reply sends text and swallows transport errors.
func (b *BotFacade) reply(ctx context.Context, conv int64, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if _, err := b.Transport.SendText(ctx, conv, text); err != nil {
		logging.With(ctx, b.log).Warn().Err(err).Msg("failed to send reply")
	}
}

func (b *BotFacade) presence(ctx context.Context, conv int64, p adapter.Presence) {
	if err := b.Transport.SetPresence(ctx, conv, p); err != nil {
		logging.With(ctx, b.log).Debug().Err(err).Str("presence", string(p)).Msg("failed to set presence")
	}
}

func (b *BotFacade) isAdmin(userID int64) bool {
	_, ok := b.admins[userID]
	return ok
}
