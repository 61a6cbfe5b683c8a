package application

import (
	"context"
	"fmt"
	"strings"

	"media-courier-bot/internal/infra/logging"
	"media-courier-bot/internal/infra/metrics"
)

type commandHandler func(ctx context.Context, in Inbound, args string) error

// commandRoutes defines all available bot commands and their handlers.
func (b *BotFacade) commandRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"start":   b.handleStartCommand,
		"help":    b.handleHelpCommand,
		"yt":      b.handleVideoSearchCommand,
		"channel": b.handleChannelSearchCommand,
		"music":   b.handleMusicSearchCommand,
		"img":     b.handleImageSearchCommand,
		"anime":   b.handleAnimeSearchCommand,
		"auto":    b.handleAutomationCommand,
		"files":   b.handleFilesCommand,
		"delete":  b.handleDeleteCommand,
		"cookie":  b.handleCookieCommand,
		"status":  b.handleStatusCommand,
		"history": b.handleHistoryCommand,
		"cancel":  b.handleCancelCommand,

		// Wrapped in the adminOnly middleware.
		"broadcast": b.adminOnly(b.handleBroadcastCommand),
	}
}

// splitCommand turns "/Name@bot rest of text" into ("name", "rest of text").
func splitCommand(text string) (string, string) {
	text = strings.TrimPrefix(strings.TrimSpace(text), "/")
	name, args, _ := strings.Cut(text, " ")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	return strings.ToLower(name), strings.TrimSpace(args)
}

func (b *BotFacade) routeCommand(ctx context.Context, in Inbound, text string) error {
	name, args := splitCommand(text)
	metrics.IncTelegramCommand("/" + name)

	if b.Limiter != nil {
		key := fmt.Sprintf("rate_limit:%d:/%s", in.UserID, name)
		allowed, err := b.Limiter.Allow(ctx, key, b.opts.CommandLimit, b.opts.CommandWindow)
		if err != nil {
			logging.With(ctx, b.log).Warn().Err(err).Msg("rate limiter unavailable")
		} else if !allowed {
			metrics.IncRateLimitTriggered()
			b.reply(ctx, in.ConversationID, b.Translator.T("error_rate_limited"))
			return nil
		}
	}

	handler, ok := b.commandRoutes()[name]
	if !ok {
		b.reply(ctx, in.ConversationID, b.Translator.T("unknown_command"))
		return nil
	}
	if err := handler(ctx, in, args); err != nil {
		return b.fail(ctx, in.ConversationID, err)
	}
	return nil
}

func (b *BotFacade) adminOnly(next commandHandler) commandHandler {
	return func(ctx context.Context, in Inbound, args string) error {
		if !b.isAdmin(in.UserID) {
			metrics.IncAdminCommand("/broadcast", "unauthorized")
			b.reply(ctx, in.ConversationID, b.Translator.T("error_unauthorized"))
			return nil
		}
		metrics.IncAdminCommand("/broadcast", "authorized")
		return next(ctx, in, args)
	}
}

func (b *BotFacade) handleStartCommand(ctx context.Context, in Inbound, _ string) error {
	name := in.Username
	if name == "" {
		name = "there"
	}
	b.reply(ctx, in.ConversationID, b.Translator.T("welcome_message", name))
	return nil
}

func (b *BotFacade) handleHelpCommand(ctx context.Context, in Inbound, _ string) error {
	b.reply(ctx, in.ConversationID, b.Translator.T("help_message"))
	return nil
}

// handleCancelCommand drops the pending interaction. Running jobs are not
// affected; they finish and report on their own.
func (b *BotFacade) handleCancelCommand(ctx context.Context, in Inbound, _ string) error {
	if err := b.States.Clear(ctx, in.ConversationID); err != nil {
		return err
	}
	b.reply(ctx, in.ConversationID, b.Translator.T("cancelled"))
	return nil
}
