package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"media-courier-bot/internal/infra/logging"
	"media-courier-bot/internal/progress"
)

// handleStatusCommand lists the conversation's running jobs.
func (b *BotFacade) handleStatusCommand(ctx context.Context, in Inbound, _ string) error {
	if b.Registry == nil {
		b.reply(ctx, in.ConversationID, b.Translator.T("no_active_jobs"))
		return nil
	}
	active := b.Registry.ForConversation(in.ConversationID)
	if len(active) == 0 {
		b.reply(ctx, in.ConversationID, b.Translator.T("no_active_jobs"))
		return nil
	}
	var sb strings.Builder
	sb.WriteString(b.Translator.T("status_header", len(active)))
	for _, j := range active {
		s := j.Snapshot()
		sb.WriteString("\n\n")
		sb.WriteString(s.Title)
		fmt.Fprintf(&sb, "\n%d/%d • %.0f%% • %s", s.Completed+s.Failed, s.Total, s.Sample.Percent,
			progress.FormatElapsed(time.Since(j.StartedAt)))
		if s.Label != "" {
			sb.WriteString("\n")
			sb.WriteString(s.Label)
		}
	}
	b.reply(ctx, in.ConversationID, sb.String())
	return nil
}

func (b *BotFacade) handleHistoryCommand(ctx context.Context, in Inbound, _ string) error {
	if b.History == nil {
		b.reply(ctx, in.ConversationID, b.Translator.T("no_history"))
		return nil
	}
	recs, err := b.History.ListRecent(ctx, in.ConversationID, b.opts.HistoryLimit)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}
	if len(recs) == 0 {
		b.reply(ctx, in.ConversationID, b.Translator.T("no_history"))
		return nil
	}
	var sb strings.Builder
	sb.WriteString(b.Translator.T("history_header"))
	for _, r := range recs {
		mark := "✅"
		if !r.Success {
			mark = "❌"
		}
		fmt.Fprintf(&sb, "\n%s %s", mark, r.Title)
		if r.SizeBytes > 0 {
			fmt.Fprintf(&sb, " (%s)", humanize.IBytes(uint64(r.SizeBytes)))
		}
		fmt.Fprintf(&sb, " • %s", r.CreatedAt.Format("2006-01-02 15:04"))
	}
	b.reply(ctx, in.ConversationID, sb.String())
	return nil
}

// handleBroadcastCommand sends text to every saved chat except the admins.
func (b *BotFacade) handleBroadcastCommand(ctx context.Context, in Inbound, text string) error {
	if text == "" {
		b.reply(ctx, in.ConversationID, b.Translator.T("usage_broadcast"))
		return nil
	}
	if b.Broadcast == nil {
		b.reply(ctx, in.ConversationID, b.Translator.T("error_not_available"))
		return nil
	}
	exclude := make([]int64, 0, len(b.admins))
	for id := range b.admins {
		exclude = append(exclude, id)
	}
	run := func(ctx context.Context) error {
		sum, err := b.Broadcast.BroadcastMessage(ctx, text, exclude)
		if err != nil {
			logging.With(ctx, b.log).Error().Err(err).Msg("broadcast failed")
			b.reply(ctx, in.ConversationID, b.Translator.T("error_generic"))
			return nil
		}
		b.reply(ctx, in.ConversationID, b.Translator.T("broadcast_done", sum.Succeeded, sum.Failed))
		return nil
	}
	if b.Pool == nil {
		return run(ctx)
	}
	if err := b.Pool.Submit(run); err != nil {
		return err
	}
	b.reply(ctx, in.ConversationID, b.Translator.T("broadcast_started"))
	return nil
}
