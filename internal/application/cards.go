package application

import (
	"context"
	"fmt"
	"strings"

	"media-courier-bot/internal/dispatch"
	"media-courier-bot/internal/domain/model"
	"media-courier-bot/internal/infra/logging"
)

// sendCards delivers a numbered result list. Items with a reachable image go
// out as photos, the rest as text, always in list order.
func sendCards[T any](ctx context.Context, b *BotFacade, conv int64, items []T, caption func(i int, item T) string, images func(item T) []string) {
	if b.Dispatcher == nil {
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = caption(i, it)
		}
		b.reply(ctx, conv, strings.Join(parts, "\n\n"))
		return
	}

	r := dispatch.Renderer[T]{Caption: caption}
	if b.Media != nil && images != nil {
		r.Media = func(ctx context.Context, _ int, item T) ([]byte, error) {
			var lastErr error
			for _, u := range images(item) {
				if u == "" {
					continue
				}
				data, err := b.Media.Get(ctx, u)
				if err == nil {
					return data, nil
				}
				lastErr = err
			}
			return nil, lastErr
		}
	}
	rep := dispatch.SendOrderedBatch(ctx, b.Dispatcher, conv, items, r)
	if rep.Failed > 0 {
		logging.With(ctx, b.log).Warn().Int("failed", rep.Failed).Int("total", len(items)).Msg("some result cards were not delivered")
	}
}

func videoCaption(i int, v model.Video) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d. %s", i+1, v.Title)
	meta := make([]string, 0, 2)
	if v.Uploader != "" {
		meta = append(meta, v.Uploader)
	}
	if d := model.FormatDuration(v.DurationSec); d != "" {
		meta = append(meta, d)
	}
	if len(meta) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(meta, " • "))
	}
	return b.String()
}

func trackCaption(i int, t model.Track) string {
	s := fmt.Sprintf("%d. %s", i+1, t.Title)
	if t.Artist != "" {
		s += " - " + t.Artist
	}
	if d := model.FormatDuration(t.DurationSec); d != "" {
		s += " (" + d + ")"
	}
	return s
}

func animeCaption(i int, a model.Anime) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d. %s", i+1, a.Title)
	meta := make([]string, 0, 3)
	if a.Rating > 0 {
		meta = append(meta, fmt.Sprintf("⭐ %.1f", a.Rating))
	}
	if a.EpisodeCount > 0 {
		meta = append(meta, fmt.Sprintf("%d eps", a.EpisodeCount))
	}
	if a.Season != "" {
		meta = append(meta, a.Season)
	}
	if len(meta) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(meta, " • "))
	}
	if len(a.Genres) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(a.Genres, ", "))
	}
	return b.String()
}

func imageCaption(i int, img model.Image) string {
	if img.Alt == "" {
		return fmt.Sprintf("%d.", i+1)
	}
	return fmt.Sprintf("%d. %s", i+1, img.Alt)
}

// numbered renders a plain "1. x" list.
func numbered(items []string) string {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %s", i+1, it)
	}
	return b.String()
}
