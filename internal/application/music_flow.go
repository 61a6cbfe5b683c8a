package application

import (
	"context"
	"fmt"

	"media-courier-bot/internal/conversation"
	"media-courier-bot/internal/domain"
	"media-courier-bot/internal/domain/model"
	"media-courier-bot/internal/domain/ports/adapter"
	"media-courier-bot/internal/jobs"
)

func (b *BotFacade) handleMusicSearchCommand(ctx context.Context, in Inbound, query string) error {
	if query == "" {
		b.reply(ctx, in.ConversationID, b.Translator.T("usage_music"))
		return nil
	}
	if b.Music == nil {
		return fmt.Errorf("music search: %w", domain.ErrNotFound)
	}
	b.presence(ctx, in.ConversationID, adapter.PresenceTyping)
	tracks, err := b.Music.SearchTracks(ctx, query, b.opts.MusicLimit)
	if err != nil {
		return fmt.Errorf("search tracks %q: %w", query, err)
	}
	if len(tracks) == 0 {
		return fmt.Errorf("tracks for %q: %w", query, domain.ErrNoResults)
	}
	if err := b.States.Set(ctx, in.ConversationID, model.MusicSelection{Tracks: tracks}); err != nil {
		return err
	}
	sendCards(ctx, b, in.ConversationID, tracks, trackCaption, func(t model.Track) []string { return []string{t.Thumbnail} })
	b.reply(ctx, in.ConversationID, b.Translator.T("prompt_music_selection", len(tracks)))
	return nil
}

func (b *BotFacade) onMusicSelection(ctx context.Context, conv int64, entry model.StateEntry, text string) error {
	st, ok := entry.State.(model.MusicSelection)
	if !ok {
		return fmt.Errorf("music selection: unexpected state %T", entry.State)
	}
	idx, err := conversation.ParseIndex(text, len(st.Tracks))
	if err != nil {
		return err
	}
	if err := b.States.Clear(ctx, conv); err != nil {
		return err
	}
	t := st.Tracks[idx]
	stem := artifactStem(t.Title, "")
	spec := jobs.Spec{
		ConversationID: conv,
		Kind:           KindMusic,
		Title:          t.Title,
		Items: []jobs.Item{{
			Label: t.Title,
			Request: adapter.FetchRequest{
				URL:            t.URL,
				AudioOnly:      true,
				AudioFormat:    b.opts.AudioFormat,
				OutputTemplate: outputTemplate(stem),
				CookiesPath:    b.cookiesPath(),
			},
			PrimaryName: stem + "." + b.opts.AudioFormat,
			Extensions:  audioExtensions,
			Metadata:   map[string]string{"source": t.URL},
		}},
	}
	return b.startJob(ctx, spec)
}
