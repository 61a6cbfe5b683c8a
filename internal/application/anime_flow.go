package application

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"media-courier-bot/internal/conversation"
	"media-courier-bot/internal/domain"
	"media-courier-bot/internal/domain/model"
	"media-courier-bot/internal/domain/ports/adapter"
	"media-courier-bot/internal/infra/logging"
	"media-courier-bot/internal/jobs"
)

func (b *BotFacade) handleAnimeSearchCommand(ctx context.Context, in Inbound, query string) error {
	if query == "" {
		b.reply(ctx, in.ConversationID, b.Translator.T("usage_anime"))
		return nil
	}
	if b.Anime == nil {
		return fmt.Errorf("anime search: %w", domain.ErrNotFound)
	}
	b.presence(ctx, in.ConversationID, adapter.PresenceTyping)
	results, err := b.Anime.Search(ctx, query)
	if err != nil {
		return fmt.Errorf("search anime %q: %w", query, err)
	}
	if len(results) == 0 {
		return fmt.Errorf("anime for %q: %w", query, domain.ErrNoResults)
	}
	if err := b.States.Set(ctx, in.ConversationID, model.AnimeSelection{Results: results}); err != nil {
		return err
	}
	sendCards(ctx, b, in.ConversationID, results, animeCaption, func(a model.Anime) []string { return []string{a.Poster} })
	b.reply(ctx, in.ConversationID, b.Translator.T("prompt_anime_selection", len(results)))
	return nil
}

func (b *BotFacade) onAnimeSelection(ctx context.Context, conv int64, entry model.StateEntry, text string) error {
	st, ok := entry.State.(model.AnimeSelection)
	if !ok {
		return fmt.Errorf("anime selection: unexpected state %T", entry.State)
	}
	idx, err := conversation.ParseIndex(text, len(st.Results))
	if err != nil {
		return err
	}
	anime := st.Results[idx]
	b.presence(ctx, conv, adapter.PresenceTyping)
	eps, err := b.Anime.Episodes(ctx, anime)
	if err != nil {
		return fmt.Errorf("episodes of %s: %w", anime.Title, err)
	}
	if len(eps) == 0 {
		return fmt.Errorf("episodes of %s: %w", anime.Title, domain.ErrNoResults)
	}
	if err := b.States.Set(ctx, conv, model.EpisodeSelection{Anime: anime, Episodes: eps}); err != nil {
		return err
	}
	b.reply(ctx, conv, b.Translator.T("prompt_episode_selection", anime.Title, len(eps), conversation.FormatEpisodeSpan(eps)))
	return nil
}

func (b *BotFacade) onEpisodeSelection(ctx context.Context, conv int64, entry model.StateEntry, text string) error {
	st, ok := entry.State.(model.EpisodeSelection)
	if !ok {
		return fmt.Errorf("episode selection: unexpected state %T", entry.State)
	}
	chosen, err := conversation.ResolveEpisodes(st.Episodes, text)
	if err != nil {
		return err
	}
	b.presence(ctx, conv, adapter.PresenceTyping)
	qs, err := b.Anime.Qualities(ctx, chosen[0])
	if err != nil {
		return fmt.Errorf("qualities of episode %d: %w", chosen[0].Number, err)
	}
	qs = conversation.SortQualities(qs)
	if len(qs) == 0 {
		return fmt.Errorf("qualities of episode %d: %w", chosen[0].Number, domain.ErrNoResults)
	}
	if err := b.States.Set(ctx, conv, model.QualitySelection{Anime: st.Anime, Episodes: chosen, Qualities: qs}); err != nil {
		return err
	}
	labels := make([]string, len(qs))
	for i, q := range qs {
		labels[i] = q.Label
	}
	b.reply(ctx, conv, numbered(labels))
	b.reply(ctx, conv, b.Translator.T("prompt_quality_selection", len(chosen)))
	return nil
}

func (b *BotFacade) onQualitySelection(ctx context.Context, conv int64, entry model.StateEntry, text string) error {
	st, ok := entry.State.(model.QualitySelection)
	if !ok {
		return fmt.Errorf("quality selection: unexpected state %T", entry.State)
	}
	idx, err := conversation.ParseIndex(text, len(st.Qualities))
	if err != nil {
		return err
	}
	if err := b.States.Clear(ctx, conv); err != nil {
		return err
	}
	q := st.Qualities[idx]
	known := map[int]string{st.Episodes[0].Number: q.URL}
	return b.downloadEpisodes(ctx, conv, st.Anime, st.Episodes, q.Label, known)
}

// handleAutomationCommand takes "/auto <title> | <episodes> | <quality>" and
// asks for confirmation before downloading.
func (b *BotFacade) handleAutomationCommand(ctx context.Context, in Inbound, args string) error {
	parts := strings.Split(args, "|")
	if len(parts) != 3 {
		b.reply(ctx, in.ConversationID, b.Translator.T("usage_auto"))
		return nil
	}
	title := strings.TrimSpace(parts[0])
	span := strings.TrimSpace(parts[1])
	quality := normalizeQuality(parts[2])
	if title == "" || span == "" || quality == "" {
		b.reply(ctx, in.ConversationID, b.Translator.T("usage_auto"))
		return nil
	}
	if _, _, err := conversation.ParseEpisodeSelection(span); err != nil {
		return fmt.Errorf("auto %q: %w", span, domain.ErrInvalidArgument)
	}
	if b.Anime == nil {
		return fmt.Errorf("anime search: %w", domain.ErrNotFound)
	}

	b.presence(ctx, in.ConversationID, adapter.PresenceTyping)
	results, err := b.Anime.Search(ctx, title)
	if err != nil {
		return fmt.Errorf("search anime %q: %w", title, err)
	}
	if len(results) == 0 {
		return fmt.Errorf("anime for %q: %w", title, domain.ErrNoResults)
	}
	anime := results[0]
	eps, err := b.Anime.Episodes(ctx, anime)
	if err != nil {
		return fmt.Errorf("episodes of %s: %w", anime.Title, err)
	}
	chosen, err := conversation.ResolveEpisodes(eps, span)
	if err != nil {
		// A range that matches nothing is terminal here: there is no
		// pending state to retry against.
		b.reply(ctx, in.ConversationID, b.userMessage(err))
		return nil
	}
	if err := b.States.Set(ctx, in.ConversationID, model.AutomationConfirmation{Anime: anime, Episodes: chosen, Quality: quality}); err != nil {
		return err
	}
	b.reply(ctx, in.ConversationID, b.Translator.T("prompt_automation_confirmation",
		anime.Title, conversation.FormatEpisodeSpan(chosen), len(chosen), quality))
	return nil
}

func (b *BotFacade) onAutomationConfirmation(ctx context.Context, conv int64, entry model.StateEntry, text string) error {
	st, ok := entry.State.(model.AutomationConfirmation)
	if !ok {
		return fmt.Errorf("automation confirmation: unexpected state %T", entry.State)
	}
	switch {
	case conversation.IsYes(text):
		if err := b.States.Clear(ctx, conv); err != nil {
			return err
		}
		return b.downloadEpisodes(ctx, conv, st.Anime, st.Episodes, st.Quality, nil)
	case conversation.IsNo(text):
		if err := b.States.Clear(ctx, conv); err != nil {
			return err
		}
		b.reply(ctx, conv, b.Translator.T("cancelled"))
		return nil
	default:
		b.reply(ctx, conv, b.Translator.T("retry_"+string(model.StateAutomationConfirmation)))
		return nil
	}
}

// downloadEpisodes resolves the download link of every episode at the
// requested quality and runs them as one job. known holds links already
// looked up, keyed by episode number.
func (b *BotFacade) downloadEpisodes(ctx context.Context, conv int64, anime model.Anime, eps []model.Episode, quality string, known map[int]string) error {
	return b.submit(ctx, conv, anime.Title, func(ctx context.Context) error {
		spec, missing := b.animeSpec(ctx, conv, anime, eps, quality, known)
		if len(missing) > 0 {
			b.reply(ctx, conv, b.Translator.T("episodes_unavailable", quality, joinInts(missing)))
		}
		if len(spec.Items) == 0 {
			return nil
		}
		b.runJob(ctx, spec)
		return nil
	})
}

func (b *BotFacade) animeSpec(ctx context.Context, conv int64, anime model.Anime, eps []model.Episode, quality string, known map[int]string) (jobs.Spec, []int) {
	spec := jobs.Spec{ConversationID: conv, Kind: KindAnime, Title: anime.Title}
	var missing []int
	for _, ep := range eps {
		url, ok := known[ep.Number]
		if !ok {
			qs, err := b.Anime.Qualities(ctx, ep)
			if err != nil {
				logging.With(ctx, b.log).Warn().Err(err).Int("episode", ep.Number).Msg("failed to load episode qualities")
			}
			if q, found := conversation.FindQuality(qs, quality); found {
				url, ok = q.URL, true
			}
		}
		if !ok {
			missing = append(missing, ep.Number)
			continue
		}
		stem := artifactStem(fmt.Sprintf("%s - Episode %d (%s)", anime.Title, ep.Number, quality), "")
		spec.Items = append(spec.Items, jobs.Item{
			Label:       fmt.Sprintf("%s - Episode %d (%s)", anime.Title, ep.Number, quality),
			Request:     adapter.FetchRequest{URL: url, OutputTemplate: outputTemplate(stem)},
			PrimaryName: stem + ".mp4",
			Extensions:  videoExtensions,
			Metadata:   map[string]string{"source": ep.URL, "quality": quality, "episode": strconv.Itoa(ep.Number)},
		})
	}
	return spec, missing
}

func normalizeQuality(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if !strings.HasSuffix(s, "p") {
		s += "p"
	}
	return s
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
