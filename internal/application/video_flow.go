package application

import (
	"context"
	"fmt"
	"strconv"

	"media-courier-bot/internal/conversation"
	"media-courier-bot/internal/domain"
	"media-courier-bot/internal/domain/model"
	"media-courier-bot/internal/domain/ports/adapter"
	"media-courier-bot/internal/jobs"
)

func (b *BotFacade) handleVideoSearchCommand(ctx context.Context, in Inbound, query string) error {
	if query == "" {
		b.reply(ctx, in.ConversationID, b.Translator.T("usage_yt"))
		return nil
	}
	if b.Videos == nil {
		return fmt.Errorf("video search: %w", domain.ErrNotFound)
	}
	b.presence(ctx, in.ConversationID, adapter.PresenceTyping)
	videos, err := b.Videos.SearchVideos(ctx, query, b.opts.VideoLimit)
	if err != nil {
		return fmt.Errorf("search videos %q: %w", query, err)
	}
	return b.offerVideos(ctx, in.ConversationID, videos, query)
}

// offerVideos stores the list as the pending selection and shows it.
func (b *BotFacade) offerVideos(ctx context.Context, conv int64, videos []model.Video, origin string) error {
	if len(videos) == 0 {
		return fmt.Errorf("videos for %q: %w", origin, domain.ErrNoResults)
	}
	if err := b.States.Set(ctx, conv, model.VideoSelection{Videos: videos, Origin: origin}); err != nil {
		return err
	}
	sendCards(ctx, b, conv, videos, videoCaption, func(v model.Video) []string { return []string{v.Thumbnail} })
	b.reply(ctx, conv, b.Translator.T("prompt_video_selection", len(videos)))
	return nil
}

func (b *BotFacade) onVideoSelection(ctx context.Context, conv int64, entry model.StateEntry, text string) error {
	st, ok := entry.State.(model.VideoSelection)
	if !ok {
		return fmt.Errorf("video selection: unexpected state %T", entry.State)
	}
	idx, quality, err := conversation.ParseVideoChoice(text, len(st.Videos))
	if err != nil {
		return err
	}
	if err := b.States.Clear(ctx, conv); err != nil {
		return err
	}
	return b.downloadVideo(ctx, conv, st.Videos[idx], quality)
}

func (b *BotFacade) downloadVideo(ctx context.Context, conv int64, v model.Video, quality string) error {
	label := fmt.Sprintf("%s (%sp)", v.Title, quality)
	stem := artifactStem(v.Title, v.ID)
	spec := jobs.Spec{
		ConversationID: conv,
		Kind:           KindVideo,
		Title:          v.Title,
		Items: []jobs.Item{{
			Label: label,
			Request: adapter.FetchRequest{
				URL:            v.URL,
				Format:         videoFormat(quality),
				OutputTemplate: outputTemplate(stem),
				CookiesPath:    b.cookiesPath(),
			},
			PrimaryName: stem + ".mp4",
			Extensions:  videoExtensions,
			Metadata:   map[string]string{"source": v.URL, "quality": quality},
		}},
	}
	return b.startJob(ctx, spec)
}

func (b *BotFacade) handleChannelSearchCommand(ctx context.Context, in Inbound, query string) error {
	if query == "" {
		b.reply(ctx, in.ConversationID, b.Translator.T("usage_channel"))
		return nil
	}
	if b.Channels == nil {
		return fmt.Errorf("channel search: %w", domain.ErrNotFound)
	}
	b.presence(ctx, in.ConversationID, adapter.PresenceTyping)
	channels, err := b.Channels.SearchChannels(ctx, query, b.opts.ChannelLimit)
	if err != nil {
		return fmt.Errorf("search channels %q: %w", query, err)
	}
	if len(channels) == 0 {
		return fmt.Errorf("channels for %q: %w", query, domain.ErrNoResults)
	}
	if err := b.States.Set(ctx, in.ConversationID, model.ChannelSelection{Channels: channels}); err != nil {
		return err
	}
	names := make([]string, len(channels))
	for i, c := range channels {
		names[i] = c.Name
		if c.Subscribers > 0 {
			names[i] += " (" + strconv.FormatInt(c.Subscribers, 10) + " subscribers)"
		}
	}
	b.reply(ctx, in.ConversationID, numbered(names))
	b.reply(ctx, in.ConversationID, b.Translator.T("prompt_channel_selection", b.opts.RecentVideos))
	return nil
}

func (b *BotFacade) onChannelSelection(ctx context.Context, conv int64, entry model.StateEntry, text string) error {
	st, ok := entry.State.(model.ChannelSelection)
	if !ok {
		return fmt.Errorf("channel selection: unexpected state %T", entry.State)
	}
	idx, count, err := conversation.ParseChannelChoice(text, len(st.Channels), b.opts.RecentVideos, b.opts.MaxRecent)
	if err != nil {
		return err
	}
	ch := st.Channels[idx]
	b.presence(ctx, conv, adapter.PresenceTyping)
	videos, err := b.Channels.RecentVideos(ctx, ch, count)
	if err != nil {
		return fmt.Errorf("recent videos of %s: %w", ch.Name, err)
	}
	return b.offerVideos(ctx, conv, videos, ch.Name)
}
