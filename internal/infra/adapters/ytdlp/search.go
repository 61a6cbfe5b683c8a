package ytdlp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"media-courier-bot/internal/domain"
	"media-courier-bot/internal/domain/model"
	"media-courier-bot/internal/domain/ports/adapter"
)

var (
	_ adapter.VideoSearcher   = (*Client)(nil)
	_ adapter.ChannelSearcher = (*Client)(nil)
	_ adapter.MusicSearcher   = (*Client)(nil)
)

// channelFilter restricts YouTube result pages to channels.
const channelFilter = "EgIQAg%3D%3D"

type thumbnail struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
}

type flatEntry struct {
	ID               string      `json:"id"`
	Title            string      `json:"title"`
	URL              string      `json:"url"`
	WebpageURL       string      `json:"webpage_url"`
	Uploader         string      `json:"uploader"`
	Channel          string      `json:"channel"`
	ChannelID        string      `json:"channel_id"`
	ChannelURL       string      `json:"channel_url"`
	ChannelFollowers int64       `json:"channel_follower_count"`
	Duration         float64     `json:"duration"`
	Thumbnail        string      `json:"thumbnail"`
	Thumbnails       []thumbnail `json:"thumbnails"`
}

type flatPlaylist struct {
	Entries []flatEntry `json:"entries"`
}

func (e flatEntry) link() string {
	if e.WebpageURL != "" {
		return e.WebpageURL
	}
	return e.URL
}

func (e flatEntry) thumb() string {
	if e.Thumbnail != "" {
		return e.Thumbnail
	}
	best := ""
	h := -1
	for _, t := range e.Thumbnails {
		if t.Height > h {
			best, h = t.URL, t.Height
		}
	}
	return best
}

func (e flatEntry) uploader() string {
	if e.Uploader != "" {
		return e.Uploader
	}
	return e.Channel
}

func (c *Client) flat(ctx context.Context, target string, limit int) ([]flatEntry, error) {
	args := []string{"--flat-playlist", "-J", "--no-warnings"}
	if limit > 0 {
		args = append(args, "--playlist-end", fmt.Sprint(limit))
	}
	raw, err := c.output(ctx, append(args, target)...)
	if err != nil {
		return nil, err
	}
	var pl flatPlaylist
	if err := json.Unmarshal(raw, &pl); err != nil {
		return nil, fmt.Errorf("decode yt-dlp listing: %w", err)
	}
	if limit > 0 && len(pl.Entries) > limit {
		pl.Entries = pl.Entries[:limit]
	}
	return pl.Entries, nil
}

func (c *Client) SearchVideos(ctx context.Context, query string, limit int) ([]model.Video, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("video search: %w", domain.ErrInvalidArgument)
	}
	entries, err := c.flat(ctx, fmt.Sprintf("ytsearch%d:%s", limit, query), limit)
	if err != nil {
		return nil, err
	}
	return toVideos(entries), nil
}

func (c *Client) SearchTracks(ctx context.Context, query string, limit int) ([]model.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("music search: %w", domain.ErrInvalidArgument)
	}
	entries, err := c.flat(ctx, fmt.Sprintf("scsearch%d:%s", limit, query), limit)
	if err != nil {
		return nil, err
	}
	out := make([]model.Track, 0, len(entries))
	for _, e := range entries {
		if e.link() == "" {
			continue
		}
		out = append(out, model.Track{
			Title:       e.Title,
			Artist:      e.uploader(),
			URL:         e.link(),
			DurationSec: int(e.Duration),
			Thumbnail:   e.thumb(),
		})
	}
	return out, nil
}

// SearchChannels accepts a channel URL, an @handle or free text.
func (c *Client) SearchChannels(ctx context.Context, query string, limit int) ([]model.Channel, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("channel search: %w", domain.ErrInvalidArgument)
	}
	if ch, ok := directChannel(query); ok {
		return []model.Channel{ch}, nil
	}
	target := "https://www.youtube.com/results?search_query=" + url.QueryEscape(query) + "&sp=" + channelFilter
	entries, err := c.flat(ctx, target, limit)
	if err != nil {
		return nil, err
	}
	out := make([]model.Channel, 0, len(entries))
	for _, e := range entries {
		link := e.ChannelURL
		if link == "" {
			link = e.link()
		}
		if link == "" {
			continue
		}
		name := e.Channel
		if name == "" {
			name = e.Title
		}
		id := e.ChannelID
		if id == "" {
			id = e.ID
		}
		out = append(out, model.Channel{ID: id, Name: name, URL: link, Subscribers: e.ChannelFollowers})
	}
	return out, nil
}

func (c *Client) RecentVideos(ctx context.Context, ch model.Channel, limit int) ([]model.Video, error) {
	if ch.URL == "" {
		return nil, fmt.Errorf("recent videos: %w", domain.ErrInvalidArgument)
	}
	target := strings.TrimRight(ch.URL, "/")
	if !strings.HasSuffix(target, "/videos") {
		target += "/videos"
	}
	entries, err := c.flat(ctx, target, limit)
	if err != nil {
		return nil, err
	}
	videos := toVideos(entries)
	for i := range videos {
		if videos[i].Uploader == "" {
			videos[i].Uploader = ch.Name
		}
	}
	return videos, nil
}

func directChannel(q string) (model.Channel, bool) {
	switch {
	case strings.HasPrefix(q, "@"):
		return model.Channel{ID: q, Name: q, URL: "https://www.youtube.com/" + q}, true
	case strings.HasPrefix(q, "http://") || strings.HasPrefix(q, "https://"):
		u, err := url.Parse(q)
		if err != nil || u.Host == "" {
			return model.Channel{}, false
		}
		name := strings.Trim(u.Path, "/")
		if name == "" {
			name = u.Host
		}
		return model.Channel{ID: name, Name: name, URL: q}, true
	}
	return model.Channel{}, false
}

func toVideos(entries []flatEntry) []model.Video {
	out := make([]model.Video, 0, len(entries))
	for _, e := range entries {
		link := e.link()
		if link == "" && e.ID != "" {
			link = "https://www.youtube.com/watch?v=" + e.ID
		}
		if link == "" {
			continue
		}
		out = append(out, model.Video{
			ID:          e.ID,
			Title:       e.Title,
			URL:         link,
			Uploader:    e.uploader(),
			DurationSec: int(e.Duration),
			Thumbnail:   e.thumb(),
		})
	}
	return out
}
