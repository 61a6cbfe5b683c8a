package adapter

import (
	"context"

	"media-courier-bot/internal/domain/model"
)

type VideoSearcher interface {
	SearchVideos(ctx context.Context, query string, limit int) ([]model.Video, error)
}

type ChannelSearcher interface {
	SearchChannels(ctx context.Context, query string, limit int) ([]model.Channel, error)
	RecentVideos(ctx context.Context, channel model.Channel, limit int) ([]model.Video, error)
}

type MusicSearcher interface {
	SearchTracks(ctx context.Context, query string, limit int) ([]model.Track, error)
}

type ImageSearcher interface {
	SearchImages(ctx context.Context, query string, limit int) ([]model.Image, error)
}

// AnimeCatalog browses an episodic catalog site.
type AnimeCatalog interface {
	Search(ctx context.Context, query string) ([]model.Anime, error)
	Episodes(ctx context.Context, anime model.Anime) ([]model.Episode, error)
	Qualities(ctx context.Context, episode model.Episode) ([]model.Quality, error)
}

// MediaGetter downloads small auxiliary media such as thumbnails.
type MediaGetter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}
