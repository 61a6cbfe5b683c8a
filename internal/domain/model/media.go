package model

import "time"

// Video is a single search hit from a video platform.
type Video struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Uploader    string `json:"uploader,omitempty"`
	DurationSec int    `json:"duration_sec,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
}

type Channel struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	Subscribers int64  `json:"subscribers,omitempty"`
}

// Track is a music search hit.
type Track struct {
	Title       string `json:"title"`
	Artist      string `json:"artist,omitempty"`
	URL         string `json:"url"`
	DurationSec int    `json:"duration_sec,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
}

type Image struct {
	Src          string   `json:"src"`
	Alt          string   `json:"alt,omitempty"`
	Origin       string   `json:"origin,omitempty"`
	FallbackURLs []string `json:"fallback_urls,omitempty"`
}

// Anime is a title card from the episodic catalog.
type Anime struct {
	Title        string   `json:"title"`
	URL          string   `json:"url"`
	Poster       string   `json:"poster,omitempty"`
	Rating       float64  `json:"rating,omitempty"`
	EpisodeCount int      `json:"episode_count,omitempty"`
	Genres       []string `json:"genres,omitempty"`
	Season       string   `json:"season,omitempty"`
	Synopsis     string   `json:"synopsis,omitempty"`
}

type Episode struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
}

// Quality is one downloadable rendition of an episode.
type Quality struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// StoredFile is an artifact kept in the durable output directory.
type StoredFile struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// FormatDuration renders seconds as m:ss or h:mm:ss.
func FormatDuration(sec int) string {
	if sec <= 0 {
		return ""
	}
	h, m, s := sec/3600, (sec%3600)/60, sec%60
	if h > 0 {
		return fmtInt(h) + ":" + pad2(m) + ":" + pad2(s)
	}
	return fmtInt(m) + ":" + pad2(s)
}
