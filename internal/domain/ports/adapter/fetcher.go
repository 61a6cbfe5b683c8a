package adapter

import "context"

// FetchRequest describes one external download invocation.
type FetchRequest struct {
	URL            string
	Format         string // downloader format selector, empty for default
	AudioOnly      bool
	AudioFormat    string // e.g. "mp3" when AudioOnly
	Dir            string // working directory the artifact is written to
	OutputTemplate string
	CookiesPath    string
}

// FetchResult is what the external process reported on exit.
type FetchResult struct {
	ExitCode int
}

// Fetcher runs the external media-extraction tool and streams its combined output line by line.
// A process that cannot be started yields an error wrapping domain.ErrDownloaderUnavailable.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest, onLine func(line string)) (FetchResult, error)
}
