// Package media fetches small remote assets such as thumbnails for inline previews.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"media-courier-bot/internal/domain/ports/adapter"
)

var _ adapter.MediaGetter = (*HTTPGetter)(nil)

var ErrTooLarge = errors.New("media exceeds size limit")

type HTTPGetter struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

func NewHTTPGetter(userAgent string, timeout time.Duration, maxBytes int64) *HTTPGetter {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &HTTPGetter{client: &http.Client{Timeout: timeout}, userAgent: userAgent, maxBytes: maxBytes}
}

func (g *HTTPGetter) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: status %d", url, resp.StatusCode)
	}
	if resp.ContentLength > g.maxBytes {
		return nil, ErrTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, g.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > g.maxBytes {
		return nil, ErrTooLarge
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("get %s: empty body", url)
	}
	return data, nil
}
