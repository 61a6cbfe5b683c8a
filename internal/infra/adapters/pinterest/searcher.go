// Package pinterest searches images through an external pinterest-dl script
// that prints a JSON document on stdout.
package pinterest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"media-courier-bot/internal/domain"
	"media-courier-bot/internal/domain/model"
	"media-courier-bot/internal/domain/ports/adapter"
)

var _ adapter.ImageSearcher = (*Searcher)(nil)

const (
	minImages = 1
	maxImages = 50
)

type response struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Images  []struct {
		Src          string   `json:"src"`
		Alt          string   `json:"alt"`
		Origin       string   `json:"origin"`
		FallbackURLs []string `json:"fallback_urls"`
	} `json:"images"`
}

type Searcher struct {
	argv    []string
	timeout time.Duration
	logger  *zerolog.Logger
	command func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewSearcher takes the script invocation as a whitespace separated command
// line, e.g. "python3 pinterest_api.py --cookies cookies.json".
func NewSearcher(commandLine string, timeout time.Duration, logger *zerolog.Logger) (*Searcher, error) {
	argv := strings.Fields(commandLine)
	if len(argv) == 0 {
		return nil, errors.New("image search command is empty")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Searcher{argv: argv, timeout: timeout, logger: logger, command: exec.CommandContext}, nil
}

// ClampCount keeps n inside the range the script accepts.
func ClampCount(n int) int {
	if n < minImages {
		return minImages
	}
	if n > maxImages {
		return maxImages
	}
	return n
}

func (s *Searcher) SearchImages(ctx context.Context, query string, limit int) ([]model.Image, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("image search: %w", domain.ErrInvalidArgument)
	}
	limit = ClampCount(limit)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	args := append(append([]string{}, s.argv[1:]...), query, strconv.Itoa(limit))
	cmd := s.command(ctx, s.argv[0], args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		return nil, fmt.Errorf("start image search: %v: %w", runErr, domain.ErrDownloaderUnavailable)
	}

	// The script exits non-zero on failure but still prints its JSON verdict.
	var resp response
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &resp); err != nil {
		s.logger.Warn().Err(err).Str("stderr", strings.TrimSpace(stderr.String())).Msg("image search returned malformed output")
		if runErr != nil {
			return nil, fmt.Errorf("image search failed: %w", runErr)
		}
		return nil, fmt.Errorf("decode image search output: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("image search failed: %s", resp.Error)
	}

	out := make([]model.Image, 0, len(resp.Images))
	for _, img := range resp.Images {
		if img.Src == "" {
			continue
		}
		out = append(out, model.Image{Src: img.Src, Alt: img.Alt, Origin: img.Origin, FallbackURLs: img.FallbackURLs})
		if len(out) == limit {
			break
		}
	}
	if len(out) == 0 {
		return nil, domain.ErrNoResults
	}
	return out, nil
}
