// Package ytdlp drives the yt-dlp binary for downloads and platform searches.
package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"media-courier-bot/internal/domain"
	"media-courier-bot/internal/domain/ports/adapter"
)

var _ adapter.Fetcher = (*Client)(nil)

type Config struct {
	Binary  string
	Retries int
}

// Client runs yt-dlp. The command hook is replaced in tests.
type Client struct {
	binary  string
	retries int
	logger  *zerolog.Logger
	command func(ctx context.Context, name string, args ...string) *exec.Cmd
}

func NewClient(cfg Config, logger *zerolog.Logger) *Client {
	if cfg.Binary == "" {
		cfg.Binary = "yt-dlp"
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	return &Client{binary: cfg.Binary, retries: cfg.Retries, logger: logger, command: exec.CommandContext}
}

// Available reports whether the binary resolves on PATH.
func (c *Client) Available() bool {
	_, err := exec.LookPath(c.binary)
	return err == nil
}

func (c *Client) downloadArgs(req adapter.FetchRequest) []string {
	retries := strconv.Itoa(c.retries)
	args := []string{
		"--newline",
		"--no-playlist",
		"--extractor-args", "generic:impersonate",
		"--no-mtime",
		"--retries", retries,
		"--fragment-retries", retries,
		"--retry-sleep", "5",
	}
	if req.Dir != "" {
		args = append(args, "-P", req.Dir)
	}
	if req.OutputTemplate != "" {
		args = append(args, "-o", req.OutputTemplate)
	}
	if req.AudioOnly {
		format := req.AudioFormat
		if format == "" {
			format = "mp3"
		}
		args = append(args, "-x", "--audio-format", format)
	} else if req.Format != "" {
		args = append(args, "-f", req.Format, "--merge-output-format", "mp4")
	}
	if req.CookiesPath != "" {
		args = append(args, "--cookies", req.CookiesPath)
	}
	return append(args, req.URL)
}

// Fetch streams stdout and stderr through onLine as one sequence. A non-zero
// exit is reported in the result, not as an error.
func (c *Client) Fetch(ctx context.Context, req adapter.FetchRequest, onLine func(line string)) (adapter.FetchResult, error) {
	if strings.TrimSpace(req.URL) == "" {
		return adapter.FetchResult{}, fmt.Errorf("fetch: %w", domain.ErrInvalidArgument)
	}
	cmd := c.command(ctx, c.binary, c.downloadArgs(req)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return adapter.FetchResult{}, fmt.Errorf("setup stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		c.logger.Error().Err(err).Str("binary", c.binary).Msg("could not start downloader")
		return adapter.FetchResult{}, fmt.Errorf("start %s: %v: %w", c.binary, err, domain.ErrDownloaderUnavailable)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(splitByNewlineOrCR)
	for scanner.Scan() {
		if onLine != nil {
			onLine(scanner.Text())
		}
	}
	if err := scanner.Err(); err != nil {
		c.logger.Debug().Err(err).Msg("downloader output scan stopped")
		// Keep draining so the child never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, stdout)
	}

	err = cmd.Wait()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return adapter.FetchResult{ExitCode: 0}, nil
	case errors.As(err, &exitErr):
		code := exitErr.ExitCode()
		if code < 0 {
			code = -1
		}
		return adapter.FetchResult{ExitCode: code}, nil
	default:
		return adapter.FetchResult{}, fmt.Errorf("wait %s: %w", c.binary, err)
	}
}

// output runs yt-dlp to completion and returns stdout.
func (c *Client) output(ctx context.Context, args ...string) ([]byte, error) {
	cmd := c.command(ctx, c.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("start %s: %v: %w", c.binary, err, domain.ErrDownloaderUnavailable)
		}
		return nil, fmt.Errorf("yt-dlp failed: %w: %s", err, lastLine(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, errors.New("yt-dlp returned empty output")
	}
	return stdout.Bytes(), nil
}

func splitByNewlineOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' || data[i] == '\r' {
			if i == 0 {
				return 1, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
