package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"media-courier-bot/internal/domain"
	"media-courier-bot/internal/domain/ports/repository"
)

var _ repository.CredentialStore = (*CookieFile)(nil)

// CookieFile stores the downloader's Netscape cookie jar at a fixed path.
type CookieFile struct {
	path string
}

func NewCookieFile(path string) *CookieFile {
	return &CookieFile{path: path}
}

// SaveCookies replaces the jar atomically with owner-only permissions.
func (c *CookieFile) SaveCookies(_ context.Context, text string) error {
	if c.path == "" {
		return errors.New("cookies path is not configured")
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("save cookies: %w", domain.ErrInvalidCredential)
	}
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create cookies dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".cookies-*")
	if err != nil {
		return err
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write cookies: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// CookiesPath reports the jar path when a non-empty jar exists.
func (c *CookieFile) CookiesPath() (string, bool) {
	if c.path == "" {
		return "", false
	}
	info, err := os.Stat(c.path)
	if err != nil || info.Size() == 0 {
		return "", false
	}
	return c.path, true
}
