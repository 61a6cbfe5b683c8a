// Package storage keeps delivered artifacts and downloader credentials on local disk.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"media-courier-bot/internal/domain"
	"media-courier-bot/internal/domain/model"
	"media-courier-bot/internal/domain/ports/repository"
)

var _ repository.FileStore = (*LocalFileStore)(nil)

// LocalFileStore lists and deletes the regular files of one flat directory.
type LocalFileStore struct {
	dir    string
	logger *zerolog.Logger
}

func NewLocalFileStore(dir string, logger *zerolog.Logger) (*LocalFileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", dir, err)
	}
	return &LocalFileStore{dir: dir, logger: logger}, nil
}

func (s *LocalFileStore) Dir() string { return s.dir }

// List returns visible files, newest first.
func (s *LocalFileStore) List(_ context.Context) ([]model.StoredFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.dir, err)
	}
	out := make([]model.StoredFile, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			s.logger.Debug().Err(err).Str("name", e.Name()).Msg("stat stored file")
			continue
		}
		out = append(out, model.StoredFile{
			Name:    e.Name(),
			Path:    filepath.Join(s.dir, e.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ModTime.Equal(out[j].ModTime) {
			return out[i].Name < out[j].Name
		}
		return out[i].ModTime.After(out[j].ModTime)
	})
	return out, nil
}

// Delete removes name from the directory. Names that would escape it are rejected.
func (s *LocalFileStore) Delete(_ context.Context, name string) error {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("delete %q: %w", name, domain.ErrInvalidArgument)
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete %q: %w", name, err)
	}
	s.logger.Info().Str("name", name).Msg("stored file deleted")
	return nil
}
