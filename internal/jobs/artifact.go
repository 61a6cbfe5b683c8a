package jobs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"media-courier-bot/internal/domain"
)

// Suffixes of files the downloader leaves behind while still writing.
var partialSuffixes = []string{".part", ".ytdl", ".temp", ".tmp"}

// LocateArtifact finds the file a finished download produced in dir. The primary
// name wins when present; otherwise the most recently modified file with one of
// exts (any extension when exts is empty) is returned.
func LocateArtifact(dir, primary string, exts []string) (string, error) {
	if primary != "" {
		p := filepath.Join(dir, primary)
		if st, err := os.Stat(p); err == nil && st.Mode().IsRegular() {
			return p, nil
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("scan %s: %w", dir, domain.ErrArtifactMissing)
	}
	var (
		best    string
		bestMod time.Time
	)
	for _, e := range entries {
		if !e.Type().IsRegular() || isPartial(e.Name()) || !hasExt(e.Name(), exts) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if best == "" || info.ModTime().After(bestMod) {
			best = filepath.Join(dir, e.Name())
			bestMod = info.ModTime()
		}
	}
	if best == "" {
		return "", domain.ErrArtifactMissing
	}
	return best, nil
}

func isPartial(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range partialSuffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

func hasExt(name string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == "."+strings.TrimPrefix(strings.ToLower(e), ".") {
			return true
		}
	}
	return false
}

// CopyArtifact copies src into dstDir and leaves src in place. The copy is
// written under a temporary name and renamed so readers never see half a file.
// An existing file of the same name is kept; the copy gets a " (N)" suffix.
func CopyArtifact(src, dstDir string) (string, error) {
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	dst, err := reserveName(dstDir, filepath.Base(src))
	if err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(dstDir, ".incoming-*")
	if err != nil {
		os.Remove(dst)
		return "", err
	}
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		os.Remove(dst)
		return "", fmt.Errorf("copy artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		os.Remove(dst)
		return "", err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		os.Remove(dst)
		return "", err
	}
	return dst, nil
}

const maxNameAttempts = 1000

// reserveName claims a free file name in dir by creating an empty placeholder,
// so concurrent copies of equally named artifacts cannot collide.
func reserveName(dir, name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; i <= maxNameAttempts; i++ {
		candidate := name
		if i > 1 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		p := filepath.Join(dir, candidate)
		f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			f.Close()
			return p, nil
		}
		if !os.IsExist(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("no free name for %s in %s", name, dir)
}

// ReleaseArtifact removes a delivered temporary artifact and prunes its now
// empty item and session directories.
func ReleaseArtifact(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	itemDir := filepath.Dir(path)
	if os.Remove(itemDir) == nil {
		_ = os.Remove(filepath.Dir(itemDir))
	}
	return nil
}
