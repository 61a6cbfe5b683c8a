package conversation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"media-courier-bot/internal/domain"
)

var (
	reIndex        = regexp.MustCompile(`^\s*(\d+)\s*$`)
	reVideoChoice  = regexp.MustCompile(`(?i)^\s*(\d+)\s+(480|720|1080)p?\s*$`)
	reChannelPick  = regexp.MustCompile(`^\s*(\d+)(?:\s+(\d+))?\s*$`)
	reEpisodeRange = regexp.MustCompile(`^\s*(\d+)(?:\s*-\s*(\d+))?\s*$`)
)

// VideoQualities lists the heights accepted in a video selection.
var VideoQualities = []string{"480", "720", "1080"}

func AcceptAny(string) bool { return true }

func AcceptIndex(text string) bool { return reIndex.MatchString(text) }

func AcceptVideoChoice(text string) bool { return reVideoChoice.MatchString(text) }

func AcceptChannelChoice(text string) bool { return reChannelPick.MatchString(text) }

func AcceptEpisodeSelection(text string) bool { return reEpisodeRange.MatchString(text) }

// ParseIndex converts a 1-based reply into a 0-based index below n.
func ParseIndex(text string, n int) (int, error) {
	m := reIndex.FindStringSubmatch(text)
	if m == nil {
		return 0, fmt.Errorf("%q: %w", text, domain.ErrInvalidSelection)
	}
	return checkIndex(m[1], n)
}

// ParseVideoChoice reads "<n> <quality>" and returns the 0-based index and height.
func ParseVideoChoice(text string, n int) (int, string, error) {
	m := reVideoChoice.FindStringSubmatch(text)
	if m == nil {
		return 0, "", fmt.Errorf("%q: %w", text, domain.ErrUnsupportedQuality)
	}
	idx, err := checkIndex(m[1], n)
	if err != nil {
		return 0, "", err
	}
	return idx, m[2], nil
}

// ParseChannelChoice reads "<n>" or "<n> <count>". A missing count yields def;
// an explicit count is clamped to [1, max].
func ParseChannelChoice(text string, n, def, max int) (int, int, error) {
	m := reChannelPick.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, fmt.Errorf("%q: %w", text, domain.ErrInvalidSelection)
	}
	idx, err := checkIndex(m[1], n)
	if err != nil {
		return 0, 0, err
	}
	count := def
	if m[2] != "" {
		count, _ = strconv.Atoi(m[2])
		if count < 1 {
			count = 1
		}
		if count > max {
			count = max
		}
	}
	return idx, count, nil
}

// IsYes matches YES or Y, any case.
func IsYes(text string) bool {
	switch strings.ToUpper(strings.TrimSpace(text)) {
	case "YES", "Y":
		return true
	}
	return false
}

// IsNo matches NO or N, any case.
func IsNo(text string) bool {
	switch strings.ToUpper(strings.TrimSpace(text)) {
	case "NO", "N":
		return true
	}
	return false
}

func checkIndex(s string, n int) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 || v > n {
		return 0, fmt.Errorf("index %s of %d: %w", s, n, domain.ErrInvalidSelection)
	}
	return v - 1, nil
}
