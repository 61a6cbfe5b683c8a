package conversation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"media-courier-bot/internal/domain"
	"media-courier-bot/internal/domain/model"
)

// ParseEpisodeSelection reads "n" or "a-b". A single number is the range [n, n].
func ParseEpisodeSelection(text string) (int, int, error) {
	m := reEpisodeRange.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, fmt.Errorf("%q: %w", text, domain.ErrInvalidSelection)
	}
	from, _ := strconv.Atoi(m[1])
	to := from
	if m[2] != "" {
		to, _ = strconv.Atoi(m[2])
	}
	if to < from {
		return 0, 0, fmt.Errorf("range %d-%d: %w", from, to, domain.ErrInvalidSelection)
	}
	return from, to, nil
}

// ResolveEpisodes keeps the available episodes whose number lies in the
// requested range, ordered by number. An empty result is an error.
func ResolveEpisodes(available []model.Episode, text string) ([]model.Episode, error) {
	from, to, err := ParseEpisodeSelection(text)
	if err != nil {
		return nil, err
	}
	var out []model.Episode
	for _, ep := range available {
		if ep.Number >= from && ep.Number <= to {
			out = append(out, ep)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("range %d-%d: %w", from, to, domain.ErrEmptyRange)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// FormatEpisodeSpan renders the chosen episodes as "n" or "a-b".
func FormatEpisodeSpan(eps []model.Episode) string {
	switch len(eps) {
	case 0:
		return ""
	case 1:
		return strconv.Itoa(eps[0].Number)
	}
	var b strings.Builder
	b.WriteString(strconv.Itoa(eps[0].Number))
	b.WriteByte('-')
	b.WriteString(strconv.Itoa(eps[len(eps)-1].Number))
	return b.String()
}
