package conversation

import (
	"sort"
	"strings"

	"media-courier-bot/internal/domain/model"
)

var qualityRank = map[string]int{
	"2160p": 0,
	"1440p": 1,
	"1080p": 2,
	"720p":  3,
	"480p":  4,
	"360p":  5,
	"240p":  6,
	"144p":  7,
}

func rankOf(label string) int {
	l := strings.ToLower(strings.TrimSpace(label))
	for key, r := range qualityRank {
		if strings.Contains(l, key) {
			return r
		}
	}
	return len(qualityRank)
}

// SortQualities returns a copy ordered highest resolution first, whatever
// order the source listed them in. Unknown labels keep their relative order at
// the end.
func SortQualities(qs []model.Quality) []model.Quality {
	out := make([]model.Quality, len(qs))
	copy(out, qs)
	sort.SliceStable(out, func(i, j int) bool { return rankOf(out[i].Label) < rankOf(out[j].Label) })
	return out
}

// FindQuality picks the option whose label matches want, ignoring case and a
// trailing "p".
func FindQuality(qs []model.Quality, want string) (model.Quality, bool) {
	w := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(want)), "p")
	for _, q := range qs {
		if strings.TrimSuffix(strings.ToLower(strings.TrimSpace(q.Label)), "p") == w {
			return q, true
		}
	}
	return model.Quality{}, false
}
