//go:build !integration

package conversation

import (
	"errors"
	"reflect"
	"testing"

	"media-courier-bot/internal/domain"
	"media-courier-bot/internal/domain/model"
)

func episodes(nums ...int) []model.Episode {
	out := make([]model.Episode, len(nums))
	for i, n := range nums {
		out[i] = model.Episode{Number: n}
	}
	return out
}

func numbers(eps []model.Episode) []int {
	out := make([]int, len(eps))
	for i, e := range eps {
		out[i] = e.Number
	}
	return out
}

func TestResolveEpisodes(t *testing.T) {
	available := episodes(1, 2, 3, 5, 8)

	tests := []struct {
		name    string
		text    string
		want    []int
		wantErr error
	}{
		{"range intersects", "2-6", []int{2, 3, 5}, nil},
		{"spaces", " 2 - 6 ", []int{2, 3, 5}, nil},
		{"single", "8", []int{8}, nil},
		{"out of range", "10-20", nil, domain.ErrEmptyRange},
		{"missing single", "4", nil, domain.ErrEmptyRange},
		{"reversed", "6-2", nil, domain.ErrInvalidSelection},
		{"garbage", "two", nil, domain.ErrInvalidSelection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveEpisodes(available, tt.text)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("want %v, got %v (%v)", tt.wantErr, err, got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(numbers(got), tt.want) {
				t.Errorf("got %v want %v", numbers(got), tt.want)
			}
		})
	}
}

func TestFormatEpisodeSpan(t *testing.T) {
	if s := FormatEpisodeSpan(episodes(4)); s != "4" {
		t.Errorf("single: %q", s)
	}
	if s := FormatEpisodeSpan(episodes(2, 3, 5)); s != "2-5" {
		t.Errorf("range: %q", s)
	}
}

func TestSortQualities(t *testing.T) {
	in := []model.Quality{{Label: "480p"}, {Label: "Other"}, {Label: "1080p"}, {Label: "720p"}, {Label: "2160p"}}
	got := SortQualities(in)
	var labels []string
	for _, q := range got {
		labels = append(labels, q.Label)
	}
	want := []string{"2160p", "1080p", "720p", "480p", "Other"}
	if !reflect.DeepEqual(labels, want) {
		t.Errorf("got %v want %v", labels, want)
	}
	if in[0].Label != "480p" {
		t.Error("input must not be reordered")
	}
}

func TestFindQuality(t *testing.T) {
	qs := []model.Quality{{Label: "720p", URL: "a"}, {Label: "1080P", URL: "b"}}
	if q, ok := FindQuality(qs, "1080"); !ok || q.URL != "b" {
		t.Errorf("got %+v %v", q, ok)
	}
	if _, ok := FindQuality(qs, "480p"); ok {
		t.Error("480p is not offered")
	}
}

func TestParseVideoChoice(t *testing.T) {
	idx, q, err := ParseVideoChoice("2 720", 3)
	if err != nil || idx != 1 || q != "720" {
		t.Fatalf("got %d %q %v", idx, q, err)
	}
	if _, _, err := ParseVideoChoice("4 720", 3); !errors.Is(err, domain.ErrInvalidSelection) {
		t.Errorf("out of range: %v", err)
	}
	if _, _, err := ParseVideoChoice("1 360", 3); !errors.Is(err, domain.ErrUnsupportedQuality) {
		t.Errorf("quality: %v", err)
	}
	if _, q, _ := ParseVideoChoice("1 1080p", 3); q != "1080" {
		t.Errorf("suffix: %q", q)
	}
}

func TestParseChannelChoice(t *testing.T) {
	idx, n, err := ParseChannelChoice("1", 2, 5, 20)
	if err != nil || idx != 0 || n != 5 {
		t.Fatalf("default count: %d %d %v", idx, n, err)
	}
	idx, n, _ = ParseChannelChoice("2 50", 2, 5, 20)
	if idx != 1 || n != 20 {
		t.Errorf("clamped: %d %d", idx, n)
	}
	if _, _, err := ParseChannelChoice("0", 2, 5, 20); !errors.Is(err, domain.ErrInvalidSelection) {
		t.Errorf("zero index: %v", err)
	}
}

func TestYesNo(t *testing.T) {
	for _, s := range []string{"YES", "yes", " y ", "Y"} {
		if !IsYes(s) || IsNo(s) {
			t.Errorf("%q should be yes", s)
		}
	}
	for _, s := range []string{"no", "N"} {
		if !IsNo(s) || IsYes(s) {
			t.Errorf("%q should be no", s)
		}
	}
	if IsYes("yeah") || IsNo("nope") {
		t.Error("loose answers must not match")
	}
}
