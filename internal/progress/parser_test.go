//go:build !integration

package progress

import (
	"testing"

	"media-courier-bot/internal/domain/model"
)

func TestParseDownloadLine(t *testing.T) {
	s, ok := Parse("[download]  45.2% of 10.00MiB at 1.50MiB/s ETA 00:04", model.ProgressSample{})
	if !ok {
		t.Fatal("expected line to be accepted")
	}
	if s.Percent != 45.2 {
		t.Errorf("percent: got %v", s.Percent)
	}
	if s.Total != "10.00MiB" || s.Speed != "1.50MiB/s" || s.ETA != "00:04" {
		t.Errorf("tokens: %+v", s)
	}
	if s.Downloaded == "" {
		t.Error("expected downloaded size to be derived from total")
	}
	if s.Status != model.StatusDownloading {
		t.Errorf("status: %s", s.Status)
	}
}

func TestParseApproximateTotal(t *testing.T) {
	s, ok := Parse("[download]  12.0% of ~ 100.00MiB at  2.00MiB/s ETA 00:44 (frag 5/40)", model.ProgressSample{})
	if !ok {
		t.Fatal("expected hls progress line to be accepted")
	}
	if s.Total != "100.00MiB" || s.Speed != "2.00MiB/s" {
		t.Errorf("tokens: %+v", s)
	}
}

func TestParseRejectsNoise(t *testing.T) {
	last := model.ProgressSample{Percent: 10, Total: "5.00MiB", Status: model.StatusDownloading}
	lines := []string{
		"",
		"[youtube] dQw4w9WgXcQ: Downloading webpage",
		"[download] Destination: clip.f137.mp4",
		"[download] Skipping fragment 7 (45.0%)",
		"[hlsnative] Retrying fragment 3 (50%)",
		"[info] 251 webm audio only 60% ",
		"[download] 250.0% weird",
	}
	for _, line := range lines {
		if _, ok := Parse(line, last); ok {
			t.Errorf("expected %q to be rejected", line)
		}
	}
}

func TestParseMonotonicityGuard(t *testing.T) {
	last := model.ProgressSample{Percent: 50, Status: model.StatusDownloading}

	if _, ok := Parse("[download]  40.0% of 10.00MiB", last); ok {
		t.Error("regression must be rejected even with a total size")
	}
	if _, ok := Parse("[download]  50.0%", last); ok {
		t.Error("equal percentage without total must be rejected")
	}
	if _, ok := Parse("[download]  50.0% of 10.00MiB at 2.00MiB/s", last); !ok {
		t.Error("equal percentage with total should be accepted")
	}
	if s, ok := Parse("[download]  50.5%", last); !ok || s.Percent != 50.5 {
		t.Errorf("increase should be accepted, got %+v %v", s, ok)
	}
}

func TestParsePostProcessing(t *testing.T) {
	last := model.ProgressSample{Percent: 60, Total: "10.00MiB", Status: model.StatusDownloading}
	s, ok := Parse(`[Merger] Merging formats into "clip.mkv"`, last)
	if !ok {
		t.Fatal("expected converting sample")
	}
	if s.Percent != ConvertingPercent || s.Status != model.StatusConverting || s.Total != "10.00MiB" {
		t.Errorf("unexpected sample: %+v", s)
	}

	high := model.ProgressSample{Percent: 99.1, Status: model.StatusDownloading}
	if s, _ := Parse("[ExtractAudio] Destination: song.mp3", high); s.Percent != 99.1 {
		t.Errorf("converting must not lower percentage, got %v", s.Percent)
	}

	if _, ok := Parse("[ffmpeg] Fixing container", s); ok {
		t.Error("second marker while converting should be a no-op")
	}
}

func TestParseSequenceIsNonDecreasing(t *testing.T) {
	lines := []string{
		"[download]   0.0% of 50.00MiB at 100.00KiB/s ETA 08:30",
		"[download]   5.3% of 50.00MiB at 1.00MiB/s ETA 00:47",
		"[download]  20.1% of 50.00MiB at 2.00MiB/s ETA 00:20",
		"[download] Destination: clip.f140.m4a",
		"[download]   1.0% of 3.00MiB at 500.00KiB/s ETA 00:05",
		"[download]  60.0% of 3.00MiB at 1.00MiB/s ETA 00:01",
		"[download]  15.0% of 50.00MiB",
		"[download] 100% of 3.00MiB in 00:02",
		`[Merger] Merging formats into "clip.mp4"`,
		"[download]  99.0%",
	}
	var last model.ProgressSample
	prev := -1.0
	for _, line := range lines {
		s, ok := Parse(line, last)
		if !ok {
			continue
		}
		if s.Percent < prev {
			t.Fatalf("percentage regressed from %v to %v on %q", prev, s.Percent, line)
		}
		prev = s.Percent
		last = s
	}
	if prev != 100 {
		t.Errorf("expected to finish at 100, got %v", prev)
	}
}
