// Package progress turns downloader output into user-visible progress messages.
package progress

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"media-courier-bot/internal/domain/model"
)

// ConvertingPercent is reported while the downloader post-processes a finished download.
const ConvertingPercent = 95.0

var (
	percentRe    = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)
	totalRe      = regexp.MustCompile(`of\s+~?\s*([0-9.]+\s*[KMGT]?i?B)\b`)
	downloadedRe = regexp.MustCompile(`([0-9.]+\s*[KMGT]?i?B)\s+of\b`)
	speedRe      = regexp.MustCompile(`at\s+~?\s*([0-9.]+\s*[KMGT]?i?B/s)`)
	etaRe        = regexp.MustCompile(`ETA\s+([0-9:]+)`)
	fragmentRe   = regexp.MustCompile(`(?i)\bfragments?\b`)
	audioOnlyRe  = regexp.MustCompile(`(?i)\baudio[ -]only\b`)
)

// Post-processor prefixes the downloader prints after the transfer finished.
var postProcessMarkers = []string{
	"[Merger]",
	"[ExtractAudio]",
	"[VideoConvertor]",
	"[VideoRemuxer]",
	"[FixupM3u8]",
	"[FixupM4a]",
	"[FixupStretched]",
	"[ffmpeg]",
}

// Parse reads one raw output line against the last accepted sample of the same job.
// It returns false when the line carries no usable progress. Accepted percentages
// never fall below last.Percent.
func Parse(line string, last model.ProgressSample) (model.ProgressSample, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return model.ProgressSample{}, false
	}

	if isPostProcessing(line) {
		if last.Status == model.StatusConverting {
			return model.ProgressSample{}, false
		}
		s := last
		s.Percent = math.Max(ConvertingPercent, last.Percent)
		s.Speed = ""
		s.ETA = ""
		s.Status = model.StatusConverting
		return s, true
	}

	if fragmentRe.MatchString(line) || audioOnlyRe.MatchString(line) {
		return model.ProgressSample{}, false
	}

	m := percentRe.FindStringSubmatch(line)
	if m == nil {
		return model.ProgressSample{}, false
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil || pct > 100 {
		return model.ProgressSample{}, false
	}

	s := model.ProgressSample{
		Percent: pct,
		Total:   firstGroup(totalRe, line),
		Speed:   firstGroup(speedRe, line),
		ETA:     firstGroup(etaRe, line),
		Status:  model.StatusDownloading,
	}

	if s.Percent < last.Percent {
		return model.ProgressSample{}, false
	}
	if s.Percent == last.Percent && s.Total == "" {
		return model.ProgressSample{}, false
	}

	s.Downloaded = firstGroup(downloadedRe, line)
	if s.Downloaded == "" && s.Total != "" {
		s.Downloaded = estimateDownloaded(s.Total, s.Percent)
	}
	return s, true
}

func isPostProcessing(line string) bool {
	for _, m := range postProcessMarkers {
		if strings.HasPrefix(line, m) {
			return true
		}
	}
	return false
}

func firstGroup(re *regexp.Regexp, line string) string {
	if m := re.FindStringSubmatch(line); m != nil {
		return strings.ReplaceAll(m[1], " ", "")
	}
	return ""
}

// estimateDownloaded derives the transferred byte count from total and percentage.
func estimateDownloaded(total string, pct float64) string {
	n, err := humanize.ParseBytes(total)
	if err != nil || n == 0 {
		return ""
	}
	return humanize.IBytes(uint64(float64(n) * pct / 100))
}
