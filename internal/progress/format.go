package progress

import (
	"fmt"
	"strings"
	"time"

	"media-courier-bot/internal/domain/model"
)

const barWidth = 10

// Snapshot is everything the reporter needs to render one status message.
type Snapshot struct {
	Title     string
	Label     string
	Total     int
	Completed int
	Failed    int
	Sample    model.ProgressSample
}

// FormatElapsed renders d as mm:ss; minutes keep counting past 59.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", sec/60, sec%60)
}

func renderBar(pct float64) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int(pct / 100 * barWidth)
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

func renderStart(title string, total int) string {
	if title == "" {
		return fmt.Sprintf("⏳ Starting %d item(s)...", total)
	}
	return fmt.Sprintf("⏳ %s\nStarting %d item(s)...", title, total)
}

func renderUpdate(s Snapshot) string {
	var b strings.Builder
	if s.Title != "" {
		b.WriteString("⏬ " + s.Title + "\n")
	}
	if s.Label != "" {
		b.WriteString(s.Label + "\n")
	}
	status := "Downloading"
	if s.Sample.Status == model.StatusConverting {
		status = "Converting"
	}
	fmt.Fprintf(&b, "%s %s %.1f%%\n", status, renderBar(s.Sample.Percent), s.Sample.Percent)

	var details []string
	switch {
	case s.Sample.Downloaded != "" && s.Sample.Total != "":
		details = append(details, s.Sample.Downloaded+" / "+s.Sample.Total)
	case s.Sample.Total != "":
		details = append(details, s.Sample.Total)
	}
	if s.Sample.Speed != "" {
		details = append(details, s.Sample.Speed)
	}
	if s.Sample.ETA != "" {
		details = append(details, "ETA "+s.Sample.ETA)
	}
	if len(details) > 0 {
		b.WriteString(strings.Join(details, " • ") + "\n")
	}
	if s.Total > 1 {
		fmt.Fprintf(&b, "Items: %d/%d done", s.Completed, s.Total)
		if s.Failed > 0 {
			fmt.Fprintf(&b, ", %d failed", s.Failed)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderSummary(title string, completed, failed int, elapsed time.Duration) string {
	icon := "✅"
	if failed > 0 && completed == 0 {
		icon = "❌"
	} else if failed > 0 {
		icon = "⚠️"
	}
	head := icon + " Finished"
	if title != "" {
		head += ": " + title
	}
	return fmt.Sprintf("%s\nCompleted: %d • Failed: %d • Time: %s", head, completed, failed, FormatElapsed(elapsed))
}
