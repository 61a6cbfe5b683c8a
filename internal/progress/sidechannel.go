package progress

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"media-courier-bot/internal/domain/model"
)

// SideChannel reads the flat session->progress map file that out-of-process
// downloaders write. Missing or malformed files mean "no progress yet".
type SideChannel struct {
	path string
}

func NewSideChannel(path string) *SideChannel {
	return &SideChannel{path: path}
}

type sideEntry struct {
	Status         string          `json:"status"`
	Progress       json.RawMessage `json:"progress"`
	Filename       string          `json:"filename"`
	Error          string          `json:"error"`
	TotalSize      string          `json:"total_size"`
	DownloadedSize string          `json:"downloaded_size"`
	Speed          string          `json:"speed"`
	ETA            string          `json:"eta"`
}

// Lookup returns the sample recorded for sessionID.
func (s *SideChannel) Lookup(sessionID string) (model.ProgressSample, bool) {
	if s == nil || s.path == "" {
		return model.ProgressSample{}, false
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		return model.ProgressSample{}, false
	}
	var all map[string]sideEntry
	if err := json.Unmarshal(b, &all); err != nil {
		return model.ProgressSample{}, false
	}
	e, ok := all[sessionID]
	if !ok {
		return model.ProgressSample{}, false
	}
	pct, ok := rawPercent(e.Progress)
	if !ok {
		return model.ProgressSample{}, false
	}
	status := e.Status
	if status == "" || status == "starting" || status == "initializing" {
		status = model.StatusDownloading
	}
	return model.ProgressSample{
		Percent:    pct,
		Total:      e.TotalSize,
		Downloaded: e.DownloadedSize,
		Speed:      e.Speed,
		ETA:        e.ETA,
		Status:     status,
	}, true
}

// rawPercent accepts both numeric and quoted percentages.
func rawPercent(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, true
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
