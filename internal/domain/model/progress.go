package model

import (
	"strconv"
	"time"
)

const (
	StatusDownloading = "downloading"
	StatusConverting  = "converting"
	StatusCompleted   = "completed"
	StatusError       = "error"
)

// ProgressSample is one structured reading of downloader output.
type ProgressSample struct {
	Percent    float64 `json:"percent"`
	Total      string  `json:"total,omitempty"`
	Downloaded string  `json:"downloaded,omitempty"`
	Speed      string  `json:"speed,omitempty"`
	ETA        string  `json:"eta,omitempty"`
	Status     string  `json:"status,omitempty"`
}

// DownloadRecord is one finished item kept for /history.
type DownloadRecord struct {
	ID             string    `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	SessionID      string    `json:"session_id"`
	Kind           string    `json:"kind"`
	Title          string    `json:"title"`
	Source         string    `json:"source"`
	Success        bool      `json:"success"`
	Reason         string    `json:"reason,omitempty"`
	SizeBytes      int64     `json:"size_bytes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func fmtInt(n int) string { return strconv.Itoa(n) }

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
