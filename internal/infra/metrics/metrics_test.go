//go:build !integration

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersByLabel(t *testing.T) {
	IncJob(" Video ", "completed")
	IncJob("video", "COMPLETED")
	if got := testutil.ToFloat64(jobsTotal.WithLabelValues("video", "completed")); got != 2 {
		t.Errorf("expected normalized labels to share a series, got %v", got)
	}

	IncProgressUpdate("sent", true)
	if got := testutil.ToFloat64(progressUpdatesTotal.WithLabelValues("sent", "true")); got != 1 {
		t.Errorf("expected 1 forced sent update, got %v", got)
	}
}

func TestMustRegisterIsIdempotent(t *testing.T) {
	MustRegister()
	MustRegister()
}
