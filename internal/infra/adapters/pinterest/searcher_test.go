//go:build !integration

package pinterest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"media-courier-bot/internal/domain"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func fakeCommand(mode string) func(ctx context.Context, name string, args ...string) *exec.Cmd {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "HELPER_MODE="+mode)
		return cmd
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args[4:]
	switch os.Getenv("HELPER_MODE") {
	case "ok":
		fmt.Printf(`{"success":true,"images":[{"src":"https://i/1.jpg","alt":"%s","fallback_urls":["https://i/1b.jpg"]},{"src":""},{"src":"https://i/2.jpg"},{"src":"https://i/3.jpg"}],"requested_count":%s}`,
			strings.Join(args, "|"), args[len(args)-1])
		os.Exit(0)
	case "fail":
		fmt.Print(`{"success":false,"error":"cookies missing","images":[]}`)
		os.Exit(1)
	case "garbage":
		fmt.Print("Traceback (most recent call last)")
		os.Exit(1)
	}
	os.Exit(2)
}

func newFakeSearcher(t *testing.T, mode string) *Searcher {
	t.Helper()
	s, err := NewSearcher("python3 pinterest_api.py --cookies c.json", 0, newTestLogger())
	if err != nil {
		t.Fatal(err)
	}
	s.command = fakeCommand(mode)
	return s
}

func TestSearchImages_ParsesAndLimits(t *testing.T) {
	s := newFakeSearcher(t, "ok")
	got, err := s.SearchImages(context.Background(), "cats", 2)
	if err != nil {
		t.Fatalf("SearchImages: %v", err)
	}
	if len(got) != 2 || got[0].Src != "https://i/1.jpg" || got[1].Src != "https://i/2.jpg" {
		t.Fatalf("got %+v", got)
	}
	if got[0].Alt != "pinterest_api.py|--cookies|c.json|cats|2" {
		t.Errorf("script args = %q", got[0].Alt)
	}
	if len(got[0].FallbackURLs) != 1 {
		t.Errorf("fallbacks = %v", got[0].FallbackURLs)
	}
}

func TestSearchImages_Failures(t *testing.T) {
	if _, err := newFakeSearcher(t, "fail").SearchImages(context.Background(), "cats", 5); err == nil || !strings.Contains(err.Error(), "cookies missing") {
		t.Errorf("script failure err = %v", err)
	}
	if _, err := newFakeSearcher(t, "garbage").SearchImages(context.Background(), "cats", 5); err == nil {
		t.Error("expected error for malformed output")
	}
	if _, err := newFakeSearcher(t, "ok").SearchImages(context.Background(), "", 5); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("blank query err = %v", err)
	}
}

func TestClampCount(t *testing.T) {
	for in, want := range map[int]int{-3: 1, 0: 1, 1: 1, 10: 10, 50: 50, 51: 50} {
		if got := ClampCount(in); got != want {
			t.Errorf("ClampCount(%d) = %d, want %d", in, got, want)
		}
	}
}
