//go:build !integration

package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"media-courier-bot/internal/domain"
	"media-courier-bot/internal/domain/model"
	"media-courier-bot/internal/domain/ports/adapter"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// fakeCommand re-executes the test binary as a stand-in for yt-dlp.
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
	switch os.Getenv("HELPER_MODE") {
	case "progress":
		fmt.Print("[download] Destination: clip.mp4\n")
		fmt.Print("[download]  10.0% of 50.00MiB at 1.00MiB/s ETA 00:45\r")
		fmt.Print("[download]  55.5% of 50.00MiB at 2.00MiB/s ETA 00:12\r")
		fmt.Fprint(os.Stderr, "WARNING: slow\n")
		fmt.Print("[download] 100% of 50.00MiB\n")
		os.Exit(0)
	case "hugeline":
		os.Stdout.Write(bytes.Repeat([]byte("x"), 2<<20))
		for i := 0; i < 4096; i++ {
			fmt.Print("[download]  50.0% of 1.00MiB\n")
		}
		os.Exit(0)
	case "exit3":
		fmt.Println("ERROR: unavailable")
		os.Exit(3)
	case "search":
		fmt.Print(`{"entries":[
			{"id":"a1","title":"First","url":"https://www.youtube.com/watch?v=a1","uploader":"Chan","duration":125,"thumbnails":[{"url":"s.jpg","height":90},{"url":"l.jpg","height":720}]},
			{"id":"b2","title":"Second","channel":"Other","duration":61.4},
			{"title":"no link"}
		]}`)
		os.Exit(0)
	case "args":
		fmt.Println(strings.Join(os.Args[4:], " "))
		os.Exit(0)
	}
	os.Exit(2)
}

func newFakeClient(mode string) *Client {
	c := NewClient(Config{}, newTestLogger())
	c.command = fakeCommand(mode)
	return c
}

func TestFetch_OversizedLineDoesNotStallChild(t *testing.T) {
	c := newFakeClient("hugeline")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := c.Fetch(ctx, adapter.FetchRequest{URL: "https://example.com/v"}, nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if ctx.Err() != nil {
		t.Fatal("Fetch only returned because the deadline killed the child")
	}
	if res.ExitCode != 0 {
		t.Errorf("exit code = %d", res.ExitCode)
	}
}

func TestFetch_StreamsCarriageReturnProgress(t *testing.T) {
	c := newFakeClient("progress")
	var lines []string
	res, err := c.Fetch(context.Background(), adapter.FetchRequest{URL: "https://example.com/v"}, func(l string) {
		lines = append(lines, l)
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.ExitCode != 0 {
		t.Fatalf("exit code = %d", res.ExitCode)
	}
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d: %q", len(lines), lines)
	}
	if !strings.Contains(lines[2], "55.5%") {
		t.Errorf("CR-delimited update not split: %q", lines[2])
	}
}

func TestFetch_NonZeroExitIsResult(t *testing.T) {
	c := newFakeClient("exit3")
	res, err := c.Fetch(context.Background(), adapter.FetchRequest{URL: "https://example.com/v"}, nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.ExitCode != 3 {
		t.Fatalf("exit code = %d, want 3", res.ExitCode)
	}
}

func TestFetch_MissingBinaryIsUnavailable(t *testing.T) {
	c := NewClient(Config{Binary: "definitely-not-a-real-downloader"}, newTestLogger())
	_, err := c.Fetch(context.Background(), adapter.FetchRequest{URL: "https://example.com/v"}, nil)
	if !errors.Is(err, domain.ErrDownloaderUnavailable) {
		t.Fatalf("err = %v, want ErrDownloaderUnavailable", err)
	}
}

func TestDownloadArgs(t *testing.T) {
	c := NewClient(Config{Retries: 4}, newTestLogger())

	video := strings.Join(c.downloadArgs(adapter.FetchRequest{
		URL: "https://v", Dir: "/tmp/s/1", Format: "bv*[height<=720]+ba/b[height<=720]", CookiesPath: "/c.txt",
	}), " ")
	for _, want := range []string{
		"--extractor-args generic:impersonate", "--no-mtime", "--retries 4", "--fragment-retries 4",
		"--retry-sleep 5", "-P /tmp/s/1", "-f bv*[height<=720]+ba/b[height<=720]", "--cookies /c.txt",
	} {
		if !strings.Contains(video, want) {
			t.Errorf("video args missing %q: %s", want, video)
		}
	}
	if !strings.HasSuffix(video, " https://v") {
		t.Errorf("url must be last: %s", video)
	}

	audio := strings.Join(c.downloadArgs(adapter.FetchRequest{URL: "https://a", AudioOnly: true}), " ")
	if !strings.Contains(audio, "-x --audio-format mp3") || strings.Contains(audio, "-f ") {
		t.Errorf("audio args: %s", audio)
	}
}

func TestSearchVideos_ParsesFlatPlaylist(t *testing.T) {
	c := newFakeClient("search")
	got, err := c.SearchVideos(context.Background(), "lofi", 5)
	if err != nil {
		t.Fatalf("SearchVideos: %v", err)
	}
	want := []model.Video{
		{ID: "a1", Title: "First", URL: "https://www.youtube.com/watch?v=a1", Uploader: "Chan", DurationSec: 125, Thumbnail: "l.jpg"},
		{ID: "b2", Title: "Second", URL: "https://www.youtube.com/watch?v=b2", Uploader: "Other", DurationSec: 61},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d videos: %+v", len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("video %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSearch_PassesTargets(t *testing.T) {
	c := newFakeClient("args")
	out, err := c.output(context.Background(), "--flat-playlist", "ytsearch3:cats")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(out)) != "--flat-playlist ytsearch3:cats" {
		t.Errorf("args = %q", out)
	}
	if _, err := c.SearchTracks(context.Background(), "  ", 3); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("blank query err = %v", err)
	}
}

func TestSearchChannels_DirectHandle(t *testing.T) {
	c := newFakeClient("unused")
	got, err := c.SearchChannels(context.Background(), "@golang", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].URL != "https://www.youtube.com/@golang" {
		t.Fatalf("got %+v", got)
	}
}
