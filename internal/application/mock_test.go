//go:build !integration

package application

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"media-courier-bot/internal/conversation"
	"media-courier-bot/internal/dispatch"
	"media-courier-bot/internal/domain/model"
	"media-courier-bot/internal/domain/ports/adapter"
	"media-courier-bot/internal/jobs"
	"media-courier-bot/internal/progress"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// keyTranslator echoes the key, followed by any args, so tests can assert on
// which reply was chosen.
type keyTranslator struct{}

func (keyTranslator) T(key string, args ...interface{}) string {
	if len(args) == 0 {
		return key
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	return key + " " + strings.Join(parts, " ")
}

type sentMessage struct {
	Kind    string
	Conv    int64
	Text    string
	Path    string
	Deleted bool
}

// MockTransport records outbound calls.
type MockTransport struct {
	mu      sync.Mutex
	nextID  int
	Sent    []sentMessage
	SendErr error
}

func (m *MockTransport) add(kind string, conv int64, text, path string) (adapter.MessageHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil && kind != "text" {
		return adapter.MessageHandle{}, m.SendErr
	}
	m.nextID++
	m.Sent = append(m.Sent, sentMessage{Kind: kind, Conv: conv, Text: text, Path: path})
	return adapter.MessageHandle{ConversationID: conv, MessageID: m.nextID}, nil
}

func (m *MockTransport) SendText(ctx context.Context, conv int64, text string) (adapter.MessageHandle, error) {
	return m.add("text", conv, text, "")
}

func (m *MockTransport) SendImage(ctx context.Context, conv int64, img []byte, caption string) (adapter.MessageHandle, error) {
	return m.add("image", conv, caption, "")
}

func (m *MockTransport) SendDocument(ctx context.Context, conv int64, path, caption string) (adapter.MessageHandle, error) {
	return m.add("document", conv, caption, path)
}

func (m *MockTransport) SendAudio(ctx context.Context, conv int64, path, caption string) (adapter.MessageHandle, error) {
	return m.add("audio", conv, caption, path)
}

func (m *MockTransport) DeleteMessage(ctx context.Context, h adapter.MessageHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h.MessageID >= 1 && h.MessageID <= len(m.Sent) {
		m.Sent[h.MessageID-1].Deleted = true
	}
	return nil
}

func (m *MockTransport) SetPresence(context.Context, int64, adapter.Presence) error { return nil }

// texts returns the visible text replies in order.
func (m *MockTransport) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.Sent {
		if s.Kind == "text" && !s.Deleted {
			out = append(out, s.Text)
		}
	}
	return out
}

func (m *MockTransport) ofKind(kind string) []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentMessage
	for _, s := range m.Sent {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

func (m *MockTransport) lastText() string {
	t := m.texts()
	if len(t) == 0 {
		return ""
	}
	return t[len(t)-1]
}

// MockFetcher writes a small artifact into the request dir.
type MockFetcher struct {
	mu        sync.Mutex
	Requests  []adapter.FetchRequest
	FetchFunc func(ctx context.Context, req adapter.FetchRequest, onLine func(string)) (adapter.FetchResult, error)
}

func (f *MockFetcher) Fetch(ctx context.Context, req adapter.FetchRequest, onLine func(string)) (adapter.FetchResult, error) {
	f.mu.Lock()
	f.Requests = append(f.Requests, req)
	f.mu.Unlock()
	if f.FetchFunc != nil {
		return f.FetchFunc(ctx, req, onLine)
	}
	onLine("[download]  50.0% of 2.00MiB at 1.00MiB/s ETA 00:01")
	ext := "mp4"
	if req.AudioOnly {
		ext = req.AudioFormat
	}
	name := "clip." + ext
	if req.OutputTemplate != "" {
		name = strings.ReplaceAll(req.OutputTemplate, "%(ext)s", ext)
	}
	if err := os.WriteFile(filepath.Join(req.Dir, name), []byte("data"), 0o644); err != nil {
		return adapter.FetchResult{ExitCode: 1}, nil
	}
	return adapter.FetchResult{}, nil
}

type MockVideoSearcher struct {
	SearchFunc func(ctx context.Context, q string, limit int) ([]model.Video, error)
}

func (m *MockVideoSearcher) SearchVideos(ctx context.Context, q string, limit int) ([]model.Video, error) {
	return m.SearchFunc(ctx, q, limit)
}

type MockMusicSearcher struct {
	SearchFunc func(ctx context.Context, q string, limit int) ([]model.Track, error)
}

func (m *MockMusicSearcher) SearchTracks(ctx context.Context, q string, limit int) ([]model.Track, error) {
	return m.SearchFunc(ctx, q, limit)
}

type MockAnimeCatalog struct {
	SearchFunc    func(ctx context.Context, q string) ([]model.Anime, error)
	EpisodesFunc  func(ctx context.Context, a model.Anime) ([]model.Episode, error)
	QualitiesFunc func(ctx context.Context, ep model.Episode) ([]model.Quality, error)
}

func (m *MockAnimeCatalog) Search(ctx context.Context, q string) ([]model.Anime, error) {
	return m.SearchFunc(ctx, q)
}

func (m *MockAnimeCatalog) Episodes(ctx context.Context, a model.Anime) ([]model.Episode, error) {
	return m.EpisodesFunc(ctx, a)
}

func (m *MockAnimeCatalog) Qualities(ctx context.Context, ep model.Episode) ([]model.Quality, error) {
	return m.QualitiesFunc(ctx, ep)
}

type MockFileStore struct {
	mu      sync.Mutex
	Files   []model.StoredFile
	Deleted []string
}

func (m *MockFileStore) List(context.Context) ([]model.StoredFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.StoredFile(nil), m.Files...), nil
}

func (m *MockFileStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, name)
	return nil
}

func (m *MockFileStore) Dir() string { return "" }

type MockCookieStore struct {
	Saved string
}

func (m *MockCookieStore) SaveCookies(_ context.Context, text string) error {
	m.Saved = text
	return nil
}

func (m *MockCookieStore) CookiesPath() (string, bool) {
	if m.Saved == "" {
		return "", false
	}
	return "/tmp/cookies.txt", true
}

type MockHistory struct {
	mu      sync.Mutex
	Records []*model.DownloadRecord
}

func (m *MockHistory) Record(_ context.Context, rec *model.DownloadRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, rec)
	return nil
}

func (m *MockHistory) ListRecent(_ context.Context, conv int64, limit int) ([]*model.DownloadRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.DownloadRecord
	for _, r := range m.Records {
		if r.ConversationID == conv {
			out = append(out, r)
		}
	}
	return out, nil
}

type MockLimiter struct {
	Allowed bool
	Keys    []string
}

func (m *MockLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	m.Keys = append(m.Keys, key)
	return m.Allowed, nil
}

// testBot bundles a facade with its fakes.
type testBot struct {
	*BotFacade
	transport *MockTransport
	fetcher   *MockFetcher
	store     *conversation.MemoryStore
	registry  *jobs.Registry
	history   *MockHistory
}

func newTestBot(t *testing.T, deps Deps, opts Options) *testBot {
	t.Helper()
	logger := newTestLogger()
	tr := &MockTransport{}
	fetcher := &MockFetcher{}
	store := conversation.NewMemoryStore(0)
	reg := jobs.NewRegistry()
	hist := &MockHistory{}

	reporters := func(conv int64) jobs.Reporter {
		return progress.NewReporter(tr, conv,
			progress.WithSleep(func(context.Context, time.Duration) {}),
			progress.WithLogger(logger))
	}
	deps.Transport = tr
	deps.States = conversation.NewMachine(store, logger)
	deps.Registry = reg
	deps.Dispatcher = dispatch.NewDispatcher(tr, nil, dispatch.Config{SendDelay: 0}, logger)
	deps.Supervisor = jobs.NewSupervisor(fetcher, reg, reporters, jobs.SupervisorConfig{WorkDir: t.TempDir()}, logger)
	if deps.History == nil {
		deps.History = hist
	}
	deps.Translator = keyTranslator{}

	b, err := NewBotFacade(deps, opts, logger)
	if err != nil {
		t.Fatalf("NewBotFacade: %v", err)
	}
	return &testBot{BotFacade: b, transport: tr, fetcher: fetcher, store: store, registry: reg, history: hist}
}

func (tb *testBot) send(t *testing.T, conv int64, text string) {
	t.Helper()
	_ = tb.HandleMessage(context.Background(), Inbound{ConversationID: conv, UserID: conv, Text: text})
}

func (tb *testBot) state(t *testing.T, conv int64) (model.ConversationState, bool) {
	t.Helper()
	e, ok, err := tb.store.Get(context.Background(), conv)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	return e.State, ok
}
