//go:build !integration

package progress

import (
	"context"
	"errors"
	"sync"
	"time"

	"media-courier-bot/internal/domain/ports/adapter"
)

// fakeTransport records outbound calls and tracks which messages are still visible.
type fakeTransport struct {
	mu      sync.Mutex
	nextID  int
	texts   []string
	deleted []int
	visible map[int]string
	sendErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{visible: map[int]string{}}
}

func (f *fakeTransport) SendText(ctx context.Context, conv int64, text string) (adapter.MessageHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return adapter.MessageHandle{}, f.sendErr
	}
	f.nextID++
	f.texts = append(f.texts, text)
	f.visible[f.nextID] = text
	return adapter.MessageHandle{ConversationID: conv, MessageID: f.nextID}, nil
}

func (f *fakeTransport) SendImage(ctx context.Context, conv int64, img []byte, caption string) (adapter.MessageHandle, error) {
	return f.SendText(ctx, conv, caption)
}

func (f *fakeTransport) SendDocument(ctx context.Context, conv int64, path, caption string) (adapter.MessageHandle, error) {
	return f.SendText(ctx, conv, caption)
}

func (f *fakeTransport) SendAudio(ctx context.Context, conv int64, path, caption string) (adapter.MessageHandle, error) {
	return f.SendText(ctx, conv, caption)
}

func (f *fakeTransport) DeleteMessage(ctx context.Context, h adapter.MessageHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.visible[h.MessageID]; !ok {
		return errors.New("message not found")
	}
	delete(f.visible, h.MessageID)
	f.deleted = append(f.deleted, h.MessageID)
	return nil
}

func (f *fakeTransport) SetPresence(ctx context.Context, conv int64, p adapter.Presence) error {
	return nil
}

func (f *fakeTransport) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.texts)
}

func (f *fakeTransport) visibleCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visible)
}

// editingTransport adds in-place edits on top of fakeTransport.
type editingTransport struct {
	*fakeTransport
	edits int
}

func (e *editingTransport) EditText(ctx context.Context, h adapter.MessageHandle, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.visible[h.MessageID]; !ok {
		return errors.New("message not found")
	}
	e.visible[h.MessageID] = text
	e.edits++
	return nil
}

// fakeClock is advanced manually by tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func noSleep(context.Context, time.Duration) {}
