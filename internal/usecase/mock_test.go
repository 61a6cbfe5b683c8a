//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"media-courier-bot/internal/domain/ports/adapter"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// MockChatRegistry serves a fixed chat list.
type MockChatRegistry struct {
	Chats   []int64
	ListErr error
}

func (m *MockChatRegistry) Save(context.Context, int64) error { return nil }

func (m *MockChatRegistry) List(context.Context) ([]int64, error) {
	return m.Chats, m.ListErr
}

// MockTransport records text sends; chats in Blocked fail.
type MockTransport struct {
	mu      sync.Mutex
	Sent    map[int64]string
	Blocked map[int64]bool
}

func NewMockTransport() *MockTransport {
	return &MockTransport{Sent: map[int64]string{}, Blocked: map[int64]bool{}}
}

func (m *MockTransport) SendText(_ context.Context, conv int64, text string) (adapter.MessageHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Blocked[conv] {
		return adapter.MessageHandle{}, errors.New("Forbidden: bot was blocked by the user")
	}
	m.Sent[conv] = text
	return adapter.MessageHandle{ConversationID: conv, MessageID: len(m.Sent)}, nil
}

func (m *MockTransport) SendImage(context.Context, int64, []byte, string) (adapter.MessageHandle, error) {
	return adapter.MessageHandle{}, nil
}

func (m *MockTransport) SendDocument(context.Context, int64, string, string) (adapter.MessageHandle, error) {
	return adapter.MessageHandle{}, nil
}

func (m *MockTransport) SendAudio(context.Context, int64, string, string) (adapter.MessageHandle, error) {
	return adapter.MessageHandle{}, nil
}

func (m *MockTransport) DeleteMessage(context.Context, adapter.MessageHandle) error { return nil }

func (m *MockTransport) SetPresence(context.Context, int64, adapter.Presence) error { return nil }

// MockLocker hands out a single lock.
type MockLocker struct {
	mu       sync.Mutex
	held     bool
	Unlocked int
}

func (m *MockLocker) TryLock(context.Context, string, time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held {
		return "", errors.New("resource is locked")
	}
	m.held = true
	return "token", nil
}

func (m *MockLocker) Unlock(context.Context, string, string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held = false
	m.Unlocked++
	return nil
}
