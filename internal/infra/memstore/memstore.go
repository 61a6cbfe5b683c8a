// Package memstore holds the in-process fallbacks used when no database or redis is configured.
package memstore

import (
	"context"
	"sort"
	"sync"

	"media-courier-bot/internal/domain/model"
	"media-courier-bot/internal/domain/ports/repository"
)

var (
	_ repository.ChatRegistry      = (*ChatRegistry)(nil)
	_ repository.HistoryRepository = (*HistoryRepo)(nil)
)

type ChatRegistry struct {
	mu    sync.RWMutex
	chats map[int64]struct{}
}

func NewChatRegistry() *ChatRegistry {
	return &ChatRegistry{chats: make(map[int64]struct{})}
}

func (r *ChatRegistry) Save(_ context.Context, conv int64) error {
	r.mu.Lock()
	r.chats[conv] = struct{}{}
	r.mu.Unlock()
	return nil
}

func (r *ChatRegistry) List(_ context.Context) ([]int64, error) {
	r.mu.RLock()
	out := make([]int64, 0, len(r.chats))
	for id := range r.chats {
		out = append(out, id)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// HistoryRepo keeps at most max records per conversation, newest last.
type HistoryRepo struct {
	mu      sync.Mutex
	max     int
	records map[int64][]*model.DownloadRecord
}

func NewHistoryRepo(max int) *HistoryRepo {
	if max <= 0 {
		max = 100
	}
	return &HistoryRepo{max: max, records: make(map[int64][]*model.DownloadRecord)}
}

func (h *HistoryRepo) Record(_ context.Context, rec *model.DownloadRecord) error {
	cp := *rec
	h.mu.Lock()
	defer h.mu.Unlock()
	list := append(h.records[rec.ConversationID], &cp)
	if len(list) > h.max {
		list = list[len(list)-h.max:]
	}
	h.records[rec.ConversationID] = list
	return nil
}

func (h *HistoryRepo) ListRecent(_ context.Context, conv int64, limit int) ([]*model.DownloadRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := h.records[conv]
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}
	out := make([]*model.DownloadRecord, 0, limit)
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *list[i]
		out = append(out, &cp)
	}
	return out, nil
}
