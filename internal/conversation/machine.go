// Package conversation tracks the pending multi-turn interaction of each chat
// and routes free-text replies to the handler registered for it.
package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"media-courier-bot/internal/domain/model"
	"media-courier-bot/internal/domain/ports/repository"
	"media-courier-bot/internal/infra/metrics"
)

// Acceptor reports whether a reply is well-formed for a state.
type Acceptor func(text string) bool

// Handler consumes an accepted reply. It owns the next transition: it either
// sets a new state, clears the current one, or leaves it for a retry.
type Handler func(ctx context.Context, conv int64, entry model.StateEntry, text string) error

type route struct {
	accept Acceptor
	handle Handler
}

// Machine is safe for concurrent use; replies within one conversation are
// expected to arrive serialized by the transport.
type Machine struct {
	store repository.StateRepository
	log   *zerolog.Logger
	now   func() time.Time

	mu     sync.RWMutex
	routes map[model.StateName]route
}

func NewMachine(store repository.StateRepository, logger *zerolog.Logger) *Machine {
	l := logger.With().Str("component", "ConversationMachine").Logger()
	return &Machine{
		store:  store,
		log:    &l,
		now:    time.Now,
		routes: make(map[model.StateName]route),
	}
}

// SetClock overrides the time source used for CreatedAt.
func (m *Machine) SetClock(now func() time.Time) {
	if now != nil {
		m.now = now
	}
}

// Register binds a state to its acceptance pattern and handler. A second
// registration for the same state replaces the first.
func (m *Machine) Register(name model.StateName, accept Acceptor, handle Handler) {
	if accept == nil {
		accept = AcceptAny
	}
	m.mu.Lock()
	m.routes[name] = route{accept: accept, handle: handle}
	m.mu.Unlock()
}

func (m *Machine) Get(ctx context.Context, conv int64) (model.StateEntry, bool, error) {
	entry, ok, err := m.store.Get(ctx, conv)
	if err != nil {
		return model.StateEntry{}, false, fmt.Errorf("get state %d: %w", conv, err)
	}
	return entry, ok, nil
}

// Set replaces whatever state the conversation had.
func (m *Machine) Set(ctx context.Context, conv int64, state model.ConversationState) error {
	if state == nil {
		return m.Clear(ctx, conv)
	}
	entry := model.StateEntry{State: state, CreatedAt: m.now().UTC()}
	if err := m.store.Set(ctx, conv, entry); err != nil {
		return fmt.Errorf("set state %d: %w", conv, err)
	}
	metrics.IncTransition(string(state.Name()))
	m.log.Debug().Int64("conv_id", conv).Str("state", string(state.Name())).Msg("state set")
	return nil
}

func (m *Machine) Clear(ctx context.Context, conv int64) error {
	if err := m.store.Clear(ctx, conv); err != nil {
		return fmt.Errorf("clear state %d: %w", conv, err)
	}
	metrics.IncTransition(string(model.StateIdle))
	return nil
}

// Dispatch hands text to the current state's handler. It returns false when
// there is no state, no handler for it, or the text does not match the
// state's pattern; the state is left untouched in all three cases.
func (m *Machine) Dispatch(ctx context.Context, conv int64, text string) (bool, error) {
	entry, ok, err := m.Get(ctx, conv)
	if err != nil || !ok {
		return false, err
	}

	m.mu.RLock()
	r, found := m.routes[entry.State.Name()]
	m.mu.RUnlock()
	if !found {
		m.log.Warn().Int64("conv_id", conv).Str("state", string(entry.State.Name())).Msg("no handler registered for state")
		return false, nil
	}
	if !r.accept(text) {
		m.log.Debug().Int64("conv_id", conv).Str("state", string(entry.State.Name())).Msg("reply rejected")
		return false, nil
	}
	return true, r.handle(ctx, conv, entry, text)
}
