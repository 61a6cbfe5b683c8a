//go:build !integration

package conversation

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"media-courier-bot/internal/domain/model"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func newTestMachine() (*Machine, *MemoryStore) {
	store := NewMemoryStore(0)
	return NewMachine(store, newTestLogger()), store
}

func TestSetReplacesWithoutMerge(t *testing.T) {
	m, _ := newTestMachine()
	ctx := context.Background()

	a := model.VideoSelection{Videos: []model.Video{{ID: "a"}, {ID: "b"}}, Origin: "cats"}
	b := model.MusicSelection{Tracks: []model.Track{{Title: "song"}}}
	if err := m.Set(ctx, 7, a); err != nil {
		t.Fatal(err)
	}
	if err := m.Set(ctx, 7, b); err != nil {
		t.Fatal(err)
	}

	entry, ok, err := m.Get(ctx, 7)
	if err != nil || !ok {
		t.Fatalf("expected state, got ok=%v err=%v", ok, err)
	}
	got, isMusic := entry.State.(model.MusicSelection)
	if !isMusic {
		t.Fatalf("expected music selection, got %T", entry.State)
	}
	if len(got.Tracks) != 1 || got.Tracks[0].Title != "song" {
		t.Errorf("payload was altered: %+v", got)
	}
}

func TestDispatchWithoutStateIsUnhandled(t *testing.T) {
	m, _ := newTestMachine()
	handled, err := m.Dispatch(context.Background(), 1, "2 720")
	if handled || err != nil {
		t.Fatalf("expected unhandled, got %v %v", handled, err)
	}
}

func TestDispatchRejectsMismatchAndKeepsState(t *testing.T) {
	m, store := newTestMachine()
	ctx := context.Background()
	called := false
	m.Register(model.StateVideoSelection, AcceptVideoChoice, func(context.Context, int64, model.StateEntry, string) error {
		called = true
		return nil
	})
	_ = m.Set(ctx, 3, model.VideoSelection{Videos: []model.Video{{ID: "x"}}})

	for _, text := range []string{"hello", "2", "2 360", "two 720"} {
		handled, err := m.Dispatch(ctx, 3, text)
		if handled || err != nil {
			t.Errorf("%q: expected rejection, got %v %v", text, handled, err)
		}
	}
	if called {
		t.Error("handler must not run for rejected input")
	}
	if store.Len() != 1 {
		t.Error("state must survive rejected input")
	}
}

func TestDispatchRoutesAcceptedReply(t *testing.T) {
	m, _ := newTestMachine()
	ctx := context.Background()
	var gotText string
	var gotState model.StateName
	m.Register(model.StateEpisodeSelection, AcceptEpisodeSelection, func(ctx context.Context, conv int64, e model.StateEntry, text string) error {
		gotText = text
		gotState = e.State.Name()
		return m.Clear(ctx, conv)
	})
	_ = m.Set(ctx, 9, model.EpisodeSelection{})

	handled, err := m.Dispatch(ctx, 9, " 2 - 6 ")
	if !handled || err != nil {
		t.Fatalf("expected handled, got %v %v", handled, err)
	}
	if gotText != " 2 - 6 " || gotState != model.StateEpisodeSelection {
		t.Errorf("handler got %q / %s", gotText, gotState)
	}
	if _, ok, _ := m.Get(ctx, 9); ok {
		t.Error("handler clear should be visible")
	}
}

func TestDispatchFreeTextStatePassesHandlerError(t *testing.T) {
	m, _ := newTestMachine()
	ctx := context.Background()
	boom := errors.New("bad cookie")
	m.Register(model.StateCookieText, AcceptAny, func(context.Context, int64, model.StateEntry, string) error { return boom })
	_ = m.Set(ctx, 1, model.CookieText{})

	handled, err := m.Dispatch(ctx, 1, "anything at all")
	if !handled || !errors.Is(err, boom) {
		t.Fatalf("expected handled with handler error, got %v %v", handled, err)
	}
}

func TestDispatchUnregisteredState(t *testing.T) {
	m, _ := newTestMachine()
	_ = m.Set(context.Background(), 1, model.FileSelection{})
	handled, err := m.Dispatch(context.Background(), 1, "1")
	if handled || err != nil {
		t.Fatalf("expected unhandled, got %v %v", handled, err)
	}
}

func TestSetStampsCreatedAt(t *testing.T) {
	m, _ := newTestMachine()
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return at })
	_ = m.Set(context.Background(), 5, model.CookieText{})
	e, _, _ := m.Get(context.Background(), 5)
	if !e.CreatedAt.Equal(at) {
		t.Errorf("created at = %v", e.CreatedAt)
	}
}

func TestMemoryStoreTTL(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()
	_ = s.Set(ctx, 1, model.StateEntry{State: model.CookieText{}, CreatedAt: now})

	if _, ok, _ := s.Get(ctx, 1); !ok {
		t.Fatal("fresh entry should be present")
	}
	now = now.Add(2 * time.Minute)
	if _, ok, _ := s.Get(ctx, 1); ok {
		t.Fatal("expired entry should be gone")
	}
}
