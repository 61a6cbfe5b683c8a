//go:build !integration

package redis

import (
	"context"
	"reflect"
	"testing"
	"time"

	"media-courier-bot/internal/domain/model"
)

func TestStateRepoRoundTrip(t *testing.T) {
	ctx := context.Background()
	cli := newFakeClient()
	repo := NewStateRepo(cli, 0)

	if _, ok, err := repo.Get(ctx, 1); ok || err != nil {
		t.Fatalf("missing key should be absent, got ok=%v err=%v", ok, err)
	}

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	entry := model.StateEntry{
		State:     model.EpisodeSelection{Anime: model.Anime{Title: "Mushishi"}, Episodes: []model.Episode{{Number: 1}, {Number: 2}}},
		CreatedAt: at,
	}
	if err := repo.Set(ctx, 1, entry); err != nil {
		t.Fatal(err)
	}
	if cli.ttl["conv_state:1"] != 0 {
		t.Errorf("zero ttl should be passed through, got %v", cli.ttl["conv_state:1"])
	}

	got, ok, err := repo.Get(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	es, isEp := got.State.(model.EpisodeSelection)
	if !isEp || es.Anime.Title != "Mushishi" || len(es.Episodes) != 2 || !got.CreatedAt.Equal(at) {
		t.Errorf("round trip mismatch: %#v", got)
	}

	if err := repo.Clear(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := repo.Get(ctx, 1); ok {
		t.Error("state should be gone after Clear")
	}
}

func TestStateRepoTTL(t *testing.T) {
	cli := newFakeClient()
	repo := NewStateRepo(cli, 30*time.Minute)
	_ = repo.Set(context.Background(), 2, model.StateEntry{State: model.CookieText{}})
	if cli.ttl["conv_state:2"] != 30*time.Minute {
		t.Errorf("ttl = %v", cli.ttl["conv_state:2"])
	}
}

func TestStateRepoCorruptValue(t *testing.T) {
	cli := newFakeClient()
	cli.kv["conv_state:3"] = "{not json"
	if _, _, err := NewStateRepo(cli, 0).Get(context.Background(), 3); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestChatRegistry(t *testing.T) {
	ctx := context.Background()
	reg := NewChatRegistry(newFakeClient())
	for _, id := range []int64{30, 10, 20, 10} {
		if err := reg.Save(ctx, id); err != nil {
			t.Fatal(err)
		}
	}
	got, err := reg.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []int64{10, 20, 30}) {
		t.Errorf("got %v", got)
	}
}

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()
	cli := newFakeClient()
	rl := NewRateLimiter(cli)
	key := UserCommandKey(5, "/yt")

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, key, 3, time.Minute)
		if err != nil || !ok {
			t.Fatalf("call %d should pass: %v %v", i, ok, err)
		}
	}
	if ok, _ := rl.Allow(ctx, key, 3, time.Minute); ok {
		t.Error("fourth call should be limited")
	}
	if cli.ttl[key] != time.Minute {
		t.Errorf("window not set, ttl=%v", cli.ttl[key])
	}
}
