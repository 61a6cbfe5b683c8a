//go:build !integration

package redis

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// fakeClient is an in-memory RedisClient.
type fakeClient struct {
	mu   sync.Mutex
	kv   map[string]string
	ttl  map[string]time.Duration
	sets map[string]map[string]struct{}
}

func newFakeClient() *fakeClient {
	return &fakeClient{kv: map[string]string{}, ttl: map[string]time.Duration{}, sets: map[string]map[string]struct{}{}}
}

func (f *fakeClient) Ping(context.Context) error { return nil }

func (f *fakeClient) Set(_ context.Context, key string, value interface{}, exp time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		f.kv[key] = string(v)
	default:
		f.kv[key] = fmt.Sprint(v)
	}
	f.ttl[key] = exp
	return nil
}

func (f *fakeClient) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.kv[key]
	if !ok {
		return "", Nil
	}
	return v, nil
}

func (f *fakeClient) Incr(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	fmt.Sscan(f.kv[key], &n)
	n++
	f.kv[key] = fmt.Sprint(n)
	return n, nil
}

func (f *fakeClient) Expire(_ context.Context, key string, exp time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ttl[key] = exp
	return nil
}

func (f *fakeClient) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.kv, k)
		delete(f.ttl, k)
	}
	return nil
}

func (f *fakeClient) SAdd(_ context.Context, key string, members ...interface{}) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sets[key]
	if !ok {
		s = map[string]struct{}{}
		f.sets[key] = s
	}
	var added int64
	for _, m := range members {
		k := fmt.Sprint(m)
		if _, dup := s[k]; !dup {
			s[k] = struct{}{}
			added++
		}
	}
	return added, nil
}

func (f *fakeClient) SMembers(_ context.Context, key string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for m := range f.sets[key] {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeClient) Close() error { return nil }
