package formkit

import (
	"context"
	"errors"
	"path"
	"sync"
)

func init() {
	// Register test drivers
	RegisterStrategy("fake", newFakeDriver)
	RegisterStrategy("broken", func(*Config) (Strategy, error) {
		return nil, errors.New("connection refused")
	})
}

func newFakeDriver(cfg *Config) (Strategy, error) {
	return newFakeStrategy(), nil
}

// fakeStrategy keeps saved content in memory and fails for names listed in fail
type fakeStrategy struct {
	mu    sync.Mutex
	saved map[string][]byte
	opts  map[string]SaveOptions
	fail  map[string]error
	calls int
}

func newFakeStrategy() *fakeStrategy {
	return &fakeStrategy{
		saved: make(map[string][]byte),
		opts:  make(map[string]SaveOptions),
		fail:  make(map[string]error),
	}
}

func (s *fakeStrategy) Save(ctx context.Context, f *File, opts ...SaveOption) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	o := ApplySaveOptions(opts...)
	name, err := ResolveName(ctx, f, o, nil)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if err := s.fail[name]; err != nil {
		return "", err
	}
	key := path.Join(o.Path, name)
	s.saved[key] = f.Content()
	s.opts[key] = o
	return "fake://" + key, nil
}

func (s *fakeStrategy) get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.saved[key]
	return b, ok
}

func (s *fakeStrategy) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
