package memory

import (
	"bytes"
	"context"
	"errors"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gobeaver/formkit"
	"github.com/gobwas/glob"
)

// Scheme prefixes every location returned by the adapter.
const Scheme = "memory://"

// ErrNoSpace is returned when a save would exceed the configured MaxSize.
var ErrNoSpace = errors.New("memory store is full")

// Object is a file held by the adapter
type Object struct {
	Key         string
	Content     []byte
	ContentType string
	Hash        string
	Metadata    map[string]string
	ModTime     time.Time
}

// Adapter keeps saved files in memory. Useful for tests and as an
// in-process sink.
type Adapter struct {
	mu      sync.RWMutex
	objects map[string]*Object
	maxSize int64 // Maximum total storage size (0 = unlimited)
	size    int64 // Current total size
	saves   int
}

// Config holds configuration for the memory adapter
type Config struct {
	// MaxSize is the maximum total storage size in bytes (0 = unlimited)
	MaxSize int64
}

// New creates a new in-memory adapter
func New(cfg ...Config) *Adapter {
	var maxSize int64
	if len(cfg) > 0 {
		maxSize = cfg[0].MaxSize
	}
	return &Adapter{
		objects: make(map[string]*Object),
		maxSize: maxSize,
	}
}

// Save implements formkit.Strategy. Files are keyed by the per-call path and
// their name; the location is Scheme followed by the key.
func (a *Adapter) Save(ctx context.Context, f *formkit.File, options ...formkit.SaveOption) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	if f == nil {
		return "", formkit.ErrInvalidName
	}

	o := formkit.ApplySaveOptions(options...)
	name, err := formkit.ResolveName(ctx, f, o, nil)
	if err != nil {
		return "", &formkit.PersistenceError{Op: "save", Name: f.FullName, Err: err}
	}
	key := formkit.ObjectKey("", o.Path, name)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.saves++

	newSize := a.size + f.Size
	if existing, ok := a.objects[key]; ok {
		newSize -= int64(len(existing.Content))
	}
	if a.maxSize > 0 && newSize > a.maxSize {
		return "", &formkit.PersistenceError{Op: "save", Name: name, Err: ErrNoSpace}
	}

	a.objects[key] = &Object{
		Key:         key,
		Content:     f.Content(),
		ContentType: o.MediaType(f),
		Hash:        f.Hash,
		Metadata:    maps.Clone(o.Metadata),
		ModTime:     time.Now(),
	}
	a.size = newSize
	return Scheme + key, nil
}

// SaveMany implements formkit.BulkStrategy
func (a *Adapter) SaveMany(ctx context.Context, files []*formkit.File, options ...formkit.SaveOption) ([]string, error) {
	return formkit.SaveMany(ctx, a, files, options...)
}

// Get returns a copy of the object stored under key. A location returned
// by Save is accepted as well.
func (a *Adapter) Get(key string) (*Object, bool) {
	key = trimScheme(key)
	a.mu.RLock()
	defer a.mu.RUnlock()
	obj, ok := a.objects[key]
	if !ok {
		return nil, false
	}
	clone := *obj
	clone.Content = bytes.Clone(obj.Content)
	clone.Metadata = maps.Clone(obj.Metadata)
	return &clone, true
}

// List returns the sorted keys matching a glob pattern such as
// "avatars/*.png" or "**". An empty pattern matches every key.
func (a *Adapter) List(pattern string) ([]string, error) {
	var g glob.Glob
	if pattern != "" {
		compiled, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		g = compiled
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	keys := make([]string, 0, len(a.objects))
	for key := range a.objects {
		if g == nil || g.Match(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete removes the object under key
func (a *Adapter) Delete(key string) bool {
	key = trimScheme(key)
	a.mu.Lock()
	defer a.mu.Unlock()
	obj, ok := a.objects[key]
	if ok {
		a.size -= int64(len(obj.Content))
		delete(a.objects, key)
	}
	return ok
}

// Size returns the total bytes stored
func (a *Adapter) Size() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.size
}

// Saves counts the saves that reached the store, rejected ones included
func (a *Adapter) Saves() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.saves
}

func trimScheme(key string) string {
	return strings.TrimPrefix(key, Scheme)
}

// Ensure Adapter implements interfaces
var _ formkit.BulkStrategy = (*Adapter)(nil)
