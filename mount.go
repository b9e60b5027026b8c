package formkit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrMountNotFound is returned when no mount point matches a field
	ErrMountNotFound = errors.New("no mount point found for field")
	// ErrMountExists is returned when trying to mount at an existing field
	ErrMountExists = errors.New("mount point already exists")
	// ErrEmptyMountPath is returned when the mount field is empty
	ErrEmptyMountPath = errors.New("mount field cannot be empty")
	// ErrNilStrategy is returned when trying to mount a nil strategy
	ErrNilStrategy = errors.New("strategy cannot be nil")
)

// MountStrategy routes every file to the strategy mounted at the longest
// prefix of its form field path. Mounting "user" catches "user[avatar]" and
// "user[docs][]" unless a longer mount such as "user[docs]" exists.
//
// Files under no mount go to the fallback. Without a fallback they fail with
// *UnboundSaveError.
type MountStrategy struct {
	mu       sync.RWMutex
	mounts   map[string]Strategy
	fallback Strategy
	// sorted mount paths for longest-prefix matching
	sortedPaths []string
}

// NewMountStrategy creates a mount strategy. fallback may be nil.
func NewMountStrategy(fallback Strategy) *MountStrategy {
	return &MountStrategy{
		mounts:   make(map[string]Strategy),
		fallback: fallback,
	}
}

// Mount attaches s at a form field such as "avatar" or "user[docs]".
//
// Example:
//
//	mounts.Mount("avatar", imagesStrategy)
//	mounts.Mount("user[docs]", documentsStrategy)
func (m *MountStrategy) Mount(field string, s Strategy) error {
	if s == nil {
		return ErrNilStrategy
	}

	key := mountKey(field)
	if key == "" {
		return ErrEmptyMountPath
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.mounts[key]; exists {
		return fmt.Errorf("%w: %s", ErrMountExists, field)
	}

	m.mounts[key] = s
	m.updateSortedPaths()
	return nil
}

// Unmount removes the strategy mounted at field.
func (m *MountStrategy) Unmount(field string) error {
	key := mountKey(field)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.mounts[key]; !exists {
		return fmt.Errorf("%w: %s", ErrMountNotFound, field)
	}

	delete(m.mounts, key)
	m.updateSortedPaths()
	return nil
}

// MountPaths returns all mount keys, longest first. Keys join the field
// segments with '/'.
func (m *MountStrategy) MountPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]string, len(m.sortedPaths))
	copy(result, m.sortedPaths)
	return result
}

// Resolve returns the strategy a file of the given field is saved with.
func (m *MountStrategy) Resolve(field string) (Strategy, error) {
	key := mountKey(field)

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, mountPath := range m.sortedPaths {
		if key == mountPath || strings.HasPrefix(key, mountPath+"/") {
			return m.mounts[mountPath], nil
		}
	}
	if m.fallback != nil {
		return m.fallback, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrMountNotFound, field)
}

// Save implements Strategy
func (m *MountStrategy) Save(ctx context.Context, f *File, opts ...SaveOption) (string, error) {
	if f == nil {
		return "", ErrInvalidName
	}
	s, err := m.Resolve(f.Field)
	if err != nil {
		return "", &UnboundSaveError{Name: f.FullName}
	}
	return s.Save(ctx, f, opts...)
}

// SaveMany implements BulkStrategy
func (m *MountStrategy) SaveMany(ctx context.Context, files []*File, opts ...SaveOption) ([]string, error) {
	return SaveMany(ctx, m, files, opts...)
}

// updateSortedPaths updates the sorted paths slice for longest-prefix matching.
// Must be called with lock held.
func (m *MountStrategy) updateSortedPaths() {
	paths := make([]string, 0, len(m.mounts))
	for p := range m.mounts {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool {
		return len(paths[i]) > len(paths[j])
	})
	m.sortedPaths = paths
}

// mountKey turns "user[docs][]" into "user/docs".
func mountKey(field string) string {
	segments, _ := ParseFieldName(field)
	return strings.Join(segments, "/")
}

// Verify interface compliance at compile time
var _ BulkStrategy = (*MountStrategy)(nil)
