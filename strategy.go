package formkit

import (
	"context"
	"fmt"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ============================================================================
// Persistence strategies
// ============================================================================

// Strategy durably stores one file and reports where it went: a forward-slash
// path for disk backends, a URL for remote ones.
//
// Implementations are shared across requests and must be safe for concurrent use.
type Strategy interface {
	Save(ctx context.Context, file *File, opts ...SaveOption) (string, error)
}

// BulkStrategy is implemented by strategies with their own bulk save. The
// contract matches SaveMany.
type BulkStrategy interface {
	Strategy
	SaveMany(ctx context.Context, files []*File, opts ...SaveOption) ([]string, error)
}

// StrategyFunc adapts a function to the Strategy interface.
type StrategyFunc func(ctx context.Context, file *File, opts ...SaveOption) (string, error)

// Save calls fn
func (fn StrategyFunc) Save(ctx context.Context, file *File, opts ...SaveOption) (string, error) {
	return fn(ctx, file, opts...)
}

// DirectoryFunc computes a per-request destination directory from the
// strategy's configured base directory.
type DirectoryFunc func(ctx context.Context, base string) (string, error)

// NameFunc computes the stored name of a file.
type NameFunc func(ctx context.Context, file *File) (string, error)

// SaveMany saves every file with s concurrently and waits for all of them.
//
// An empty input returns an empty result without touching s. When any file
// fails, the returned *BulkSaveError names every failed file; the files that
// succeeded stay saved and their locations are kept in BulkSaveError.Saved.
// On success the locations are in input order.
func SaveMany(ctx context.Context, s Strategy, files []*File, opts ...SaveOption) ([]string, error) {
	if len(files) == 0 {
		return []string{}, nil
	}
	if s == nil {
		return nil, &UnboundSaveError{Name: fileName(files[0])}
	}

	o := ApplySaveOptions(opts...)
	if err := checkBulkName(o, len(files)); err != nil {
		return nil, err
	}
	locations := make([]string, len(files))
	errs := make([]error, len(files))

	var g errgroup.Group
	if o.Concurrency > 0 {
		g.SetLimit(o.Concurrency)
	}
	for i, f := range files {
		g.Go(func() error {
			if f == nil {
				errs[i] = ErrInvalidName
				return nil
			}
			locations[i], errs[i] = s.Save(ctx, f, opts...)
			return nil
		})
	}
	_ = g.Wait()

	var failures []FileFailure
	for i, err := range errs {
		if err != nil {
			failures = append(failures, FileFailure{Index: i, Name: fileName(files[i]), Err: err})
		}
	}
	if len(failures) > 0 {
		return nil, &BulkSaveError{Failures: failures, Saved: locations}
	}
	return locations, nil
}

// SaveAll saves files with the bulk save of s when it has one.
func SaveAll(ctx context.Context, s Strategy, files []*File, opts ...SaveOption) ([]string, error) {
	if bulk, ok := s.(BulkStrategy); ok {
		if len(files) == 0 {
			return []string{}, nil
		}
		if err := checkBulkName(ApplySaveOptions(opts...), len(files)); err != nil {
			return nil, err
		}
		return bulk.SaveMany(ctx, files, opts...)
	}
	return SaveMany(ctx, s, files, opts...)
}

// checkBulkName rejects a per-call name shared by more than one file: every
// file would land on the same target.
func checkBulkName(o SaveOptions, n int) error {
	if o.Name == "" || n < 2 {
		return nil
	}
	return &ConfigurationError{
		Strategy: "bulk",
		Msg:      fmt.Sprintf("name %q cannot be shared by %d files", o.Name, n),
		Err:      ErrInvalidName,
	}
}

// ResolveName returns the stored name of f: the per-call name, else the
// result of fn, else f.FullName. Names that are empty or would leave the
// destination directory are rejected.
func ResolveName(ctx context.Context, f *File, o SaveOptions, fn NameFunc) (string, error) {
	name := f.FullName
	switch {
	case o.Name != "":
		name = o.Name
	case fn != nil:
		n, err := fn(ctx, f)
		if err != nil {
			return "", err
		}
		name = n
	}
	if err := CheckName(name); err != nil {
		return "", err
	}
	return name, nil
}

// CheckName rejects names that are empty or contain path elements.
func CheckName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// ObjectKey joins a key prefix, the per-call path and a name into an object
// store key. The result never starts with a slash.
func ObjectKey(prefix, sub, name string) string {
	key := path.Join("/", prefix, sub, name)
	return strings.TrimPrefix(key, "/")
}

// ObjectURL builds the public location of an object. With a custom endpoint
// the URL is endpoint/bucket/key; otherwise canonical is used.
func ObjectURL(endpoint, bucket, key, canonical string) string {
	if endpoint != "" {
		return strings.TrimSuffix(endpoint, "/") + "/" + bucket + "/" + key
	}
	return canonical
}

func fileName(f *File) string {
	if f == nil {
		return "<nil>"
	}
	return f.FullName
}
