package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobeaver/formkit"
)

// DefaultBasePath is used when the adapter is created with an empty root.
const DefaultBasePath = "./public"

// Adapter saves files below a directory of the local filesystem
type Adapter struct {
	root     string
	dirFunc  formkit.DirectoryFunc
	nameFunc formkit.NameFunc
	fileMode os.FileMode
	dirMode  os.FileMode
}

// AdapterOption configures an Adapter
type AdapterOption func(*Adapter)

// WithDirectoryFunc computes a per-request directory from the root
func WithDirectoryFunc(fn formkit.DirectoryFunc) AdapterOption {
	return func(a *Adapter) {
		a.dirFunc = fn
	}
}

// WithNameFunc computes the stored name of every file
func WithNameFunc(fn formkit.NameFunc) AdapterOption {
	return func(a *Adapter) {
		a.nameFunc = fn
	}
}

// WithFileMode sets the permissions of saved files
func WithFileMode(mode os.FileMode) AdapterOption {
	return func(a *Adapter) {
		a.fileMode = mode
	}
}

// New creates a new local filesystem adapter. Directories are created on
// the first save below them.
func New(root string, opts ...AdapterOption) (*Adapter, error) {
	if root == "" {
		root = DefaultBasePath
	}
	a := &Adapter{
		root:     root,
		fileMode: 0644,
		dirMode:  0755,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Root returns the configured root directory
func (a *Adapter) Root() string {
	return a.root
}

// Directory resolves the destination directory of a save
func (a *Adapter) Directory(ctx context.Context, o formkit.SaveOptions) (string, error) {
	dir := a.root
	if a.dirFunc != nil {
		d, err := a.dirFunc(ctx, a.root)
		if err != nil {
			return "", err
		}
		dir = d
	}
	if dir == "" {
		return "", formkit.DestinationRequired("local", "directory is required")
	}
	if o.Path == "" {
		return filepath.Clean(dir), nil
	}

	full := filepath.Join(dir, filepath.FromSlash(o.Path))
	if !isPathUnderRoot(dir, full) {
		return "", &formkit.PersistenceError{Op: "save", Name: o.Path, Err: formkit.ErrNotAllowed}
	}
	return full, nil
}

// Save implements formkit.Strategy. The returned location is
// "<directory>/<name>" with forward slashes.
func (a *Adapter) Save(ctx context.Context, f *formkit.File, options ...formkit.SaveOption) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
		// Continue
	}
	if f == nil {
		return "", formkit.ErrInvalidName
	}

	o := formkit.ApplySaveOptions(options...)
	dir, err := a.Directory(ctx, o)
	if err != nil {
		return "", err
	}

	name, err := formkit.ResolveName(ctx, f, o, a.nameFunc)
	if err != nil {
		return "", &formkit.PersistenceError{Op: "save", Name: f.FullName, Err: err}
	}
	target := filepath.Join(dir, name)

	if err := os.MkdirAll(dir, a.dirMode); err != nil {
		return "", &formkit.PersistenceError{Op: "save", Name: name, Err: err}
	}
	if err := a.writeAtomic(dir, target, f); err != nil {
		return "", &formkit.PersistenceError{Op: "save", Name: name, Err: err}
	}

	return filepath.ToSlash(target), nil
}

// SaveMany implements formkit.BulkStrategy
func (a *Adapter) SaveMany(ctx context.Context, files []*formkit.File, options ...formkit.SaveOption) ([]string, error) {
	return formkit.SaveMany(ctx, a, files, options...)
}

// writeAtomic writes f next to target and renames it into place, so a
// failed write never leaves a partial file under the target name.
func (a *Adapter) writeAtomic(dir, target string, f *formkit.File) (err error) {
	tmp, err := os.CreateTemp(dir, ".formkit-*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = f.WriteTo(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), a.fileMode); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}

// isPathUnderRoot checks if a path is under a given root directory
func isPathUnderRoot(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}

	return !filepath.IsAbs(rel) && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Verify interface compliance at compile time
var _ formkit.BulkStrategy = (*Adapter)(nil)
