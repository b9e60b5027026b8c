package formkit

import (
	"context"
	"strings"

	"github.com/gobwas/glob"
)

// ============================================================================
// FileSelector Interface
// ============================================================================

// FileSelector picks files by their decoded attributes. Selectors compose
// with And, Or and Not.
//
//	images := formkit.And(
//	    formkit.MediaType("image/*"),
//	    formkit.FuncSelector(func(f *formkit.File) bool { return f.Size < 5<<20 }),
//	)
type FileSelector interface {
	Match(file *File) bool
}

// ============================================================================
// Built-in Selectors
// ============================================================================

type allSelector struct{}

func (allSelector) Match(*File) bool { return true }

// All returns a selector that matches every file.
func All() FileSelector {
	return allSelector{}
}

type globSelector struct {
	g glob.Glob
}

// Glob matches the stored file name against a glob such as "*.txt" or
// "*.{jpg,png}". Matching ignores case. An invalid pattern matches nothing.
func Glob(pattern string) FileSelector {
	g, err := glob.Compile(strings.ToLower(pattern))
	if err != nil {
		return FuncSelector(func(*File) bool { return false })
	}
	return &globSelector{g: g}
}

func (s *globSelector) Match(file *File) bool {
	return s.g.Match(strings.ToLower(file.FullName))
}

type mediaTypeSelector struct {
	patterns []string
}

// MediaType matches files whose media type matches one of patterns, see
// MatchMediaType.
func MediaType(patterns ...string) FileSelector {
	return &mediaTypeSelector{patterns: patterns}
}

func (s *mediaTypeSelector) Match(file *File) bool {
	for _, p := range s.patterns {
		if MatchMediaType(p, file.MediaType) {
			return true
		}
	}
	return false
}

// ============================================================================
// Composable Selectors (And, Or, Not)
// ============================================================================

type andSelector struct {
	selectors []FileSelector
}

// And matches only if ALL selectors match.
func And(selectors ...FileSelector) FileSelector {
	return &andSelector{selectors: selectors}
}

func (s *andSelector) Match(file *File) bool {
	for _, sel := range s.selectors {
		if !sel.Match(file) {
			return false
		}
	}
	return true
}

type orSelector struct {
	selectors []FileSelector
}

// Or matches if ANY selector matches.
func Or(selectors ...FileSelector) FileSelector {
	return &orSelector{selectors: selectors}
}

func (s *orSelector) Match(file *File) bool {
	for _, sel := range s.selectors {
		if sel.Match(file) {
			return true
		}
	}
	return false
}

type notSelector struct {
	selector FileSelector
}

// Not inverts a selector's match result.
func Not(selector FileSelector) FileSelector {
	return &notSelector{selector: selector}
}

func (s *notSelector) Match(file *File) bool {
	return !s.selector.Match(file)
}

type funcSelector func(*File) bool

func (fn funcSelector) Match(file *File) bool { return fn(file) }

// FuncSelector creates a selector from a custom function.
func FuncSelector(fn func(*File) bool) FileSelector {
	return funcSelector(fn)
}

// ============================================================================
// SelectStrategy
// ============================================================================

type route struct {
	selector FileSelector
	strategy Strategy
}

// SelectStrategy saves every file with the strategy of the first route whose
// selector matches it.
type SelectStrategy struct {
	routes []route
}

// NewSelectStrategy returns a strategy with no routes
func NewSelectStrategy() *SelectStrategy {
	return &SelectStrategy{}
}

// Route adds a route. Routes are tried in the order they were added. It
// returns s for chaining and is not safe to call once saves have started.
func (s *SelectStrategy) Route(sel FileSelector, strategy Strategy) *SelectStrategy {
	s.routes = append(s.routes, route{selector: sel, strategy: strategy})
	return s
}

// Save implements Strategy. A file no route matches fails with
// *UnboundSaveError.
func (s *SelectStrategy) Save(ctx context.Context, f *File, opts ...SaveOption) (string, error) {
	if f == nil {
		return "", ErrInvalidName
	}
	for _, r := range s.routes {
		if r.selector.Match(f) {
			return r.strategy.Save(ctx, f, opts...)
		}
	}
	return "", &UnboundSaveError{Name: f.FullName}
}

// SaveMany implements BulkStrategy
func (s *SelectStrategy) SaveMany(ctx context.Context, files []*File, opts ...SaveOption) ([]string, error) {
	return SaveMany(ctx, s, files, opts...)
}

// Verify interface compliance at compile time
var _ BulkStrategy = (*SelectStrategy)(nil)
