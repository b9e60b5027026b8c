package formkit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func textFile(name, content string) *File {
	return NewFile(FileHeader{Field: "f", Filename: name}, []byte(content))
}

func TestSaveMany(t *testing.T) {
	ctx := context.Background()

	t.Run("empty input never calls the strategy", func(t *testing.T) {
		var calls int32
		s := StrategyFunc(func(context.Context, *File, ...SaveOption) (string, error) {
			atomic.AddInt32(&calls, 1)
			return "", nil
		})
		got, err := SaveMany(ctx, s, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("expected an empty, non-nil result, got %#v", got)
		}
		if calls != 0 {
			t.Errorf("strategy called %d times", calls)
		}
	})

	t.Run("locations keep input order", func(t *testing.T) {
		s := StrategyFunc(func(_ context.Context, f *File, _ ...SaveOption) (string, error) {
			// finish in reverse order
			time.Sleep(time.Duration(10-len(f.FullName)) * time.Millisecond)
			return "/" + f.FullName, nil
		})
		files := []*File{textFile("a.txt", ""), textFile("bb.txt", ""), textFile("ccc.txt", "")}
		got, err := SaveMany(ctx, s, files)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Join(got, ",") != "/a.txt,/bb.txt,/ccc.txt" {
			t.Errorf("got %v", got)
		}
	})

	t.Run("every failure is reported and successes stay saved", func(t *testing.T) {
		inner := newFakeStrategy()
		inner.fail["b.txt"] = errors.New("quota exceeded")
		inner.fail["d.txt"] = errors.New("timeout")
		files := []*File{textFile("a.txt", "a"), textFile("b.txt", "b"), textFile("c.txt", "c"), textFile("d.txt", "d")}

		got, err := SaveMany(ctx, inner, files)
		if got != nil {
			t.Errorf("expected no locations, got %v", got)
		}
		want := "File b.txt failed: quota exceeded\nFile d.txt failed: timeout"
		if err == nil || err.Error() != want {
			t.Fatalf("error = %q, want %q", err, want)
		}

		var bulk *BulkSaveError
		if !errors.As(err, &bulk) {
			t.Fatalf("expected *BulkSaveError, got %T", err)
		}
		if bulk.Failures[0].Index != 1 || bulk.Failures[1].Index != 3 {
			t.Errorf("failure indexes = %d, %d", bulk.Failures[0].Index, bulk.Failures[1].Index)
		}
		if bulk.Saved[0] != "fake://a.txt" || bulk.Saved[1] != "" || bulk.Saved[2] != "fake://c.txt" {
			t.Errorf("saved = %q", bulk.Saved)
		}
		if inner.callCount() != 4 {
			t.Errorf("expected every file to be attempted, got %d", inner.callCount())
		}
		if _, ok := inner.get("c.txt"); !ok {
			t.Error("c.txt should be stored")
		}
	})

	t.Run("failure causes are reachable", func(t *testing.T) {
		inner := newFakeStrategy()
		inner.fail["a.txt"] = ErrNotAllowed
		_, err := SaveMany(ctx, inner, []*File{textFile("a.txt", "")})
		if !errors.Is(err, ErrNotAllowed) {
			t.Errorf("expected errors.Is to reach the cause, got %v", err)
		}
	})

	t.Run("nil strategy", func(t *testing.T) {
		_, err := SaveMany(ctx, nil, []*File{textFile("a.txt", "")})
		if !IsUnbound(err) {
			t.Fatalf("expected an unbound error, got %v", err)
		}
	})

	t.Run("nil file", func(t *testing.T) {
		_, err := SaveMany(ctx, newFakeStrategy(), []*File{nil})
		if !errors.Is(err, ErrInvalidName) || !strings.Contains(err.Error(), "File <nil> failed") {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("concurrency limit", func(t *testing.T) {
		var running, peak int32
		s := StrategyFunc(func(_ context.Context, f *File, _ ...SaveOption) (string, error) {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return f.FullName, nil
		})
		files := make([]*File, 8)
		for i := range files {
			files[i] = textFile(fmt.Sprintf("%d.txt", i), "")
		}
		if _, err := SaveMany(ctx, s, files, WithConcurrency(2)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peak > 2 {
			t.Errorf("peak concurrency = %d, want at most 2", peak)
		}
	})
}

type bulkOnly struct {
	*fakeStrategy
	bulkCalls int
}

func (b *bulkOnly) SaveMany(ctx context.Context, files []*File, opts ...SaveOption) ([]string, error) {
	b.bulkCalls++
	return SaveMany(ctx, b.fakeStrategy, files, opts...)
}

func TestSaveAllUsesBulkStrategy(t *testing.T) {
	b := &bulkOnly{fakeStrategy: newFakeStrategy()}
	got, err := SaveAll(context.Background(), b, []*File{textFile("a.txt", "a")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.bulkCalls != 1 || len(got) != 1 {
		t.Errorf("bulk calls = %d, got %v", b.bulkCalls, got)
	}

	if _, err := SaveAll(context.Background(), b, nil); err != nil || b.bulkCalls != 1 {
		t.Errorf("empty input should not reach the bulk save: %v, %d", err, b.bulkCalls)
	}
}

func TestSaveManySharedName(t *testing.T) {
	ctx := context.Background()
	files := []*File{textFile("a.txt", "first"), textFile("b.txt", "second")}

	t.Run("rejected before any write", func(t *testing.T) {
		s := newFakeStrategy()
		got, err := SaveMany(ctx, s, files, WithName("report.txt"))
		if !IsConfigurationError(err) || !errors.Is(err, ErrInvalidName) {
			t.Fatalf("expected a ConfigurationError wrapping ErrInvalidName, got %v", err)
		}
		if got != nil || s.calls != 0 {
			t.Errorf("got %v after %d calls", got, s.calls)
		}
	})

	t.Run("rejected before the bulk save", func(t *testing.T) {
		b := &bulkOnly{fakeStrategy: newFakeStrategy()}
		if _, err := SaveAll(ctx, b, files, WithName("report.txt")); !IsConfigurationError(err) {
			t.Fatalf("expected a ConfigurationError, got %v", err)
		}
		if b.bulkCalls != 0 || b.calls != 0 {
			t.Errorf("bulk calls = %d, saves = %d", b.bulkCalls, b.calls)
		}
	})

	t.Run("single file may be renamed", func(t *testing.T) {
		s := newFakeStrategy()
		got, err := SaveMany(ctx, s, files[:1], WithName("report.txt"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || got[0] != "fake://report.txt" {
			t.Errorf("got %v", got)
		}
	})
}

func TestResolveName(t *testing.T) {
	f := textFile("report.pdf", "")
	ctx := context.Background()
	upper := func(_ context.Context, f *File) (string, error) {
		return strings.ToUpper(f.FullName), nil
	}

	tests := []struct {
		name    string
		opts    SaveOptions
		fn      NameFunc
		want    string
		wantErr bool
	}{
		{"full name", SaveOptions{}, nil, "report.pdf", false},
		{"name func", SaveOptions{}, upper, "REPORT.PDF", false},
		{"per-call name wins", SaveOptions{Name: "q3.pdf"}, upper, "q3.pdf", false},
		{"path in name", SaveOptions{Name: "a/b.pdf"}, nil, "", true},
		{"dot dot", SaveOptions{Name: ".."}, nil, "", true},
		{"backslash", SaveOptions{Name: `a\b`}, nil, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveName(ctx, f, tt.opts, tt.fn)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidName) {
				t.Errorf("expected ErrInvalidName, got %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestObjectKeyAndURL(t *testing.T) {
	tests := []struct {
		prefix, sub, name string
		want              string
	}{
		{"", "", "a.txt", "a.txt"},
		{"uploads", "", "a.txt", "uploads/a.txt"},
		{"uploads/", "/2024/", "a.txt", "uploads/2024/a.txt"},
		{"", "../..", "a.txt", "a.txt"},
	}
	for _, tt := range tests {
		if got := ObjectKey(tt.prefix, tt.sub, tt.name); got != tt.want {
			t.Errorf("ObjectKey(%q, %q, %q) = %q, want %q", tt.prefix, tt.sub, tt.name, got, tt.want)
		}
	}

	if got := ObjectURL("", "b", "k", "https://canonical/k"); got != "https://canonical/k" {
		t.Errorf("ObjectURL without endpoint = %q", got)
	}
	if got := ObjectURL("http://localhost:9000/", "b", "k", "x"); got != "http://localhost:9000/b/k" {
		t.Errorf("ObjectURL with endpoint = %q", got)
	}
}

func TestSaveOptionsMediaType(t *testing.T) {
	f := NewFile(FileHeader{Field: "f", Filename: "a.txt", MediaType: "text/plain"}, nil)
	if got := ApplySaveOptions().MediaType(f); got != "text/plain" {
		t.Errorf("MediaType() = %q", got)
	}
	if got := ApplySaveOptions(WithContentType("text/csv")).MediaType(f); got != "text/csv" {
		t.Errorf("MediaType() = %q", got)
	}
}
