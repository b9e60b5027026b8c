package sftp

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"testing"

	"github.com/gobeaver/formkit"
	"github.com/pkg/sftp"
)

// newTestAdapter serves an in-memory filesystem over a pipe
func newTestAdapter(t *testing.T, basePath string, options ...AdapterOption) (*Adapter, *sftp.Client) {
	t.Helper()

	clientConn, serverConn := net.Pipe()
	server := sftp.NewRequestServer(serverConn, sftp.InMemHandler())
	go server.Serve()

	client, err := sftp.NewClientPipe(clientConn, clientConn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a := NewWithClient(client, basePath, options...)
	t.Cleanup(func() {
		a.Close()
		server.Close()
	})
	return a, client
}

func readRemote(t *testing.T, client *sftp.Client, name string) string {
	t.Helper()
	f, err := client.Open(name)
	if err != nil {
		t.Fatalf("open %s: %v", name, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

func newTestFile(name, content string) *formkit.File {
	return formkit.NewFile(formkit.FileHeader{Field: "file", Filename: name}, []byte(content))
}

func TestSave(t *testing.T) {
	ctx := context.Background()

	t.Run("writes under the base path", func(t *testing.T) {
		a, client := newTestAdapter(t, "/uploads")

		loc, err := a.Save(ctx, newTestFile("report.csv", "a,b\n1,2\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if loc != "/uploads/report.csv" {
			t.Errorf("location = %q", loc)
		}
		if got := readRemote(t, client, loc); got != "a,b\n1,2\n" {
			t.Errorf("content = %q", got)
		}
	})

	t.Run("sub path and name", func(t *testing.T) {
		a, client := newTestAdapter(t, "/uploads")

		loc, err := a.Save(ctx, newTestFile("report.csv", "x"), formkit.WithPath("2024/06"), formkit.WithName("june.csv"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if loc != "/uploads/2024/06/june.csv" {
			t.Errorf("location = %q", loc)
		}
		if got := readRemote(t, client, loc); got != "x" {
			t.Errorf("content = %q", got)
		}
	})

	t.Run("directory func", func(t *testing.T) {
		a, _ := newTestAdapter(t, "/uploads", WithDirectoryFunc(func(ctx context.Context, base string) (string, error) {
			return base + "/tenant-7", nil
		}))

		loc, err := a.Save(ctx, newTestFile("a.txt", "a"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if loc != "/uploads/tenant-7/a.txt" {
			t.Errorf("location = %q", loc)
		}
	})

	t.Run("base path required", func(t *testing.T) {
		a, _ := newTestAdapter(t, "")
		_, err := a.Save(ctx, newTestFile("a.txt", "a"))
		if !errors.Is(err, formkit.ErrDestinationRequired) {
			t.Fatalf("expected ErrDestinationRequired, got %v", err)
		}
	})

	t.Run("escaping path", func(t *testing.T) {
		a, _ := newTestAdapter(t, "/uploads")
		_, err := a.Save(ctx, newTestFile("a.txt", "a"), formkit.WithPath("../etc"))
		if !errors.Is(err, formkit.ErrNotAllowed) {
			t.Fatalf("expected ErrNotAllowed, got %v", err)
		}
	})

	t.Run("closed adapter", func(t *testing.T) {
		a, _ := newTestAdapter(t, "/uploads")
		a.Close()
		if _, err := a.Save(ctx, newTestFile("a.txt", "a")); err == nil {
			t.Fatal("expected an error")
		}
	})
}

func TestSaveMany(t *testing.T) {
	a, client := newTestAdapter(t, "/uploads")

	files := []*formkit.File{newTestFile("a.txt", "a"), newTestFile("b.txt", "b"), nil}
	_, err := a.SaveMany(context.Background(), files)
	if err == nil || !strings.Contains(err.Error(), "File <nil> failed: ") {
		t.Fatalf("unexpected error: %v", err)
	}

	var bulk *formkit.BulkSaveError
	if !errors.As(err, &bulk) {
		t.Fatalf("expected BulkSaveError, got %T", err)
	}
	if bulk.Saved[0] != "/uploads/a.txt" || bulk.Saved[1] != "/uploads/b.txt" {
		t.Errorf("saved = %v", bulk.Saved)
	}
	if got := readRemote(t, client, "/uploads/b.txt"); got != "b" {
		t.Errorf("content = %q", got)
	}
}

func TestSaveManyEmpty(t *testing.T) {
	a, client := newTestAdapter(t, "/uploads")

	got, err := a.SaveMany(context.Background(), []*formkit.File{})
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
	if _, err := client.Stat("/uploads"); err == nil {
		t.Error("no directory should be created for an empty save")
	}
}

// fakeRenamer records the calls replace makes
type fakeRenamer struct {
	posixErr  error
	renameErr error
	calls     []string
}

func (r *fakeRenamer) PosixRename(oldname, newname string) error {
	r.calls = append(r.calls, "posix-rename "+oldname)
	return r.posixErr
}

func (r *fakeRenamer) Rename(oldname, newname string) error {
	r.calls = append(r.calls, "rename "+oldname)
	return r.renameErr
}

func (r *fakeRenamer) Remove(path string) error {
	r.calls = append(r.calls, "remove "+path)
	return nil
}

func TestReplace(t *testing.T) {
	unsupported := &sftp.StatusError{Code: uint32(sftp.ErrSSHFxOpUnsupported)}

	tests := []struct {
		name      string
		posixErr  error
		renameErr error
		wantErr   bool
		want      string
	}{
		{
			name: "posix rename",
			want: "posix-rename tmp",
		},
		{
			name:     "other failures keep the target",
			posixErr: os.ErrPermission,
			wantErr:  true,
			want:     "posix-rename tmp,remove tmp",
		},
		{
			name:     "unsupported extension falls back",
			posixErr: unsupported,
			want:     "posix-rename tmp,remove target,rename tmp",
		},
		{
			name:      "failed fallback drops the temp file",
			posixErr:  unsupported,
			renameErr: errors.New("disk full"),
			wantErr:   true,
			want:      "posix-rename tmp,remove target,rename tmp,remove tmp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRenamer{posixErr: tt.posixErr, renameErr: tt.renameErr}
			err := replace(r, "tmp", "target")
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := strings.Join(r.calls, ","); got != tt.want {
				t.Errorf("calls = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSaveOverwrites(t *testing.T) {
	a, client := newTestAdapter(t, "/uploads")
	ctx := context.Background()

	for _, content := range []string{"first", "second"} {
		if _, err := a.Save(ctx, newTestFile("a.txt", content)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := readRemote(t, client, "/uploads/a.txt"); got != "second" {
		t.Errorf("content = %q", got)
	}
}
