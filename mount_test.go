package formkit

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestMountStrategy(t *testing.T) {
	t.Run("mount errors", func(t *testing.T) {
		m := NewMountStrategy(nil)
		if err := m.Mount("avatar", nil); !errors.Is(err, ErrNilStrategy) {
			t.Errorf("expected ErrNilStrategy, got %v", err)
		}
		if err := m.Mount("[]", newFakeStrategy()); !errors.Is(err, ErrEmptyMountPath) {
			t.Errorf("expected ErrEmptyMountPath, got %v", err)
		}
		if err := m.Mount("avatar", newFakeStrategy()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := m.Mount("avatar[]", newFakeStrategy()); !errors.Is(err, ErrMountExists) {
			t.Errorf("expected ErrMountExists, got %v", err)
		}
		if err := m.Unmount("missing"); !errors.Is(err, ErrMountNotFound) {
			t.Errorf("expected ErrMountNotFound, got %v", err)
		}
		if err := m.Unmount("avatar"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("longest prefix wins", func(t *testing.T) {
		user := newFakeStrategy()
		docs := newFakeStrategy()
		fallback := newFakeStrategy()
		m := NewMountStrategy(fallback)
		if err := m.Mount("user", user); err != nil {
			t.Fatal(err)
		}
		if err := m.Mount("user[docs]", docs); err != nil {
			t.Fatal(err)
		}
		if got := strings.Join(m.MountPaths(), ","); got != "user/docs,user" {
			t.Errorf("MountPaths() = %q", got)
		}

		files := []*File{
			NewFile(FileHeader{Field: "user[avatar]", Filename: "me.png"}, []byte("a")),
			NewFile(FileHeader{Field: "user[docs][]", Filename: "cv.pdf"}, []byte("b")),
			NewFile(FileHeader{Field: "username_file", Filename: "x.txt"}, []byte("c")),
		}
		if _, err := m.SaveMany(context.Background(), files); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := user.get("me.png"); !ok {
			t.Error("me.png should be saved by the user mount")
		}
		if _, ok := docs.get("cv.pdf"); !ok {
			t.Error("cv.pdf should be saved by the user[docs] mount")
		}
		if _, ok := fallback.get("x.txt"); !ok {
			t.Error("x.txt should fall back")
		}
	})

	t.Run("no mount and no fallback", func(t *testing.T) {
		m := NewMountStrategy(nil)
		_, err := m.Save(context.Background(), NewFile(FileHeader{Field: "other", Filename: "a.txt"}, nil))
		if !IsUnbound(err) {
			t.Errorf("expected an unbound error, got %v", err)
		}
	})
}
