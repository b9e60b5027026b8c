package formkit

import (
	"context"
	"testing"
)

func TestSelectors(t *testing.T) {
	png := NewFile(FileHeader{Field: "f", Filename: "Photo.PNG", MediaType: "image/png"}, make([]byte, 10))
	pdf := NewFile(FileHeader{Field: "f", Filename: "cv.pdf", MediaType: "application/pdf"}, make([]byte, 100))

	small := FuncSelector(func(f *File) bool { return f.Size < 50 })

	tests := []struct {
		name string
		sel  FileSelector
		file *File
		want bool
	}{
		{"all", All(), pdf, true},
		{"glob ignores case", Glob("*.png"), png, true},
		{"glob alternatives", Glob("*.{jpg,pdf}"), pdf, true},
		{"glob miss", Glob("*.jpg"), png, false},
		{"invalid glob", Glob("[a"), png, false},
		{"media type wildcard", MediaType("image/*"), png, true},
		{"media type list", MediaType("text/plain", "application/pdf"), pdf, true},
		{"media type miss", MediaType("image/*"), pdf, false},
		{"and", And(MediaType("image/*"), small), png, true},
		{"and miss", And(MediaType("application/pdf"), small), pdf, false},
		{"or", Or(Glob("*.doc"), MediaType("application/pdf")), pdf, true},
		{"not", Not(small), pdf, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sel.Match(tt.file); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectStrategy(t *testing.T) {
	images := newFakeStrategy()
	docs := newFakeStrategy()
	s := NewSelectStrategy().
		Route(MediaType("image/*"), images).
		Route(Glob("*.pdf"), docs)
	ctx := context.Background()

	png := NewFile(FileHeader{Field: "f", Filename: "a.png", MediaType: "image/png"}, []byte("p"))
	pdf := NewFile(FileHeader{Field: "f", Filename: "b.pdf", MediaType: "application/pdf"}, []byte("d"))
	zip := NewFile(FileHeader{Field: "f", Filename: "c.zip", MediaType: "application/zip"}, []byte("z"))

	if _, err := s.SaveMany(ctx, []*File{png, pdf}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := images.get("a.png"); !ok {
		t.Error("a.png should be routed to images")
	}
	if _, ok := docs.get("b.pdf"); !ok {
		t.Error("b.pdf should be routed to docs")
	}

	if _, err := s.Save(ctx, zip); !IsUnbound(err) {
		t.Errorf("expected an unbound error for an unrouted file, got %v", err)
	}
}
