package formkit

import (
	"bytes"
	"strings"
	"testing"
)

func TestSplitExtension(t *testing.T) {
	tests := []struct {
		name     string
		wantBase string
		wantExt  string
		wantFull string
	}{
		{"photo.jpg", "photo", "jpg", "photo.jpg"},
		{"archive.tar.gz", "archive.tar", "gz", "archive.tar.gz"},
		{"README", "README", "", "README"},
		{".env", "", "env", ".env"},
		{"trailing.", "trailing", "", "trailing"},
		{`C:\Users\me\cv.pdf`, "cv", "pdf", "cv.pdf"},
		{"../../etc/passwd", "passwd", "", "passwd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, ext := SplitExtension(tt.name)
			if base != tt.wantBase || ext != tt.wantExt {
				t.Errorf("SplitExtension(%q) = %q, %q; want %q, %q", tt.name, base, ext, tt.wantBase, tt.wantExt)
			}
			if full := JoinExtension(base, ext); full != tt.wantFull {
				t.Errorf("JoinExtension = %q, want %q", full, tt.wantFull)
			}
		})
	}
}

func TestNewFile(t *testing.T) {
	content := []byte("hello world")
	f := NewFile(FileHeader{Field: "doc", Filename: "greeting.txt"}, content)

	if f.Field != "doc" || f.OriginalName != "greeting.txt" {
		t.Errorf("unexpected header fields: %+v", f)
	}
	if f.BaseName != "greeting" || f.Extension != "txt" || f.FullName != "greeting.txt" {
		t.Errorf("unexpected names: %q %q %q", f.BaseName, f.Extension, f.FullName)
	}
	if f.Encoding != DefaultEncoding {
		t.Errorf("Encoding = %q, want %q", f.Encoding, DefaultEncoding)
	}
	if f.MediaType != "text/plain" {
		t.Errorf("MediaType = %q, want text/plain", f.MediaType)
	}
	if f.Size != int64(len(content)) {
		t.Errorf("Size = %d", f.Size)
	}
	// md5("hello world")
	if f.Hash != "5eb63bbbe01eeed093cb22bb8f5acdc3" || f.HashAlgorithm != ChecksumMD5 {
		t.Errorf("Hash = %s (%s)", f.Hash, f.HashAlgorithm)
	}

	if !bytes.Equal(f.Content(), content) {
		t.Errorf("Content() = %q", f.Content())
	}
}

func TestFileContentIsCopied(t *testing.T) {
	f := NewFile(FileHeader{Field: "f", Filename: "a.bin"}, []byte("abc"))
	c := f.Content()
	c[0] = 'z'
	if string(f.Content()) != "abc" {
		t.Error("Content() must return a copy")
	}

	var buf bytes.Buffer
	n, err := f.WriteTo(&buf)
	if err != nil || n != 3 || buf.String() != "abc" {
		t.Errorf("WriteTo = %d, %v, %q", n, err, buf.String())
	}

	r := f.Reader()
	r.ReadByte()
	if again := f.Reader(); again.Len() != 3 {
		t.Error("each Reader should start at the beginning")
	}
}

func TestFileDeclaredMediaTypeWins(t *testing.T) {
	f := NewFile(FileHeader{Field: "f", Filename: "data.txt", MediaType: "application/x-custom", Encoding: "binary"}, []byte("x"))
	if f.MediaType != "application/x-custom" {
		t.Errorf("MediaType = %q", f.MediaType)
	}
	if f.Encoding != "binary" {
		t.Errorf("Encoding = %q", f.Encoding)
	}
}

func TestFileVerifyAndWithContent(t *testing.T) {
	f := NewFile(FileHeader{Field: "f", Filename: "a.txt"}, []byte("original"))
	if ok, err := f.Verify(); err != nil || !ok {
		t.Fatalf("Verify() = %v, %v", ok, err)
	}

	g, err := f.withContent([]byte("replaced content"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Size != int64(len("replaced content")) || g.Hash == f.Hash {
		t.Errorf("size and hash should follow the new content: %d %s", g.Size, g.Hash)
	}
	if g.FullName != f.FullName || string(f.Content()) != "original" {
		t.Error("withContent must not change names or the original file")
	}
	if ok, _ := g.Verify(); !ok {
		t.Error("recomputed hash should verify")
	}
}

func TestChecksums(t *testing.T) {
	tests := []struct {
		algo ChecksumAlgorithm
		want string
	}{
		{ChecksumMD5, "900150983cd24fb0d6963f7d28e17f72"},
		{ChecksumSHA1, "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{ChecksumSHA256, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{ChecksumCRC32, "352441c2"},
	}
	for _, tt := range tests {
		t.Run(string(tt.algo), func(t *testing.T) {
			got, err := CalculateChecksum(strings.NewReader("abc"), tt.algo)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("checksum = %s, want %s", got, tt.want)
			}
			if ok, _ := VerifyChecksum(strings.NewReader("abc"), strings.ToUpper(tt.want), tt.algo); !ok {
				t.Error("VerifyChecksum should ignore case")
			}
		})
	}

	if _, err := ParseChecksumAlgorithm("whirlpool"); err == nil {
		t.Error("expected an error for an unsupported algorithm")
	}
	if algo, _ := ParseChecksumAlgorithm(" SHA512 "); algo != ChecksumSHA512 {
		t.Errorf("ParseChecksumAlgorithm = %q", algo)
	}
	if algo, _ := ParseChecksumAlgorithm(""); algo != DefaultChecksum {
		t.Errorf("ParseChecksumAlgorithm(\"\") = %q", algo)
	}
}
