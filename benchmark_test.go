package formkit

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
)

func benchmarkBody(b *testing.B, files int, size int) ([]byte, string) {
	b.Helper()
	content := strings.Repeat("x", size)
	parts := []testPart{field("title", "bench"), field("user[name]", "Ann")}
	for i := 0; i < files; i++ {
		parts = append(parts, filePart("docs[]", fmt.Sprintf("doc-%d.bin", i), "application/octet-stream", content))
	}

	body, boundary := buildBody(b, parts...)
	return body.Bytes(), boundary
}

func BenchmarkDecode(b *testing.B) {
	cases := []struct {
		name  string
		files int
		size  int
		opts  []Option
	}{
		{"1x1KiB", 1, 1 << 10, nil},
		{"10x64KiB", 10, 64 << 10, nil},
		{"1x4MiB", 1, 4 << 20, nil},
		{"1x4MiB_sha256", 1, 4 << 20, []Option{WithHashAlgorithm(ChecksumSHA256)}},
		{"1x4MiB_xxhash", 1, 4 << 20, []Option{WithHashAlgorithm(ChecksumXXHash)}},
	}

	for _, c := range cases {
		body, boundary := benchmarkBody(b, c.files, c.size)
		b.Run(c.name, func(b *testing.B) {
			b.SetBytes(int64(len(body)))
			b.ReportAllocs()
			ctx := context.Background()
			for i := 0; i < b.N; i++ {
				dec := NewDecoder(bytes.NewReader(body), boundary, c.opts...)
				if _, err := dec.Decode(ctx); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkAssign(b *testing.B) {
	names := []string{"title", "tags[]", "user[name]", "user[address][city]", "docs[]"}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		rec := NewRecord()
		for _, name := range names {
			if err := Assign(rec, name, Text("v")); err != nil {
				b.Fatal(err)
			}
		}
	}
}

func BenchmarkSaveMany(b *testing.B) {
	files := make([]*File, 32)
	for i := range files {
		files[i] = NewFile(FileHeader{Field: "docs[]", Filename: fmt.Sprintf("doc-%d.txt", i)}, []byte("content"))
	}
	ctx := context.Background()

	for _, limit := range []int{0, 4} {
		b.Run(fmt.Sprintf("concurrency_%d", limit), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				s := newFakeStrategy()
				if _, err := SaveMany(ctx, s, files, WithConcurrency(limit)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
