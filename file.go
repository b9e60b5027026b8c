package formkit

import (
	"bytes"
	"encoding/hex"
	"io"
	"strings"
)

// DefaultEncoding is reported for parts that declare no Content-Transfer-Encoding.
const DefaultEncoding = "7bit"

// FileHeader describes a file part as declared on the wire.
type FileHeader struct {
	// Field is the raw form field name, brackets included
	Field string
	// Filename is the client supplied name, unmodified
	Filename string
	// Encoding is the declared transfer encoding
	Encoding string
	// MediaType is the declared Content-Type of the part, if any
	MediaType string
}

// File is one decoded file part. It is built only after the part has been
// read to its end, so Size, Hash and the content always agree.
//
// A File has no behaviour of its own; it is persisted by handing it to a
// Strategy, usually through the Session it was decoded in.
type File struct {
	Field         string            `json:"field"`
	OriginalName  string            `json:"originalName"`
	BaseName      string            `json:"baseName"`
	FullName      string            `json:"fullName"`
	Extension     string            `json:"extension"`
	Encoding      string            `json:"encoding"`
	MediaType     string            `json:"mediaType"`
	Size          int64             `json:"size"`
	Hash          string            `json:"hash"`
	HashAlgorithm ChecksumAlgorithm `json:"hashAlgorithm"`

	content []byte
}

// NewFile builds a File from a complete payload using the default hash
// algorithm and no rename.
func NewFile(h FileHeader, content []byte) *File {
	hasher, _ := NewHasher(DefaultChecksum) // md5 is always available
	hasher.Write(content)
	base, _ := SplitExtension(h.Filename)
	return newFile(h, base, content, hex.EncodeToString(hasher.Sum(nil)), DefaultChecksum)
}

func newFile(h FileHeader, baseName string, content []byte, sum string, algo ChecksumAlgorithm) *File {
	_, ext := SplitExtension(h.Filename)

	encoding := h.Encoding
	if encoding == "" {
		encoding = DefaultEncoding
	}

	mediaType := h.MediaType
	if mediaType == "" {
		mediaType = GuessContentType(h.Filename, content)
	}

	return &File{
		Field:         h.Field,
		OriginalName:  h.Filename,
		BaseName:      baseName,
		FullName:      JoinExtension(baseName, ext),
		Extension:     ext,
		Encoding:      encoding,
		MediaType:     mediaType,
		Size:          int64(len(content)),
		Hash:          sum,
		HashAlgorithm: algo,
		content:       content,
	}
}

// Content returns a copy of the file payload.
func (f *File) Content() []byte {
	return bytes.Clone(f.content)
}

// Reader returns a reader over the file payload. Each call starts at the
// beginning of the content.
func (f *File) Reader() *bytes.Reader {
	return bytes.NewReader(f.content)
}

// WriteTo writes the payload to w.
func (f *File) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(f.content)
	return int64(n), err
}

// Verify reports whether the payload still hashes to f.Hash.
func (f *File) Verify() (bool, error) {
	return VerifyChecksum(f.Reader(), f.Hash, f.HashAlgorithm)
}

// withContent returns a copy of f carrying a different payload, with size and
// hash recomputed using the same algorithm.
func (f *File) withContent(content []byte) (*File, error) {
	sum, err := CalculateChecksum(bytes.NewReader(content), f.HashAlgorithm)
	if err != nil {
		return nil, err
	}
	clone := *f
	clone.content = content
	clone.Size = int64(len(content))
	clone.Hash = sum
	return &clone, nil
}

// SplitExtension splits a client file name into its base name and extension.
// Any directory part is dropped first. The extension is the text after the
// last dot; a name without a dot has an empty extension.
func SplitExtension(name string) (base, ext string) {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return name, ""
	}
	return name[:i], name[i+1:]
}

// JoinExtension is the inverse of SplitExtension.
func JoinExtension(base, ext string) string {
	if ext == "" {
		return base
	}
	return base + "." + ext
}
