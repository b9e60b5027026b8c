package formkit

import (
	"context"
	"net/http"

	"github.com/go-kit/log"
)

// DefaultRequestField is the request field a decoded session is attached under.
const DefaultRequestField = "body"

// DefaultMaxFieldSize bounds a single text field when no limit is configured.
const DefaultMaxFieldSize int64 = 10 << 20

// RenameFunc computes the stored base name of a file from its client base
// name, extension removed. The extension is re-appended by the decoder.
type RenameFunc func(ctx context.Context, baseName string) (string, error)

// ErrorHandler writes the response for a request whose body failed to decode.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Option configures a Decoder or an Interceptor
type Option func(*Options)

// Options contains the decode and interception settings
type Options struct {
	// MaxFileSize is the largest accepted file part in bytes, 0 for no limit
	MaxFileSize int64

	// MaxFieldSize is the largest accepted text field in bytes
	MaxFieldSize int64

	// MaxParts is the largest number of parts in one body, 0 for no limit
	MaxParts int

	// ChunkSize is the read size used while streaming a file part
	ChunkSize int

	// HashAlgorithm selects the content hash computed for every file
	HashAlgorithm ChecksumAlgorithm

	// Rename transforms file base names
	Rename RenameFunc

	// Strategy is bound to every session. When nil the process default is used.
	Strategy Strategy

	// RequestField is the key the session is attached under
	RequestField string

	// Logger receives decode diagnostics
	Logger log.Logger

	// ErrorHandler answers requests that fail to decode
	ErrorHandler ErrorHandler
}

func defaultOptions() Options {
	return Options{
		MaxFieldSize:  DefaultMaxFieldSize,
		ChunkSize:     32 * 1024,
		HashAlgorithm: DefaultChecksum,
		RequestField:  DefaultRequestField,
		Logger:        log.NewNopLogger(),
		ErrorHandler:  DefaultErrorHandler,
	}
}

func processOptions(opts ...Option) Options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithMaxFileSize limits the size of a single file part
func WithMaxFileSize(n int64) Option {
	return func(o *Options) {
		o.MaxFileSize = n
	}
}

// WithMaxFieldSize limits the size of a single text field
func WithMaxFieldSize(n int64) Option {
	return func(o *Options) {
		o.MaxFieldSize = n
	}
}

// WithMaxParts limits the number of parts in one body
func WithMaxParts(n int) Option {
	return func(o *Options) {
		o.MaxParts = n
	}
}

// WithChunkSize sets the read size used while streaming file parts
func WithChunkSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.ChunkSize = n
		}
	}
}

// WithHashAlgorithm selects the content hash algorithm
func WithHashAlgorithm(algo ChecksumAlgorithm) Option {
	return func(o *Options) {
		o.HashAlgorithm = algo
	}
}

// WithRenameFunc sets the file rename transform
func WithRenameFunc(fn RenameFunc) Option {
	return func(o *Options) {
		o.Rename = fn
	}
}

// WithStrategy binds a persistence strategy to every session. Without one,
// sessions use the process default from Default.
func WithStrategy(s Strategy) Option {
	return func(o *Options) {
		o.Strategy = s
	}
}

// WithRequestField sets the key sessions are attached under
func WithRequestField(field string) Option {
	return func(o *Options) {
		if field != "" {
			o.RequestField = field
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithErrorHandler sets the handler for decode failures
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *Options) {
		if h != nil {
			o.ErrorHandler = h
		}
	}
}

// SaveOption configures a single save call
type SaveOption func(*SaveOptions)

// SaveOptions contains the per-call settings of a save
type SaveOptions struct {
	// Path is a sub-directory, or key prefix, below the strategy destination
	Path string

	// Name replaces the file's FullName
	Name string

	// Bucket overrides the bucket or container of object store strategies
	Bucket string

	// ContentType replaces the file's MediaType
	ContentType string

	// Metadata is stored alongside the object where the backend supports it
	Metadata map[string]string

	// Concurrency bounds the parallel saves of a bulk save, 0 for one per file
	Concurrency int
}

// ApplySaveOptions folds opts into a SaveOptions value
func ApplySaveOptions(opts ...SaveOption) SaveOptions {
	var o SaveOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithPath sets the sub-directory of the save
func WithPath(p string) SaveOption {
	return func(o *SaveOptions) {
		o.Path = p
	}
}

// WithName sets the stored name of the file. Bulk saves of more than one
// file reject it.
func WithName(name string) SaveOption {
	return func(o *SaveOptions) {
		o.Name = name
	}
}

// WithBucket sets the bucket or container of the save
func WithBucket(bucket string) SaveOption {
	return func(o *SaveOptions) {
		o.Bucket = bucket
	}
}

// WithContentType sets the stored content type
func WithContentType(contentType string) SaveOption {
	return func(o *SaveOptions) {
		o.ContentType = contentType
	}
}

// WithMetadata sets additional metadata for the object
func WithMetadata(metadata map[string]string) SaveOption {
	return func(o *SaveOptions) {
		o.Metadata = metadata
	}
}

// WithConcurrency bounds the parallelism of a bulk save
func WithConcurrency(n int) SaveOption {
	return func(o *SaveOptions) {
		o.Concurrency = n
	}
}

// MediaType returns the content type to store f with.
func (o SaveOptions) MediaType(f *File) string {
	if o.ContentType != "" {
		return o.ContentType
	}
	return f.MediaType
}
