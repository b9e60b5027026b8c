package gcs

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/gobeaver/formkit"
)

// Object describes one upload
type Object struct {
	Bucket      string
	Key         string
	ContentType string
	Metadata    map[string]string
	MD5         []byte
	Body        io.Reader
}

// Uploader writes one object. The adapter uses the storage client through
// this interface so tests can replace it.
type Uploader interface {
	Upload(ctx context.Context, obj Object) error
}

type clientUploader struct {
	client *storage.Client
}

func (u clientUploader) Upload(ctx context.Context, obj Object) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	writer := u.client.Bucket(obj.Bucket).Object(obj.Key).NewWriter(ctx)
	writer.ContentType = obj.ContentType
	if len(obj.Metadata) > 0 {
		writer.Metadata = obj.Metadata
	}
	if obj.MD5 != nil {
		writer.MD5 = obj.MD5
	}

	if _, err := io.Copy(writer, obj.Body); err != nil {
		// cancelling the context aborts the upload
		cancel()
		writer.Close()
		return err
	}
	return writer.Close()
}

// Adapter saves files as objects of a Google Cloud Storage bucket
type Adapter struct {
	uploader Uploader
	bucket   string
	prefix   string
	endpoint string
	nameFunc formkit.NameFunc
}

// AdapterOption is a function that configures GCS Adapter
type AdapterOption func(*Adapter)

// WithPrefix sets the key prefix for GCS objects
func WithPrefix(prefix string) AdapterOption {
	return func(a *Adapter) {
		a.prefix = strings.Trim(prefix, "/")
	}
}

// WithEndpoint sets a custom endpoint, such as an emulator
func WithEndpoint(endpoint string) AdapterOption {
	return func(a *Adapter) {
		a.endpoint = endpoint
	}
}

// WithNameFunc computes the object name of every file
func WithNameFunc(fn formkit.NameFunc) AdapterOption {
	return func(a *Adapter) {
		a.nameFunc = fn
	}
}

// New creates a new GCS adapter
func New(client *storage.Client, bucket string, options ...AdapterOption) *Adapter {
	return NewWithUploader(clientUploader{client: client}, bucket, options...)
}

// NewWithUploader creates a GCS adapter writing through u
func NewWithUploader(u Uploader, bucket string, options ...AdapterOption) *Adapter {
	adapter := &Adapter{
		uploader: u,
		bucket:   bucket,
	}

	for _, option := range options {
		option(adapter)
	}

	return adapter
}

// URL returns the location of key in bucket
func (a *Adapter) URL(bucket, key string) string {
	canonical := fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, key)
	return formkit.ObjectURL(a.endpoint, bucket, key, canonical)
}

// Save implements formkit.Strategy
func (a *Adapter) Save(ctx context.Context, f *formkit.File, options ...formkit.SaveOption) (string, error) {
	if f == nil {
		return "", formkit.ErrInvalidName
	}

	o := formkit.ApplySaveOptions(options...)
	bucket := o.Bucket
	if bucket == "" {
		bucket = a.bucket
	}
	if bucket == "" {
		return "", formkit.DestinationRequired("gcs", "bucket is required")
	}

	name, err := formkit.ResolveName(ctx, f, o, a.nameFunc)
	if err != nil {
		return "", &formkit.PersistenceError{Op: "save", Name: f.FullName, Err: err}
	}
	key := formkit.ObjectKey(a.prefix, o.Path, name)

	obj := Object{
		Bucket:      bucket,
		Key:         key,
		ContentType: o.MediaType(f),
		Metadata:    o.Metadata,
		Body:        f.Reader(),
	}
	if f.HashAlgorithm == formkit.ChecksumMD5 {
		if sum, err := hex.DecodeString(f.Hash); err == nil {
			obj.MD5 = sum
		}
	}

	if err := a.uploader.Upload(ctx, obj); err != nil {
		return "", mapGCSError(name, bucket, err)
	}
	return a.URL(bucket, key), nil
}

// SaveMany implements formkit.BulkStrategy
func (a *Adapter) SaveMany(ctx context.Context, files []*formkit.File, options ...formkit.SaveOption) ([]string, error) {
	return formkit.SaveMany(ctx, a, files, options...)
}

// mapGCSError converts GCS errors to formkit errors
func mapGCSError(name, bucket string, err error) error {
	if errors.Is(err, storage.ErrBucketNotExist) {
		return &formkit.PersistenceError{Op: "save", Name: name, Err: fmt.Errorf("bucket %s does not exist: %w", bucket, err)}
	}
	return &formkit.PersistenceError{Op: "save", Name: name, Err: err}
}

// Verify interface compliance at compile time
var _ formkit.BulkStrategy = (*Adapter)(nil)
