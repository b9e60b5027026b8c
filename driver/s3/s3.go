package s3

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gobeaver/formkit"
)

// DefaultRegion is used for canonical URLs when no region is configured.
const DefaultRegion = "us-east-1"

// PutObjectAPI is the part of the S3 client the adapter uses
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Adapter saves files as objects of an S3 or S3 compatible bucket
type Adapter struct {
	client   PutObjectAPI
	bucket   string
	prefix   string
	region   string
	endpoint string
	nameFunc formkit.NameFunc
}

// AdapterOption is a function that configures Adapter
type AdapterOption func(*Adapter)

// WithPrefix sets the key prefix for S3 objects
func WithPrefix(prefix string) AdapterOption {
	return func(a *Adapter) {
		a.prefix = strings.Trim(prefix, "/")
	}
}

// WithRegion sets the region used in canonical object URLs
func WithRegion(region string) AdapterOption {
	return func(a *Adapter) {
		if region != "" {
			a.region = region
		}
	}
}

// WithEndpoint sets a custom endpoint. Object URLs become
// endpoint/bucket/key.
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

// New creates a new S3 adapter. The bucket may be empty when every save
// names one with formkit.WithBucket.
func New(client PutObjectAPI, bucket string, options ...AdapterOption) *Adapter {
	adapter := &Adapter{
		client: client,
		bucket: bucket,
		region: DefaultRegion,
	}

	for _, option := range options {
		option(adapter)
	}

	return adapter
}

// Bucket resolves the bucket of a save: the per-call bucket, else the
// adapter's.
func (a *Adapter) Bucket(o formkit.SaveOptions) (string, error) {
	if o.Bucket != "" {
		return o.Bucket, nil
	}
	if a.bucket != "" {
		return a.bucket, nil
	}
	return "", formkit.DestinationRequired("s3", "bucket is required")
}

// URL returns the location of key in bucket
func (a *Adapter) URL(bucket, key string) string {
	canonical := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, a.region, key)
	return formkit.ObjectURL(a.endpoint, bucket, key, canonical)
}

// Save implements formkit.Strategy
func (a *Adapter) Save(ctx context.Context, f *formkit.File, options ...formkit.SaveOption) (string, error) {
	if f == nil {
		return "", formkit.ErrInvalidName
	}

	o := formkit.ApplySaveOptions(options...)
	bucket, err := a.Bucket(o)
	if err != nil {
		return "", err
	}
	name, err := formkit.ResolveName(ctx, f, o, a.nameFunc)
	if err != nil {
		return "", &formkit.PersistenceError{Op: "save", Name: f.FullName, Err: err}
	}
	key := formkit.ObjectKey(a.prefix, o.Path, name)

	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          f.Reader(),
		ContentLength: aws.Int64(f.Size),
	}
	if ct := o.MediaType(f); ct != "" {
		input.ContentType = aws.String(ct)
	}
	if md5 := contentMD5(f); md5 != "" {
		input.ContentMD5 = aws.String(md5)
	}
	if len(o.Metadata) > 0 {
		metadata := make(map[string]string, len(o.Metadata))
		for k, v := range o.Metadata {
			metadata[k] = v
		}
		input.Metadata = metadata
	}

	if _, err := a.client.PutObject(ctx, input); err != nil {
		return "", mapS3Error(name, bucket, err)
	}

	return a.URL(bucket, key), nil
}

// SaveMany implements formkit.BulkStrategy
func (a *Adapter) SaveMany(ctx context.Context, files []*formkit.File, options ...formkit.SaveOption) ([]string, error) {
	return formkit.SaveMany(ctx, a, files, options...)
}

// contentMD5 returns the base64 MD5 S3 uses to verify the upload, when the
// file was hashed with MD5.
func contentMD5(f *formkit.File) string {
	if f.HashAlgorithm != formkit.ChecksumMD5 {
		return ""
	}
	raw, err := hex.DecodeString(f.Hash)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(raw)
}

// mapS3Error converts S3 errors to formkit errors
func mapS3Error(name, bucket string, err error) error {
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return &formkit.PersistenceError{Op: "save", Name: name, Err: fmt.Errorf("bucket %s does not exist: %w", bucket, err)}
	}
	return &formkit.PersistenceError{Op: "save", Name: name, Err: err}
}

// Verify interface compliance at compile time
var _ formkit.BulkStrategy = (*Adapter)(nil)
