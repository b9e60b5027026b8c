package azure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/gobeaver/formkit"
)

// BufferUploader is the part of the azblob client the adapter uses
type BufferUploader interface {
	UploadBuffer(ctx context.Context, containerName string, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
}

// Adapter saves files as blobs of an Azure Storage container
type Adapter struct {
	client        BufferUploader
	accountName   string
	containerName string
	prefix        string
	endpoint      string
	nameFunc      formkit.NameFunc
}

// AdapterOption is a function that configures Azure Adapter
type AdapterOption func(*Adapter)

// WithPrefix sets the blob name prefix
func WithPrefix(prefix string) AdapterOption {
	return func(a *Adapter) {
		a.prefix = strings.Trim(prefix, "/")
	}
}

// WithEndpoint sets a custom service endpoint, such as Azurite
func WithEndpoint(endpoint string) AdapterOption {
	return func(a *Adapter) {
		a.endpoint = endpoint
	}
}

// WithNameFunc computes the blob name of every file
func WithNameFunc(fn formkit.NameFunc) AdapterOption {
	return func(a *Adapter) {
		a.nameFunc = fn
	}
}

// New creates a new Azure Blob Storage adapter. The container may be empty
// when every save names one with formkit.WithBucket.
func New(client BufferUploader, accountName, containerName string, options ...AdapterOption) *Adapter {
	adapter := &Adapter{
		client:        client,
		accountName:   accountName,
		containerName: containerName,
	}

	for _, option := range options {
		option(adapter)
	}

	return adapter
}

// URL returns the location of a blob
func (a *Adapter) URL(container, blobName string) string {
	canonical := fmt.Sprintf("https://%s.blob.core.windows.net/%s/%s", a.accountName, container, blobName)
	return formkit.ObjectURL(a.endpoint, container, blobName, canonical)
}

// Save implements formkit.Strategy
func (a *Adapter) Save(ctx context.Context, f *formkit.File, options ...formkit.SaveOption) (string, error) {
	if f == nil {
		return "", formkit.ErrInvalidName
	}

	o := formkit.ApplySaveOptions(options...)
	container := o.Bucket
	if container == "" {
		container = a.containerName
	}
	if container == "" {
		return "", formkit.DestinationRequired("azure", "container is required")
	}

	name, err := formkit.ResolveName(ctx, f, o, a.nameFunc)
	if err != nil {
		return "", &formkit.PersistenceError{Op: "save", Name: f.FullName, Err: err}
	}
	blobName := formkit.ObjectKey(a.prefix, o.Path, name)

	contentType := o.MediaType(f)
	uploadOpts := &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: &contentType,
		},
	}
	if len(o.Metadata) > 0 {
		metadata := make(map[string]*string, len(o.Metadata))
		for k, v := range o.Metadata {
			val := v
			metadata[k] = &val
		}
		uploadOpts.Metadata = metadata
	}

	if _, err := a.client.UploadBuffer(ctx, container, blobName, f.Content(), uploadOpts); err != nil {
		return "", mapAzureError(name, err)
	}
	return a.URL(container, blobName), nil
}

// SaveMany implements formkit.BulkStrategy
func (a *Adapter) SaveMany(ctx context.Context, files []*formkit.File, options ...formkit.SaveOption) ([]string, error) {
	return formkit.SaveMany(ctx, a, files, options...)
}

// mapAzureError maps Azure errors to formkit errors
func mapAzureError(name string, err error) error {
	if bloberror.HasCode(err, bloberror.ContainerNotFound) {
		return &formkit.PersistenceError{Op: "save", Name: name, Err: fmt.Errorf("container not found: %w", err)}
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) && respErr.StatusCode == http.StatusForbidden {
		return &formkit.PersistenceError{Op: "save", Name: name, Err: fmt.Errorf("%w: %v", formkit.ErrNotAllowed, err)}
	}

	return &formkit.PersistenceError{Op: "save", Name: name, Err: err}
}

// Verify interface compliance at compile time
var _ formkit.BulkStrategy = (*Adapter)(nil)
