// Package formkit decodes multipart/form-data request bodies as a stream,
// rebuilds bracketed field names into a nested record, and hands every
// uploaded file to a pluggable persistence strategy.
//
// # Decoding
//
// An [Interceptor] sits in front of an http.Handler. Requests whose
// Content-Type is not multipart/form-data pass through untouched; the others
// are decoded into a [Session] that the handler retrieves from the request:
//
//	ic := formkit.NewInterceptor(
//	    formkit.WithStrategy(strategy),
//	    formkit.WithRenameFunc(formkit.UUIDRename),
//	)
//	http.Handle("/upload", ic.Middleware(http.HandlerFunc(upload)))
//
//	func upload(w http.ResponseWriter, r *http.Request) {
//	    session, _ := formkit.SessionFromRequest(r)
//	    name, _ := session.Record().LookupField("user[name]")
//	    locations, err := session.SaveAll()
//	}
//
// The lower level [Decoder] emits one [Event] per field and per file chunk,
// and [Assign] merges values into a [Record]:
//
//	user[name]=Ann, user[tags][]=x, user[tags][]=y
//	=> {"user": {"name": "Ann", "tags": ["x", "y"]}}
//
// A plain name seen twice becomes a list of both values; a name ending in
// "[]" is always a list.
//
// # Storage Backends
//
// Every backend implements [Strategy]. Drivers live in their own modules, so
// only the SDKs of the backends actually imported are compiled in:
//
//   - Local filesystem (github.com/gobeaver/formkit/driver/local)
//   - In-memory (github.com/gobeaver/formkit/driver/memory)
//   - Amazon S3 and compatible stores (github.com/gobeaver/formkit/driver/s3)
//   - Google Cloud Storage (github.com/gobeaver/formkit/driver/gcs)
//   - Azure Blob Storage (github.com/gobeaver/formkit/driver/azure)
//   - SFTP (github.com/gobeaver/formkit/driver/sftp)
//
// Importing a driver registers it, which lets [New] build it from a [Config].
//
// # Bulk Saves
//
// [SaveMany] saves files concurrently and waits for every one of them. If any
// fails the call returns a [*BulkSaveError] listing each failed file as
// "File <name> failed: <cause>", while the files that did succeed stay saved.
//
// # Routing
//
// [MountStrategy] sends each file to the strategy mounted at the longest
// matching field name prefix, and [SelectStrategy] to the first route whose
// [FileSelector] matches:
//
//	mounts := formkit.NewMountStrategy(defaultStore)
//	mounts.Mount("user[avatar]", avatarStore)
//
//	byType := formkit.NewSelectStrategy().
//	    Route(formkit.MediaType("image/*"), imageStore).
//	    Route(formkit.All(), defaultStore)
//
// # Decorators
//
//	// Encryption (AES-256-GCM)
//	encrypted, err := formkit.NewEncryptedStrategy(strategy, key)
//
//	// Pre-save checks
//	validated := formkit.NewValidatedStrategy(strategy, formkit.Constraints{
//	    MaxFileSize:   10 << 20,
//	    AcceptedTypes: []string{"image/*"},
//	})
//
// # Configuration
//
// formkit can be configured via environment variables with the FORMKIT_ prefix,
// or programmatically via the [Config] struct:
//
//	cfg := &formkit.Config{
//	    Driver:   "s3",
//	    S3Bucket: "my-bucket",
//	    S3Region: "us-west-2",
//	}
//	strategy, err := formkit.New(cfg)
package formkit
