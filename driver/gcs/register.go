package gcs

import (
	"context"

	"cloud.google.com/go/storage"
	"github.com/gobeaver/formkit"
	"google.golang.org/api/option"
)

func init() {
	formkit.RegisterStrategy("gcs", func(cfg *formkit.Config) (formkit.Strategy, error) {
		ctx := context.Background()

		// Uses GOOGLE_APPLICATION_CREDENTIALS or default credentials unless a file is configured
		var clientOpts []option.ClientOption
		if cfg.GCSCredentialsFile != "" {
			clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.GCSCredentialsFile))
		}
		if cfg.GCSEndpoint != "" {
			clientOpts = append(clientOpts, option.WithEndpoint(cfg.GCSEndpoint))
		}

		client, err := storage.NewClient(ctx, clientOpts...)
		if err != nil {
			return nil, err
		}

		var options []AdapterOption
		if cfg.GCSPrefix != "" {
			options = append(options, WithPrefix(cfg.GCSPrefix))
		}
		if cfg.GCSEndpoint != "" {
			options = append(options, WithEndpoint(cfg.GCSEndpoint))
		}

		return New(client, cfg.GCSBucket, options...), nil
	})
}
