package formkit

import (
	"github.com/gobeaver/beaver-kit/config"
)

type Config struct {
	// Strategy driver to use (local, memory, s3, gcs, azure, sftp)
	Driver string `env:"FORMKIT_DRIVER,default:local"`

	// Local driver configuration
	LocalBasePath string `env:"FORMKIT_LOCAL_BASE_PATH,default:./public"`

	// S3 driver configuration
	S3Region          string `env:"FORMKIT_S3_REGION,default:us-east-1"`
	S3Bucket          string `env:"FORMKIT_S3_BUCKET"`
	S3Prefix          string `env:"FORMKIT_S3_PREFIX"`
	S3Endpoint        string `env:"FORMKIT_S3_ENDPOINT"`
	S3AccessKeyID     string `env:"FORMKIT_S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"FORMKIT_S3_SECRET_ACCESS_KEY"`
	S3ForcePathStyle  bool   `env:"FORMKIT_S3_FORCE_PATH_STYLE,default:false"`

	// GCS (Google Cloud Storage) driver configuration
	GCSBucket          string `env:"FORMKIT_GCS_BUCKET"`
	GCSPrefix          string `env:"FORMKIT_GCS_PREFIX"`
	GCSEndpoint        string `env:"FORMKIT_GCS_ENDPOINT"`
	GCSCredentialsFile string `env:"FORMKIT_GCS_CREDENTIALS_FILE"` // Path to service account JSON

	// Azure Blob Storage driver configuration
	AzureAccountName   string `env:"FORMKIT_AZURE_ACCOUNT_NAME"`
	AzureAccountKey    string `env:"FORMKIT_AZURE_ACCOUNT_KEY"`
	AzureContainerName string `env:"FORMKIT_AZURE_CONTAINER_NAME"`
	AzurePrefix        string `env:"FORMKIT_AZURE_PREFIX"`
	AzureEndpoint      string `env:"FORMKIT_AZURE_ENDPOINT"` // Optional custom endpoint

	// SFTP driver configuration
	SFTPHost       string `env:"FORMKIT_SFTP_HOST"`
	SFTPPort       int    `env:"FORMKIT_SFTP_PORT,default:22"`
	SFTPUsername   string `env:"FORMKIT_SFTP_USERNAME"`
	SFTPPassword   string `env:"FORMKIT_SFTP_PASSWORD"`
	SFTPPrivateKey string `env:"FORMKIT_SFTP_PRIVATE_KEY"` // Path to private key file
	SFTPBasePath   string `env:"FORMKIT_SFTP_BASE_PATH"`

	// Decoding
	HashAlgorithm string `env:"FORMKIT_HASH_ALGORITHM,default:md5"`
	MaxFileSize   int64  `env:"FORMKIT_MAX_FILE_SIZE,default:10485760"` // 10MB default
	MaxFieldSize  int64  `env:"FORMKIT_MAX_FIELD_SIZE,default:1048576"` // 1MB default
	MaxParts      int    `env:"FORMKIT_MAX_PARTS,default:1000"`
	RequestField  string `env:"FORMKIT_REQUEST_FIELD,default:body"`

	// File validation before save
	AllowedMimeTypes  string `env:"FORMKIT_ALLOWED_MIME_TYPES"` // comma-separated, globs allowed
	AllowedExtensions string `env:"FORMKIT_ALLOWED_EXTENSIONS"` // comma-separated
	BlockedExtensions string `env:"FORMKIT_BLOCKED_EXTENSIONS"` // comma-separated

	// Encryption settings
	EncryptionEnabled bool   `env:"FORMKIT_ENCRYPTION_ENABLED,default:false"`
	EncryptionKey     string `env:"FORMKIT_ENCRYPTION_KEY"` // base64, 32 bytes
}

// GetConfig returns config loaded from environment
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Options returns the decoder and interceptor options described by cfg.
func (cfg *Config) Options() ([]Option, error) {
	algo, err := ParseChecksumAlgorithm(cfg.HashAlgorithm)
	if err != nil {
		return nil, err
	}
	opts := []Option{
		WithHashAlgorithm(algo),
		WithMaxFileSize(cfg.MaxFileSize),
		WithMaxParts(cfg.MaxParts),
		WithRequestField(cfg.RequestField),
	}
	if cfg.MaxFieldSize > 0 {
		opts = append(opts, WithMaxFieldSize(cfg.MaxFieldSize))
	}
	return opts, nil
}

// Constraints returns the pre-save file checks described by cfg.
func (cfg *Config) Constraints() Constraints {
	return Constraints{
		AcceptedTypes: ParseList(cfg.AllowedMimeTypes),
		AllowedExts:   ParseList(cfg.AllowedExtensions),
		BlockedExts:   ParseList(cfg.BlockedExtensions),
	}
}
