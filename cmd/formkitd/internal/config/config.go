package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v2"

	"github.com/gobeaver/formkit"
)

// Server is the formkitd configuration file
type Server struct {
	API     Api                `yaml:"api"`
	Decoder Decoder            `yaml:"decoder"`
	Storage Storage            `yaml:"storage"`
	Mounts  map[string]Storage `yaml:"mounts"`
}

// Api configures the HTTP listener
type Api struct {
	HTTPAddr     string        `yaml:"http_addr"`
	MaxBodySize  string        `yaml:"max_body_size"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	CORS         CORS          `yaml:"cors"`
}

// CORS lists the cross-origin callers allowed to upload. Empty
// AllowedOrigins disables CORS handling.
type CORS struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	MaxAge           int      `yaml:"max_age"`
}

// Decoder configures multipart decoding. Sizes are human readable, such
// as "10MiB" or "512 KB".
type Decoder struct {
	MaxFileSize  string `yaml:"max_file_size"`
	MaxFieldSize string `yaml:"max_field_size"`
	MaxParts     int    `yaml:"max_parts"`
	Hash         string `yaml:"hash"`
	Rename       string `yaml:"rename"`
}

// Storage selects a persistence driver and its settings
type Storage struct {
	Driver          string   `yaml:"driver"`
	BasePath        string   `yaml:"base_path"`
	Bucket          string   `yaml:"bucket"`
	Prefix          string   `yaml:"prefix"`
	Region          string   `yaml:"region"`
	Endpoint        string   `yaml:"endpoint"`
	AccessKeyID     string   `yaml:"access_key_id"`
	SecretAccessKey string   `yaml:"secret_access_key"`
	CredentialsFile string   `yaml:"credentials_file"`
	AccountName     string   `yaml:"account_name"`
	AccountKey      string   `yaml:"account_key"`
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	Username        string   `yaml:"username"`
	Password        string   `yaml:"password"`
	PrivateKey      string   `yaml:"private_key"`
	AllowedTypes    []string `yaml:"allowed_types"`
	BlockedExts     []string `yaml:"blocked_extensions"`
	EncryptionKey   string   `yaml:"encryption_key"`
}

// Parse reads the config file at path. Values of the form ${NAME} are
// replaced by the environment.
func Parse(path string) (Server, error) {
	var cfg Server
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration without creating any client
func (s Server) Validate() error {
	if s.API.HTTPAddr == "" {
		return errors.New("api.http_addr is required")
	}
	if _, err := parseSize(s.API.MaxBodySize); err != nil {
		return fmt.Errorf("api.max_body_size: %w", err)
	}
	if s.API.ReadTimeout < 0 || s.API.WriteTimeout < 0 {
		return errors.New("api timeouts must not be negative")
	}
	if _, err := s.Decoder.Options(); err != nil {
		return fmt.Errorf("decoder: %w", err)
	}
	if s.Storage.Driver == "" {
		return errors.New("storage.driver is required")
	}
	for field, m := range s.Mounts {
		if m.Driver == "" {
			return fmt.Errorf("mounts.%s.driver is required", field)
		}
	}
	return nil
}

// MaxBodyBytes returns the request body limit, 0 for none
func (a Api) MaxBodyBytes() int64 {
	n, _ := parseSize(a.MaxBodySize)
	return n
}

// Options returns the decoder options described by d
func (d Decoder) Options() ([]formkit.Option, error) {
	var opts []formkit.Option

	if n, err := parseSize(d.MaxFileSize); err != nil {
		return nil, fmt.Errorf("max_file_size: %w", err)
	} else if n > 0 {
		opts = append(opts, formkit.WithMaxFileSize(n))
	}
	if n, err := parseSize(d.MaxFieldSize); err != nil {
		return nil, fmt.Errorf("max_field_size: %w", err)
	} else if n > 0 {
		opts = append(opts, formkit.WithMaxFieldSize(n))
	}
	if d.MaxParts < 0 {
		return nil, errors.New("max_parts must not be negative")
	}
	if d.MaxParts > 0 {
		opts = append(opts, formkit.WithMaxParts(d.MaxParts))
	}

	algo, err := formkit.ParseChecksumAlgorithm(d.Hash)
	if err != nil {
		return nil, fmt.Errorf("hash: %w", err)
	}
	opts = append(opts, formkit.WithHashAlgorithm(algo))

	switch strings.ToLower(d.Rename) {
	case "", "none":
	case "uuid":
		opts = append(opts, formkit.WithRenameFunc(formkit.UUIDRename))
	case "slug":
		opts = append(opts, formkit.WithRenameFunc(formkit.SlugRename))
	default:
		return nil, fmt.Errorf("unknown rename %q", d.Rename)
	}
	return opts, nil
}

// Formkit converts s to the configuration formkit.New expects
func (s Storage) Formkit() *formkit.Config {
	cfg := &formkit.Config{
		Driver:            s.Driver,
		LocalBasePath:     s.BasePath,
		AllowedMimeTypes:  strings.Join(s.AllowedTypes, ","),
		BlockedExtensions: strings.Join(s.BlockedExts, ","),

		S3Region:          s.Region,
		S3Prefix:          s.Prefix,
		S3Endpoint:        s.Endpoint,
		S3AccessKeyID:     s.AccessKeyID,
		S3SecretAccessKey: s.SecretAccessKey,
		S3ForcePathStyle:  s.Endpoint != "",

		GCSPrefix:          s.Prefix,
		GCSEndpoint:        s.Endpoint,
		GCSCredentialsFile: s.CredentialsFile,

		AzureAccountName: s.AccountName,
		AzureAccountKey:  s.AccountKey,
		AzurePrefix:      s.Prefix,
		AzureEndpoint:    s.Endpoint,

		SFTPHost:       s.Host,
		SFTPPort:       s.Port,
		SFTPUsername:   s.Username,
		SFTPPassword:   s.Password,
		SFTPPrivateKey: s.PrivateKey,
		SFTPBasePath:   s.BasePath,
	}
	switch s.Driver {
	case "s3":
		cfg.S3Bucket = s.Bucket
	case "gcs":
		cfg.GCSBucket = s.Bucket
	case "azure":
		cfg.AzureContainerName = s.Bucket
	}
	if cfg.S3Region == "" {
		cfg.S3Region = "us-east-1"
	}
	if cfg.SFTPPort == 0 {
		cfg.SFTPPort = 22
	}
	if s.EncryptionKey != "" {
		cfg.EncryptionEnabled = true
		cfg.EncryptionKey = s.EncryptionKey
	}
	return cfg
}

func parseSize(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}
