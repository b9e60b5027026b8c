package formkit

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"github.com/gobeaver/beaver-kit/config"
)

// Global instance
var (
	defaultStrategy Strategy
	defaultOnce     sync.Once
	defaultErr      error
	defaultMu       sync.RWMutex
)

// Builder provides a way to create strategies with custom env prefixes
type Builder struct {
	prefix string
}

// WithPrefix creates a new Builder with the specified prefix
func WithPrefix(prefix string) *Builder {
	return &Builder{prefix: prefix}
}

// Config loads the configuration using the builder's prefix
func (b *Builder) Config() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: b.prefix}); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Init initializes the global strategy using the builder's prefix
func (b *Builder) Init() error {
	cfg, err := b.Config()
	if err != nil {
		return err
	}
	return Init(cfg)
}

// New creates a new strategy using the builder's prefix
func (b *Builder) New() (Strategy, error) {
	cfg, err := b.Config()
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

// Init initializes the global default strategy. It is used by interceptors
// that were not given a strategy of their own.
func Init(configs ...*Config) error {
	defaultOnce.Do(func() {
		var cfg *Config
		if len(configs) > 0 {
			cfg = configs[0]
		} else {
			cfg, defaultErr = GetConfig()
			if defaultErr != nil {
				return
			}
		}

		s, err := New(cfg)
		defaultMu.Lock()
		defaultStrategy, defaultErr = s, err
		defaultMu.Unlock()
	})

	return defaultErr
}

// New creates a new strategy with given config
func New(cfg *Config) (Strategy, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s, err := CreateStrategy(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create driver: %w", err)
	}

	if cfg.EncryptionEnabled && cfg.EncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(cfg.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("invalid encryption key: %w", err)
		}
		enc, err := NewEncryptedStrategy(s, key)
		if err != nil {
			return nil, fmt.Errorf("failed to create encrypted strategy: %w", err)
		}
		s = enc
	}

	// validation wraps encryption so it sees plaintext
	if c := cfg.Constraints(); !c.IsZero() {
		s = NewValidatedStrategy(s, c)
	}

	return s, nil
}

// validateConfig checks configuration validity
func validateConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if cfg.Driver == "" {
		return errors.New("driver is required")
	}

	switch cfg.Driver {
	case "local":
		if cfg.LocalBasePath == "" {
			return errors.New("local base path is required for local driver")
		}
	case "sftp":
		if cfg.SFTPHost == "" {
			return errors.New("SFTP host is required for sftp driver")
		}
	case "azure":
		if cfg.AzureAccountName == "" {
			return errors.New("Azure account name is required for azure driver")
		}
	}
	// Buckets may be supplied per save, so object stores need no bucket here

	if cfg.EncryptionEnabled && cfg.EncryptionKey == "" {
		return errors.New("encryption key is required when encryption is enabled")
	}
	if _, err := ParseChecksumAlgorithm(cfg.HashAlgorithm); err != nil {
		return err
	}

	return nil
}

// DefaultStrategy returns the global strategy, nil until Init succeeded
func DefaultStrategy() Strategy {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultStrategy
}

// Default returns the global strategy, initializing it from the environment if needed
func Default() (Strategy, error) {
	if s := DefaultStrategy(); s != nil {
		return s, nil
	}
	if err := Init(); err != nil {
		return nil, err
	}
	return DefaultStrategy(), nil
}

// NewFromEnv creates a strategy from environment variables (convenience constructor)
func NewFromEnv() (Strategy, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

// Reset clears the global instance (for testing)
func Reset() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultStrategy = nil
	defaultOnce = sync.Once{}
	defaultErr = nil
}
