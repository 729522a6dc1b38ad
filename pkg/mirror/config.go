package mirror

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/mirrorkit/s3mirror/pkg/afero"
	"github.com/mirrorkit/s3mirror/pkg/formats"
	"github.com/mirrorkit/s3mirror/pkg/logging"
	"github.com/mirrorkit/s3mirror/pkg/s3store"
)

// Viper keys must match the `mapstructure` tags defined in the Config struct
const (
	MirrorRootViperKeyName      = "mirror_root"
	WorkersViperKeyName         = "workers"
	RetryAttemptsViperKeyName   = "retry_attempts"
	RetryDelayViperKeyName      = "retry_delay"
	VerifyChecksumsViperKeyName = "verify_checksums"
)

const (
	defaultWorkers       = 8
	defaultRetryAttempts = 3
	defaultRetryDelay    = 500 * time.Millisecond

	mirrorDirPerm  = 0o755
	mirrorFilePerm = 0o644
)

// ErrInvalidConfig indicates invalid mirror configuration
var ErrInvalidConfig = errors.New("mirror: invalid configuration")

// Config holds the configuration for a Mirror. Fields are populated using
// `viper`, environment values, or explicitly through Options. Collaborators
// (logger, filesystem, progress callback, format registry) ride along so a
// Mirror is fully specified by its Config plus a Store.
type Config struct {
	AnotherLogger logging.Interface        // Optional: Named logger for diagnostics
	Fs            afero.Fs                 // Local filesystem, OS-backed unless overridden
	Callback      s3store.ProgressCallback // Default progress callback for single transfers
	Registry      *formats.Registry        // Extension codecs for Load/Save

	MirrorRoot      string        `mapstructure:"mirror_root"`                               // Local directory the bucket mirrors into
	Workers         int           `mapstructure:"workers" validate:"omitempty,gte=1"`        // Bulk transfer pool size
	RetryAttempts   int           `mapstructure:"retry_attempts" validate:"omitempty,gte=1"` // Attempts per item in bulk transfers
	RetryDelay      time.Duration `mapstructure:"retry_delay"`                               // Pause between attempts
	VerifyChecksums bool          `mapstructure:"verify_checksums"`                          // Re-download cached copies that fail validation
}

// Option defines a functional configuration override for building a Config.
type Option func(*Config) error

// Apply applies a sequence of configuration options to the Config instance.
// It returns the first error encountered or nil if all options succeed.
func (c *Config) Apply(opts ...Option) error {
	for _, o := range opts {
		if o == nil {
			continue
		}
		if err := o(c); err != nil {
			return err
		}
	}
	return nil
}

// NewConfig constructs and returns a new Config by applying the given options.
// Returns an error if any option application fails.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{}
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

// WithViper returns a configuration Option that populates the Config fields using Viper.
// Assumes the config keys match the constants defined above.
func WithViper(v *viper.Viper) Option {
	return func(c *Config) error {
		c.MirrorRoot = v.GetString(MirrorRootViperKeyName)
		c.Workers = v.GetInt(WorkersViperKeyName)
		c.RetryAttempts = v.GetInt(RetryAttemptsViperKeyName)
		c.RetryDelay = v.GetDuration(RetryDelayViperKeyName)
		c.VerifyChecksums = v.GetBool(VerifyChecksumsViperKeyName)
		return nil
	}
}

// WithAnotherLog sets the logger to be used by the Config.
// Returns an error if the logger is nil.
func WithAnotherLog(logger logging.Interface) Option {
	return func(c *Config) error {
		if logger == nil {
			return errors.New("nil another logger")
		}
		c.AnotherLogger = logger
		return nil
	}
}

// WithMirrorRoot sets the local directory the bucket mirrors into.
func WithMirrorRoot(root string) Option {
	return func(c *Config) error {
		c.MirrorRoot = root
		return nil
	}
}

// WithFs sets the filesystem the mirror reads and writes through.
func WithFs(fs afero.Fs) Option {
	return func(c *Config) error {
		if fs == nil {
			return errors.New("nil filesystem")
		}
		c.Fs = fs
		return nil
	}
}

// WithProgressCallback sets the default callback single-path transfers
// report to. Bulk transfers report to it as one aggregate.
func WithProgressCallback(callback s3store.ProgressCallback) Option {
	return func(c *Config) error {
		c.Callback = callback
		return nil
	}
}

// WithRegistry overrides the format registry used by Load and Save.
func WithRegistry(registry *formats.Registry) Option {
	return func(c *Config) error {
		if registry == nil {
			return errors.New("nil format registry")
		}
		c.Registry = registry
		return nil
	}
}

// WithWorkers sets the bulk transfer pool size.
func WithWorkers(workers int) Option {
	return func(c *Config) error {
		c.Workers = workers
		return nil
	}
}

// Validate performs struct validation on the Config using go-playground/validator.
// Returns an error if required fields or conditions are not satisfied.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) workers() int {
	if c.Workers <= 0 {
		return defaultWorkers
	}
	return c.Workers
}

func (c *Config) retryAttempts() int {
	if c.RetryAttempts <= 0 {
		return defaultRetryAttempts
	}
	return c.RetryAttempts
}

func (c *Config) retryDelay() time.Duration {
	if c.RetryDelay <= 0 {
		return defaultRetryDelay
	}
	return c.RetryDelay
}
