package s3store

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/mirrorkit/s3mirror/pkg/configutils"
	"github.com/mirrorkit/s3mirror/pkg/logging"
)

// Viper keys must match the `mapstructure` tags defined in the Config struct
const (
	NameViperKeyName            = "name"
	BucketViperKeyName          = "bucket"
	RegionViperKeyName          = "region"
	EndpointViperKeyName        = "endpoint"
	ForcePathStyleViperKeyName  = "force_path_style"
	AccessKeyIDViperKeyName     = "access_key_id"
	SecretAccessKeyViperKeyName = "secret_access_key"
	SessionTokenViperKeyName    = "session_token"
	TransferViperKeyName        = "transfer"
)

// Config holds the configuration parameters required to initialize a DataStore.
// Fields are populated using `viper`, environment values, or explicitly through Options.
type Config struct {
	AnotherLogger logging.Interface // Optional: Named logger for diagnostics

	Name            string         `mapstructure:"name"`                                                   // Name for the configuration (useful in multi-store setup)
	Bucket          string         `mapstructure:"bucket" validate:"required"`                             // Bucket every key in this store resolves against
	Region          string         `mapstructure:"region"`                                                 // AWS region, empty defers to the SDK default chain
	Endpoint        string         `mapstructure:"endpoint"`                                               // Custom endpoint for S3-compatible services
	ForcePathStyle  bool           `mapstructure:"force_path_style"`                                       // Path-style addressing, required by most S3-compatibles
	AccessKeyID     string         `mapstructure:"access_key_id"`                                          // Optional static credentials
	SecretAccessKey string         `mapstructure:"secret_access_key" validate:"required_with=AccessKeyID"` // Secret for AccessKeyID
	SessionToken    string         `mapstructure:"session_token"`                                          // Optional session token for temporary credentials
	Transfer        TransferTuning `mapstructure:"transfer"`                                               // Transfer-manager tuning
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
		if err := configutils.BindEnvsRecursive(v, c, ""); err != nil {
			return fmt.Errorf("error occurred when binding environment variables: %+v", err)
		}

		c.Name = v.GetString(NameViperKeyName)
		c.Bucket = v.GetString(BucketViperKeyName)
		c.Region = v.GetString(RegionViperKeyName)
		c.Endpoint = v.GetString(EndpointViperKeyName)
		c.ForcePathStyle = v.GetBool(ForcePathStyleViperKeyName)
		c.AccessKeyID = v.GetString(AccessKeyIDViperKeyName)
		c.SecretAccessKey = v.GetString(SecretAccessKeyViperKeyName)
		c.SessionToken = v.GetString(SessionTokenViperKeyName)

		if err := v.UnmarshalKey(TransferViperKeyName, &c.Transfer); err != nil {
			return fmt.Errorf("error occurred when unmarshalling transfer tuning: %+v", err)
		}
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

// WithBucket sets the bucket the store operates on.
func WithBucket(bucket string) Option {
	return func(c *Config) error {
		c.Bucket = bucket
		return nil
	}
}

// WithRegion sets the AWS region.
func WithRegion(region string) Option {
	return func(c *Config) error {
		c.Region = region
		return nil
	}
}

// WithEndpoint points the store at an S3-compatible endpoint and switches to
// path-style addressing.
func WithEndpoint(endpoint string) Option {
	return func(c *Config) error {
		c.Endpoint = endpoint
		c.ForcePathStyle = true
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
