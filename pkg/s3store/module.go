package s3store

import (
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/fx"

	"github.com/mirrorkit/s3mirror/pkg/logging"
)

// ProvideDataStore initializes a single DataStore using viper configuration
// and a logger. It is intended to be used as an fx provider.
func ProvideDataStore(v *viper.Viper, logger logging.Interface) (*DataStore, error) {
	config, err := NewConfig(WithViper(v), WithAnotherLog(logger))
	if err != nil {
		return nil, fmt.Errorf("error reading s3 store config: %w", err)
	}
	return NewDataStore(config)
}

// Module is an fx module that provides a singleton DataStore.
var Module = fx.Provide(
	ProvideDataStore,
)
