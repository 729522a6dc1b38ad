package mirror

import (
	"github.com/spf13/viper"
	"go.uber.org/fx"

	"github.com/mirrorkit/s3mirror/pkg/afero"
	"github.com/mirrorkit/s3mirror/pkg/logging"
	"github.com/mirrorkit/s3mirror/pkg/s3store"
)

// ProvideMirror builds a Mirror from the application viper, logger,
// filesystem and data store.
func ProvideMirror(v *viper.Viper, logger logging.Interface, fs afero.Fs, store *s3store.DataStore) (*Mirror, error) {
	config, err := NewConfig(
		WithViper(v),
		WithAnotherLog(logger),
		WithFs(fs),
	)
	if err != nil {
		return nil, err
	}
	return NewMirror(config, store)
}

var Module = fx.Provide(ProvideMirror)
