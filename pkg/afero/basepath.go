package afero

import (
	"github.com/spf13/afero"
)

type BasePathFs struct {
	*afero.BasePathFs
	source Fs
}

// Free reports the space available on the underlying filesystem.
func (m *BasePathFs) Free(name string) (uint64, error) {
	path, err := m.BasePathFs.RealPath(name)
	if err != nil {
		return 0, err
	}

	return m.source.Free(path)
}

var _ Fs = (*BasePathFs)(nil)
var _ afero.Fs = (*BasePathFs)(nil)

func NewBasePathFs(source Fs, path string) Fs {
	return &BasePathFs{
		BasePathFs: afero.NewBasePathFs(source, path).(*afero.BasePathFs),
		source:     source,
	}
}
