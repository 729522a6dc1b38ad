package afero

import (
	"sync"

	"github.com/spf13/afero"
)

// defaultMemFree is what an in-mem fs reports as available space. Large
// enough that tests never trip free-space checks unless they ask to.
const defaultMemFree = uint64(1) << 40

type MemMapFs struct {
	*afero.MemMapFs

	sync.Mutex
	free uint64
}

// Free returns the simulated available space.
func (m *MemMapFs) Free(path string) (uint64, error) {
	m.Lock()
	defer m.Unlock()

	return m.free, nil
}

// SetFree overrides the simulated available space, letting tests exercise
// full-disk behavior.
func (m *MemMapFs) SetFree(free uint64) {
	m.Lock()
	defer m.Unlock()

	m.free = free
}

var _ Fs = (*MemMapFs)(nil)
var _ afero.Fs = (*MemMapFs)(nil)

func NewMemMapFs() Fs {
	return &MemMapFs{
		MemMapFs: afero.NewMemMapFs().(*afero.MemMapFs),
		free:     defaultMemFree,
	}
}
