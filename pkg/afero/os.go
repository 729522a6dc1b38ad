package afero

import (
	"syscall"

	"github.com/spf13/afero"
)

type OsFs struct {
	*afero.OsFs
}

// Free returns the bytes available to unprivileged users on the filesystem
// holding path. Reserved blocks are excluded, matching what a mirror
// download can actually use.
func (m *OsFs) Free(path string) (uint64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

var _ Fs = (*OsFs)(nil)
var _ afero.Fs = (*OsFs)(nil)

func NewOsFs() Fs {
	return &OsFs{
		OsFs: afero.NewOsFs().(*afero.OsFs),
	}
}
