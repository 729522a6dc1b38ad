// Package mirror pairs an S3 bucket with a local directory tree that caches
// its objects. A Mirror owns the pairing; a Path names one key on both sides
// and carries the segment, transfer, serialization and listing operations
// defined on it. Paths are immutable values, so they can be shared freely;
// the mirror directory itself is only as consistent as the transfers run
// against it.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mirrorkit/s3mirror/pkg/afero"
	"github.com/mirrorkit/s3mirror/pkg/formats"
	"github.com/mirrorkit/s3mirror/pkg/keys"
	"github.com/mirrorkit/s3mirror/pkg/logging"
)

// Mirror binds a Store to a local mirror root. Construct with NewMirror;
// the zero value is not usable.
type Mirror struct {
	config   *Config
	store    Store
	fs       afero.Fs
	registry *formats.Registry
	logger   logging.Interface
	root     string
}

// NewMirror builds a Mirror from its configuration and a store. A missing
// mirror root falls back to a fresh temporary directory, reported as a
// notice rather than an error.
func NewMirror(config *Config, store Store) (*Mirror, error) {
	if config == nil {
		config = &Config{}
	}
	if store == nil {
		return nil, errors.New("mirror: nil store")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger := config.AnotherLogger
	if logger == nil {
		logger = logging.Discard()
	}
	fs := config.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	registry := config.Registry
	if registry == nil {
		registry = formats.NewRegistry()
	}

	root := config.MirrorRoot
	if root == "" {
		tempRoot, err := afero.TempDir(fs, "", "s3mirror-")
		if err != nil {
			return nil, fmt.Errorf("mirror: creating fallback mirror root: %w", err)
		}
		root = tempRoot
		logger.WithField("mirror_root", root).
			Info("No mirror root configured, mirroring into a temporary directory")
	} else if err := fs.MkdirAll(root, mirrorDirPerm); err != nil {
		return nil, fmt.Errorf("mirror: creating mirror root %s: %w", root, err)
	}

	logger.WithField("bucket", store.Bucket()).
		WithField("mirror_root", root).
		Debug("Mirror initialized")

	return &Mirror{
		config:   config,
		store:    store,
		fs:       fs,
		registry: registry,
		logger:   logger,
		root:     root,
	}, nil
}

// Root returns the local mirror root directory.
func (m *Mirror) Root() string {
	return m.root
}

// Bucket returns the bucket this mirror is bound to.
func (m *Mirror) Bucket() string {
	return m.store.Bucket()
}

// FromKey wraps a bucket key in a Path. Leading delimiters are dropped so
// "a/b" and "/a/b" name the same object; a trailing delimiter is preserved
// in the key and marks a folder.
func (m *Mirror) FromKey(key string) Path {
	return Path{mirror: m, key: strings.TrimLeft(key, keys.Delimiter)}
}

// FromLocalPath maps a path under the mirror root back to a Path. Paths
// outside the root are an error.
func (m *Mirror) FromLocalPath(localPath string) (Path, error) {
	rel, err := filepath.Rel(m.root, localPath)
	if err != nil {
		return Path{}, fmt.Errorf("mirror: %s is not under the mirror root %s: %w", localPath, m.root, err)
	}
	if rel == "." {
		return m.FromKey(""), nil
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return Path{}, fmt.Errorf("mirror: %s is outside the mirror root %s", localPath, m.root)
	}
	return m.FromKey(filepath.ToSlash(rel)), nil
}

// LocalPathFor returns where a key lives under the mirror root.
func (m *Mirror) LocalPathFor(key string) string {
	return filepath.Join(m.root, filepath.FromSlash(strings.TrimSuffix(key, keys.Delimiter)))
}

// MatchingKeys lists the bucket scoped to the patterns' literal prefix and
// returns the keys matching all patterns, in listing order.
func (m *Mirror) MatchingKeys(ctx context.Context, patterns []keys.Segment) ([]string, error) {
	prefix := keys.ListPrefix(patterns)
	listing, err := m.store.ListKeys(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("mirror: listing keys under %q: %w", prefix, err)
	}
	return keys.Filter(patterns, listing), nil
}

// MatchingPaths is MatchingKeys with each match wrapped in a Path.
func (m *Mirror) MatchingPaths(ctx context.Context, patterns []keys.Segment) ([]Path, error) {
	matched, err := m.MatchingKeys(ctx, patterns)
	if err != nil {
		return nil, err
	}
	paths := make([]Path, len(matched))
	for i, key := range matched {
		paths[i] = m.FromKey(key)
	}
	return paths, nil
}

// LocalPaths walks the mirrored subtree under p and returns a Path for
// every regular file found, in walk order. The subtree may be a single
// file.
func (m *Mirror) LocalPaths(p Path) ([]Path, error) {
	var paths []Path
	err := afero.Walk(m.fs, p.LocalPath(), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		local, err := m.FromLocalPath(path)
		if err != nil {
			return err
		}
		paths = append(paths, local)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("mirror: walking %s: %w", p.LocalPath(), err)
	}
	return paths, nil
}
