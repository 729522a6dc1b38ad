package mirror

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/mirrorkit/s3mirror/pkg/afero"
)

// LoadOption adjusts a single Load call.
type LoadOption func(*loadOptions)

type loadOptions struct {
	force bool
}

// WithForceDownload makes Load fetch the object even when a local copy
// exists.
func WithForceDownload() LoadOption {
	return func(o *loadOptions) {
		o.force = true
	}
}

// SaveOption adjusts a single Save call.
type SaveOption func(*saveOptions)

type saveOptions struct {
	skipUpload bool
}

// WithoutUpload makes Save write the local copy only, leaving the store
// untouched.
func WithoutUpload() SaveOption {
	return func(o *saveOptions) {
		o.skipUpload = true
	}
}

// Load decodes the mirrored file through the codec registered for its
// extension, downloading it first when the local copy is missing (or
// unconditionally with WithForceDownload).
func (p Path) Load(ctx context.Context, opts ...LoadOption) (interface{}, error) {
	var options loadOptions
	for _, o := range opts {
		o(&options)
	}

	codec, err := p.mirror.registry.Lookup(p.Extension())
	if err != nil {
		return nil, fmt.Errorf("mirror: loading %q: %w", p.key, err)
	}

	exists, err := p.ExistsInMirror()
	if err != nil {
		return nil, fmt.Errorf("mirror: loading %q: %w", p.key, err)
	}
	if options.force || !exists {
		if err := p.DownloadToMirror(ctx, options.force); err != nil {
			return nil, err
		}
	}

	f, err := p.mirror.fs.Open(p.LocalPath())
	if err != nil {
		return nil, fmt.Errorf("mirror: opening local copy of %q: %w", p.key, err)
	}
	defer f.Close()

	v, err := codec.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("mirror: decoding %q: %w", p.key, err)
	}
	return v, nil
}

// Save encodes v through the codec registered for the path's extension,
// writes the local copy atomically, then uploads it (unless suppressed with
// WithoutUpload).
func (p Path) Save(ctx context.Context, v interface{}, opts ...SaveOption) error {
	var options saveOptions
	for _, o := range opts {
		o(&options)
	}

	codec, err := p.mirror.registry.Lookup(p.Extension())
	if err != nil {
		return fmt.Errorf("mirror: saving %q: %w", p.key, err)
	}

	var buf bytes.Buffer
	if err := codec.Encode(&buf, v); err != nil {
		return fmt.Errorf("mirror: encoding %q: %w", p.key, err)
	}

	local := p.LocalPath()
	dir := filepath.Dir(local)
	if err := p.mirror.fs.MkdirAll(dir, mirrorDirPerm); err != nil {
		return fmt.Errorf("mirror: creating directory for %q: %w", p.key, err)
	}
	if err := afero.AtomicWriteFile(p.mirror.fs, dir, filepath.Base(local), buf.Bytes(), mirrorFilePerm, p.mirror.logger); err != nil {
		return fmt.Errorf("mirror: writing local copy of %q: %w", p.key, err)
	}

	if options.skipUpload {
		return nil
	}
	return p.UploadFromMirror(ctx, true)
}
