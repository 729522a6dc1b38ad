package mirror

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mirrorkit/s3mirror/pkg/afero"
	"github.com/mirrorkit/s3mirror/pkg/s3store"
)

// DownloadToMirror fetches the object into the mirror. With overwrite false
// an existing local copy turns the call into a no-op, with the copy's size
// still reported to the configured progress callback. When checksum
// verification is on, a cached copy that fails validation is downloaded
// again even without overwrite.
func (p Path) DownloadToMirror(ctx context.Context, overwrite bool) error {
	if p.isFolder() {
		return fmt.Errorf("mirror: %q is a folder key, match its files and use DownloadAll", p.key)
	}
	var total int64
	if p.mirror.config.Callback != nil {
		total, _ = p.mirror.store.KeySize(ctx, p.key)
	}
	return p.mirror.downloadOne(ctx, p, overwrite, p.mirror.singleTracker(total))
}

// UploadFromMirror pushes the local copy to the store. With overwrite false
// an existing object turns the call into a no-op, with the local size still
// reported to the configured progress callback.
func (p Path) UploadFromMirror(ctx context.Context, overwrite bool) error {
	if p.isFolder() {
		return fmt.Errorf("mirror: %q is a folder key, use LocalPaths and UploadAll", p.key)
	}
	var total int64
	if p.mirror.config.Callback != nil {
		total, _ = p.SizeInMirror()
	}
	return p.mirror.uploadOne(ctx, p, overwrite, p.mirror.singleTracker(total))
}

// singleTracker builds a one-object tracker feeding the configured
// callback, or nil when no callback is set.
func (m *Mirror) singleTracker(totalBytes int64) *s3store.ProgressTracker {
	if m.config.Callback == nil {
		return nil
	}
	return s3store.NewProgressTracker(totalBytes, 1, m.config.Callback)
}

func (m *Mirror) downloadOne(ctx context.Context, p Path, overwrite bool, tracker *s3store.ProgressTracker) error {
	local := p.LocalPath()

	if !overwrite {
		exists, err := afero.Exists(m.fs, local)
		if err != nil {
			return fmt.Errorf("mirror: checking local copy of %q: %w", p.key, err)
		}
		if exists {
			if !m.config.VerifyChecksums {
				m.skipTransfer(p, tracker)
				return nil
			}
			valid, err := m.store.IsLocalCopyValid(ctx, p.key, local)
			if err == nil && valid {
				m.skipTransfer(p, tracker)
				return nil
			}
			m.logger.WithField("key", p.key).
				Info("Cached copy failed validation, downloading again")
		}
	}

	if err := m.fs.MkdirAll(filepath.Dir(local), mirrorDirPerm); err != nil {
		return fmt.Errorf("mirror: creating directory for %q: %w", p.key, err)
	}

	var opts []s3store.DownloadOption
	if tracker != nil {
		opts = append(opts, s3store.WithDownloadTracker(tracker))
	}
	if err := m.store.DownloadToFile(ctx, p.key, local, opts...); err != nil {
		return fmt.Errorf("mirror: downloading %q: %w", p.key, err)
	}
	if tracker != nil {
		tracker.CompleteObject()
	}
	return nil
}

func (m *Mirror) uploadOne(ctx context.Context, p Path, overwrite bool, tracker *s3store.ProgressTracker) error {
	if !overwrite {
		exists, err := m.store.KeyExists(ctx, p.key)
		if err != nil {
			return fmt.Errorf("mirror: checking %q in the store: %w", p.key, err)
		}
		if exists {
			m.skipTransfer(p, tracker)
			return nil
		}
	}

	var opts []s3store.UploadOption
	if tracker != nil {
		opts = append(opts, s3store.WithUploadTracker(tracker))
	}
	if err := m.store.UploadFile(ctx, p.key, p.LocalPath(), opts...); err != nil {
		return fmt.Errorf("mirror: uploading %q: %w", p.key, err)
	}
	if tracker != nil {
		tracker.CompleteObject()
	}
	return nil
}

// skipTransfer accounts for a transfer that never ran because a valid copy
// already exists. The copy's size counts as transferred so aggregate
// progress still reaches its total.
func (m *Mirror) skipTransfer(p Path, tracker *s3store.ProgressTracker) {
	m.logger.WithField("key", p.key).Debug("Copy already present, skipping transfer")
	if tracker == nil {
		return
	}
	size, err := p.SizeInMirror()
	if err != nil {
		size = 0
	}
	tracker.SetCurrentKey(p.key)
	tracker.SkipObject(size)
}
