package mirror

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mirrorkit/s3mirror/pkg/s3store"
)

// DownloadAll fetches every path into the mirror through a fixed worker
// pool with per-item retries. Paths with a valid local copy are skipped
// unless overwrite is set, with their sizes still reported as progress.
// The first failure is returned after the pool drains; other items are
// unaffected.
func (m *Mirror) DownloadAll(ctx context.Context, paths []Path, overwrite bool) error {
	if len(paths) == 0 {
		return nil
	}

	var total int64
	sizes, err := m.remoteSizes(ctx, paths)
	if err != nil {
		m.logger.WithError(err).Debug("Could not size the download up front")
	} else {
		for _, p := range paths {
			total += sizes[p.key]
		}
	}
	if total > 0 {
		m.warnIfLowSpace(total)
	}

	tracker := m.bulkTracker(total, len(paths))
	if err := m.runPool(ctx, paths, "download", func(ctx context.Context, p Path) error {
		return m.downloadOne(ctx, p, overwrite, tracker)
	}); err != nil {
		if tracker != nil {
			tracker.SetError(err)
		}
		return err
	}
	if tracker != nil {
		tracker.Complete()
	}
	return nil
}

// UploadAll pushes every path's local copy to the store through the same
// pool. Objects already in the store are skipped unless overwrite is set.
func (m *Mirror) UploadAll(ctx context.Context, paths []Path, overwrite bool) error {
	if len(paths) == 0 {
		return nil
	}

	var total int64
	for _, p := range paths {
		if size, err := p.SizeInMirror(); err == nil {
			total += size
		}
	}

	tracker := m.bulkTracker(total, len(paths))
	if err := m.runPool(ctx, paths, "upload", func(ctx context.Context, p Path) error {
		return m.uploadOne(ctx, p, overwrite, tracker)
	}); err != nil {
		if tracker != nil {
			tracker.SetError(err)
		}
		return err
	}
	if tracker != nil {
		tracker.Complete()
	}
	return nil
}

func (m *Mirror) bulkTracker(totalBytes int64, totalObjects int) *s3store.ProgressTracker {
	if m.config.Callback == nil {
		return nil
	}
	return s3store.NewProgressTracker(totalBytes, totalObjects, m.config.Callback)
}

// remoteSizes sizes the paths with one listing over their common prefix.
func (m *Mirror) remoteSizes(ctx context.Context, paths []Path) (map[string]int64, error) {
	objects, err := m.store.ListObjects(ctx, commonKeyPrefix(paths))
	if err != nil {
		return nil, err
	}
	sizes := make(map[string]int64, len(objects))
	for _, o := range objects {
		sizes[o.Key] = o.Size
	}
	return sizes, nil
}

func commonKeyPrefix(paths []Path) string {
	if len(paths) == 0 {
		return ""
	}
	prefix := paths[0].key
	for _, p := range paths[1:] {
		for !strings.HasPrefix(p.key, prefix) {
			prefix = prefix[:len(prefix)-1]
			if prefix == "" {
				return ""
			}
		}
	}
	return prefix
}

func (m *Mirror) warnIfLowSpace(total int64) {
	free, err := m.fs.Free(m.root)
	if err != nil {
		return
	}
	if uint64(total) > free {
		m.logger.Warnf("Transfer needs %d bytes but the mirror root has %d free", total, free)
	}
}

// runPool drains paths through a fixed number of workers, retrying each
// item before recording its failure. Cancellation is honored between items;
// in-flight transfers finish under the store's own rules.
func (m *Mirror) runPool(ctx context.Context, paths []Path, verb string, transfer func(context.Context, Path) error) error {
	jobs := make(chan Path, len(paths))
	errs := make(chan error, len(paths))
	var wg sync.WaitGroup

	attempts := m.config.retryAttempts()
	delay := m.config.retryDelay()

	for i := 0; i < m.config.workers(); i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for p := range jobs {
				if ctx.Err() != nil {
					errs <- ctx.Err()
					continue
				}
				var err error
				for attempt := 1; attempt <= attempts; attempt++ {
					err = transfer(ctx, p)
					if err == nil {
						break
					}
					if attempt < attempts {
						m.logger.Warnf("[Worker %d] Retry %d for %s after error: %v", workerID, attempt, p.Key(), err)
						select {
						case <-time.After(delay):
						case <-ctx.Done():
						}
					}
				}
				if err != nil {
					errs <- fmt.Errorf("failed to %s %s: %w", verb, p.Key(), err)
				}
			}
		}(i)
	}

	for _, p := range paths {
		jobs <- p
	}
	close(jobs)
	wg.Wait()
	close(errs)

	var first error
	failed := 0
	for err := range errs {
		if first == nil {
			first = err
		}
		failed++
	}
	if first != nil {
		m.logger.WithError(first).Errorf("%d of %d %s transfers failed", failed, len(paths), verb)
		return first
	}
	m.logger.Debugf("All %d %s transfers completed", len(paths), verb)
	return nil
}
