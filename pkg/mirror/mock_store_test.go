package mirror

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mirrorkit/s3mirror/pkg/afero"
	"github.com/mirrorkit/s3mirror/pkg/s3store"
)

// fakeStore keeps objects in a map and reads/writes local files through the
// same filesystem the mirror under test uses.
type fakeStore struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
	fs      afero.Fs

	// failDownloads maps a key to how many times its download should fail
	// before succeeding
	failDownloads map[string]int
	failUploads   map[string]int

	downloads []string
	uploads   []string
	deletes   []string
	listCalls int
}

func newFakeStore(fs afero.Fs) *fakeStore {
	return &fakeStore{
		bucket:        "test-bucket",
		objects:       make(map[string][]byte),
		fs:            fs,
		failDownloads: make(map[string]int),
		failUploads:   make(map[string]int),
	}
}

func (f *fakeStore) putObject(key string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
}

func (f *fakeStore) Bucket() string {
	return f.bucket
}

func (f *fakeStore) sortedKeys(prefix string) []string {
	var matched []string
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			matched = append(matched, key)
		}
	}
	sort.Strings(matched)
	return matched
}

func (f *fakeStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.sortedKeys(prefix), nil
}

func (f *fakeStore) ListObjects(ctx context.Context, prefix string) ([]s3store.ObjectSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var objects []s3store.ObjectSummary
	for _, key := range f.sortedKeys(prefix) {
		objects = append(objects, s3store.ObjectSummary{
			Key:  key,
			Size: int64(len(f.objects[key])),
			ETag: fmt.Sprintf("etag-%s", key),
		})
	}
	return objects, nil
}

func (f *fakeStore) ListChildKeys(ctx context.Context, key string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prefix := strings.TrimSuffix(key, "/")
	if prefix != "" {
		prefix += "/"
	}

	seen := make(map[string]bool)
	var children []string
	for _, obj := range f.sortedKeys(prefix) {
		rest := strings.TrimPrefix(obj, prefix)
		if rest == "" {
			continue
		}
		if i := strings.Index(rest, "/"); i >= 0 {
			folder := prefix + rest[:i+1]
			if !seen[folder] {
				seen[folder] = true
				children = append(children, folder)
			}
			continue
		}
		children = append(children, obj)
	}
	return children, nil
}

func (f *fakeStore) keyState(key string) (isFile, isFolder bool) {
	norm := strings.TrimSuffix(key, "/")
	trailing := strings.HasSuffix(key, "/")
	if _, ok := f.objects[norm]; ok && !trailing {
		isFile = true
	}
	for obj := range f.objects {
		if strings.HasPrefix(obj, norm+"/") {
			isFolder = true
			break
		}
	}
	return isFile, isFolder
}

func (f *fakeStore) KeyExists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	isFile, isFolder := f.keyState(key)
	return isFile || isFolder, nil
}

func (f *fakeStore) KeyIsFile(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	isFile, isFolder := f.keyState(key)
	if !isFile && !isFolder {
		return false, fmt.Errorf("key %s: %w", key, s3store.ErrKeyNotFound)
	}
	return isFile, nil
}

func (f *fakeStore) KeySize(ctx context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	isFile, isFolder := f.keyState(key)
	if isFile {
		return int64(len(f.objects[strings.TrimSuffix(key, "/")])), nil
	}
	if isFolder {
		return 0, nil
	}
	return 0, fmt.Errorf("key %s: %w", key, s3store.ErrKeyNotFound)
}

func (f *fakeStore) DownloadToFile(ctx context.Context, key string, localPath string, opts ...s3store.DownloadOption) error {
	f.mu.Lock()
	if f.failDownloads[key] > 0 {
		f.failDownloads[key]--
		f.mu.Unlock()
		return fmt.Errorf("simulated download failure for %s", key)
	}
	data, ok := f.objects[key]
	f.downloads = append(f.downloads, key)
	f.mu.Unlock()

	if !ok {
		return fmt.Errorf("key %s: %w", key, s3store.ErrKeyNotFound)
	}
	if err := afero.WriteFile(f.fs, localPath, data, 0644); err != nil {
		return err
	}
	applyDownloadTracker(opts, int64(len(data)))
	return nil
}

func (f *fakeStore) UploadFile(ctx context.Context, key string, localPath string, opts ...s3store.UploadOption) error {
	f.mu.Lock()
	if f.failUploads[key] > 0 {
		f.failUploads[key]--
		f.mu.Unlock()
		return fmt.Errorf("simulated upload failure for %s", key)
	}
	f.mu.Unlock()

	data, err := afero.ReadFile(f.fs, localPath)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.objects[key] = data
	f.uploads = append(f.uploads, key)
	f.mu.Unlock()

	applyUploadTracker(opts, int64(len(data)))
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deletes = append(f.deletes, key)
	isFile, isFolder := f.keyState(key)
	norm := strings.TrimSuffix(key, "/")
	switch {
	case isFile:
		delete(f.objects, norm)
	case isFolder:
		for obj := range f.objects {
			if strings.HasPrefix(obj, norm+"/") {
				delete(f.objects, obj)
			}
		}
	}
	return nil
}

func (f *fakeStore) Copy(ctx context.Context, sourceKey string, destKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[sourceKey]
	if !ok {
		return fmt.Errorf("key %s: %w", sourceKey, s3store.ErrKeyNotFound)
	}
	f.objects[destKey] = append([]byte(nil), data...)
	return nil
}

func (f *fakeStore) IsLocalCopyValid(ctx context.Context, key string, localPath string) (bool, error) {
	f.mu.Lock()
	data, ok := f.objects[key]
	f.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("key %s: %w", key, s3store.ErrKeyNotFound)
	}
	local, err := afero.ReadFile(f.fs, localPath)
	if err != nil {
		return false, nil
	}
	return string(local) == string(data), nil
}

var _ Store = (*fakeStore)(nil)

func applyDownloadTracker(opts []s3store.DownloadOption, size int64) {
	var options s3store.DownloadOptions
	for _, o := range opts {
		o(&options)
	}
	if options.Tracker != nil {
		options.Tracker.AddBytes(size)
	}
}

func applyUploadTracker(opts []s3store.UploadOption, size int64) {
	var options s3store.UploadOptions
	for _, o := range opts {
		o(&options)
	}
	if options.Tracker != nil {
		options.Tracker.AddBytes(size)
	}
}
