package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/mirrorkit/s3mirror/pkg/afero"
	"github.com/mirrorkit/s3mirror/pkg/keys"
)

// Path names one key on both sides of a mirror: the object under the
// mirror's bucket and its copy under the mirror root. Paths are immutable
// values; every derivation returns a new one. Obtain them from a Mirror
// (FromKey, FromLocalPath, MatchingPaths), not by constructing the struct.
type Path struct {
	mirror *Mirror
	key    string

	localOverride string
}

// Key returns the bucket key.
func (p Path) Key() string {
	return p.key
}

// LocalPath returns where the key lives under the mirror root, or the
// override set with WithLocalPath.
func (p Path) LocalPath() string {
	if p.localOverride != "" {
		return p.localOverride
	}
	return p.mirror.LocalPathFor(p.key)
}

// WithLocalPath returns a copy whose local side is the given path instead
// of the spot under the mirror root. The override stays with this value
// only; derived paths fall back to the mirror root.
func (p Path) WithLocalPath(localPath string) Path {
	p.localOverride = localPath
	return p
}

// Bucket returns the bucket the path resolves against.
func (p Path) Bucket() string {
	return p.mirror.Bucket()
}

func (p Path) String() string {
	return p.key
}

// Segments returns the delimiter-split key segments.
func (p Path) Segments() []string {
	return keys.Split(p.key)
}

// Depth returns the number of key segments.
func (p Path) Depth() int {
	return len(p.Segments())
}

// Name returns the terminal segment, empty for the root.
func (p Path) Name() string {
	segs := p.Segments()
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// Extension returns the terminal segment's extension without the dot,
// empty when there is none.
func (p Path) Extension() string {
	return strings.TrimPrefix(filepath.Ext(p.Name()), ".")
}

// isFolder reports whether the key names a folder rather than a file:
// the root, or a key in trailing-delimiter form.
func (p Path) isFolder() bool {
	return p.key == "" || strings.HasSuffix(p.key, keys.Delimiter)
}

// Child returns the path one level below this one.
func (p Path) Child(name string) (Path, error) {
	if name == "" {
		return Path{}, errors.New("mirror: child name is empty")
	}
	key, err := keys.Replace(p.key, []keys.Segment{{Depth: p.Depth(), Name: name}})
	if err != nil {
		return Path{}, fmt.Errorf("mirror: child of %q: %w", p.key, err)
	}
	return p.mirror.FromKey(key), nil
}

// Sibling returns the path sharing this one's parent, with the terminal
// segment renamed.
func (p Path) Sibling(name string) (Path, error) {
	if name == "" {
		return Path{}, errors.New("mirror: sibling name is empty")
	}
	if p.Depth() == 0 {
		return Path{}, errors.New("mirror: the root has no sibling")
	}
	key, err := keys.ReplaceRelative(p.key, []keys.Segment{{Depth: -1, Name: name}})
	if err != nil {
		return Path{}, fmt.Errorf("mirror: sibling of %q: %w", p.key, err)
	}
	return p.mirror.FromKey(key), nil
}

// Parent returns the path one level above this one. The root is its own
// parent.
func (p Path) Parent() Path {
	depth := p.Depth()
	if depth == 0 {
		return p
	}
	return p.Trim(depth - 1)
}

// Trim keeps the first maxDepth segments. Depths past the end leave the
// path unchanged; zero or negative depths yield the root.
func (p Path) Trim(maxDepth int) Path {
	segs := p.Segments()
	if maxDepth >= len(segs) {
		return p
	}
	if maxDepth <= 0 {
		return p.mirror.FromKey("")
	}
	return p.mirror.FromKey(keys.Join(segs[:maxDepth]))
}

// SegmentAt returns the segment at depth bound to its name, so it can feed
// matching or rewriting. Negative depths count from the end.
func (p Path) SegmentAt(depth int) (keys.Segment, error) {
	segs := p.Segments()
	resolved := depth
	if resolved < 0 {
		resolved += len(segs)
	}
	if resolved < 0 || resolved >= len(segs) {
		return keys.Segment{}, fmt.Errorf("mirror: depth %d out of range for %q", depth, p.key)
	}
	return keys.Segment{Depth: resolved, Name: segs[resolved]}, nil
}

// ReplaceSegments rewrites the key with absolute-depth replacements.
func (p Path) ReplaceSegments(replacements ...keys.Segment) (Path, error) {
	key, err := keys.Replace(p.key, replacements)
	if err != nil {
		return Path{}, fmt.Errorf("mirror: rewriting %q: %w", p.key, err)
	}
	return p.mirror.FromKey(key), nil
}

// ReplaceSegmentsRelative rewrites the key with negative depths resolved
// against the current length.
func (p Path) ReplaceSegmentsRelative(replacements ...keys.Segment) (Path, error) {
	key, err := keys.ReplaceRelative(p.key, replacements)
	if err != nil {
		return Path{}, fmt.Errorf("mirror: rewriting %q: %w", p.key, err)
	}
	return p.mirror.FromKey(key), nil
}

// ExistsInS3 reports whether the key exists in the bucket, as a file or as
// a folder with children.
func (p Path) ExistsInS3(ctx context.Context) (bool, error) {
	return p.mirror.store.KeyExists(ctx, p.key)
}

// IsFileInS3 reports whether the key names a file. A missing key is an
// error, not false.
func (p Path) IsFileInS3(ctx context.Context) (bool, error) {
	return p.mirror.store.KeyIsFile(ctx, p.key)
}

// SizeInS3 returns the object size, zero for a folder. A missing key is an
// error.
func (p Path) SizeInS3(ctx context.Context) (int64, error) {
	return p.mirror.store.KeySize(ctx, p.key)
}

// ExistsInMirror reports whether the local copy exists.
func (p Path) ExistsInMirror() (bool, error) {
	return afero.Exists(p.mirror.fs, p.LocalPath())
}

// SizeInMirror returns the local copy's size.
func (p Path) SizeInMirror() (int64, error) {
	info, err := p.mirror.fs.Stat(p.LocalPath())
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Open opens the local copy for reading.
func (p Path) Open() (afero.File, error) {
	return p.mirror.fs.Open(p.LocalPath())
}

// Children lists the keys one level below this one: files as full keys,
// folders as trailing-delimiter prefixes.
func (p Path) Children(ctx context.Context) ([]Path, error) {
	childKeys, err := p.mirror.store.ListChildKeys(ctx, p.key)
	if err != nil {
		return nil, fmt.Errorf("mirror: listing children of %q: %w", p.key, err)
	}
	children := make([]Path, len(childKeys))
	for i, key := range childKeys {
		children[i] = p.mirror.FromKey(key)
	}
	return children, nil
}

// DeleteLocal removes the local copy, or the local subtree for a folder
// key. Deleting something that is not mirrored is a no-op. The mirror root
// itself is refused.
func (p Path) DeleteLocal() error {
	if p.key == "" {
		return errors.New("mirror: refusing to delete the mirror root")
	}
	if err := p.mirror.fs.RemoveAll(p.LocalPath()); err != nil {
		return fmt.Errorf("mirror: deleting local copy of %q: %w", p.key, err)
	}
	return nil
}

// DeleteS3 removes the object, or the subtree for a folder key. Deleting a
// missing key is a no-op. The bucket root is refused.
func (p Path) DeleteS3(ctx context.Context) error {
	if p.key == "" {
		return errors.New("mirror: refusing to delete the bucket root")
	}
	if err := p.mirror.store.Delete(ctx, p.key); err != nil {
		return fmt.Errorf("mirror: deleting %q: %w", p.key, err)
	}
	return nil
}

// DeleteAll removes both sides. Both deletes run even if one fails.
func (p Path) DeleteAll(ctx context.Context) error {
	return errors.Join(p.DeleteLocal(), p.DeleteS3(ctx))
}

// CopyTo copies this path to dest on both sides. With mirrorAsSource the
// local copy is the source of truth: it is copied locally and uploaded.
// Otherwise the object is copied store-side and the destination mirror
// refreshed.
func (p Path) CopyTo(ctx context.Context, dest Path, mirrorAsSource bool) error {
	if mirrorAsSource {
		if err := p.CopyToMirrorOnly(dest); err != nil {
			return err
		}
		return dest.UploadFromMirror(ctx, true)
	}
	if err := p.CopyToS3Only(ctx, dest); err != nil {
		return err
	}
	return dest.DownloadToMirror(ctx, true)
}

// CopyToS3Only copies the object store-side, leaving both mirrors alone.
func (p Path) CopyToS3Only(ctx context.Context, dest Path) error {
	if dest.Bucket() != p.Bucket() {
		return fmt.Errorf("mirror: cross-bucket copy %s to %s is not supported", p.Bucket(), dest.Bucket())
	}
	if err := p.mirror.store.Copy(ctx, p.key, dest.key); err != nil {
		return fmt.Errorf("mirror: copying %q to %q: %w", p.key, dest.key, err)
	}
	return nil
}

// CopyToMirrorOnly copies the local file to dest's local path, leaving the
// store alone. Destinations in another mirror are written through that
// mirror's filesystem.
func (p Path) CopyToMirrorOnly(dest Path) error {
	src, err := p.mirror.fs.Open(p.LocalPath())
	if err != nil {
		return fmt.Errorf("mirror: opening local copy of %q: %w", p.key, err)
	}
	defer src.Close()

	destLocal := dest.LocalPath()
	if err := dest.mirror.fs.MkdirAll(filepath.Dir(destLocal), mirrorDirPerm); err != nil {
		return fmt.Errorf("mirror: creating directory for %q: %w", dest.key, err)
	}
	out, err := dest.mirror.fs.Create(destLocal)
	if err != nil {
		return fmt.Errorf("mirror: creating local copy of %q: %w", dest.key, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("mirror: copying %q to %q locally: %w", p.key, dest.key, err)
	}
	return out.Close()
}
