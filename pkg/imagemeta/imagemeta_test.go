package imagemeta

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirrorkit/s3mirror/pkg/afero"
	"github.com/mirrorkit/s3mirror/pkg/logging"
	"github.com/mirrorkit/s3mirror/pkg/mirror"
	"github.com/mirrorkit/s3mirror/pkg/s3store"
)

// fixtureStore serves canned objects so parsing pulls them into the mirror
// the way production code would.
type fixtureStore struct {
	fs      afero.Fs
	objects map[string][]byte
}

func (s *fixtureStore) Bucket() string { return "imagery" }

func (s *fixtureStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	return nil, nil
}

func (s *fixtureStore) ListObjects(ctx context.Context, prefix string) ([]s3store.ObjectSummary, error) {
	return nil, nil
}

func (s *fixtureStore) ListChildKeys(ctx context.Context, key string) ([]string, error) {
	return nil, nil
}

func (s *fixtureStore) KeyExists(ctx context.Context, key string) (bool, error) {
	_, ok := s.objects[key]
	return ok, nil
}

func (s *fixtureStore) KeyIsFile(ctx context.Context, key string) (bool, error) {
	_, ok := s.objects[key]
	return ok, nil
}

func (s *fixtureStore) KeySize(ctx context.Context, key string) (int64, error) {
	return int64(len(s.objects[key])), nil
}

func (s *fixtureStore) DownloadToFile(ctx context.Context, key, localPath string, opts ...s3store.DownloadOption) error {
	content, ok := s.objects[key]
	if !ok {
		return fmt.Errorf("object %s: %w", key, s3store.ErrKeyNotFound)
	}
	return afero.WriteFile(s.fs, localPath, content, 0o644)
}

func (s *fixtureStore) UploadFile(ctx context.Context, key, localPath string, opts ...s3store.UploadOption) error {
	return nil
}

func (s *fixtureStore) Delete(ctx context.Context, key string) error { return nil }

func (s *fixtureStore) Copy(ctx context.Context, sourceKey, destKey string) error { return nil }

func (s *fixtureStore) IsLocalCopyValid(ctx context.Context, key, localPath string) (bool, error) {
	return false, nil
}

var _ mirror.Store = (*fixtureStore)(nil)

func newTestMirror(t *testing.T, objects map[string][]byte) *mirror.Mirror {
	t.Helper()

	fs := afero.NewMemMapFs()
	config, err := mirror.NewConfig(
		mirror.WithMirrorRoot("/mirror"),
		mirror.WithFs(fs),
		mirror.WithAnotherLog(logging.NewNopLogger()),
	)
	require.NoError(t, err)

	m, err := mirror.NewMirror(config, &fixtureStore{fs: fs, objects: objects})
	require.NoError(t, err)
	return m
}

func TestParse(t *testing.T) {
	ctx := context.Background()
	key := "2016/02/01/IMG_0800.jpg"
	jpegBytes := buildJPEG(t, 64, 48, droneEXIF(), droneXMP)
	m := newTestMirror(t, map[string][]byte{key: jpegBytes})
	p := m.FromKey(key)

	meta, err := Parse(ctx, p)
	require.NoError(t, err)

	assert.Equal(t, "IMG_0800", meta.Name)
	assert.Equal(t, 64, meta.Width)
	assert.Equal(t, 48, meta.Height)
	assert.Equal(t, "DJI", meta.Make)
	assert.Equal(t, "FC6310", meta.Model)

	require.NotNil(t, meta.Location)
	assert.InDelta(t, 37.7749, meta.Location.Latitude, 1e-4)
	assert.InDelta(t, -122.4194, meta.Location.Longitude, 1e-4)

	require.NotNil(t, meta.FocalLength)
	assert.InDelta(t, 4000, *meta.FocalLength, 1e-9)

	require.NotNil(t, meta.Altitude)
	assert.InDelta(t, 30, *meta.Altitude, 1e-9)

	require.NotNil(t, meta.Rotation)
	assert.InDelta(t, 0, meta.Rotation.Roll, 1e-9)
	assert.InDelta(t, 0, meta.Rotation.Pitch, 1e-9, "gimbal pitch is normalized to nadir zero")
	assert.InDelta(t, 12.3, meta.Rotation.Yaw, 1e-9)

	exists, err := p.ExistsInMirror()
	require.NoError(t, err)
	assert.True(t, exists, "parsing mirrors the image")
}

func TestParseUsesTheLocalCopy(t *testing.T) {
	ctx := context.Background()
	key := "2016/02/01/IMG_0800.jpg"
	objects := map[string][]byte{key: buildJPEG(t, 64, 48, droneEXIF(), droneXMP)}
	m := newTestMirror(t, objects)
	p := m.FromKey(key)

	_, err := Parse(ctx, p)
	require.NoError(t, err)

	// Once mirrored, the store is not needed anymore.
	delete(objects, key)
	meta, err := Parse(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "DJI", meta.Make)
}

func TestParseWithoutCameraData(t *testing.T) {
	ctx := context.Background()
	key := "plain/photo.jpg"
	exifTIFF := buildTIFF([]tiffEntry{
		asciiEntry(tagMake, "ACME"),
		asciiEntry(tagModel, "Pocket"),
	}, nil, nil)
	m := newTestMirror(t, map[string][]byte{key: buildJPEG(t, 32, 32, exifTIFF, "")})

	meta, err := Parse(ctx, m.FromKey(key))
	require.NoError(t, err)

	assert.Equal(t, "ACME", meta.Make)
	assert.Nil(t, meta.Location)
	assert.Nil(t, meta.Rotation)
	assert.Nil(t, meta.FocalLength)
	assert.Nil(t, meta.Altitude)
}

func TestParseWithoutExif(t *testing.T) {
	ctx := context.Background()
	key := "plain/photo.jpg"
	m := newTestMirror(t, map[string][]byte{key: buildJPEG(t, 32, 32, nil, "")})

	_, err := Parse(ctx, m.FromKey(key))
	assert.Error(t, err)
}

func TestParseMissingObject(t *testing.T) {
	ctx := context.Background()
	m := newTestMirror(t, nil)

	_, err := Parse(ctx, m.FromKey("2016/02/01/IMG_0800.jpg"))
	assert.ErrorIs(t, err, s3store.ErrKeyNotFound)
}

func TestGSDAt(t *testing.T) {
	ctx := context.Background()
	key := "2016/02/01/IMG_0800.jpg"
	m := newTestMirror(t, map[string][]byte{key: buildJPEG(t, 64, 48, droneEXIF(), droneXMP)})

	// Center pixel, nadir-pointing gimbal: altitude / focal * 1000.
	gsd, err := GSDAt(ctx, m.FromKey(key), 32, 24)
	require.NoError(t, err)
	assert.InDelta(t, 7.5, gsd, 1e-9)
}
