package mirror

import (
	"context"

	"github.com/mirrorkit/s3mirror/pkg/s3store"
)

// Store is the object-store surface the mirror consumes: listing, point
// queries, file transfers, delete and copy. *s3store.DataStore satisfies it;
// tests substitute an in-memory fake.
type Store interface {
	Bucket() string

	ListKeys(ctx context.Context, prefix string) ([]string, error)
	ListObjects(ctx context.Context, prefix string) ([]s3store.ObjectSummary, error)
	ListChildKeys(ctx context.Context, key string) ([]string, error)

	KeyExists(ctx context.Context, key string) (bool, error)
	KeyIsFile(ctx context.Context, key string) (bool, error)
	KeySize(ctx context.Context, key string) (int64, error)

	DownloadToFile(ctx context.Context, key string, localPath string, opts ...s3store.DownloadOption) error
	UploadFile(ctx context.Context, key string, localPath string, opts ...s3store.UploadOption) error

	Delete(ctx context.Context, key string) error
	Copy(ctx context.Context, sourceKey string, destKey string) error

	IsLocalCopyValid(ctx context.Context, key string, localPath string) (bool, error)
}

var _ Store = (*s3store.DataStore)(nil)
