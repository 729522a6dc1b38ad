package s3store

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/mirrorkit/s3mirror/pkg/logging"
)

// deleteBatchSize is the DeleteObjects API limit per request
const deleteBatchSize = 1000

// ObjectSummary describes one listed object
type ObjectSummary struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

// ObjectMetadata describes the head of one object
type ObjectMetadata struct {
	Key          string
	Size         int64
	ETag         string
	ContentMD5   string // Hex MD5, empty for multipart-uploaded objects
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
	IsMultipart  bool
}

// DataStore is an S3-backed object store bound to a single bucket. All key
// arguments are bucket-relative. It is safe for concurrent use.
type DataStore struct {
	config     *Config
	logger     logging.Interface
	client     s3Client
	downloader *manager.Downloader
	uploader   *manager.Uploader
}

// NewDataStore validates the config, builds the S3 client and the transfer
// managers, and returns a ready store.
func NewDataStore(config *Config) (*DataStore, error) {
	if config == nil {
		return nil, errors.New("nil config")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger := config.AnotherLogger
	if logger == nil {
		logger = logging.Discard()
	}

	client, err := initializeS3Client(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	store := newDataStoreWithClient(config, logger, client)

	logger.WithField("bucket", config.Bucket).
		WithField("region", config.Region).
		Info("S3 data store initialized")

	return store, nil
}

// newDataStoreWithClient wires the transfer managers around an existing
// client. Split out so tests can substitute a fake client.
func newDataStoreWithClient(config *Config, logger logging.Interface, client s3Client) *DataStore {
	downloader := manager.NewDownloader(client, func(d *manager.Downloader) {
		d.PartSize = config.Transfer.PartSize()
		d.Concurrency = config.Transfer.Concurrency()
	})
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = config.Transfer.PartSize()
		u.Concurrency = config.Transfer.Concurrency()
		u.LeavePartsOnError = false
	})

	return &DataStore{
		config:     config,
		logger:     logger,
		client:     client,
		downloader: downloader,
		uploader:   uploader,
	}
}

// Bucket returns the bucket this store is bound to
func (s *DataStore) Bucket() string {
	return s.config.Bucket
}

// HeadObject retrieves the metadata of a single object
func (s *DataStore) HeadObject(ctx context.Context, key string) (*ObjectMetadata, error) {
	resp, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, wrapError("head object", key, err)
	}

	meta := &ObjectMetadata{
		Key:      key,
		Size:     aws.ToInt64(resp.ContentLength),
		Metadata: resp.Metadata,
	}
	if resp.ETag != nil {
		meta.ETag = strings.Trim(*resp.ETag, "\"")
		meta.IsMultipart = isMultipartETag(meta.ETag)
		// For single-part uploads the ETag is the hex MD5 of the content
		if !meta.IsMultipart {
			meta.ContentMD5 = meta.ETag
		}
	}
	if resp.ContentType != nil {
		meta.ContentType = *resp.ContentType
	}
	if resp.LastModified != nil {
		meta.LastModified = *resp.LastModified
	}

	return meta, nil
}

// GetObject retrieves an object and returns its body for streaming
func (s *DataStore) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, wrapError("get object", key, err)
	}
	return resp.Body, nil
}

// Download writes the object to w, using ranged parallel requests for
// objects above the multipart threshold unless forced standard. Returns the
// number of bytes written.
func (s *DataStore) Download(ctx context.Context, key string, w io.WriterAt, opts ...DownloadOption) (int64, error) {
	options := s.applyDownloadOptions(opts...)

	if options.Tracker != nil {
		options.Tracker.SetCurrentKey(key)
		w = NewProgressWriterAt(w, options.Tracker)
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	}

	downloader := s.downloader
	if options.PartSize != s.config.Transfer.PartSize() || options.Concurrency != s.config.Transfer.Concurrency() || options.ForceStandard {
		downloader = manager.NewDownloader(s.client, func(d *manager.Downloader) {
			d.PartSize = options.PartSize
			d.Concurrency = options.Concurrency
			if options.ForceStandard {
				d.Concurrency = 1
			}
		})
	}

	n, err := downloader.Download(ctx, w, input)
	if err != nil {
		return n, wrapError("download", key, err)
	}
	return n, nil
}

// DownloadToFile downloads the object to the given local path, creating
// parent directories as needed. Objects at or below the multipart threshold
// use a single request.
func (s *DataStore) DownloadToFile(ctx context.Context, key string, localPath string, opts ...DownloadOption) error {
	options := s.applyDownloadOptions(opts...)

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", localPath, err)
	}
	file, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", localPath, err)
	}
	defer file.Close()

	meta, err := s.HeadObject(ctx, key)
	if err != nil {
		return err
	}

	if options.Tracker != nil {
		options.Tracker.SetCurrentKey(key)
	}

	if options.ForceStandard || meta.Size <= s.config.Transfer.MultipartThreshold() {
		body, err := s.GetObject(ctx, key)
		if err != nil {
			return err
		}
		defer body.Close()

		var w io.Writer = file
		if options.Tracker != nil {
			w = NewProgressWriter(file, options.Tracker)
		}
		if _, err := io.Copy(w, body); err != nil {
			return wrapError("download", key, err)
		}
		return nil
	}

	_, err = s.Download(ctx, key, file, opts...)
	return err
}

// Upload stores size bytes from r under key. Objects above the multipart
// threshold go through the transfer manager.
func (s *DataStore) Upload(ctx context.Context, key string, r io.Reader, size int64, opts ...UploadOption) error {
	options := s.applyUploadOptions(opts...)

	if options.Tracker != nil {
		options.Tracker.SetCurrentKey(key)
		r = NewProgressReader(r, options.Tracker)
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if options.ContentType != "" {
		input.ContentType = aws.String(options.ContentType)
	}
	if options.StorageClass != "" {
		input.StorageClass = types.StorageClass(options.StorageClass)
	}
	if options.Metadata != nil {
		input.Metadata = options.Metadata
	}

	if size > s.config.Transfer.MultipartThreshold() {
		uploader := s.uploader
		if options.PartSize != s.config.Transfer.PartSize() || options.Concurrency != s.config.Transfer.Concurrency() {
			uploader = manager.NewUploader(s.client, func(u *manager.Uploader) {
				u.PartSize = options.PartSize
				u.Concurrency = options.Concurrency
				u.LeavePartsOnError = false
			})
		}
		if _, err := uploader.Upload(ctx, input); err != nil {
			return wrapError("upload", key, err)
		}
		return nil
	}

	input.ContentLength = aws.Int64(size)
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return wrapError("put object", key, err)
	}
	return nil
}

// UploadFile stores the local file under key
func (s *DataStore) UploadFile(ctx context.Context, key string, localPath string, opts ...UploadOption) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", localPath, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", localPath, err)
	}

	return s.Upload(ctx, key, file, info.Size(), opts...)
}

// Delete removes the object at key. A folder key, or a key that only exists
// as a prefix of deeper keys, removes every key underneath it. Deleting a
// missing key is a no-op.
func (s *DataStore) Delete(ctx context.Context, key string) error {
	exists, err := s.KeyExists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	isFile, err := s.KeyIsFile(ctx, key)
	if err != nil {
		return err
	}
	if isFile {
		if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.config.Bucket),
			Key:    aws.String(key),
		}); err != nil {
			return wrapError("delete object", key, err)
		}
		return nil
	}

	children, err := s.ListKeys(ctx, folderPrefix(key))
	if err != nil {
		return err
	}

	for start := 0; start < len(children); start += deleteBatchSize {
		end := start + deleteBatchSize
		if end > len(children) {
			end = len(children)
		}
		batch := make([]types.ObjectIdentifier, 0, end-start)
		for _, child := range children[start:end] {
			batch = append(batch, types.ObjectIdentifier{Key: aws.String(child)})
		}
		if _, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.config.Bucket),
			Delete: &types.Delete{Objects: batch, Quiet: aws.Bool(true)},
		}); err != nil {
			return wrapError("delete objects", key, err)
		}
	}

	s.logger.WithField("key", key).
		WithField("count", len(children)).
		Info("Deleted folder contents")
	return nil
}

// Copy copies an object to another key within the bucket
func (s *DataStore) Copy(ctx context.Context, sourceKey, destKey string) error {
	copySource := fmt.Sprintf("%s/%s", s.config.Bucket, sourceKey)

	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.config.Bucket),
		Key:        aws.String(destKey),
		CopySource: aws.String(copySource),
	})
	if err != nil {
		return wrapError("copy object", sourceKey, err)
	}
	return nil
}

// IsLocalCopyValid checks whether a local file matches the object in size
// and MD5 checksum. Multipart-uploaded objects carry a part-hashed ETag
// rather than a content MD5, so for those the size comparison decides.
//
// Returns true if the local file is a valid copy of the object.
func (s *DataStore) IsLocalCopyValid(ctx context.Context, key string, localPath string) (bool, error) {
	fileInfo, err := os.Stat(localPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	meta, err := s.HeadObject(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to get object metadata: %w", err)
	}

	if fileInfo.Size() != meta.Size {
		s.logger.Warnf("File size mismatch for %s: expected %d, got %d",
			localPath, meta.Size, fileInfo.Size())
		return false, nil
	}

	if meta.ContentMD5 == "" {
		if meta.IsMultipart {
			s.logger.Infof("No content MD5 for multipart object %s; size check only", key)
		}
		return true, nil
	}

	file, err := os.Open(localPath)
	if err != nil {
		return false, err
	}
	defer func(file *os.File) {
		if err := file.Close(); err != nil {
			s.logger.Warnf("Failed to close file %s: %v", localPath, err)
		}
	}(file)

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return false, err
	}

	localMD5 := hex.EncodeToString(hash.Sum(nil))
	if meta.ContentMD5 == localMD5 {
		return true, nil
	}

	s.logger.Warnf("MD5 mismatch for %s: expected %s, got %s",
		localPath, meta.ContentMD5, localMD5)

	return false, nil
}

// isMultipartETag determines if an ETag represents a multipart upload.
// Multipart ETags take the form "<hexmd5>-<part count>"
func isMultipartETag(etag string) bool {
	parts := strings.Split(etag, "-")
	if len(parts) != 2 {
		return false
	}
	_, err := strconv.Atoi(parts[1])
	return err == nil
}

// folderPrefix returns key shaped as a listing prefix, with exactly one
// trailing delimiter. The empty key stays empty and scopes to the whole
// bucket.
func folderPrefix(key string) string {
	if key == "" {
		return ""
	}
	return strings.TrimSuffix(key, "/") + "/"
}
