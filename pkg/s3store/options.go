package s3store

// DownloadOption configures download operations
type DownloadOption func(*DownloadOptions)

// UploadOption configures upload operations
type UploadOption func(*UploadOptions)

// DownloadOptions contains configuration for download operations
type DownloadOptions struct {
	PartSize      int64            // Part size for ranged downloads
	Concurrency   int              // Number of parallel parts
	ForceStandard bool             // Single GetObject regardless of size
	Tracker       *ProgressTracker // Byte progress sink, may be nil
}

// UploadOptions contains configuration for upload operations
type UploadOptions struct {
	PartSize     int64             // Part size for multipart uploads
	Concurrency  int               // Number of parallel parts
	ContentType  string            // Content type of the object
	Metadata     map[string]string // User metadata attached to the object
	StorageClass string            // Storage class/tier
	Tracker      *ProgressTracker  // Byte progress sink, may be nil
}

// applyDownloadOptions merges opts over the store defaults
func (s *DataStore) applyDownloadOptions(opts ...DownloadOption) DownloadOptions {
	options := DownloadOptions{
		PartSize:    s.config.Transfer.PartSize(),
		Concurrency: s.config.Transfer.Concurrency(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return options
}

// applyUploadOptions merges opts over the store defaults
func (s *DataStore) applyUploadOptions(opts ...UploadOption) UploadOptions {
	options := UploadOptions{
		PartSize:    s.config.Transfer.PartSize(),
		Concurrency: s.config.Transfer.Concurrency(),
		ContentType: "application/octet-stream",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return options
}

// WithDownloadPartSize sets the part size for ranged downloads
func WithDownloadPartSize(size int64) DownloadOption {
	return func(o *DownloadOptions) {
		o.PartSize = size
	}
}

// WithDownloadConcurrency sets the number of parallel download parts
func WithDownloadConcurrency(concurrency int) DownloadOption {
	return func(o *DownloadOptions) {
		o.Concurrency = concurrency
	}
}

// WithForceStandardDownload forces a single-request download
func WithForceStandardDownload(force bool) DownloadOption {
	return func(o *DownloadOptions) {
		o.ForceStandard = force
	}
}

// WithDownloadTracker sets the progress tracker for a download
func WithDownloadTracker(tracker *ProgressTracker) DownloadOption {
	return func(o *DownloadOptions) {
		o.Tracker = tracker
	}
}

// WithUploadPartSize sets the part size for multipart uploads
func WithUploadPartSize(size int64) UploadOption {
	return func(o *UploadOptions) {
		o.PartSize = size
	}
}

// WithUploadConcurrency sets the number of parallel upload parts
func WithUploadConcurrency(concurrency int) UploadOption {
	return func(o *UploadOptions) {
		o.Concurrency = concurrency
	}
}

// WithContentType sets the content type for an upload
func WithContentType(contentType string) UploadOption {
	return func(o *UploadOptions) {
		o.ContentType = contentType
	}
}

// WithMetadata sets user metadata for an upload
func WithMetadata(metadata map[string]string) UploadOption {
	return func(o *UploadOptions) {
		o.Metadata = metadata
	}
}

// WithStorageClass sets the storage class/tier for an upload
func WithStorageClass(class string) UploadOption {
	return func(o *UploadOptions) {
		o.StorageClass = class
	}
}

// WithUploadTracker sets the progress tracker for an upload
func WithUploadTracker(tracker *ProgressTracker) UploadOption {
	return func(o *UploadOptions) {
		o.Tracker = tracker
	}
}
