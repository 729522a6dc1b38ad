package s3store

const (
	kb = 1024
	mb = 1024 * kb
	gb = 1024 * mb

	defaultPartSizeMB  = 8
	defaultConcurrency = 10
	defaultMaxRAMMB    = 4 * 1024
)

// TransferTuning derives transfer-manager settings from a thread count, a
// block size and a RAM budget, so one knob set drives both directions of a
// transfer. Zero fields fall back to the package defaults.
type TransferTuning struct {
	Threads     int `mapstructure:"threads" validate:"omitempty,gte=1"`
	BlockSizeMB int `mapstructure:"block_size_mb" validate:"omitempty,gte=5"`
	MaxRAMMB    int `mapstructure:"max_ram_mb" validate:"omitempty,gte=64"`
}

// PartSize returns the multipart block size in bytes. Parts below 5MB are
// rejected by S3, which the validate tag guards against.
func (t TransferTuning) PartSize() int64 {
	if t.BlockSizeMB <= 0 {
		return defaultPartSizeMB * mb
	}
	return int64(t.BlockSizeMB) * mb
}

// Concurrency returns the number of parallel part transfers, capped so the
// in-flight blocks stay within the RAM budget.
func (t TransferTuning) Concurrency() int {
	threads := t.Threads
	if threads <= 0 {
		threads = defaultConcurrency
	}
	if maxThreads := int(t.maxRAM() / t.PartSize()); maxThreads >= 1 && threads > maxThreads {
		threads = maxThreads
	}
	return threads
}

// MultipartThreshold returns the object size above which transfers switch
// from a single request to multipart. One block, matching the part size.
func (t TransferTuning) MultipartThreshold() int64 {
	return t.PartSize()
}

// MaxInMemoryChunks returns how many blocks fit in the RAM budget after the
// active transfer threads claim theirs. Never less than one.
func (t TransferTuning) MaxInMemoryChunks() int64 {
	chunks := (t.maxRAM() - int64(t.Concurrency())*t.PartSize()) / t.PartSize()
	if chunks < 1 {
		return 1
	}
	return chunks
}

func (t TransferTuning) maxRAM() int64 {
	if t.MaxRAMMB <= 0 {
		return defaultMaxRAMMB * mb
	}
	return int64(t.MaxRAMMB) * mb
}

// DownloadOptions converts the tuning into per-call download options.
func (t TransferTuning) DownloadOptions() []DownloadOption {
	return []DownloadOption{
		WithDownloadPartSize(t.PartSize()),
		WithDownloadConcurrency(t.Concurrency()),
	}
}

// UploadOptions converts the tuning into per-call upload options.
func (t TransferTuning) UploadOptions() []UploadOption {
	return []UploadOption{
		WithUploadPartSize(t.PartSize()),
		WithUploadConcurrency(t.Concurrency()),
	}
}
