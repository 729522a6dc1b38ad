package s3store

import (
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// Progress is a point-in-time snapshot of a transfer
type Progress struct {
	TotalBytes       int64
	TransferredBytes int64
	TotalObjects     int
	CompletedObjects int
	CurrentKey       string
	StartTime        time.Time
	ElapsedTime      time.Duration
	AverageSpeed     float64 // bytes per second
	Error            error
}

// ProgressCallback receives transfer progress snapshots
type ProgressCallback func(Progress)

// ProgressTracker accumulates byte and object counts across one or more
// transfers and reports snapshots to a callback. Byte counts may be added
// from multiple goroutines; callback delivery is serialized and rate
// limited, so callbacks never run concurrently
type ProgressTracker struct {
	totalBytes       int64
	transferredBytes int64
	totalObjects     int
	completedObjects int64
	startTime        time.Time
	lastReport       atomic.Int64 // unix nanos of the last callback
	callback         ProgressCallback
	reportInterval   time.Duration

	mu         sync.Mutex // guards currentKey and callback delivery
	currentKey string
}

// NewProgressTracker creates a tracker for the given expected totals.
// A nil callback produces a tracker that only counts.
func NewProgressTracker(totalBytes int64, totalObjects int, callback ProgressCallback) *ProgressTracker {
	return &ProgressTracker{
		totalBytes:     totalBytes,
		totalObjects:   totalObjects,
		startTime:      time.Now(),
		callback:       callback,
		reportInterval: 100 * time.Millisecond,
	}
}

// SetCurrentKey records the key currently transferring and reports
func (pt *ProgressTracker) SetCurrentKey(key string) {
	pt.mu.Lock()
	pt.currentKey = key
	pt.mu.Unlock()
	pt.report()
}

// AddBytes adds transferred bytes and reports if the interval elapsed
func (pt *ProgressTracker) AddBytes(n int64) {
	atomic.AddInt64(&pt.transferredBytes, n)

	now := time.Now().UnixNano()
	last := pt.lastReport.Load()
	if time.Duration(now-last) >= pt.reportInterval && pt.lastReport.CompareAndSwap(last, now) {
		pt.report()
	}
}

// CompleteObject marks one object as finished and reports
func (pt *ProgressTracker) CompleteObject() {
	atomic.AddInt64(&pt.completedObjects, 1)
	pt.report()
}

// SkipObject accounts for an object whose transfer was skipped because a
// valid copy already exists. The object's size still counts as transferred
// so aggregate progress reaches the expected total.
func (pt *ProgressTracker) SkipObject(size int64) {
	atomic.AddInt64(&pt.transferredBytes, size)
	atomic.AddInt64(&pt.completedObjects, 1)
	pt.report()
}

// SetError reports a snapshot carrying the error
func (pt *ProgressTracker) SetError(err error) {
	if pt.callback == nil {
		return
	}
	pt.mu.Lock()
	defer pt.mu.Unlock()
	snapshot := pt.snapshot()
	snapshot.Error = err
	pt.callback(snapshot)
}

// Complete forces the counters to their totals and reports a final snapshot
func (pt *ProgressTracker) Complete() {
	atomic.StoreInt64(&pt.transferredBytes, pt.totalBytes)
	atomic.StoreInt64(&pt.completedObjects, int64(pt.totalObjects))
	pt.report()
}

// TransferredBytes returns the bytes transferred so far
func (pt *ProgressTracker) TransferredBytes() int64 {
	return atomic.LoadInt64(&pt.transferredBytes)
}

func (pt *ProgressTracker) report() {
	if pt.callback == nil {
		return
	}
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.callback(pt.snapshot())
}

// snapshot builds a Progress from the current counters. Callers hold mu.
func (pt *ProgressTracker) snapshot() Progress {
	transferred := atomic.LoadInt64(&pt.transferredBytes)
	elapsed := time.Since(pt.startTime)

	speed := float64(0)
	if secs := elapsed.Seconds(); secs > 0 {
		speed = float64(transferred) / secs
	}

	return Progress{
		TotalBytes:       pt.totalBytes,
		TransferredBytes: transferred,
		TotalObjects:     pt.totalObjects,
		CompletedObjects: int(atomic.LoadInt64(&pt.completedObjects)),
		CurrentKey:       pt.currentKey,
		StartTime:        pt.startTime,
		ElapsedTime:      elapsed,
		AverageSpeed:     speed,
	}
}

// ProgressReader wraps a reader and feeds read byte counts to a tracker
type ProgressReader struct {
	reader  io.Reader
	tracker *ProgressTracker
}

// NewProgressReader creates a counting reader around reader
func NewProgressReader(reader io.Reader, tracker *ProgressTracker) *ProgressReader {
	return &ProgressReader{reader: reader, tracker: tracker}
}

// Read implements io.Reader
func (pr *ProgressReader) Read(p []byte) (n int, err error) {
	n, err = pr.reader.Read(p)
	if n > 0 && pr.tracker != nil {
		pr.tracker.AddBytes(int64(n))
	}
	return n, err
}

// Close implements io.Closer if the underlying reader supports it
func (pr *ProgressReader) Close() error {
	if closer, ok := pr.reader.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// ProgressWriter wraps a writer and feeds written byte counts to a tracker
type ProgressWriter struct {
	writer  io.Writer
	tracker *ProgressTracker
}

// NewProgressWriter creates a counting writer around writer
func NewProgressWriter(writer io.Writer, tracker *ProgressTracker) *ProgressWriter {
	return &ProgressWriter{writer: writer, tracker: tracker}
}

// Write implements io.Writer
func (pw *ProgressWriter) Write(p []byte) (n int, err error) {
	n, err = pw.writer.Write(p)
	if n > 0 && pw.tracker != nil {
		pw.tracker.AddBytes(int64(n))
	}
	return n, err
}

// ProgressWriterAt wraps an io.WriterAt so concurrent ranged downloads
// still report byte counts
type ProgressWriterAt struct {
	writer  io.WriterAt
	tracker *ProgressTracker
}

// NewProgressWriterAt creates a counting WriterAt around writer
func NewProgressWriterAt(writer io.WriterAt, tracker *ProgressTracker) *ProgressWriterAt {
	return &ProgressWriterAt{writer: writer, tracker: tracker}
}

// WriteAt implements io.WriterAt
func (pw *ProgressWriterAt) WriteAt(p []byte, off int64) (n int, err error) {
	n, err = pw.writer.WriteAt(p, off)
	if n > 0 && pw.tracker != nil {
		pw.tracker.AddBytes(int64(n))
	}
	return n, err
}
