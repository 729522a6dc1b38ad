package s3store

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// Common store errors
var (
	// ErrKeyNotFound indicates the requested key was not found in the bucket
	ErrKeyNotFound = errors.New("s3store: key not found")

	// ErrBucketNotFound indicates the configured bucket does not exist
	ErrBucketNotFound = errors.New("s3store: bucket not found")

	// ErrAccessDenied indicates access was denied
	ErrAccessDenied = errors.New("s3store: access denied")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("s3store: invalid configuration")

	// ErrChecksumMismatch indicates checksum verification failed
	ErrChecksumMismatch = errors.New("s3store: checksum mismatch")

	// ErrNoMultipartUpload indicates no in-progress multipart upload exists
	// for the key
	ErrNoMultipartUpload = errors.New("s3store: no multipart upload in progress")
)

// Error represents a store error with the failed operation and key attached
type Error struct {
	Op  string // Operation that failed
	Key string // Key involved in the operation
	Err error  // Underlying error
}

// Error returns the string representation of the error
func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("s3store: %s failed for %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("s3store: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target error
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsKeyNotFound checks if an error is a key not found error
func IsKeyNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}

// IsAccessDenied checks if an error is an access denied error
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsChecksumMismatch checks if an error is a checksum mismatch error
func IsChecksumMismatch(err error) bool {
	return errors.Is(err, ErrChecksumMismatch)
}

// wrapError attaches operation context to an SDK error and maps the smithy
// error codes onto the package sentinels so callers can use errors.Is.
func wrapError(op, key string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			err = fmt.Errorf("%s: %w", apiErr.ErrorCode(), ErrKeyNotFound)
		case "NoSuchBucket":
			err = fmt.Errorf("%s: %w", apiErr.ErrorCode(), ErrBucketNotFound)
		case "AccessDenied":
			err = fmt.Errorf("%s: %w", apiErr.ErrorCode(), ErrAccessDenied)
		}
	}

	return &Error{Op: op, Key: key, Err: err}
}
