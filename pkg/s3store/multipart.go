package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ResumeMultipartUpload finishes an interrupted multipart upload of the
// local file to key. The in-progress upload is located by exact key match;
// its part size dictates the split, already-uploaded parts are kept, and the
// remaining parts are read from the file at their offsets and uploaded
// concurrently. When no upload is in progress the file is uploaded from
// scratch.
//
// Parts are left in place on failure so a later call can resume again.
func (s *DataStore) ResumeMultipartUpload(ctx context.Context, key string, localPath string, opts ...UploadOption) error {
	options := s.applyUploadOptions(opts...)

	uploadID, existing, err := s.findMultipartUpload(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNoMultipartUpload) {
			s.logger.WithField("key", key).Info("No multipart upload in progress, uploading from scratch")
			return s.UploadFile(ctx, key, localPath, opts...)
		}
		return err
	}

	sort.Slice(existing, func(i, j int) bool {
		return aws.ToInt32(existing[i].PartNumber) < aws.ToInt32(existing[j].PartNumber)
	})

	info, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", localPath, err)
	}
	totalSize := info.Size()

	// The split must match the parts already uploaded
	partSize := aws.ToInt64(existing[0].Size)
	if partSize <= 0 {
		partSize = options.PartSize
	}
	totalParts := (totalSize + partSize - 1) / partSize
	uploadedParts := int64(len(existing))

	completed := make([]types.CompletedPart, 0, totalParts)
	for _, part := range existing {
		completed = append(completed, types.CompletedPart{
			ETag:       part.ETag,
			PartNumber: part.PartNumber,
		})
	}

	if options.Tracker != nil {
		options.Tracker.SetCurrentKey(key)
		options.Tracker.AddBytes(partSize * uploadedParts)
	}

	s.logger.WithField("key", key).
		WithField("upload_id", uploadID).
		Infof("Resuming multipart upload: %d of %d parts done", uploadedParts, totalParts)

	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", localPath, err)
	}
	defer file.Close()

	concurrency := options.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		errChan   = make(chan error, totalParts)
		semaphore = make(chan struct{}, concurrency)
	)

	for partNumber := uploadedParts + 1; partNumber <= totalParts; partNumber++ {
		wg.Add(1)
		go func(partNumber int64) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			offset := (partNumber - 1) * partSize
			length := partSize
			if offset+length > totalSize {
				length = totalSize - offset
			}

			// The length is passed explicitly because the progress wrapper
			// hides the section reader's Seek from the SDK.
			var body io.Reader = io.NewSectionReader(file, offset, length)
			if options.Tracker != nil {
				body = NewProgressReader(body, options.Tracker)
			}

			resp, err := s.client.UploadPart(ctx, &s3.UploadPartInput{
				Bucket:        aws.String(s.config.Bucket),
				Key:           aws.String(key),
				UploadId:      aws.String(uploadID),
				PartNumber:    aws.Int32(int32(partNumber)),
				Body:          body,
				ContentLength: aws.Int64(length),
			})
			if err != nil {
				errChan <- fmt.Errorf("part %d: %w", partNumber, err)
				return
			}

			mu.Lock()
			completed = append(completed, types.CompletedPart{
				ETag:       resp.ETag,
				PartNumber: aws.Int32(int32(partNumber)),
			})
			mu.Unlock()
		}(partNumber)
	}

	wg.Wait()
	close(errChan)

	for uploadErr := range errChan {
		s.logger.WithError(uploadErr).Warn("Multipart upload left incomplete, parts kept for a later resume")
		return wrapError("resume multipart upload", key, uploadErr)
	}

	sortCompletedParts(completed)

	_, err = s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(s.config.Bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completed,
		},
	})
	if err != nil {
		return wrapError("complete multipart upload", key, err)
	}

	if options.Tracker != nil {
		options.Tracker.CompleteObject()
	}
	return nil
}

// findMultipartUpload locates the in-progress multipart upload for key and
// returns its ID with the parts uploaded so far. Uploads for the key that
// have no parts yet are aborted along the way. ErrNoMultipartUpload is
// returned when nothing resumable exists.
func (s *DataStore) findMultipartUpload(ctx context.Context, key string) (string, []types.Part, error) {
	var keyMarker, uploadIDMarker *string

	for {
		out, err := s.client.ListMultipartUploads(ctx, &s3.ListMultipartUploadsInput{
			Bucket:         aws.String(s.config.Bucket),
			Prefix:         aws.String(key),
			KeyMarker:      keyMarker,
			UploadIdMarker: uploadIDMarker,
		})
		if err != nil {
			return "", nil, wrapError("list multipart uploads", key, err)
		}

		for _, upload := range out.Uploads {
			if aws.ToString(upload.Key) != key {
				continue
			}
			uploadID := aws.ToString(upload.UploadId)
			parts, err := s.listParts(ctx, key, uploadID)
			if err != nil {
				return "", nil, err
			}
			if len(parts) > 0 {
				return uploadID, parts, nil
			}
			// Nothing uploaded yet, clean it up
			if _, err := s.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
				Bucket:   aws.String(s.config.Bucket),
				Key:      aws.String(key),
				UploadId: aws.String(uploadID),
			}); err != nil {
				s.logger.WithError(err).Warnf("Failed to abort empty multipart upload %s", uploadID)
			}
		}

		if !aws.ToBool(out.IsTruncated) {
			break
		}
		keyMarker = out.NextKeyMarker
		uploadIDMarker = out.NextUploadIdMarker
	}

	return "", nil, wrapError("find multipart upload", key, ErrNoMultipartUpload)
}

// listParts returns the parts uploaded so far for a multipart upload
func (s *DataStore) listParts(ctx context.Context, key string, uploadID string) ([]types.Part, error) {
	var parts []types.Part
	var marker *string

	for {
		out, err := s.client.ListParts(ctx, &s3.ListPartsInput{
			Bucket:           aws.String(s.config.Bucket),
			Key:              aws.String(key),
			UploadId:         aws.String(uploadID),
			PartNumberMarker: marker,
		})
		if err != nil {
			return nil, wrapError("list parts", key, err)
		}

		parts = append(parts, out.Parts...)

		if !aws.ToBool(out.IsTruncated) {
			break
		}
		marker = out.NextPartNumberMarker
	}

	return parts, nil
}

// sortCompletedParts sorts parts by part number, as CompleteMultipartUpload requires
func sortCompletedParts(parts []types.CompletedPart) {
	sort.Slice(parts, func(i, j int) bool {
		return aws.ToInt32(parts[i].PartNumber) < aws.ToInt32(parts[j].PartNumber)
	})
}
