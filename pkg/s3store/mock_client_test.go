package s3store

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// fakeS3Client is an in-memory S3 stand-in implementing s3Client. Listing
// honors prefix, delimiter, max keys and continuation tokens so the
// pagination and point-query paths are exercised for real.
type fakeS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte
	// multipartETags marks keys whose ETag should look multipart-uploaded
	multipartETags map[string]string

	uploads      map[string]*fakeUpload
	nextUploadID int

	// Control behavior
	pageSize       int32
	failGetObject  bool
	failPutObject  bool
	failListError  error
	failUploadPart bool

	// Track calls
	listCalls          int
	deleteObjectsCalls int
	abortedUploadIDs   []string
	completedUploads   []string
}

type fakeUpload struct {
	key   string
	parts map[int32][]byte
}

func newFakeS3Client() *fakeS3Client {
	return &fakeS3Client{
		objects:        make(map[string][]byte),
		multipartETags: make(map[string]string),
		uploads:        make(map[string]*fakeUpload),
	}
}

func (f *fakeS3Client) putTestObject(key string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
}

func (f *fakeS3Client) etagFor(key string) string {
	if etag, ok := f.multipartETags[key]; ok {
		return etag
	}
	sum := md5.Sum(f.objects[key])
	return hex.EncodeToString(sum[:])
}

// notFoundError mimics the smithy API error the SDK returns for missing keys
func notFoundError() error {
	return &smithy.GenericAPIError{Code: "NotFound", Message: "not found"}
}

func (f *fakeS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGetObject {
		return nil, &smithy.GenericAPIError{Code: "NoSuchKey", Message: "no such key"}
	}
	data, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchKey", Message: "no such key"}
	}

	body := data
	total := int64(len(data))
	start, end := int64(0), total-1
	if params.Range != nil {
		// "bytes=start-end", used by the ranged downloader
		if _, err := fmt.Sscanf(aws.ToString(params.Range), "bytes=%d-%d", &start, &end); err == nil {
			if end >= total {
				end = total - 1
			}
			body = data[start : end+1]
		}
	}

	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: aws.Int64(int64(len(body))),
		ContentRange:  aws.String(fmt.Sprintf("bytes %d-%d/%d", start, end, total)),
		ETag:          aws.String("\"" + f.etagFor(aws.ToString(params.Key)) + "\""),
	}, nil
}

func (f *fakeS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.failPutObject {
		return nil, &smithy.GenericAPIError{Code: "AccessDenied", Message: "access denied"}
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(params.Key)] = data
	return &s3.PutObjectOutput{ETag: aws.String("\"" + f.etagFor(aws.ToString(params.Key)) + "\"")}, nil
}

func (f *fakeS3Client) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(params.Key)
	data, ok := f.objects[key]
	if !ok {
		return nil, notFoundError()
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(data))),
		ETag:          aws.String("\"" + f.etagFor(key) + "\""),
		LastModified:  aws.Time(time.Unix(1700000000, 0)),
	}, nil
}

func (f *fakeS3Client) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3Client) DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteObjectsCalls++
	for _, obj := range params.Delete.Objects {
		delete(f.objects, aws.ToString(obj.Key))
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func (f *fakeS3Client) CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	// CopySource is "bucket/key"
	source := aws.ToString(params.CopySource)
	sourceKey := source[strings.Index(source, "/")+1:]
	data, ok := f.objects[sourceKey]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchKey", Message: "no such key"}
	}
	f.objects[aws.ToString(params.Key)] = append([]byte(nil), data...)
	return &s3.CopyObjectOutput{}, nil
}

// listEntry is one merged listing row, either a key or a rolled-up prefix
type listEntry struct {
	name     string
	isPrefix bool
	size     int64
}

func (f *fakeS3Client) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.failListError != nil {
		return nil, f.failListError
	}

	prefix := aws.ToString(params.Prefix)
	delimiter := aws.ToString(params.Delimiter)

	seenPrefixes := make(map[string]bool)
	var entries []listEntry
	for key, data := range f.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if delimiter != "" {
			rest := key[len(prefix):]
			if i := strings.Index(rest, delimiter); i >= 0 {
				group := prefix + rest[:i+1]
				if !seenPrefixes[group] {
					seenPrefixes[group] = true
					entries = append(entries, listEntry{name: group, isPrefix: true})
				}
				continue
			}
		}
		entries = append(entries, listEntry{name: key, size: int64(len(data))})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	// Continuation token is the last returned name
	if token := aws.ToString(params.ContinuationToken); token != "" {
		cut := 0
		for i, e := range entries {
			if e.name > token {
				cut = i
				break
			}
			cut = i + 1
		}
		entries = entries[cut:]
	}

	limit := int32(1000)
	if f.pageSize > 0 {
		limit = f.pageSize
	}
	if params.MaxKeys != nil && *params.MaxKeys < limit {
		limit = *params.MaxKeys
	}

	truncated := false
	if int32(len(entries)) > limit {
		entries = entries[:limit]
		truncated = true
	}

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(truncated)}
	for _, e := range entries {
		if e.isPrefix {
			out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(e.name)})
			continue
		}
		sum := md5.Sum(f.objects[e.name])
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(e.name),
			Size:         aws.Int64(e.size),
			ETag:         aws.String("\"" + hex.EncodeToString(sum[:]) + "\""),
			LastModified: aws.Time(time.Unix(1700000000, 0)),
		})
	}
	if truncated && len(entries) > 0 {
		out.NextContinuationToken = aws.String(entries[len(entries)-1].name)
	}
	return out, nil
}

func (f *fakeS3Client) CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextUploadID++
	id := fmt.Sprintf("upload-%d", f.nextUploadID)
	f.uploads[id] = &fakeUpload{key: aws.ToString(params.Key), parts: make(map[int32][]byte)}
	return &s3.CreateMultipartUploadOutput{UploadId: aws.String(id)}, nil
}

// startTestUpload seeds an in-progress multipart upload with the given parts
func (f *fakeS3Client) startTestUpload(key string, parts map[int32][]byte) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextUploadID++
	id := fmt.Sprintf("upload-%d", f.nextUploadID)
	if parts == nil {
		parts = make(map[int32][]byte)
	}
	f.uploads[id] = &fakeUpload{key: key, parts: parts}
	return id
}

func (f *fakeS3Client) ListMultipartUploads(ctx context.Context, params *s3.ListMultipartUploadsInput, optFns ...func(*s3.Options)) (*s3.ListMultipartUploadsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &s3.ListMultipartUploadsOutput{IsTruncated: aws.Bool(false)}
	var ids []string
	for id := range f.uploads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		upload := f.uploads[id]
		if !strings.HasPrefix(upload.key, aws.ToString(params.Prefix)) {
			continue
		}
		out.Uploads = append(out.Uploads, types.MultipartUpload{
			Key:      aws.String(upload.key),
			UploadId: aws.String(id),
		})
	}
	return out, nil
}

func (f *fakeS3Client) ListParts(ctx context.Context, params *s3.ListPartsInput, optFns ...func(*s3.Options)) (*s3.ListPartsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	upload, ok := f.uploads[aws.ToString(params.UploadId)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchUpload", Message: "no such upload"}
	}
	out := &s3.ListPartsOutput{IsTruncated: aws.Bool(false)}
	var numbers []int32
	for n := range upload.parts {
		numbers = append(numbers, n)
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	for _, n := range numbers {
		sum := md5.Sum(upload.parts[n])
		out.Parts = append(out.Parts, types.Part{
			PartNumber: aws.Int32(n),
			Size:       aws.Int64(int64(len(upload.parts[n]))),
			ETag:       aws.String("\"" + hex.EncodeToString(sum[:]) + "\""),
		})
	}
	return out, nil
}

func (f *fakeS3Client) UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	if f.failUploadPart {
		return nil, &smithy.GenericAPIError{Code: "InternalError", Message: "part upload failed"}
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	upload, ok := f.uploads[aws.ToString(params.UploadId)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchUpload", Message: "no such upload"}
	}
	upload.parts[aws.ToInt32(params.PartNumber)] = data
	sum := md5.Sum(data)
	return &s3.UploadPartOutput{ETag: aws.String("\"" + hex.EncodeToString(sum[:]) + "\"")}, nil
}

func (f *fakeS3Client) CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := aws.ToString(params.UploadId)
	upload, ok := f.uploads[id]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchUpload", Message: "no such upload"}
	}

	var numbers []int32
	for _, part := range params.MultipartUpload.Parts {
		numbers = append(numbers, aws.ToInt32(part.PartNumber))
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })

	var assembled []byte
	for _, n := range numbers {
		assembled = append(assembled, upload.parts[n]...)
	}
	f.objects[upload.key] = assembled
	f.multipartETags[upload.key] = fmt.Sprintf("%s-%d", hex.EncodeToString(md5.New().Sum(nil)), len(numbers))
	f.completedUploads = append(f.completedUploads, id)
	delete(f.uploads, id)

	return &s3.CompleteMultipartUploadOutput{Key: aws.String(upload.key)}, nil
}

func (f *fakeS3Client) AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := aws.ToString(params.UploadId)
	delete(f.uploads, id)
	f.abortedUploadIDs = append(f.abortedUploadIDs, id)
	return &s3.AbortMultipartUploadOutput{}, nil
}
