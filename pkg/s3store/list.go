package s3store

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ListKeys returns every key under prefix in listing order, descending into
// the whole subtree. An empty prefix lists the bucket.
func (s *DataStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	summaries, err := s.ListObjects(ctx, prefix)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(summaries))
	for _, summary := range summaries {
		keys = append(keys, summary.Key)
	}
	return keys, nil
}

// ListObjects returns the summaries of every object under prefix in listing
// order, descending into the whole subtree.
func (s *DataStore) ListObjects(ctx context.Context, prefix string) ([]ObjectSummary, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.config.Bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var objects []ObjectSummary
	paginator := s3.NewListObjectsV2Paginator(s.client, input)

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrapError("list objects", prefix, err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			summary := ObjectSummary{
				Key:  *obj.Key,
				Size: aws.ToInt64(obj.Size),
			}
			if obj.ETag != nil {
				summary.ETag = strings.Trim(*obj.ETag, "\"")
			}
			if obj.LastModified != nil {
				summary.LastModified = *obj.LastModified
			}
			objects = append(objects, summary)
		}
	}

	return objects, nil
}

// ListChildKeys returns the immediate children of a folder key: file keys
// as they are, child folders as keys with a trailing delimiter. The folder
// key itself may be given with or without its trailing delimiter.
func (s *DataStore) ListChildKeys(ctx context.Context, folderKey string) ([]string, error) {
	prefix := folderPrefix(folderKey)

	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.config.Bucket),
		Delimiter: aws.String("/"),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var children []string
	paginator := s3.NewListObjectsV2Paginator(s.client, input)

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrapError("list children", folderKey, err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil || *obj.Key == prefix {
				continue
			}
			children = append(children, *obj.Key)
		}
		for _, cp := range page.CommonPrefixes {
			if cp.Prefix == nil {
				continue
			}
			children = append(children, *cp.Prefix)
		}
	}

	return children, nil
}

// listSingleKey performs the one-object listing the point queries share:
// prefix-scoped, delimiter-bounded, first entry only.
func (s *DataStore) listSingleKey(ctx context.Context, key string) (*s3.ListObjectsV2Output, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.config.Bucket),
		Prefix:    aws.String(key),
		Delimiter: aws.String("/"),
		MaxKeys:   aws.Int32(1),
	})
	if err != nil {
		return nil, wrapError("list single key", key, err)
	}
	return out, nil
}

// KeyExists checks whether key exists, as a file or as a folder prefix
func (s *DataStore) KeyExists(ctx context.Context, key string) (bool, error) {
	out, err := s.listSingleKey(ctx, key)
	if err != nil {
		return false, err
	}
	return len(out.Contents) > 0 || len(out.CommonPrefixes) > 0, nil
}

// KeyIsFile checks whether key is a file, returning false for a folder.
// A key that does not exist at all is an ErrKeyNotFound error.
func (s *DataStore) KeyIsFile(ctx context.Context, key string) (bool, error) {
	out, err := s.listSingleKey(ctx, key)
	if err != nil {
		return false, err
	}
	if len(out.Contents) == 0 && len(out.CommonPrefixes) == 0 {
		return false, wrapError("key is file", key, ErrKeyNotFound)
	}
	return len(out.Contents) > 0 && aws.ToString(out.Contents[0].Key) == key, nil
}

// KeySize returns the object size for a file key and zero for a folder key.
// A key that does not exist at all is an ErrKeyNotFound error.
func (s *DataStore) KeySize(ctx context.Context, key string) (int64, error) {
	out, err := s.listSingleKey(ctx, key)
	if err != nil {
		return 0, err
	}
	if len(out.Contents) == 0 && len(out.CommonPrefixes) == 0 {
		return 0, wrapError("key size", key, ErrKeyNotFound)
	}
	if len(out.Contents) > 0 && aws.ToString(out.Contents[0].Key) == key {
		return aws.ToInt64(out.Contents[0].Size), nil
	}
	return 0, nil
}
