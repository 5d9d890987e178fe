package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client used by S3BlobStore.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3BlobStore uploads files to S3 buckets, using the file id as object key.
type S3BlobStore struct {
	client S3API
}

// NewS3BlobStore wraps an S3 client.
func NewS3BlobStore(client S3API) *S3BlobStore {
	if client == nil {
		panic("store: s3 client cannot be nil")
	}
	return &S3BlobStore{client: client}
}

func (s *S3BlobStore) CreateFile(ctx context.Context, bucket, id string, file File) (*FileRef, error) {
	if bucket == "" || id == "" {
		return nil, errors.New("store: bucket and file id required")
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(id),
		Body:          bytes.NewReader(file.Data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(file.Data))),
		Metadata:      map[string]string{"filename": file.Name},
	})
	if err != nil {
		return nil, remote(fmt.Sprintf("put object %s/%s", bucket, id), err)
	}
	return &FileRef{
		ID:          id,
		Bucket:      bucket,
		Name:        file.Name,
		ContentType: contentType,
		SizeBytes:   int64(len(file.Data)),
	}, nil
}
