package store

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockS3Client struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	m.input = input
	m.body, _ = io.ReadAll(input.Body)
	if m.err != nil {
		return nil, m.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3BlobStore_CreateFile(t *testing.T) {
	mock := &mockS3Client{}
	s := NewS3BlobStore(mock)

	ref, err := s.CreateFile(context.Background(), "ids", "file-1", File{Name: "passport.png", ContentType: "image/png", Data: []byte("png")})
	require.NoError(t, err)
	assert.Equal(t, "file-1", ref.ID)
	assert.Equal(t, int64(3), ref.SizeBytes)
	assert.Equal(t, "ids", *mock.input.Bucket)
	assert.Equal(t, "file-1", *mock.input.Key)
	assert.Equal(t, "passport.png", mock.input.Metadata["filename"])
	assert.Equal(t, []byte("png"), mock.body)
}

func TestS3BlobStore_DefaultContentType(t *testing.T) {
	mock := &mockS3Client{}
	ref, err := NewS3BlobStore(mock).CreateFile(context.Background(), "ids", "file-2", File{Name: "scan"})
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", ref.ContentType)
}

func TestS3BlobStore_FailureIsUnavailable(t *testing.T) {
	mock := &mockS3Client{err: errors.New("AccessDenied")}
	_, err := NewS3BlobStore(mock).CreateFile(context.Background(), "ids", "file-3", File{Name: "x"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestS3BlobStore_RequiresBucket(t *testing.T) {
	_, err := NewS3BlobStore(&mockS3Client{}).CreateFile(context.Background(), "", "file", File{})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
}
