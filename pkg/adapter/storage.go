package adapter

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
)

// Storage is the interface for object storage used by the audit sink.
type Storage interface {
	// Put returns a writer for the object at key
	Put(ctx context.Context, key string) (io.WriteCloser, error)
	// Get opens the object at key for reading
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// storageClient implements Storage using Cloud Storage
type storageClient struct {
	bucketName string
	client     *storage.Client
}

// NewStorage creates a new Cloud Storage client
func NewStorage(ctx context.Context, bucketName string) (Storage, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	return &storageClient{
		bucketName: bucketName,
		client:     client,
	}, nil
}

func (s *storageClient) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	bucket := s.client.Bucket(s.bucketName)
	obj := bucket.Object(key)
	return obj.NewWriter(ctx), nil
}

func (s *storageClient) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	bucket := s.client.Bucket(s.bucketName)
	obj := bucket.Object(key)
	reader, err := obj.NewReader(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read from storage", goerr.V("key", key))
	}

	return reader, nil
}
