package store

import (
	"context"
	"encoding/json"
	"io"
	"path"
	"sync"
	"time"

	"cloud.google.com/go/storage"
)

// gcsOpTimeout bounds each object operation. The Store API stays
// context-free to match LocalStore.
const gcsOpTimeout = 30 * time.Second

// GCSStore keeps state as JSON objects in a Cloud Storage bucket,
// optionally under a key prefix. Scheduled jobs on ephemeral runners
// share the published log this way.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
	mu     sync.RWMutex
}

// NewGCS opens a GCSStore on the given bucket. An empty prefix stores
// objects at the bucket root.
func NewGCS(ctx context.Context, bucket, prefix string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GCSStore{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// Get retrieves a value by key. The second return is false when the
// object does not exist or cannot be read.
func (s *GCSStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), gcsOpTimeout)
	defer cancel()

	reader, err := s.client.Bucket(s.bucket).Object(s.objectName(key)).NewReader(ctx)
	if err != nil {
		return nil, false
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set stores a value, overwriting any previous object.
func (s *GCSStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), gcsOpTimeout)
	defer cancel()

	writer := s.client.Bucket(s.bucket).Object(s.objectName(key)).NewWriter(ctx)
	writer.ContentType = "application/json"

	if _, err := writer.Write(value); err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}

// GetJSON retrieves and unmarshals a JSON value.
func (s *GCSStore) GetJSON(key string, v interface{}) bool {
	data, ok := s.Get(key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// SetJSON marshals and stores a value as JSON.
func (s *GCSStore) SetJSON(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(key, data)
}

// Close closes the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) objectName(key string) string {
	if s.prefix == "" {
		return key + ".json"
	}
	return path.Join(s.prefix, key+".json")
}
