package storage

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS stores blobs as publicly readable objects of a Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
}

// NewGCS opens a Cloud Storage client. credentialsFile may be empty to use the
// application default credentials.
func NewGCS(ctx context.Context, bucket, credentialsFile string) (*GCS, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

// Put uploads data under key and returns https://storage.googleapis.com/<bucket>/<key>.
func (s *GCS) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.PredefinedACL = "publicRead"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return PublicURL(s.bucket, key), nil
}

// Close releases the client.
func (s *GCS) Close() error {
	return s.client.Close()
}

// PublicURL is the anonymous-read URL of an object.
func PublicURL(bucket, key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, key)
}
