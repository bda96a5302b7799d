package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/fabricahq/fabrica/pkg/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var log = logger.Get("Storage")

// objectStore implements ArtifactStore using the minio-go SDK for real
// MinIO/S3 connectivity.
type objectStore struct {
	client *minio.Client
}

// NewObjectStore creates a MinIO-backed artifact store from config. The
// endpoint may carry a scheme; 'https' forces TLS regardless of any other
// setting.
func NewObjectStore(config Config) (*objectStore, error) {
	if config.Endpoint == "" {
		return nil, errors.New("object store endpoint is required")
	}
	if config.AccessKey == "" || config.SecretKey == "" {
		return nil, errors.New("object store credentials are required")
	}

	endpoint := config.Endpoint
	useSSL := false
	if parsed, err := url.Parse(config.Endpoint); err == nil && parsed.Host != "" {
		endpoint = parsed.Host
		useSSL = parsed.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	return &objectStore{client: client}, nil
}

func (store *objectStore) EnsureBucket(ctx context.Context, bucket string) error {
	if bucket == "" {
		return errors.New("bucket name is required")
	}

	exists, err := store.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket '%s': %w", bucket, err)
	}
	if exists {
		return nil
	}

	if err := store.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket '%s': %w", bucket, err)
	}

	log.Emit(logger.NEW, "Created bucket '%s'\n", bucket)
	return nil
}

func (store *objectStore) Put(ctx context.Context, bucket string, key string, data []byte, contentType string) error {
	_, err := store.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to store '%s/%s': %w", bucket, key, err)
	}

	return nil
}

func (store *objectStore) Get(ctx context.Context, bucket string, key string) ([]byte, error) {
	object, err := store.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open '%s/%s': %w", bucket, key, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		var errResp minio.ErrorResponse
		if errors.As(err, &errResp) && errResp.Code == "NoSuchKey" {
			return nil, ErrArtifactNotFound
		}

		return nil, fmt.Errorf("failed to read '%s/%s': %w", bucket, key, err)
	}

	return data, nil
}

func (store *objectStore) List(ctx context.Context, bucket string) ([]string, error) {
	keys := make([]string, 0)
	for object := range store.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Recursive: true}) {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list bucket '%s': %w", bucket, object.Err)
		}

		keys = append(keys, object.Key)
	}

	return keys, nil
}

func (store *objectStore) Wipe(ctx context.Context, bucket string) error {
	keys, err := store.List(ctx, bucket)
	if err != nil {
		return err
	}

	for _, key := range keys {
		if err := store.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to remove '%s/%s': %w", bucket, key, err)
		}
	}

	log.Emit(logger.REMOVE, "Wiped bucket '%s' (%d objects removed)\n", bucket, len(keys))
	return nil
}
