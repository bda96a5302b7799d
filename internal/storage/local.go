package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// localStore implements ArtifactStore on top of a directory tree. Each
// 'bucket' is a directory directly beneath the configured root.
type localStore struct {
	root string
}

func NewLocalStore(root string) *localStore {
	if root == "" {
		root = "."
	}

	return &localStore{root: root}
}

func (store *localStore) bucketPath(bucket string) string {
	return filepath.Join(store.root, bucket)
}

func (store *localStore) EnsureBucket(_ context.Context, bucket string) error {
	if bucket == "" {
		return errors.New("bucket name is required")
	}

	if err := os.MkdirAll(store.bucketPath(bucket), 0o755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", bucket, err)
	}

	return nil
}

func (store *localStore) Put(ctx context.Context, bucket string, key string, data []byte, _ string) error {
	if err := store.EnsureBucket(ctx, bucket); err != nil {
		return err
	}

	path := filepath.Join(store.bucketPath(bucket), key)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write '%s': %w", path, err)
	}

	return nil
}

func (store *localStore) Get(_ context.Context, bucket string, key string) ([]byte, error) {
	path := filepath.Join(store.bucketPath(bucket), key)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrArtifactNotFound
		}

		return nil, fmt.Errorf("failed to read '%s': %w", path, err)
	}

	return data, nil
}

func (store *localStore) List(_ context.Context, bucket string) ([]string, error) {
	entries, err := os.ReadDir(store.bucketPath(bucket))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}

		return nil, fmt.Errorf("failed to list directory '%s': %w", bucket, err)
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			keys = append(keys, entry.Name())
		}
	}

	return keys, nil
}

func (store *localStore) Wipe(ctx context.Context, bucket string) error {
	keys, err := store.List(ctx, bucket)
	if err != nil {
		return err
	}

	for _, key := range keys {
		if err := os.Remove(filepath.Join(store.bucketPath(bucket), key)); err != nil {
			return fmt.Errorf("failed to remove '%s/%s': %w", bucket, key, err)
		}
	}

	return nil
}
