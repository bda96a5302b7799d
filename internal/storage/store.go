// Package storage persists the artifacts produced by the pipeline stages.
// Two backends exist: a MinIO/S3 object store (the deployment default) and
// a plain local-directory store for development runs.
package storage

import (
	"context"
	"errors"
)

// ErrArtifactNotFound is returned by Get when the requested key does not
// exist in the target bucket.
var ErrArtifactNotFound = errors.New("artifact not found")

type (
	// Config captures the object-store connection settings alongside the
	// bucket names each pipeline stage persists to. When UseObjectStore is
	// disabled the bucket names double as local directory names.
	Config struct {
		Endpoint  string `yaml:"endpoint" env:"MINIO_ENDPOINT" env-default:"http://minio:9000"`
		AccessKey string `yaml:"access_key" env:"MINIO_ACCESS_KEY" env-default:"minioadmin"`
		SecretKey string `yaml:"secret_key" env:"MINIO_SECRET_KEY" env-default:"minioadmin"`

		InsightsBucket     string `yaml:"insights_bucket" env:"MINIO_BUCKET_NAME_INSIGHTS" env-default:"insights"`
		ScriptsBucket      string `yaml:"scripts_bucket" env:"MINIO_BUCKET_NAME_ROTEIROS" env-default:"roteiros"`
		LessonsBucket      string `yaml:"lessons_bucket" env:"MINIO_BUCKET_NAME" env-default:"aulas-inclusao-digital"`
		PillsBucket        string `yaml:"pills_bucket" env:"MINIO_BUCKET_PILULAS" env-default:"pilulas"`
		InfographicsBucket string `yaml:"infographics_bucket" env:"MINIO_BUCKET_INFOGRAFICOS" env-default:"infograficos"`

		UseObjectStore  bool `yaml:"use_object_store" env:"SAVE_ON_MINIO" env-default:"true"`
		WipeBeforeStart bool `yaml:"wipe_before_start" env:"WIPE_BUCKET_BEFORE_START" env-default:"false"`

		// LocalRoot anchors the local-directory backend. Defaults to the
		// working directory so that 'insights_idosos' and friends appear
		// alongside the binary, matching the original deployment layout.
		LocalRoot     string `yaml:"local_root" env:"LOCAL_STORAGE_ROOT" env-default:"."`
		LocalInsights string `yaml:"local_insights_dir" env-default:"insights_idosos"`
		LocalScripts  string `yaml:"local_scripts_dir" env-default:"roteiros"`
		LocalPills    string `yaml:"local_pills_dir" env-default:"pilulas"`
		LocalLessons  string `yaml:"local_lessons_dir" env-default:"aulas"`
	}

	// ArtifactStore is the persistence seam shared by every pipeline
	// stage. A 'bucket' maps to an object-store bucket or a local
	// directory depending on the backend.
	ArtifactStore interface {
		// EnsureBucket creates the named bucket if it does not already exist.
		EnsureBucket(ctx context.Context, bucket string) error

		// Put writes the artifact bytes under the given key, replacing any
		// existing artifact with that key.
		Put(ctx context.Context, bucket string, key string, data []byte, contentType string) error

		// Get retrieves a previously stored artifact. ErrArtifactNotFound is
		// returned when no artifact exists under the key.
		Get(ctx context.Context, bucket string, key string) ([]byte, error)

		// List returns the keys currently present in the bucket.
		List(ctx context.Context, bucket string) ([]string, error)

		// Wipe removes every artifact in the bucket, leaving the bucket
		// itself in place.
		Wipe(ctx context.Context, bucket string) error
	}
)

// InsightsLocation returns the bucket (or directory) name the insight
// stage persists to for the active backend.
func (config *Config) InsightsLocation() string {
	if config.UseObjectStore {
		return config.InsightsBucket
	}
	return config.LocalInsights
}

func (config *Config) ScriptsLocation() string {
	if config.UseObjectStore {
		return config.ScriptsBucket
	}
	return config.LocalScripts
}

func (config *Config) PillsLocation() string {
	if config.UseObjectStore {
		return config.PillsBucket
	}
	return config.LocalPills
}

func (config *Config) LessonsLocation() string {
	if config.UseObjectStore {
		return config.LessonsBucket
	}
	return config.LocalLessons
}

// InfographicsLocation shares the pills directory locally so that a pill
// and its infographic sit side by side during development.
func (config *Config) InfographicsLocation() string {
	if config.UseObjectStore {
		return config.InfographicsBucket
	}
	return config.LocalPills
}

// New constructs the artifact store matching the provided configuration.
func New(config Config) (ArtifactStore, error) {
	if config.UseObjectStore {
		return NewObjectStore(config)
	}

	return NewLocalStore(config.LocalRoot), nil
}
