package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/lshigami/Margay/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// StorageProvider abstracts where uploaded document files live.
type StorageProvider interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Fetch(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// NewStorageProvider selects the provider from config. Local disk is the
// default; MinIO is used when STORAGE_PROVIDER=minio.
func NewStorageProvider(cfg *config.Config) (StorageProvider, error) {
	switch cfg.Storage.Provider {
	case "minio":
		return NewMinioStorageProvider(&cfg.Storage)
	case "local", "":
		return &LocalStorageProvider{Root: cfg.Storage.LocalPath}, nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}

// LocalStorageProvider keeps files under a root directory on disk.
type LocalStorageProvider struct {
	Root string
}

func (p *LocalStorageProvider) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	dst := filepath.Join(p.Root, key)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, reader)
	return err
}

func (p *LocalStorageProvider) Fetch(ctx context.Context, key string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(p.Root, key))
}

func (p *LocalStorageProvider) Delete(ctx context.Context, key string) error {
	return os.Remove(filepath.Join(p.Root, key))
}

// MinioStorageProvider stores files in a MinIO (S3-compatible) bucket.
type MinioStorageProvider struct {
	cfg    *config.Storage
	client *minio.Client
}

func NewMinioStorageProvider(cfg *config.Storage) (*MinioStorageProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}
	log.Info().Str("endpoint", cfg.MinioEndpoint).Str("bucket", cfg.MinioBucket).Msg("MinIO storage provider initialized")
	return &MinioStorageProvider{cfg: cfg, client: client}, nil
}

func (p *MinioStorageProvider) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := p.client.PutObject(ctx, p.cfg.MinioBucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (p *MinioStorageProvider) Fetch(ctx context.Context, key string) (io.ReadCloser, error) {
	return p.client.GetObject(ctx, p.cfg.MinioBucket, key, minio.GetObjectOptions{})
}

func (p *MinioStorageProvider) Delete(ctx context.Context, key string) error {
	return p.client.RemoveObject(ctx, p.cfg.MinioBucket, key, minio.RemoveObjectOptions{})
}
