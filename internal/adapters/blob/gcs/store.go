package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"med-adherence-tracker/internal/ports/blob"
)

var (
	ErrNotConfigured = errors.New("gcs storage not configured")
)

// Config del adapter de Google Cloud Storage. Las credenciales salen de
// Application Default Credentials; acá solo se configura el destino.
type Config struct {
	Bucket string

	// Opcional: dominio público (CDN) delante del bucket. Si está vacío
	// se arma la URL directa de storage.googleapis.com.
	PublicBaseURL string
}

type Store struct {
	client        *storage.Client
	bucket        string
	publicBaseURL string
}

func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, ErrNotConfigured
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	return &Store{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"),
	}, nil
}

var _ blob.ImageStore = (*Store)(nil)

func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("blob key required")
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if ct := strings.TrimSpace(contentType); ct != "" {
		w.ContentType = ct
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcs upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs upload close: %w", err)
	}

	return s.publicURL(key), nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) publicURL(key string) string {
	if s.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s", s.publicBaseURL, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, key)
}
