package supastore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"med-adherence-tracker/internal/platform/httpclient"
	"med-adherence-tracker/internal/ports/blob"
)

var (
	ErrNotConfigured = errors.New("supabase storage not configured")
)

// Config del adapter de Supabase Storage. El bucket debe existir y ser
// público: las URLs que devolvemos son las public URLs del bucket.
type Config struct {
	BaseURL string // https://<project>.supabase.co
	APIKey  string // service role key
	Bucket  string
	Timeout time.Duration
}

type Store struct {
	http   *httpclient.Client
	apiKey string
	bucket string
}

func NewStore(cfg Config) (*Store, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	apiKey := strings.TrimSpace(cfg.APIKey)
	bucket := strings.TrimSpace(cfg.Bucket)
	if baseURL == "" || apiKey == "" || bucket == "" {
		return nil, ErrNotConfigured
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	hc, err := httpclient.NewWithBaseURL(baseURL, timeout)
	if err != nil {
		return nil, err
	}

	return &Store{
		http:   hc,
		apiKey: apiKey,
		bucket: bucket,
	}, nil
}

var _ blob.ImageStore = (*Store)(nil)

func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("blob key required")
	}

	path := fmt.Sprintf("/storage/v1/object/%s/%s", s.bucket, key)
	_, err := s.http.DoRaw(ctx, http.MethodPost, path, map[string]string{
		"apikey":        s.apiKey,
		"Authorization": "Bearer " + s.apiKey,
	}, contentType, data)
	if err != nil {
		return "", fmt.Errorf("supabase storage upload: %w", err)
	}

	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.http.BaseURL, s.bucket, key), nil
}
