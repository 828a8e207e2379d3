package uploads

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"med-adherence-tracker/internal/ports/blob"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotConfigured   = errors.New("image storage not configured")
	ErrTooLarge        = errors.New("file size too large")
	ErrUnsupportedType = errors.New("file must be an image")
)

// Caracteres fuera de [a-zA-Z0-9.-] se reemplazan en el nombre del
// archivo antes de armar la key.
var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// Service valida y sube fotos de tomas. La validación (tipo imagen,
// tamaño máximo) vive acá; el adapter de blob solo persiste. Falla de
// validación => nada se sube, cero estado parcial.
type Service struct {
	store    blob.ImageStore
	maxBytes int64
	now      func() time.Time
}

func NewService(store blob.ImageStore, maxBytes int64) *Service {
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	return &Service{
		store:    store,
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// Upload sube una imagen y devuelve su URL pública.
// Key: <userID>/<unix ms>_<nombre saneado>, así las fotos de cada usuario
// quedan bajo su propio prefijo.
func (s *Service) Upload(ctx context.Context, userID, filename, contentType string, data []byte) (string, error) {
	if s.store == nil {
		return "", ErrNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", ErrInvalidInput
	}
	if len(data) == 0 {
		return "", ErrInvalidInput
	}
	if int64(len(data)) > s.maxBytes {
		return "", ErrTooLarge
	}
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/") {
		return "", ErrUnsupportedType
	}

	name := unsafeChars.ReplaceAllString(strings.TrimSpace(filename), "_")
	if name == "" {
		name = "photo"
	}
	key := fmt.Sprintf("%s/%d_%s", userID, s.now().UnixMilli(), name)

	url, err := s.store.Put(ctx, key, data, contentType)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	return url, nil
}
