package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"med-adherence-tracker/internal/ports/blob"
)

// Store guarda blobs en un map. Solo para dev y tests: las URLs que
// devuelve no sirven para descargar nada.
type Store struct {
	mu     sync.RWMutex
	byKey  map[string][]byte
	ctypes map[string]string
}

func NewStore() *Store {
	return &Store{
		byKey:  make(map[string][]byte),
		ctypes: make(map[string]string),
	}
}

var _ blob.ImageStore = (*Store)(nil)

func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("blob key required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]byte, len(data))
	copy(cp, data)
	s.byKey[key] = cp
	s.ctypes[key] = contentType

	return "memory://" + key, nil
}

// Get existe para poder inspeccionar en tests lo que se subió.
func (s *Store) Get(key string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.byKey[key]
	if !ok {
		return nil, "", false
	}
	return data, s.ctypes[key], true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey)
}
