package uploads

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	blobmem "med-adherence-tracker/internal/adapters/blob/memory"
)

func TestService_Upload_HappyPath(t *testing.T) {
	store := blobmem.NewStore()
	svc := NewService(store, 1024)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC) }

	url, err := svc.Upload(context.Background(), "user-1", "my photo!.jpg", "image/jpeg", []byte("fake-jpeg"))
	require.NoError(t, err)

	// key: prefijo del usuario + nombre saneado
	assert.True(t, strings.HasPrefix(url, "memory://user-1/"), "url=%s", url)
	assert.True(t, strings.HasSuffix(url, "_my_photo_.jpg"), "url=%s", url)
	assert.Equal(t, 1, store.Len())
}

func TestService_Upload_TooLarge(t *testing.T) {
	svc := NewService(blobmem.NewStore(), 4)

	_, err := svc.Upload(context.Background(), "user-1", "a.png", "image/png", []byte("12345"))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestService_Upload_RejectsNonImage(t *testing.T) {
	svc := NewService(blobmem.NewStore(), 1024)

	_, err := svc.Upload(context.Background(), "user-1", "doc.pdf", "application/pdf", []byte("%PDF"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestService_Upload_NotConfigured(t *testing.T) {
	svc := NewService(nil, 1024)

	_, err := svc.Upload(context.Background(), "user-1", "a.png", "image/png", []byte("x"))
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestService_Upload_EmptyInput(t *testing.T) {
	svc := NewService(blobmem.NewStore(), 1024)

	_, err := svc.Upload(context.Background(), "", "a.png", "image/png", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Upload(context.Background(), "user-1", "a.png", "image/png", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
