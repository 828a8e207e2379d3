package uploads

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"med-adherence-tracker/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Post("/uploads", uploadHandler(svc))
}

type uploadResponse struct {
	URL string `json:"url"`
}

func uploadHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		// +1 para que un archivo exactamente en el límite pase y el
		// exceso corte acá en vez de en el service.
		r.Body = http.MaxBytesReader(w, r.Body, svc.MaxBytes()+1)
		if err := r.ParseMultipartForm(svc.MaxBytes()); err != nil {
			http.Error(w, "file size too large", http.StatusRequestEntityTooLarge)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing file field", http.StatusBadRequest)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		url, err := svc.Upload(r.Context(), claims.UserID, header.Filename, header.Header.Get("Content-Type"), data)
		if err != nil {
			switch {
			case errors.Is(err, ErrNotConfigured):
				http.Error(w, "image storage not configured", http.StatusServiceUnavailable)
			case errors.Is(err, ErrTooLarge):
				http.Error(w, "file size too large", http.StatusRequestEntityTooLarge)
			case errors.Is(err, ErrUnsupportedType):
				http.Error(w, "file must be an image", http.StatusUnsupportedMediaType)
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, "invalid input", http.StatusBadRequest)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, uploadResponse{URL: url})
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos
// módulos para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
