package intakes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"med-adherence-tracker/internal/domain/carelinks"
	"med-adherence-tracker/internal/domain/medications"
	"med-adherence-tracker/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, medsSvc *medications.Service, linksSvc *carelinks.Service) {
	// Logs anidados bajo su medicación, como sub-recurso
	r.Route("/medications/{medicationID}/logs", func(lr chi.Router) {
		lr.Post("/", logIntakeHandler(svc, medsSvc))
		lr.Get("/", listMedicationLogsHandler(svc, medsSvc, linksSvc))
	})

	// Vista plana de todos los logs del paciente autenticado
	r.Get("/logs", listOwnLogsHandler(svc))
}

type logIntakeRequest struct {
	DateTaken string `json:"date_taken"` // YYYY-MM-DD
	ImageURL  string `json:"image_url"`
}

type intakeLogResponse struct {
	ID            string    `json:"id"`
	MedicationID  string    `json:"medication_id"`
	PatientUserID string    `json:"patient_user_id"`
	DateTaken     string    `json:"date_taken"`
	RecordedAt    time.Time `json:"recorded_at"`
	ImageURL      string    `json:"image_url,omitempty"`
}

func logIntakeHandler(svc *Service, medsSvc *medications.Service) http.HandlerFunc {
	// Registrar una toma es acción del paciente: solo el owner de la
	// medicación puede.
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		medicationID := chi.URLParam(r, "medicationID")
		ownerID, err := medsSvc.OwnerOf(r.Context(), medicationID)
		if err != nil {
			http.Error(w, "medication not found", http.StatusNotFound)
			return
		}
		if ownerID != claims.UserID {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		var req logIntakeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		l, err := svc.Log(r.Context(), claims.UserID, medicationID, CreateInput{
			DateTaken: req.DateTaken,
			ImageURL:  req.ImageURL,
		})
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, "invalid input", http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, toIntakeLogResponse(l))
	}
}

func listMedicationLogsHandler(svc *Service, medsSvc *medications.Service, linksSvc *carelinks.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		medicationID := chi.URLParam(r, "medicationID")
		ownerID, err := medsSvc.OwnerOf(r.Context(), medicationID)
		if err != nil {
			http.Error(w, "medication not found", http.StatusNotFound)
			return
		}

		if ownerID != claims.UserID {
			l, err := linksSvc.GetActiveLink(r.Context(), ownerID, claims.UserID)
			if err != nil || !carelinks.HasScope(l, carelinks.ScopeLogsRead) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
		}

		items, err := svc.ListByMedication(r.Context(), medicationID, filterFromQuery(r))
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, toIntakeLogResponses(items))
	}
}

func listOwnLogsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListByPatient(r.Context(), claims.UserID, filterFromQuery(r))
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, toIntakeLogResponses(items))
	}
}

// filterFromQuery arma el ListFilter desde ?date, ?from, ?to y ?limit.
// Valores inválidos se ignoran en vez de romper el request.
func filterFromQuery(r *http.Request) ListFilter {
	q := r.URL.Query()
	f := ListFilter{
		Date: strings.TrimSpace(q.Get("date")),
		From: strings.TrimSpace(q.Get("from")),
		To:   strings.TrimSpace(q.Get("to")),
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			f.Limit = n
		}
	}
	return f
}

func toIntakeLogResponse(l IntakeLog) intakeLogResponse {
	return intakeLogResponse{
		ID:            l.ID,
		MedicationID:  l.MedicationID,
		PatientUserID: l.PatientUserID,
		DateTaken:     l.DateTaken,
		RecordedAt:    l.RecordedAt,
		ImageURL:      l.ImageURL,
	}
}

func toIntakeLogResponses(items []IntakeLog) []intakeLogResponse {
	out := make([]intakeLogResponse, 0, len(items))
	for _, l := range items {
		out = append(out, toIntakeLogResponse(l))
	}
	return out
}

// writeJSON está duplicado intencionalmente en handlers de distintos
// módulos para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
