package medications

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"med-adherence-tracker/internal/domain/carelinks"
	"med-adherence-tracker/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, linksSvc *carelinks.Service) {
	r.Route("/medications", func(mr chi.Router) {
		mr.Post("/", createMedicationHandler(svc))
		mr.Get("/", listMedicationsHandler(svc))

		// Detalle (owner o caretaker con meds:read)
		mr.Get("/{medicationID}", getMedicationHandler(svc, linksSvc))

		// Editar (owner o caretaker con meds:manage)
		mr.Patch("/{medicationID}", updateMedicationHandler(svc, linksSvc))

		// Borrar: solo el owner; cascadea los logs
		mr.Delete("/{medicationID}", deleteMedicationHandler(svc))
	})
}

type createMedicationRequest struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Instructions string `json:"instructions"`
}

type updateMedicationRequest struct {
	// Punteros para PATCH real: nil = no tocar.
	Name         *string `json:"name"`
	Dosage       *string `json:"dosage"`
	Frequency    *string `json:"frequency"`
	Instructions *string `json:"instructions"`
}

type medicationResponse struct {
	ID            string    `json:"id"`
	PatientUserID string    `json:"patient_user_id"`
	Name          string    `json:"name"`
	Dosage        string    `json:"dosage"`
	Frequency     string    `json:"frequency"`
	Instructions  string    `json:"instructions"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func createMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createMedicationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		m, err := svc.Create(r.Context(), claims.UserID, CreateInput{
			Name:         req.Name,
			Dosage:       req.Dosage,
			Frequency:    req.Frequency,
			Instructions: req.Instructions,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusCreated, toMedicationResponse(m))
	}
}

func listMedicationsHandler(svc *Service) http.HandlerFunc {
	// Owner-only: un caretaker lista vía /patients/{patientID}/...
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListByPatient(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]medicationResponse, 0, len(items))
		for _, m := range items {
			out = append(out, toMedicationResponse(m))
		}

		writeJSON(w, http.StatusOK, out)
	}
}

func getMedicationHandler(svc *Service, linksSvc *carelinks.Service) http.HandlerFunc {
	// Owner bypass, caretaker requiere meds:read
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		medicationID := chi.URLParam(r, "medicationID")
		m, err := svc.GetByID(r.Context(), medicationID)
		if err != nil {
			http.Error(w, "medication not found", http.StatusNotFound)
			return
		}

		if m.PatientUserID != claims.UserID {
			l, err := linksSvc.GetActiveLink(r.Context(), m.PatientUserID, claims.UserID)
			if err != nil || !carelinks.HasScope(l, carelinks.ScopeMedsRead) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
		}

		writeJSON(w, http.StatusOK, toMedicationResponse(m))
	}
}

func updateMedicationHandler(svc *Service, linksSvc *carelinks.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		medicationID := chi.URLParam(r, "medicationID")
		current, err := svc.GetByID(r.Context(), medicationID)
		if err != nil {
			http.Error(w, "medication not found", http.StatusNotFound)
			return
		}

		// Authorize: owner bypass, else link activo + scope
		if current.PatientUserID != claims.UserID {
			l, err := linksSvc.GetActiveLink(r.Context(), current.PatientUserID, claims.UserID)
			if err != nil || !carelinks.HasScope(l, carelinks.ScopeMedsManage) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
		}

		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()

		var req updateMedicationRequest
		if err := dec.Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		updated, err := svc.Update(r.Context(), medicationID, UpdateInput{
			Name:         req.Name,
			Dosage:       req.Dosage,
			Frequency:    req.Frequency,
			Instructions: req.Instructions,
		})
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrNotFound):
				http.Error(w, "medication not found", http.StatusNotFound)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, toMedicationResponse(updated))
	}
}

func deleteMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		medicationID := chi.URLParam(r, "medicationID")
		m, err := svc.GetByID(r.Context(), medicationID)
		if err != nil {
			http.Error(w, "medication not found", http.StatusNotFound)
			return
		}
		if m.PatientUserID != claims.UserID {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		if err := svc.Delete(r.Context(), medicationID); err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func toMedicationResponse(m Medication) medicationResponse {
	return medicationResponse{
		ID:            m.ID,
		PatientUserID: m.PatientUserID,
		Name:          m.Name,
		Dosage:        m.Dosage,
		Frequency:     m.Frequency,
		Instructions:  m.Instructions,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos
// módulos para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
