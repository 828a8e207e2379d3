package carelinks

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"med-adherence-tracker/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/carelinks", func(cr chi.Router) {
		// El paciente invita a un caretaker
		cr.Post("/", inviteHandler(svc))

		// Vista del paciente sobre sus propios links
		cr.Get("/", listPatientLinksHandler(svc))

		cr.Post("/{linkID}/accept", acceptHandler(svc))
		cr.Post("/{linkID}/revoke", revokeHandler(svc))
	})

	// Vista del caretaker: invitaciones y links que le llegaron
	r.Get("/me/carelinks", listCaretakerLinksHandler(svc))

	// Atajo del caretaker: los pacientes que hoy puede ver
	r.Get("/patients", listPatientsHandler(svc))
}

type inviteRequest struct {
	CaretakerUserID string   `json:"caretaker_user_id"`
	Scopes          []string `json:"scopes"`
}

type careLinkResponse struct {
	ID              string     `json:"id"`
	PatientUserID   string     `json:"patient_user_id"`
	CaretakerUserID string     `json:"caretaker_user_id"`
	Scopes          []string   `json:"scopes"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	RevokedAt       *time.Time `json:"revoked_at,omitempty"`
}

func inviteHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req inviteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		scopes := make([]Scope, 0, len(req.Scopes))
		for _, s := range req.Scopes {
			scopes = append(scopes, Scope(s))
		}

		l, err := svc.Invite(r.Context(), InviteInput{
			PatientUserID:   claims.UserID,
			CaretakerUserID: req.CaretakerUserID,
			Scopes:          scopes,
		})
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, "invalid input", http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, toCareLinkResponse(l))
	}
}

func listPatientLinksHandler(svc *Service) http.HandlerFunc {
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
		writeLinkList(w, items)
	}
}

func listCaretakerLinksHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListByCaretaker(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeLinkList(w, items)
	}
}

func writeLinkList(w http.ResponseWriter, items []CareLink) {
	out := make([]careLinkResponse, 0, len(items))
	for _, l := range items {
		out = append(out, toCareLinkResponse(l))
	}
	writeJSON(w, http.StatusOK, out)
}

func acceptHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		l, err := svc.Accept(r.Context(), chi.URLParam(r, "linkID"), claims.UserID)
		if err != nil {
			writeCareLinkError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCareLinkResponse(l))
	}
}

func revokeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		l, err := svc.Revoke(r.Context(), chi.URLParam(r, "linkID"), claims.UserID)
		if err != nil {
			writeCareLinkError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCareLinkResponse(l))
	}
}

type patientRef struct {
	PatientUserID string   `json:"patient_user_id"`
	Scopes        []string `json:"scopes"`
}

func listPatientsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListByCaretaker(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]patientRef, 0, len(items))
		for _, l := range items {
			if l.Status != StatusActive {
				continue
			}
			out = append(out, patientRef{
				PatientUserID: l.PatientUserID,
				Scopes:        scopesToStrings(l.Scopes),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func writeCareLinkError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, "invalid input", http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "care link not found", http.StatusNotFound)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrBadState):
		http.Error(w, "invalid state", http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func scopesToStrings(in []Scope) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}

func toCareLinkResponse(l CareLink) careLinkResponse {
	return careLinkResponse{
		ID:              l.ID,
		PatientUserID:   l.PatientUserID,
		CaretakerUserID: l.CaretakerUserID,
		Scopes:          scopesToStrings(l.Scopes),
		Status:          string(l.Status),
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
		RevokedAt:       l.RevokedAt,
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos
// módulos para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
