package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"med-adherence-tracker/internal/domain/adherence"
	"med-adherence-tracker/internal/domain/carelinks"
	"med-adherence-tracker/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, linksSvc *carelinks.Service) {
	// Vistas del propio paciente
	r.Get("/me/adherence", ownReportHandler(svc))
	r.Get("/me/calendar", ownCalendarHandler(svc))
	r.Get("/me/today", ownTodayHandler(svc))

	// Vistas del caretaker sobre un paciente vinculado
	r.Get("/patients/{patientID}/adherence", patientReportHandler(svc, linksSvc))
	r.Get("/patients/{patientID}/calendar", patientCalendarHandler(svc, linksSvc))
	r.Get("/patients/{patientID}/today", patientTodayHandler(svc, linksSvc))
}

type reportResponse struct {
	AdherenceRatePercent int `json:"adherence_rate_percent"`
	CurrentStreakDays    int `json:"current_streak_days"`
	TakenDoseCount       int `json:"taken_dose_count"`
	MissedDoseCount      int `json:"missed_dose_count"`
}

type daySummaryResponse struct {
	Date        string `json:"date"`
	Status      string `json:"status"`
	TakenCount  int    `json:"taken_count"`
	ActiveCount int    `json:"active_count"`
}

type todayStatusResponse struct {
	MedicationID string `json:"medication_id"`
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Taken        bool   `json:"taken"`
	LogID        string `json:"log_id,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
}

func ownReportHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		serveReport(w, r, svc, claims.UserID)
	}
}

func ownCalendarHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		serveCalendar(w, r, svc, claims.UserID)
	}
}

func ownTodayHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		serveToday(w, r, svc, claims.UserID)
	}
}

func patientReportHandler(svc *Service, linksSvc *carelinks.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := authorizePatientView(w, r, linksSvc, carelinks.ScopeAdherenceRead)
		if !ok {
			return
		}
		serveReport(w, r, svc, patientID)
	}
}

func patientCalendarHandler(svc *Service, linksSvc *carelinks.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := authorizePatientView(w, r, linksSvc, carelinks.ScopeAdherenceRead)
		if !ok {
			return
		}
		serveCalendar(w, r, svc, patientID)
	}
}

func patientTodayHandler(svc *Service, linksSvc *carelinks.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := authorizePatientView(w, r, linksSvc, carelinks.ScopeAdherenceRead)
		if !ok {
			return
		}
		serveToday(w, r, svc, patientID)
	}
}

// authorizePatientView resuelve {patientID} y exige link activo con el
// scope pedido. El propio paciente pasa directo (owner bypass).
func authorizePatientView(w http.ResponseWriter, r *http.Request, linksSvc *carelinks.Service, scope carelinks.Scope) (string, bool) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return "", false
	}

	patientID := chi.URLParam(r, "patientID")
	if patientID == claims.UserID {
		return patientID, true
	}

	l, err := linksSvc.GetActiveLink(r.Context(), patientID, claims.UserID)
	if err != nil || !carelinks.HasScope(l, scope) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return "", false
	}
	return patientID, true
}

func serveReport(w http.ResponseWriter, r *http.Request, svc *Service, patientID string) {
	days := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "invalid days", http.StatusBadRequest)
			return
		}
		days = n
	}

	rep, err := svc.Report(r.Context(), patientID, days)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toReportResponse(rep))
}

func serveCalendar(w http.ResponseWriter, r *http.Request, svc *Service, patientID string) {
	month := r.URL.Query().Get("month")
	days, err := svc.Calendar(r.Context(), patientID, month)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			http.Error(w, "invalid month, expected YYYY-MM", http.StatusBadRequest)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]daySummaryResponse, 0, len(days))
	for _, d := range days {
		out = append(out, daySummaryResponse(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func serveToday(w http.ResponseWriter, r *http.Request, svc *Service, patientID string) {
	items, err := svc.Today(r.Context(), patientID)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]todayStatusResponse, 0, len(items))
	for _, it := range items {
		out = append(out, todayStatusResponse(it))
	}
	writeJSON(w, http.StatusOK, out)
}

func toReportResponse(r adherence.Report) reportResponse {
	return reportResponse{
		AdherenceRatePercent: r.AdherenceRatePercent,
		CurrentStreakDays:    r.CurrentStreakDays,
		TakenDoseCount:       r.TakenDoseCount,
		MissedDoseCount:      r.MissedDoseCount,
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos
// módulos para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
