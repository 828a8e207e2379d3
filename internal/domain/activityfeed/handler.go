package activityfeed

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"med-adherence-tracker/internal/domain/carelinks"
	"med-adherence-tracker/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, linksSvc *carelinks.Service) {
	r.Route("/patients/{patientID}/feed", func(fr chi.Router) {
		fr.Get("/", getFeedHandler(svc, linksSvc))
		fr.Post("/read-all", markAllReadHandler(svc, linksSvc))
		fr.Post("/clear", clearAllHandler(svc, linksSvc))

		// DELETE = dejar de monitorear (teardown del dashboard)
		fr.Delete("/", unwatchHandler(svc, linksSvc))
	})
}

type notificationResponse struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

type feedResponse struct {
	Items       []notificationResponse `json:"items"`
	UnreadCount int                    `json:"unread_count"`
}

// authorizeFeed exige claims + link activo con feed:read sobre el
// paciente. Acá no hay owner bypass: el feed es una vista del caretaker,
// el paciente no monitorea sus propias tomas.
func authorizeFeed(w http.ResponseWriter, r *http.Request, linksSvc *carelinks.Service) (caretakerID, patientID string, ok bool) {
	claims, found := middleware.GetClaims(r.Context())
	if !found || strings.TrimSpace(claims.UserID) == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return "", "", false
	}

	patientID = chi.URLParam(r, "patientID")
	l, err := linksSvc.GetActiveLink(r.Context(), patientID, claims.UserID)
	if err != nil || !carelinks.HasScope(l, carelinks.ScopeFeedRead) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return "", "", false
	}
	return claims.UserID, patientID, true
}

func getFeedHandler(svc *Service, linksSvc *carelinks.Service) http.HandlerFunc {
	// El primer GET registra el feed (watermark = ahora); los siguientes
	// devuelven lo que el poller fue acumulando. ?refresh=1 fuerza un
	// ciclo inmediato sin esperar al próximo tick.
	return func(w http.ResponseWriter, r *http.Request) {
		caretakerID, patientID, ok := authorizeFeed(w, r, linksSvc)
		if !ok {
			return
		}

		feed, err := svc.Watch(caretakerID, patientID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		if r.URL.Query().Get("refresh") == "1" {
			// best-effort: si el fetch falla se sirve el estado previo
			_ = svc.Refresh(r.Context(), caretakerID, patientID)
		}

		writeJSON(w, http.StatusOK, toFeedResponse(feed))
	}
}

func markAllReadHandler(svc *Service, linksSvc *carelinks.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caretakerID, patientID, ok := authorizeFeed(w, r, linksSvc)
		if !ok {
			return
		}

		feed, err := svc.Get(caretakerID, patientID)
		if err != nil {
			http.Error(w, "feed not found", http.StatusNotFound)
			return
		}

		feed.MarkAllRead(time.Now())
		writeJSON(w, http.StatusOK, toFeedResponse(feed))
	}
}

func clearAllHandler(svc *Service, linksSvc *carelinks.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caretakerID, patientID, ok := authorizeFeed(w, r, linksSvc)
		if !ok {
			return
		}

		feed, err := svc.Get(caretakerID, patientID)
		if err != nil {
			http.Error(w, "feed not found", http.StatusNotFound)
			return
		}

		feed.ClearAll(time.Now())
		writeJSON(w, http.StatusOK, toFeedResponse(feed))
	}
}

func unwatchHandler(svc *Service, linksSvc *carelinks.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caretakerID, patientID, ok := authorizeFeed(w, r, linksSvc)
		if !ok {
			return
		}

		svc.Unwatch(caretakerID, patientID)
		w.WriteHeader(http.StatusNoContent)
	}
}

func toFeedResponse(f *Feed) feedResponse {
	items := f.Items()
	out := feedResponse{
		Items:       make([]notificationResponse, 0, len(items)),
		UnreadCount: f.UnreadCount(),
	}
	for _, n := range items {
		out.Items = append(out.Items, notificationResponse(n))
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
