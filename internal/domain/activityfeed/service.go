package activityfeed

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"med-adherence-tracker/internal/platform/logger"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotWatching  = errors.New("not watching")
)

// SnapshotFunc trae el estado actual de logs de un paciente como
// observaciones. Es el punto de contacto con el storage; el feed en sí
// nunca toca repos.
type SnapshotFunc func(ctx context.Context, patientUserID string) ([]Observation, error)

type watcher struct {
	caretakerUserID string
	patientUserID   string
	feed            *Feed
}

// Service mantiene un Feed por (caretaker, paciente) observado y corre el
// ciclo de refresh. Un fetch fallido deja el estado del feed tal cual:
// ni limpia notificaciones ni avanza watermark; el próximo tick reintenta.
type Service struct {
	mu       sync.RWMutex
	watchers map[string]*watcher

	snapshot SnapshotFunc
	limit    int
	log      logger.Logger
	now      func() time.Time
}

func NewService(snapshot SnapshotFunc, limit int, log logger.Logger) *Service {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		watchers: make(map[string]*watcher),
		snapshot: snapshot,
		limit:    limit,
		log:      log,
		now:      time.Now,
	}
}

func feedKey(caretakerUserID, patientUserID string) string {
	return caretakerUserID + "|" + patientUserID
}

// Watch registra (o devuelve) el feed de un caretaker sobre un paciente.
// El watermark del feed nuevo arranca en "ahora": solo se notifican tomas
// posteriores al inicio del monitoreo.
func (s *Service) Watch(caretakerUserID, patientUserID string) (*Feed, error) {
	caretakerUserID = strings.TrimSpace(caretakerUserID)
	patientUserID = strings.TrimSpace(patientUserID)
	if caretakerUserID == "" || patientUserID == "" {
		return nil, ErrInvalidInput
	}

	key := feedKey(caretakerUserID, patientUserID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.watchers[key]; ok {
		return w.feed, nil
	}
	w := &watcher{
		caretakerUserID: caretakerUserID,
		patientUserID:   patientUserID,
		feed:            NewFeed(s.limit, s.now()),
	}
	s.watchers[key] = w
	return w.feed, nil
}

// Unwatch descarta el feed (teardown al salir del dashboard).
func (s *Service) Unwatch(caretakerUserID, patientUserID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.watchers, feedKey(caretakerUserID, patientUserID))
}

// Get devuelve el feed si existe, sin crearlo.
func (s *Service) Get(caretakerUserID, patientUserID string) (*Feed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.watchers[feedKey(caretakerUserID, patientUserID)]
	if !ok {
		return nil, ErrNotWatching
	}
	return w.feed, nil
}

// Refresh corre un ciclo fetch-then-reduce para un feed puntual.
func (s *Service) Refresh(ctx context.Context, caretakerUserID, patientUserID string) error {
	feed, err := s.Get(caretakerUserID, patientUserID)
	if err != nil {
		return err
	}

	snap, err := s.snapshot(ctx, patientUserID)
	if err != nil {
		// estado intacto, error transitorio para el caller
		return err
	}
	feed.Apply(snap)
	return nil
}

// RefreshAll corre el ciclo sobre todos los feeds registrados. Es la
// tarea que dispara el poller cada intervalo; los errores por paciente se
// loguean y no afectan al resto.
func (s *Service) RefreshAll(ctx context.Context) {
	s.mu.RLock()
	all := make([]*watcher, 0, len(s.watchers))
	for _, w := range s.watchers {
		all = append(all, w)
	}
	s.mu.RUnlock()

	for _, w := range all {
		if ctx.Err() != nil {
			return
		}
		snap, err := s.snapshot(ctx, w.patientUserID)
		if err != nil {
			s.log.Warn("feed refresh failed", map[string]any{
				"patient": w.patientUserID,
				"error":   err.Error(),
			})
			continue
		}
		w.feed.Apply(snap)
	}
}
