package activityfeed

import (
	"sort"
	"sync"
	"time"
)

const DefaultLimit = 5

// Notification es un evento efímero de UI: vive solo en memoria, jamás
// se persiste. ID coincide con el id del intake log que lo originó.
type Notification struct {
	ID        string
	Message   string
	Timestamp time.Time
	Read      bool
}

// Observation es lo que un ciclo de polling ve: un intake log con el
// nombre de su medicación ya resuelto.
type Observation struct {
	LogID          string
	MedicationName string
	RecordedAt     time.Time
}

// Feed reduce snapshots periódicos del set de logs a una lista acotada de
// notificaciones, sin duplicados y sin re-alertar logs ya vistos.
//
// Estado: watermark (arranca en "ahora" al crearse: solo notifica tomas
// registradas después de empezar a mirar) y el set de log ids ya
// convertidos a notificación. Single-writer: el mutex serializa el ciclo
// de refresh contra las acciones del usuario.
type Feed struct {
	mu sync.Mutex

	limit     int
	watermark time.Time
	seen      map[string]struct{}
	items     []Notification
}

func NewFeed(limit int, now time.Time) *Feed {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Feed{
		limit:     limit,
		watermark: now,
		seen:      make(map[string]struct{}),
	}
}

// Apply incorpora un snapshot y devuelve las notificaciones nuevas que
// generó (ya ordenadas newest-first). Un log se notifica a lo sumo una
// vez en la vida del feed: el watermark puede avanzar, pero el set de
// vistos no se achica salvo ClearAll.
func (f *Feed) Apply(snapshot []Observation) []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	fresh := make([]Notification, 0)
	for _, obs := range snapshot {
		if obs.LogID == "" || !obs.RecordedAt.After(f.watermark) {
			continue
		}
		if _, ok := f.seen[obs.LogID]; ok {
			continue
		}
		f.seen[obs.LogID] = struct{}{}
		fresh = append(fresh, Notification{
			ID:        obs.LogID,
			Message:   obs.MedicationName + " taken at " + obs.RecordedAt.Format("15:04"),
			Timestamp: obs.RecordedAt,
		})
	}

	if len(fresh) == 0 {
		return nil
	}

	sort.Slice(fresh, func(i, j int) bool {
		return fresh[i].Timestamp.After(fresh[j].Timestamp)
	})

	f.items = append(fresh, f.items...)
	sort.SliceStable(f.items, func(i, j int) bool {
		return f.items[i].Timestamp.After(f.items[j].Timestamp)
	})
	if len(f.items) > f.limit {
		// los más viejos se descartan en silencio
		f.items = f.items[:f.limit]
	}

	return fresh
}

// Items devuelve una copia de la lista vigente (newest-first).
func (f *Feed) Items() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Notification, len(f.items))
	copy(out, f.items)
	return out
}

func (f *Feed) UnreadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, it := range f.items {
		if !it.Read {
			n++
		}
	}
	return n
}

// MarkAllRead deja unread en cero y avanza el watermark. Los ids vistos
// se conservan: un log jamás se re-notifica aunque el watermark se mueva.
func (f *Feed) MarkAllRead(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.items {
		f.items[i].Read = true
	}
	f.watermark = now
}

// ClearAll además vacía la lista y el set de vistos.
func (f *Feed) ClearAll(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items = nil
	f.seen = make(map[string]struct{})
	f.watermark = now
}
