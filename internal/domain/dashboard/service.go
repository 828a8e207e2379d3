package dashboard

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"med-adherence-tracker/internal/domain/adherence"
	"med-adherence-tracker/internal/domain/intakes"
	"med-adherence-tracker/internal/domain/medications"
	"med-adherence-tracker/internal/platform/logger"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

// Service arma los insumos del cálculo de adherencia a partir de los
// repos y expone las vistas derivadas (reporte, calendario, "hoy").
// Nada de esto se cachea: se recalcula en cada lectura sobre el set
// completo de medicaciones + logs.
type Service struct {
	meds *medications.Service
	logs *intakes.Service
	log  logger.Logger
	now  func() time.Time
}

func NewService(meds *medications.Service, logs *intakes.Service, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		meds: meds,
		logs: logs,
		log:  log,
		now:  time.Now,
	}
}

// Report calcula la adherencia del paciente. days > 0 acota la ventana a
// los últimos N días (incluye hoy); days <= 0 evalúa desde el alta de la
// medicación más antigua. El fin de ventana siempre es hoy: los días
// futuros jamás cuentan como dosis esperadas.
func (s *Service) Report(ctx context.Context, patientUserID string, days int) (adherence.Report, error) {
	histories, err := s.histories(ctx, patientUserID)
	if err != nil {
		return adherence.Report{}, err
	}
	if len(histories) == 0 {
		return adherence.Report{}, nil
	}

	today := adherence.Today(s.now())

	start := histories[0].StartedOn
	for _, h := range histories[1:] {
		if h.StartedOn.Before(start) {
			start = h.StartedOn
		}
	}
	if days > 0 {
		windowStart := today.AddDays(-(days - 1))
		if start.Before(windowStart) {
			start = windowStart
		}
	}

	return adherence.Compute(histories, adherence.Window{Start: start, End: today}), nil
}

// DaySummary es el estado agregado de un día para el calendario.
type DaySummary struct {
	Date        string
	Status      string // taken | partial | missed | future | inactive
	TakenCount  int
	ActiveCount int
}

const (
	StatusTaken    = "taken"
	StatusPartial  = "partial"
	StatusMissed   = "missed"
	StatusFuture   = "future"
	StatusInactive = "inactive"
)

// Calendar devuelve el estado por día de un mes (YYYY-MM). Los días
// posteriores a hoy salen como "future": ni tomados ni perdidos.
func (s *Service) Calendar(ctx context.Context, patientUserID, month string) ([]DaySummary, error) {
	month = strings.TrimSpace(month)
	first, err := civil.ParseDate(month + "-01")
	if err != nil {
		return nil, ErrInvalidInput
	}
	// día 0 del mes siguiente == último día del mes
	lastOfMonth := time.Date(first.Year, first.Month+1, 0, 0, 0, 0, 0, time.UTC)
	last := civil.DateOf(lastOfMonth)

	histories, err := s.histories(ctx, patientUserID)
	if err != nil {
		return nil, err
	}

	today := adherence.Today(s.now())
	idx := adherence.BuildDayIndex(histories, first, last, today)

	out := make([]DaySummary, 0, last.DaysSince(first)+1)
	for d := first; !last.Before(d); d = d.AddDays(1) {
		ds := DaySummary{
			Date:        d.String(),
			TakenCount:  idx.TakenCount(d),
			ActiveCount: idx.ActiveCount(d),
		}
		switch {
		case idx.IsFuture(d):
			ds.Status = StatusFuture
		case ds.ActiveCount == 0:
			ds.Status = StatusInactive
		case ds.TakenCount == ds.ActiveCount:
			ds.Status = StatusTaken
		case ds.TakenCount == 0:
			ds.Status = StatusMissed
		default:
			ds.Status = StatusPartial
		}
		out = append(out, ds)
	}
	return out, nil
}

// TodayStatus es la vista "home" del paciente: cada medicación con su
// estado de toma de hoy.
type TodayStatus struct {
	MedicationID string
	Name         string
	Dosage       string
	Frequency    string
	Taken        bool
	LogID        string
	ImageURL     string
}

func (s *Service) Today(ctx context.Context, patientUserID string) ([]TodayStatus, error) {
	meds, err := s.meds.ListByPatient(ctx, patientUserID)
	if err != nil {
		return nil, err
	}

	todayStr := adherence.Today(s.now()).String()
	logs, err := s.logs.ListByPatient(ctx, patientUserID, intakes.ListFilter{Date: todayStr})
	if err != nil {
		return nil, err
	}

	byMed := make(map[string]intakes.IntakeLog, len(logs))
	for _, l := range logs {
		if _, ok := byMed[l.MedicationID]; !ok {
			byMed[l.MedicationID] = l
		}
	}

	out := make([]TodayStatus, 0, len(meds))
	for _, m := range meds {
		ts := TodayStatus{
			MedicationID: m.ID,
			Name:         m.Name,
			Dosage:       m.Dosage,
			Frequency:    m.Frequency,
		}
		if l, ok := byMed[m.ID]; ok {
			ts.Taken = true
			ts.LogID = l.ID
			ts.ImageURL = l.ImageURL
		}
		out = append(out, ts)
	}
	return out, nil
}

// histories junta medicaciones + fechas de toma como insumo puro del
// cálculo. Un log con fecha malformada no tira abajo el reporte entero:
// se loguea la anomalía y se excluye ese registro.
func (s *Service) histories(ctx context.Context, patientUserID string) ([]adherence.MedicationHistory, error) {
	patientUserID = strings.TrimSpace(patientUserID)
	if patientUserID == "" {
		return nil, ErrInvalidInput
	}

	meds, err := s.meds.ListByPatient(ctx, patientUserID)
	if err != nil {
		return nil, err
	}
	logs, err := s.logs.ListByPatient(ctx, patientUserID, intakes.ListFilter{})
	if err != nil {
		return nil, err
	}

	takenByMed := make(map[string][]civil.Date)
	for _, l := range logs {
		d, err := adherence.ParseDay(l.DateTaken)
		if err != nil {
			s.log.Warn("skipping intake log with malformed date", map[string]any{
				"log_id":    l.ID,
				"date":      l.DateTaken,
				"patient":   patientUserID,
				"med_id":    l.MedicationID,
				"parse_err": err.Error(),
			})
			continue
		}
		takenByMed[l.MedicationID] = append(takenByMed[l.MedicationID], d)
	}

	out := make([]adherence.MedicationHistory, 0, len(meds))
	for _, m := range meds {
		out = append(out, adherence.MedicationHistory{
			ID:        m.ID,
			Name:      m.Name,
			Frequency: m.Frequency,
			StartedOn: civil.DateOf(m.CreatedAt),
			TakenOn:   takenByMed[m.ID],
		})
	}
	return out, nil
}
