package router

import (
	"context"
	"database/sql"
	"net/http"
	"os"

	mem "med-adherence-tracker/internal/adapters/storage/memory"
	pg "med-adherence-tracker/internal/adapters/storage/postgres"
	"med-adherence-tracker/internal/domain/activityfeed"
	"med-adherence-tracker/internal/domain/carelinks"
	"med-adherence-tracker/internal/domain/dashboard"
	"med-adherence-tracker/internal/domain/intakes"
	"med-adherence-tracker/internal/domain/medications"
	"med-adherence-tracker/internal/domain/uploads"
	"med-adherence-tracker/internal/middleware"
	"med-adherence-tracker/internal/platform/logger"
	"med-adherence-tracker/internal/ports/auth"
	"med-adherence-tracker/internal/ports/blob"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	// Opcional: si viene, habilita subir fotos de tomas.
	ImageStore blob.ImageStore

	Log logger.Logger

	FeedLimit      int
	MaxUploadBytes int64
}

// Services agrupa lo que main necesita además del handler (hoy: el feed
// para colgarlo del poller).
type Services struct {
	Feed *activityfeed.Service
}

func NewRouter(opts Options) (http.Handler, *Services) {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	var (
		medsRepo  medications.Repository
		logsRepo  intakes.Repository
		linksRepo carelinks.Repository
	)

	// Si no te pasan DB explícita, intenta por env (para dev/handoff)
	db := opts.DB
	if db == nil {
		if dsn := os.Getenv("DB_DSN"); dsn != "" {
			opened, err := pg.Open(dsn)
			if err == nil {
				db = opened
			}
		}
	}

	if db != nil {
		medsRepo = pg.NewMedicationsRepo(db)
		logsRepo = pg.NewIntakesRepo(db)
		linksRepo = pg.NewCareLinksRepo(db)
	} else {
		medsRepo = mem.NewMedicationsRepo()
		logsRepo = mem.NewIntakesRepo()
		linksRepo = mem.NewCareLinksRepo()
	}

	// Services por módulo
	logsSvc := intakes.NewService(logsRepo)
	medsSvc := medications.NewService(medsRepo, logsSvc)
	linksSvc := carelinks.NewService(linksRepo)
	dashSvc := dashboard.NewService(medsSvc, logsSvc, log)
	uploadsSvc := uploads.NewService(opts.ImageStore, opts.MaxUploadBytes)
	feedSvc := activityfeed.NewService(feedSnapshot(medsSvc, logsSvc), opts.FeedLimit, log)

	// Rutas por módulo
	medications.RegisterRoutes(r, medsSvc, linksSvc)
	intakes.RegisterRoutes(r, logsSvc, medsSvc, linksSvc)
	carelinks.RegisterRoutes(r, linksSvc)
	dashboard.RegisterRoutes(r, dashSvc, linksSvc)
	activityfeed.RegisterRoutes(r, feedSvc, linksSvc)
	uploads.RegisterRoutes(r, uploadsSvc)

	return r, &Services{Feed: feedSvc}
}

// feedSnapshot junta los logs recientes del paciente con el nombre de su
// medicación; es lo único que el feed necesita ver en cada ciclo.
func feedSnapshot(medsSvc *medications.Service, logsSvc *intakes.Service) activityfeed.SnapshotFunc {
	return func(ctx context.Context, patientUserID string) ([]activityfeed.Observation, error) {
		meds, err := medsSvc.ListByPatient(ctx, patientUserID)
		if err != nil {
			return nil, err
		}
		names := make(map[string]string, len(meds))
		for _, m := range meds {
			names[m.ID] = m.Name
		}

		logs, err := logsSvc.ListByPatient(ctx, patientUserID, intakes.ListFilter{Limit: 100})
		if err != nil {
			return nil, err
		}

		out := make([]activityfeed.Observation, 0, len(logs))
		for _, l := range logs {
			name, ok := names[l.MedicationID]
			if !ok {
				// log de una medicación ya borrada: no hay qué anunciar
				continue
			}
			out = append(out, activityfeed.Observation{
				LogID:          l.ID,
				MedicationName: name,
				RecordedAt:     l.RecordedAt,
			})
		}
		return out, nil
	}
}
