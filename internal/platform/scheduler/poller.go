package scheduler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
)

var (
	ErrInvalidInterval = errors.New("interval must be > 0")
)

// Poller corre tareas repetitivas con single-flight: si un tick sigue
// ejecutándose cuando toca el siguiente, ese tick se descarta
// (LimitModeReschedule), nunca se encolan ejecuciones solapadas.
type Poller struct {
	sched gocron.Scheduler
}

func New() (*Poller, error) {
	s, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, err
	}
	return &Poller{sched: s}, nil
}

// Every registra una tarea repetitiva. ctx se propaga a cada ejecución;
// task debe respetar su cancelación.
func (p *Poller) Every(ctx context.Context, name string, interval time.Duration, task func(context.Context)) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}
	if strings.TrimSpace(name) == "" {
		name = "poll"
	}

	_, err := p.sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if ctx.Err() != nil {
				return
			}
			task(ctx)
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	return err
}

func (p *Poller) Start() {
	p.sched.Start()
}

// Stop cancela los timers pendientes y espera a que terminen las
// ejecuciones en curso.
func (p *Poller) Stop() error {
	return p.sched.Shutdown()
}
