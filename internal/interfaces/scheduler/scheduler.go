// Package scheduler dispara las tareas periódicas del motor con robfig/cron.
package scheduler

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job tarea periódica. Corre como actor de sistema.
type Job struct {
	Name     string
	Schedule string // vacío = no se registra
	Run      func(ctx context.Context, actor entity.Actor) error
}

// Scheduler envuelve un cron con contexto cancelable para las tareas.
type Scheduler struct {
	c      *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger
}

// New registra los jobs. Una expresión inválida aborta el arranque.
func New(jobs []Job, log zerolog.Logger) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		c:      cron.New(),
		ctx:    ctx,
		cancel: cancel,
		log:    log.With().Str("component", "scheduler").Logger(),
	}
	for _, j := range jobs {
		if j.Schedule == "" {
			s.log.Info().Str("job", j.Name).Msg("job deshabilitado")
			continue
		}
		job := j
		if _, err := s.c.AddFunc(job.Schedule, func() { s.run(job) }); err != nil {
			cancel()
			return nil, fmt.Errorf("registrar job %s (%q): %w", job.Name, job.Schedule, err)
		}
		s.log.Info().Str("job", job.Name).Str("schedule", job.Schedule).Msg("job registrado")
	}
	return s, nil
}

func (s *Scheduler) run(j Job) {
	if err := j.Run(s.ctx, entity.SystemActor()); err != nil {
		s.log.Error().Err(err).Str("job", j.Name).Msg("job falló")
		return
	}
	s.log.Debug().Str("job", j.Name).Msg("job ejecutado")
}

// Entries cantidad de jobs registrados.
func (s *Scheduler) Entries() int { return len(s.c.Entries()) }

// Start arranca el cron en su propia goroutine.
func (s *Scheduler) Start() { s.c.Start() }

// Stop cancela las ejecuciones en curso y espera a que terminen.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.c.Stop().Done()
}
