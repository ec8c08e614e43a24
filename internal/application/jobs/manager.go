// Package jobs ejecuta operaciones largas (importación masiva, regeneración de
// pronósticos) como tareas cancelables sobre un pool acotado de workers.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/pkg/metrics"
	"github.com/jhoicas/stock-ledger/pkg/workerpool"
	"github.com/rs/zerolog"
)

// Status estado de una tarea.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Done indica si la tarea ya no cambiará.
func (s Status) Done() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// Task vista de una tarea. Las copias devueltas no cambian con la ejecución.
type Task struct {
	ID         string
	Kind       string
	Owner      string
	Status     Status
	Result     any
	Error      string
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// Func cuerpo de una tarea; debe atender la cancelación de ctx.
type Func func(ctx context.Context) (any, error)

type entry struct {
	task   Task
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager registro de tareas en memoria del proceso.
type Manager struct {
	pool  *workerpool.Pool
	mu    sync.Mutex
	tasks map[string]*entry
	log   zerolog.Logger
}

// NewManager construye el manager sobre pool.
func NewManager(pool *workerpool.Pool, log zerolog.Logger) *Manager {
	return &Manager{
		pool:  pool,
		tasks: make(map[string]*entry),
		log:   log.With().Str("component", "jobs").Logger(),
	}
}

// Start encola fn con un contexto propio cancelable mediante Cancel.
func (m *Manager) Start(kind, owner string, fn Func) (Task, error) {
	ctx, cancel := context.WithCancel(context.Background())
	e := &entry{
		task: Task{
			ID:        uuid.New().String(),
			Kind:      kind,
			Owner:     owner,
			Status:    StatusPending,
			CreatedAt: time.Now().UTC(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}

	m.mu.Lock()
	m.tasks[e.task.ID] = e
	snapshot := e.task
	m.mu.Unlock()

	if err := m.pool.Submit(func() { m.run(ctx, e, fn) }); err != nil {
		cancel()
		m.mu.Lock()
		delete(m.tasks, e.task.ID)
		m.mu.Unlock()
		return Task{}, fmt.Errorf("encolar tarea %s: %w", kind, err)
	}
	m.log.Info().Str("task_id", snapshot.ID).Str("kind", kind).Str("owner", owner).Msg("tarea encolada")
	return snapshot, nil
}

func (m *Manager) run(ctx context.Context, e *entry, fn Func) {
	defer close(e.done)
	defer e.cancel()

	m.mu.Lock()
	if ctx.Err() != nil {
		m.finishLocked(e, nil, ctx.Err())
		m.mu.Unlock()
		return
	}
	now := time.Now().UTC()
	e.task.Status = StatusRunning
	e.task.StartedAt = &now
	m.mu.Unlock()

	result, err := fn(ctx)

	m.mu.Lock()
	m.finishLocked(e, result, err)
	m.mu.Unlock()
}

func (m *Manager) finishLocked(e *entry, result any, err error) {
	now := time.Now().UTC()
	e.task.FinishedAt = &now
	e.task.Result = result
	switch {
	case err == nil:
		e.task.Status = StatusSucceeded
	case errors.Is(err, context.Canceled):
		e.task.Status = StatusCancelled
		e.task.Error = err.Error()
	default:
		e.task.Status = StatusFailed
		e.task.Error = err.Error()
	}
	metrics.TasksTotal.WithLabelValues(e.task.Kind, string(e.task.Status)).Inc()
	m.log.Info().
		Str("task_id", e.task.ID).
		Str("kind", e.task.Kind).
		Str("status", string(e.task.Status)).
		Err(err).
		Msg("tarea finalizada")
}

// Get devuelve una copia de la tarea.
func (m *Manager) Get(id string) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.tasks[id]
	if !ok {
		return Task{}, domain.ErrNotFound
	}
	return e.task, nil
}

// List tareas por fecha de creación descendente.
func (m *Manager) List() []Task {
	m.mu.Lock()
	out := make([]Task, 0, len(m.tasks))
	for _, e := range m.tasks {
		out = append(out, e.task)
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Cancel solicita la cancelación. La tarea termina en CANCELLED cuando fn observa ctx.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.tasks[id]
	if !ok {
		return domain.ErrNotFound
	}
	if e.task.Status.Done() {
		return &domain.StateTransitionError{Current: string(e.task.Status), Action: "cancel"}
	}
	e.cancel()
	return nil
}

// Wait bloquea hasta que la tarea termine o ctx se cancele.
func (m *Manager) Wait(ctx context.Context, id string) (Task, error) {
	m.mu.Lock()
	e, ok := m.tasks[id]
	m.mu.Unlock()
	if !ok {
		return Task{}, domain.ErrNotFound
	}
	select {
	case <-e.done:
		return m.Get(id)
	case <-ctx.Done():
		return Task{}, ctx.Err()
	}
}

// Shutdown cancela las tareas en curso y espera a los workers.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	for _, e := range m.tasks {
		e.cancel()
	}
	m.mu.Unlock()
	m.pool.Shutdown()
}
