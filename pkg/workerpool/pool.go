// Package workerpool pool acotado de goroutines para tareas en segundo plano.
// Submit no bloquea: con la cola llena devuelve ErrPoolFull y el llamador decide.
package workerpool

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	ErrPoolFull   = errors.New("workerpool: pool lleno")
	ErrPoolClosed = errors.New("workerpool: pool cerrado")
)

// Pool goroutines fijas que drenan una cola con capacidad 2×size.
type Pool struct {
	tasks  chan func()
	wg     sync.WaitGroup
	once   sync.Once
	mu     sync.RWMutex
	closed bool
}

// New crea un pool con size workers (mínimo 1).
func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{tasks: make(chan func(), size*2)}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit encola task sin bloquear.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrPoolFull
	}
}

// SubmitWait encola task esperando un hueco en la cola.
func (p *Pool) SubmitWait(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.tasks <- task
	return nil
}

// Shutdown deja de aceptar tareas y espera a que terminen las encoladas.
// Se puede llamar varias veces.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.tasks)
		p.mu.Unlock()
		p.wg.Wait()
	})
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		safeRun(task)
	}
}

// safeRun ejecuta task recuperando panics para no perder el worker.
func safeRun(task func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("tarea en segundo plano abortada")
		}
	}()
	task()
}
