package dto

import (
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/jobs"
)

// TaskResponse estado de una tarea en segundo plano.
type TaskResponse struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	Status     string     `json:"status"`
	Result     any        `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// TaskFromJob mapea la tarea.
func TaskFromJob(t jobs.Task) TaskResponse {
	return TaskResponse{
		ID:         t.ID,
		Kind:       t.Kind,
		Status:     string(t.Status),
		Result:     t.Result,
		Error:      t.Error,
		CreatedAt:  t.CreatedAt,
		StartedAt:  t.StartedAt,
		FinishedAt: t.FinishedAt,
	}
}
