package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrQueueClosed is returned by Enqueue once Shutdown has started.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job references a persisted import job. The job record itself is the source of truth.
type Job struct {
	ID          uuid.UUID
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// Handler runs one job. It must tolerate being handed a job another worker already claimed.
type Handler interface {
	ProcessJob(ctx context.Context, id uuid.UUID) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, id uuid.UUID) error

func (f HandlerFunc) ProcessJob(ctx context.Context, id uuid.UUID) error { return f(ctx, id) }
