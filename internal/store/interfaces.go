package store

import (
	"context"
	"time"

	"aide/internal/models"
)

// --- Job Queue ---

// EnqueueParams holds the caller-supplied fields of a new job. ID, status and
// createdAt are assigned by the queue.
type EnqueueParams struct {
	Task        string
	ChatID      string
	Source      string
	Priority    models.Priority // zero value means PriorityNormal
	PhoneNumber string          // optional, enables context enrichment
	SessionCode string          // optional, resumes a prior agent session
	RetryCount  int             // carried over by external retry policies
}

// JobQueue is the durable priority queue. All state transitions go through
// MarkActive/MarkCompleted/MarkFailed; guard violations return the
// models.ErrJob* errors and leave the queue unchanged.
type JobQueue interface {
	Enqueue(ctx context.Context, params EnqueueParams) (string, error)
	GetJob(ctx context.Context, id string) (*models.Job, error)
	GetPendingJobs(ctx context.Context) ([]*models.Job, error)
	GetNextJob(ctx context.Context) (*models.Job, error)
	GetActiveJob(ctx context.Context) (*models.Job, error)
	GetQueueDepth(ctx context.Context) (int, error)
	MarkActive(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string, result string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	ExpireOldJobs(ctx context.Context, maxAge time.Duration) (int64, error)
	ClearQueue(ctx context.Context) error
}

// --- Contact Store ---

type ContactStore interface {
	ResolveOrCreateContact(ctx context.Context, phoneNumber string) (*models.Contact, error)
	GetContactByPhone(ctx context.Context, phoneNumber string) (*models.Contact, error)
}

// --- Message Store ---

type MessageStore interface {
	RecordMessage(ctx context.Context, chatID, sender, body string) (*models.Message, error)
	// GetRecentMessages returns up to limit turns for the chat, oldest first.
	GetRecentMessages(ctx context.Context, chatID string, limit int) ([]*models.Message, error)
}
