package primary

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aide/internal/models"
	"aide/internal/store"
)

func setupTestStore(t *testing.T) *StoreImpl {
	t.Helper()
	s, err := NewPrimaryStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func mustEnqueue(t *testing.T, s *StoreImpl, params store.EnqueueParams) string {
	t.Helper()
	id, err := s.Enqueue(context.Background(), params)
	require.NoError(t, err)
	return id
}

func TestEnqueueAssignsIDAndDefaults(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	id := mustEnqueue(t, s, store.EnqueueParams{Task: "check calendar", ChatID: "chat-1", Source: models.SourceCLI})
	assert.NotEmpty(t, id)

	job, err := s.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "check calendar", job.Task)
	assert.Equal(t, models.PriorityNormal, job.Priority)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, 0, job.RetryCount)
	assert.False(t, job.CreatedAt.IsZero())
	assert.Nil(t, job.StartedAt)
	assert.Nil(t, job.Result)
	assert.Nil(t, job.Error)
}

func TestEnqueueValidation(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.Enqueue(ctx, store.EnqueueParams{Task: ""})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = s.Enqueue(ctx, store.EnqueueParams{Task: "x", Priority: models.Priority(60)})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestPendingJobsOrderedByPriorityThenFIFO(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	lowID := mustEnqueue(t, s, store.EnqueueParams{Task: "low task", Priority: models.PriorityLow})
	criticalID := mustEnqueue(t, s, store.EnqueueParams{Task: "critical task", Priority: models.PriorityCritical})
	normalID := mustEnqueue(t, s, store.EnqueueParams{Task: "normal task", Priority: models.PriorityNormal})

	jobs, err := s.GetPendingJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, criticalID, jobs[0].ID)
	assert.Equal(t, normalID, jobs[1].ID)
	assert.Equal(t, lowID, jobs[2].ID)

	next, err := s.GetNextJob(ctx)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "critical task", next.Task)

	// FIFO within a priority tier.
	firstHigh := mustEnqueue(t, s, store.EnqueueParams{Task: "high 1", Priority: models.PriorityHigh})
	time.Sleep(2 * time.Millisecond)
	secondHigh := mustEnqueue(t, s, store.EnqueueParams{Task: "high 2", Priority: models.PriorityHigh})

	jobs, err = s.GetPendingJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 5)
	assert.Equal(t, criticalID, jobs[0].ID)
	assert.Equal(t, firstHigh, jobs[1].ID)
	assert.Equal(t, secondHigh, jobs[2].ID)
}

func TestGetNextJobEmptyQueue(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	next, err := s.GetNextJob(ctx)
	require.NoError(t, err)
	assert.Nil(t, next)

	jobs, err := s.GetPendingJobs(ctx)
	require.NoError(t, err)
	assert.NotNil(t, jobs)
	assert.Empty(t, jobs)
}

func TestMarkActiveSingleFlight(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first := mustEnqueue(t, s, store.EnqueueParams{Task: "first"})
	second := mustEnqueue(t, s, store.EnqueueParams{Task: "second"})

	require.NoError(t, s.MarkActive(ctx, first))

	job, err := s.GetJob(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusActive, job.Status)
	require.NotNil(t, job.StartedAt)

	// Second activation must fail without side effects.
	err = s.MarkActive(ctx, second)
	assert.ErrorIs(t, err, models.ErrJobAlreadyActive)

	job, err = s.GetJob(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Nil(t, job.StartedAt)
}

func TestMarkActiveGuards(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	err := s.MarkActive(ctx, "missing-id")
	assert.ErrorIs(t, err, models.ErrNotFound)

	id := mustEnqueue(t, s, store.EnqueueParams{Task: "task"})
	require.NoError(t, s.MarkActive(ctx, id))
	require.NoError(t, s.MarkCompleted(ctx, id, "done"))

	// Terminal states are never re-entered.
	err = s.MarkActive(ctx, id)
	assert.ErrorIs(t, err, models.ErrJobNotPending)
}

func TestMarkCompletedAndFailed(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	completedID := mustEnqueue(t, s, store.EnqueueParams{Task: "will complete"})
	require.NoError(t, s.MarkActive(ctx, completedID))
	require.NoError(t, s.MarkCompleted(ctx, completedID, "all good"))

	job, err := s.GetJob(ctx, completedID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	require.NotNil(t, job.Result)
	assert.Equal(t, "all good", *job.Result)
	assert.NotNil(t, job.CompletedAt)
	assert.Nil(t, job.FailedAt)

	failedID := mustEnqueue(t, s, store.EnqueueParams{Task: "will fail"})
	require.NoError(t, s.MarkActive(ctx, failedID))
	require.NoError(t, s.MarkFailed(ctx, failedID, "agent exploded"))

	job, err = s.GetJob(ctx, failedID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	require.NotNil(t, job.Error)
	assert.Equal(t, "agent exploded", *job.Error)
	assert.NotNil(t, job.FailedAt)
	assert.Nil(t, job.CompletedAt)

	// Active partition is empty again.
	active, err := s.GetActiveJob(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestMarkTerminalRequiresActive(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	id := mustEnqueue(t, s, store.EnqueueParams{Task: "still pending"})

	assert.ErrorIs(t, s.MarkCompleted(ctx, id, "r"), models.ErrJobNotActive)
	assert.ErrorIs(t, s.MarkFailed(ctx, id, "e"), models.ErrJobNotActive)
	assert.ErrorIs(t, s.MarkCompleted(ctx, "missing-id", "r"), models.ErrNotFound)

	require.NoError(t, s.MarkActive(ctx, id))
	require.NoError(t, s.MarkFailed(ctx, id, "boom"))

	// No terminal-to-terminal edges.
	assert.ErrorIs(t, s.MarkCompleted(ctx, id, "r"), models.ErrJobNotActive)
	assert.ErrorIs(t, s.MarkFailed(ctx, id, "again"), models.ErrJobNotActive)
}

func TestGetQueueDepthCountsPendingOnly(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	mustEnqueue(t, s, store.EnqueueParams{Task: "a"})
	activeID := mustEnqueue(t, s, store.EnqueueParams{Task: "b", Priority: models.PriorityHigh})
	require.NoError(t, s.MarkActive(ctx, activeID))

	depth, err := s.GetQueueDepth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)
}

func TestExpireOldJobs(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	completedID := mustEnqueue(t, s, store.EnqueueParams{Task: "done"})
	require.NoError(t, s.MarkActive(ctx, completedID))
	require.NoError(t, s.MarkCompleted(ctx, completedID, "ok"))

	failedID := mustEnqueue(t, s, store.EnqueueParams{Task: "broken"})
	require.NoError(t, s.MarkActive(ctx, failedID))
	require.NoError(t, s.MarkFailed(ctx, failedID, "nope"))

	pendingID := mustEnqueue(t, s, store.EnqueueParams{Task: "waiting"})

	// A huge max age is a no-op.
	n, err := s.ExpireOldJobs(ctx, 1000*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	// Zero deletes all terminal jobs immediately.
	time.Sleep(2 * time.Millisecond)
	n, err = s.ExpireOldJobs(ctx, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = s.GetJob(ctx, completedID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = s.GetJob(ctx, failedID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	// Non-terminal jobs are untouched.
	job, err := s.GetJob(ctx, pendingID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, job.Status)
}

func TestClearQueue(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	mustEnqueue(t, s, store.EnqueueParams{Task: "a"})
	activeID := mustEnqueue(t, s, store.EnqueueParams{Task: "b", Priority: models.PriorityCritical})
	require.NoError(t, s.MarkActive(ctx, activeID))

	require.NoError(t, s.ClearQueue(ctx))

	depth, err := s.GetQueueDepth(ctx)
	require.NoError(t, err)
	assert.Zero(t, depth)

	active, err := s.GetActiveJob(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)

	jobs, err := s.GetPendingJobs(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestJobsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "aide.db")

	s, err := NewPrimaryStore(ctx, dbPath)
	require.NoError(t, err)
	id := mustEnqueue(t, s, store.EnqueueParams{
		Task:        "survive restart",
		ChatID:      "chat-9",
		Priority:    models.PriorityHigh,
		SessionCode: "sess-42",
	})
	require.NoError(t, s.Close())

	reopened, err := NewPrimaryStore(ctx, dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	job, err := reopened.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "survive restart", job.Task)
	assert.Equal(t, models.PriorityHigh, job.Priority)
	assert.Equal(t, models.JobStatusPending, job.Status)
	require.NotNil(t, job.SessionCode)
	assert.Equal(t, "sess-42", *job.SessionCode)
}
