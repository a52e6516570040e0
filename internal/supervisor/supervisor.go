package supervisor

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"aide/internal/models"
	"aide/internal/store"
)

// TaskEnricher produces the task text to execute for a job.
type TaskEnricher interface {
	EnrichIfApplicable(ctx context.Context, job *models.Job) string
}

// SendMessageFunc delivers a job's result or error to its chat destination.
type SendMessageFunc func(chatID, message string) error

const defaultTimeout = 30 * time.Minute

// Supervisor is the single-flight execution engine. It pulls the next job
// from the queue, runs the agent process for it and records the terminal
// state. At most one job runs at a time, enforced both by the in-process
// guard and by the queue's single-active check.
type Supervisor struct {
	queue    store.JobQueue
	enricher TaskEnricher
	runner   AgentRunner
	timeout  time.Duration

	mu          sync.Mutex
	running     bool
	cancelRun   context.CancelFunc
	sendMessage SendMessageFunc
}

func New(queue store.JobQueue, enricher TaskEnricher, runner AgentRunner, timeout time.Duration) *Supervisor {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Supervisor{
		queue:    queue,
		enricher: enricher,
		runner:   runner,
		timeout:  timeout,
	}
}

// SetSendMessageCallback registers (or clears, with nil) the result-delivery
// callback. The callback is snapshotted when a job starts, so swapping it
// mid-job only affects subsequent completions.
func (s *Supervisor) SetSendMessageCallback(fn SendMessageFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendMessage = fn
}

// IsProcessing reports whether a job is currently running.
func (s *Supervisor) IsProcessing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// CurrentTask returns the task text of the active job, read from queue state,
// or empty when idle.
func (s *Supervisor) CurrentTask(ctx context.Context) (string, bool) {
	job, err := s.queue.GetActiveJob(ctx)
	if err != nil || job == nil {
		return "", false
	}
	return job.Task, true
}

// CurrentSessionCode returns the session token of the active job, or empty
// when idle or when the job carries none.
func (s *Supervisor) CurrentSessionCode(ctx context.Context) (string, bool) {
	job, err := s.queue.GetActiveJob(ctx)
	if err != nil || job == nil || job.SessionCode == nil {
		return "", false
	}
	return *job.SessionCode, true
}

// KillCurrentProcess terminates the in-flight agent process if one exists.
// Safe to call at any time; a no-op when idle. The interrupted run records
// the job's failure itself as it unwinds.
func (s *Supervisor) KillCurrentProcess() {
	s.mu.Lock()
	cancel := s.cancelRun
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// ProcessNextJob runs one scheduling round: pop the highest-priority pending
// job, mark it active, execute the agent and record the terminal state.
// Returns false without side effects when the queue is empty, a job is
// already active, or the supervisor is already running. Execution-path
// failures are recorded on the job; the supervisor itself always returns to
// idle.
func (s *Supervisor) ProcessNextJob(ctx context.Context) bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return false
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.cancelRun = nil
		s.mu.Unlock()
	}()

	active, err := s.queue.GetActiveJob(ctx)
	if err != nil {
		log.Errorf("Supervisor: failed to check active job: %v", err)
		return false
	}
	if active != nil {
		return false
	}

	job, err := s.queue.GetNextJob(ctx)
	if err != nil {
		log.Errorf("Supervisor: failed to fetch next job: %v", err)
		return false
	}
	if job == nil {
		return false
	}

	if err := s.queue.MarkActive(ctx, job.ID); err != nil {
		// Lost the race to another producer-side actor; nothing started.
		log.Warnf("Supervisor: could not activate job %s: %v", job.ID, err)
		return false
	}

	s.execute(ctx, job)
	return true
}

func (s *Supervisor) execute(ctx context.Context, job *models.Job) {
	task := job.Task
	if s.enricher != nil {
		task = s.enricher.EnrichIfApplicable(ctx, job)
	}

	// Snapshot the callback for this job before spawning.
	s.mu.Lock()
	callback := s.sendMessage
	s.mu.Unlock()

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	s.mu.Lock()
	s.cancelRun = cancel
	s.mu.Unlock()
	defer cancel()

	req := RunRequest{Task: task}
	if job.SessionCode != nil {
		req.SessionCode = *job.SessionCode
	}

	log.Infof("Supervisor: executing job %s (priority %s, source %s)", job.ID, job.Priority, job.Source)
	started := time.Now()
	output, runErr := s.runner.Run(runCtx, req)
	elapsed := time.Since(started)

	if runErr != nil {
		errMsg := runErr.Error()
		switch {
		case errors.Is(runErr, context.DeadlineExceeded):
			errMsg = "job timed out after " + s.timeout.String()
		case errors.Is(runErr, context.Canceled):
			errMsg = "job canceled: agent process killed"
		}
		log.Warnf("Supervisor: job %s failed in %v: %s", job.ID, elapsed, errMsg)
		s.finishFailed(job, callback, errMsg)
		return
	}

	env, err := ParseEnvelope(output)
	if err != nil {
		errMsg := "malformed agent output: " + err.Error()
		log.Warnf("Supervisor: job %s failed in %v: %s", job.ID, elapsed, errMsg)
		s.finishFailed(job, callback, errMsg)
		return
	}

	log.Infof("Supervisor: job %s completed in %v", job.ID, elapsed)
	s.deliver(job, callback, env.Result)
	// Terminal transitions use a fresh context so driver shutdown cannot
	// strand the job in the active partition.
	if err := s.queue.MarkCompleted(context.Background(), job.ID, env.Result); err != nil {
		log.Errorf("Supervisor: failed to mark job %s completed: %v", job.ID, err)
	}
}

func (s *Supervisor) finishFailed(job *models.Job, callback SendMessageFunc, errMsg string) {
	s.deliver(job, callback, "Task failed: "+errMsg)
	if err := s.queue.MarkFailed(context.Background(), job.ID, errMsg); err != nil {
		log.Errorf("Supervisor: failed to mark job %s failed: %v", job.ID, err)
	}
}

// deliver invokes the snapshotted callback. Callback errors and panics are
// logged and never block the job's terminal transition.
func (s *Supervisor) deliver(job *models.Job, callback SendMessageFunc, message string) {
	if callback == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Supervisor: send-message callback panicked for job %s: %v", job.ID, r)
		}
	}()
	if err := callback(job.ChatID, message); err != nil {
		log.Errorf("Supervisor: send-message callback failed for job %s: %v", job.ID, err)
	}
}
