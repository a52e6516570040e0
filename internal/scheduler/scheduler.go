package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"aide/internal/config"
	"aide/internal/models"
	"aide/internal/store"
)

// Scheduler enqueues the configured recurring tasks on their cron schedules.
// It is a pure producer; execution stays with the worker supervisor.
type Scheduler struct {
	queue store.JobQueue
	cron  *cron.Cron
}

func New(queue store.JobQueue, schedules []config.Schedule) (*Scheduler, error) {
	s := &Scheduler{
		queue: queue,
		cron:  cron.New(),
	}
	for _, entry := range schedules {
		params, err := buildParams(entry)
		if err != nil {
			return nil, err
		}
		if _, err := s.cron.AddFunc(entry.Spec, func() { s.enqueue(params) }); err != nil {
			return nil, fmt.Errorf("invalid schedule %q: %w", entry.Spec, err)
		}
	}
	return s, nil
}

func buildParams(entry config.Schedule) (store.EnqueueParams, error) {
	if entry.Task == "" {
		return store.EnqueueParams{}, fmt.Errorf("schedule %q has no task: %w", entry.Spec, models.ErrValidation)
	}
	priority, err := models.ParsePriority(entry.Priority)
	if err != nil {
		return store.EnqueueParams{}, fmt.Errorf("schedule %q: %w", entry.Spec, err)
	}
	return store.EnqueueParams{
		Task:     entry.Task,
		ChatID:   entry.ChatID,
		Source:   models.SourceScheduler,
		Priority: priority,
	}, nil
}

func (s *Scheduler) enqueue(params store.EnqueueParams) {
	id, err := s.queue.Enqueue(context.Background(), params)
	if err != nil {
		log.Errorf("Scheduler: failed to enqueue %q: %v", params.Task, err)
		return
	}
	log.Infof("Scheduler: enqueued job %s (%q)", id, params.Task)
}

// Start begins firing schedules in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling; already-running enqueue calls finish first.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Entries returns the number of registered schedules.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
