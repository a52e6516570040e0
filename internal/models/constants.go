package models

import "fmt"

// Job status constants. Transitions only move forward:
// pending -> active -> completed|failed.
const (
	JobStatusPending   = "pending"
	JobStatusActive    = "active"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Priority orders pending jobs; higher runs first. Ties within a level are
// broken by enqueue time (FIFO).
type Priority int

const (
	PriorityCritical Priority = 100
	PriorityHigh     Priority = 75
	PriorityNormal   Priority = 50
	PriorityLow      Priority = 25
)

// Valid reports whether p is one of the defined priority levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityNormal, PriorityLow:
		return true
	}
	return false
}

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// ParsePriority maps a priority name (as used by the CLI, API and schedule
// config) to its level. An empty string yields the default, PriorityNormal.
func ParsePriority(name string) (Priority, error) {
	switch name {
	case "":
		return PriorityNormal, nil
	case "critical":
		return PriorityCritical, nil
	case "high":
		return PriorityHigh, nil
	case "normal":
		return PriorityNormal, nil
	case "low":
		return PriorityLow, nil
	}
	return 0, fmt.Errorf("unknown priority %q: %w", name, ErrValidation)
}

// Job source tags. SourceIMessage is the conversational channel that supports
// context enrichment (when the job also carries a phone number).
const (
	SourceIMessage  = "imessage"
	SourceWebhook   = "webhook"
	SourceScheduler = "scheduler"
	SourceCLI       = "cli"
)
