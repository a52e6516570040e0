package models

import (
	"encoding/json"
	"time"
)

// Job is a single unit of requested work. It is created by Enqueue and only
// mutated through the queue's state-transition operations.
type Job struct {
	ID          string     `db:"id" json:"id"`
	Task        string     `db:"task" json:"task"`
	ChatID      string     `db:"chat_id" json:"chatId"`
	Source      string     `db:"source" json:"source"`
	PhoneNumber *string    `db:"phone_number" json:"phoneNumber,omitempty"`
	Priority    Priority   `db:"priority" json:"priority"`
	Status      string     `db:"status" json:"status"`
	SessionCode *string    `db:"session_code" json:"sessionCode,omitempty"`
	RetryCount  int        `db:"retry_count" json:"retryCount"`
	Result      *string    `db:"result" json:"result,omitempty"`
	Error       *string    `db:"error" json:"error,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	StartedAt   *time.Time `db:"started_at" json:"startedAt,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`
	FailedAt    *time.Time `db:"failed_at" json:"failedAt,omitempty"`
}

// Terminal reports whether the job has reached a final state.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// Contact is the trust profile for a conversational peer, keyed by phone number.
type Contact struct {
	ID                 int64           `db:"id" json:"id"`
	PhoneNumber        string          `db:"phone_number" json:"phoneNumber"`
	DisplayName        *string         `db:"display_name" json:"displayName,omitempty"`
	TrustLevel         string          `db:"trust_level" json:"trustLevel"`
	CommandPermissions json.RawMessage `db:"command_permissions" json:"commandPermissions"`
	CreatedAt          time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updatedAt"`
}

// Message is one recorded conversation turn.
type Message struct {
	ID        int64     `db:"id" json:"id"`
	ChatID    string    `db:"chat_id" json:"chatId"`
	Sender    string    `db:"sender" json:"sender"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
