package apihandlers

import "aide/internal/models"

// EnqueueJobRequest is the producer payload for POST /api/v1/jobs.
type EnqueueJobRequest struct {
	Task        string `json:"task" binding:"required"`
	ChatID      string `json:"chatId"`
	Source      string `json:"source"`
	Priority    string `json:"priority"`
	PhoneNumber string `json:"phoneNumber"`
	SessionCode string `json:"sessionCode"`
}

// WebhookRequest is the payload for POST /api/v1/hooks/:source.
type WebhookRequest struct {
	Task     string `json:"task" binding:"required"`
	ChatID   string `json:"chatId"`
	Priority string `json:"priority"`
}

// RecordMessageRequest appends a conversation turn for later enrichment.
type RecordMessageRequest struct {
	ChatID string `json:"chatId" binding:"required"`
	Sender string `json:"sender" binding:"required"`
	Body   string `json:"body" binding:"required"`
}

// QueueStatusResponse is the GET /api/v1/queue view.
type QueueStatusResponse struct {
	Depth      int           `json:"depth"`
	Processing bool          `json:"processing"`
	Active     *models.Job   `json:"active,omitempty"`
	Pending    []*models.Job `json:"pending"`
}
