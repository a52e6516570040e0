package apihandlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"aide/internal/app"
	"aide/internal/models"
	"aide/internal/store"
)

type APIHandler struct {
	App *app.App
}

func NewAPIHandler(appInstance *app.App) *APIHandler {
	return &APIHandler{App: appInstance}
}

// EnqueueJobHandler accepts a job from any producer channel.
func (h *APIHandler) EnqueueJobHandler(c *gin.Context) {
	var req EnqueueJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	priority, err := models.ParsePriority(req.Priority)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	source := req.Source
	if source == "" {
		source = models.SourceWebhook
	}

	id, err := h.App.Queue.Enqueue(c.Request.Context(), store.EnqueueParams{
		Task:        req.Task,
		ChatID:      req.ChatID,
		Source:      source,
		Priority:    priority,
		PhoneNumber: req.PhoneNumber,
		SessionCode: req.SessionCode,
	})
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			BadRequest(c, err.Error())
			return
		}
		Internal(c, fmt.Sprintf("EnqueueJobHandler: failed to enqueue job: %v", err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"id": id}})
}

// WebhookHandler enqueues a job on behalf of an external hook; the URL path
// names the producing channel.
func (h *APIHandler) WebhookHandler(c *gin.Context) {
	var req WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	priority, err := models.ParsePriority(req.Priority)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	id, err := h.App.Queue.Enqueue(c.Request.Context(), store.EnqueueParams{
		Task:     req.Task,
		ChatID:   req.ChatID,
		Source:   "webhook:" + c.Param("source"),
		Priority: priority,
	})
	if err != nil {
		Internal(c, fmt.Sprintf("WebhookHandler: failed to enqueue job: %v", err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"id": id}})
}

// GetJobHandler returns a job by id, whatever its lifecycle state.
func (h *APIHandler) GetJobHandler(c *gin.Context) {
	job, err := h.App.Queue.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			NotFound(c, "job not found")
			return
		}
		Internal(c, fmt.Sprintf("GetJobHandler: failed to get job: %v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": job})
}

// QueueStatusHandler returns queue depth, the active job and the ordered
// pending list.
func (h *APIHandler) QueueStatusHandler(c *gin.Context) {
	ctx := c.Request.Context()

	depth, err := h.App.Queue.GetQueueDepth(ctx)
	if err != nil {
		Internal(c, fmt.Sprintf("QueueStatusHandler: failed to get depth: %v", err))
		return
	}
	active, err := h.App.Queue.GetActiveJob(ctx)
	if err != nil {
		Internal(c, fmt.Sprintf("QueueStatusHandler: failed to get active job: %v", err))
		return
	}
	pending, err := h.App.Queue.GetPendingJobs(ctx)
	if err != nil {
		Internal(c, fmt.Sprintf("QueueStatusHandler: failed to list pending jobs: %v", err))
		return
	}

	resp := QueueStatusResponse{
		Depth:      depth,
		Processing: h.App.Supervisor != nil && h.App.Supervisor.IsProcessing(),
		Active:     active,
		Pending:    pending,
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// KillActiveHandler cancels the in-flight agent process. The interrupted run
// records its own failure; idempotent when nothing is running.
func (h *APIHandler) KillActiveHandler(c *gin.Context) {
	if h.App.Supervisor == nil || !h.App.Supervisor.IsProcessing() {
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"killed": false}})
		return
	}
	h.App.Supervisor.KillCurrentProcess()
	c.JSON(http.StatusAccepted, gin.H{"data": gin.H{"killed": true}})
}

// RecordMessageHandler stores one conversation turn so later jobs from the
// same chat can be enriched with it.
func (h *APIHandler) RecordMessageHandler(c *gin.Context) {
	var req RecordMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	msg, err := h.App.Messages.RecordMessage(c.Request.Context(), req.ChatID, req.Sender, req.Body)
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			BadRequest(c, err.Error())
			return
		}
		Internal(c, fmt.Sprintf("RecordMessageHandler: failed to record message: %v", err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": msg})
}
