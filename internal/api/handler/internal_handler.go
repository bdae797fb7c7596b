package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yuki-noguchi/pdf-to-markdown/internal/api/dto"
	"github.com/yuki-noguchi/pdf-to-markdown/internal/domain"
)

// maxPushBody bounds internal push payloads. Done events carry the whole
// assembled document, so the cap is generous.
const maxPushBody = 8 << 20

// PushStatus handles POST /internal/jobs/:job_id/status
// Applies a partial job patch pushed by the worker.
func (h *JobHandler) PushStatus(c *gin.Context) {
	jobID := c.Param("job_id")

	var patch domain.JobPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "invalid patch"})
		return
	}

	if patch.Status != nil && !patch.Status.Valid() {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "unknown status"})
		return
	}

	h.logger.Info("Internal status update",
		slog.String("job_id", jobID),
	)

	if err := h.storage.PatchJob(c.Request.Context(), jobID, &patch); err != nil {
		h.respondStorageError(c, jobID, err)
		return
	}

	c.JSON(http.StatusOK, dto.OKResponse{OK: true})
}

// PushEvent handles POST /internal/jobs/:job_id/events
// Fans a worker-pushed event out to the job's live subscribers.
func (h *JobHandler) PushEvent(c *gin.Context) {
	jobID := c.Param("job_id")

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPushBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "invalid event"})
		return
	}

	event, err := domain.DecodeEvent(body)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownEventType) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "unknown event type"})
			return
		}
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "invalid event"})
		return
	}

	h.logger.Info("Broadcasting internal event",
		slog.String("job_id", jobID),
		slog.String("type", event.EventType()),
	)

	h.hub.Broadcast(jobID, event)

	c.JSON(http.StatusOK, dto.OKResponse{OK: true})
}
