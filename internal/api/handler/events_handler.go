package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"
)

// StreamEvents handles GET /jobs/:job_id/events
// Opens a server-sent-events stream and relays live job events until the
// client disconnects. There is no replay: a subscriber only sees events
// emitted while it is connected.
func (h *JobHandler) StreamEvents(c *gin.Context) {
	jobID := c.Param("job_id")

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.Flush()

	ch, cancel := h.hub.Subscribe(jobID)
	defer cancel()

	h.logger.Info("SSE client connected",
		slog.String("job_id", jobID),
	)
	defer h.logger.Info("SSE client disconnected",
		slog.String("job_id", jobID),
	)

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("Failed to encode event",
					slog.String("job_id", jobID),
					slog.Any("error", err),
				)
				continue
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event.EventType(), data)
			c.Writer.Flush()
		}
	}
}
