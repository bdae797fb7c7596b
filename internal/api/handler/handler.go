package handler

import (
	"log/slog"

	"github.com/yuki-noguchi/pdf-to-markdown/internal/api/storage"
	"github.com/yuki-noguchi/pdf-to-markdown/internal/archive"
	"github.com/yuki-noguchi/pdf-to-markdown/internal/events"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger  *slog.Logger
	Storage *storage.Storage
	Archive *archive.Archive
	Hub     *events.Hub
}

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	logger  *slog.Logger
	storage *storage.Storage
	archive *archive.Archive
	hub     *events.Hub
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:  deps.Logger,
		storage: deps.Storage,
		archive: deps.Archive,
		hub:     deps.Hub,
	}
}
