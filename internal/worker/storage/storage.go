package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/yuki-noguchi/pdf-to-markdown/internal/domain"
)

// Storage handles the worker's read side of the job table. All writes from
// the worker travel through the API's internal push endpoints instead, so
// both services mutate jobs via the same patch operation.
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// NextQueuedJob returns the oldest QUEUED job by creation time, or nil when
// the queue is empty. Timestamp collisions are broken by job id so repeated
// polls observe a stable order.
func (s *Storage) NextQueuedJob(ctx context.Context) (*domain.JobRecord, error) {
	query := s.db.Rebind(`
		SELECT
			id, status, created_at, updated_at, original_file_name,
			total_pages, current_page, progress, result_path, error_message
		FROM jobs
		WHERE status = ?
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`)

	var job domain.JobRecord
	if err := s.db.GetContext(ctx, &job, query, domain.JobStatusQueued); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query next queued job: %w", err)
	}

	return &job, nil
}
