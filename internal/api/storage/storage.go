package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yuki-noguchi/pdf-to-markdown/internal/domain"
	"github.com/yuki-noguchi/pdf-to-markdown/shared/database"
)

// Storage handles job table access for the API service.
type Storage struct {
	db *sqlx.DB
}

// NewStorage creates a Storage backed by the shared job store client.
func NewStorage(client *database.Client) *Storage {
	return &Storage{
		db: client.GetDB(),
	}
}

// NewStorageWithDB creates a Storage directly from an sqlx handle.
func NewStorageWithDB(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// CreateJob inserts a new job record.
func (s *Storage) CreateJob(ctx context.Context, job *domain.JobRecord) error {
	query := s.db.Rebind(`
		INSERT INTO jobs (
			id, status, created_at, updated_at, original_file_name,
			total_pages, current_page, progress, result_path, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := s.db.ExecContext(
		ctx,
		query,
		job.ID,
		job.Status,
		job.CreatedAt,
		job.UpdatedAt,
		job.OriginalFileName,
		job.TotalPages,
		job.CurrentPage,
		job.Progress,
		job.ResultPath,
		job.ErrorMessage,
	)

	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetJobByID fetches a full job record, returning domain.ErrJobNotFound
// when the id has no row.
func (s *Storage) GetJobByID(ctx context.Context, jobID string) (*domain.JobRecord, error) {
	query := s.db.Rebind(`
		SELECT
			id, status, created_at, updated_at, original_file_name,
			total_pages, current_page, progress, result_path, error_message
		FROM jobs
		WHERE id = ?
	`)

	var job domain.JobRecord
	if err := s.db.GetContext(ctx, &job, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// PatchJob applies a partial update. Only non-nil patch fields are written;
// updated_at is always refreshed. Last writer wins per field set, which is
// the store's whole concurrency model.
func (s *Storage) PatchJob(ctx context.Context, jobID string, patch *domain.JobPatch) error {
	if patch == nil || patch.IsEmpty() {
		return nil
	}

	sets := []string{}
	args := []interface{}{}

	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *patch.Status)
	}
	if patch.TotalPages != nil {
		sets = append(sets, "total_pages = ?")
		args = append(args, *patch.TotalPages)
	}
	if patch.CurrentPage != nil {
		sets = append(sets, "current_page = ?")
		args = append(args, *patch.CurrentPage)
	}
	if patch.Progress != nil {
		sets = append(sets, "progress = ?")
		args = append(args, *patch.Progress)
	}
	if patch.ResultPath != nil {
		sets = append(sets, "result_path = ?")
		args = append(args, *patch.ResultPath)
	}
	if patch.ErrorMessage != nil {
		sets = append(sets, "error_message = ?")
		args = append(args, *patch.ErrorMessage)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC())
	args = append(args, jobID)

	query := s.db.Rebind("UPDATE jobs SET " + strings.Join(sets, ", ") + " WHERE id = ?")

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to patch job: %w", err)
	}

	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return domain.ErrJobNotFound
	}

	return nil
}

// RaiseTotalPages lifts total_pages to the given high-water mark if the new
// page number exceeds the currently known one (or none is known yet).
func (s *Storage) RaiseTotalPages(ctx context.Context, jobID string, page int) error {
	query := s.db.Rebind(`
		UPDATE jobs
		SET total_pages = ?, updated_at = ?
		WHERE id = ? AND (total_pages IS NULL OR total_pages < ?)
	`)

	if _, err := s.db.ExecContext(ctx, query, page, time.Now().UTC(), jobID, page); err != nil {
		return fmt.Errorf("failed to raise total pages: %w", err)
	}

	return nil
}
