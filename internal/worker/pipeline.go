// Package worker contains the queue poller and the per-page conversion
// pipeline. One worker process drives at most one job at a time.
package worker

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/yuki-noguchi/pdf-to-markdown/internal/archive"
	"github.com/yuki-noguchi/pdf-to-markdown/internal/domain"
	"github.com/yuki-noguchi/pdf-to-markdown/internal/worker/provider"
)

// documentHeader opens every assembled result document.
const documentHeader = "# Extracted Document"

// APIClient is the worker's push channel to the API service. Pushes are
// best effort; the pipeline logs failures and keeps going.
type APIClient interface {
	Ready(ctx context.Context) error
	PushStatus(ctx context.Context, jobID string, patch *domain.JobPatch) error
	PushEvent(ctx context.Context, jobID string, event domain.JobEvent) error
}

// Pipeline converts a job's pages one by one, in ascending page order, and
// assembles the final Markdown document.
type Pipeline struct {
	archive  *archive.Archive
	provider provider.Provider
	api      APIClient
	logger   *slog.Logger
}

// NewPipeline creates a pipeline runner.
func NewPipeline(arch *archive.Archive, prov provider.Provider, api APIClient, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		archive:  arch,
		provider: prov,
		api:      api,
		logger:   logger,
	}
}

// Run processes one job to completion. A nil return means the job either
// finished (DONE pushed) or had no pages and was skipped untouched. A
// non-nil return means the job must be failed by the caller; partial
// per-page artifacts are left behind but the job is not resumable.
func (p *Pipeline) Run(ctx context.Context, job *domain.JobRecord) error {
	logger := p.logger.With(slog.String("job_id", job.ID))

	pages, err := p.archive.ListPages(job.ID)
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		// Queued with nothing uploaded: skip without advancing or
		// failing, the job stays QUEUED.
		logger.Warn("Queued job has no pages, skipping")
		return nil
	}

	total := len(pages)
	logger.Info("Processing job",
		slog.Int("total_pages", total),
		slog.String("original_file_name", job.OriginalFileName),
	)

	p.pushStatus(ctx, logger, job.ID, &domain.JobPatch{
		Status:     domain.StatusPtr(domain.JobStatusRunning),
		TotalPages: domain.IntPtr(total),
	})

	chunks := []string{documentHeader, ""}

	for i, fileName := range pages {
		pageNo := i + 1

		staged, err := p.archive.StagePage(job.ID, fileName)
		if err != nil {
			return err
		}

		markdown, err := p.provider.Convert(ctx, filepath.Dir(staged), pageNo)
		if err != nil {
			return err
		}

		if err := p.archive.WritePageResult(job.ID, pageNo, markdown); err != nil {
			return err
		}

		chunks = append(chunks, "---", "", markdown, "")

		progress := float64(pageNo) / float64(total)
		p.pushStatus(ctx, logger, job.ID, &domain.JobPatch{
			CurrentPage: domain.IntPtr(pageNo),
			Progress:    domain.Float64Ptr(progress),
		})
		p.pushEvent(ctx, logger, job.ID, domain.NewProgressEvent(pageNo, total))

		logger.Info("Page converted",
			slog.Int("page", pageNo),
			slog.Int("total_pages", total),
		)
	}

	result := strings.Join(chunks, "\n")
	resultPath, err := p.archive.WriteResult(job.ID, result)
	if err != nil {
		return err
	}

	p.pushStatus(ctx, logger, job.ID, &domain.JobPatch{
		Status:     domain.StatusPtr(domain.JobStatusDone),
		ResultPath: domain.StringPtr(resultPath),
		Progress:   domain.Float64Ptr(1),
	})
	p.pushEvent(ctx, logger, job.ID, domain.NewDoneEvent(result))

	logger.Info("Job completed",
		slog.Int("total_pages", total),
		slog.String("result_path", resultPath),
	)

	return nil
}

// pushStatus forwards a patch to the API, logging and swallowing failures.
// The job store can drift behind the worker when pushes drop; status
// queries remain the fallback for clients.
func (p *Pipeline) pushStatus(ctx context.Context, logger *slog.Logger, jobID string, patch *domain.JobPatch) {
	if err := p.api.PushStatus(ctx, jobID, patch); err != nil {
		logger.Warn("Status push failed",
			slog.Any("error", err),
		)
	}
}

func (p *Pipeline) pushEvent(ctx context.Context, logger *slog.Logger, jobID string, event domain.JobEvent) {
	if err := p.api.PushEvent(ctx, jobID, event); err != nil {
		logger.Warn("Event push failed",
			slog.String("type", event.EventType()),
			slog.Any("error", err),
		)
	}
}
