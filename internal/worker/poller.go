package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/yuki-noguchi/pdf-to-markdown/internal/domain"
)

// DefaultPollInterval is the queue discovery cadence when none is
// configured.
const DefaultPollInterval = 1500 * time.Millisecond

// jobSource yields the next queued job from the job store.
type jobSource interface {
	NextQueuedJob(ctx context.Context) (*domain.JobRecord, error)
}

// jobRunner processes one job to completion.
type jobRunner interface {
	Run(ctx context.Context, job *domain.JobRecord) error
}

// Poller discovers queued jobs on a fixed cadence and hands them to the
// pipeline one at a time. The loop blocks while a job runs, which is what
// guarantees at most one RUNNING job per worker process.
type Poller struct {
	source   jobSource
	runner   jobRunner
	api      APIClient
	interval time.Duration
	logger   *slog.Logger

	apiDown bool
}

// NewPoller creates the worker loop.
func NewPoller(source jobSource, runner jobRunner, api APIClient, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		source:   source,
		runner:   runner,
		api:      api,
		interval: interval,
		logger:   logger,
	}
}

// Start runs the poll loop until the context is canceled.
func (p *Poller) Start(ctx context.Context) error {
	p.logger.Info("Starting queue poller",
		slog.Duration("poll_interval", p.interval),
	)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Queue poller stopping")
			return nil
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick runs one poll cycle: readiness check, queue query, at most one job.
func (p *Poller) tick(ctx context.Context) {
	if err := p.api.Ready(ctx); err != nil {
		if !p.apiDown {
			p.logger.Warn("API unreachable, pausing queue polling",
				slog.Any("error", err),
			)
			p.apiDown = true
		}
		return
	}
	if p.apiDown {
		p.logger.Info("API reachable again, resuming queue polling")
		p.apiDown = false
	}

	job, err := p.source.NextQueuedJob(ctx)
	if err != nil {
		p.logger.Error("Failed to query queue",
			slog.Any("error", err),
		)
		return
	}
	if job == nil {
		return
	}

	p.logger.Info("Picked up queued job",
		slog.String("job_id", job.ID),
		slog.Time("created_at", job.CreatedAt),
	)

	if err := p.runner.Run(ctx, job); err != nil {
		p.failJob(ctx, job.ID, err)
	}
}

// failJob marks the job FAILED and notifies subscribers. There is no retry
// and no resume; a conversion error kills the whole job.
func (p *Poller) failJob(ctx context.Context, jobID string, cause error) {
	message := domain.TruncateMessage(cause.Error())

	p.logger.Error("Job failed",
		slog.String("job_id", jobID),
		slog.String("error", message),
	)

	if err := p.api.PushStatus(ctx, jobID, &domain.JobPatch{
		Status:       domain.StatusPtr(domain.JobStatusFailed),
		ErrorMessage: domain.StringPtr(message),
	}); err != nil {
		p.logger.Warn("Failed-status push failed",
			slog.String("job_id", jobID),
			slog.Any("error", err),
		)
	}

	if err := p.api.PushEvent(ctx, jobID, domain.NewFailedEvent(message)); err != nil {
		p.logger.Warn("Failed-event push failed",
			slog.String("job_id", jobID),
			slog.Any("error", err),
		)
	}
}
