package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yuki-noguchi/pdf-to-markdown/internal/api/dto"
	"github.com/yuki-noguchi/pdf-to-markdown/internal/domain"
)

// CreateJob handles POST /jobs
// Accepts the original PDF as multipart field "pdf" and creates a job in
// UPLOADING state.
func (h *JobHandler) CreateJob(c *gin.Context) {
	file, err := c.FormFile("pdf")
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "PDF is required"})
		return
	}

	mimeType := file.Header.Get("Content-Type")
	h.logger.Info("Received pdf upload",
		slog.String("original_file_name", file.Filename),
		slog.String("mime_type", mimeType),
		slog.Int64("size", file.Size),
	)

	isPDF := mimeType == "application/pdf" || strings.HasSuffix(strings.ToLower(file.Filename), ".pdf")
	if !isPDF {
		h.logger.Warn("Rejected non-pdf upload",
			slog.String("original_file_name", file.Filename),
			slog.String("mime_type", mimeType),
		)
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid file type"})
		return
	}

	src, err := file.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded pdf", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to store upload"})
		return
	}
	defer src.Close()

	jobID := uuid.New().String()

	uploadPath, err := h.archive.SaveUpload(jobID, src)
	if err != nil {
		h.logger.Error("Failed to store uploaded pdf", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to store upload"})
		return
	}

	now := time.Now().UTC()
	job := &domain.JobRecord{
		ID:               jobID,
		Status:           domain.JobStatusUploading,
		CreatedAt:        now,
		UpdatedAt:        now,
		OriginalFileName: file.Filename,
	}

	if err := h.storage.CreateJob(c.Request.Context(), job); err != nil {
		h.logger.Error("Failed to create job", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to create job"})
		return
	}

	h.logger.Info("Created job",
		slog.String("job_id", jobID),
		slog.String("upload_path", uploadPath),
	)

	c.JSON(http.StatusOK, dto.CreateJobResponse{JobID: jobID})
}

// UploadPage handles POST /jobs/:job_id/pages
// Stores one rasterized page image. Pages may arrive in any order and a
// page number may be re-uploaded, last write wins.
func (h *JobHandler) UploadPage(c *gin.Context) {
	jobID := c.Param("job_id")

	if _, err := h.storage.GetJobByID(c.Request.Context(), jobID); err != nil {
		h.respondStorageError(c, jobID, err)
		return
	}

	pageRaw := c.PostForm("page")
	page, err := strconv.Atoi(pageRaw)
	if err != nil || page < 1 {
		h.logger.Warn("Rejected invalid page number",
			slog.String("job_id", jobID),
			slog.String("page_raw", pageRaw),
		)
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "invalid page"})
		return
	}

	file, err := c.FormFile("image")
	if err != nil || file.Header.Get("Content-Type") != "image/png" {
		h.logger.Warn("Rejected non-png page upload",
			slog.String("job_id", jobID),
			slog.Int("page", page),
		)
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "image/png required"})
		return
	}

	src, err := file.Open()
	if err != nil {
		h.logger.Error("Failed to open page upload", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to store page"})
		return
	}
	defer src.Close()

	pagePath, err := h.archive.SavePage(jobID, page, src)
	if err != nil {
		h.logger.Error("Failed to store page image", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to store page"})
		return
	}

	h.logger.Info("Stored page image",
		slog.String("job_id", jobID),
		slog.Int("page", page),
		slog.String("page_path", pagePath),
		slog.Int64("size", file.Size),
	)

	// totalPages tracks the high-water mark of page numbers seen so far.
	// The authoritative count is taken from the archive listing when
	// processing starts.
	if err := h.storage.RaiseTotalPages(c.Request.Context(), jobID, page); err != nil {
		h.logger.Warn("Failed to raise total pages",
			slog.String("job_id", jobID),
			slog.Any("error", err),
		)
	}

	c.JSON(http.StatusOK, dto.OKResponse{OK: true})
}

// CompleteJob handles POST /jobs/:job_id/complete
// Flips the job to QUEUED on the client's word that all pages are uploaded.
// Neither the page count nor contiguity is verified.
func (h *JobHandler) CompleteJob(c *gin.Context) {
	jobID := c.Param("job_id")

	job, err := h.storage.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		h.respondStorageError(c, jobID, err)
		return
	}

	if job.Status == domain.JobStatusQueued {
		// Duplicate completion signal, nothing to do.
		c.JSON(http.StatusOK, dto.OKResponse{OK: true})
		return
	}

	if !domain.CanTransition(job.Status, domain.JobStatusQueued) {
		c.JSON(http.StatusConflict, dto.ErrorResponse{Message: "job already " + strings.ToLower(string(job.Status))})
		return
	}

	patch := &domain.JobPatch{Status: domain.StatusPtr(domain.JobStatusQueued)}
	if err := h.storage.PatchJob(c.Request.Context(), jobID, patch); err != nil {
		h.respondStorageError(c, jobID, err)
		return
	}

	h.logger.Info("Job marked queued",
		slog.String("job_id", jobID),
	)

	c.JSON(http.StatusOK, dto.OKResponse{OK: true})
}

// GetJob handles GET /jobs/:job_id
// Returns the full job record plus the assembled Markdown when available.
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")

	job, err := h.storage.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		h.respondStorageError(c, jobID, err)
		return
	}

	markdown := ""
	if job.ResultPath != nil {
		if text, err := h.archive.ReadResult(jobID, *job.ResultPath); err == nil {
			markdown = text
		} else {
			h.logger.Warn("Result artifact missing",
				slog.String("job_id", jobID),
				slog.Any("error", err),
			)
		}
	}

	h.logger.Info("Job status queried",
		slog.String("job_id", jobID),
		slog.String("status", string(job.Status)),
		slog.Float64("progress", job.Progress),
	)

	c.JSON(http.StatusOK, dto.NewJobResponse(job, markdown))
}

func (h *JobHandler) respondStorageError(c *gin.Context, jobID string, err error) {
	if errors.Is(err, domain.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Message: "job not found"})
		return
	}
	h.logger.Error("Job store access failed",
		slog.String("job_id", jobID),
		slog.Any("error", err),
	)
	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "internal error"})
}
