package worker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuki-noguchi/pdf-to-markdown/internal/archive"
	"github.com/yuki-noguchi/pdf-to-markdown/internal/domain"
)

type fakeAPI struct {
	mu        sync.Mutex
	readyErr  error
	statusErr error
	eventErr  error
	patches   []*domain.JobPatch
	events    []domain.JobEvent
}

func (f *fakeAPI) Ready(ctx context.Context) error { return f.readyErr }

func (f *fakeAPI) PushStatus(ctx context.Context, jobID string, patch *domain.JobPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return f.statusErr
	}
	f.patches = append(f.patches, patch)
	return nil
}

func (f *fakeAPI) PushEvent(ctx context.Context, jobID string, event domain.JobEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.eventErr != nil {
		return f.eventErr
	}
	f.events = append(f.events, event)
	return nil
}

// fakeProvider echoes the staged image content as Markdown, or fails on a
// chosen page.
type fakeProvider struct {
	failOnPage int
	converted  []int
}

func (f *fakeProvider) Convert(ctx context.Context, workDir string, pageNo int) (string, error) {
	if pageNo == f.failOnPage {
		return "", &domain.ConversionError{Provider: "fake", Detail: fmt.Sprintf("fake failed on page %d", pageNo)}
	}
	f.converted = append(f.converted, pageNo)

	data, err := os.ReadFile(filepath.Join(workDir, archive.StagedImageName))
	if err != nil {
		return "", err
	}
	return "## " + string(data), nil
}

func newTestPipeline(t *testing.T, prov *fakeProvider, api *fakeAPI) (*Pipeline, *archive.Archive) {
	t.Helper()
	arch, err := archive.New(t.TempDir())
	require.NoError(t, err)
	return NewPipeline(arch, prov, api, slog.New(slog.NewTextHandler(io.Discard, nil))), arch
}

func uploadPages(t *testing.T, arch *archive.Archive, jobID string, pages ...int) {
	t.Helper()
	for _, page := range pages {
		_, err := arch.SavePage(jobID, page, strings.NewReader(fmt.Sprintf("page %d", page)))
		require.NoError(t, err)
	}
}

func queuedJob(id string) *domain.JobRecord {
	return &domain.JobRecord{ID: id, Status: domain.JobStatusQueued, OriginalFileName: id + ".pdf"}
}

func TestPipeline_Run_ThreePageDocument(t *testing.T) {
	api := &fakeAPI{}
	prov := &fakeProvider{}
	pipeline, arch := newTestPipeline(t, prov, api)

	// Pages uploaded out of order still convert as 1, 2, 3.
	uploadPages(t, arch, "job-1", 2, 1, 3)

	require.NoError(t, pipeline.Run(context.Background(), queuedJob("job-1")))
	assert.Equal(t, []int{1, 2, 3}, prov.converted)

	// Status patch sequence: RUNNING, three page updates, DONE.
	require.Len(t, api.patches, 5)

	running := api.patches[0]
	require.NotNil(t, running.Status)
	assert.Equal(t, domain.JobStatusRunning, *running.Status)
	require.NotNil(t, running.TotalPages)
	assert.Equal(t, 3, *running.TotalPages)

	for i := 1; i <= 3; i++ {
		patch := api.patches[i]
		require.NotNil(t, patch.CurrentPage)
		assert.Equal(t, i, *patch.CurrentPage)
		require.NotNil(t, patch.Progress)
		assert.InDelta(t, float64(i)/3.0, *patch.Progress, 1e-9)
		assert.Nil(t, patch.Status)
	}

	done := api.patches[4]
	require.NotNil(t, done.Status)
	assert.Equal(t, domain.JobStatusDone, *done.Status)
	require.NotNil(t, done.ResultPath)
	assert.Equal(t, archive.ResultFileName, *done.ResultPath)
	require.NotNil(t, done.Progress)
	assert.Equal(t, float64(1), *done.Progress)

	// Event sequence: three progress events then exactly one done.
	require.Len(t, api.events, 4)
	for i := 0; i < 3; i++ {
		progress, ok := api.events[i].(domain.ProgressEvent)
		require.True(t, ok)
		assert.Equal(t, i+1, progress.CurrentPage)
		assert.InDelta(t, float64(i+1)/3.0, progress.Progress, 1e-9)
		assert.Equal(t, fmt.Sprintf("Analyzing page %d/3", i+1), progress.Message)
	}

	doneEvent, ok := api.events[3].(domain.DoneEvent)
	require.True(t, ok)

	expected := strings.Join([]string{
		"# Extracted Document", "",
		"---", "", "## page 1", "",
		"---", "", "## page 2", "",
		"---", "", "## page 3", "",
	}, "\n")
	assert.Equal(t, expected, doneEvent.ResultMarkdown)

	// Result artifact on disk matches the done event payload.
	stored, err := arch.ReadResult("job-1", archive.ResultFileName)
	require.NoError(t, err)
	assert.Equal(t, expected, stored)
}

func TestPipeline_Run_FailureAbortsWholeJob(t *testing.T) {
	api := &fakeAPI{}
	prov := &fakeProvider{failOnPage: 2}
	pipeline, arch := newTestPipeline(t, prov, api)

	uploadPages(t, arch, "job-1", 1, 2, 3)

	err := pipeline.Run(context.Background(), queuedJob("job-1"))
	require.Error(t, err)

	var convErr *domain.ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Contains(t, convErr.Error(), "page 2")

	// Page 1 made it through; page 3 never started.
	assert.Equal(t, []int{1}, prov.converted)

	// Pushes stop at the last successful page, no DONE, no done event.
	require.Len(t, api.patches, 2)
	require.NotNil(t, api.patches[1].Progress)
	assert.InDelta(t, 1.0/3.0, *api.patches[1].Progress, 1e-9)
	require.Len(t, api.events, 1)
	assert.Equal(t, domain.EventTypeProgress, api.events[0].EventType())

	// The page-1 artifact stays behind; page 2 was never written.
	_, err = arch.ReadResult("job-1", "page-001.md")
	assert.NoError(t, err)
	_, err = arch.ReadResult("job-1", "page-002.md")
	assert.Error(t, err)
}

func TestPipeline_Run_ZeroPagesIsSilentlySkipped(t *testing.T) {
	api := &fakeAPI{}
	pipeline, _ := newTestPipeline(t, &fakeProvider{}, api)

	require.NoError(t, pipeline.Run(context.Background(), queuedJob("job-empty")))

	assert.Empty(t, api.patches)
	assert.Empty(t, api.events)
}

func TestPipeline_Run_PushFailuresAreNotFatal(t *testing.T) {
	api := &fakeAPI{
		statusErr: fmt.Errorf("connection refused"),
		eventErr:  fmt.Errorf("connection refused"),
	}
	prov := &fakeProvider{}
	pipeline, arch := newTestPipeline(t, prov, api)

	uploadPages(t, arch, "job-1", 1, 2)

	// Every push drops, yet the job still converts to completion.
	require.NoError(t, pipeline.Run(context.Background(), queuedJob("job-1")))
	assert.Equal(t, []int{1, 2}, prov.converted)

	stored, err := arch.ReadResult("job-1", archive.ResultFileName)
	require.NoError(t, err)
	assert.Contains(t, stored, "## page 2")
}
