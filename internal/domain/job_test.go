package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    JobStatus
		to      JobStatus
		allowed bool
	}{
		{name: "uploading to queued", from: JobStatusUploading, to: JobStatusQueued, allowed: true},
		{name: "queued to running", from: JobStatusQueued, to: JobStatusRunning, allowed: true},
		{name: "running to done", from: JobStatusRunning, to: JobStatusDone, allowed: true},
		{name: "running to failed", from: JobStatusRunning, to: JobStatusFailed, allowed: true},
		{name: "uploading to failed", from: JobStatusUploading, to: JobStatusFailed, allowed: true},
		{name: "queued to failed", from: JobStatusQueued, to: JobStatusFailed, allowed: true},
		{name: "no skip from uploading to running", from: JobStatusUploading, to: JobStatusRunning, allowed: false},
		{name: "no regression from running to queued", from: JobStatusRunning, to: JobStatusQueued, allowed: false},
		{name: "done is terminal", from: JobStatusDone, to: JobStatusFailed, allowed: false},
		{name: "failed is terminal", from: JobStatusFailed, to: JobStatusQueued, allowed: false},
		{name: "no self loop", from: JobStatusRunning, to: JobStatusRunning, allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestJobStatus_IsTerminal(t *testing.T) {
	assert.True(t, JobStatusDone.IsTerminal())
	assert.True(t, JobStatusFailed.IsTerminal())
	assert.False(t, JobStatusUploading.IsTerminal())
	assert.False(t, JobStatusQueued.IsTerminal())
	assert.False(t, JobStatusRunning.IsTerminal())
}

func TestJobPatch_IsEmpty(t *testing.T) {
	assert.True(t, (&JobPatch{}).IsEmpty())
	assert.False(t, (&JobPatch{Status: StatusPtr(JobStatusQueued)}).IsEmpty())
	assert.False(t, (&JobPatch{Progress: Float64Ptr(0.5)}).IsEmpty())
}

func TestJobPatch_JSONOmitsNilFields(t *testing.T) {
	patch := JobPatch{
		CurrentPage: IntPtr(2),
		Progress:    Float64Ptr(2.0 / 3.0),
	}

	data, err := json.Marshal(patch)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 2)
	assert.Equal(t, float64(2), decoded["currentPage"])
	assert.InDelta(t, 2.0/3.0, decoded["progress"], 1e-9)
}

func TestNewProgressEvent(t *testing.T) {
	ev := NewProgressEvent(1, 3)
	assert.Equal(t, "progress", ev.Type)
	assert.Equal(t, 1, ev.CurrentPage)
	assert.InDelta(t, 1.0/3.0, ev.Progress, 1e-9)
	assert.Equal(t, "Analyzing page 1/3", ev.Message)
}

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantErr   bool
		checkFunc func(t *testing.T, ev JobEvent)
	}{
		{
			name:    "progress event",
			payload: `{"type":"progress","currentPage":2,"progress":0.5,"message":"Analyzing page 2/4"}`,
			checkFunc: func(t *testing.T, ev JobEvent) {
				progress, ok := ev.(ProgressEvent)
				require.True(t, ok)
				assert.Equal(t, 2, progress.CurrentPage)
				assert.Equal(t, "Analyzing page 2/4", progress.Message)
			},
		},
		{
			name:    "done event",
			payload: `{"type":"done","resultMarkdown":"# Extracted Document"}`,
			checkFunc: func(t *testing.T, ev JobEvent) {
				done, ok := ev.(DoneEvent)
				require.True(t, ok)
				assert.Equal(t, "# Extracted Document", done.ResultMarkdown)
			},
		},
		{
			name:    "failed event",
			payload: `{"type":"failed","message":"codex failed(1): boom"}`,
			checkFunc: func(t *testing.T, ev JobEvent) {
				failed, ok := ev.(FailedEvent)
				require.True(t, ok)
				assert.Equal(t, "codex failed(1): boom", failed.Message)
			},
		},
		{
			name:    "unknown type",
			payload: `{"type":"heartbeat"}`,
			wantErr: true,
		},
		{
			name:    "malformed json",
			payload: `{"type":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := DecodeEvent([]byte(tt.payload))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.checkFunc(t, ev)
		})
	}
}

func TestTruncateMessage(t *testing.T) {
	short := "codex failed(1): out of memory"
	assert.Equal(t, short, TruncateMessage(short))

	long := make([]byte, MaxErrorMessageLen*2)
	for i := range long {
		long[i] = 'x'
	}
	truncated := TruncateMessage(string(long))
	assert.Len(t, truncated, MaxErrorMessageLen)
}
