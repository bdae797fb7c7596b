package domain

import (
	"encoding/json"
	"fmt"
)

// Job event type discriminators as they appear on the wire.
const (
	EventTypeProgress = "progress"
	EventTypeDone     = "done"
	EventTypeFailed   = "failed"
)

// JobEvent is a transient notification about a job. Events exist only on
// the wire to currently connected subscribers; they are never persisted
// and never replayed.
type JobEvent interface {
	EventType() string
}

// ProgressEvent is emitted after each page finishes converting.
type ProgressEvent struct {
	Type        string  `json:"type"`
	CurrentPage int     `json:"currentPage"`
	Progress    float64 `json:"progress"`
	Message     string  `json:"message"`
}

func (ProgressEvent) EventType() string { return EventTypeProgress }

// NewProgressEvent builds a progress event for page current of total.
func NewProgressEvent(current, total int) ProgressEvent {
	return ProgressEvent{
		Type:        EventTypeProgress,
		CurrentPage: current,
		Progress:    float64(current) / float64(total),
		Message:     fmt.Sprintf("Analyzing page %d/%d", current, total),
	}
}

// DoneEvent carries the fully assembled Markdown document.
type DoneEvent struct {
	Type           string `json:"type"`
	ResultMarkdown string `json:"resultMarkdown"`
}

func (DoneEvent) EventType() string { return EventTypeDone }

// NewDoneEvent builds a done event.
func NewDoneEvent(markdown string) DoneEvent {
	return DoneEvent{Type: EventTypeDone, ResultMarkdown: markdown}
}

// FailedEvent carries the failure message of an aborted job.
type FailedEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (FailedEvent) EventType() string { return EventTypeFailed }

// NewFailedEvent builds a failed event.
func NewFailedEvent(message string) FailedEvent {
	return FailedEvent{Type: EventTypeFailed, Message: message}
}

// DecodeEvent unmarshals a job event from its JSON wire form, dispatching
// on the "type" discriminator.
func DecodeEvent(data []byte) (JobEvent, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}

	switch head.Type {
	case EventTypeProgress:
		var ev ProgressEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("failed to decode progress event: %w", err)
		}
		return ev, nil
	case EventTypeDone:
		var ev DoneEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("failed to decode done event: %w", err)
		}
		return ev, nil
	case EventTypeFailed:
		var ev FailedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("failed to decode failed event: %w", err)
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, head.Type)
	}
}
