package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job id has no row in the store
	ErrJobNotFound = errors.New("job not found")

	// ErrUnknownEventType is returned when an event payload carries an
	// unrecognized type discriminator
	ErrUnknownEventType = errors.New("unknown event type")
)

// MaxErrorMessageLen bounds stored failure messages so a chatty provider
// cannot blow up the jobs table or the logs.
const MaxErrorMessageLen = 300

// TruncateMessage clips a failure message to MaxErrorMessageLen bytes.
func TruncateMessage(msg string) string {
	if len(msg) > MaxErrorMessageLen {
		return msg[:MaxErrorMessageLen]
	}
	return msg
}

// ConversionError wraps a failure from the conversion provider. Any
// conversion error is fatal to the job it occurred in.
type ConversionError struct {
	Provider string
	Detail   string
	Err      error
}

func (e *ConversionError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Provider + " conversion failed: " + e.Err.Error()
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}
