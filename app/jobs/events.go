package jobs

import "time"

// Event is one element of a job's output stream. A run emits zero or
// more LogEvent/ProgressEvent values followed by exactly one
// CompleteEvent or ErrorEvent, after which the channel closes.
type Event interface {
	event()
}

// LogEvent mirrors a structured log line so stream consumers see the
// same information as the server log.
type LogEvent struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Stage     string         `json:"stage"`
	Message   string         `json:"message"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// ProgressEvent reports phase progress. Percent is monotonically
// non-decreasing within a phase but not strictly increasing between
// consecutive events.
type ProgressEvent struct {
	Phase   string  `json:"phase"`
	Percent float64 `json:"percent"`
	Label   string  `json:"label"`
}

// CompleteEvent terminates a successful run.
type CompleteEvent struct {
	Result map[string]any `json:"result"`
}

// ErrorEvent terminates a failed run.
type ErrorEvent struct {
	Error string `json:"error"`
}

func (LogEvent) event()      {}
func (ProgressEvent) event() {}
func (CompleteEvent) event() {}
func (ErrorEvent) event()    {}
