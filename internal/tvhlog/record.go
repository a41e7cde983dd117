package tvhlog

import (
	"fmt"
	"time"
)

// Record is one formatted log line in flight between a producer and the
// drain goroutine. The format buffer is capped at 1KB per spec §4.7; a
// longer message is truncated rather than growing the queue's footprint
// unpredictably under load.
type Record struct {
	Time      time.Time
	Severity  Severity
	Subsystem string
	File      string
	Line      int
	Notify    bool
	Message   string
}

const maxMessageBytes = 1024

func formatMessage(format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	if len(msg) > maxMessageBytes {
		msg = msg[:maxMessageBytes]
	}
	return msg
}

// Line renders the record the way the stderr/file sinks print it:
// "2026-07-31 12:00:00 [<severity>] subsys: file:line: message", with the
// file:line suffix present only when the caller supplied one.
func (r *Record) Line() string {
	ts := r.Time.Format("2006-01-02 15:04:05")
	if r.File != "" {
		return fmt.Sprintf("%s [%s] %s: %s:%d: %s", ts, r.Severity, r.Subsystem, r.File, r.Line, r.Message)
	}
	return fmt.Sprintf("%s [%s] %s: %s", ts, r.Severity, r.Subsystem, r.Message)
}
