// Package tvhlog implements the bounded producer/consumer log queue
// described in spec.md §4.7: severity/subsystem-gated enqueue, a single
// drain goroutine fanning each record out to its enabled sinks, and a
// guarantee that a full queue reports itself exactly once rather than
// silently dropping.
package tvhlog

// Severity is the syslog-style level a log line is emitted at.
type Severity int

const (
	SevEmerg Severity = iota
	SevAlert
	SevCrit
	SevError
	SevWarning
	SevNotice
	SevInfo
	SevDebug
	SevTrace
)

// String renders the 7-character, space-padded severity tag used in the
// stderr log line format ("[<7-char severity>]").
func (s Severity) String() string {
	switch s {
	case SevEmerg:
		return "EMERG  "
	case SevAlert:
		return "ALERT  "
	case SevCrit:
		return "CRIT   "
	case SevError:
		return "ERROR  "
	case SevWarning:
		return "WARNING"
	case SevNotice:
		return "NOTICE "
	case SevInfo:
		return "INFO   "
	case SevDebug:
		return "DEBUG  "
	case SevTrace:
		return "TRACE  "
	default:
		return "UNKNOWN"
	}
}
