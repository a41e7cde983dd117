package tvhlog

import (
	"fmt"
	"io"
	"log/syslog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/mattn/go-isatty"
)

// Flusher is implemented by sinks that need to know when the queue has
// drained to empty, so they can release resources held open only while
// there is backlog (the rotating file sink closes and compresses its
// current file at that point).
type Flusher interface {
	FlushIdle()
}

// StderrSink prints one line per record to stderr, colorized by severity
// when stderr is a real terminal.
type StderrSink struct {
	w     io.Writer
	color bool
}

// NewStderrSink detects terminal capability via isatty and enables ANSI
// color only when stderr is attached to one.
func NewStderrSink() *StderrSink {
	return &StderrSink{w: os.Stderr, color: isatty.IsTerminal(os.Stderr.Fd())}
}

func (s *StderrSink) Write(r *Record) {
	line := r.Line()
	if s.color {
		line = ansiColor(r.Severity) + line + ansiReset
	}
	fmt.Fprintln(s.w, line)
}

const ansiReset = "\x1b[0m"

func ansiColor(sev Severity) string {
	switch sev {
	case SevEmerg, SevAlert, SevCrit, SevError:
		return "\x1b[31m" // red
	case SevWarning:
		return "\x1b[33m" // yellow
	case SevNotice, SevInfo:
		return "\x1b[36m" // cyan
	default:
		return "\x1b[90m" // gray: debug/trace
	}
}

// SyslogSink forwards records to the local syslog daemon, mapping Severity
// onto the matching syslog priority.
type SyslogSink struct {
	w *syslog.Writer
}

// NewSyslogSink dials the local syslog daemon under the given tag.
func NewSyslogSink(tag string) (*SyslogSink, error) {
	w, err := syslog.New(syslog.LOG_DAEMON|syslog.LOG_INFO, tag)
	if err != nil {
		return nil, fmt.Errorf("tvhlog: syslog dial: %w", err)
	}
	return &SyslogSink{w: w}, nil
}

func (s *SyslogSink) Write(r *Record) {
	msg := r.Line()
	switch r.Severity {
	case SevEmerg:
		s.w.Emerg(msg)
	case SevAlert:
		s.w.Alert(msg)
	case SevCrit:
		s.w.Crit(msg)
	case SevError:
		s.w.Err(msg)
	case SevWarning:
		s.w.Warning(msg)
	case SevNotice:
		s.w.Notice(msg)
	case SevInfo:
		s.w.Info(msg)
	default:
		s.w.Debug(msg)
	}
}

// RotatingFileSink appends lines to a plain-text log file that is opened
// on the first write after the queue was idle and closed (then
// brotli-compressed in place) once the drain loop reports the queue has
// emptied again, per spec §4.7's domain expansion of the file sink.
type RotatingFileSink struct {
	mu     sync.Mutex
	dir    string
	prefix string
	file   *os.File
	path   string
}

// NewRotatingFileSink writes files named "<prefix>-<timestamp>.log" under
// dir.
func NewRotatingFileSink(dir, prefix string) *RotatingFileSink {
	return &RotatingFileSink{dir: dir, prefix: prefix}
}

func (s *RotatingFileSink) Write(r *Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		name := filepath.Join(s.dir, fmt.Sprintf("%s-%s.log", s.prefix, time.Now().Format("20060102-150405")))
		f, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return
		}
		s.file = f
		s.path = name
	}
	fmt.Fprintln(s.file, r.Line())
}

// FlushIdle closes the currently open file (if any) and kicks off
// background brotli compression of it; the next Write after this opens a
// fresh file.
func (s *RotatingFileSink) FlushIdle() {
	s.mu.Lock()
	file := s.file
	path := s.path
	s.file = nil
	s.path = ""
	s.mu.Unlock()

	if file == nil {
		return
	}
	file.Close()
	go compressAndRemove(path)
}

func compressAndRemove(path string) {
	in, err := os.Open(path)
	if err != nil {
		return
	}
	defer in.Close()
	out, err := os.Create(path + ".br")
	if err != nil {
		return
	}
	bw := brotli.NewWriter(out)
	if _, err := io.Copy(bw, in); err != nil {
		bw.Close()
		out.Close()
		return
	}
	bw.Close()
	out.Close()
	os.Remove(path)
}

// NotifySink forwards records flagged Notify to a UI sideband callback;
// TRACE-severity records never set Notify, so they never reach it.
type NotifySink struct {
	notify func(r *Record)
}

// NewNotifySink wraps a callback invoked for every notify-flagged record.
func NewNotifySink(notify func(r *Record)) *NotifySink {
	return &NotifySink{notify: notify}
}

func (s *NotifySink) Write(r *Record) {
	if !r.Notify || s.notify == nil {
		return
	}
	s.notify(r)
}
