package dvr

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hdhrcore/tvcore/internal/stream"
)

// State is a RecordingWorker's externally visible lifecycle state.
type State int

const (
	StateIdle State = iota
	StateWaitProgramStart
	StateRunning
	StateCommercial
	StateError
	StatePending
)

func (s State) String() string {
	switch s {
	case StateWaitProgramStart:
		return "WAIT_PROGRAM_START"
	case StateRunning:
		return "RUNNING"
	case StateCommercial:
		return "COMMERCIAL"
	case StateError:
		return "ERROR"
	case StatePending:
		return "PENDING"
	default:
		return "IDLE"
	}
}

// Worker is the per-scheduled-entry recording thread: it owns a Muxer,
// pumps StreamingMessages delivered via Deliver (its stream.Target half)
// through PACKET/MPEGTS/START/STOP/SERVICE_STATUS/NOSTART handling, and
// finalizes the container file on EXIT. Grounded on spec §4.4's main loop.
type Worker struct {
	Service         *stream.Service
	MuxerFactory    func(containerType string) Muxer
	ContainerType   string
	Layout          Layout
	ChannelName     string
	Title           string
	Creator         string
	Description     string
	SkipCommercials bool
	PostProcCommand string
	Logf            func(format string, args ...any)
	OnIDBump        func()
	OnNotify        func()
	Clock           func() time.Time

	existsFn   func(string) bool
	mkdirAllFn func(string, os.FileMode) error

	inbox chan *stream.StreamingMessage
	done  chan struct{}

	mu              sync.Mutex
	muxer           Muxer
	state           State
	started         bool
	path            string
	lastErrorCode   stream.ErrorCode
	prevCommercial  bool
	startEpoch      time.Time
	stopEpoch       time.Time
	bytesWritten    int64
}

// NewWorker constructs a Worker with a bounded streaming queue (capacity
// mirrors the spec's "streaming queue", here a buffered channel rather than
// a condition-variable-guarded list: sends block once full, which is the
// same backpressure behavior spec §5 calls for).
func NewWorker(svc *stream.Service, muxerFactory func(string) Muxer, containerType string, layout Layout) *Worker {
	w := &Worker{
		Service:       svc,
		MuxerFactory:  muxerFactory,
		ContainerType: containerType,
		Layout:        layout,
		Logf:          func(string, ...any) {},
		Clock:         time.Now,
		existsFn:      defaultExists,
		mkdirAllFn:    os.MkdirAll,
		inbox:         make(chan *stream.StreamingMessage, 4096),
		done:          make(chan struct{}),
	}
	return w
}

func defaultExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// State reports the worker's current lifecycle state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Path reports the currently (or most recently) open file's path.
func (w *Worker) Path() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.path
}

// Deliver implements stream.Target: it enqueues msg, blocking if the
// worker's queue is full (intentional backpressure per spec §5) until
// either the send succeeds or the worker has exited.
func (w *Worker) Deliver(msg *stream.StreamingMessage) error {
	select {
	case w.inbox <- msg:
		return nil
	case <-w.done:
		return fmt.Errorf("dvr: worker for %s is stopped", w.Service.ID)
	}
}

// Run drains the inbox until EXIT or ctx is cancelled, dispatching each
// message per spec §4.4. It returns once the loop has stopped; on return
// any still-open muxer has already been finalized.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			w.finalizeIfOpen()
			return
		case msg := <-w.inbox:
			if msg.Kind == stream.MsgExit {
				w.finalizeIfOpen()
				return
			}
			w.handle(msg)
		}
	}
}

func (w *Worker) handle(msg *stream.StreamingMessage) {
	switch msg.Kind {
	case stream.MsgPacket:
		w.handlePacket(msg)
	case stream.MsgMPEGTS:
		w.handleMPEGTS(msg)
	case stream.MsgStart:
		w.handleStart(msg)
	case stream.MsgStop:
		w.handleStop(msg)
	case stream.MsgServiceStatus:
		w.handleServiceStatus(msg)
	case stream.MsgNoStart:
		w.handleNoStart(msg)
	}
}

func (w *Worker) handlePacket(msg *stream.StreamingMessage) {
	pkt := msg.Pkt
	if pkt == nil {
		return
	}
	w.mu.Lock()
	if pkt.Commercial {
		w.state = StateCommercial
	} else {
		w.state = StateRunning
	}
	transitioned := w.prevCommercial != pkt.Commercial
	w.prevCommercial = pkt.Commercial
	started := w.started
	muxer := w.muxer
	skip := pkt.Commercial && w.SkipCommercials
	w.mu.Unlock()

	if transitioned && started && muxer != nil {
		if err := muxer.AddMarker(); err != nil {
			w.Logf("dvr: %s: add marker failed: %v", w.Service.ID, err)
		}
	}
	if skip {
		return
	}
	if started && muxer != nil {
		w.writePacket(muxer, pkt)
	}
}

func (w *Worker) writePacket(muxer Muxer, pkt *stream.Packet) {
	if err := muxer.WritePacket(pkt); err != nil {
		if isTransientWriteError(err) {
			w.Logf("dvr: %s: downstream write closed, finalizing", w.Service.ID)
		} else {
			w.Logf("dvr: %s: write error: %v", w.Service.ID, err)
			w.mu.Lock()
			w.state = StateError
			w.mu.Unlock()
		}
		w.epilog()
		return
	}
	w.mu.Lock()
	w.bytesWritten += int64(len(pkt.Data))
	w.mu.Unlock()
}

func (w *Worker) handleMPEGTS(msg *stream.StreamingMessage) {
	w.mu.Lock()
	started := w.started
	muxer := w.muxer
	if started {
		w.state = StateRunning
	}
	w.mu.Unlock()
	if started && muxer != nil {
		w.writePacket(muxer, &stream.Packet{Data: msg.MPEGTS})
	}
}

func (w *Worker) handleStart(msg *stream.StreamingMessage) {
	w.mu.Lock()
	started := w.started
	muxer := w.muxer
	w.mu.Unlock()

	if started && muxer != nil {
		if muxer.Reconfigure(msg.Start) {
			return
		}
		w.epilog()
	}

	w.mu.Lock()
	w.state = StateWaitProgramStart
	w.mu.Unlock()

	if err := w.recStart(msg.Start); err != nil {
		w.Logf("dvr: %s: recStart failed: %v", w.Service.ID, err)
		w.mu.Lock()
		w.state = StateError
		w.mu.Unlock()
		return
	}
	w.mu.Lock()
	w.started = true
	w.mu.Unlock()
	if w.OnIDBump != nil {
		w.OnIDBump()
	}
	if w.OnNotify != nil {
		w.OnNotify()
	}
}

func (w *Worker) handleStop(msg *stream.StreamingMessage) {
	switch msg.StopCode {
	case stream.ErrSourceReconfigured:
		// Wait for the START that follows; nothing to finalize yet.
	case stream.ErrOK:
		w.Logf("dvr: %s: recording complete path=%s", w.Service.ID, w.Path())
		w.epilog()
		w.mu.Lock()
		w.started = false
		w.mu.Unlock()
	default:
		w.mu.Lock()
		w.state = StateError
		w.lastErrorCode = msg.StopCode
		w.mu.Unlock()
		w.epilog()
		w.mu.Lock()
		w.started = false
		w.mu.Unlock()
	}
}

// mapServiceStatus maps a SERVICE_STATUS flag set to the error code it
// represents, per spec §4.4: "map NO_DESCRAMBLER/NO_ACCESS/
// GRACEPERIOD|ERRORS to an error code".
func mapServiceStatus(flags stream.StreamingStatusFlag) stream.ErrorCode {
	switch {
	case flags&stream.TSSNoDescrambler != 0:
		return stream.ErrNoDescrambler
	case flags&stream.TSSNoAccess != 0:
		return stream.ErrNoAccess
	case flags&stream.TSSGraceperiod != 0 && flags&stream.TSSErrors != 0:
		return stream.ErrNoInput
	default:
		return stream.ErrOK
	}
}

func (w *Worker) handleServiceStatus(msg *stream.StreamingMessage) {
	code := mapServiceStatus(msg.ServiceStatus)
	if code == stream.ErrOK {
		return
	}
	if !w.Service.PublishErrorOnce(code) {
		return
	}
	w.Logf("dvr: %s: error state %s", w.Service.ID, code)
	w.mu.Lock()
	w.state = StateError
	w.lastErrorCode = code
	w.mu.Unlock()
}

func (w *Worker) handleNoStart(msg *stream.StreamingMessage) {
	w.mu.Lock()
	w.state = StatePending
	w.lastErrorCode = msg.StopCode
	w.mu.Unlock()
}

func (w *Worker) recStart(start *stream.StartInfo) error {
	muxer := w.MuxerFactory(w.ContainerType)
	if err := muxer.Create(w.ContainerType); err != nil {
		return fmt.Errorf("create muxer: %w", err)
	}
	path, err := BuildPath(w.Layout, w.Clock(), w.ChannelName, w.Title, muxer.Suffix(start), w.existsFn, w.mkdirAllFn)
	if err != nil {
		muxer.Destroy()
		return err
	}
	if err := muxer.OpenFile(path); err != nil {
		muxer.Destroy()
		return fmt.Errorf("open %s: %w", path, err)
	}
	if err := muxer.Init(start, w.Title); err != nil {
		muxer.Close()
		muxer.Destroy()
		return fmt.Errorf("init muxer: %w", err)
	}

	w.mu.Lock()
	w.muxer = muxer
	w.path = path
	w.startEpoch = w.Clock()
	w.bytesWritten = 0
	w.mu.Unlock()
	return nil
}

// epilog closes and destroys the currently open muxer (if any), runs the
// post-processor, and clears the muxer reference. Safe to call when
// nothing is open.
func (w *Worker) epilog() {
	w.mu.Lock()
	muxer := w.muxer
	path := w.path
	errCode := w.lastErrorCode
	written := w.bytesWritten
	w.muxer = nil
	w.stopEpoch = w.Clock()
	startEpoch := w.startEpoch
	w.mu.Unlock()

	if muxer == nil {
		return
	}
	if err := muxer.Close(); err != nil {
		w.Logf("dvr: %s: close failed: %v", w.Service.ID, err)
	}
	muxer.Destroy()
	w.Logf("dvr: %s: finalized %s (%s)", w.Service.ID, path, humanize.Bytes(uint64(written)))

	if w.PostProcCommand != "" {
		tokens := PostProcTokens{
			FullPath:    path,
			Basename:    basename(path),
			ChannelName: w.ChannelName,
			Creator:     w.Creator,
			Title:       w.Title,
			Description: w.Description,
			ErrorText:   errCode.String(),
			Start:       startEpoch,
			Stop:        w.stopEpoch,
		}
		if err := RunPostProcessor(w.PostProcCommand, tokens); err != nil {
			w.Logf("dvr: %s: postproc spawn failed: %v", w.Service.ID, err)
		}
	}
}

func (w *Worker) finalizeIfOpen() {
	w.mu.Lock()
	open := w.muxer != nil
	w.mu.Unlock()
	if open {
		w.epilog()
	}
}

func basename(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
