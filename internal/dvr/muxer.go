// Package dvr implements RecordingWorker: the per-scheduled-entry thread
// that subscribes to a Service, pumps its filtered elementary streams
// through a Muxer, and finalizes the resulting container file. Grounded on
// tvheadend's dvr/dvr_rec.c main loop, reworked around Go channels instead
// of a hand-rolled condition-variable queue.
package dvr

import "github.com/hdhrcore/tvcore/internal/stream"

// Muxer is the container back-end RecordingWorker drives. Concrete
// implementations (out of scope here, same as spec's "concrete muxer
// back-ends" collaborator) wrap something like libavformat or a raw TS
// passthrough writer.
type Muxer interface {
	// Create allocates the muxer for containerType (e.g. "mpegts", "mkv").
	Create(containerType string) error
	// OpenFile opens path for writing; the suffix used to build path comes
	// from Suffix.
	OpenFile(path string) error
	// Init writes container-level headers derived from start.
	Init(start *stream.StartInfo, title string) error
	// WriteMeta writes EPG/metadata once, if the container supports it.
	WriteMeta(epg map[string]string) error
	// WritePacket takes ownership of pkt and writes it to the container.
	WritePacket(pkt *stream.Packet) error
	// AddMarker inserts a chapter/commercial-boundary marker at the
	// current write position.
	AddMarker() error
	// Reconfigure attempts to apply a new StartInfo (e.g. a PID renumber)
	// without finalizing the file. ok=false means the caller must finalize
	// and start a new file instead.
	Reconfigure(start *stream.StartInfo) (ok bool)
	// Suffix returns the file extension (without leading dot) appropriate
	// for start, e.g. "ts" or "mkv".
	Suffix(start *stream.StartInfo) string
	// Close flushes and closes the open file.
	Close() error
	// Destroy releases any muxer-internal state; called once, after Close.
	Destroy()
}
