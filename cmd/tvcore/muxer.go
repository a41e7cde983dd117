package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/hdhrcore/tvcore/internal/dvr"
	"github.com/hdhrcore/tvcore/internal/stream"
)

// passthroughMuxer is the simplest dvr.Muxer implementation: it writes
// each packet's raw bytes straight to the open file with no container
// framing. The concrete muxer back-ends are an out-of-scope external
// collaborator per spec; this is the stand-in that lets cmd/tvcore and the
// fakeinput harness actually produce a file on disk.
type passthroughMuxer struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

func newPassthroughMuxer(containerType string) dvr.Muxer {
	return &passthroughMuxer{}
}

func (m *passthroughMuxer) Create(containerType string) error { return nil }

func (m *passthroughMuxer) OpenFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("passthrough muxer: open %s: %w", path, err)
	}
	m.mu.Lock()
	m.f = f
	m.path = path
	m.mu.Unlock()
	return nil
}

func (m *passthroughMuxer) Init(start *stream.StartInfo, title string) error { return nil }

func (m *passthroughMuxer) WriteMeta(epg map[string]string) error { return nil }

func (m *passthroughMuxer) WritePacket(pkt *stream.Packet) error {
	m.mu.Lock()
	f := m.f
	m.mu.Unlock()
	if f == nil || pkt == nil {
		return nil
	}
	_, err := f.Write(pkt.Data)
	return err
}

func (m *passthroughMuxer) AddMarker() error { return nil }

// Reconfigure always refuses: a raw passthrough file has no header to
// rewrite in place, so every source change needs a fresh file.
func (m *passthroughMuxer) Reconfigure(start *stream.StartInfo) bool { return false }

func (m *passthroughMuxer) Suffix(start *stream.StartInfo) string { return "ts" }

func (m *passthroughMuxer) Close() error {
	m.mu.Lock()
	f := m.f
	m.f = nil
	m.mu.Unlock()
	if f == nil {
		return nil
	}
	return f.Close()
}

func (m *passthroughMuxer) Destroy() {}
