package caclient

import (
	"errors"
	"sync"
	"testing"

	"github.com/hdhrcore/tvcore/internal/stream"
)

type fakeClient struct {
	name     string
	enabled  bool
	startErr error

	mu      sync.Mutex
	started int
	updates int
	closed  bool
}

func (f *fakeClient) Name() string  { return f.name }
func (f *fakeClient) Enabled() bool { return f.enabled }
func (f *fakeClient) Start(svc *stream.Service) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
	return f.startErr
}
func (f *fakeClient) CAIDUpdate(mux string, caid uint16, pid int, valid bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
}
func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func TestRegistry_startDispatchesToAllEnabledClients(t *testing.T) {
	a := &fakeClient{name: "a", enabled: true}
	b := &fakeClient{name: "b", enabled: false}
	r := NewRegistry(nil)
	r.Add(a)
	r.Add(b)

	svc := stream.New("svc1", nil)
	r.Start(svc)

	if a.started != 1 {
		t.Fatalf("a.started = %d, want 1", a.started)
	}
	if b.started != 0 {
		t.Fatalf("b.started = %d, want 0 (disabled)", b.started)
	}
}

func TestRegistry_startFailureLogsOnlyOnce(t *testing.T) {
	a := &fakeClient{name: "a", enabled: true, startErr: errors.New("no connection")}
	var lines []string
	r := NewRegistry(func(format string, args ...any) {
		lines = append(lines, format)
	})
	r.Add(a)

	svc := stream.New("svc1", nil)
	r.Start(svc)
	r.Start(svc)
	r.Start(svc)

	if len(lines) != 1 {
		t.Fatalf("logged %d times, want 1 (repeat failures must be suppressed)", len(lines))
	}
}

func TestRegistry_caidUpdateBroadcastsToEnabledOnly(t *testing.T) {
	a := &fakeClient{name: "a", enabled: true}
	b := &fakeClient{name: "b", enabled: true}
	c := &fakeClient{name: "c", enabled: false}
	r := NewRegistry(nil)
	r.Add(a)
	r.Add(b)
	r.Add(c)

	r.CAIDUpdate("mux1", 0x0500, 100, true)

	if a.updates != 1 || b.updates != 1 {
		t.Fatal("expected both enabled clients to receive the CAID update")
	}
	if c.updates != 0 {
		t.Fatal("disabled client must not receive the update")
	}
}

func TestRegistry_closeClosesEveryClient(t *testing.T) {
	a := &fakeClient{name: "a", enabled: true}
	b := &fakeClient{name: "b", enabled: true}
	r := NewRegistry(nil)
	r.Add(a)
	r.Add(b)

	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !a.closed || !b.closed {
		t.Fatal("expected both clients to be closed")
	}
}

func TestConstantCW_alwaysStartsSuccessfully(t *testing.T) {
	c := NewConstantCW("static", []byte{1, 2, 3, 4, 5, 6, 7, 8})
	if err := c.Start(stream.New("svc1", nil)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	c.CAIDUpdate("mux1", 0x0100, 50, true)
	if !c.seen[0x0100] {
		t.Fatal("expected CAID 0x0100 to be recorded as valid")
	}
}

func TestCWC_startPropagatesDialFailure(t *testing.T) {
	c := NewCWC("cwc1", "127.0.0.1:16000", func(addr string) (bool, error) {
		return false, errors.New("connection refused")
	})
	if err := c.Start(stream.New("svc1", nil)); err == nil {
		t.Fatal("expected Start to propagate the dial failure")
	}
}
