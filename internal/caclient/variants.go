package caclient

import (
	"fmt"
	"sync"

	"github.com/hdhrcore/tvcore/internal/stream"
	"github.com/hdhrcore/tvcore/internal/supervisor"
)

// ConstantCW is the simplest Client variant: a fixed control word supplied
// out of band (test fixtures, or a CAM with a known static key). It never
// fails to start and ignores CAID updates other than recording them.
type ConstantCW struct {
	name    string
	enabled bool
	cw      []byte

	mu   sync.Mutex
	seen map[uint16]bool
}

// NewConstantCW returns a Client that always reports success and treats cw
// as the descrambling key for every CAID it is offered.
func NewConstantCW(name string, cw []byte) *ConstantCW {
	return &ConstantCW{name: name, enabled: true, cw: cw, seen: make(map[uint16]bool)}
}

func (c *ConstantCW) Name() string   { return c.name }
func (c *ConstantCW) Enabled() bool  { return c.enabled }
func (c *ConstantCW) SetEnabled(v bool) { c.enabled = v }

func (c *ConstantCW) Start(svc *stream.Service) error { return nil }

func (c *ConstantCW) CAIDUpdate(mux string, caid uint16, pid int, valid bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen[caid] = valid
}

func (c *ConstantCW) Close() error { return nil }

// CWC is a software conditional-word-client connecting to a remote CWC
// server over TCP (the protocol itself is out of scope; this models the
// session/connection bookkeeping the spec calls out). Dial is injected so
// tests do not need a real server.
type CWC struct {
	name    string
	enabled bool
	addr    string
	dial    func(addr string) (connected bool, err error)

	mu        sync.Mutex
	connected bool
}

// NewCWC returns a CWC client that dials addr via dial on Start.
func NewCWC(name, addr string, dial func(addr string) (bool, error)) *CWC {
	return &CWC{name: name, enabled: true, addr: addr, dial: dial}
}

func (c *CWC) Name() string    { return c.name }
func (c *CWC) Enabled() bool   { return c.enabled }
func (c *CWC) SetEnabled(v bool) { c.enabled = v }

func (c *CWC) Start(svc *stream.Service) error {
	ok, err := c.dial(c.addr)
	if err != nil {
		return fmt.Errorf("cwc %s: dial %s: %w", c.name, c.addr, err)
	}
	c.mu.Lock()
	c.connected = ok
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("cwc %s: dial %s: refused", c.name, c.addr)
	}
	return nil
}

func (c *CWC) CAIDUpdate(mux string, caid uint16, pid int, valid bool) {
	// A real CWC session would push an ECM request here; out of scope.
}

func (c *CWC) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	return nil
}

// CAPMT is the subprocess-backed CAClient variant: an external CAM-server
// process speaking the CAPMT protocol over a local socket, supervised by
// internal/supervisor so it is restarted if it exits while enabled.
type CAPMT struct {
	name    string
	enabled bool
	sup     *supervisor.Supervisor
}

// NewCAPMT wraps sup (already configured with the CAPMT helper's command
// line) as a Client. sup.Start is called lazily on the first Start(svc).
func NewCAPMT(name string, sup *supervisor.Supervisor) *CAPMT {
	return &CAPMT{name: name, enabled: true, sup: sup}
}

func (c *CAPMT) Name() string    { return c.name }
func (c *CAPMT) Enabled() bool   { return c.enabled }
func (c *CAPMT) SetEnabled(v bool) { c.enabled = v }

func (c *CAPMT) Start(svc *stream.Service) error {
	return c.sup.Ensure()
}

func (c *CAPMT) CAIDUpdate(mux string, caid uint16, pid int, valid bool) {
	// Forwarding a PMT/CAID delta over the CAPMT socket is a leaf protocol
	// concern of the supervised helper process; not modeled here.
}

func (c *CAPMT) Close() error {
	return c.sup.Stop()
}
