// Package caclient implements the CAClientRegistry and its CAClient
// variants: a sequence of conditional-access client records, each
// translating service-start and CAID-change events into its own
// connection/session state. Grounded on tvheadend's descrambler.c
// multi-client dispatch, reworked as a plain Go interface instead of a
// linked list of tagged unions.
package caclient

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/hdhrcore/tvcore/internal/stream"
)

// Client is one conditional-access client implementation: software-CWC,
// CAPMT (subprocess-backed), or a constant-CW stub. Start runs once per
// service entering RUNNING; CAIDUpdate fires whenever a CA component
// appears, disappears, or its validity changes.
type Client interface {
	Name() string
	Enabled() bool
	Start(svc *stream.Service) error
	CAIDUpdate(mux string, caid uint16, pid int, valid bool)
	Close() error
}

// Registry holds an ordered sequence of Clients and fans out Start/CAID
// update events to every enabled one, matching spec's "global operations"
// iterated across all enabled clients.
type Registry struct {
	mu      sync.RWMutex
	clients []Client

	// errOnce holds one rate.Sometimes{First: 1} per client name, so each
	// client's first start failure logs once and further repeats are
	// suppressed, per the "publish an ERROR state once, not on every
	// repetition" rule shared with Service.PublishErrorOnce.
	errOnce map[string]*rate.Sometimes
	logf    func(format string, args ...any)
}

// NewRegistry returns an empty registry. logf, if non-nil, receives one
// line the first time Start fails for a given client name; every later
// failure of that client is suppressed, and a success does not reset it.
func NewRegistry(logf func(format string, args ...any)) *Registry {
	return &Registry{logf: logf, errOnce: make(map[string]*rate.Sometimes)}
}

// Add appends a client to the registry's dispatch sequence.
func (r *Registry) Add(c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients = append(r.clients, c)
}

// Start is called once a service enters RUNNING; it is offered to every
// enabled client in registration order. A client failing to start does not
// prevent the others from being tried.
func (r *Registry) Start(svc *stream.Service) {
	r.mu.RLock()
	clients := append([]Client(nil), r.clients...)
	r.mu.RUnlock()

	for _, c := range clients {
		if !c.Enabled() {
			continue
		}
		if err := c.Start(svc); err != nil {
			r.mu.Lock()
			s, ok := r.errOnce[c.Name()]
			if !ok {
				s = &rate.Sometimes{First: 1}
				r.errOnce[c.Name()] = s
			}
			r.mu.Unlock()
			s.Do(func() {
				if r.logf != nil {
					r.logf("caclient: %s: start failed for service %s: %v", c.Name(), svc.ID, err)
				}
			})
		}
	}
}

// CAIDUpdate broadcasts a CAID appear/disappear/validity change to every
// enabled client.
func (r *Registry) CAIDUpdate(mux string, caid uint16, pid int, valid bool) {
	r.mu.RLock()
	clients := append([]Client(nil), r.clients...)
	r.mu.RUnlock()

	for _, c := range clients {
		if c.Enabled() {
			c.CAIDUpdate(mux, caid, pid, valid)
		}
	}
}

// Close shuts down every registered client, collecting the first error (if
// any) but attempting to close all of them regardless.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	for _, c := range r.clients {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// CAIDUpdateFromService walks every CA-class ElementaryStream currently
// admitted on svc and republishes a CAIDUpdate for each of its CAIDs,
// matching the "broadcast when components appear or disappear" rule. Must
// be called without svc's stream lock held (it calls Lock/Unlock itself).
func (r *Registry) CAIDUpdateFromService(svc *stream.Service) {
	svc.Lock()
	type delta struct {
		caid  uint16
		pid   int
		valid bool
	}
	var deltas []delta
	for _, es := range svc.Filtered {
		if es.Type != stream.ComponentCA {
			continue
		}
		for _, c := range es.CAIDs {
			deltas = append(deltas, delta{caid: c.CAID, pid: c.PID, valid: c.Use})
		}
	}
	svc.Unlock()

	for _, d := range deltas {
		r.CAIDUpdate(svc.Nicename, d.caid, d.pid, d.valid)
	}
}
