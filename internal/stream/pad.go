package stream

import "sync"

// Pad is the fan-out hub of a Service: it holds non-owning back-references
// to every attached Target and broadcasts each StreamingMessage to all of
// them in enqueue order. The Service owns the Pad; the Pad never owns a
// Target, breaking the Service↔Subscription↔Pad ownership cycle per
// spec.md §9 ("keep the pad→target edge weak").
//
// Deliver is called with the Service's stream mutex already held by the
// caller (spec.md §5 lock ordering); Pad itself only guards its target set.
type Pad struct {
	mu      sync.Mutex
	targets map[Target]struct{}
}

// NewPad returns an empty Pad.
func NewPad() *Pad {
	return &Pad{targets: make(map[Target]struct{})}
}

// Attach adds target to the fan-out set. Idempotent.
func (p *Pad) Attach(t Target) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.targets[t] = struct{}{}
}

// Detach removes target from the fan-out set. Safe if not attached.
func (p *Pad) Detach(t Target) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.targets, t)
}

// Empty reports whether no targets are currently attached; Service.Stop
// asserts this before transitioning to IDLE.
func (p *Pad) Empty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.targets) == 0
}

// Len reports the current number of attached targets.
func (p *Pad) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.targets)
}

// Broadcast delivers msg to every attached target. Each target is only
// ever reached by one goroutine at a time for a given Pad because Deliver
// is always called with the owning Service's stream mutex held, so targets
// never see messages from the same pad reordered relative to each other.
// A target's Deliver error is logged by the caller, not here; Broadcast
// itself never fails.
func (p *Pad) Broadcast(msg *StreamingMessage) {
	p.mu.Lock()
	targets := make([]Target, 0, len(p.targets))
	for t := range p.targets {
		targets = append(targets, t)
	}
	p.mu.Unlock()
	for _, t := range targets {
		_ = t.Deliver(msg)
	}
}
