package subscription

import (
	"errors"
	"sync"
	"time"

	"github.com/hdhrcore/tvcore/internal/stream"
)

// ErrNoFreeAdapter and ErrTuningFailed are the two failure outcomes
// FindInstance can return, per spec.
var (
	ErrNoFreeAdapter = errors.New("subscription: no free adapter")
	ErrTuningFailed  = errors.New("subscription: tuning failed")
)

// instanceEntry is one (service, tuner-instance) candidate the selector
// tracks across calls to FindInstance. Entries persist between calls so a
// RUNNING, zero-error instance can be shared by later subscribers.
type instanceEntry struct {
	Service      *stream.Service
	TunerInstance any
	Priority     int
	Weight       int
	marked       bool
	lastErr      error // sticky TUNING_FAILED marker from a prior failed start
}

// ServiceInstanceSelector implements stream.InstanceSink: the Enlist pass
// calls Offer for each candidate service, and FindInstance runs the
// mark/re-enlist/delete/pick algorithm from spec §4.3 under its own lock
// (standing in for the spec's global_lock, which this package does not
// otherwise need).
type ServiceInstanceSelector struct {
	mu      sync.Mutex
	entries []*instanceEntry
}

// NewSelector returns an empty selector.
func NewSelector() *ServiceInstanceSelector {
	return &ServiceInstanceSelector{}
}

// Offer implements stream.InstanceSink. It inserts a new entry for svc or
// refreshes an existing one's priority/weight, keeping entries ordered
// ascending by (priority, weight) so that forward iteration favors the
// cheapest/most-preferred candidate and reverse iteration favors the
// highest-priority idle one. Must be called with mu held.
func (sel *ServiceInstanceSelector) Offer(svc *stream.Service, prio, weight int) {
	for _, e := range sel.entries {
		if e.Service == svc {
			e.Priority, e.Weight = prio, weight
			e.marked = false
			sel.resort()
			return
		}
	}
	sel.entries = append(sel.entries, &instanceEntry{
		Service:  svc,
		Priority: prio,
		Weight:   weight,
	})
	sel.resort()
}

func (sel *ServiceInstanceSelector) resort() {
	// Small insertion sort; the entry list is bounded by the number of
	// tuner instances, never large enough to warrant sort.Slice overhead
	// dominating over its own allocation.
	es := sel.entries
	for i := 1; i < len(es); i++ {
		for j := i; j > 0 && less(es[j], es[j-1]); j-- {
			es[j], es[j-1] = es[j-1], es[j]
		}
	}
}

func less(a, b *instanceEntry) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return a.Weight < b.Weight
}

// Enlister is implemented by anything that can drive an enlist pass over
// the candidate services for one FindInstance call: a single direct
// service enlists only itself; a logical channel enlists every mapped,
// enabled backing service. Kept narrow so this package need not know about
// channel-mapping UI glue.
type Enlister interface {
	EnlistCandidates(sink stream.InstanceSink, flags int)
}

// DirectService adapts a single *stream.Service into an Enlister, for the
// "direct service" case in spec §4.3's step 2.
type DirectService struct{ Service *stream.Service }

func (d DirectService) EnlistCandidates(sink stream.InstanceSink, flags int) {
	if d.Service.Capability.IsEnabled(flags) {
		d.Service.Capability.Enlist(sink, flags)
	}
}

// StartFunc starts svc on instance, honoring postpone, and is called once
// the selector has chosen a candidate. It corresponds to spec §4.3 step 9's
// service_start.
type StartFunc func(svc *stream.Service, instance any, postpone time.Duration) error

// FindInstance runs the full selection algorithm: mark, re-enlist via
// target's EnlistCandidates, delete stale entries, then pick per the
// priority ladder in spec §4.3. instance is opaque tuner-instance data
// handed to start and stashed on the winning entry.
func (sel *ServiceInstanceSelector) FindInstance(target Enlister, requestedWeight, flags int, postpone time.Duration, instance any, start StartFunc) (*stream.Service, error) {
	sel.mu.Lock()

	for _, e := range sel.entries {
		e.marked = true
	}

	target.EnlistCandidates(sel, flags)

	kept := sel.entries[:0]
	for _, e := range sel.entries {
		if !e.marked {
			kept = append(kept, e)
		}
	}
	sel.entries = kept

	chosen := pick(sel.entries, requestedWeight)
	if chosen == nil {
		sel.mu.Unlock()
		return nil, ErrNoFreeAdapter
	}
	if chosen.Service.Status == stream.StatusRunning && chosen.lastErr == nil {
		svc := chosen.Service
		sel.mu.Unlock()
		return svc, nil
	}
	chosen.TunerInstance = instance
	sel.mu.Unlock()

	if err := start(chosen.Service, instance, postpone); err != nil {
		sel.mu.Lock()
		chosen.lastErr = ErrTuningFailed
		sel.mu.Unlock()
		return nil, ErrTuningFailed
	}
	return chosen.Service, nil
}

// pick implements spec §4.3 steps 4-7 over an ascending-(prio,weight)-sorted
// entries slice. Must be called with mu held.
func pick(entries []*instanceEntry, requestedWeight int) *instanceEntry {
	for _, e := range entries {
		if e.Service.Status == stream.StatusRunning && e.lastErr == nil {
			return e
		}
	}
	for _, e := range entries {
		if e.Weight < 0 && e.lastErr == nil {
			return e
		}
	}
	// Idle instance: with entries ascending by (prio, weight), the
	// lowest-prio idle candidate is the one a scheduling priority favors
	// (scenario: prio-1 and prio-2 both idle at weight 0, prio-1 wins).
	for _, e := range entries {
		if e.Weight == 0 && e.lastErr == nil {
			return e
		}
	}
	var best *instanceEntry
	for _, e := range entries {
		if e.lastErr != nil || e.Weight >= requestedWeight {
			continue
		}
		if best == nil || e.Weight < best.Weight {
			best = e
		}
	}
	return best
}
