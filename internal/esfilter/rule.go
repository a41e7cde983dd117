// Package esfilter implements the ElementaryStreamFilter: given a Service's
// full component list and a declarative rule set, decide which components
// propagate to subscribers. Grounded on tvheadend's esfilter subsystem as
// described by the parent service.c control flow (service_start reruns the
// filter on every start/restart, holding the stream lock).
package esfilter

import "github.com/hdhrcore/tvcore/internal/stream"

// Class is one of the six declared filter classes, always processed in
// this order.
type Class int

const (
	ClassVideo Class = iota
	ClassAudio
	ClassTeletext
	ClassSubtitle
	ClassCA
	ClassOther
)

// classOrder is the declared processing order: video, audio, teletext,
// subtitle, CA, other.
var classOrder = [...]Class{ClassVideo, ClassAudio, ClassTeletext, ClassSubtitle, ClassCA, ClassOther}

func classMask(c Class, t stream.ComponentType) bool {
	switch c {
	case ClassVideo:
		return t.IsVideo()
	case ClassAudio:
		return t.IsAudio()
	case ClassTeletext:
		return t == stream.ComponentTeletext
	case ClassSubtitle:
		return t.IsSubtitle()
	case ClassCA:
		return t == stream.ComponentCA
	case ClassOther:
		return !t.IsVideo() && !t.IsAudio() &&
			t != stream.ComponentTeletext && !t.IsSubtitle() && t != stream.ComponentCA
	default:
		return false
	}
}

// Action is the effect an enabled Rule has on each matching candidate.
type Action int

const (
	ActionNone Action = iota
	ActionIgnore
	ActionOnce
	ActionUse
	ActionExclusive
	ActionEmpty
)

// Rule is one declarative filter rule within a Class's ordered rule list.
// Optional narrowing fields are nil/zero when unset.
type Rule struct {
	Enabled bool
	Action  Action

	Type        *stream.ComponentType // optional explicit type narrowing
	Language    string                // optional; 4-byte-including-terminator prefix match
	ServiceUUID string                // optional scope to one service
	PID         *int                  // optional PID narrowing (used with ServiceUUID)

	// CA rules only.
	CAID       *uint16
	ProviderID *uint32

	// SIndex narrows a rule to the Nth matching candidate within its own
	// pass over the component list; 0 disables the index filter.
	SIndex int
}

// Set holds the ordered rule lists for every class. A zero Set (no
// entries) means "no filtering": Apply passes every component through.
type Set struct {
	Classes map[Class][]*Rule
}

// NewSet returns an empty rule set.
func NewSet() *Set {
	return &Set{Classes: make(map[Class][]*Rule)}
}

// Add appends rule to class's ordered rule list.
func (s *Set) Add(class Class, rule *Rule) {
	s.Classes[class] = append(s.Classes[class], rule)
}

func (s *Set) rulesFor(class Class) []*Rule {
	if s == nil {
		return nil
	}
	return s.Classes[class]
}

func (s *Set) hasAnyActiveRule() bool {
	if s == nil {
		return false
	}
	for _, rules := range s.Classes {
		for _, r := range rules {
			if r.Enabled {
				return true
			}
		}
	}
	return false
}
