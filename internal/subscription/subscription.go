// Package subscription implements Subscription (a streaming-pad target that
// tracks bytes delivered) and ServiceInstanceSelector (the shared-vs-preempt
// tuner assignment algorithm), the direct analogues of tvheadend's
// subscription.c.
package subscription

import (
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/hdhrcore/tvcore/internal/stream"
)

// Subscription is one consumer of a Service's filtered stream: a live
// viewer, a recording worker, or anything else implementing
// stream.Target via Sink. It satisfies stream.SubscriptionHandle so
// Service can track attachment without importing this package.
type Subscription struct {
	id       string
	Weight   int
	Priority int

	Sink stream.Target // the real delivery target (muxer queue, HTTP writer, ...)

	bytesOut uint64 // atomic
	errors   uint64 // atomic; transient delivery failures

	Service *stream.Service
}

// New creates a Subscription with a fresh uuid identity and the given sink.
func New(weight, priority int, sink stream.Target) *Subscription {
	return &Subscription{
		id:       uuid.NewString(),
		Weight:   weight,
		Priority: priority,
		Sink:     sink,
	}
}

// ID satisfies stream.SubscriptionHandle.
func (s *Subscription) ID() string { return s.id }

// BytesOut returns the running total of payload bytes delivered
// (spec invariant: non-decreasing, equal to the sum of delivered payload
// sizes).
func (s *Subscription) BytesOut() uint64 { return atomic.LoadUint64(&s.bytesOut) }

// Errors returns the running count of transient delivery failures.
func (s *Subscription) Errors() uint64 { return atomic.LoadUint64(&s.errors) }

// Deliver forwards msg to the underlying sink, counting payload bytes for
// PACKET and MPEGTS messages once the sink (if any) has accepted them.
// Implements stream.Target.
func (s *Subscription) Deliver(msg *stream.StreamingMessage) error {
	if s.Sink != nil {
		if err := s.Sink.Deliver(msg); err != nil {
			atomic.AddUint64(&s.errors, 1)
			return err
		}
	}
	switch msg.Kind {
	case stream.MsgPacket:
		if msg.Pkt != nil {
			atomic.AddUint64(&s.bytesOut, uint64(len(msg.Pkt.Data)))
		}
	case stream.MsgMPEGTS:
		atomic.AddUint64(&s.bytesOut, uint64(len(msg.MPEGTS)))
	}
	return nil
}
