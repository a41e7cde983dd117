package stream

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ServiceType tags the kind of program a Service carries.
type ServiceType int

const (
	ServiceTypeNone ServiceType = iota
	ServiceTypeHDTV
	ServiceTypeSDTV
	ServiceTypeRadio
)

// InstanceSink receives candidate (service, tuner-instance) offers during an
// Enlist pass. internal/subscription's ServiceInstanceSelector implements
// this; stream does not import subscription to avoid a cycle.
type InstanceSink interface {
	Offer(svc *Service, prio, weight int)
}

// SubscriptionHandle is the minimal view of a Subscription that Service
// needs to track attachment, without importing internal/subscription.
type SubscriptionHandle interface {
	ID() string
}

// Capability is the polymorphic per-flavour behavior a concrete input
// (e.g. an MPEG-TS tuner service) supplies. Modeled as a capability record
// per spec.md §9 rather than deep inheritance.
type Capability interface {
	StartFeed(instance any) error
	StopFeed()
	RefreshFeed()
	IsEnabled(flags int) bool
	Enlist(sink InstanceSink, flags int)
	SetSourceInfo(out *StartInfo)
	GracePeriodSeconds() int
	Delete(deleteConfig bool)
	ConfigSave()
	ChannelName() string
	ChannelNumber() string
	ChannelIcon() string
	ProviderName() string
}

// Service is a discoverable, tunable program: the aggregate of its
// ElementaryStreams plus the lifecycle/messaging state tvheadend's
// service_t carries. All fields below Components onward are guarded by mu
// (the spec's "stream mutex"); Capability, ID and refcount are set once at
// construction and are safe to read without the lock.
type Service struct {
	ID          string
	Capability  Capability
	ServiceType ServiceType

	refcount int32 // atomic; Ref/Unref, freed at zero

	// FilterFunc runs the ElementaryStreamFilter over Components to
	// produce Filtered. Wired externally (by cmd) to esfilter.Apply, to
	// avoid stream importing esfilter.
	FilterFunc func(*Service)

	mu   sync.Mutex
	cond *sync.Cond

	Enabled bool
	Status  Status

	PCRPID int
	PMTPID int

	Components []*ElementaryStream // full ordered list
	Filtered   []*ElementaryStream // observed by subscribers while RUNNING
	nextIndex  int

	Pad *Pad

	subscriptions map[string]SubscriptionHandle
	channelMaps   map[string]struct{}

	StreamingStatus StreamingStatusFlag
	StreamingLive   bool
	ScrambledSeen   bool

	Nicename     string
	adapterIdx   string
	networkIdx   string
	muxIdx       string

	PendingSave        bool
	PendingSaveRestart bool

	lastError ErrorCode

	startTime time.Time

	dataTimeoutMu sync.Mutex
	dataTimeout   *time.Timer
	dataTimeoutFn func() // injected in tests; defaults to s.onDataTimeout
}

// New constructs an un-started Service, registers it with nothing yet
// (callers register the returned Service's ID with an idnode.Registry
// themselves), and gives it refcount 1.
func New(id string, cap Capability) *Service {
	s := &Service{
		ID:            id,
		Capability:    cap,
		Enabled:       true,
		Status:        StatusIdle,
		Pad:           NewPad(),
		subscriptions: make(map[string]SubscriptionHandle),
		channelMaps:   make(map[string]struct{}),
		refcount:      1,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Lock/Unlock expose the stream mutex to callers (ElementaryStreamFilter,
// DVR worker bookkeeping) that must run under it per spec.md §5's lock
// ordering (global_lock, then service.stream_mutex).
func (s *Service) Lock()   { s.mu.Lock() }
func (s *Service) Unlock() { s.mu.Unlock() }

// Ref increments the Service's refcount.
func (s *Service) Ref() { atomic.AddInt32(&s.refcount, 1) }

// Unref decrements the refcount and reports whether it reached zero (the
// caller is then responsible for actually freeing the Service).
func (s *Service) Unref() bool {
	return atomic.AddInt32(&s.refcount, -1) == 0
}

// SetNicename splits a "adapter/network/mux" style service name into its
// prefix components and stores the full nicename, matching tvheadend's
// service_nicename splitting.
func (s *Service) SetNicename(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Nicename = name
	parts := strings.SplitN(name, "/", 3)
	switch len(parts) {
	case 3:
		s.adapterIdx, s.networkIdx, s.muxIdx = parts[0], parts[1], parts[2]
	case 2:
		s.adapterIdx, s.networkIdx = parts[0], parts[1]
	case 1:
		s.adapterIdx = parts[0]
	}
}

// CreateStream appends a new ElementaryStream of typ to the Service,
// returning the existing stream if pid is already present and pid != -1
// (spec invariant: a PID other than -1 is unique within a Service).
// Must be called with the stream lock held.
func (s *Service) CreateStream(pid int, typ ComponentType) *ElementaryStream {
	if pid != -1 {
		for _, es := range s.Components {
			if es.PID == pid {
				return es
			}
		}
	}
	es := newElementaryStream(s.nextIndex, typ)
	es.PID = pid
	s.nextIndex++
	s.Components = append(s.Components, es)
	return es
}

// DestroyStream removes es from the Service's component list, cleaning its
// reassembly state first if the Service is currently RUNNING. Must be
// called with the stream lock held.
func (s *Service) DestroyStream(es *ElementaryStream) {
	if s.Status == StatusRunning {
		es.ResetReassembly()
	}
	for i, c := range s.Components {
		if c == es {
			s.Components = append(s.Components[:i], s.Components[i+1:]...)
			break
		}
	}
}

// AttachSubscription links sub to this Service (global_lock scope in the
// original; here the caller is expected to already serialize subscription
// bookkeeping, e.g. under internal/subscription's own lock).
func (s *Service) AttachSubscription(sub SubscriptionHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[sub.ID()] = sub
}

// DetachSubscription unlinks sub.
func (s *Service) DetachSubscription(sub SubscriptionHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscriptions, sub.ID())
}

// SubscriptionCount reports the number of attached subscriptions.
func (s *Service) SubscriptionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscriptions)
}

// MapChannel / UnmapChannel record the channel-mapping set used by the
// ServiceInstanceSelector's Enlist pass.
func (s *Service) MapChannel(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelMaps[channelID] = struct{}{}
}

func (s *Service) UnmapChannel(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.channelMaps, channelID)
}

// Start transitions the Service into RUNNING: runs the filter, starts the
// tuner feed, notifies caPostStart (the CAClientRegistry's per-service
// start hook, injected so stream need not import caclient), and arms the
// data-timeout timer. Precondition: Status != RUNNING.
func (s *Service) Start(instance any, postpone time.Duration, caPostStart func(*Service), caidUpdate func(*Service)) error {
	s.mu.Lock()
	if s.Status == StatusRunning {
		s.mu.Unlock()
		return fmt.Errorf("stream: service %s already running", s.ID)
	}
	s.StreamingStatus = TSSNone
	s.StreamingLive = false
	s.ScrambledSeen = false
	s.startTime = time.Now()

	if s.FilterFunc != nil {
		s.FilterFunc(s)
	}
	s.mu.Unlock()

	if caidUpdate != nil {
		caidUpdate(s)
	}

	if err := s.Capability.StartFeed(instance); err != nil {
		return err
	}

	if caPostStart != nil {
		caPostStart(s)
	}

	s.mu.Lock()
	s.Status = StatusRunning
	for _, es := range s.Filtered {
		es.ResetReassembly()
	}
	s.mu.Unlock()

	grace := time.Duration(s.Capability.GracePeriodSeconds()) * time.Second
	if grace <= 0 {
		grace = 10 * time.Second
	}
	s.armDataTimeout(grace + postpone)
	return nil
}

// Stop transitions the Service back to IDLE. Precondition (asserted, not
// merely documented): the streaming pad and subscription set must already
// be empty — callers must detach subscribers before calling Stop.
func (s *Service) Stop(caStop func(*Service)) {
	s.disarmDataTimeout()
	s.Capability.StopFeed()

	s.mu.Lock()
	defer s.mu.Unlock()
	if caStop != nil {
		caStop(s)
	}
	if !s.Pad.Empty() {
		panic("stream: Stop called with non-empty streaming pad")
	}
	if len(s.subscriptions) != 0 {
		panic("stream: Stop called with live subscriptions still attached")
	}
	for _, es := range s.Components {
		es.ResetReassembly()
	}
	s.Status = StatusIdle
}

// Restart performs the atomic source-swap described in spec.md §4.2: emits
// STOP(SOURCE_RECONFIGURED) if hadComponents, reruns the filter, and emits
// a new START if the filtered list is non-empty. refreshFeed/caidUpdate
// run after the lock is released.
func (s *Service) Restart(hadComponents bool, caidUpdate func(*Service)) {
	s.mu.Lock()
	if hadComponents {
		s.Pad.Broadcast(NewStopMessage(ErrSourceReconfigured))
	}
	if s.FilterFunc != nil {
		s.FilterFunc(s)
	}
	var si *StartInfo
	if len(s.Filtered) > 0 {
		si = &StartInfo{Components: s.Filtered, PCRPID: s.PCRPID, PMTPID: s.PMTPID, Nicename: s.Nicename}
		s.Capability.SetSourceInfo(si)
		s.Pad.Broadcast(NewStartMessage(si))
	}
	s.mu.Unlock()

	s.Capability.RefreshFeed()
	if caidUpdate != nil {
		caidUpdate(s)
	}
}

// SetStreamingStatus stores flags if changed, broadcasts SERVICE_STATUS,
// and wakes any goroutine waiting on the status condition. No-op if flags
// already matches the current status (spec.md §4.2: "broadcasts only on
// change").
func (s *Service) SetStreamingStatus(flags StreamingStatusFlag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.StreamingStatus == flags {
		return
	}
	s.StreamingStatus = flags
	s.Pad.Broadcast(NewServiceStatusMessage(flags))
	s.cond.Broadcast()
}

// WaitStatusChange blocks until SetStreamingStatus next fires. Callers must
// not hold s.mu; this takes and releases it internally via the condition
// variable's Locker.
func (s *Service) WaitStatusChange() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cond.Wait()
}

// PublishErrorOnce sets lastError and returns true the first time code is
// seen (or when it differs from the previously published error); returns
// false on repeats, implementing the "log once" rule in spec.md §7.
func (s *Service) PublishErrorOnce(code ErrorCode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastError == code {
		return false
	}
	s.lastError = code
	return true
}

// armDataTimeout (re)starts the periodic data-timeout callback described in
// spec.md §4.2: the first check fires after the caller-supplied `after`,
// and each check re-arms itself for 5s. A check adds TSSGraceperiod if
// TSSPackets is not set, adds TSSTimeout if StreamingLive is false, and
// then clears StreamingLive.
func (s *Service) armDataTimeout(after time.Duration) {
	s.dataTimeoutMu.Lock()
	defer s.dataTimeoutMu.Unlock()
	if s.dataTimeout != nil {
		s.dataTimeout.Stop()
	}
	fn := s.dataTimeoutFn
	if fn == nil {
		fn = s.onDataTimeout
	}
	s.dataTimeout = time.AfterFunc(after, fn)
}

func (s *Service) disarmDataTimeout() {
	s.dataTimeoutMu.Lock()
	defer s.dataTimeoutMu.Unlock()
	if s.dataTimeout != nil {
		s.dataTimeout.Stop()
		s.dataTimeout = nil
	}
}

func (s *Service) onDataTimeout() {
	s.mu.Lock()
	flags := s.StreamingStatus
	if flags&TSSPackets == 0 {
		flags |= TSSGraceperiod
	}
	if !s.StreamingLive {
		flags |= TSSTimeout
	}
	s.StreamingLive = false
	s.mu.Unlock()
	s.SetStreamingStatus(flags)
	s.armDataTimeout(5 * time.Second)
}

// MarkPacketsSeen records that at least one packet has arrived since the
// last data-timeout check; called by whatever feeds packets into the Pad.
func (s *Service) MarkPacketsSeen() {
	s.mu.Lock()
	s.StreamingStatus |= TSSPackets
	s.StreamingLive = true
	s.mu.Unlock()
}

// Destroy stops the feed if running, unlinks all subscriptions and channel
// mappings (emitting SOURCE_DELETED to anyone still attached), transitions
// to ZOMBIE, and decrements the refcount. detachSub is called once per
// attached subscription so the caller (internal/subscription) can do its
// own unlinking before Service forgets about it.
func (s *Service) Destroy(deleteConfig bool, detachSub func(SubscriptionHandle)) bool {
	s.mu.Lock()
	running := s.Status == StatusRunning
	subs := make([]SubscriptionHandle, 0, len(s.subscriptions))
	for _, sub := range s.subscriptions {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	if running {
		s.Pad.Broadcast(NewStopMessage(ErrSourceDeleted))
		for _, sub := range subs {
			if detachSub != nil {
				detachSub(sub)
			}
			s.DetachSubscription(sub)
		}
		s.Stop(nil)
	}

	s.mu.Lock()
	for ch := range s.channelMaps {
		delete(s.channelMaps, ch)
	}
	s.Status = StatusZombie
	s.mu.Unlock()

	s.Capability.Delete(deleteConfig)
	return s.Unref()
}
