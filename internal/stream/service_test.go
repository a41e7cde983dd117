package stream

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeCapability struct {
	mu          sync.Mutex
	startErr    error
	started     bool
	stopped     bool
	refreshed   bool
	grace       int
	enlisted    []string
}

func (f *fakeCapability) StartFeed(instance any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	return nil
}
func (f *fakeCapability) StopFeed()    { f.stopped = true }
func (f *fakeCapability) RefreshFeed() { f.refreshed = true }
func (f *fakeCapability) IsEnabled(flags int) bool { return true }
func (f *fakeCapability) Enlist(sink InstanceSink, flags int) {}
func (f *fakeCapability) SetSourceInfo(out *StartInfo) {}
func (f *fakeCapability) GracePeriodSeconds() int {
	if f.grace > 0 {
		return f.grace
	}
	return 10
}
func (f *fakeCapability) Delete(deleteConfig bool)  {}
func (f *fakeCapability) ConfigSave()                {}
func (f *fakeCapability) ChannelName() string        { return "Test" }
func (f *fakeCapability) ChannelNumber() string       { return "1.1" }
func (f *fakeCapability) ChannelIcon() string         { return "" }
func (f *fakeCapability) ProviderName() string        { return "" }

type fakeSub struct{ id string }

func (f fakeSub) ID() string { return f.id }

func TestCreateStream_uniquePID(t *testing.T) {
	s := New("svc1", &fakeCapability{})
	s.Lock()
	defer s.Unlock()
	a := s.CreateStream(100, ComponentH264)
	b := s.CreateStream(100, ComponentH264)
	if a != b {
		t.Fatal("CreateStream with same PID must return the existing stream")
	}
	c := s.CreateStream(-1, ComponentAAC)
	d := s.CreateStream(-1, ComponentAC3)
	if c == d {
		t.Fatal("CreateStream with PID -1 must always create a new stream")
	}
	if a.Index == c.Index {
		t.Fatal("indices must be unique")
	}
}

func TestStartStop(t *testing.T) {
	cap := &fakeCapability{}
	s := New("svc1", cap)
	s.FilterFunc = func(svc *Service) { svc.Filtered = svc.Components }
	s.Lock()
	s.CreateStream(100, ComponentH264)
	s.Unlock()

	if err := s.Start(nil, 0, nil, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.Status != StatusRunning {
		t.Fatalf("Status = %v, want RUNNING", s.Status)
	}
	if !cap.started {
		t.Fatal("expected StartFeed to be called")
	}
	s.Stop(nil)
	if s.Status != StatusIdle {
		t.Fatalf("Status = %v, want IDLE", s.Status)
	}
	if !cap.stopped {
		t.Fatal("expected StopFeed to be called")
	}
}

func TestStart_propagatesFeedError(t *testing.T) {
	cap := &fakeCapability{startErr: errors.New("tuning failed")}
	s := New("svc1", cap)
	err := s.Start(nil, 0, nil, nil)
	if err == nil {
		t.Fatal("expected Start to propagate feed error")
	}
	if s.Status == StatusRunning {
		t.Fatal("Status must not become RUNNING on feed failure")
	}
}

func TestStart_caidUpdateCallbackCanLockService(t *testing.T) {
	cap := &fakeCapability{}
	s := New("svc1", cap)
	s.FilterFunc = func(svc *Service) { svc.Filtered = svc.Components }

	done := make(chan struct{})
	caidUpdate := func(svc *Service) {
		// A real registry callback (e.g. CAClientRegistry.CAIDUpdateFromService)
		// locks svc itself; Start must not still be holding s.mu when it calls
		// this, or the Lock below deadlocks the goroutine.
		svc.Lock()
		svc.Unlock()
		close(done)
	}

	if err := s.Start(nil, 0, nil, caidUpdate); err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("caidUpdate callback never ran or deadlocked on svc.Lock")
	}
}

func TestStop_panicsIfSubscriptionsStillAttached(t *testing.T) {
	cap := &fakeCapability{}
	s := New("svc1", cap)
	s.FilterFunc = func(svc *Service) { svc.Filtered = svc.Components }
	if err := s.Start(nil, 0, nil, nil); err != nil {
		t.Fatal(err)
	}
	s.AttachSubscription(fakeSub{id: "sub1"})
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic: subscriptions must be detached before Stop")
		}
	}()
	s.Stop(nil)
}

func TestSetStreamingStatus_onlyBroadcastsOnChange(t *testing.T) {
	s := New("svc1", &fakeCapability{})
	var calls int
	var mu sync.Mutex
	target := targetFunc(func(msg *StreamingMessage) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	})
	s.Pad.Attach(&target) // Pad keys targets in a map; a func value is not hashable, a pointer is
	s.SetStreamingStatus(TSSPackets)
	s.SetStreamingStatus(TSSPackets)
	s.SetStreamingStatus(TSSPackets | TSSTimeout)
	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Fatalf("Broadcast called %d times, want 2 (only on change)", calls)
	}
}

func TestPublishErrorOnce(t *testing.T) {
	s := New("svc1", &fakeCapability{})
	if !s.PublishErrorOnce(ErrNoAccess) {
		t.Fatal("first publish of a new error code should return true")
	}
	if s.PublishErrorOnce(ErrNoAccess) {
		t.Fatal("repeat of the same error code should return false")
	}
	if !s.PublishErrorOnce(ErrNoDescrambler) {
		t.Fatal("a different error code should publish again")
	}
}

func TestDataTimeout_setsGraceAndTimeoutFlags(t *testing.T) {
	s := New("svc1", &fakeCapability{})
	done := make(chan struct{})
	go func() {
		s.WaitStatusChange()
		close(done)
	}()
	time.Sleep(10 * time.Millisecond) // let the waiter start
	s.onDataTimeout()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitStatusChange did not wake up")
	}
	s.disarmDataTimeout()
	if s.StreamingStatus&TSSGraceperiod == 0 {
		t.Error("expected TSSGraceperiod to be set when no packets were seen")
	}
	if s.StreamingStatus&TSSTimeout == 0 {
		t.Error("expected TSSTimeout to be set when not live")
	}
}

type targetFunc func(msg *StreamingMessage) error

func (f targetFunc) Deliver(msg *StreamingMessage) error { return f(msg) }
