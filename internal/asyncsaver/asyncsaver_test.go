package asyncsaver

import (
	"sync"
	"testing"
	"time"
)

type fakeService struct {
	mu       sync.Mutex
	saves    int
	restarts int
	running  bool
}

func (f *fakeService) ConfigSave() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
}
func (f *fakeService) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}
func (f *fakeService) Restart(hadComponents bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restarts++
}

func TestSaver_coalescesRepeatRequests(t *testing.T) {
	s := New()
	go s.Run()
	defer s.Stop()

	svc := &fakeService{running: true}
	s.RequestSave(svc, false)
	s.RequestSave(svc, false)
	s.RequestSave(svc, true)

	deadline := time.Now().Add(time.Second)
	for s.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.saves != 1 {
		t.Fatalf("saves = %d, want 1 (coalesced)", svc.saves)
	}
	if svc.restarts != 1 {
		t.Fatalf("restarts = %d, want 1 (restart upgraded by the third request)", svc.restarts)
	}
}

func TestSaver_noRestartWhenNotRunning(t *testing.T) {
	s := New()
	go s.Run()
	defer s.Stop()

	svc := &fakeService{running: false}
	s.RequestSave(svc, true)

	deadline := time.Now().Add(time.Second)
	for s.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.restarts != 0 {
		t.Fatalf("restarts = %d, want 0 (service not running)", svc.restarts)
	}
}

func TestSaver_stopDrainsRemainingQueue(t *testing.T) {
	s := New()
	svcA := &fakeService{}
	svcB := &fakeService{}
	s.RequestSave(svcA, false)
	s.RequestSave(svcB, false)

	go s.Run()
	s.Stop()

	svcA.mu.Lock()
	aSaves := svcA.saves
	svcA.mu.Unlock()
	svcB.mu.Lock()
	bSaves := svcB.saves
	svcB.mu.Unlock()

	if aSaves != 1 || bSaves != 1 {
		t.Fatalf("saves = %d,%d, want 1,1 (Stop must drain what was already queued)", aSaves, bSaves)
	}
}
