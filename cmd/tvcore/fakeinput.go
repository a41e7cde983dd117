package main

import (
	"math/rand"
	"sync"
	"time"

	"github.com/hdhrcore/tvcore/internal/stream"
)

// fakeCapability is the "fakeinput" test/demo collaborator described in
// SPEC_FULL.md §2: it feeds a synthetic stream of PACKET messages into a
// Service's StreamingPad so the rest of the engine can be exercised
// without real tuner hardware. It is not a tuner driver and stays a
// Non-goal in production use.
type fakeCapability struct {
	svc      *stream.Service // set once, after stream.New returns
	channel  string
	provider string

	mu      sync.Mutex
	stop    chan struct{}
	wg      sync.WaitGroup
	running bool
}

func newFakeCapability(channel, provider string) *fakeCapability {
	return &fakeCapability{channel: channel, provider: provider}
}

// StartFeed begins emitting one synthetic 188-byte packet on stream index 0
// every 40ms, occasionally marking a short run of packets "commercial" so
// internal/dvr's skip-commercials and marker logic have something to do.
func (c *fakeCapability) StartFeed(instance any) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.stop = make(chan struct{})
	stop := c.stop
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(40 * time.Millisecond)
		defer ticker.Stop()
		var n int
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				n++
				commercial := (n/50)%4 == 3 // 50 ticks (~2 seconds) of commercials every 200 ticks (~8 seconds)
				payload := make([]byte, 188)
				rand.Read(payload)
				c.svc.Pad.Broadcast(stream.NewPacketMessage(&stream.Packet{
					StreamIndex: 0,
					Data:        payload,
					Commercial:  commercial,
					Key:         n%25 == 0,
				}))
			}
		}
	}()
	return nil
}

func (c *fakeCapability) StopFeed() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stop)
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *fakeCapability) RefreshFeed() {}

func (c *fakeCapability) IsEnabled(flags int) bool { return true }

// Enlist offers this capability's own service as the only candidate, with
// a fixed priority/weight pair (a real tuner-hardware collaborator would
// offer one entry per physical adapter able to receive this service).
func (c *fakeCapability) Enlist(sink stream.InstanceSink, flags int) {
	sink.Offer(c.svc, 1, 100)
}

func (c *fakeCapability) SetSourceInfo(out *stream.StartInfo) {
	out.Nicename = c.channel
}

func (c *fakeCapability) GracePeriodSeconds() int { return 10 }

func (c *fakeCapability) Delete(deleteConfig bool) {}

func (c *fakeCapability) ConfigSave() {}

func (c *fakeCapability) ChannelName() string   { return c.channel }
func (c *fakeCapability) ChannelNumber() string { return "1.1" }
func (c *fakeCapability) ChannelIcon() string   { return "" }
func (c *fakeCapability) ProviderName() string  { return c.provider }
