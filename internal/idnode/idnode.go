// Package idnode is the narrow slice of tvheadend's id-node registry this
// engine actually needs: stable UUID keys for Services, Subscriptions and
// DVR entries, so they can be referenced from the (out-of-scope) management
// UI without exposing internal pointers. The UI-facing tree/property
// metadata that the real registry carries stays external.
package idnode

import (
	"sync"

	"github.com/google/uuid"
)

// Registry assigns and tracks UUID keys for engine objects. The zero value
// is not usable; use New.
type Registry struct {
	mu    sync.Mutex
	nodes map[string]any
	seq   map[string]int // per-id monotonic counter, for Bump
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		nodes: make(map[string]any),
		seq:   make(map[string]int),
	}
}

// Register assigns a fresh UUID to obj and returns it. Panics if obj is nil,
// mirroring the registry's invariant that every node has a live backing
// object.
func (r *Registry) Register(obj any) string {
	if obj == nil {
		panic("idnode: cannot register nil object")
	}
	return r.RegisterWithID(uuid.NewString(), obj)
}

// RegisterWithID registers obj under a caller-supplied id rather than
// minting a fresh one, for objects (like stream.Service) that already carry
// their own stable identity and must be looked up and bumped by that same
// id. Panics if obj is nil.
func (r *Registry) RegisterWithID(id string, obj any) string {
	if obj == nil {
		panic("idnode: cannot register nil object")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[id] = obj
	return id
}

// Unregister removes id from the registry. Safe to call on an unknown id.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.nodes, id)
}

// Lookup returns the object registered under id, or nil if absent.
func (r *Registry) Lookup(id string) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nodes[id]
}

// Bump increments and returns a per-id revision counter, used to tell
// UI-facing watchers ("notify") that an object's externally visible state
// changed without re-sending the whole object.
func (r *Registry) Bump(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq[id]++
	return r.seq[id]
}

// Len reports the number of currently registered nodes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.nodes)
}
