/*
 * Copyright 2024 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package registry is the mutex-protected chained hash table of live peers
// and their interrupt vectors. It has no notion of sockets or the wire
// protocol; it is pure in-memory bookkeeping consulted by the handshake,
// the event poller, and doorbell senders.
package registry

import (
	"math"
	"sync"
)

const (
	initialBuckets  = 32
	loadFactorLimit = 0.75
)

// Peer is one entry in the registry: a peer id and its ordered, append-only
// interrupt vector descriptors.
type Peer struct {
	ID             uint16
	VectorFDs      []int
	DenyNewVectors bool
}

type node struct {
	peer *Peer
	next *node
}

// Registry is a chained hash table keyed by peer id, resized to keep the
// load factor at or below 0.75. At most one entry exists per id; iteration
// order is unspecified but stable between mutations. A single mutex guards
// all mutation and lookup once more than one goroutine may be active; during
// handshake, population happens before the poller goroutine exists and is
// therefore unsynchronized, matching §4.F.
type Registry struct {
	mu      sync.Mutex
	buckets []*node
	count   int
}

// New returns an empty registry with the initial bucket count.
func New() *Registry {
	return &Registry{buckets: make([]*node, initialBuckets)}
}

func bucketIndex(id uint16, numBuckets int) int {
	return int(id) % numBuckets
}

// Lock and Unlock expose the registry's single coarse mutex so callers that
// must combine a registry mutation with another observation (e.g. "send
// under the same critical section that observed the peer") can do so
// atomically, per §5's ordering guarantee.
func (r *Registry) Lock()   { r.mu.Lock() }
func (r *Registry) Unlock() { r.mu.Unlock() }

// addLocked inserts peer, failing if its id already exists. Caller holds
// the lock (or is the single-threaded handshake populator).
func (r *Registry) addLocked(peer *Peer) bool {
	idx := bucketIndex(peer.ID, len(r.buckets))
	for n := r.buckets[idx]; n != nil; n = n.next {
		if n.peer.ID == peer.ID {
			return false
		}
	}
	r.buckets[idx] = &node{peer: peer, next: r.buckets[idx]}
	r.count++
	r.maybeResizeLocked()
	return true
}

// Add inserts peer under the registry mutex, failing if its id is already
// present.
func (r *Registry) Add(peer *Peer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addLocked(peer)
}

// AddUnsynchronized inserts peer without taking the mutex. Only valid during
// handshake, before any other goroutine can observe the registry.
func (r *Registry) AddUnsynchronized(peer *Peer) bool {
	return r.addLocked(peer)
}

// Get returns the peer for id, if present.
func (r *Registry) Get(id uint16) (*Peer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getLocked(id)
}

func (r *Registry) getLocked(id uint16) (*Peer, bool) {
	idx := bucketIndex(id, len(r.buckets))
	for n := r.buckets[idx]; n != nil; n = n.next {
		if n.peer.ID == id {
			return n.peer, true
		}
	}
	return nil, false
}

// GetOrCreateLocked returns the existing peer for id, or inserts and returns a
// freshly created empty one. The second return value is true if a new peer
// was created. Caller must hold the lock.
func (r *Registry) GetOrCreateLocked(id uint16) (*Peer, bool) {
	if p, ok := r.getLocked(id); ok {
		return p, false
	}
	p := &Peer{ID: id}
	r.addLocked(p)
	return p, true
}

// Remove deletes the peer for id under the registry mutex and returns it.
// Destruction (closing its vector descriptors) is the caller's
// responsibility, per the ownership model in spec §3.
func (r *Registry) Remove(id uint16) (*Peer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(id)
}

func (r *Registry) removeLocked(id uint16) (*Peer, bool) {
	idx := bucketIndex(id, len(r.buckets))
	var prev *node
	for n := r.buckets[idx]; n != nil; n = n.next {
		if n.peer.ID == id {
			if prev == nil {
				r.buckets[idx] = n.next
			} else {
				prev.next = n.next
			}
			r.count--
			return n.peer, true
		}
		prev = n
	}
	return nil, false
}

// RemoveLocked is Remove for a caller that already holds the lock.
func (r *Registry) RemoveLocked(id uint16) (*Peer, bool) { return r.removeLocked(id) }

// Len returns the number of live entries under the registry mutex.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Iterate calls fn for every live peer. fn may call Remove reentrantly is
// NOT supported (Registry's mutex is non-reentrant); use IterateAndRemove
// for remove-during-iteration.
func (r *Registry) Iterate(fn func(*Peer)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, head := range r.buckets {
		for n := head; n != nil; n = n.next {
			fn(n.peer)
		}
	}
}

// IterateAndRemove calls fn for every live peer; if fn returns true, that
// peer is removed from the registry during the same critical section.
func (r *Registry) IterateAndRemove(fn func(*Peer) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for idx, head := range r.buckets {
		var prev *node
		n := head
		for n != nil {
			next := n.next
			if fn(n.peer) {
				if prev == nil {
					r.buckets[idx] = next
				} else {
					prev.next = next
				}
				r.count--
			} else {
				prev = n
			}
			n = next
		}
	}
}

// Snapshot returns a copy of the live peer ids, for diagnostics (see
// SPEC_FULL.md's Stats introspection feature).
func (r *Registry) Snapshot() []uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]uint16, 0, r.count)
	for _, head := range r.buckets {
		for n := head; n != nil; n = n.next {
			ids = append(ids, n.peer.ID)
		}
	}
	return ids
}

// maybeResizeLocked grows the bucket array when the load factor would
// exceed 0.75, to a new size of ceil(size/0.75)+1 with a floor of 32.
func (r *Registry) maybeResizeLocked() {
	if float64(r.count) <= float64(len(r.buckets))*loadFactorLimit {
		return
	}
	newSize := int(math.Ceil(float64(r.count)/loadFactorLimit)) + 1
	if newSize < initialBuckets {
		newSize = initialBuckets
	}
	newBuckets := make([]*node, newSize)
	for _, head := range r.buckets {
		for n := head; n != nil; {
			next := n.next
			idx := bucketIndex(n.peer.ID, newSize)
			n.next = newBuckets[idx]
			newBuckets[idx] = n
			n = next
		}
	}
	r.buckets = newBuckets
}
