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

package ivshmem

import (
	"net"

	"golang.org/x/sys/unix"

	"github.com/AlexanderSchuetz97/Ivshmem4j/internal/registry"
	"github.com/AlexanderSchuetz97/Ivshmem4j/shmem"
	"github.com/AlexanderSchuetz97/Ivshmem4j/status"
)

// Connection is the aggregate owning every resource a connected ivshmem
// client holds: the server socket, the shared mapping, self state, and the
// peer/vector registry. Per spec §3's ownership model, the Connection
// exclusively owns everything it transitively holds; no weak or shared
// ownership exists elsewhere in this module.
type Connection struct {
	conn    *net.UnixConn
	mapping *shmem.Mapping
	self    Self
	reg     *registry.Registry
	opts    Options
}

// Mapping returns the connection's shared-memory view.
func (c *Connection) Mapping() *shmem.Mapping { return c.mapping }

// Self returns the local peer's identity and vector descriptors.
func (c *Connection) Self() Self { return c.self }

// Stats is the supplemental introspection view described in
// SPEC_FULL.md's "Stats introspection" feature: peer/vector counts for
// diagnostics, read-only, taking the registry mutex only briefly.
type Stats struct {
	PeerIDs         []uint16
	PeerCount       int
	SelfVectorCount int
	HighestSelfFD   int
}

// Stats returns a snapshot of the connection's current size and peer set.
func (c *Connection) Stats() Stats {
	ids := c.reg.Snapshot()
	return Stats{
		PeerIDs:         ids,
		PeerCount:       len(ids),
		SelfVectorCount: len(c.self.VectorFDs),
		HighestSelfFD:   c.self.HighestFD,
	}
}

// Close tears the connection down: unmaps the shared region, closes every
// peer's and self's vector descriptors, and closes the server socket, in
// that order. Every resource is given a chance to close even if an earlier
// one failed; Close returns the first failure encountered, matching
// shmem_common.c's shmem_common_free unwind order (see DESIGN.md).
func (c *Connection) Close() status.Status {
	first := status.Ok

	if c.mapping != nil {
		if st := c.mapping.Close(); !st.IsOK() && first.IsOK() {
			first = st
		}
	}

	c.reg.IterateAndRemove(func(p *registry.Peer) bool {
		for _, fd := range p.VectorFDs {
			if fd >= 0 {
				if err := unix.Close(fd); err != nil && first.IsOK() {
					first = status.Of(status.FD, err)
				}
			}
		}
		return true
	})

	for _, fd := range c.self.VectorFDs {
		if fd >= 0 {
			if err := unix.Close(fd); err != nil && first.IsOK() {
				first = status.Of(status.FD, err)
			}
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil && first.IsOK() {
			first = status.Of(status.FD, err)
		}
	}

	return first
}
