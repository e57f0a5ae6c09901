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
	"time"

	"golang.org/x/sys/unix"

	"github.com/AlexanderSchuetz97/Ivshmem4j/status"
	"github.com/AlexanderSchuetz97/Ivshmem4j/wire"
)

// PollEvent describes one registry mutation the poller observed.
type PollEvent struct {
	Peer   uint16
	Vector int32
}

// Poll reads exactly one server packet and mutates the registry
// accordingly, per spec §4.G. It is meant to be called in a loop from a
// single externally-scheduled poller goroutine; it is the only writer that
// races with doorbell-send readers of the registry, and both take the
// registry's mutex for every mutation.
func (c *Connection) Poll() (PollEvent, status.Status) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.opts.timeout())); err != nil {
		return PollEvent{}, status.Of(status.ErrorSettingTimeoutOnUnixSocket, err)
	}

	pkt, st := wire.Read(c.conn)
	if !st.IsOK() {
		return PollEvent{}, st
	}

	switch pkt.Outcome {
	case wire.Timeout:
		return PollEvent{}, status.New(status.PollServerTimeout, 0)

	case wire.Payload:
		v := pkt.Value
		if v < 0 || v > 0xFFFF {
			return PollEvent{}, status.New(status.PeerInvalid, 0)
		}
		peerID := uint16(v)
		c.reg.Lock()
		peer, ok := c.reg.RemoveLocked(peerID)
		c.reg.Unlock()
		if !ok {
			return PollEvent{}, status.New(status.PeerDoesntExist, 0)
		}
		for _, fd := range peer.VectorFDs {
			if fd >= 0 {
				_ = unix.Close(fd)
			}
		}
		return PollEvent{Peer: peerID, Vector: -1}, status.Ok

	case wire.PayloadWithFD:
		v := pkt.Value
		if v < 0 || v > 0xFFFF {
			_ = unix.Close(pkt.FD)
			return PollEvent{}, status.New(status.PeerInvalid, 0)
		}
		peerID := uint16(v)

		c.reg.Lock()
		defer c.reg.Unlock()

		peer, _ := c.reg.GetOrCreateLocked(peerID)
		if peer.DenyNewVectors {
			_ = unix.Close(pkt.FD)
			return PollEvent{}, status.New(status.Err, 0)
		}

		newVectors, st := appendVector(peer.VectorFDs, pkt.FD)
		if !st.IsOK() {
			peer.DenyNewVectors = true
			_ = unix.Close(pkt.FD)
			return PollEvent{}, st
		}
		peer.VectorFDs = newVectors
		return PollEvent{Peer: peerID, Vector: int32(len(peer.VectorFDs))}, status.Ok
	}

	return PollEvent{}, status.New(status.Err, 0)
}

// appendVector mirrors the original's allocate-copy-free growth of a peer's
// vector array: a new array of size old+1 is built, the old entries copied
// in, and the new descriptor appended. In Go this is simply append, but the
// allocation-failure path is preserved in shape: an out-of-memory condition
// here can only come from the Go runtime itself, surfaced as a recovered
// panic so the deny_new_vectors stickiness rule still applies.
func appendVector(existing []int, fd int) (result []int, st status.Status) {
	defer func() {
		if r := recover(); r != nil {
			st = status.New(status.OutOfMemory, 0)
		}
	}()
	grown := make([]int, len(existing)+1)
	copy(grown, existing)
	grown[len(existing)] = fd
	return grown, status.Ok
}
