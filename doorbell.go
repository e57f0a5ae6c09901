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
	"encoding/binary"

	"golang.org/x/sys/unix"

	"github.com/AlexanderSchuetz97/Ivshmem4j/status"
)

const interruptPacketValue uint64 = 1

// SendInterrupt rings peer's vector-th doorbell: a fixed 8-byte value of 1
// written to the peer's vector descriptor, per spec §4.H. Self-interrupt is
// rejected outright; everything else is resolved under the registry mutex
// so the lookup and the fd it yields stay consistent with concurrent
// poller mutation.
func (c *Connection) SendInterrupt(peer uint16, vector uint16) status.Status {
	if peer == c.self.PeerID {
		return status.New(status.InterruptCantSelfInterrupt, 0)
	}

	c.reg.Lock()
	defer c.reg.Unlock()

	// Get would take the mutex a second time; look the peer up with the
	// Locked helpers instead and drop the entry if the lookup created it.
	p, created := c.reg.GetOrCreateLocked(peer)
	if created {
		c.reg.RemoveLocked(peer)
		return status.New(status.PeerDoesntExist, 0)
	}
	if int(vector) >= len(p.VectorFDs) {
		return status.New(status.InterruptVectorTooBig, 0)
	}

	fd := p.VectorFDs[vector]
	if fd < 0 {
		return status.New(status.InterruptVectorClosed, 0)
	}

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], interruptPacketValue)
	n, err := unix.Write(fd, buf[:])
	if err != nil || n != len(buf) {
		return status.Of(status.InterruptSendError, err)
	}
	return status.Ok
}

// Interrupt names one vector that became readable during ReceiveInterrupt.
type Interrupt struct {
	Vector int
}

// ReceiveInterrupt multiplex-waits on every one of self's vector
// descriptors using select(2), mirroring pollInterrupt() in the original
// client (see DESIGN.md): a 2-second default timeout, EINTR folded into
// InterruptTimeout with the errno recorded as detail, and one 8-byte read
// attempted per descriptor select marked ready. A descriptor that was ready
// but didn't yield a full 8-byte read is silently skipped, exactly as the
// original does; InterruptReceiveError is only returned if nothing at all
// yielded a full read despite select reporting readiness.
func (c *Connection) ReceiveInterrupt() ([]Interrupt, status.Status) {
	if len(c.self.VectorFDs) == 0 {
		return nil, status.New(status.InterruptReceiveNoVectors, 0)
	}

	var set unix.FdSet
	highest := 0
	for _, fd := range c.self.VectorFDs {
		if fd < 0 {
			continue
		}
		set.Set(fd)
		if fd > highest {
			highest = fd
		}
	}

	timeout := unix.Timeval{
		Sec:  int64(c.opts.timeout() / 1e9),
		Usec: int64((c.opts.timeout() % 1e9) / 1e3),
	}

	n, err := unix.Select(highest+1, &set, nil, nil, &timeout)
	if n == 0 && err == nil {
		return nil, status.New(status.InterruptTimeout, 0)
	}
	if err != nil {
		if err == unix.EINTR {
			return nil, status.New(status.InterruptTimeout, int32(unix.EINTR))
		}
		return nil, status.Of(status.InterruptReceiveError, err)
	}

	var ready []Interrupt
	var buf [8]byte
	for i, fd := range c.self.VectorFDs {
		if fd < 0 || !set.IsSet(fd) {
			continue
		}
		rn, rerr := unix.Read(fd, buf[:])
		if rerr != nil || rn != len(buf) {
			continue
		}
		ready = append(ready, Interrupt{Vector: i})
	}

	if len(ready) == 0 {
		return nil, status.New(status.InterruptReceiveError, 0)
	}
	return ready, status.Ok
}
