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
	"time"

	"golang.org/x/sys/unix"

	"github.com/AlexanderSchuetz97/Ivshmem4j/internal/registry"
	"github.com/AlexanderSchuetz97/Ivshmem4j/shmem"
	"github.com/AlexanderSchuetz97/Ivshmem4j/status"
	"github.com/AlexanderSchuetz97/Ivshmem4j/wire"
)

const magicAllOnes = int64(-1) // 0xFFFFFFFFFFFFFFFF read back as a signed int64

// Connect dials the ivshmem server at opts.SocketPath and drives the
// handshake state machine of spec §4.E to completion: version check,
// self-id negotiation, shared-memory descriptor adoption, and peer/vector
// table drain terminated by the server's receive-timeout. Any failure
// unwinds all partial state (closed descriptors, unmapped region, closed
// socket) before returning.
func Connect(opts Options) (*Connection, status.Status) {
	if len(opts.SocketPath) > MaxSocketPathLen {
		return nil, status.New(status.InvalidDevicePath, 0)
	}

	conn, st := dial(opts.SocketPath)
	if !st.IsOK() {
		return nil, st
	}

	if err := conn.SetReadDeadline(time.Now().Add(opts.timeout())); err != nil {
		_ = conn.Close()
		return nil, status.Of(status.ErrorSettingTimeoutOnUnixSocket, err)
	}

	hs := &handshakeState{
		conn:          conn,
		reg:           registry.New(),
		timeout:       opts.timeout(),
		shmemFD:       -1,
		currentPeerID: -1,
	}

	if st := hs.run(); !st.IsOK() {
		hs.unwind()
		return nil, st
	}

	return &Connection{
		conn:    conn,
		mapping: hs.mapping,
		self:    hs.self,
		reg:     hs.reg,
		opts:    opts,
	}, status.Ok
}

func dial(path string) (*net.UnixConn, status.Status) {
	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return nil, status.Of(status.ErrorCreatingUnixSocket, err)
	}
	conn, err := net.DialUnix("unix", nil, addr)
	if err != nil {
		return nil, status.Of(status.ErrorConnectingUnixSocket, err)
	}
	return conn, status.Ok
}

// handshakeState is scratch state local to one Connect call. Registry
// population during the drain calls GetOrCreateLocked and RemoveLocked
// without taking the registry mutex, per spec §4.F: no other goroutine can
// observe the registry yet.
type handshakeState struct {
	conn    *net.UnixConn
	reg     *registry.Registry
	timeout time.Duration
	self    Self
	mapping *shmem.Mapping

	shmemFD int

	// currentPeerID/currentPeer track the "consecutive packets naming the
	// same peer append to that peer's list" grouping rule of §4.E state 4.
	currentPeerID int64
	currentPeer   *registry.Peer // nil when the current group is self
}

func (hs *handshakeState) read() (wire.Packet, status.Status) {
	return wire.Read(hs.conn)
}

func (hs *handshakeState) run() status.Status {
	if st := hs.awaitVersion(); !st.IsOK() {
		return st
	}
	if st := hs.awaitSelfID(); !st.IsOK() {
		return st
	}
	if st := hs.awaitShmemDescriptor(); !st.IsOK() {
		return st
	}
	if st := hs.drainPeerTable(); !st.IsOK() {
		return st
	}

	hs.self.recomputeHighestFD()

	mapping, st := shmem.FromDescriptor(hs.shmemFD)
	if !st.IsOK() {
		return st
	}
	hs.mapping = mapping
	return status.Ok
}

func (hs *handshakeState) awaitVersion() status.Status {
	pkt, st := hs.read()
	if !st.IsOK() {
		return st
	}
	if pkt.Outcome != wire.Payload || pkt.Value != 0 {
		return status.New(status.UnknownProtocolVersion, 0)
	}
	return status.Ok
}

func (hs *handshakeState) awaitSelfID() status.Status {
	pkt, st := hs.read()
	if !st.IsOK() {
		return st
	}
	if pkt.Outcome != wire.Payload || pkt.Value < 0 || pkt.Value > 0xFFFF {
		return status.New(status.PeerInvalid, 0)
	}
	hs.self.PeerID = uint16(pkt.Value)
	return status.Ok
}

func (hs *handshakeState) awaitShmemDescriptor() status.Status {
	pkt, st := hs.read()
	if !st.IsOK() {
		return st
	}
	if pkt.Outcome != wire.PayloadWithFD {
		return status.New(status.FDMissing, 0)
	}
	if pkt.Value != magicAllOnes {
		return status.New(status.UnexpectedPacket, 0)
	}
	hs.shmemFD = pkt.FD
	return status.Ok
}

func (hs *handshakeState) drainPeerTable() status.Status {
	for {
		pkt, st := hs.read()
		if !st.IsOK() {
			return st
		}

		switch pkt.Outcome {
		case wire.Timeout:
			// No explicit end-of-table marker exists; the receive timeout
			// is the signal that the table is complete.
			return status.Ok

		case wire.Payload:
			// A disconnect notification.
			v := pkt.Value
			if v < 0 || v > 0xFFFF {
				return status.New(status.PeerInvalid, 0)
			}
			peerID := uint16(v)
			if peerID == hs.self.PeerID {
				return status.New(status.OwnPeerClosed, 0)
			}
			if _, ok := hs.reg.RemoveLocked(peerID); !ok {
				return status.New(status.ClosedUnknownPeer, 0)
			}
			// A disconnect mid-drain terminates the handshake successfully.
			return status.Ok

		case wire.PayloadWithFD:
			v := pkt.Value
			if v < 0 || v > 0xFFFF {
				_ = unix.Close(pkt.FD)
				return status.New(status.PeerInvalid, 0)
			}
			peerID := uint16(v)
			if peerID == hs.self.PeerID {
				hs.self.VectorFDs = append(hs.self.VectorFDs, pkt.FD)
				hs.currentPeerID = int64(peerID)
				hs.currentPeer = nil
				continue
			}
			if hs.currentPeer == nil || hs.currentPeerID != int64(peerID) {
				peer, created := hs.reg.GetOrCreateLocked(peerID)
				if !created && peer == nil {
					_ = unix.Close(pkt.FD)
					return status.New(status.DuplicatePeer, 0)
				}
				hs.currentPeer = peer
				hs.currentPeerID = int64(peerID)
			}
			hs.currentPeer.VectorFDs = append(hs.currentPeer.VectorFDs, pkt.FD)
		}
	}
}

// unwind closes every descriptor accumulated so far and the socket itself,
// on a handshake failure. Registry peers own their own vector fds; we close
// them by iterating the registry we were populating.
func (hs *handshakeState) unwind() {
	if hs.shmemFD >= 0 {
		_ = unix.Close(hs.shmemFD)
	}
	for _, fd := range hs.self.VectorFDs {
		_ = unix.Close(fd)
	}
	hs.reg.IterateAndRemove(func(p *registry.Peer) bool {
		for _, fd := range p.VectorFDs {
			_ = unix.Close(fd)
		}
		return true
	})
	_ = hs.conn.Close()
}
