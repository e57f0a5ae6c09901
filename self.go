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

// Package ivshmem is an inter-VM / inter-process shared-memory interconnect
// client speaking the QEMU "ivshmem-doorbell" protocol: it connects to an
// ivshmem server over a local stream socket, negotiates identity, receives
// the shared-memory descriptor and the peer/vector table, and then tracks
// join/leave/new-vector events while exposing a bounds-checked atomic view
// over the mapped region and a doorbell send/receive primitive.
//
// This module never implements the server side of the protocol.
package ivshmem

// Self is the local peer's identity: its id, its own vector descriptors
// (never entered in the registry), and the highest-numbered descriptor,
// cached for the doorbell-receive multiplex-wait primitive.
type Self struct {
	PeerID    uint16
	VectorFDs []int
	HighestFD int
}

func (s *Self) recomputeHighestFD() {
	highest := -1
	for _, fd := range s.VectorFDs {
		if fd > highest {
			highest = fd
		}
	}
	s.HighestFD = highest
}
