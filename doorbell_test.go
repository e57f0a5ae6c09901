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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/AlexanderSchuetz97/Ivshmem4j/internal/registry"
	"github.com/AlexanderSchuetz97/Ivshmem4j/status"
)

func eventfdPair(t *testing.T) (a, b int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestSendReceiveInterruptRoundTrip(t *testing.T) {
	senderSide, receiverSide := eventfdPair(t)

	sender := &Connection{
		self: Self{PeerID: 1},
		reg:  registry.New(),
		opts: Options{ReceiveTimeout: 500 * time.Millisecond},
	}
	require.True(t, sender.reg.Add(&registry.Peer{ID: 2, VectorFDs: []int{senderSide}}))

	receiver := &Connection{
		self: Self{PeerID: 2, VectorFDs: []int{receiverSide}},
		reg:  registry.New(),
		opts: Options{ReceiveTimeout: 500 * time.Millisecond},
	}

	st := sender.SendInterrupt(2, 0)
	require.True(t, st.IsOK(), "SendInterrupt failed: %v", st)

	interrupts, st := receiver.ReceiveInterrupt()
	require.True(t, st.IsOK(), "ReceiveInterrupt failed: %v", st)
	require.Len(t, interrupts, 1)
	require.Equal(t, 0, interrupts[0].Vector)
}

func TestSendInterruptRejectsSelf(t *testing.T) {
	c := &Connection{self: Self{PeerID: 1}, reg: registry.New()}
	st := c.SendInterrupt(1, 0)
	require.True(t, st.Is(status.InterruptCantSelfInterrupt))
}

func TestSendInterruptUnknownPeer(t *testing.T) {
	c := &Connection{self: Self{PeerID: 1}, reg: registry.New()}
	st := c.SendInterrupt(9, 0)
	require.True(t, st.Is(status.PeerDoesntExist))
}

func TestSendInterruptVectorTooBig(t *testing.T) {
	c := &Connection{self: Self{PeerID: 1}, reg: registry.New()}
	require.True(t, c.reg.Add(&registry.Peer{ID: 2, VectorFDs: []int{}}))

	st := c.SendInterrupt(2, 0)
	require.True(t, st.Is(status.InterruptVectorTooBig))
}

func TestReceiveInterruptNoVectors(t *testing.T) {
	c := &Connection{self: Self{PeerID: 1}, reg: registry.New(), opts: Options{ReceiveTimeout: 50 * time.Millisecond}}
	_, st := c.ReceiveInterrupt()
	require.True(t, st.Is(status.InterruptReceiveNoVectors))
}

func TestReceiveInterruptTimesOut(t *testing.T) {
	_, receiverSide := eventfdPair(t)
	c := &Connection{
		self: Self{PeerID: 1, VectorFDs: []int{receiverSide}},
		reg:  registry.New(),
		opts: Options{ReceiveTimeout: 50 * time.Millisecond},
	}
	_, st := c.ReceiveInterrupt()
	require.True(t, st.Is(status.InterruptTimeout))
}
