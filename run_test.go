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

	"github.com/AlexanderSchuetz97/Ivshmem4j/internal/registry"
	"github.com/AlexanderSchuetz97/Ivshmem4j/wire"
)

func TestRunDeliversEventsToHandler(t *testing.T) {
	c, server := newTestConnection(t, 1)
	require.True(t, c.reg.Add(&registry.Peer{ID: 5, VectorFDs: []int{}}))

	events := make(chan PollEvent, 4)
	stop := c.Run(func(ev PollEvent) { events <- ev })
	defer stop()

	_, err := server.Write(wire.EncodePacket(5))
	require.NoError(t, err)

	select {
	case ev := <-events:
		require.Equal(t, uint16(5), ev.Peer)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for poll event")
	}
}
