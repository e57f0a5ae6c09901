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

package wire

import (
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReadPlainPayload(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		_, _ = server.Write(EncodePacket(42))
	}()

	pkt, st := Read(client)
	require.True(t, st.IsOK())
	require.Equal(t, Payload, pkt.Outcome)
	require.Equal(t, int64(42), pkt.Value)
}

func TestReadTimeout(t *testing.T) {
	addr, err := net.ResolveUnixAddr("unix", socketPath(t))
	require.NoError(t, err)

	ln, err := net.ListenUnix("unix", addr)
	require.NoError(t, err)
	defer ln.Close()
	defer os.Remove(addr.Name)

	accepted := make(chan *net.UnixConn, 1)
	go func() {
		c, err := ln.AcceptUnix()
		require.NoError(t, err)
		accepted <- c
	}()

	client, err := net.DialUnix("unix", nil, addr)
	require.NoError(t, err)
	defer client.Close()
	<-accepted

	require.NoError(t, client.SetReadDeadline(time.Now().Add(50*time.Millisecond)))
	pkt, st := Read(client)
	require.True(t, st.IsOK())
	require.Equal(t, Timeout, pkt.Outcome)
}

func TestReadUnixPayloadWithFD(t *testing.T) {
	addr, err := net.ResolveUnixAddr("unix", socketPath(t))
	require.NoError(t, err)

	ln, err := net.ListenUnix("unix", addr)
	require.NoError(t, err)
	defer ln.Close()
	defer os.Remove(addr.Name)

	serverConns := make(chan *net.UnixConn, 1)
	go func() {
		c, err := ln.AcceptUnix()
		require.NoError(t, err)
		serverConns <- c
	}()

	client, err := net.DialUnix("unix", nil, addr)
	require.NoError(t, err)
	defer client.Close()

	server := <-serverConns
	defer server.Close()

	pipeR, pipeW, err := os.Pipe()
	require.NoError(t, err)
	defer pipeR.Close()
	defer pipeW.Close()

	oob := Rights(int(pipeR.Fd()))
	_, _, err = server.WriteMsgUnix(EncodePacket(-1), oob, nil)
	require.NoError(t, err)

	pkt, st := Read(client)
	require.True(t, st.IsOK())
	require.Equal(t, PayloadWithFD, pkt.Outcome)
	require.Equal(t, int64(-1), pkt.Value)
	require.Greater(t, pkt.FD, 0)
}

func socketPath(t *testing.T) string {
	return t.TempDir() + "/wire-test.sock"
}
