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

// Package wire implements the ivshmem server wire codec: a fixed 8-byte
// big-endian signed integer payload, optionally accompanied by exactly one
// ancillary file descriptor (SCM_RIGHTS).
package wire

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"time"

	"github.com/bytedance/gopkg/lang/span"
	"golang.org/x/sys/unix"

	"github.com/AlexanderSchuetz97/Ivshmem4j/status"
)

// PayloadSize is the fixed width of a server message, in bytes.
const PayloadSize = 8

// cmsgCache staves off a small allocation per packet read for the ancillary
// data buffer, the same pattern the teacher uses for its hot-path read
// staging buffer.
var cmsgCache = span.NewSpanCache(256)

// Outcome classifies the result of a successful Read.
type Outcome int

const (
	// Payload is an 8-byte value with no attached descriptor.
	Payload Outcome = iota
	// PayloadWithFD is an 8-byte value with exactly one attached descriptor.
	PayloadWithFD
	// Timeout means the socket receive timeout elapsed with zero bytes read.
	Timeout
)

// Packet is one decoded server message.
type Packet struct {
	Outcome Outcome
	Value   int64
	FD      int
}

// Read reads one packet from conn. An ancillary descriptor is recovered only
// when conn is a *net.UnixConn; any other net.Conn is read as plain payload
// bytes and never yields PayloadWithFD.
//
// Short reads (1..7 bytes) and zero-byte orderly closes are both reported as
// distinct errors, per the handshake's end-of-table semantics which treat
// only the *timeout* as a legitimate "no more data" signal.
func Read(conn net.Conn) (Packet, status.Status) {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return readPlain(conn)
	}
	return readUnix(uc)
}

func readPlain(conn net.Conn) (Packet, status.Status) {
	buf := make([]byte, PayloadSize)
	n, err := readFull(conn, buf)
	if n == 0 && isTimeoutErr(err) {
		return Packet{Outcome: Timeout}, status.Ok
	}
	if st, bad := classifyShortOrFailedRead(n, err); bad {
		return Packet{}, st
	}
	return Packet{Outcome: Payload, Value: decode(buf)}, status.Ok
}

func readUnix(uc *net.UnixConn) (Packet, status.Status) {
	buf := make([]byte, PayloadSize)
	oob := cmsgCache.Copy(make([]byte, unix.CmsgSpace(4)))
	defer cmsgCache.Free(oob)

	n, oobn, _, _, err := uc.ReadMsgUnix(buf, oob)
	if n == 0 && isTimeoutErr(err) {
		return Packet{Outcome: Timeout}, status.Ok
	}
	if st, bad := classifyShortOrFailedRead(n, err); bad {
		return Packet{}, st
	}

	if n < PayloadSize {
		more := make([]byte, PayloadSize-n)
		if _, err2 := readFull(uc, more); err2 != nil {
			return Packet{}, status.Of(status.ReadError, err2)
		}
		copy(buf[n:], more)
	}

	fd, hasFD, st := extractFD(oob[:oobn])
	if !st.IsOK() {
		return Packet{}, st
	}
	value := decode(buf)
	if hasFD {
		return Packet{Outcome: PayloadWithFD, Value: value, FD: fd}, status.Ok
	}
	return Packet{Outcome: Payload, Value: value}, status.Ok
}

// classifyShortOrFailedRead turns a (n, err) pair from a non-timeout read
// into a terminal Status, or reports bad=false if the caller should proceed
// to interpret the bytes read so far.
func classifyShortOrFailedRead(n int, err error) (status.Status, bool) {
	if err != nil && !errors.Is(err, io.EOF) {
		return status.Of(status.ReadError, err), true
	}
	if n == 0 {
		// Orderly close with zero bytes read: distinct from a timeout.
		return status.New(status.ReadError, 0), true
	}
	if n < PayloadSize {
		return status.New(status.PacketTooShort, 0), true
	}
	return status.Status{}, false
}

func extractFD(oob []byte) (int, bool, status.Status) {
	if len(oob) == 0 {
		return 0, false, status.Ok
	}
	cmsgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return 0, false, status.Of(status.ReadError, err)
	}
	for _, cmsg := range cmsgs {
		fds, err := unix.ParseUnixRights(&cmsg)
		if err != nil {
			continue
		}
		if len(fds) > 0 {
			return fds[0], true, status.Ok
		}
	}
	return 0, false, status.Ok
}

func isTimeoutErr(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func decode(buf []byte) int64 {
	return int64(binary.BigEndian.Uint64(buf))
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
	}
	return total, nil
}

// SetReadTimeout applies the ivshmem protocol's socket receive timeout.
func SetReadTimeout(conn net.Conn, timeout time.Duration) error {
	return conn.SetReadDeadline(time.Now().Add(timeout))
}

// EncodePacket renders a packet onto the wire, for use by scripted test
// servers driving the handshake/poller state machines.
func EncodePacket(value int64) []byte {
	buf := make([]byte, PayloadSize)
	binary.BigEndian.PutUint64(buf, uint64(value))
	return buf
}

// Rights builds SCM_RIGHTS ancillary data carrying a single descriptor, for
// use by scripted test servers.
func Rights(fd int) []byte {
	return unix.UnixRights(fd)
}
