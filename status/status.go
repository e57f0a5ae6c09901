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

// Package status implements the dual-slot (kind, detail) result carrier
// returned by every fallible operation in this module. It is a value type,
// not an exception: core operations never panic and never return a bare
// Go error between themselves.
package status

import "fmt"

// Kind is the closed enumeration of result categories a core operation can
// report. The zero value is OK.
type Kind uint32

const (
	OK Kind = iota
	FD
	OutOfMemory
	Err
	InvalidArguments
	InvalidConnectionPointer
	BufferOutOfBounds
	MemoryOutOfBounds
	CmpxchgFailed
	OpenFailure
	InvalidDevicePath
	MutexInitError

	ErrorCreatingUnixSocket
	ErrorConnectingUnixSocket
	ErrorSettingTimeoutOnUnixSocket
	PacketTooShort
	PacketTimeout
	ReadError
	UnknownProtocolVersion
	FDMissing
	UnexpectedPacket
	PeerInvalid
	OwnPeerClosed
	ClosedUnknownPeer
	DuplicatePeer
	PeerDoesntExist
	PeerNotFound
	PollServerTimeout

	ErrorShmemFstat
	ErrorShmemMmap
	ErrorShmemFileSetSize
	ErrorMmapSizeChanged

	InterruptCantSelfInterrupt
	InterruptVectorTooBig
	InterruptVectorClosed
	InterruptSendError
	InterruptReceiveError
	InterruptReceiveNoVectors
	InterruptTimeout
	InterruptCreateEventFailure
	InterruptEventRegisterFailure

	EnumeratePCIDeviceError
	OpenPCIDeviceHandleError
	TooManyPCIDevices

	// UnsupportedOperation is not part of the original C enumeration; it
	// is the Go-native reporting of Design Note "16-byte CAS" for
	// architectures lacking a double-word compare-and-swap.
	UnsupportedOperation
)

var kindNames = [...]string{
	"OK", "FD", "OUT_OF_MEMORY", "ERROR", "INVALID_ARGUMENTS",
	"INVALID_CONNECTION_POINTER", "BUFFER_OUT_OF_BOUNDS", "MEMORY_OUT_OF_BOUNDS",
	"CMPXCHG_FAILED", "OPEN_FAILURE", "INVALID_DEVICE_PATH", "MUTEX_INIT_ERROR",
	"ERROR_CREATING_UNIX_SOCKET", "ERROR_CONNECTING_UNIX_SOCKET",
	"ERROR_SETTING_TIMEOUT_ON_UNIX_SOCKET", "PACKET_TOO_SHORT", "PACKET_TIMEOUT",
	"READ_ERROR", "UNKNOWN_PROTOCOL_VERSION", "FD_MISSING", "UNEXPECTED_PACKET",
	"PEER_INVALID", "OWN_PEER_CLOSED", "CLOSED_UNKNOWN_PEER", "DUPLICATE_PEER",
	"PEER_DOESNT_EXIST", "PEER_NOT_FOUND", "POLL_SERVER_TIMEOUT",
	"ERROR_SHMEM_FSTAT", "ERROR_SHMEM_MMAP", "ERROR_SHMEM_FILE_SET_SIZE",
	"ERROR_MMAP_SIZE_CHANGED",
	"INTERRUPT_CANT_SELF_INTERRUPT", "INTERRUPT_VECTOR_TOO_BIG",
	"INTERRUPT_VECTOR_CLOSED", "INTERRUPT_SEND_ERROR", "INTERRUPT_RECEIVE_ERROR",
	"INTERRUPT_RECEIVE_NO_VECTORS", "INTERRUPT_TIMEOUT",
	"INTERRUPT_CREATE_EVENT_FAILURE", "INTERRUPT_EVENT_REGISTER_FAILURE",
	"ENUMERATE_PCI_DEVICE_ERROR", "OPEN_PCI_DEVICE_HANDLE_ERROR",
	"TOO_MANY_PCI_DEVICES", "UNSUPPORTED_OPERATION",
}

// String returns the canonical name of k, or a numeric fallback for values
// outside the known enumeration.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("KIND(%d)", uint32(k))
}

// Status is the 64-bit (kind, detail) carrier. detail, when non-zero, is
// typically the OS errno captured at the point of failure.
type Status struct {
	kind   Kind
	detail int32
}

// Ok is the zero-value success status.
var Ok = Status{}

// New combines kind and detail into a Status.
func New(kind Kind, detail int32) Status {
	return Status{kind: kind, detail: detail}
}

// Of combines kind with an OS errno-ish error's numeric value, 0 if err is
// nil or not representable.
func Of(kind Kind, err error) Status {
	return Status{kind: kind, detail: errnoOf(err)}
}

// Kind extracts the category.
func (s Status) Kind() Kind { return s.kind }

// Detail extracts the OS errno or context-specific subcode.
func (s Status) Detail() int32 { return s.detail }

// IsOK reports whether s is the success status.
func (s Status) IsOK() bool { return s.kind == OK }

// Is reports whether s carries the given kind, ignoring detail.
func (s Status) Is(kind Kind) bool { return s.kind == kind }

// Error implements the error interface so a Status can be handed to ordinary
// Go error-handling code at an application boundary without a second
// translation layer.
func (s Status) Error() string {
	if s.IsOK() {
		return "OK"
	}
	if s.detail != 0 {
		return fmt.Sprintf("%s (errno %d)", s.kind, s.detail)
	}
	return s.kind.String()
}
