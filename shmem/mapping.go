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

// Package shmem is the typed, bounds-checked atomic view over a mapped
// shared-memory region, plus the two ways of obtaining one: adopting a
// descriptor handed over by an ivshmem server during handshake, or
// open-or-creating a plain backing file.
package shmem

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/AlexanderSchuetz97/Ivshmem4j/status"
)

// Mapping is a single mmap'd shared region. The zero value is not usable;
// construct one with FromDescriptor or OpenPlain.
type Mapping struct {
	base   unsafe.Pointer
	data   []byte
	length int64
	fd     int
	// ownsFD is true when Close should also close fd (plain mode opens its
	// own fd; the doorbell-descriptor shape is handed an fd it still owns,
	// since the spec's connection exclusively owns every resource it holds).
	ownsFD bool
	closed int32
	mu     sync.Mutex
}

// FromDescriptor maps the shared region described by fd, adopting its
// current size as reported by fstat. This is the server-descriptor shape of
// §4.C.
func FromDescriptor(fd int) (*Mapping, status.Status) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, status.Of(status.ErrorShmemFstat, err)
	}
	return mapFD(fd, st.Size, true)
}

// OpenPlain implements the plain (file-backed, no doorbell) shape of §4.C:
// open-or-create path with permissive mode; if the file is empty, extend it
// to preferredSize by writing a single trailing zero byte; otherwise adopt
// the file's existing size.
func OpenPlain(path string, preferredSize int64) (*Mapping, status.Status) {
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_RDWR, 0666)
	if err != nil {
		return nil, status.Of(status.OpenFailure, err)
	}

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		_ = unix.Close(fd)
		return nil, status.Of(status.ErrorShmemFstat, err)
	}

	size := st.Size
	if size == 0 {
		size = preferredSize
		if _, err := unix.Seek(fd, size-1, unix.SEEK_SET); err != nil {
			_ = unix.Close(fd)
			return nil, status.Of(status.ErrorShmemFileSetSize, err)
		}
		if _, err := unix.Write(fd, []byte{0}); err != nil {
			_ = unix.Close(fd)
			return nil, status.Of(status.ErrorShmemFileSetSize, err)
		}
	}

	return mapFD(fd, size, true)
}

func mapFD(fd int, size int64, ownsFD bool) (*Mapping, status.Status) {
	if size <= 0 {
		if ownsFD {
			_ = unix.Close(fd)
		}
		return nil, status.New(status.ErrorShmemMmap, 0)
	}
	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		if ownsFD {
			_ = unix.Close(fd)
		}
		return nil, status.Of(status.ErrorShmemMmap, err)
	}
	return &Mapping{
		base:   unsafe.Pointer(&data[0]),
		data:   data,
		length: int64(len(data)),
		fd:     fd,
		ownsFD: ownsFD,
	}, status.Ok
}

// Len returns the mapped region's byte length. Immutable after mapping.
func (m *Mapping) Len() int64 { return m.length }

// FD returns the descriptor backing this mapping.
func (m *Mapping) FD() int { return m.fd }

// Closed reports whether MarkClosed has been called. It is advisory only:
// per §4.B, other operations are not themselves gated by it.
func (m *Mapping) Closed() bool { return atomic.LoadInt32(&m.closed) != 0 }

// MarkClosed sets the closed flag. It transitions false->true exactly once;
// subsequent calls are no-ops.
func (m *Mapping) MarkClosed() { atomic.StoreInt32(&m.closed, 1) }

// Close unmaps the region and, if this Mapping owns its descriptor, closes
// it, and sets the closed flag. A second call finds the region already
// unmapped and returns OK without doing anything else.
func (m *Mapping) Close() status.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MarkClosed()
	if m.data == nil {
		return status.Ok
	}
	data := m.data
	m.data = nil
	m.base = nil
	if err := unix.Munmap(data); err != nil {
		return status.Of(status.ErrorShmemMmap, err)
	}
	if m.ownsFD {
		if err := unix.Close(m.fd); err != nil {
			return status.Of(status.FD, err)
		}
	}
	return status.Ok
}
