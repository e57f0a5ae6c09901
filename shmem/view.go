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

package shmem

import (
	"math"
	"unsafe"

	"github.com/AlexanderSchuetz97/Ivshmem4j/status"
)

// checkRange validates offset+n against the mapping length and against
// overflow, per §4.B: both `offset+n > length` and `offset >= length` are
// checked (the second rejects a zero-length write at the one-past-end
// point).
func (m *Mapping) checkRange(offset uint64, n uint64) status.Status {
	length := uint64(m.length)
	// offset >= length is rejected unconditionally, even for a zero-length
	// write at the one-past-end point; MemsetRange's documented zero-length
	// fast path bypasses this function entirely instead of weakening it.
	if offset >= length {
		return status.New(status.MemoryOutOfBounds, 0)
	}
	end := offset + n
	if end < offset {
		return status.New(status.MemoryOutOfBounds, 0) // overflow
	}
	if end > length {
		return status.New(status.MemoryOutOfBounds, 0)
	}
	return status.Ok
}

// ptrAt returns a pointer to offset within the mapping. Caller must have
// already validated the range.
func (m *Mapping) ptrAt(offset uint64) unsafe.Pointer {
	return unsafe.Add(m.base, offset)
}

// WriteBytes copies buf into the mapping at offset, ordinary (non-atomic)
// memcpy semantics.
func (m *Mapping) WriteBytes(offset uint64, buf []byte) status.Status {
	if st := m.checkRange(offset, uint64(len(buf))); !st.IsOK() {
		return st
	}
	if len(buf) == 0 {
		return status.Ok
	}
	dst := unsafe.Slice((*byte)(m.ptrAt(offset)), len(buf))
	copy(dst, buf)
	return status.Ok
}

// ReadBytes copies n bytes from the mapping at offset into buf[:n]. buf must
// be at least n bytes long or BUFFER_OUT_OF_BOUNDS is returned.
func (m *Mapping) ReadBytes(offset uint64, buf []byte, n uint64) status.Status {
	if uint64(len(buf)) < n {
		return status.New(status.BufferOutOfBounds, 0)
	}
	if st := m.checkRange(offset, n); !st.IsOK() {
		return st
	}
	if n == 0 {
		return status.Ok
	}
	src := unsafe.Slice((*byte)(m.ptrAt(offset)), n)
	copy(buf[:n], src)
	return status.Ok
}

// MemsetRange fills n bytes starting at offset with the given byte value.
func (m *Mapping) MemsetRange(offset uint64, b byte, n uint64) status.Status {
	if n == 0 {
		return status.Ok
	}
	if st := m.checkRange(offset, n); !st.IsOK() {
		return st
	}
	dst := unsafe.Slice((*byte)(m.ptrAt(offset)), n)
	for i := range dst {
		dst[i] = b
	}
	return status.Ok
}

// WriteI8 stores v at offset as a single machine store.
func (m *Mapping) WriteI8(offset uint64, v int8) status.Status {
	if st := m.checkRange(offset, 1); !st.IsOK() {
		return st
	}
	*(*int8)(m.ptrAt(offset)) = v
	return status.Ok
}

// ReadI8 loads the value at offset.
func (m *Mapping) ReadI8(offset uint64) (int8, status.Status) {
	if st := m.checkRange(offset, 1); !st.IsOK() {
		return 0, st
	}
	return *(*int8)(m.ptrAt(offset)), status.Ok
}

// WriteI16 stores v at offset as a single machine store.
func (m *Mapping) WriteI16(offset uint64, v int16) status.Status {
	if st := m.checkRange(offset, 2); !st.IsOK() {
		return st
	}
	*(*int16)(m.ptrAt(offset)) = v
	return status.Ok
}

// ReadI16 loads the value at offset.
func (m *Mapping) ReadI16(offset uint64) (int16, status.Status) {
	if st := m.checkRange(offset, 2); !st.IsOK() {
		return 0, st
	}
	return *(*int16)(m.ptrAt(offset)), status.Ok
}

// WriteI32 stores v at offset as a single machine store.
func (m *Mapping) WriteI32(offset uint64, v int32) status.Status {
	if st := m.checkRange(offset, 4); !st.IsOK() {
		return st
	}
	*(*int32)(m.ptrAt(offset)) = v
	return status.Ok
}

// ReadI32 loads the value at offset.
func (m *Mapping) ReadI32(offset uint64) (int32, status.Status) {
	if st := m.checkRange(offset, 4); !st.IsOK() {
		return 0, st
	}
	return *(*int32)(m.ptrAt(offset)), status.Ok
}

// WriteI64 stores v at offset as a single machine store.
func (m *Mapping) WriteI64(offset uint64, v int64) status.Status {
	if st := m.checkRange(offset, 8); !st.IsOK() {
		return st
	}
	*(*int64)(m.ptrAt(offset)) = v
	return status.Ok
}

// ReadI64 loads the value at offset.
func (m *Mapping) ReadI64(offset uint64) (int64, status.Status) {
	if st := m.checkRange(offset, 8); !st.IsOK() {
		return 0, st
	}
	return *(*int64)(m.ptrAt(offset)), status.Ok
}

// WriteF32 stores v at offset as a single machine store.
func (m *Mapping) WriteF32(offset uint64, v float32) status.Status {
	return m.WriteI32(offset, int32(math.Float32bits(v)))
}

// ReadF32 loads the value at offset.
func (m *Mapping) ReadF32(offset uint64) (float32, status.Status) {
	v, st := m.ReadI32(offset)
	return math.Float32frombits(uint32(v)), st
}

// WriteF64 stores v at offset as a single machine store.
func (m *Mapping) WriteF64(offset uint64, v float64) status.Status {
	return m.WriteI64(offset, int64(math.Float64bits(v)))
}

// ReadF64 loads the value at offset.
func (m *Mapping) ReadF64(offset uint64) (float64, status.Status) {
	v, st := m.ReadI64(offset)
	return math.Float64frombits(uint64(v)), st
}

// GetAndSetU8 atomically stores v at offset and returns the pre-image.
func (m *Mapping) GetAndSetU8(offset uint64, v uint8) (uint8, status.Status) {
	if st := m.checkRange(offset, 1); !st.IsOK() {
		return 0, st
	}
	return Xchg8((*uint8)(m.ptrAt(offset)), v), status.Ok
}

// GetAndAddU8 atomically adds v to the value at offset and returns the
// pre-image.
func (m *Mapping) GetAndAddU8(offset uint64, v uint8) (uint8, status.Status) {
	if st := m.checkRange(offset, 1); !st.IsOK() {
		return 0, st
	}
	return Xadd8((*uint8)(m.ptrAt(offset)), v), status.Ok
}

// CompareAndSetU8 atomically sets the value at offset to update if it
// currently equals expect.
func (m *Mapping) CompareAndSetU8(offset uint64, expect, update uint8) status.Status {
	if st := m.checkRange(offset, 1); !st.IsOK() {
		return st
	}
	if !Cas8((*uint8)(m.ptrAt(offset)), expect, update) {
		return status.New(status.CmpxchgFailed, 0)
	}
	return status.Ok
}

// GetAndSetU16 atomically stores v at offset and returns the pre-image.
func (m *Mapping) GetAndSetU16(offset uint64, v uint16) (uint16, status.Status) {
	if st := m.checkRange(offset, 2); !st.IsOK() {
		return 0, st
	}
	return Xchg16((*uint16)(m.ptrAt(offset)), v), status.Ok
}

// GetAndAddU16 atomically adds v to the value at offset and returns the
// pre-image.
func (m *Mapping) GetAndAddU16(offset uint64, v uint16) (uint16, status.Status) {
	if st := m.checkRange(offset, 2); !st.IsOK() {
		return 0, st
	}
	return Xadd16((*uint16)(m.ptrAt(offset)), v), status.Ok
}

// CompareAndSetU16 atomically sets the value at offset to update if it
// currently equals expect.
func (m *Mapping) CompareAndSetU16(offset uint64, expect, update uint16) status.Status {
	if st := m.checkRange(offset, 2); !st.IsOK() {
		return st
	}
	if !Cas16((*uint16)(m.ptrAt(offset)), expect, update) {
		return status.New(status.CmpxchgFailed, 0)
	}
	return status.Ok
}

// GetAndSetU32 atomically stores v at offset and returns the pre-image.
func (m *Mapping) GetAndSetU32(offset uint64, v uint32) (uint32, status.Status) {
	if st := m.checkRange(offset, 4); !st.IsOK() {
		return 0, st
	}
	return Xchg32((*uint32)(m.ptrAt(offset)), v), status.Ok
}

// GetAndAddU32 atomically adds v to the value at offset and returns the
// pre-image.
func (m *Mapping) GetAndAddU32(offset uint64, v uint32) (uint32, status.Status) {
	if st := m.checkRange(offset, 4); !st.IsOK() {
		return 0, st
	}
	return Xadd32((*uint32)(m.ptrAt(offset)), v), status.Ok
}

// CompareAndSetU32 atomically sets the value at offset to update if it
// currently equals expect.
func (m *Mapping) CompareAndSetU32(offset uint64, expect, update uint32) status.Status {
	if st := m.checkRange(offset, 4); !st.IsOK() {
		return st
	}
	if !Cas32((*uint32)(m.ptrAt(offset)), expect, update) {
		return status.New(status.CmpxchgFailed, 0)
	}
	return status.Ok
}

// GetAndSetU64 atomically stores v at offset and returns the pre-image.
func (m *Mapping) GetAndSetU64(offset uint64, v uint64) (uint64, status.Status) {
	if st := m.checkRange(offset, 8); !st.IsOK() {
		return 0, st
	}
	return Xchg64((*uint64)(m.ptrAt(offset)), v), status.Ok
}

// GetAndAddU64 atomically adds v to the value at offset and returns the
// pre-image.
func (m *Mapping) GetAndAddU64(offset uint64, v uint64) (uint64, status.Status) {
	if st := m.checkRange(offset, 8); !st.IsOK() {
		return 0, st
	}
	return Xadd64((*uint64)(m.ptrAt(offset)), v), status.Ok
}

// CompareAndSetU64 atomically sets the value at offset to update if it
// currently equals expect.
func (m *Mapping) CompareAndSetU64(offset uint64, expect, update uint64) status.Status {
	if st := m.checkRange(offset, 8); !st.IsOK() {
		return st
	}
	if !Cas64((*uint64)(m.ptrAt(offset)), expect, update) {
		return status.New(status.CmpxchgFailed, 0)
	}
	return status.Ok
}

// CompareAndSet128 performs a 16-byte compare-and-swap at offset. expect and
// update together occupy 32 bytes: [expectLo, expectHi, updateLo, updateHi],
// each a little-endian uint64.
func (m *Mapping) CompareAndSet128(offset uint64, expectLo, expectHi, updateLo, updateHi uint64) status.Status {
	if !Cas128Supported {
		return status.New(status.UnsupportedOperation, 0)
	}
	if st := m.checkRange(offset, 16); !st.IsOK() {
		return st
	}
	if offset%16 != 0 {
		return status.New(status.InvalidArguments, 0)
	}
	if !Cas128(m.ptrAt(offset), expectLo, expectHi, updateLo, updateHi) {
		return status.New(status.CmpxchgFailed, 0)
	}
	return status.Ok
}
