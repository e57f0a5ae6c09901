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

//go:build amd64

package shmem

import "unsafe"

// cas128asm issues LOCK CMPXCHG16B against the 16 bytes at ptr. ptr must be
// 16-byte aligned; the caller (Mapping.CompareAndSet128) enforces this via
// its bounds/alignment check before calling in.
//
//go:noescape
func cas128asm(ptr unsafe.Pointer, expectLo, expectHi, updateLo, updateHi uint64) bool

// Cas128Supported reports whether this architecture offers a true
// hardware double-word compare-and-swap.
const Cas128Supported = true

// Cas128 atomically compares the 16 bytes at ptr against
// (expectLo, expectHi) and, on match, stores (updateLo, updateHi).
func Cas128(ptr unsafe.Pointer, expectLo, expectHi, updateLo, updateHi uint64) bool {
	return cas128asm(ptr, expectLo, expectHi, updateLo, updateHi)
}
