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

//go:build !amd64

package shmem

import "unsafe"

// Cas128Supported reports whether this architecture offers a true
// hardware double-word compare-and-swap. Per Design Note "16-byte CAS", an
// architecture without one fails fast instead of silently downgrading to a
// pair of independent single-word CAS operations, which would not be
// observably atomic to another process inspecting the same 16 bytes.
const Cas128Supported = false

// Cas128 always fails on architectures without a hardware double-word CAS.
// Callers must check Cas128Supported and report status.UnsupportedOperation
// instead of calling this.
func Cas128(ptr unsafe.Pointer, expectLo, expectHi, updateLo, updateHi uint64) bool {
	return false
}
