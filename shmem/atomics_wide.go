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

import "sync/atomic"

// Xchg32 atomically stores v at *ptr and returns the previous value.
func Xchg32(ptr *uint32, v uint32) uint32 { return atomic.SwapUint32(ptr, v) }

// Xadd32 atomically adds v to *ptr and returns the previous value.
func Xadd32(ptr *uint32, v uint32) uint32 { return atomic.AddUint32(ptr, v) - v }

// Cas32 atomically sets *ptr to update if it currently holds expect.
func Cas32(ptr *uint32, expect, update uint32) bool {
	return atomic.CompareAndSwapUint32(ptr, expect, update)
}

// Xchg64 atomically stores v at *ptr and returns the previous value.
func Xchg64(ptr *uint64, v uint64) uint64 { return atomic.SwapUint64(ptr, v) }

// Xadd64 atomically adds v to *ptr and returns the previous value.
func Xadd64(ptr *uint64, v uint64) uint64 { return atomic.AddUint64(ptr, v) - v }

// Cas64 atomically sets *ptr to update if it currently holds expect.
func Cas64(ptr *uint64, expect, update uint64) bool {
	return atomic.CompareAndSwapUint64(ptr, expect, update)
}
