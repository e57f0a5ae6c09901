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

package status

import (
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOkIsZeroValue(t *testing.T) {
	var s Status
	require.True(t, s.IsOK())
	assert.Equal(t, Ok, s)
	assert.Equal(t, "OK", s.Error())
}

func TestNewCarriesKindAndDetail(t *testing.T) {
	s := New(CmpxchgFailed, 7)
	assert.False(t, s.IsOK())
	assert.True(t, s.Is(CmpxchgFailed))
	assert.Equal(t, int32(7), s.Detail())
	assert.Equal(t, "CMPXCHG_FAILED (errno 7)", s.Error())
}

func TestOfExtractsErrno(t *testing.T) {
	s := Of(ReadError, syscall.EINVAL)
	assert.True(t, s.Is(ReadError))
	assert.Equal(t, int32(syscall.EINVAL), s.Detail())
}

func TestOfNilErrorHasZeroDetail(t *testing.T) {
	s := Of(ReadError, nil)
	assert.Equal(t, int32(0), s.Detail())
}

func TestKindStringFallsBackForUnknownValues(t *testing.T) {
	k := Kind(9999)
	assert.Contains(t, k.String(), "KIND(9999)")
}
