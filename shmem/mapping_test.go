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
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromDescriptorAdoptsFstatSize(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "ivshmem-fd-*")
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.Truncate(4096))

	m, st := FromDescriptor(int(f.Fd()))
	require.True(t, st.IsOK(), "FromDescriptor failed: %v", st)
	defer m.Close()

	assert.Equal(t, int64(4096), m.Len())
}

func TestFromDescriptorRejectsEmptyFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "ivshmem-fd-empty-*")
	require.NoError(t, err)
	defer f.Close()

	_, st := FromDescriptor(int(f.Fd()))
	assert.False(t, st.IsOK())
}

func TestMappingCloseIsSafeOnce(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "ivshmem-fd-close-*")
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.Truncate(4096))

	m, st := FromDescriptor(int(f.Fd()))
	require.True(t, st.IsOK())

	assert.True(t, m.Close().IsOK())
	assert.True(t, m.Closed())
}
