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

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddGetRemove(t *testing.T) {
	r := New()
	ok := r.Add(&Peer{ID: 5, VectorFDs: []int{10, 11}})
	require.True(t, ok)

	p, found := r.Get(5)
	require.True(t, found)
	assert.Equal(t, uint16(5), p.ID)
	assert.Equal(t, []int{10, 11}, p.VectorFDs)

	_, removed := r.Remove(5)
	require.True(t, removed)

	_, found = r.Get(5)
	assert.False(t, found)
}

func TestAddRejectsDuplicateID(t *testing.T) {
	r := New()
	require.True(t, r.Add(&Peer{ID: 1}))
	assert.False(t, r.Add(&Peer{ID: 1}))
}

func TestGetOrCreateLocked(t *testing.T) {
	r := New()
	r.Lock()
	defer r.Unlock()

	p1, created1 := r.GetOrCreateLocked(3)
	require.True(t, created1)

	p2, created2 := r.GetOrCreateLocked(3)
	require.False(t, created2)
	assert.Same(t, p1, p2)
}

func TestResizeKeepsAllEntries(t *testing.T) {
	r := New()
	const n = 200
	for i := uint16(0); i < n; i++ {
		require.True(t, r.Add(&Peer{ID: i}))
	}
	assert.Equal(t, n, r.Len())
	for i := uint16(0); i < n; i++ {
		_, ok := r.Get(i)
		assert.True(t, ok, "id %d missing after resize", i)
	}
}

func TestIterateAndRemove(t *testing.T) {
	r := New()
	for i := uint16(0); i < 5; i++ {
		require.True(t, r.Add(&Peer{ID: i}))
	}

	var seen []uint16
	r.IterateAndRemove(func(p *Peer) bool {
		seen = append(seen, p.ID)
		return p.ID%2 == 0
	})

	assert.Len(t, seen, 5)
	assert.Equal(t, 2, r.Len())
}

func TestSnapshot(t *testing.T) {
	r := New()
	require.True(t, r.Add(&Peer{ID: 1}))
	require.True(t, r.Add(&Peer{ID: 2}))
	assert.ElementsMatch(t, []uint16{1, 2}, r.Snapshot())
}
