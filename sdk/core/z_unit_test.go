// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"bytes"
	"io"
	"math"
	"slices"
	"testing"
)

func TestCoreDeterminism(t *testing.T) {
	c1 := New(Default().New(7))
	c2 := New(Default().New(7))
	for i := 0; i < 5; i++ {
		if c1.Uint64() != c2.Uint64() {
			t.Fatalf("Uint64 mismatch at %d", i)
		}
	}
	if c1.IntN(10) != c2.IntN(10) {
		t.Fatalf("IntN mismatch")
	}
	if c1.UintN(10) != c2.UintN(10) {
		t.Fatalf("UintN mismatch")
	}
}

func TestCorePickAndShuffle(t *testing.T) {
	c := New(Default().New(9))
	if got := c.Pick(nil); got != -1 {
		t.Fatalf("expected -1 for empty pick, got %d", got)
	}

	src := []int{1, 2, 3, 4}
	c.ShuffleInts(src)
	got := slices.Clone(src)
	slices.Sort(got)
	if !slices.Equal([]int{1, 2, 3, 4}, got) {
		t.Fatalf("shuffle changed elements: %v", src)
	}
}

func TestIntNBounds(t *testing.T) {
	c := New(Default().New(3))
	if got := c.IntN(0); got != -1 {
		t.Fatalf("IntN(0) = %d, want -1", got)
	}
	if got := c.UintN(0); got != 0 {
		t.Fatalf("UintN(0) = %d, want 0", got)
	}
	for i := 0; i < 10000; i++ {
		if v := c.IntN(7); v < 0 || v >= 7 {
			t.Fatalf("IntN out of range: %d", v)
		}
		if f := c.Float64(); f < 0 || f >= 1 {
			t.Fatalf("Float64 out of range: %v", f)
		}
	}
}

func TestExpFloat64Deterministic(t *testing.T) {
	c1 := New(Default().New(11))
	c2 := New(Default().New(11))
	v1 := c1.ExpFloat64()
	v2 := c2.ExpFloat64()
	if v1 != v2 {
		t.Fatalf("expected deterministic ExpFloat64")
	}
	if v1 <= 0 || math.IsNaN(v1) || math.IsInf(v1, 0) {
		t.Fatalf("unexpected ExpFloat64 value: %v", v1)
	}
}

func TestChanceEdges(t *testing.T) {
	c := New(Default().New(5))
	before, _ := c.Snapshot()
	if c.Chance(0) || c.Chance(-1) || c.Chance(math.NaN()) {
		t.Fatalf("Chance(<=0) must be false")
	}
	if !c.Chance(1) || !c.Chance(2) {
		t.Fatalf("Chance(>=1) must be true")
	}
	after, _ := c.Snapshot()
	if !bytes.Equal(before, after) {
		t.Fatalf("edge probabilities must not consume the stream")
	}

	hits := 0
	for i := 0; i < 20000; i++ {
		if c.Chance(0.25) {
			hits++
		}
	}
	if rate := float64(hits) / 20000; math.Abs(rate-0.25) > 0.02 {
		t.Fatalf("Chance(0.25) rate %.3f", rate)
	}
}

func TestRanges(t *testing.T) {
	c := New(Default().New(21))
	if got := c.FloatRange(3, 3); got != 3 {
		t.Fatalf("FloatRange degenerate = %v", got)
	}
	if got := c.IntRange(5, 2); got != 5 {
		t.Fatalf("IntRange inverted = %v", got)
	}
	seen := map[int]bool{}
	for i := 0; i < 1000; i++ {
		v := c.IntRange(1, 3)
		if v < 1 || v > 3 {
			t.Fatalf("IntRange out of range: %d", v)
		}
		seen[v] = true
	}
	if len(seen) != 3 {
		t.Fatalf("IntRange must reach both ends, saw %v", seen)
	}
}

func TestSnapshotRestore(t *testing.T) {
	c := New(Default().New(42))
	c.Uint64()
	snap, err := c.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	want := []uint64{c.Uint64(), c.Uint64(), c.Uint64()}
	if err := c.Restore(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}
	for i, w := range want {
		if got := c.Uint64(); got != w {
			t.Fatalf("restored stream mismatch at %d", i)
		}
	}
}

func TestReaderDeterministic(t *testing.T) {
	a := New(Default().New(99)).Reader()
	b := New(Default().New(99)).Reader()
	ba := make([]byte, 21)
	bb := make([]byte, 21)
	if _, err := io.ReadFull(a, ba); err != nil {
		t.Fatal(err)
	}
	if _, err := io.ReadFull(b, bb); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(ba, bb) {
		t.Fatalf("reader must follow the seed")
	}
}
