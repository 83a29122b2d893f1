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

package timing

import (
	"math"
	"testing"
)

func TestSpeedScoreBounds(t *testing.T) {
	const limit = 10000
	if got := SpeedScore(0, limit); got != 1 {
		t.Fatalf("t=0 must score 1, got %v", got)
	}
	if got := SpeedScore(limit, limit); got != 0 {
		t.Fatalf("t=L must score 0, got %v", got)
	}
	if got := SpeedScore(limit*3, limit); got != 0 {
		t.Fatalf("t>L must clamp to 0, got %v", got)
	}
	if got := SpeedScore(-500, limit); got != 1 {
		t.Fatalf("negative time must clamp to 1, got %v", got)
	}
	if got := SpeedScore(100, 0); got != 0 {
		t.Fatalf("zero limit must score 0, got %v", got)
	}
	if got := SpeedScore(4000, limit); math.Abs(got-0.6) > 1e-12 {
		t.Fatalf("4000/10000 must score 0.6, got %v", got)
	}
}

func TestSpeedScoreMonotone(t *testing.T) {
	const limit = 7000
	prev := 2.0
	for ms := int64(-100); ms <= limit+500; ms += 37 {
		s := SpeedScore(ms, limit)
		if s < 0 || s > 1 {
			t.Fatalf("score out of range at %d: %v", ms, s)
		}
		if s > prev {
			t.Fatalf("score increased at %d: %v > %v", ms, s, prev)
		}
		prev = s
	}
}

func TestSecondsSavedBonus(t *testing.T) {
	cases := []struct {
		answer int64
		want   int
	}{
		{6500, 6},
		{0, 20},
		{9999, 0},
		{10000, 0},
		{15000, 0},
		{-10, 20},
	}
	for _, tc := range cases {
		if got := SecondsSavedBonus(tc.answer, 10000, 2); got != tc.want {
			t.Errorf("SecondsSavedBonus(%d) = %d, want %d", tc.answer, got, tc.want)
		}
	}
	if got := SecondsSavedBonus(1000, 10000, 0); got != 0 {
		t.Fatalf("zero rate must give 0")
	}
}

func TestLerpAndTier(t *testing.T) {
	if got := Lerp(10, 20, 0.5); got != 15 {
		t.Fatalf("Lerp mid = %v", got)
	}
	if got := Lerp(10, 20, 7); got != 20 {
		t.Fatalf("Lerp clamps high, got %v", got)
	}
	if got := Lerp(10, 20, math.NaN()); got != 10 {
		t.Fatalf("Lerp NaN = %v", got)
	}
	tiers := map[float64]Tier{1: Lightning, 0.8: Lightning, 0.6: Fast, 0.1: Normal, 0: Slow}
	for s, want := range tiers {
		if got := BonusTier(s); got != want {
			t.Errorf("BonusTier(%v) = %s, want %s", s, got, want)
		}
	}
}
