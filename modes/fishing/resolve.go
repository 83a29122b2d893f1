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

package fishing

import (
	"math"

	"github.com/zintix-labs/quizlab/sdk/core"
	"github.com/zintix-labs/quizlab/sdk/sampler"
	"github.com/zintix-labs/quizlab/sdk/timing"
)

// Catch 是抓到的娃娃實例。
type Catch struct {
	ID     string `json:"id"`
	Key    string `json:"key"`
	Name   string `json:"name"`
	Tier   string `json:"tier"`
	Value  int    `json:"value"`
	Frenzy bool   `json:"frenzy"`
}

// Result 是一次夾娃娃的結果。
//
// WillFail 保留在型別上但永遠為 false：目前每一次下爪都會成功。
type Result struct {
	Success  bool  `json:"success"`
	WillFail bool  `json:"will_fail"`
	Rank     int   `json:"rank"`
	Catch    Catch `json:"catch"`
}

// SpeedMultiplier = 0.5 + 0.5 × speedScore，落在 [0.5, 1]。
func SpeedMultiplier(answerMs, limitMs int64) float64 {
	return 0.5 + 0.5*timing.SpeedScore(answerMs, limitMs)
}

// ClampRank 把等級夾到 [1, MaxRank]。
func ClampRank(s *Setting, rank int) int {
	return max(1, min(rank, s.MaxRank()))
}

// RankFor 依累積答對數回傳已解鎖的最高等級。
func RankFor(s *Setting, correct int) int {
	rank := 1
	for i, need := range s.Unlocks {
		if correct >= need {
			rank = i + 1
		}
	}
	return rank
}

// DrawTier 依等級權重抽一個稀有度。
func DrawTier(c *core.Core, s *Setting, rank int) string {
	row := s.Ranks[ClampRank(s, rank)-1]
	idx := sampler.Select(c, row)
	if idx < 0 {
		return s.Tiers[0]
	}
	return s.Tiers[idx]
}

// TryFishing 下爪一次：先依等級抽稀有度，再在該稀有度中均勻抽娃娃，
// value = floor(min + (max-min) × m)，frenzy 時再乘上 frenzy_mult。
func TryFishing(c *core.Core, s *Setting, answerMs, limitMs int64, rank int, frenzy bool, newID func() string) Result {
	rank = ClampRank(s, rank)
	tier := DrawTier(c, s, rank)
	doll, got, ok := sampler.PickTiered(c, tier, s.order, s.pools)
	if !ok {
		// init 已保證至少一隻娃娃
		return Result{Success: true, Rank: rank}
	}
	m := SpeedMultiplier(answerMs, limitMs)
	value := int(math.Floor(float64(doll.Min) + float64(doll.Max-doll.Min)*m))
	if frenzy {
		value *= s.FrenzyMult
	}
	return Result{
		Success: true,
		Rank:    rank,
		Catch: Catch{
			ID:     newID(),
			Key:    doll.Key,
			Name:   doll.Name,
			Tier:   got,
			Value:  value,
			Frenzy: frenzy,
		},
	}
}
