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

// Package timing 把作答耗時轉成 [0,1] 的速度分數與離散加成。
package timing

import "math"

// SpeedScore = max(0, 1 - answer/limit)，夾在 [0,1]。
//
//   - limitMs <= 0：沒有時限可比較，回傳 0。
//   - answerMs < 0：視為 0（立即作答），回傳 1。
//   - answerMs >= limitMs：回傳 0。
func SpeedScore(answerMs, limitMs int64) float64 {
	if limitMs <= 0 {
		return 0
	}
	if answerMs < 0 {
		answerMs = 0
	}
	s := 1 - float64(answerMs)/float64(limitMs)
	return clamp01(s)
}

// SecondsSavedBonus 在 answerMs < underMs 時，每省下一整秒給 perSecond 分。
//
// 例：underMs=10000、perSecond=2、answerMs=6500 → 省下 3 整秒 → 6 分。
func SecondsSavedBonus(answerMs, underMs int64, perSecond int) int {
	if perSecond <= 0 || underMs <= 0 {
		return 0
	}
	if answerMs < 0 {
		answerMs = 0
	}
	if answerMs >= underMs {
		return 0
	}
	return perSecond * int((underMs-answerMs)/1000)
}

// Lerp 在 [lo,hi] 之間線性插值，t 會先夾到 [0,1]。
func Lerp(lo, hi, t float64) float64 {
	return lo + (hi-lo)*clamp01(t)
}

// Tier 是速度分數的離散分級，用於訊息與統計。
type Tier string

const (
	Lightning Tier = "lightning"
	Fast      Tier = "fast"
	Normal    Tier = "normal"
	Slow      Tier = "slow"
)

// BonusTier 把速度分數分桶：>=0.8 lightning、>=0.5 fast、>0 normal、其餘 slow。
func BonusTier(score float64) Tier {
	switch {
	case score >= 0.8:
		return Lightning
	case score >= 0.5:
		return Fast
	case score > 0:
		return Normal
	default:
		return Slow
	}
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
