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

package royale

import (
	"math"
	"time"
)

// Fighter 是單一玩家狀態。
type Fighter struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Class   string `json:"class"`
	Health  int    `json:"health"`
	Correct int    `json:"correct"`
	Giant   bool   `json:"giant"`
	Alive   bool   `json:"alive"`
	Hits    int    `json:"hits"`
	Place   int    `json:"place,omitempty"` // 淘汰名次，1 為冠軍
}

// ThrowDelta 是一次丟雪球的結果。
type ThrowDelta struct {
	Damage     float64 `json:"damage"`
	Lost       int     `json:"lost"`
	Crit       bool    `json:"crit"`
	Giant      bool    `json:"giant"`
	Healed     int     `json:"healed"`
	TargetLeft int     `json:"target_left"`
	Eliminated bool    `json:"eliminated"`
	GiantReady bool    `json:"giant_ready"`
}

// Hit 是 Damage 的輸入條件。
type Hit struct {
	Score   float64
	Crit    bool
	Giant   bool
	Elapsed time.Duration
}

// SuddenDeathMult = 1 + step × floor(elapsed / every)。
func SuddenDeathMult(s *Setting, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 1
	}
	n := math.Floor(float64(elapsed.Milliseconds()) / float64(s.SuddenDeathEveryMs))
	return 1 + s.SuddenDeathStep*n
}

// InSuddenDeath 回報是否已進入驟死階段。
func InSuddenDeath(s *Setting, elapsed time.Duration) bool {
	return elapsed.Milliseconds() >= s.SuddenDeathEveryMs
}

// Damage = base × class.damage × (1 + speed_bonus×score) × crit × giant × suddenDeath。
func Damage(s *Setting, attacker Class, h Hit) float64 {
	score := h.Score
	if math.IsNaN(score) || score < 0 {
		score = 0
	}
	d := s.BaseDamage * attacker.DamageMult * (1 + s.SpeedBonus*min(score, 1))
	if h.Crit {
		d *= s.CritMult
	}
	if h.Giant {
		d *= s.GiantMult
	}
	return d * SuddenDeathMult(s, h.Elapsed)
}

// ApplyDamage = max(0, health - floor(damage × defense))。
func ApplyDamage(health int, damage float64, target Class) int {
	if math.IsNaN(damage) || damage <= 0 {
		return max(0, health)
	}
	lost := int(math.Floor(damage * target.Defense))
	return max(0, health-lost)
}

// ApplyHeal = min(max_health, health + amount)。
func ApplyHeal(health, amount int, class Class) int {
	if amount < 0 {
		amount = 0
	}
	return min(class.MaxHealth, health+amount)
}

// HealthStep 記錄一次判定前後的體溫，供勝負判定。
type HealthStep struct {
	ID     string
	Before int
	After  int
}

// Verdict 是勝負判定結果。
type Verdict struct {
	Decided bool   `json:"decided"`
	Winner  string `json:"winner,omitempty"`
	Draw    bool   `json:"draw"`
}

// DecideWinner 依一次判定前後的體溫決定勝負。
//
//   - 恰好一位存活：該玩家獲勝。
//   - 多位存活：尚未分出勝負。
//   - 無人存活（同時淘汰）：判定前體溫最高者獲勝；最高者並列則為平手。
func DecideWinner(steps []HealthStep) Verdict {
	alive := ""
	n := 0
	for _, st := range steps {
		if st.After > 0 {
			alive = st.ID
			n++
		}
	}
	switch {
	case n == 1:
		return Verdict{Decided: true, Winner: alive}
	case n > 1:
		return Verdict{}
	}
	if len(steps) == 0 {
		return Verdict{Decided: true, Draw: true}
	}
	best, tie := steps[0], false
	for _, st := range steps[1:] {
		switch {
		case st.Before > best.Before:
			best, tie = st, false
		case st.Before == best.Before:
			tie = true
		}
	}
	if tie {
		return Verdict{Decided: true, Draw: true}
	}
	return Verdict{Decided: true, Winner: best.ID}
}
