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

package factory

import (
	"fmt"
	"maps"
	"math"
	"time"

	"github.com/zintix-labs/quizlab/sdk/reward"
	"github.com/zintix-labs/quizlab/sdk/timing"
)

const modeName = "factory"

// State 是單一玩家的工廠。guard 失敗時不會修改任何欄位。
type State struct {
	Cash        int            `json:"cash"`
	Levels      map[string]int `json:"levels"`
	Carry       float64        `json:"carry"`
	LastAccrual time.Time      `json:"last_accrual"`
	Produced    int            `json:"produced"`
	Lumps       int            `json:"lumps"`
}

// Clone 深拷貝，Levels 不共用。
func (st *State) Clone() *State {
	cp := *st
	cp.Levels = maps.Clone(st.Levels)
	return &cp
}

// AccrueDelta 是一次 tick 的入帳。
type AccrueDelta struct {
	ElapsedSec float64 `json:"elapsed_sec"`
	Gained     int     `json:"gained"`
	Carry      float64 `json:"carry"`
}

type ShopDelta struct {
	Key   string `json:"key"`
	Cost  int    `json:"cost"`
	Level int    `json:"level"`
}

func NewState(s *Setting, now time.Time) *State {
	return &State{Cash: s.StartCash, Levels: make(map[string]int, len(s.Machines)), LastAccrual: now}
}

// Production = Σ rate × level × elapsedSec（未取整）。
func Production(levels map[string]int, catalog []Machine, elapsedSec float64) float64 {
	if elapsedSec <= 0 {
		return 0
	}
	total := 0.0
	for _, m := range catalog {
		total += m.Rate * float64(levels[m.Key]) * elapsedSec
	}
	return total
}

// Accrue 把 LastAccrual 到 now 的產出入帳；小數部分留在 Carry 下次再算。
// 有經過時間就推進 LastAccrual，即使取整後 Gained 為 0 仍回傳成功。
func Accrue(st *State, s *Setting, now time.Time) reward.Outcome {
	elapsed := now.Sub(st.LastAccrual).Seconds()
	if elapsed <= 0 {
		return reward.Noop(modeName, "no time elapsed")
	}
	st.LastAccrual = now
	total := st.Carry + Production(st.Levels, s.Machines, elapsed)
	gained := int(math.Floor(total))
	st.Carry = total - float64(gained)
	st.Cash += gained
	st.Produced += gained
	d := AccrueDelta{ElapsedSec: elapsed, Gained: gained, Carry: st.Carry}
	return reward.Of(modeName, reward.KindCash, fmt.Sprintf("produced +%d", gained), d).With(float64(gained), "")
}

// LumpReward = base + floor(base × SpeedScore)；與產能無關。
func LumpReward(base int, answerMs, limitMs int64) int {
	return base + int(math.Floor(float64(base)*timing.SpeedScore(answerMs, limitMs)))
}

// GrantLump 答對入帳一筆 lump reward。
func GrantLump(st *State, s *Setting, answerMs, limitMs int64) reward.Outcome {
	amt := LumpReward(s.LumpBase, answerMs, limitMs)
	st.Cash += amt
	st.Lumps++
	tier := timing.BonusTier(timing.SpeedScore(answerMs, limitMs))
	return reward.Of(modeName, reward.KindCash, fmt.Sprintf("lump +%d", amt), amt).With(float64(amt), string(tier))
}

// UpgradeCost 是由 level 升到 level+1 的價格；level 0 即購買價。
func UpgradeCost(m Machine, level int) int {
	if level == 0 {
		return m.Cost
	}
	return m.UpgradeCost * level
}

// Buy 購買一台尚未擁有的機台。
func Buy(st *State, s *Setting, key string) reward.Outcome {
	m, ok := s.machine(key)
	if !ok {
		return reward.Noop(modeName, "unknown machine "+key)
	}
	if st.Levels[key] > 0 {
		return reward.Noop(modeName, m.Name+" already owned")
	}
	return levelUp(st, m, 0)
}

// Upgrade 升級已擁有的機台。
func Upgrade(st *State, s *Setting, key string) reward.Outcome {
	m, ok := s.machine(key)
	if !ok {
		return reward.Noop(modeName, "unknown machine "+key)
	}
	lv := st.Levels[key]
	if lv == 0 {
		return reward.Noop(modeName, m.Name+" not owned")
	}
	if lv >= m.MaxLevel {
		return reward.Noop(modeName, m.Name+" is max level")
	}
	return levelUp(st, m, lv)
}

func levelUp(st *State, m Machine, lv int) reward.Outcome {
	cost := UpgradeCost(m, lv)
	if st.Cash < cost {
		return reward.Noop(modeName, "not enough cash")
	}
	st.Cash -= cost
	st.Levels[m.Key] = lv + 1
	d := ShopDelta{Key: m.Key, Cost: cost, Level: lv + 1}
	return reward.Of(modeName, reward.KindUpgrade, fmt.Sprintf("%s lv%d", m.Name, lv+1), d).With(float64(-cost), "")
}
