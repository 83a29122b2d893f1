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

package pool

import (
	"fmt"
	"math"

	"github.com/zintix-labs/quizlab/sdk/core"
	"github.com/zintix-labs/quizlab/sdk/reward"
	"github.com/zintix-labs/quizlab/sdk/timing"
)

const modeName = "pool"

// Shooter 是單一玩家的球桌狀態。
type Shooter struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Ball    Ball    `json:"ball"`
	Charged bool    `json:"charged"`
	Charge  float64 `json:"charge"`
	Streak  int     `json:"streak"`
	Score   int     `json:"score"`
	Bonus   bool    `json:"bonus"`
	Shots   int     `json:"shots"`
	Pockets int     `json:"pockets"`
}

type ChargeDelta struct {
	SpeedScore float64 `json:"speed_score"`
	Power      float64 `json:"power"`
}

type ShotDelta struct {
	Angle   float64 `json:"angle"`
	Power   float64 `json:"power"`
	Roll    Roll    `json:"roll"`
	Points  int     `json:"points"`
	Streak  int     `json:"streak"`
	Doubled bool    `json:"doubled"`
	Bonus   bool    `json:"bonus_drawn"`
}

// ShotPower = min_power + (max_power - min_power) × score。
func ShotPower(s *Setting, score float64) float64 {
	return timing.Lerp(s.MinPower, s.MaxPower, score)
}

// Rack 回傳母球的開球位置（左四分之一、垂直置中）。
func Rack(s *Setting) Ball {
	return Ball{X: s.Width / 4, Y: s.Height / 2}
}

// PocketPoints = hole_value + floor(score × speed_bonus) + streak × streak_bonus，道具生效時 ×2。
func PocketPoints(s *Setting, score float64, streak int, doubled bool) int {
	pts := s.HoleValue + int(math.Floor(score*float64(s.SpeedBonus))) + streak*s.StreakBonus
	if doubled {
		pts *= 2
	}
	return pts
}

// ChargeShot 答對蓄力；重複答對會以較新的作答速度覆蓋。
func ChargeShot(s *Setting, sh *Shooter, answerMs, limitMs int64) reward.Outcome {
	score := timing.SpeedScore(answerMs, limitMs)
	sh.Charged = true
	sh.Charge = score
	d := ChargeDelta{SpeedScore: score, Power: ShotPower(s, score)}
	return reward.Of(modeName, reward.KindCharge, fmt.Sprintf("cue ready (power %.1f)", d.Power), d).
		With(d.Power, string(timing.BonusTier(score))).By(sh.ID, "")
}

// BreakStreak 答錯歸零連進；原本就沒有連進時為 no-op。
func BreakStreak(sh *Shooter) reward.Outcome {
	if sh.Streak == 0 {
		return reward.Noop(modeName, "no streak to lose").By(sh.ID, "")
	}
	lost := sh.Streak
	sh.Streak = 0
	return reward.Of(modeName, reward.KindPenalty, fmt.Sprintf("streak of %d lost", lost), lost).By(sh.ID, "")
}

// Shoot 以 angle 出桿並模擬至進袋或靜止。
//
// 進袋：加分、連進 +1、母球回到開球點，並以 bonus_chance 抽下一次的雙倍道具；
// 未進：連進歸零，母球停在原地。未蓄力時為 no-op。
func Shoot(c *core.Core, s *Setting, sh *Shooter, angle float64) reward.Outcome {
	if !sh.Charged {
		return reward.Noop(modeName, "answer correctly to charge the cue").By(sh.ID, "")
	}
	power := ShotPower(s, sh.Charge)
	roll := RollOut(Launch(sh.Ball, angle, power), s.Table(), s.MaxSteps)
	sh.Charged = false
	sh.Shots++

	d := ShotDelta{Angle: angle, Power: power, Roll: roll}
	if roll.Pocket < 0 {
		sh.Ball = roll.Final
		sh.Ball.VX, sh.Ball.VY = 0, 0
		sh.Streak = 0
		return reward.Of(modeName, reward.KindScore, "missed", d).By(sh.ID, "")
	}

	d.Doubled = sh.Bonus
	d.Points = PocketPoints(s, sh.Charge, sh.Streak, sh.Bonus)
	sh.Bonus = false
	sh.Score += d.Points
	sh.Streak++
	sh.Pockets++
	sh.Ball = Rack(s)
	d.Streak = sh.Streak
	if c.Chance(s.BonusChance) {
		sh.Bonus = true
		d.Bonus = true
	}
	return reward.Of(modeName, reward.KindScore, fmt.Sprintf("pocket %d +%d", roll.Pocket+1, d.Points), d).
		With(float64(d.Points), "").By(sh.ID, "")
}
