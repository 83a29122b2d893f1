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

package racing

import (
	"fmt"
	"math"
	"time"

	"github.com/zintix-labs/quizlab/sdk/core"
	"github.com/zintix-labs/quizlab/sdk/reward"
	"github.com/zintix-labs/quizlab/sdk/sampler"
)

// Racer 是單一玩家的賽道狀態。
type Racer struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Position     int           `json:"position"`
	Correct      int           `json:"correct"`
	Finished     bool          `json:"finished"`
	Rank         int           `json:"rank,omitempty"`
	Shield       bool          `json:"shield"`
	FrozenUntil  time.Time     `json:"frozen_until"`
	SpeedMult    float64       `json:"speed_mult"`
	SpeedCharges int           `json:"speed_charges"`
	Held         *ItemInstance `json:"held,omitempty"`
}

// ItemInstance 是抽出的道具實例。
type ItemInstance struct {
	ID string `json:"id"`
	Item
}

// MoveDelta 是移動結果。
type MoveDelta struct {
	From     int           `json:"from"`
	To       int           `json:"to"`
	Steps    int           `json:"steps"`
	Finished bool          `json:"finished"`
	Drawn    *ItemInstance `json:"drawn,omitempty"`
}

// EffectDelta 是道具效果結果。
type EffectDelta struct {
	Item    ItemInstance   `json:"item"`
	Targets []string       `json:"targets"`
	Moves   map[string]int `json:"moves,omitempty"` // playerID -> 新位置
}

// IsFrozen 回報 now 是否仍在冰凍中。
func (r *Racer) IsFrozen(now time.Time) bool {
	return now.Before(r.FrozenUntil)
}

// MoveSteps = base_step + floor(score × speed_steps)。
//
// 例：score=0.6、speed_steps=5 → 1 + 3 = 4。
func MoveSteps(s *Setting, score float64) int {
	if math.IsNaN(score) || score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return s.BaseStep + int(math.Floor(score*float64(s.SpeedSteps)))
}

// boosted 套用加速倍率並消耗一次加速次數。
func boosted(r *Racer, steps int) int {
	if r.SpeedCharges <= 0 || r.SpeedMult <= 0 {
		return steps
	}
	r.SpeedCharges--
	out := int(math.Floor(float64(steps) * r.SpeedMult))
	if r.SpeedCharges == 0 {
		r.SpeedMult = 0
	}
	return out
}

// moveTo 把玩家移到 pos，夾在 [0, track]；抵達終點時給名次。
func moveTo(r *Racer, pos, track int, nextRank func() int) {
	if pos < 0 {
		pos = 0
	}
	if pos >= track {
		pos = track
		if !r.Finished {
			r.Finished = true
			r.Rank = nextRank()
		}
	}
	r.Position = pos
}

// ResolveCorrect 處理答對：前進，並在每 item_every 題時抽道具。
func ResolveCorrect(c *core.Core, s *Setting, r *Racer, score float64, newID func() string, nextRank func() int) reward.Outcome {
	steps := boosted(r, MoveSteps(s, score))
	from := r.Position
	moveTo(r, from+steps, s.TrackLength, nextRank)
	r.Correct++

	d := MoveDelta{From: from, To: r.Position, Steps: r.Position - from, Finished: r.Finished}
	msg := fmt.Sprintf("moved %d", d.Steps)
	if s.ItemEvery > 0 && r.Correct%s.ItemEvery == 0 && !r.Finished {
		if it, ok := DrawItem(c, s, newID); ok {
			r.Held = &it
			d.Drawn = &it
			msg += ", got " + it.Name
		}
	}
	kind := reward.KindMove
	if d.Finished {
		kind = reward.KindFinish
	}
	return reward.Of("racing", kind, msg, d).By(r.ID, "").With(float64(d.Steps), "")
}

// ResolveMiss 處理答錯：有護盾則消耗護盾，否則後退 miss_penalty（不低於 0）。
func ResolveMiss(s *Setting, r *Racer) reward.Outcome {
	if r.Shield {
		r.Shield = false
		return reward.Of("racing", reward.KindItem, "shield blocked the miss", MoveDelta{From: r.Position, To: r.Position}).By(r.ID, "")
	}
	from := r.Position
	to := max(0, from-s.MissPenalty)
	r.Position = to
	d := MoveDelta{From: from, To: to, Steps: to - from}
	return reward.Of("racing", reward.KindPenalty, fmt.Sprintf("moved back %d", from-to), d).By(r.ID, "").With(float64(to-from), "")
}

// DrawItem 兩段式抽道具：Bands 決定稀有度，子池內均勻抽樣；子池全空時回傳 false。
func DrawItem(c *core.Core, s *Setting, newID func() string) (ItemInstance, bool) {
	tier := s.Bands.Roll(c)
	it, _, ok := sampler.PickTiered(c, tier, s.order, s.pools)
	if !ok {
		return ItemInstance{}, false
	}
	return ItemInstance{ID: newID(), Item: it}, true
}

// SelectTarget 依 target 選出作用對象。
//
//   - self：行動者本人。
//   - opponent：隨機一位未完賽的非行動者。
//   - leader：未完賽非行動者中位置最高者（同分取先加入者）。
//   - all：所有未完賽的非行動者。
//
// 沒有任何符合條件的對手時回傳 nil，不視為錯誤。
func SelectTarget(c *core.Core, racers []*Racer, actorID string, target Target) []*Racer {
	var actor *Racer
	opp := make([]*Racer, 0, len(racers))
	for _, r := range racers {
		if r.ID == actorID {
			actor = r
			continue
		}
		if !r.Finished {
			opp = append(opp, r)
		}
	}
	switch target {
	case TargetSelf:
		if actor == nil {
			return nil
		}
		return []*Racer{actor}
	case TargetOpponent:
		if len(opp) == 0 {
			return nil
		}
		return []*Racer{opp[c.IntN(len(opp))]}
	case TargetLeader:
		if len(opp) == 0 {
			return nil
		}
		lead := opp[0]
		for _, r := range opp[1:] {
			if r.Position > lead.Position {
				lead = r
			}
		}
		return []*Racer{lead}
	case TargetAll:
		if len(opp) == 0 {
			return nil
		}
		return opp
	}
	return nil
}

// ApplyItemEffect 對 actor 使用道具 it。
//
// 需要對手的效果在沒有對手時回傳 no-op；未知效果亦為 no-op。
func ApplyItemEffect(c *core.Core, s *Setting, racers []*Racer, actor *Racer, it ItemInstance, now time.Time, nextRank func() int) reward.Outcome {
	noop := func(msg string) reward.Outcome {
		return reward.Noop("racing", msg).By(actor.ID, "")
	}
	targets := SelectTarget(c, racers, actor.ID, it.Target)
	if len(targets) == 0 {
		return noop("no target for " + it.Name)
	}
	d := EffectDelta{Item: it, Moves: map[string]int{}}
	for _, t := range targets {
		d.Targets = append(d.Targets, t.ID)
	}

	switch it.Effect {
	case EffectSpeed:
		actor.SpeedMult = it.Amount
		actor.SpeedCharges = max(1, it.Charges)
	case EffectShield:
		actor.Shield = true
	case EffectTeleport:
		lead := targets[0]
		if lead.Position <= actor.Position {
			return noop("already leading")
		}
		moveTo(actor, lead.Position, s.TrackLength, nextRank)
		d.Moves[actor.ID] = actor.Position
	case EffectFreeze:
		until := now.Add(time.Duration(it.DurationMs) * time.Millisecond)
		for _, t := range targets {
			t.FrozenUntil = until
		}
	case EffectSwap:
		t := targets[0]
		if t.Position <= actor.Position {
			return noop("already leading")
		}
		actor.Position, t.Position = t.Position, actor.Position
		d.Moves[actor.ID] = actor.Position
		d.Moves[t.ID] = t.Position
	case EffectKnockback:
		back := int(it.Amount)
		for _, t := range targets {
			t.Position = max(0, t.Position-back)
			d.Moves[t.ID] = t.Position
		}
	case EffectRocket:
		moveTo(actor, actor.Position+int(it.Amount), s.TrackLength, nextRank)
		d.Moves[actor.ID] = actor.Position
	default:
		return noop(fmt.Sprintf("unknown effect %q", it.Effect))
	}

	out := reward.Of("racing", reward.KindItem, fmt.Sprintf("used %s", it.Name), d).With(it.Amount, it.Tier)
	return out.By(actor.ID, d.Targets[0])
}
