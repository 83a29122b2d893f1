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
	"sort"
	"time"

	"github.com/zintix-labs/quizlab/sdk/mode"
	"github.com/zintix-labs/quizlab/sdk/reward"
	"github.com/zintix-labs/quizlab/sdk/timing"
	"github.com/zintix-labs/quizlab/spec"
)

const LogicKey spec.LogicKey = "racing"

// Register 把競速邏輯註冊到 reg。
func Register(reg *mode.LogicRegistry) error {
	return reg.Register(LogicKey, Build)
}

// Game 是競速模式的狀態容器。
type Game struct {
	h       *mode.Host
	s       *Setting
	racers  []*Racer
	byID    map[string]*Racer
	finishN int
}

// Build 是 mode.LogicBuilder。
func Build(h *mode.Host) (mode.Logic, error) {
	s, err := LoadSetting(h.ModeSetting)
	if err != nil {
		return nil, err
	}
	return &Game{h: h, s: s, byID: map[string]*Racer{}}, nil
}

func (g *Game) Start(players []mode.Player, _ time.Time) {
	g.racers = make([]*Racer, 0, len(players))
	g.byID = make(map[string]*Racer, len(players))
	g.finishN = 0
	for _, p := range players {
		r := &Racer{ID: p.ID, Name: p.Name}
		g.racers = append(g.racers, r)
		g.byID[p.ID] = r
	}
}

func (g *Game) nextRank() int {
	g.finishN++
	return g.finishN
}

func (g *Game) stamp(o reward.Outcome) reward.Outcome {
	o.Mode = g.h.ModeName
	return o
}

func (g *Game) Resolve(a mode.Answer, now time.Time) reward.Outcome {
	r, ok := g.byID[a.PlayerID]
	if !ok {
		return g.stamp(reward.Noop("", "unknown player"))
	}
	if r.Finished {
		return g.stamp(reward.Noop("", "already finished").By(r.ID, ""))
	}
	if r.IsFrozen(now) {
		return g.stamp(reward.Noop("", "frozen").By(r.ID, ""))
	}
	if !a.IsCorrect {
		return g.stamp(ResolveMiss(g.s, r))
	}
	score := timing.SpeedScore(a.AnswerTimeMs, a.TimeLimitMs)
	return g.stamp(ResolveCorrect(g.h.Core, g.s, r, score, g.h.NewID, g.nextRank))
}

func (g *Game) Act(a mode.Action, now time.Time) reward.Outcome {
	if a.Name != mode.ActUseItem {
		return g.stamp(reward.Noop("", "unknown action "+a.Name))
	}
	r, ok := g.byID[a.PlayerID]
	if !ok {
		return g.stamp(reward.Noop("", "unknown player"))
	}
	if r.Held == nil {
		return g.stamp(reward.Noop("", "no item held").By(r.ID, ""))
	}
	if r.Finished || r.IsFrozen(now) {
		return g.stamp(reward.Noop("", "can not use item now").By(r.ID, ""))
	}
	it := *r.Held
	out := ApplyItemEffect(g.h.Core, g.s, g.racers, r, it, now, g.nextRank)
	if out.Success {
		r.Held = nil
	}
	return g.stamp(out)
}

// Tick 競速模式沒有時間驅動事件。
func (g *Game) Tick(time.Time) []reward.Outcome { return nil }

func (g *Game) Standings() []mode.Standing {
	out := make([]mode.Standing, 0, len(g.racers))
	for _, r := range g.racers {
		out = append(out, mode.Standing{
			PlayerID: r.ID,
			Name:     r.Name,
			Score:    r.Position,
			Position: r.Position,
			Rank:     r.Rank,
			Alive:    true,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Rank, out[j].Rank
		if ri > 0 || rj > 0 {
			if ri == 0 {
				return false
			}
			if rj == 0 {
				return true
			}
			return ri < rj
		}
		return out[i].Position > out[j].Position
	})
	return out
}

// Snapshot 回傳目前賽道的深拷貝。
func (g *Game) Snapshot() any {
	rs := make([]Racer, len(g.racers))
	for i, r := range g.racers {
		rs[i] = *r
		if r.Held != nil {
			h := *r.Held
			rs[i].Held = &h
		}
	}
	return struct {
		TrackLength int     `json:"track_length"`
		Racers      []Racer `json:"racers"`
	}{g.s.TrackLength, rs}
}

func (g *Game) Finished() (bool, string) {
	if len(g.racers) == 0 {
		return false, ""
	}
	if g.s.FinishOnFirst && g.finishN > 0 {
		return true, "first finisher"
	}
	if g.finishN == len(g.racers) {
		return true, "all finished"
	}
	return false, ""
}

// Racer 回傳玩家狀態（測試與模擬用）。
func (g *Game) Racer(id string) (*Racer, bool) {
	r, ok := g.byID[id]
	return r, ok
}
