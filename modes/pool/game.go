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
	"sort"
	"time"

	"github.com/zintix-labs/quizlab/sdk/mode"
	"github.com/zintix-labs/quizlab/sdk/reward"
	"github.com/zintix-labs/quizlab/spec"
)

const LogicKey spec.LogicKey = "pool"

func Register(reg *mode.LogicRegistry) error {
	return reg.Register(LogicKey, Build)
}

type Game struct {
	h        *mode.Host
	s        *Setting
	shooters []*Shooter
	byID     map[string]*Shooter
}

func Build(h *mode.Host) (mode.Logic, error) {
	s, err := LoadSetting(h.ModeSetting)
	if err != nil {
		return nil, err
	}
	return &Game{h: h, s: s, byID: map[string]*Shooter{}}, nil
}

func (g *Game) Start(players []mode.Player, _ time.Time) {
	g.shooters = make([]*Shooter, 0, len(players))
	g.byID = make(map[string]*Shooter, len(players))
	for _, p := range players {
		sh := &Shooter{ID: p.ID, Name: p.Name, Ball: Rack(g.s)}
		g.shooters = append(g.shooters, sh)
		g.byID[p.ID] = sh
	}
}

func (g *Game) stamp(o reward.Outcome) reward.Outcome {
	o.Mode = g.h.ModeName
	return o
}

func (g *Game) Resolve(a mode.Answer, _ time.Time) reward.Outcome {
	sh, ok := g.byID[a.PlayerID]
	if !ok {
		return g.stamp(reward.Noop("", "unknown player"))
	}
	if !a.IsCorrect {
		return g.stamp(BreakStreak(sh))
	}
	return g.stamp(ChargeShot(g.s, sh, a.AnswerTimeMs, a.TimeLimitMs))
}

// Act 只支援 shoot（Angle 為弧度）。
func (g *Game) Act(a mode.Action, _ time.Time) reward.Outcome {
	sh, ok := g.byID[a.PlayerID]
	if !ok {
		return g.stamp(reward.Noop("", "unknown player"))
	}
	if a.Name != mode.ActShoot {
		return g.stamp(reward.Noop("", "unknown action "+a.Name).By(sh.ID, ""))
	}
	return g.stamp(Shoot(g.h.Core, g.s, sh, a.Angle))
}

func (g *Game) Tick(time.Time) []reward.Outcome { return nil }

func (g *Game) Standings() []mode.Standing {
	out := make([]mode.Standing, 0, len(g.shooters))
	for _, sh := range g.shooters {
		out = append(out, mode.Standing{PlayerID: sh.ID, Name: sh.Name, Score: sh.Score, Alive: true})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func (g *Game) Snapshot() any {
	ss := make([]Shooter, len(g.shooters))
	for i, sh := range g.shooters {
		ss[i] = *sh
	}
	return struct {
		Pockets  [6]Point  `json:"pockets"`
		Shooters []Shooter `json:"shooters"`
	}{g.s.Table().Pockets(), ss}
}

func (g *Game) Finished() (bool, string) { return false, "" }

func (g *Game) Shooter(id string) (*Shooter, bool) {
	sh, ok := g.byID[id]
	return sh, ok
}

// AutoAction 蓄力後瞄準最近的袋口出桿。
func (g *Game) AutoAction(pid string, _ time.Time) (mode.Action, bool) {
	sh, ok := g.byID[pid]
	if !ok || !sh.Charged {
		return mode.Action{}, false
	}
	return mode.Action{PlayerID: pid, Name: mode.ActShoot, Angle: AimNearest(sh.Ball, g.s.Table())}, true
}
