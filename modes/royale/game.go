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
	"fmt"
	"sort"
	"time"

	"github.com/zintix-labs/quizlab/sdk/mode"
	"github.com/zintix-labs/quizlab/sdk/reward"
	"github.com/zintix-labs/quizlab/sdk/timing"
	"github.com/zintix-labs/quizlab/spec"
)

const LogicKey spec.LogicKey = "royale"

func Register(reg *mode.LogicRegistry) error {
	return reg.Register(LogicKey, Build)
}

// Game 是大逃殺的狀態容器。
type Game struct {
	h            *mode.Host
	s            *Setting
	fighters     []*Fighter
	byID         map[string]*Fighter
	startedAt    time.Time
	lastBlizzard time.Time
	verdict      Verdict
	out          int // 已淘汰人數
}

func Build(h *mode.Host) (mode.Logic, error) {
	s, err := LoadSetting(h.ModeSetting)
	if err != nil {
		return nil, err
	}
	return &Game{h: h, s: s, byID: map[string]*Fighter{}}, nil
}

// Start 依加入順序輪流分配職業。
func (g *Game) Start(players []mode.Player, now time.Time) {
	g.fighters = make([]*Fighter, 0, len(players))
	g.byID = make(map[string]*Fighter, len(players))
	g.startedAt = now
	g.lastBlizzard = now
	g.verdict = Verdict{}
	g.out = 0
	for i, p := range players {
		cls, ok := g.s.Class(p.Class)
		if !ok {
			cls = g.s.Classes[i%len(g.s.Classes)]
		}
		f := &Fighter{ID: p.ID, Name: p.Name, Class: cls.Key, Health: cls.MaxHealth, Alive: true}
		g.fighters = append(g.fighters, f)
		g.byID[p.ID] = f
	}
}

func (g *Game) noop(msg, pid string) reward.Outcome {
	return reward.Noop(g.h.ModeName, msg).By(pid, "")
}

func (g *Game) alive() []*Fighter {
	out := make([]*Fighter, 0, len(g.fighters))
	for _, f := range g.fighters {
		if f.Alive {
			out = append(out, f)
		}
	}
	return out
}

func (g *Game) pickTarget(self *Fighter, want string) *Fighter {
	if t, ok := g.byID[want]; ok && t.Alive && t != self {
		return t
	}
	opp := make([]*Fighter, 0, len(g.fighters))
	for _, f := range g.fighters {
		if f.Alive && f != self {
			opp = append(opp, f)
		}
	}
	if len(opp) == 0 {
		return nil
	}
	return opp[g.h.Core.IntN(len(opp))]
}

func (g *Game) eliminate(f *Fighter) {
	f.Alive = false
	f.Place = len(g.fighters) - g.out
	g.out++
}

func (g *Game) Resolve(a mode.Answer, now time.Time) reward.Outcome {
	if g.verdict.Decided {
		return g.noop("game over", a.PlayerID)
	}
	self, ok := g.byID[a.PlayerID]
	if !ok {
		return g.noop("unknown player", a.PlayerID)
	}
	if !self.Alive {
		return g.noop("eliminated", self.ID)
	}
	if !a.IsCorrect {
		return g.noop("missed", self.ID)
	}
	cls, _ := g.s.Class(self.Class)
	self.Correct++

	d := ThrowDelta{}
	if cls.HealOnCorrect > 0 {
		before := self.Health
		self.Health = ApplyHeal(self.Health, cls.HealOnCorrect, cls)
		d.Healed = self.Health - before
	}

	target := g.pickTarget(self, a.TargetID)
	if target == nil {
		g.grantGiant(self, &d)
		if d.Healed > 0 {
			return reward.Of(g.h.ModeName, reward.KindHeal, fmt.Sprintf("healed %d", d.Healed), d).By(self.ID, "").With(float64(d.Healed), "")
		}
		return g.noop("no target", self.ID)
	}

	tcls, _ := g.s.Class(target.Class)
	hit := Hit{
		Score:   timing.SpeedScore(a.AnswerTimeMs, a.TimeLimitMs),
		Crit:    g.h.Core.Chance(g.s.CritChance),
		Giant:   self.Giant,
		Elapsed: now.Sub(g.startedAt),
	}
	self.Giant = false
	d.Damage = Damage(g.s, cls, hit)
	d.Crit, d.Giant = hit.Crit, hit.Giant

	before := target.Health
	target.Health = ApplyDamage(target.Health, d.Damage, tcls)
	d.Lost = before - target.Health
	d.TargetLeft = target.Health
	self.Hits++
	g.grantGiant(self, &d)

	kind := reward.KindDamage
	msg := fmt.Sprintf("hit %s for %d", target.Name, d.Lost)
	if target.Health == 0 {
		g.eliminate(target)
		d.Eliminated = true
		kind = reward.KindEliminated
		msg = fmt.Sprintf("eliminated %s", target.Name)
		g.settle([]HealthStep{{ID: self.ID, Before: self.Health, After: self.Health}, {ID: target.ID, Before: before, After: 0}})
	}
	return reward.Of(g.h.ModeName, kind, msg, d).By(self.ID, target.ID).With(float64(d.Lost), "")
}

func (g *Game) grantGiant(f *Fighter, d *ThrowDelta) {
	if g.s.GiantEvery > 0 && f.Correct%g.s.GiantEvery == 0 {
		f.Giant = true
		d.GiantReady = true
	}
}

// settle 在有人淘汰後檢查是否分出勝負。
func (g *Game) settle(steps []HealthStep) {
	alive := g.alive()
	if len(alive) > 1 {
		return
	}
	if len(alive) == 1 {
		g.verdict = Verdict{Decided: true, Winner: alive[0].ID}
		alive[0].Place = 1
		return
	}
	g.verdict = DecideWinner(steps)
	if w, ok := g.byID[g.verdict.Winner]; ok {
		w.Place = 1
	}
}

// Act 大逃殺沒有主動操作。
func (g *Game) Act(a mode.Action, _ time.Time) reward.Outcome {
	return g.noop("unknown action "+a.Name, a.PlayerID)
}

// Tick 驟死階段時每 blizzard_every_ms 對所有存活玩家造成暴風雪傷害，可能同時淘汰多人。
func (g *Game) Tick(now time.Time) []reward.Outcome {
	if g.verdict.Decided || g.s.BlizzardDamage <= 0 {
		return nil
	}
	if !InSuddenDeath(g.s, now.Sub(g.startedAt)) {
		return nil
	}
	if now.Sub(g.lastBlizzard).Milliseconds() < g.s.BlizzardEveryMs {
		return nil
	}
	g.lastBlizzard = now

	alive := g.alive()
	steps := make([]HealthStep, 0, len(alive))
	outs := make([]reward.Outcome, 0, len(alive))
	for _, f := range alive {
		before := f.Health
		f.Health = max(0, f.Health-g.s.BlizzardDamage)
		steps = append(steps, HealthStep{ID: f.ID, Before: before, After: f.Health})
		kind := reward.KindDamage
		if f.Health == 0 {
			kind = reward.KindEliminated
		}
		d := ThrowDelta{Damage: float64(g.s.BlizzardDamage), Lost: before - f.Health, TargetLeft: f.Health, Eliminated: f.Health == 0}
		outs = append(outs, reward.Of(g.h.ModeName, kind, "blizzard", d).By("", f.ID).With(float64(d.Lost), ""))
	}
	// 同一步驟內淘汰者共享同一名次
	place := len(g.fighters) - g.out
	for _, st := range steps {
		if st.After == 0 {
			f := g.byID[st.ID]
			f.Alive = false
			f.Place = place
			g.out++
		}
	}
	if len(g.alive()) <= 1 && g.out > 0 {
		g.settle(steps)
	}
	return outs
}

func (g *Game) Standings() []mode.Standing {
	out := make([]mode.Standing, 0, len(g.fighters))
	for _, f := range g.fighters {
		out = append(out, mode.Standing{PlayerID: f.ID, Name: f.Name, Score: f.Health, Rank: f.Place, Alive: f.Alive})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Alive != out[j].Alive {
			return out[i].Alive
		}
		return out[i].Score > out[j].Score
	})
	return out
}

func (g *Game) Snapshot() any {
	fs := make([]Fighter, len(g.fighters))
	for i, f := range g.fighters {
		fs[i] = *f
	}
	return struct {
		Fighters []Fighter `json:"fighters"`
		Verdict  Verdict   `json:"verdict"`
	}{fs, g.verdict}
}

func (g *Game) Finished() (bool, string) {
	if !g.verdict.Decided {
		return false, ""
	}
	if g.verdict.Draw {
		return true, "draw"
	}
	return true, "winner " + g.verdict.Winner
}

// Verdict 回傳目前的勝負判定。
func (g *Game) Verdict() Verdict { return g.verdict }

// Fighter 回傳玩家狀態（測試與模擬用）。
func (g *Game) Fighter(id string) (*Fighter, bool) {
	f, ok := g.byID[id]
	return f, ok
}
