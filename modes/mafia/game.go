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

package mafia

import (
	"slices"
	"sort"
	"time"

	"github.com/zintix-labs/quizlab/sdk/mode"
	"github.com/zintix-labs/quizlab/sdk/reward"
	"github.com/zintix-labs/quizlab/sdk/sampler"
	"github.com/zintix-labs/quizlab/spec"
)

const LogicKey spec.LogicKey = "mafia"

func Register(reg *mode.LogicRegistry) error {
	return reg.Register(LogicKey, Build)
}

// bot 分支索引，對應 BotWeights 的欄位順序。
const (
	botEarn = iota
	botCheat
	botInvestigate
	botIdle
)

type Game struct {
	h        *mode.Host
	s        *Setting
	heisters []*Heister
	byID     map[string]*Heister
}

func Build(h *mode.Host) (mode.Logic, error) {
	s, err := LoadSetting(h.ModeSetting)
	if err != nil {
		return nil, err
	}
	return &Game{h: h, s: s, byID: map[string]*Heister{}}, nil
}

func (g *Game) window() time.Duration {
	return time.Duration(g.s.CheatWindowMs) * time.Millisecond
}

func (g *Game) botEvery() time.Duration {
	return time.Duration(g.s.BotIntervalMs) * time.Millisecond
}

func (g *Game) Start(players []mode.Player, now time.Time) {
	g.heisters = make([]*Heister, 0, len(players))
	g.byID = make(map[string]*Heister, len(players))
	for _, p := range players {
		h := &Heister{ID: p.ID, Name: p.Name, Bot: p.Bot, Cash: g.s.StartCash}
		if p.Bot {
			h.NextBotAct = now.Add(g.botEvery())
		}
		g.heisters = append(g.heisters, h)
		g.byID[p.ID] = h
	}
}

func (g *Game) stamp(o reward.Outcome) reward.Outcome {
	o.Mode = g.h.ModeName
	return o
}

// Resolve 答對抽一組新金庫；答錯沒有金庫可開。
func (g *Game) Resolve(a mode.Answer, _ time.Time) reward.Outcome {
	h, ok := g.byID[a.PlayerID]
	if !ok {
		return g.stamp(reward.Noop("", "unknown player"))
	}
	if !a.IsCorrect {
		return g.stamp(reward.Noop("", "no vaults this time").By(h.ID, ""))
	}
	return g.stamp(StartRound(h, DrawRound(g.h.Core, g.s, g.h.NewID)))
}

// Act 支援 open（Index）、cheat、investigate（TargetID）。
func (g *Game) Act(a mode.Action, now time.Time) reward.Outcome {
	h, ok := g.byID[a.PlayerID]
	if !ok {
		return g.stamp(reward.Noop("", "unknown player"))
	}
	switch a.Name {
	case mode.ActOpen:
		return g.stamp(OpenVault(h, a.Index))
	case mode.ActCheat:
		return g.stamp(Cheat(h, now, g.window()))
	case mode.ActInvestigate:
		t, ok := g.byID[a.TargetID]
		if !ok {
			return g.stamp(reward.Noop("", "unknown target").By(h.ID, a.TargetID))
		}
		return g.stamp(Investigate(h, t, now, g.s.InvestigatorPenalty))
	}
	return g.stamp(reward.Noop("", "unknown action "+a.Name).By(h.ID, ""))
}

// Tick 先結算逾時的作弊暴露，再驅動到期的 AI。
func (g *Game) Tick(now time.Time) []reward.Outcome {
	var outs []reward.Outcome
	for _, h := range g.heisters {
		if o := SettleExposure(g.h.Core, h, now, g.s.PoliceChance, g.s.TimeoutPenalty); o.Success {
			outs = append(outs, g.stamp(o))
		}
	}
	for _, h := range g.heisters {
		if !h.Bot || now.Before(h.NextBotAct) {
			continue
		}
		h.NextBotAct = now.Add(g.botEvery())
		outs = append(outs, g.botAct(h, now)...)
	}
	return outs
}

func (g *Game) botAct(h *Heister, now time.Time) []reward.Outcome {
	w := g.s.Bot
	branch := sampler.Select(g.h.Core, []int{w.Earn, w.Cheat, w.Investigate, w.Idle})
	switch branch {
	case botEarn:
		StartRound(h, DrawRound(g.h.Core, g.s, g.h.NewID))
		return []reward.Outcome{g.stamp(OpenVault(h, g.h.Core.IntN(len(h.Round))))}
	case botCheat:
		StartRound(h, DrawRound(g.h.Core, g.s, g.h.NewID))
		peek := g.stamp(Cheat(h, now, g.window()))
		return []reward.Outcome{peek, g.stamp(OpenVault(h, BestVault(h.Round, h.Stack)))}
	case botInvestigate:
		var suspects []*Heister
		for _, o := range g.heisters {
			if o.ID != h.ID && o.Exposed(now) {
				suspects = append(suspects, o)
			}
		}
		t, ok := sampler.Uniform(g.h.Core, suspects)
		if !ok {
			return nil
		}
		return []reward.Outcome{g.stamp(Investigate(h, t, now, g.s.InvestigatorPenalty))}
	}
	return nil
}

func (g *Game) Standings() []mode.Standing {
	out := make([]mode.Standing, 0, len(g.heisters))
	for _, h := range g.heisters {
		out = append(out, mode.Standing{PlayerID: h.ID, Name: h.Name, Score: h.Diamonds, Gold: h.Cash, Alive: true})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Gold > out[j].Gold })
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func (g *Game) Snapshot() any {
	hs := make([]Heister, len(g.heisters))
	for i, h := range g.heisters {
		hs[i] = *h
		hs[i].Stack = slices.Clone(h.Stack)
		hs[i].Round = slices.Clone(h.Round)
	}
	return struct {
		Heisters []Heister `json:"heisters"`
	}{hs}
}

func (g *Game) Finished() (bool, string) { return false, "" }

func (g *Game) Heister(id string) (*Heister, bool) {
	h, ok := g.byID[id]
	return h, ok
}

// AutoAction 有未開的金庫時，依目前倍率堆疊開最有價值的一個。
func (g *Game) AutoAction(pid string, _ time.Time) (mode.Action, bool) {
	h, ok := g.byID[pid]
	if !ok || len(h.Round) == 0 {
		return mode.Action{}, false
	}
	return mode.Action{PlayerID: pid, Name: mode.ActOpen, Index: BestVault(h.Round, h.Stack)}, true
}
