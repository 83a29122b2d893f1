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
	"sort"
	"time"

	"github.com/zintix-labs/quizlab/sdk/mode"
	"github.com/zintix-labs/quizlab/sdk/reward"
	"github.com/zintix-labs/quizlab/spec"
)

const LogicKey spec.LogicKey = "factory"

func Register(reg *mode.LogicRegistry) error {
	return reg.Register(LogicKey, Build)
}

type worker struct {
	id, name string
	st       *State
}

type Game struct {
	h       *mode.Host
	s       *Setting
	workers []*worker
	byID    map[string]*worker
}

func Build(h *mode.Host) (mode.Logic, error) {
	s, err := LoadSetting(h.ModeSetting)
	if err != nil {
		return nil, err
	}
	return &Game{h: h, s: s, byID: map[string]*worker{}}, nil
}

func (g *Game) Start(players []mode.Player, now time.Time) {
	g.workers = make([]*worker, 0, len(players))
	g.byID = make(map[string]*worker, len(players))
	for _, p := range players {
		w := &worker{id: p.ID, name: p.Name, st: NewState(g.s, now)}
		g.workers = append(g.workers, w)
		g.byID[p.ID] = w
	}
}

func (g *Game) stamp(pid string, o reward.Outcome) reward.Outcome {
	o.Mode = g.h.ModeName
	o.PlayerID = pid
	return o
}

func (g *Game) Resolve(a mode.Answer, _ time.Time) reward.Outcome {
	w, ok := g.byID[a.PlayerID]
	if !ok {
		return g.stamp(a.PlayerID, reward.Noop("", "unknown player"))
	}
	if !a.IsCorrect {
		return g.stamp(w.id, reward.Noop("", "no lump"))
	}
	return g.stamp(w.id, GrantLump(w.st, g.s, a.AnswerTimeMs, a.TimeLimitMs))
}

// Act 支援 buy 與 upgrade（ItemKey=機台）。
func (g *Game) Act(a mode.Action, now time.Time) reward.Outcome {
	w, ok := g.byID[a.PlayerID]
	if !ok {
		return g.stamp(a.PlayerID, reward.Noop("", "unknown player"))
	}
	switch a.Name {
	case mode.ActBuy:
		return g.stamp(w.id, g.shop(w, now, func(st *State) reward.Outcome { return Buy(st, g.s, a.ItemKey) }))
	case mode.ActUpgrade:
		return g.stamp(w.id, g.shop(w, now, func(st *State) reward.Outcome { return Upgrade(st, g.s, a.ItemKey) }))
	}
	return g.stamp(w.id, reward.Noop("", "unknown action "+a.Name))
}

// shop 先結清舊等級的產出再交易（新機台不追溯計算）。
// 結算與交易都在副本上進行，交易失敗時 w.st 保持原樣。
func (g *Game) shop(w *worker, now time.Time, buy func(*State) reward.Outcome) reward.Outcome {
	next := w.st.Clone()
	Accrue(next, g.s, now)
	o := buy(next)
	if o.Success {
		*w.st = *next
	}
	return o
}

func (g *Game) Tick(now time.Time) []reward.Outcome {
	var outs []reward.Outcome
	for _, w := range g.workers {
		if o := Accrue(w.st, g.s, now); o.Amount > 0 {
			outs = append(outs, g.stamp(w.id, o))
		}
	}
	return outs
}

func (g *Game) Standings() []mode.Standing {
	out := make([]mode.Standing, 0, len(g.workers))
	for _, w := range g.workers {
		out = append(out, mode.Standing{PlayerID: w.id, Name: w.name, Score: w.st.Produced, Gold: w.st.Cash, Alive: true})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Gold > out[j].Gold })
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func (g *Game) Snapshot() any {
	m := make(map[string]State, len(g.workers))
	for _, w := range g.workers {
		m[w.id] = *w.st.Clone()
	}
	return struct {
		Factories map[string]State `json:"factories"`
	}{m}
}

func (g *Game) Finished() (bool, string) { return false, "" }

func (g *Game) State(id string) (*State, bool) {
	w, ok := g.byID[id]
	if !ok {
		return nil, false
	}
	return w.st, true
}

// AutoAction 買下或升級目前買得起、最便宜的機台。
func (g *Game) AutoAction(pid string, _ time.Time) (mode.Action, bool) {
	w, ok := g.byID[pid]
	if !ok {
		return mode.Action{}, false
	}
	best, cost := -1, 0
	for i, m := range g.s.Machines {
		lv := w.st.Levels[m.Key]
		if lv >= m.MaxLevel {
			continue
		}
		c := UpgradeCost(m, lv)
		if c <= w.st.Cash && (best < 0 || c < cost) {
			best, cost = i, c
		}
	}
	if best < 0 {
		return mode.Action{}, false
	}
	m := g.s.Machines[best]
	name := mode.ActUpgrade
	if w.st.Levels[m.Key] == 0 {
		name = mode.ActBuy
	}
	return mode.Action{PlayerID: pid, Name: name, ItemKey: m.Key}, true
}
