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

package cafe

import (
	"sort"
	"time"

	"github.com/zintix-labs/quizlab/sdk/mode"
	"github.com/zintix-labs/quizlab/sdk/reward"
	"github.com/zintix-labs/quizlab/spec"
)

const LogicKey spec.LogicKey = "cafe"

func Register(reg *mode.LogicRegistry) error {
	return reg.Register(LogicKey, Build)
}

type player struct {
	id, name string
	st       *State
}

// Game 每位玩家各自經營一間店。
type Game struct {
	h       *mode.Host
	s       *Setting
	players []*player
	byID    map[string]*player
}

func Build(h *mode.Host) (mode.Logic, error) {
	s, err := LoadSetting(h.ModeSetting)
	if err != nil {
		return nil, err
	}
	return &Game{h: h, s: s, byID: map[string]*player{}}, nil
}

func (g *Game) Start(players []mode.Player, now time.Time) {
	g.players = make([]*player, 0, len(players))
	g.byID = make(map[string]*player, len(players))
	for _, p := range players {
		pl := &player{id: p.ID, name: p.Name, st: NewState(g.s, now)}
		g.players = append(g.players, pl)
		g.byID[p.ID] = pl
	}
}

func (g *Game) stamp(pid string, o reward.Outcome) reward.Outcome {
	o.Mode = g.h.ModeName
	o.PlayerID = pid
	return o
}

// Resolve 答對補一份作答對應品項的庫存。
func (g *Game) Resolve(a mode.Answer, _ time.Time) reward.Outcome {
	pl, ok := g.byID[a.PlayerID]
	if !ok {
		return g.stamp(a.PlayerID, reward.Noop("", "unknown player"))
	}
	if !a.IsCorrect {
		return g.stamp(pl.id, reward.Noop("", "no restock"))
	}
	var out reward.Outcome
	pl.st, out = Restock(pl.st, a.ItemKey)
	return g.stamp(pl.id, out)
}

// Act 支援 serve（TargetID=客人）、upgrade（ItemKey=升級）、unlock（ItemKey=品項）。
func (g *Game) Act(a mode.Action, _ time.Time) reward.Outcome {
	pl, ok := g.byID[a.PlayerID]
	if !ok {
		return g.stamp(a.PlayerID, reward.Noop("", "unknown player"))
	}
	var out reward.Outcome
	switch a.Name {
	case mode.ActServe:
		pl.st, out = ServeCustomer(pl.st, a.TargetID)
	case mode.ActUpgrade, mode.ActBuy:
		pl.st, out = BuyUpgrade(pl.st, a.ItemKey)
	case mode.ActUnlock:
		pl.st, out = UnlockItem(pl.st, a.ItemKey)
	default:
		out = reward.Noop("", "unknown action "+a.Name)
	}
	return g.stamp(pl.id, out)
}

func (g *Game) Tick(now time.Time) []reward.Outcome {
	var all []reward.Outcome
	for _, pl := range g.players {
		var outs []reward.Outcome
		pl.st, outs = Tick(pl.st, g.h.Core, now, g.h.NewID)
		for _, o := range outs {
			all = append(all, g.stamp(pl.id, o))
		}
	}
	return all
}

func (g *Game) Standings() []mode.Standing {
	out := make([]mode.Standing, 0, len(g.players))
	for _, pl := range g.players {
		out = append(out, mode.Standing{PlayerID: pl.id, Name: pl.name, Score: pl.st.Served, Gold: pl.st.Cash, Alive: true})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Gold > out[j].Gold })
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func (g *Game) Snapshot() any {
	m := make(map[string]*State, len(g.players))
	for _, pl := range g.players {
		m[pl.id] = pl.st.Clone()
	}
	return struct {
		Cafes map[string]*State `json:"cafes"`
	}{m}
}

func (g *Game) Finished() (bool, string) { return false, "" }

// State 回傳玩家目前的店（唯讀使用）。
func (g *Game) State(id string) (*State, bool) {
	pl, ok := g.byID[id]
	if !ok {
		return nil, false
	}
	return pl.st, true
}

// AutoAction 服務第一位有庫存可供應的客人。
func (g *Game) AutoAction(pid string, _ time.Time) (mode.Action, bool) {
	pl, ok := g.byID[pid]
	if !ok {
		return mode.Action{}, false
	}
	for _, c := range pl.st.Customers {
		if pl.st.Stock[c.Order] > 0 {
			return mode.Action{PlayerID: pid, Name: mode.ActServe, TargetID: c.ID}, true
		}
	}
	return mode.Action{}, false
}
