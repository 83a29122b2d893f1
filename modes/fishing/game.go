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

package fishing

import (
	"fmt"
	"sort"
	"time"

	"github.com/zintix-labs/quizlab/sdk/mode"
	"github.com/zintix-labs/quizlab/sdk/reward"
	"github.com/zintix-labs/quizlab/spec"
)

const LogicKey spec.LogicKey = "fishing"

func Register(reg *mode.LogicRegistry) error {
	return reg.Register(LogicKey, Build)
}

// Angler 是單一玩家的機台狀態。
type Angler struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Correct int     `json:"correct"`
	Rank    int     `json:"rank"`
	Score   int     `json:"score"`
	Catches []Catch `json:"catches"`
}

type Game struct {
	h       *mode.Host
	s       *Setting
	anglers []*Angler
	byID    map[string]*Angler
}

func Build(h *mode.Host) (mode.Logic, error) {
	s, err := LoadSetting(h.ModeSetting)
	if err != nil {
		return nil, err
	}
	return &Game{h: h, s: s, byID: map[string]*Angler{}}, nil
}

// Setting 回傳已解碼的設定（模擬器用）。
func (g *Game) Setting() *Setting { return g.s }

func (g *Game) Start(players []mode.Player, _ time.Time) {
	g.anglers = make([]*Angler, 0, len(players))
	g.byID = make(map[string]*Angler, len(players))
	for _, p := range players {
		a := &Angler{ID: p.ID, Name: p.Name, Rank: 1}
		g.anglers = append(g.anglers, a)
		g.byID[p.ID] = a
	}
}

// Resolve 答對下爪；答錯不下爪。
func (g *Game) Resolve(a mode.Answer, _ time.Time) reward.Outcome {
	an, ok := g.byID[a.PlayerID]
	if !ok {
		return reward.Noop(g.h.ModeName, "unknown player")
	}
	if !a.IsCorrect {
		return reward.Noop(g.h.ModeName, "claw stays up").By(an.ID, "")
	}
	an.Correct++
	an.Rank = RankFor(g.s, an.Correct)
	frenzy := g.h.Core.Chance(g.s.FrenzyChance)
	res := TryFishing(g.h.Core, g.s, a.AnswerTimeMs, a.TimeLimitMs, an.Rank, frenzy, g.h.NewID)
	an.Score += res.Catch.Value
	an.Catches = append(an.Catches, res.Catch)

	msg := fmt.Sprintf("caught %s (%d)", res.Catch.Name, res.Catch.Value)
	if frenzy {
		msg += " frenzy!"
	}
	return reward.Of(g.h.ModeName, reward.KindCatch, msg, res).By(an.ID, "").With(float64(res.Catch.Value), res.Catch.Tier)
}

func (g *Game) Act(a mode.Action, _ time.Time) reward.Outcome {
	return reward.Noop(g.h.ModeName, "unknown action "+a.Name).By(a.PlayerID, "")
}

func (g *Game) Tick(time.Time) []reward.Outcome { return nil }

func (g *Game) Standings() []mode.Standing {
	out := make([]mode.Standing, 0, len(g.anglers))
	for _, a := range g.anglers {
		out = append(out, mode.Standing{PlayerID: a.ID, Name: a.Name, Score: a.Score, Alive: true})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func (g *Game) Snapshot() any {
	as := make([]Angler, len(g.anglers))
	for i, a := range g.anglers {
		as[i] = *a
		as[i].Catches = append([]Catch(nil), a.Catches...)
	}
	return struct {
		Anglers []Angler `json:"anglers"`
	}{as}
}

// Finished 夾娃娃沒有終局，由房間結束。
func (g *Game) Finished() (bool, string) { return false, "" }
