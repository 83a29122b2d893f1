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
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/zintix-labs/quizlab/sdk/core"
	"github.com/zintix-labs/quizlab/sdk/mode"
	"github.com/zintix-labs/quizlab/sdk/reward"
	"github.com/zintix-labs/quizlab/spec"
)

var t0 = time.Unix(9_000, 0)

func defaultBands() []Band {
	return []Band{
		{Key: "small", Kind: VaultCash, Weight: 30, Amount: 100},
		{Key: "medium", Kind: VaultCash, Weight: 20, Amount: 250},
		{Key: "large", Kind: VaultCash, Weight: 10, Amount: 500},
		{Key: "max", Kind: VaultCash, Weight: 3, Amount: 1000},
		{Key: "diamonds", Kind: VaultDiamond, Weight: 7, Amount: 5},
		{Key: "x1.5", Kind: VaultMultiplier, Weight: 10, Mult: 1.5},
		{Key: "x2", Kind: VaultMultiplier, Weight: 5, Mult: 2},
		{Key: "empty", Kind: VaultEmpty, Weight: 15},
	}
}

func testSetting(t *testing.T) *Setting {
	t.Helper()
	s := &Setting{StartCash: 0, PoliceChance: 1, Bands: defaultBands()}
	if err := s.init(); err != nil {
		t.Fatal(err)
	}
	return s
}

func ids() func() string {
	n := 0
	return func() string { n++; return "v" + strconv.Itoa(n) }
}

func TestCalculateTotalMultiplier(t *testing.T) {
	if got := CalculateTotalMultiplier([]float64{1.5, 2}); got != 3 {
		t.Fatalf("[1.5,2] = %v want 3", got)
	}
	if CalculateTotalMultiplier(nil) != 1 {
		t.Fatalf("empty stack must be 1")
	}
}

func TestOpenVaultAppliesStack(t *testing.T) {
	h := &Heister{ID: "p", Stack: []float64{1.5, 2}}
	h.Round = []Vault{{ID: "a", Band: "small", Kind: VaultCash, Amount: 100}}
	out := OpenVault(h, 0)
	if !out.Success || out.Kind != reward.KindCash || out.Amount != 300 || h.Cash != 300 {
		t.Fatalf("100 × 3 = 300, got %+v cash=%d", out, h.Cash)
	}
	if len(h.Stack) != 0 || h.Round != nil {
		t.Fatalf("stack and round must be consumed: %+v", h)
	}
}

func TestOpenVaultKinds(t *testing.T) {
	h := &Heister{ID: "p"}
	h.Round = []Vault{{Kind: VaultMultiplier, Mult: 2}}
	if o := OpenVault(h, 0); o.Kind != reward.KindMultiplier || len(h.Stack) != 1 {
		t.Fatalf("multiplier must push: %+v", o)
	}
	h.Round = []Vault{{Kind: VaultEmpty}}
	if o := OpenVault(h, 0); o.Kind != reward.KindEmpty || o.Amount != 0 || len(h.Stack) != 1 {
		t.Fatalf("empty must keep the stack: %+v", o)
	}
	h.Round = []Vault{{Kind: VaultDiamond, Amount: 5}}
	if o := OpenVault(h, 0); o.Kind != reward.KindDiamond || h.Diamonds != 10 || len(h.Stack) != 0 {
		t.Fatalf("diamonds ×2: %+v diamonds=%d", o, h.Diamonds)
	}
}

func TestOpenVaultGuards(t *testing.T) {
	h := &Heister{ID: "p", Cash: 7}
	if o := OpenVault(h, 0); o.Success {
		t.Fatalf("no round must be a no-op")
	}
	h.Round = []Vault{{Kind: VaultCash, Amount: 100}}
	for _, idx := range []int{-1, 1, 99} {
		if o := OpenVault(h, idx); o.Success || len(h.Round) != 1 || h.Cash != 7 {
			t.Fatalf("invalid index %d must not change state", idx)
		}
	}
}

func TestDrawRoundDistribution(t *testing.T) {
	s := testSetting(t)
	c := core.New(core.Default().New(11))
	counts := map[string]int{}
	const rounds = 40000
	for range rounds {
		vs := DrawRound(c, s, ids())
		if len(vs) != 3 {
			t.Fatalf("options = %d", len(vs))
		}
		for _, v := range vs {
			counts[v.Band]++
		}
	}
	total := 0
	for _, b := range s.Bands {
		total += b.Weight
	}
	for _, b := range s.Bands {
		want := float64(b.Weight) / float64(total)
		got := float64(counts[b.Key]) / (rounds * 3)
		if math.Abs(got-want) > 0.01 {
			t.Errorf("band %s: got %.4f want %.4f", b.Key, got, want)
		}
	}
}

func TestCheatAndInvestigate(t *testing.T) {
	s := testSetting(t)
	cheater := &Heister{ID: "c", Name: "C", Cash: 1000}
	cop := &Heister{ID: "i", Name: "I", Cash: 10}

	if o := Cheat(cheater, t0, time.Second); o.Success {
		t.Fatalf("cheat without a round must fail")
	}
	cheater.Round = []Vault{{ID: "x", Kind: VaultCash, Amount: 100}}
	o := Cheat(cheater, t0, 5*time.Second)
	d, _ := reward.DeltaAs[RoundDelta](o)
	if !o.Success || len(d.Vaults) != 1 || !cheater.Exposed(t0.Add(4*time.Second)) {
		t.Fatalf("cheat must reveal and expose: %+v", o)
	}
	if cheater.Exposed(t0.Add(5 * time.Second)) {
		t.Fatalf("exposure ends at now+window")
	}

	if o := Investigate(cop, cop, t0, s.InvestigatorPenalty); o.Success {
		t.Fatalf("self investigation must fail")
	}
	o = Investigate(cop, cheater, t0.Add(time.Second), s.InvestigatorPenalty)
	if !o.Success || o.Kind != reward.KindCaught || cheater.Cash != 700 || cop.Cash != 310 {
		t.Fatalf("30%% transfer expected: cheater=%d cop=%d", cheater.Cash, cop.Cash)
	}
	if o := Investigate(cop, cheater, t0.Add(2*time.Second), s.InvestigatorPenalty); o.Success || cop.Cash != 310 {
		t.Fatalf("caught cheater is no longer exposed")
	}
	clean := &Heister{ID: "n", Name: "N", Cash: 500}
	if o := Investigate(cop, clean, t0, s.InvestigatorPenalty); o.Success || cop.Cash != 310 || clean.Cash != 500 {
		t.Fatalf("failed investigation costs nothing")
	}
}

func TestSettleExposureTimeoutPenalty(t *testing.T) {
	s := testSetting(t)
	c := core.New(core.Default().New(1))
	h := &Heister{ID: "c", Cash: 1000, ExposedUntil: t0.Add(5 * time.Second)}
	if o := SettleExposure(c, h, t0.Add(time.Second), s.PoliceChance, s.TimeoutPenalty); o.Success {
		t.Fatalf("not due yet")
	}
	o := SettleExposure(c, h, t0.Add(5*time.Second), s.PoliceChance, s.TimeoutPenalty)
	if o.Kind != reward.KindPenalty || h.Cash != 500 || !h.ExposedUntil.IsZero() {
		t.Fatalf("police_chance=1 must confiscate 50%%: %+v cash=%d", o, h.Cash)
	}

	h2 := &Heister{ID: "d", Cash: 1000, ExposedUntil: t0}
	before, _ := c.Snapshot()
	o = SettleExposure(c, h2, t0, 0, s.TimeoutPenalty)
	if o.Kind == reward.KindPenalty || h2.Cash != 1000 {
		t.Fatalf("police_chance=0 must never confiscate")
	}
	if after, _ := c.Snapshot(); string(after) != string(before) {
		t.Fatalf("chance 0 must not consume randomness")
	}
}

func TestBestVault(t *testing.T) {
	vs := []Vault{{Kind: VaultEmpty}, {Kind: VaultCash, Amount: 250}, {Kind: VaultCash, Amount: 100}}
	if BestVault(vs, nil) != 1 {
		t.Fatalf("best must be the 250 vault")
	}
	vs = []Vault{{Kind: VaultCash, Amount: 100}, {Kind: VaultMultiplier, Mult: 3}}
	if BestVault(vs, nil) != 1 {
		t.Fatalf("x3 on a 100 vault is worth 200 > 100")
	}
}

func newGame(t *testing.T, fixed map[string]any, players ...mode.Player) *Game {
	t.Helper()
	ms := &spec.ModeSetting{ModeID: 6, ModeName: "mafia", LogicKey: LogicKey, TickMs: 500, MaxPlayers: 8, Fixed: fixed}
	h, _ := mode.NewHost(ms, core.New(core.Default().New(21)), true)
	l, err := Build(h)
	if err != nil {
		t.Fatal(err)
	}
	g := l.(*Game)
	g.Start(players, t0)
	return g
}

func bandsFixed() []any {
	out := []any{}
	for _, b := range defaultBands() {
		out = append(out, map[string]any{"key": b.Key, "kind": string(b.Kind), "weight": b.Weight, "amount": b.Amount, "mult": b.Mult})
	}
	return out
}

func TestGameRoundFlow(t *testing.T) {
	g := newGame(t, map[string]any{"bands": bandsFixed()}, mode.Player{ID: "p", Name: "P"})
	if o := g.Act(mode.Action{PlayerID: "p", Name: mode.ActOpen}, t0); o.Success {
		t.Fatalf("open before a correct answer must fail")
	}
	if o := g.Resolve(mode.Answer{PlayerID: "p", IsCorrect: false}, t0); o.Success {
		t.Fatalf("incorrect answer draws nothing")
	}
	o := g.Resolve(mode.Answer{PlayerID: "p", IsCorrect: true}, t0)
	d, _ := reward.DeltaAs[RoundDelta](o)
	if o.Kind != reward.KindVault || len(d.IDs) != 3 || len(d.Vaults) != 0 {
		t.Fatalf("round must show three sealed vaults: %+v", o)
	}
	if o := g.Act(mode.Action{PlayerID: "p", Name: mode.ActOpen, Index: 2}, t0); !o.Success {
		t.Fatalf("open: %+v", o)
	}
}

func TestBotsEarnOnInterval(t *testing.T) {
	fixed := map[string]any{
		"bands":           bandsFixed(),
		"bot_interval_ms": 1000,
		"bot":             map[string]any{"earn": 1},
	}
	g := newGame(t, fixed, mode.Player{ID: "p", Name: "P"}, mode.Player{ID: "b", Name: "Bot", Bot: true})
	if outs := g.Tick(t0.Add(500 * time.Millisecond)); len(outs) != 0 {
		t.Fatalf("bot must wait for its interval")
	}
	acted := 0
	for i := 1; i <= 50; i++ {
		for _, o := range g.Tick(t0.Add(time.Duration(i) * time.Second)) {
			if o.PlayerID != "b" || !o.Success {
				t.Fatalf("unexpected outcome %+v", o)
			}
			acted++
		}
	}
	if acted != 50 {
		t.Fatalf("bot must act once per interval, acted %d", acted)
	}
	b, _ := g.Heister("b")
	p, _ := g.Heister("p")
	if b.Cash == 0 || p.Cash != 0 {
		t.Fatalf("only the bot earns: bot=%d player=%d", b.Cash, p.Cash)
	}
}

func TestBotsInvestigateExposedPlayer(t *testing.T) {
	fixed := map[string]any{
		"bands":           bandsFixed(),
		"bot_interval_ms": 1000,
		"bot":             map[string]any{"investigate": 1},
	}
	g := newGame(t, fixed, mode.Player{ID: "p", Name: "P"}, mode.Player{ID: "b", Name: "Bot", Bot: true})
	p, _ := g.Heister("p")
	p.Cash = 1000
	g.Resolve(mode.Answer{PlayerID: "p", IsCorrect: true}, t0)
	g.Act(mode.Action{PlayerID: "p", Name: mode.ActCheat}, t0)

	outs := g.Tick(t0.Add(time.Second))
	if len(outs) != 1 || outs[0].Kind != reward.KindCaught {
		t.Fatalf("bot must catch the exposed player: %+v", outs)
	}
	if p.Cash != 700 {
		t.Fatalf("cash after catch = %d", p.Cash)
	}
}
