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

package quizlab

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/zintix-labs/quizlab/configs"
	"github.com/zintix-labs/quizlab/corefmt"
	"github.com/zintix-labs/quizlab/errs"
	"github.com/zintix-labs/quizlab/metrics"
	"github.com/zintix-labs/quizlab/modes"
	"github.com/zintix-labs/quizlab/sdk/core"
	"github.com/zintix-labs/quizlab/sdk/mode"
	"github.com/zintix-labs/quizlab/sdk/reward"
	"github.com/zintix-labs/quizlab/spec"
	"github.com/zintix-labs/quizlab/store"
)

// ============================================================
// ** counter logic **
// ============================================================

const (
	counterKey spec.LogicKey = "counter"
	counterID  spec.MID      = 90
)

const counterYAML = `mode_id: 90
mode_name: counter
logic_key: counter
tick_ms: 5
max_players: 2
`

// counter 是測試用的模式：答對 +1 分（數值取自 Core），任一玩家 3 分即結束；ItemKey=boom 會 panic。
type counter struct {
	h      *mode.Host
	order  []mode.Player
	scores map[string]int
	ticks  int
}

func buildCounter(h *mode.Host) (mode.Logic, error) {
	return &counter{h: h, scores: map[string]int{}}, nil
}

func (p *counter) Start(ps []mode.Player, _ time.Time) {
	p.order = ps
	for _, pl := range ps {
		p.scores[pl.ID] = 0
	}
}

func (p *counter) Resolve(a mode.Answer, _ time.Time) reward.Outcome {
	if a.ItemKey == "boom" {
		panic("boom")
	}
	if !a.IsCorrect {
		return reward.Noop(p.h.ModeName, "wrong").By(a.PlayerID, "")
	}
	p.scores[a.PlayerID]++
	return reward.Of(p.h.ModeName, reward.KindScore, "ok", p.scores[a.PlayerID]).
		By(a.PlayerID, "").
		With(float64(p.h.Core.IntN(1000)), "")
}

func (p *counter) Act(a mode.Action, _ time.Time) reward.Outcome {
	return reward.Noop(p.h.ModeName, "no actions")
}

func (p *counter) Tick(time.Time) []reward.Outcome {
	p.ticks++
	return []reward.Outcome{reward.Of(p.h.ModeName, reward.KindScore, "tick", p.ticks)}
}

func (p *counter) Standings() []mode.Standing {
	out := make([]mode.Standing, len(p.order))
	for i, pl := range p.order {
		out[i] = mode.Standing{PlayerID: pl.ID, Name: pl.Name, Score: p.scores[pl.ID], Alive: true}
	}
	return out
}

func (p *counter) Snapshot() any { return map[string]int{"ticks": p.ticks} }

func (p *counter) Finished() (bool, string) {
	for _, s := range p.scores {
		if s >= 3 {
			return true, "target"
		}
	}
	return false, ""
}

// ============================================================
// ** helpers **
// ============================================================

func builtinLab(t *testing.T) *Lab {
	t.Helper()
	lab, err := NewAuto(core.Default(), Configs(configs.FS), Logics(modes.Logics))
	if err != nil {
		t.Fatal(err)
	}
	return lab
}

func counterLab(t *testing.T) *Lab {
	t.Helper()
	reg := mode.NewLogicRegistry()
	if err := reg.Register(counterKey, buildCounter); err != nil {
		t.Fatal(err)
	}
	cfg := fstest.MapFS{"counter.yaml": {Data: []byte(counterYAML)}}
	lab, err := NewAuto(core.Default(), Configs(cfg), Logics(reg))
	if err != nil {
		t.Fatal(err)
	}
	return lab
}

func counterRuntime(t *testing.T, opts ...RuntimeOption) (*RoomRuntime, *metrics.Metrics, *store.Memory) {
	t.Helper()
	met := metrics.New()
	mem := store.NewMemoryWithBuffer(1024)
	base := []RuntimeOption{
		WithStore(mem),
		WithMetrics(met),
		WithCodeSeed(1),
		WithClock(func() time.Time { return time.Unix(1000, 0) }),
	}
	rt, err := counterLab(t).BuildRuntime(append(base, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(rt.Close)
	return rt, met, mem
}

func right(pid string) mode.Answer {
	return mode.Answer{PlayerID: pid, IsCorrect: true, AnswerTimeMs: 1000, TimeLimitMs: 10000}
}

func wantLevel(t *testing.T, err error, lv errs.ErrLevel) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", errs.ErrLv(lv))
	}
	if got := errs.Level(err); got != lv {
		t.Fatalf("error level = %s want %s (%v)", errs.ErrLv(got), errs.ErrLv(lv), err)
	}
}

// ============================================================
// ** Lab **
// ============================================================

func TestNewAutoBuiltins(t *testing.T) {
	lab := builtinLab(t)
	sum, err := lab.Summary()
	if err != nil {
		t.Fatal(err)
	}
	if len(sum) != 8 {
		t.Fatalf("expected 8 modes, got %d", len(sum))
	}
	for i, s := range sum {
		if s.MID != spec.MID(i+1) {
			t.Fatalf("summary must be sorted by id: %+v", sum)
		}
	}
	if e, ok := lab.EntryByName("school_racing"); !ok || e.Logic != "racing" {
		t.Fatalf("school_racing must reuse the racing logic: %+v", e)
	}
	again, _ := lab.Summary()
	if &again[0] != &sum[0] {
		t.Fatalf("summary must be cached")
	}
}

func TestLabRequiresFreeze(t *testing.T) {
	lab, err := New(core.Default(), Configs(configs.FS), Logics(modes.Logics))
	if err != nil {
		t.Fatal(err)
	}
	if err := lab.RegisterAll(); err != nil {
		t.Fatal(err)
	}
	if _, err := lab.Summary(); err == nil {
		t.Fatalf("summary before freeze must fail")
	}
	if _, err := lab.NewSessionWithSeed(1, 1); err == nil {
		t.Fatalf("session before freeze must fail")
	}
	lab.Freeze()
	if _, err := lab.NewSessionWithSeed(1, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := lab.NewSessionWithSeed(99, 1); err == nil {
		t.Fatalf("unknown mode id must fail")
	}
}

func TestNewRejectsMissingParts(t *testing.T) {
	if _, err := New(nil, Configs(configs.FS), Logics(modes.Logics)); err == nil {
		t.Fatalf("nil core factory must fail")
	}
	if _, err := New(core.Default(), nil, Logics(modes.Logics)); err == nil {
		t.Fatalf("no configs must fail")
	}
	if _, err := New(core.Default(), Configs(configs.FS), nil); err == nil {
		t.Fatalf("no registries must fail")
	}
}

func TestRegisterAllRejects(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"unknown logic": {
			"a.yaml": {Data: []byte("mode_id: 1\nmode_name: a\nlogic_key: nope\n")},
		},
		"duplicate id": {
			"a.yaml": {Data: []byte("mode_id: 1\nmode_name: a\nlogic_key: racing\n")},
			"b.yaml": {Data: []byte("mode_id: 1\nmode_name: b\nlogic_key: racing\n")},
		},
		"duplicate name": {
			"a.yaml": {Data: []byte("mode_id: 1\nmode_name: same\nlogic_key: racing\n")},
			"b.yaml": {Data: []byte("mode_id: 2\nmode_name: SAME\nlogic_key: racing\n")},
		},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			lab, err := New(core.Default(), Configs(cfg), Logics(modes.Logics))
			if err != nil {
				t.Fatal(err)
			}
			if err := lab.RegisterAll(); err == nil {
				t.Fatalf("RegisterAll must fail")
			}
			if len(lab.IDs()) != 0 {
				t.Fatalf("a failed batch must not register anything: %v", lab.IDs())
			}
		})
	}
}

func TestNewSessionByYAML(t *testing.T) {
	lab := counterLab(t)
	if _, err := lab.NewSessionByYAML([]byte(counterYAML), 3); err != nil {
		t.Fatal(err)
	}
	bad := strings.Replace(counterYAML, "mode_name: counter", "mode_name: other", 1)
	if _, err := lab.NewSessionByYAML([]byte(bad), 3); err == nil {
		t.Fatalf("config not matching the catalog must fail")
	}
}

// ============================================================
// ** Session **
// ============================================================

func TestSessionLifecycle(t *testing.T) {
	s, err := counterLab(t).NewSessionWithSeed(counterID, 5)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Unix(10, 0)

	wantLevel(t, s.Join(mode.Player{}), errs.Warn)
	if err := s.Join(mode.Player{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	wantLevel(t, s.Join(mode.Player{ID: "a"}), errs.Warn)
	if err := s.Join(mode.Player{ID: "b", Name: "Bea"}); err != nil {
		t.Fatal(err)
	}
	wantLevel(t, s.Join(mode.Player{ID: "c"}), errs.Warn) // max_players=2

	_, err = s.ResolveAnswer(right("a"), now)
	wantLevel(t, err, errs.Warn)
	if out := s.Tick(now); out != nil {
		t.Fatalf("tick before start must do nothing")
	}

	if err := s.Start(now); err != nil {
		t.Fatal(err)
	}
	wantLevel(t, s.Start(now), errs.Warn)
	wantLevel(t, s.Join(mode.Player{ID: "d"}), errs.Warn)
	_, err = s.ResolveAnswer(right("zz"), now)
	wantLevel(t, err, errs.Warn)
	_, err = s.Act(mode.Action{PlayerID: "a"}, now)
	wantLevel(t, err, errs.Warn)

	o, err := s.ResolveAnswer(mode.Answer{PlayerID: "a"}, now)
	if err != nil || o.Success {
		t.Fatalf("wrong answer must be a no-op outcome, not an error: %+v %v", o, err)
	}
	for range 3 {
		if _, err := s.ResolveAnswer(right("a"), now); err != nil {
			t.Fatal(err)
		}
	}
	if done, reason := s.Finished(); !done || reason != "target" {
		t.Fatalf("finished = %v %q", done, reason)
	}
	_, err = s.ResolveAnswer(right("b"), now)
	wantLevel(t, err, errs.Warn)

	snap := s.Snapshot()
	if snap.Phase != PhaseFinished || snap.Resolved != 4 || len(snap.Players) != 2 || snap.Players[0].Name != "a" {
		t.Fatalf("snapshot: %+v", snap)
	}
	if snap.Standings[0].Score != 3 || snap.Standings[1].Name != "Bea" {
		t.Fatalf("standings: %+v", snap.Standings)
	}
}

func TestSessionResetContinuesStream(t *testing.T) {
	lab := counterLab(t)
	now := time.Unix(10, 0)

	s1, _ := lab.NewSessionWithSeed(counterID, 77)
	_ = s1.Join(mode.Player{ID: "a"})
	_ = s1.Start(now)
	first, _ := s1.ResolveAnswer(right("a"), now)
	if err := s1.Reset(); err != nil {
		t.Fatal(err)
	}
	if s1.Phase() != PhaseWaiting || s1.PlayerCount() != 1 {
		t.Fatalf("reset must return to waiting and keep players")
	}
	if st := s1.Standings(); len(st) != 0 {
		t.Fatalf("reset must drop mode state: %+v", st)
	}
	if err := s1.Start(now); err != nil {
		t.Fatal(err)
	}
	second, _ := s1.ResolveAnswer(right("a"), now)
	if d, _ := reward.DeltaAs[int](second); d != 1 {
		t.Fatalf("score must restart from zero after reset, got %d", d)
	}

	// 同 seed、不 Reset 連答兩題：數值序列必須一致（Reset 不會重新播種）
	s2, _ := lab.NewSessionWithSeed(counterID, 77)
	_ = s2.Join(mode.Player{ID: "a"})
	_ = s2.Start(now)
	a1, _ := s2.ResolveAnswer(right("a"), now)
	a2, _ := s2.ResolveAnswer(right("a"), now)
	if first.Amount != a1.Amount || second.Amount != a2.Amount {
		t.Fatalf("amounts %v,%v want %v,%v", first.Amount, second.Amount, a1.Amount, a2.Amount)
	}
}

func TestSessionCoreSnapshotRestore(t *testing.T) {
	s, _ := counterLab(t).NewSessionWithSeed(counterID, 9)
	now := time.Unix(10, 0)
	_ = s.Join(mode.Player{ID: "a"})
	_ = s.Join(mode.Player{ID: "b"})
	_ = s.Start(now)

	snap, err := s.SnapshotCore()
	if err != nil {
		t.Fatal(err)
	}
	o1, _ := s.ResolveAnswer(right("a"), now)
	if err := s.RestoreCore(snap); err != nil {
		t.Fatal(err)
	}
	o2, _ := s.ResolveAnswer(right("b"), now)
	if o1.Amount != o2.Amount {
		t.Fatalf("restored core must replay the same draw: %v vs %v", o1.Amount, o2.Amount)
	}
}

// ============================================================
// ** RoomRuntime **
// ============================================================

func TestRuntimeRoomFlow(t *testing.T) {
	rt, met, mem := counterRuntime(t)
	ctx := context.Background()
	seed := int64(11)

	info, err := rt.CreateRoom(ctx, counterID, &seed)
	if err != nil {
		t.Fatal(err)
	}
	if len(info.Code) != codeLen || strings.Trim(info.Code, codeAlphabet) != "" {
		t.Fatalf("bad room code %q", info.Code)
	}
	if info.Seed != seed || info.Phase != PhaseWaiting {
		t.Fatalf("info: %+v", info)
	}
	if got := testutil.ToFloat64(met.ActiveRooms); got != 1 {
		t.Fatalf("active rooms = %v", got)
	}

	events, cancel, err := rt.Subscribe(ctx, info.Code)
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	if err := rt.Join(ctx, info.Code, mode.Player{ID: "a", Name: "Amy"}); err != nil {
		t.Fatal(err)
	}
	if err := rt.Join(ctx, info.Code, mode.Player{ID: "b"}); err != nil {
		t.Fatal(err)
	}
	if err := rt.Start(ctx, info.Code); err != nil {
		t.Fatal(err)
	}
	o, err := rt.Answer(ctx, info.Code, right("a"))
	if err != nil || !o.Success {
		t.Fatalf("answer: %+v %v", o, err)
	}

	rs, err := mem.Read(ctx, info.Code)
	if err != nil {
		t.Fatal(err)
	}
	if rs.Phase != string(PhasePlaying) || len(rs.Players) != 2 {
		t.Fatalf("room state: %+v", rs)
	}
	if rs.Players[0].ID != "a" || rs.Players[0].Name != "Amy" || rs.Players[0].Score != 1 {
		t.Fatalf("player a: %+v", rs.Players[0])
	}

	rid := store.PlayerRecordID(info.Code, "a")
	deadline := time.After(time.Second)
	for found := false; !found; {
		select {
		case ev := <-events:
			found = ev.Type == store.EventPlayer && ev.Record == rid && ev.Fields["score"] == 1
		case <-deadline:
			t.Fatalf("no player event for %s", rid)
		}
	}

	if got := testutil.ToFloat64(met.Resolutions.WithLabelValues("counter", "score", "true")); got < 1 {
		t.Fatalf("resolutions counter = %v", got)
	}
	if m := rt.Metrics(); m.Rooms != 1 || m.Playing != 1 || m.Resolved < 1 {
		t.Fatalf("runtime metrics: %+v", m)
	}

	if _, err := rt.Answer(ctx, "NOPE42", right("a")); err == nil {
		t.Fatalf("unknown room must fail")
	} else {
		wantLevel(t, err, errs.Warn)
	}
}

func TestRuntimeTickerAndFinish(t *testing.T) {
	rt, _, mem := counterRuntime(t)
	ctx := context.Background()
	info, _ := rt.CreateRoom(ctx, counterID, nil)
	_ = rt.Join(ctx, info.Code, mode.Player{ID: "a"})
	if err := rt.Start(ctx, info.Code); err != nil {
		t.Fatal(err)
	}

	ticks := func() int {
		snap, err := rt.Room(ctx, info.Code)
		if err != nil {
			t.Fatal(err)
		}
		return snap.State.(map[string]int)["ticks"]
	}
	deadline := time.Now().Add(2 * time.Second)
	for ticks() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("ticker never fired")
		}
		time.Sleep(5 * time.Millisecond)
	}

	for range 3 {
		if _, err := rt.Answer(ctx, info.Code, right("a")); err != nil {
			t.Fatal(err)
		}
	}
	snap, _ := rt.Room(ctx, info.Code)
	if snap.Phase != PhaseFinished || snap.FinishReason != "target" {
		t.Fatalf("room must finish: %+v", snap)
	}
	rs, _ := mem.Read(ctx, info.Code)
	if rs.Phase != string(PhaseFinished) {
		t.Fatalf("finished phase must be saved: %+v", rs)
	}
	n := ticks()
	time.Sleep(30 * time.Millisecond)
	if ticks() != n {
		t.Fatalf("ticker must stop after the game finishes")
	}

	if err := rt.Reset(ctx, info.Code); err != nil {
		t.Fatal(err)
	}
	if ticks() != 0 {
		t.Fatalf("reset must rebuild the mode state")
	}
	if err := rt.Start(ctx, info.Code); err != nil {
		t.Fatalf("restart after reset: %v", err)
	}
}

func TestRuntimePanicClosesRoom(t *testing.T) {
	rt, met, _ := counterRuntime(t)
	ctx := context.Background()
	info, _ := rt.CreateRoom(ctx, counterID, nil)
	_ = rt.Join(ctx, info.Code, mode.Player{ID: "a"})
	_ = rt.Start(ctx, info.Code)

	_, err := rt.Answer(ctx, info.Code, mode.Answer{PlayerID: "a", ItemKey: "boom"})
	wantLevel(t, err, errs.Fatal)

	rooms := rt.Rooms()
	if len(rooms) != 1 || !rooms[0].Closed || rooms[0].CloseReason != reasonPanic {
		t.Fatalf("panicked room must stay listed as closed: %+v", rooms)
	}
	if m := rt.Metrics(); m.Panics != 1 || m.ClosedRooms != 1 {
		t.Fatalf("metrics: %+v", m)
	}
	if got := testutil.ToFloat64(met.RoomPanics); got != 1 {
		t.Fatalf("panic counter = %v", got)
	}
	if _, err := rt.Answer(ctx, info.Code, right("a")); err == nil {
		t.Fatalf("closed room must reject answers")
	}

	if err := rt.CloseRoom(ctx, info.Code); err != nil {
		t.Fatal(err)
	}
	if len(rt.Rooms()) != 0 {
		t.Fatalf("CloseRoom must remove the room")
	}
	wantLevel(t, rt.CloseRoom(ctx, info.Code), errs.Warn)
}

func TestRuntimeClose(t *testing.T) {
	rt, met, _ := counterRuntime(t)
	ctx := context.Background()
	for range 3 {
		info, _ := rt.CreateRoom(ctx, counterID, nil)
		_ = rt.Join(ctx, info.Code, mode.Player{ID: "a"})
		_ = rt.Start(ctx, info.Code)
	}

	done := make(chan struct{})
	go func() {
		rt.Close()
		rt.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Close must stop every ticker")
	}

	if !rt.Closed() || rt.ClosedReason() != reasonRuntime {
		t.Fatalf("closed=%v reason=%q", rt.Closed(), rt.ClosedReason())
	}
	if got := testutil.ToFloat64(met.ActiveRooms); got != 0 {
		t.Fatalf("active rooms after close = %v", got)
	}
	_, err := rt.CreateRoom(ctx, counterID, nil)
	wantLevel(t, err, errs.Fatal)
}

func TestRuntimeCanceledContext(t *testing.T) {
	rt, _, _ := counterRuntime(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := rt.CreateRoom(ctx, counterID, nil)
	wantLevel(t, err, errs.Warn)
}

// ============================================================
// ** Simulator **
// ============================================================

func simJSON(t *testing.T, s *Simulator, set SimSetting, questions, mp int) []byte {
	t.Helper()
	rep, _, err := s.SimMP(set, questions, mp, false)
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(rep)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestSimDeterministic(t *testing.T) {
	lab := builtinLab(t)
	set := SimSetting{Accuracy: 0.7}

	a, _ := lab.NewSimulatorWithSeed(1, 42)
	b, _ := lab.NewSimulatorWithSeed(1, 42)
	if !bytes.Equal(simJSON(t, a, set, 60, 3), simJSON(t, b, set, 60, 3)) {
		t.Fatalf("same seed must produce the same report")
	}

	c, _ := lab.NewSimulatorWithSeed(1, 42)
	rep, _, err := c.Sim(set, 60, false)
	if err != nil {
		t.Fatal(err)
	}
	single, _ := json.Marshal(rep)
	d, _ := lab.NewSimulatorWithSeed(1, 42)
	if !bytes.Equal(single, simJSON(t, d, set, 60, 1)) {
		t.Fatalf("Sim must equal SimMP with one worker")
	}
}

func TestSimAllModes(t *testing.T) {
	lab := builtinLab(t)
	for _, id := range lab.IDs() {
		sim, err := lab.NewSimulatorWithSeed(id, int64(id))
		if err != nil {
			t.Fatal(err)
		}
		rep, _, err := sim.SimMP(SimSetting{Accuracy: 0.6, Rounds: 10}, 40, 2, false)
		if err != nil {
			t.Fatalf("%s: %v", sim.ModeName, err)
		}
		s := rep.Summary
		if s.Answers == 0 || s.Outcomes < s.Answers || s.Games < 2 {
			t.Fatalf("%s: summary %+v", sim.ModeName, s)
		}
		if s.Accuracy < 0.4 || s.Accuracy > 0.8 {
			t.Fatalf("%s: accuracy %.3f far from 0.6", sim.ModeName, s.Accuracy)
		}
	}
}

func TestSimSettingValidation(t *testing.T) {
	sim, _ := builtinLab(t).NewSimulatorWithSeed(1, 1)
	if _, _, err := sim.Sim(SimSetting{Accuracy: 1.5}, 10, false); err == nil {
		t.Fatalf("accuracy > 1 must fail")
	}
	if _, _, err := sim.Sim(SimSetting{Players: 1000}, 10, false); err == nil {
		t.Fatalf("players > max_players must fail")
	}
	if _, _, err := sim.Sim(SimSetting{}, 0, false); err == nil {
		t.Fatalf("zero questions must fail")
	}
	if _, _, err := sim.SimMP(SimSetting{}, 10, 0, false); err == nil {
		t.Fatalf("zero workers must fail")
	}
}

func TestFishingTiersChiSquare(t *testing.T) {
	lab := builtinLab(t)
	sim, err := lab.NewSimulatorWithSeed(4, 2024)
	if err != nil {
		t.Fatal(err)
	}
	for _, rank := range []int{1, 3, 5} {
		rep, err := sim.FishingTiers(rank, 20000, rank == 5)
		if err != nil {
			t.Fatal(err)
		}
		tr := rep.Tiers
		if tr.Total() != 20000 || tr.GoF == nil {
			t.Fatalf("rank %d: tiers %+v", rank, tr)
		}
		if tr.GoF.PValue < 1e-4 {
			t.Fatalf("rank %d: tier draws do not match the rank row: %+v", rank, tr.GoF)
		}
	}
	if _, err := sim.FishingTiers(0, 10, false); err == nil {
		t.Fatalf("rank 0 must fail")
	}
	racing, _ := lab.NewSimulatorWithSeed(1, 1)
	if _, err := racing.FishingTiers(1, 10, false); err == nil {
		t.Fatalf("non-fishing mode must fail")
	}
}

// ============================================================
// ** Replay **
// ============================================================

func fishingScript() ReplayRequest {
	seed := int64(31337)
	steps := make([]ReplayStep, 0, 12)
	for i := range 12 {
		pid := "p1"
		if i%2 == 1 {
			pid = "p2"
		}
		a := mode.Answer{PlayerID: pid, IsCorrect: i%3 != 2, AnswerTimeMs: int64(500 * i), TimeLimitMs: 10000}
		steps = append(steps, ReplayStep{AtMs: int64(1000 * i), Answer: &a})
	}
	steps = append(steps, ReplayStep{AtMs: 20000, Tick: true})
	return ReplayRequest{
		ModeID:  4,
		Seed:    &seed,
		Players: []mode.Player{{ID: "p1", Name: "Amy"}, {ID: "p2", Name: "Ben"}},
		Steps:   steps,
	}
}

func TestReplayByteIdentical(t *testing.T) {
	lab := builtinLab(t)
	r1, err := lab.Replay(fishingScript())
	if err != nil {
		t.Fatal(err)
	}
	r2, err := lab.Replay(fishingScript())
	if err != nil {
		t.Fatal(err)
	}
	b1, _ := json.Marshal(r1)
	b2, _ := json.Marshal(r2)
	if !bytes.Equal(b1, b2) {
		t.Fatalf("replay must be byte-identical")
	}
	if len(r1.Outcomes) != 12 || r1.Before == r1.After {
		t.Fatalf("report: outcomes=%d before=%s after=%s", len(r1.Outcomes), r1.Before, r1.After)
	}

	// 以 before 快照起跑，結果與以 seed 起跑相同
	req := fishingScript()
	req.Seed = nil
	req.Core = r1.Before
	r3, err := lab.Replay(req)
	if err != nil {
		t.Fatal(err)
	}
	b3, _ := json.Marshal(r3.Outcomes)
	o1, _ := json.Marshal(r1.Outcomes)
	if !bytes.Equal(b3, o1) || r3.After != r1.After {
		t.Fatalf("replay from the core snapshot must match")
	}

	raw, err := corefmt.Unpack(r1.State)
	if err != nil {
		t.Fatal(err)
	}
	var snap map[string]any
	if err := json.Unmarshal(raw, &snap); err != nil || snap["mode_name"] != "fishing" {
		t.Fatalf("packed state must be the session snapshot: %v %v", snap["mode_name"], err)
	}
}

func TestReplayRejects(t *testing.T) {
	lab := builtinLab(t)

	req := fishingScript()
	req.Seed = nil
	_, err := lab.Replay(req)
	wantLevel(t, err, errs.Warn)

	req = fishingScript()
	req.Core = "%%%"
	_, err = lab.Replay(req)
	wantLevel(t, err, errs.Warn)

	req = fishingScript()
	req.Steps[3].Tick = true
	_, err = lab.Replay(req)
	wantLevel(t, err, errs.Warn)

	req = fishingScript()
	req.Steps[0].Answer.PlayerID = "ghost"
	_, err = lab.Replay(req)
	wantLevel(t, err, errs.Warn)
}
