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
	"math"
	"testing"
	"time"

	"github.com/zintix-labs/quizlab/sdk/core"
	"github.com/zintix-labs/quizlab/sdk/mode"
	"github.com/zintix-labs/quizlab/sdk/reward"
	"github.com/zintix-labs/quizlab/spec"
)

func testSetting(t *testing.T) *Setting {
	t.Helper()
	s := &Setting{
		Width: 200, Height: 100, BallRadius: 2, PocketRadius: 6,
		MinPower: 2, MaxPower: 10,
		HoleValue: 10, SpeedBonus: 10, StreakBonus: 5,
	}
	if err := s.init(); err != nil {
		t.Fatal(err)
	}
	return s
}

// 從開球點 (50,50) 朝左上角袋口。
var toTopLeft = math.Atan2(-50, -50)

func TestZeroVelocityStaysAtRest(t *testing.T) {
	tb := testSetting(t).Table()
	b := Ball{X: 50, Y: 50}
	got := SimulateBallPhysics(b, tb)
	if got != b || !got.AtRest() {
		t.Fatalf("ball at rest moved: %+v", got)
	}
	if got := Launch(b, 1.2, 0); !got.AtRest() {
		t.Fatalf("zero power must leave the ball at rest")
	}
}

func TestSpeedDecaysToExactZero(t *testing.T) {
	s := testSetting(t)
	tb := s.Table()
	b := Ball{X: 100, Y: 50, VX: 3, VY: 0.5}
	prev := b.Speed()
	for step := 0; step < 1000; step++ {
		b = SimulateBallPhysics(b, tb)
		sp := b.Speed()
		if b.AtRest() {
			if b.VX != 0 || b.VY != 0 {
				t.Fatalf("velocity must be exactly zero")
			}
			if prev*s.Friction >= s.StopThreshold {
				t.Fatalf("stopped too early at speed %v", prev)
			}
			return
		}
		if sp >= prev {
			t.Fatalf("step %d: speed %v did not decay from %v", step, sp, prev)
		}
		if math.Abs(sp-prev*s.Friction) > 1e-9 {
			t.Fatalf("step %d: speed %v want %v", step, sp, prev*s.Friction)
		}
		if b.X < tb.BallRadius || b.X > tb.Width-tb.BallRadius || b.Y < tb.BallRadius || b.Y > tb.Height-tb.BallRadius {
			t.Fatalf("ball left the table: %+v", b)
		}
		prev = sp
	}
	t.Fatalf("ball never came to rest")
}

func TestWallReflects(t *testing.T) {
	tb := testSetting(t).Table()
	b := SimulateBallPhysics(Ball{X: 197, Y: 50, VX: 5}, tb)
	if b.X != 198 || b.VX >= 0 {
		t.Fatalf("right wall must clamp and reflect: %+v", b)
	}
	b = SimulateBallPhysics(Ball{X: 50, Y: 3, VY: -4}, tb)
	if b.Y != 2 || b.VY <= 0 {
		t.Fatalf("top wall must clamp and reflect: %+v", b)
	}
}

func TestShotPowerAndPoints(t *testing.T) {
	s := testSetting(t)
	if ShotPower(s, 0) != 2 || ShotPower(s, 1) != 10 || ShotPower(s, 0.5) != 6 {
		t.Fatalf("power must interpolate min..max")
	}
	if got := PocketPoints(s, 0.55, 3, false); got != 10+5+15 {
		t.Fatalf("points = %d", got)
	}
	if got := PocketPoints(s, 0.55, 3, true); got != 60 {
		t.Fatalf("doubled points = %d", got)
	}
}

func TestRollOutPockets(t *testing.T) {
	s := testSetting(t)
	r := RollOut(Launch(Rack(s), toTopLeft, 10), s.Table(), s.MaxSteps)
	if r.Pocket != 0 {
		t.Fatalf("aimed shot must drop in the top-left pocket: %+v", r)
	}
	r = RollOut(Launch(Rack(s), 0, 10), s.Table(), s.MaxSteps)
	if r.Pocket != -1 || !r.Final.AtRest() {
		t.Fatalf("flat shot along the middle must miss and stop: %+v", r)
	}
}

func newGame(t *testing.T) *Game {
	t.Helper()
	ms := &spec.ModeSetting{
		ModeID: 7, ModeName: "pool", LogicKey: LogicKey, TickMs: 1000, MaxPlayers: 2,
		Fixed: map[string]any{
			"width": 200, "height": 100, "ball_radius": 2, "pocket_radius": 6,
			"min_power": 2, "max_power": 10, "hole_value": 10, "speed_bonus": 10, "streak_bonus": 5,
		},
	}
	h, _ := mode.NewHost(ms, core.New(core.Default().New(3)), true)
	l, err := Build(h)
	if err != nil {
		t.Fatal(err)
	}
	g := l.(*Game)
	g.Start([]mode.Player{{ID: "p", Name: "P"}}, time.Unix(0, 0))
	return g
}

func TestGameStreakAndBonus(t *testing.T) {
	g := newGame(t)
	now := time.Unix(1, 0)
	answer := mode.Answer{PlayerID: "p", IsCorrect: true, AnswerTimeMs: 0, TimeLimitMs: 10000}
	shoot := mode.Action{PlayerID: "p", Name: mode.ActShoot, Angle: toTopLeft}

	if o := g.Act(shoot, now); o.Success {
		t.Fatalf("shooting without a charge must fail")
	}
	want := []int{20, 25, 30}
	for i, w := range want {
		if o := g.Resolve(answer, now); o.Kind != reward.KindCharge {
			t.Fatalf("charge: %+v", o)
		}
		o := g.Act(shoot, now)
		d, _ := reward.DeltaAs[ShotDelta](o)
		if d.Points != w || d.Streak != i+1 {
			t.Fatalf("shot %d: points=%d streak=%d", i, d.Points, d.Streak)
		}
	}
	sh, _ := g.Shooter("p")
	sh.Bonus = true
	g.Resolve(answer, now)
	o := g.Act(shoot, now)
	if d, _ := reward.DeltaAs[ShotDelta](o); d.Points != 70 || !d.Doubled || sh.Bonus {
		t.Fatalf("bonus must double and be consumed: %+v", d)
	}

	if o := g.Resolve(mode.Answer{PlayerID: "p", IsCorrect: false}, now); o.Kind != reward.KindPenalty || sh.Streak != 0 {
		t.Fatalf("incorrect answer must reset the streak")
	}
	if o := g.Resolve(mode.Answer{PlayerID: "p", IsCorrect: false}, now); o.Success {
		t.Fatalf("no streak left: must be a no-op")
	}
	if st := g.Standings(); st[0].Score != 20+25+30+70 {
		t.Fatalf("score = %d", st[0].Score)
	}
}

func TestGameMissResetsStreak(t *testing.T) {
	g := newGame(t)
	now := time.Unix(1, 0)
	sh, _ := g.Shooter("p")
	sh.Streak = 4
	g.Resolve(mode.Answer{PlayerID: "p", IsCorrect: true, AnswerTimeMs: 0, TimeLimitMs: 10000}, now)
	o := g.Act(mode.Action{PlayerID: "p", Name: mode.ActShoot, Angle: 0}, now)
	if !o.Success || o.Amount != 0 || sh.Streak != 0 || sh.Charged {
		t.Fatalf("miss: %+v shooter=%+v", o, sh)
	}
	if sh.Ball == Rack(g.s) || !sh.Ball.AtRest() {
		t.Fatalf("cue ball must stay where it stopped: %+v", sh.Ball)
	}
}
