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

package mode_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/zintix-labs/quizlab/sdk/core"
	"github.com/zintix-labs/quizlab/sdk/mode"
	"github.com/zintix-labs/quizlab/sdk/reward"
	"github.com/zintix-labs/quizlab/spec"
)

type testLogic struct{ h *mode.Host }

func (t *testLogic) Start([]mode.Player, time.Time) {}
func (t *testLogic) Resolve(a mode.Answer, _ time.Time) reward.Outcome {
	return reward.Of("demo", reward.KindScore, "ok", 1).By(a.PlayerID, "")
}
func (t *testLogic) Act(mode.Action, time.Time) reward.Outcome { return reward.Noop("demo", "no") }
func (t *testLogic) Tick(time.Time) []reward.Outcome         { return nil }
func (t *testLogic) Standings() []mode.Standing               { return nil }
func (t *testLogic) Snapshot() any                            { return nil }
func (t *testLogic) Finished() (bool, string)                 { return false, "" }

func newBuilder(h *mode.Host) (mode.Logic, error) { return &testLogic{h: h}, nil }

func testHost(t *testing.T, seed int64) *mode.Host {
	t.Helper()
	ms := &spec.ModeSetting{ModeID: 1, ModeName: "demo", LogicKey: "demo", TickMs: 1000, MaxPlayers: 4}
	h, err := mode.NewHost(ms, core.New(core.Default().New(seed)), false)
	if err != nil {
		t.Fatalf("new host: %v", err)
	}
	return h
}

func TestLogicRegistry(t *testing.T) {
	reg := mode.NewLogicRegistry()
	if err := reg.Register("demo", newBuilder); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := reg.Register("demo", newBuilder); err == nil {
		t.Fatalf("expected duplicate register error")
	}
	if err := reg.Register("nil", nil); err == nil {
		t.Fatalf("expected nil builder error")
	}
	h := testHost(t, 1)
	if _, err := h.Build(reg); err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if _, err := reg.Build("missing", h); err == nil {
		t.Fatalf("expected missing logic error")
	}

	reg2 := mode.NewLogicRegistry()
	_ = reg2.Register("demo", newBuilder)
	if _, err := mode.MergeLogicRegistry(reg, reg2); err == nil {
		t.Fatalf("expected merge duplicate error")
	}
	reg3 := mode.NewLogicRegistry()
	_ = reg3.Register("other", newBuilder)
	merged, err := mode.MergeLogicRegistry(reg, nil, reg3)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	keys := merged.Keys()
	if len(keys) != 2 || keys[0] != "demo" || keys[1] != "other" {
		t.Fatalf("keys = %v", keys)
	}
}

func TestHostNewIDDeterministic(t *testing.T) {
	a, b := testHost(t, 42), testHost(t, 42)
	for i := 0; i < 5; i++ {
		x, y := a.NewID(), b.NewID()
		if x != y {
			t.Fatalf("same seed must give same ids: %s vs %s", x, y)
		}
		u, err := uuid.Parse(x)
		if err != nil || u.Version() != 4 {
			t.Fatalf("id %q is not a v4 uuid", x)
		}
	}
	if testHost(t, 43).NewID() == testHost(t, 42).NewID() {
		t.Fatalf("different seeds should give different ids")
	}
}

func TestNewHostGuards(t *testing.T) {
	if _, err := mode.NewHost(nil, core.New(core.Default().New(1)), false); err == nil {
		t.Fatalf("nil setting must fail")
	}
	if _, err := mode.NewHost(&spec.ModeSetting{}, nil, false); err == nil {
		t.Fatalf("nil core must fail")
	}
}
