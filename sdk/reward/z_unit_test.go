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

package reward

import (
	"encoding/json"
	"testing"
)

type moveDelta struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func TestOfAndDeltaAs(t *testing.T) {
	o := Of("racing", KindMove, "moved 4", moveDelta{From: 40, To: 44}).By("p1", "").With(4, "")
	if !o.Success || o.Failed() {
		t.Fatalf("Of must be successful")
	}
	d, ok := DeltaAs[moveDelta](o)
	if !ok || d.To != 44 {
		t.Fatalf("DeltaAs = %+v %v", d, ok)
	}
	if _, ok := DeltaAs[string](o); ok {
		t.Fatalf("wrong delta type must not match")
	}
	if o.PlayerID != "p1" || o.Amount != 4 {
		t.Fatalf("By/With not applied: %+v", o)
	}
}

func TestNoop(t *testing.T) {
	o := Noop("cafe", "no stock")
	if o.Success || o.Kind != KindNone || !o.Failed() {
		t.Fatalf("noop = %+v", o)
	}
	if _, ok := DeltaAs[moveDelta](o); ok {
		t.Fatalf("noop carries no delta")
	}
}

func TestOutcomeJSON(t *testing.T) {
	o := Of("fishing", KindCatch, "caught", map[string]int{"value": 12})
	raw, err := json.Marshal(o)
	if err != nil {
		t.Fatal(err)
	}
	var back map[string]any
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}
	if back["kind"] != "catch" || back["mode"] != "fishing" {
		t.Fatalf("json = %s", raw)
	}
}
