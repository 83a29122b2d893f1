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

package spec

import "testing"

const sampleYAML = `
mode_id: 7
mode_name: demo
logic_key: demo_logic
fixed:
  track_length: 50
  items:
    - key: a
      weight: 3
`

type sampleFixed struct {
	TrackLength int `yaml:"track_length"`
	Items       []struct {
		Key    string `yaml:"key"`
		Weight int    `yaml:"weight"`
	} `yaml:"items"`
}

func TestGetModeSettingByYAMLDefaults(t *testing.T) {
	ms, err := GetModeSettingByYAML([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if ms.ModeID != 7 || ms.LogicKey != "demo_logic" {
		t.Fatalf("unexpected setting: %+v", ms)
	}
	if ms.TickMs != defaultTickMs || ms.MaxPlayers != defaultMaxPlayers {
		t.Fatalf("defaults not applied: tick=%d max=%d", ms.TickMs, ms.MaxPlayers)
	}
}

func TestGetModeSettingRejectsMissingLogic(t *testing.T) {
	if _, err := GetModeSettingByYAML([]byte("mode_id: 1\nmode_name: x\n")); err == nil {
		t.Fatalf("expected error for empty logic_key")
	}
	if _, err := GetModeSettingByJSON([]byte(`{"mode_id":1,"logic_key":"k"}`)); err == nil {
		t.Fatalf("expected error for empty mode_name")
	}
	if _, err := GetModeSettingByJSON([]byte(`{`)); err == nil {
		t.Fatalf("expected error for broken json")
	}
}

func TestDecodeFixed(t *testing.T) {
	ms, err := GetModeSettingByYAML([]byte(sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	var f sampleFixed
	if err := DecodeFixed(ms, &f); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if f.TrackLength != 50 || len(f.Items) != 1 || f.Items[0].Weight != 3 {
		t.Fatalf("decoded = %+v", f)
	}
}

func TestDecodeFixedKnownFields(t *testing.T) {
	ms := &ModeSetting{ModeName: "x", Fixed: map[string]any{"track_lenght": 10}}
	var f sampleFixed
	if err := DecodeFixed(ms, &f); err == nil {
		t.Fatalf("misspelled field must fail strict decode")
	}
	if err := DecodeFixed[sampleFixed](nil, &f); err == nil {
		t.Fatalf("nil setting must fail")
	}
}
