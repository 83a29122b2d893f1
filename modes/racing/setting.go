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

// Package racing 實作競速模式（racing 與 school-racing 共用同一套邏輯，只差道具目錄）。
//
// 答對前進 base_step + floor(speedScore × speed_steps) 格；每答對 item_every 題抽一個道具，
// 先以百分位 Bands 決定稀有度，再在該稀有度子池中均勻抽樣。
package racing

import (
	"fmt"

	"github.com/zintix-labs/quizlab/errs"
	"github.com/zintix-labs/quizlab/sdk/sampler"
	"github.com/zintix-labs/quizlab/spec"
)

// Effect 是道具效果。
type Effect string

const (
	EffectSpeed     Effect = "speed"
	EffectTeleport  Effect = "teleport"
	EffectShield    Effect = "shield"
	EffectFreeze    Effect = "freeze"
	EffectSwap      Effect = "swap"
	EffectKnockback Effect = "knockback"
	EffectRocket    Effect = "rocket"
)

// Target 是道具作用對象。
type Target string

const (
	TargetSelf     Target = "self"
	TargetOpponent Target = "opponent"
	TargetLeader   Target = "leader"
	TargetAll      Target = "all"
)

// Item 是道具模板（不可變）。
type Item struct {
	Key        string  `yaml:"key"         json:"key"`
	Name       string  `yaml:"name"        json:"name"`
	Tier       string  `yaml:"tier"        json:"tier"`
	Effect     Effect  `yaml:"effect"      json:"effect"`
	Target     Target  `yaml:"target"      json:"target"`
	Amount     float64 `yaml:"amount"      json:"amount"`
	DurationMs int64   `yaml:"duration_ms" json:"duration_ms"`
	Charges    int     `yaml:"charges"     json:"charges"`
}

// Setting 是 fixed 區塊的型別。
type Setting struct {
	TrackLength   int           `yaml:"track_length"`
	BaseStep      int           `yaml:"base_step"`
	SpeedSteps    int           `yaml:"speed_steps"`
	MissPenalty   int           `yaml:"miss_penalty"`
	ItemEvery     int           `yaml:"item_every"`
	FinishOnFirst bool          `yaml:"finish_on_first"`
	Bands         sampler.Bands `yaml:"bands"`
	Catalog       []Item        `yaml:"catalog"`

	pools map[string][]Item
	order []string
}

// LoadSetting 解碼並檢查 fixed 區塊。
func LoadSetting(ms *spec.ModeSetting) (*Setting, error) {
	s := &Setting{}
	if err := spec.DecodeFixed(ms, s); err != nil {
		return nil, err
	}
	if err := s.init(); err != nil {
		return nil, errs.WrapWithExtra(err, "racing setting invalid", ms.ModeName)
	}
	return s, nil
}

func (s *Setting) init() error {
	if s.TrackLength <= 0 {
		return errs.NewFatal("track_length must be > 0")
	}
	if s.BaseStep < 0 || s.SpeedSteps < 0 || s.MissPenalty < 0 || s.ItemEvery < 0 {
		return errs.NewFatal("negative movement setting")
	}
	if len(s.Bands) == 0 {
		s.Bands = sampler.DefaultBands
	}
	s.order = s.Bands.Tiers()
	known := make(map[string]struct{}, len(s.order))
	for _, t := range s.order {
		known[t] = struct{}{}
	}
	s.pools = make(map[string][]Item, len(s.order))
	seen := make(map[string]struct{}, len(s.Catalog))
	for _, it := range s.Catalog {
		if it.Key == "" {
			return errs.NewFatal("item key required")
		}
		if _, ok := seen[it.Key]; ok {
			return errs.NewFatal(fmt.Sprintf("duplicate item key: %s", it.Key))
		}
		seen[it.Key] = struct{}{}
		if _, ok := known[it.Tier]; !ok {
			return errs.NewFatal(fmt.Sprintf("item %s has unknown tier %q", it.Key, it.Tier))
		}
		s.pools[it.Tier] = append(s.pools[it.Tier], it)
	}
	return nil
}

// Pools 回傳依稀有度分組的道具子池。
func (s *Setting) Pools() map[string][]Item {
	return s.pools
}
