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

// Package factory 實作工廠放置經營：機台依 rate × level 每秒產出現金（tick 累計），
// 答對題目另外拿一筆與產能無關的 lump reward。
package factory

import (
	"fmt"

	"github.com/zintix-labs/quizlab/errs"
	"github.com/zintix-labs/quizlab/spec"
)

// Machine 是可購買的機台模板。
//
// 第一台以 Cost 購買（level 0→1），之後每升一級花費 UpgradeCost × 目前等級。
type Machine struct {
	Key         string  `yaml:"key"          json:"key"`
	Name        string  `yaml:"name"         json:"name"`
	Rate        float64 `yaml:"rate"         json:"rate"`
	Cost        int     `yaml:"cost"         json:"cost"`
	UpgradeCost int     `yaml:"upgrade_cost" json:"upgrade_cost"`
	MaxLevel    int     `yaml:"max_level"    json:"max_level"`
}

type Setting struct {
	StartCash int       `yaml:"start_cash"`
	LumpBase  int       `yaml:"lump_base"`
	Machines  []Machine `yaml:"machines"`
}

func LoadSetting(ms *spec.ModeSetting) (*Setting, error) {
	s := &Setting{}
	if err := spec.DecodeFixed(ms, s); err != nil {
		return nil, err
	}
	if err := s.init(); err != nil {
		return nil, errs.WrapWithExtra(err, "factory setting invalid", ms.ModeName)
	}
	return s, nil
}

func (s *Setting) init() error {
	if s.StartCash < 0 || s.LumpBase < 0 {
		return errs.NewFatal("start_cash and lump_base must be >= 0")
	}
	if len(s.Machines) == 0 {
		return errs.NewFatal("no machines")
	}
	seen := make(map[string]struct{}, len(s.Machines))
	for _, m := range s.Machines {
		if m.Key == "" {
			return errs.NewFatal("machine key required")
		}
		if _, ok := seen[m.Key]; ok {
			return errs.NewFatal(fmt.Sprintf("duplicate machine key: %s", m.Key))
		}
		seen[m.Key] = struct{}{}
		if m.Rate < 0 || m.Cost < 0 || m.UpgradeCost < 0 {
			return errs.NewFatal(fmt.Sprintf("machine %s: negative value", m.Key))
		}
		if m.MaxLevel <= 0 {
			return errs.NewFatal(fmt.Sprintf("machine %s: max_level must be > 0", m.Key))
		}
	}
	return nil
}

func (s *Setting) machine(key string) (Machine, bool) {
	for _, m := range s.Machines {
		if m.Key == key {
			return m, true
		}
	}
	return Machine{}, false
}
