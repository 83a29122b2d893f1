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

// Package royale 實作雪球大逃殺：答對丟雪球扣對手體溫，最後一位體溫 > 0 的玩家獲勝。
package royale

import (
	"fmt"

	"github.com/zintix-labs/quizlab/errs"
	"github.com/zintix-labs/quizlab/spec"
)

// Class 是角色職業。
type Class struct {
	Key           string  `yaml:"key"             json:"key"`
	Name          string  `yaml:"name"            json:"name"`
	DamageMult    float64 `yaml:"damage_mult"     json:"damage_mult"`
	Defense       float64 `yaml:"defense"         json:"defense"`
	MaxHealth     int     `yaml:"max_health"      json:"max_health"`
	HealOnCorrect int     `yaml:"heal_on_correct" json:"heal_on_correct"`
}

type Setting struct {
	BaseDamage         float64 `yaml:"base_damage"`
	SpeedBonus         float64 `yaml:"speed_bonus"`
	CritChance         float64 `yaml:"crit_chance"`
	CritMult           float64 `yaml:"crit_mult"`
	GiantMult          float64 `yaml:"giant_mult"`
	GiantEvery         int     `yaml:"giant_every"`
	SuddenDeathEveryMs int64   `yaml:"sudden_death_every_ms"`
	SuddenDeathStep    float64 `yaml:"sudden_death_step"`
	BlizzardEveryMs    int64   `yaml:"blizzard_every_ms"`
	BlizzardDamage     int     `yaml:"blizzard_damage"`
	Classes            []Class `yaml:"classes"`

	byKey map[string]Class
}

func LoadSetting(ms *spec.ModeSetting) (*Setting, error) {
	s := &Setting{}
	if err := spec.DecodeFixed(ms, s); err != nil {
		return nil, err
	}
	if err := s.init(); err != nil {
		return nil, errs.WrapWithExtra(err, "royale setting invalid", ms.ModeName)
	}
	return s, nil
}

func (s *Setting) init() error {
	if s.BaseDamage <= 0 {
		return errs.NewFatal("base_damage must be > 0")
	}
	if s.CritMult == 0 {
		s.CritMult = 2
	}
	if s.GiantMult == 0 {
		s.GiantMult = 3
	}
	if s.SuddenDeathEveryMs <= 0 {
		return errs.NewFatal("sudden_death_every_ms must be > 0")
	}
	if len(s.Classes) == 0 {
		return errs.NewFatal("empty classes")
	}
	s.byKey = make(map[string]Class, len(s.Classes))
	for _, c := range s.Classes {
		if c.MaxHealth <= 0 {
			return errs.NewFatal(fmt.Sprintf("class %s: max_health must be > 0", c.Key))
		}
		if c.Defense < 0 || c.DamageMult < 0 {
			return errs.NewFatal(fmt.Sprintf("class %s: negative multiplier", c.Key))
		}
		if _, ok := s.byKey[c.Key]; ok {
			return errs.NewFatal(fmt.Sprintf("duplicate class: %s", c.Key))
		}
		s.byKey[c.Key] = c
	}
	return nil
}

// Class 依 key 取得職業。
func (s *Setting) Class(key string) (Class, bool) {
	c, ok := s.byKey[key]
	return c, ok
}
