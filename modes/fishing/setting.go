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

// Package fishing 實作夾娃娃機：答對時依機台等級的稀有度權重抽一隻娃娃，
// 分數在娃娃模板的 [min,max] 之間依作答速度插值。
package fishing

import (
	"fmt"
	"slices"

	"github.com/zintix-labs/quizlab/errs"
	"github.com/zintix-labs/quizlab/spec"
)

// Doll 是娃娃模板。
type Doll struct {
	Key  string `yaml:"key"  json:"key"`
	Name string `yaml:"name" json:"name"`
	Tier string `yaml:"tier" json:"tier"`
	Min  int    `yaml:"min"  json:"min"`
	Max  int    `yaml:"max"  json:"max"`
}

type Setting struct {
	// Tiers 由低稀有度到高稀有度。
	Tiers []string `yaml:"tiers"`
	// Ranks[r][i] 是機台等級 r+1 抽到 Tiers[i] 的權重。
	Ranks [][]float64 `yaml:"ranks"`
	// Unlocks[r] 是升到等級 r+1 所需的累積答對數。
	Unlocks      []int   `yaml:"unlocks"`
	FrenzyChance float64 `yaml:"frenzy_chance"`
	FrenzyMult   int     `yaml:"frenzy_mult"`
	Dolls        []Doll  `yaml:"dolls"`

	pools map[string][]Doll
	order []string // 高到低，給 PickTiered 當退路
}

func LoadSetting(ms *spec.ModeSetting) (*Setting, error) {
	s := &Setting{}
	if err := spec.DecodeFixed(ms, s); err != nil {
		return nil, err
	}
	if err := s.init(); err != nil {
		return nil, errs.WrapWithExtra(err, "fishing setting invalid", ms.ModeName)
	}
	return s, nil
}

func (s *Setting) init() error {
	if len(s.Tiers) == 0 {
		return errs.NewFatal("empty tiers")
	}
	if len(s.Ranks) == 0 {
		return errs.NewFatal("empty ranks")
	}
	for i, row := range s.Ranks {
		if len(row) != len(s.Tiers) {
			return errs.NewFatal(fmt.Sprintf("rank %d has %d weights, want %d", i+1, len(row), len(s.Tiers)))
		}
	}
	if len(s.Unlocks) != len(s.Ranks) {
		return errs.NewFatal("unlocks must match ranks")
	}
	if !slices.IsSorted(s.Unlocks) {
		return errs.NewFatal("unlocks must be non-decreasing")
	}
	if s.FrenzyMult == 0 {
		s.FrenzyMult = 2
	}
	s.order = slices.Clone(s.Tiers)
	slices.Reverse(s.order)
	s.pools = make(map[string][]Doll, len(s.Tiers))
	for _, d := range s.Dolls {
		if !slices.Contains(s.Tiers, d.Tier) {
			return errs.NewFatal(fmt.Sprintf("doll %s has unknown tier %q", d.Key, d.Tier))
		}
		if d.Min < 0 || d.Max < d.Min {
			return errs.NewFatal(fmt.Sprintf("doll %s has invalid range [%d,%d]", d.Key, d.Min, d.Max))
		}
		s.pools[d.Tier] = append(s.pools[d.Tier], d)
	}
	if len(s.Dolls) == 0 {
		return errs.NewFatal("empty dolls")
	}
	return nil
}

// MaxRank 是最高機台等級。
func (s *Setting) MaxRank() int { return len(s.Ranks) }

// TierIndex 回傳稀有度在 Tiers 中的位置（越大越稀有），未知為 -1。
func (s *Setting) TierIndex(tier string) int {
	return slices.Index(s.Tiers, tier)
}
