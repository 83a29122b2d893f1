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

// Package cafe 實作咖啡廳放置經營：客人定時出現點餐，耐心耗盡即離開（不扣分）；
// 出餐扣庫存加現金，答對補一份庫存，升級提高來客速度與售價。
//
// 所有狀態操作都是「失敗回傳原指標、成功回傳新副本」。
package cafe

import (
	"fmt"

	"github.com/zintix-labs/quizlab/errs"
	"github.com/zintix-labs/quizlab/spec"
)

type MenuItem struct {
	Key        string `yaml:"key"         json:"key"`
	Name       string `yaml:"name"        json:"name"`
	BasePrice  int    `yaml:"base_price"  json:"base_price"`
	Unlocked   bool   `yaml:"unlocked"    json:"unlocked"`
	UnlockCost int    `yaml:"unlock_cost" json:"unlock_cost"`
	StartStock int    `yaml:"start_stock" json:"start_stock"`
}

type Upgrade struct {
	Key        string  `yaml:"key"         json:"key"`
	Name       string  `yaml:"name"        json:"name"`
	Cost       int     `yaml:"cost"        json:"cost"`
	CostGrowth float64 `yaml:"cost_growth" json:"cost_growth"`
	SpawnMult  float64 `yaml:"spawn_mult"  json:"spawn_mult"`
	SellMult   float64 `yaml:"sell_mult"   json:"sell_mult"`
	MaxLevel   int     `yaml:"max_level"   json:"max_level"`
}

type Setting struct {
	StartCash       int        `yaml:"start_cash"`
	PatienceMs      int64      `yaml:"patience_ms"`
	SpawnIntervalMs int64      `yaml:"spawn_interval_ms"`
	MaxCustomers    int        `yaml:"max_customers"`
	MaxStock        int        `yaml:"max_stock"`
	Menu            []MenuItem `yaml:"menu"`
	Upgrades        []Upgrade  `yaml:"upgrades"`
}

func LoadSetting(ms *spec.ModeSetting) (*Setting, error) {
	s := &Setting{}
	if err := spec.DecodeFixed(ms, s); err != nil {
		return nil, err
	}
	if err := s.init(); err != nil {
		return nil, errs.WrapWithExtra(err, "cafe setting invalid", ms.ModeName)
	}
	return s, nil
}

func (s *Setting) init() error {
	if s.PatienceMs <= 0 || s.SpawnIntervalMs <= 0 {
		return errs.NewFatal("patience_ms and spawn_interval_ms must be > 0")
	}
	if s.MaxCustomers <= 0 || s.MaxStock <= 0 {
		return errs.NewFatal("max_customers and max_stock must be > 0")
	}
	if len(s.Menu) == 0 {
		return errs.NewFatal("empty menu")
	}
	seen := map[string]struct{}{}
	for _, m := range s.Menu {
		if _, ok := seen[m.Key]; ok {
			return errs.NewFatal(fmt.Sprintf("duplicate menu key: %s", m.Key))
		}
		seen[m.Key] = struct{}{}
		if m.BasePrice < 0 || m.StartStock < 0 {
			return errs.NewFatal(fmt.Sprintf("menu %s: negative value", m.Key))
		}
	}
	for i := range s.Upgrades {
		u := &s.Upgrades[i]
		if _, ok := seen[u.Key]; ok {
			return errs.NewFatal(fmt.Sprintf("duplicate key: %s", u.Key))
		}
		seen[u.Key] = struct{}{}
		if u.CostGrowth == 0 {
			u.CostGrowth = 1
		}
		if u.SpawnMult == 0 {
			u.SpawnMult = 1
		}
		if u.SellMult == 0 {
			u.SellMult = 1
		}
		if u.MaxLevel <= 0 {
			return errs.NewFatal(fmt.Sprintf("upgrade %s: max_level must be > 0", u.Key))
		}
	}
	return nil
}

func (s *Setting) menuItem(key string) (MenuItem, bool) {
	for _, m := range s.Menu {
		if m.Key == key {
			return m, true
		}
	}
	return MenuItem{}, false
}

func (s *Setting) upgrade(key string) (Upgrade, bool) {
	for _, u := range s.Upgrades {
		if u.Key == key {
			return u, true
		}
	}
	return Upgrade{}, false
}
