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

// Package mafia 實作黑手黨金庫模式。
//
// 每答對一題抽出 options 個金庫（各自獨立、以 AliasTable 依權重抽樣），玩家開其中一個：
// 現金或鑽石會乘上目前累積的倍率堆疊後入帳並清空堆疊；倍率金庫則推入堆疊。
// 作弊可先看內容，但會暴露 cheat_window_ms；期間內被調查會被沒收
// investigator_penalty 的現金，逾時未被抓則有 police_chance 機率被沒收 timeout_penalty。
package mafia

import (
	"fmt"

	"github.com/zintix-labs/quizlab/errs"
	"github.com/zintix-labs/quizlab/sdk/sampler"
	"github.com/zintix-labs/quizlab/spec"
)

// VaultKind 是金庫內容類型。
type VaultKind string

const (
	VaultCash       VaultKind = "cash"
	VaultDiamond    VaultKind = "diamond"
	VaultMultiplier VaultKind = "multiplier"
	VaultEmpty      VaultKind = "empty"
)

// Band 是金庫機率表的一列。
type Band struct {
	Key    string    `yaml:"key"    json:"key"`
	Kind   VaultKind `yaml:"kind"   json:"kind"`
	Weight int       `yaml:"weight" json:"weight"`
	Amount int       `yaml:"amount" json:"amount,omitempty"`
	Mult   float64   `yaml:"mult"   json:"mult,omitempty"`
}

// BotWeights 是 AI 對手每次行動的分支權重。
type BotWeights struct {
	Earn        int `yaml:"earn"`
	Cheat       int `yaml:"cheat"`
	Investigate int `yaml:"investigate"`
	Idle        int `yaml:"idle"`
}

type Setting struct {
	StartCash           int        `yaml:"start_cash"`
	Options             int        `yaml:"options"`
	CheatWindowMs       int64      `yaml:"cheat_window_ms"`
	InvestigatorPenalty float64    `yaml:"investigator_penalty"`
	TimeoutPenalty      float64    `yaml:"timeout_penalty"`
	PoliceChance        float64    `yaml:"police_chance"`
	BotIntervalMs       int64      `yaml:"bot_interval_ms"`
	Bot                 BotWeights `yaml:"bot"`
	Bands               []Band     `yaml:"bands"`

	table *sampler.AliasTable
}

func LoadSetting(ms *spec.ModeSetting) (*Setting, error) {
	s := &Setting{}
	if err := spec.DecodeFixed(ms, s); err != nil {
		return nil, err
	}
	if err := s.init(); err != nil {
		return nil, errs.WrapWithExtra(err, "mafia setting invalid", ms.ModeName)
	}
	return s, nil
}

func (s *Setting) init() error {
	if s.Options <= 0 {
		s.Options = 3
	}
	if s.CheatWindowMs <= 0 {
		s.CheatWindowMs = 5000
	}
	if s.InvestigatorPenalty == 0 {
		s.InvestigatorPenalty = 0.30
	}
	if s.TimeoutPenalty == 0 {
		s.TimeoutPenalty = 0.50
	}
	if s.BotIntervalMs <= 0 {
		s.BotIntervalMs = 3000
	}
	for _, p := range []float64{s.InvestigatorPenalty, s.TimeoutPenalty, s.PoliceChance} {
		if p < 0 || p > 1 {
			return errs.NewFatal("penalty and chance must be within [0,1]")
		}
	}
	if s.Bot == (BotWeights{}) {
		s.Bot = BotWeights{Earn: 6, Cheat: 2, Investigate: 1, Idle: 1}
	}
	if len(s.Bands) == 0 {
		return errs.NewFatal("empty vault table")
	}
	weights := make([]int, len(s.Bands))
	for i, b := range s.Bands {
		switch b.Kind {
		case VaultCash, VaultDiamond:
			if b.Amount <= 0 {
				return errs.NewFatal(fmt.Sprintf("band %s: amount must be > 0", b.Key))
			}
		case VaultMultiplier:
			if b.Mult <= 0 {
				return errs.NewFatal(fmt.Sprintf("band %s: mult must be > 0", b.Key))
			}
		case VaultEmpty:
		default:
			return errs.NewFatal(fmt.Sprintf("band %s: unknown kind %q", b.Key, b.Kind))
		}
		weights[i] = b.Weight
	}
	t, err := sampler.BuildAliasTable(weights)
	if err != nil {
		return err
	}
	s.table = t
	return nil
}
