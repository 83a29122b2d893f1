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

package sampler

import (
	"github.com/zintix-labs/quizlab/sdk/core"
)

// Band 是一條百分位門檻：擲出的 r（0~100）>= Above 即落在此稀有度。
type Band struct {
	Tier  string  `yaml:"tier"  json:"tier"`
	Above float64 `yaml:"above" json:"above"`
}

// Bands 由高稀有度到低稀有度排序，最後一條通常 Above=0（保底）。
//
// 例：legendary>=95, epic>=80, rare>=50, common>=0
type Bands []Band

// DefaultBands 是競速道具使用的預設稀有度區間。
var DefaultBands = Bands{
	{Tier: "legendary", Above: 95},
	{Tier: "epic", Above: 80},
	{Tier: "rare", Above: 50},
	{Tier: "common", Above: 0},
}

// Roll 擲一次 [0,100) 並回傳對應稀有度；沒有任何一條命中時回傳最後一條。
// 空 Bands 回傳空字串。
func (b Bands) Roll(c *core.Core) string {
	if len(b) == 0 {
		return ""
	}
	r := c.Float64() * 100
	return b.tierOf(r)
}

func (b Bands) tierOf(r float64) string {
	for _, band := range b {
		if r >= band.Above {
			return band.Tier
		}
	}
	return b[len(b)-1].Tier
}

// Tiers 依 Bands 順序回傳稀有度名稱（高到低）。
func (b Bands) Tiers() []string {
	out := make([]string, len(b))
	for i, band := range b {
		out[i] = band.Tier
	}
	return out
}

// PickTiered 兩段式抽樣：先以 tier 決定稀有度，再在 pools[tier] 中均勻抽一個。
//
// order 為稀有度由高到低的順序，用於子池為空時的退路：
// 先往更低稀有度找第一個非空子池，找不到再往更高稀有度找。所有子池皆空時回傳 false。
func PickTiered[T any](c *core.Core, tier string, order []string, pools map[string][]T) (T, string, bool) {
	var zero T
	if items := pools[tier]; len(items) > 0 {
		return items[c.IntN(len(items))], tier, true
	}
	at := -1
	for i, t := range order {
		if t == tier {
			at = i
			break
		}
	}
	// 往低稀有度
	for i := at + 1; i < len(order); i++ {
		if items := pools[order[i]]; len(items) > 0 {
			return items[c.IntN(len(items))], order[i], true
		}
	}
	// 往高稀有度
	for i := min(at, len(order)) - 1; i >= 0; i-- {
		if items := pools[order[i]]; len(items) > 0 {
			return items[c.IntN(len(items))], order[i], true
		}
	}
	return zero, "", false
}
