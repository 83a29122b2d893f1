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

package mafia

import (
	"fmt"
	"math"
	"time"

	"github.com/zintix-labs/quizlab/sdk/core"
	"github.com/zintix-labs/quizlab/sdk/reward"
)

const modeName = "mafia"

// Vault 是抽出的金庫實例。
type Vault struct {
	ID     string    `json:"id"`
	Band   string    `json:"band"`
	Kind   VaultKind `json:"kind"`
	Amount int       `json:"amount,omitempty"`
	Mult   float64   `json:"mult,omitempty"`
}

// Heister 是單一玩家（或 AI）的狀態。
type Heister struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Bot          bool      `json:"bot"`
	Cash         int       `json:"cash"`
	Diamonds     int       `json:"diamonds"`
	Stack        []float64 `json:"stack"`
	Round        []Vault   `json:"-"`
	Revealed     bool      `json:"revealed"`
	ExposedUntil time.Time `json:"exposed_until"`
	Caught       int       `json:"caught"`
	NextBotAct   time.Time `json:"-"`
}

// RoundDelta 是抽出的一回合；未作弊時不公開內容。
type RoundDelta struct {
	IDs    []string `json:"ids"`
	Vaults []Vault  `json:"vaults,omitempty"`
}

type OpenDelta struct {
	Vault      Vault     `json:"vault"`
	Multiplier float64   `json:"multiplier"`
	Gained     int       `json:"gained"`
	Stack      []float64 `json:"stack"`
}

type CatchDelta struct {
	CheaterID string  `json:"cheater_id"`
	Rate      float64 `json:"rate"`
	Amount    int     `json:"amount"`
	Police    bool    `json:"police"`
}

// Exposed 回報 now 是否仍在作弊暴露期內。
func (h *Heister) Exposed(now time.Time) bool {
	return !h.ExposedUntil.IsZero() && now.Before(h.ExposedUntil)
}

// CalculateTotalMultiplier 為堆疊倍率的乘積；空堆疊為 1。
func CalculateTotalMultiplier(stack []float64) float64 {
	m := 1.0
	for _, v := range stack {
		m *= v
	}
	return m
}

// DrawRound 以 AliasTable 獨立抽出 s.Options 個金庫。
func DrawRound(c *core.Core, s *Setting, newID func() string) []Vault {
	out := make([]Vault, 0, s.Options)
	for range s.Options {
		b := s.Bands[s.table.Pick(c)]
		out = append(out, Vault{ID: newID(), Band: b.Key, Kind: b.Kind, Amount: b.Amount, Mult: b.Mult})
	}
	return out
}

// StartRound 換上一組新的金庫，覆蓋尚未開啟的回合。
func StartRound(h *Heister, vaults []Vault) reward.Outcome {
	h.Round = vaults
	h.Revealed = false
	ids := make([]string, len(vaults))
	for i, v := range vaults {
		ids[i] = v.ID
	}
	return reward.Of(modeName, reward.KindVault, fmt.Sprintf("%d vaults to crack", len(vaults)), RoundDelta{IDs: ids}).By(h.ID, "")
}

// OpenVault 開啟第 idx 個金庫並結束回合。
//
//   - cash/diamond：floor(amount × 總倍率) 入帳，堆疊清空
//   - multiplier：推入堆疊
//   - empty：沒有獎勵，堆疊保留
//
// 沒有進行中的回合或 idx 無效時回傳 no-op。
func OpenVault(h *Heister, idx int) reward.Outcome {
	if len(h.Round) == 0 {
		return reward.Noop(modeName, "no vaults to open").By(h.ID, "")
	}
	if idx < 0 || idx >= len(h.Round) {
		return reward.Noop(modeName, fmt.Sprintf("invalid vault index %d", idx)).By(h.ID, "")
	}
	v := h.Round[idx]
	h.Round = nil
	h.Revealed = false

	total := CalculateTotalMultiplier(h.Stack)
	d := OpenDelta{Vault: v, Multiplier: total}
	var out reward.Outcome
	switch v.Kind {
	case VaultCash:
		d.Gained = int(math.Floor(float64(v.Amount) * total))
		h.Cash += d.Gained
		h.Stack = nil
		out = reward.Of(modeName, reward.KindCash, fmt.Sprintf("cracked %s +$%d", v.Band, d.Gained), d).With(float64(d.Gained), v.Band)
	case VaultDiamond:
		d.Gained = int(math.Floor(float64(v.Amount) * total))
		h.Diamonds += d.Gained
		h.Stack = nil
		out = reward.Of(modeName, reward.KindDiamond, fmt.Sprintf("found %d diamonds", d.Gained), d).With(float64(d.Gained), v.Band)
	case VaultMultiplier:
		h.Stack = append(h.Stack, v.Mult)
		d.Multiplier = CalculateTotalMultiplier(h.Stack)
		out = reward.Of(modeName, reward.KindMultiplier, fmt.Sprintf("x%g stacked (x%g)", v.Mult, d.Multiplier), d).With(v.Mult, v.Band)
	default:
		out = reward.Of(modeName, reward.KindEmpty, "the vault is empty", d).With(0, v.Band)
	}
	d.Stack = append([]float64(nil), h.Stack...)
	out.Delta = d
	return out.By(h.ID, "")
}

// Cheat 偷看本回合全部金庫，並從 now 起暴露 window。
func Cheat(h *Heister, now time.Time, window time.Duration) reward.Outcome {
	if len(h.Round) == 0 {
		return reward.Noop(modeName, "nothing to peek").By(h.ID, "")
	}
	if h.Revealed {
		return reward.Noop(modeName, "already peeked").By(h.ID, "")
	}
	h.Revealed = true
	h.ExposedUntil = now.Add(window)
	d := RoundDelta{Vaults: append([]Vault(nil), h.Round...)}
	for _, v := range h.Round {
		d.IDs = append(d.IDs, v.ID)
	}
	return reward.Of(modeName, reward.KindCheat, "peeked inside the vaults", d).By(h.ID, "")
}

// Investigate 調查 target：暴露期內抓到則把 floor(cash × rate) 轉給調查者；
// 沒抓到時調查者不付出任何代價。
func Investigate(inv, target *Heister, now time.Time, rate float64) reward.Outcome {
	if inv.ID == target.ID {
		return reward.Noop(modeName, "can not investigate yourself").By(inv.ID, target.ID)
	}
	if !target.Exposed(now) {
		return reward.Noop(modeName, target.Name+" looks clean").By(inv.ID, target.ID)
	}
	amt := int(math.Floor(float64(target.Cash) * rate))
	target.Cash -= amt
	target.ExposedUntil = time.Time{}
	target.Caught++
	inv.Cash += amt
	d := CatchDelta{CheaterID: target.ID, Rate: rate, Amount: amt}
	return reward.Of(modeName, reward.KindCaught, fmt.Sprintf("caught %s cheating, seized $%d", target.Name, amt), d).
		With(float64(amt), "").By(inv.ID, target.ID)
}

// SettleExposure 處理已逾時而未被抓到的暴露：以 policeChance 判定是否被警察沒收 floor(cash × rate)。
// 暴露尚未結束或未作弊時回傳 no-op，且不消耗亂數。
func SettleExposure(c *core.Core, h *Heister, now time.Time, policeChance, rate float64) reward.Outcome {
	if h.ExposedUntil.IsZero() || now.Before(h.ExposedUntil) {
		return reward.Noop(modeName, "not due")
	}
	h.ExposedUntil = time.Time{}
	if !c.Chance(policeChance) {
		return reward.Of(modeName, reward.KindCheat, "got away with it", CatchDelta{CheaterID: h.ID}).By(h.ID, "")
	}
	amt := int(math.Floor(float64(h.Cash) * rate))
	h.Cash -= amt
	h.Caught++
	d := CatchDelta{CheaterID: h.ID, Rate: rate, Amount: amt, Police: true}
	return reward.Of(modeName, reward.KindPenalty, fmt.Sprintf("police seized $%d", amt), d).With(float64(-amt), "").By(h.ID, "")
}

// BestVault 回傳已知內容下期望值最高的金庫索引（AI 作弊後使用）。
//
// 倍率金庫以「目前堆疊 × 新倍率」對最大現金的增益估值。
func BestVault(vaults []Vault, stack []float64) int {
	best, bestV := -1, -1.0
	total := CalculateTotalMultiplier(stack)
	maxCash := 0
	for _, v := range vaults {
		if v.Kind == VaultCash && v.Amount > maxCash {
			maxCash = v.Amount
		}
	}
	for i, v := range vaults {
		var val float64
		switch v.Kind {
		case VaultCash, VaultDiamond:
			val = float64(v.Amount) * total
		case VaultMultiplier:
			val = float64(maxCash) * total * (v.Mult - 1)
		}
		if val > bestV {
			best, bestV = i, val
		}
	}
	return best
}
