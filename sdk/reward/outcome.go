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

// Package reward 定義所有模式共用的判定結果型別 Outcome。
//
// Outcome 是一個 tagged variant：Kind 決定這是哪一種獎勵（移動、傷害、現金、捕獲...），
// Delta 攜帶模式自己的強型別差量（例如 racing.MoveDelta、fishing.Catch）。
// 建立時用 Of[D]，讀取時用 DeltaAs[D]，避免各模式各自發明 {type, amount, message}。
package reward

// Kind 為獎勵種類。
type Kind string

const (
	KindNone       Kind = "none"
	KindMove       Kind = "move"
	KindItem       Kind = "item"
	KindDamage     Kind = "damage"
	KindHeal       Kind = "heal"
	KindEliminated Kind = "eliminated"
	KindCatch      Kind = "catch"
	KindCash       Kind = "cash"
	KindRestock    Kind = "restock"
	KindServe      Kind = "serve"
	KindSpawn      Kind = "spawn"
	KindExpire     Kind = "expire"
	KindUpgrade    Kind = "upgrade"
	KindVault      Kind = "vault"
	KindMultiplier Kind = "multiplier"
	KindDiamond    Kind = "diamond"
	KindEmpty      Kind = "empty"
	KindCheat      Kind = "cheat"
	KindCaught     Kind = "caught"
	KindScore      Kind = "score"
	KindCharge     Kind = "charge"
	KindPenalty    Kind = "penalty"
	KindFinish     Kind = "finish"
)

// Outcome 是一次判定（作答、動作、tick 事件）的結果。
//
// Success=false 表示 guard 條件成立（現金不足、無庫存、無對手、已達上限、輸入無效），
// 此時狀態保證未被修改。
type Outcome struct {
	Mode     string  `json:"mode"`
	Kind     Kind    `json:"kind"`
	Success  bool    `json:"success"`
	PlayerID string  `json:"player_id,omitempty"`
	TargetID string  `json:"target_id,omitempty"`
	Amount   float64 `json:"amount"`
	Tier     string  `json:"tier,omitempty"`
	Message  string  `json:"message"`
	Delta    any     `json:"delta,omitempty"`
}

// Of 建立一個成功的 Outcome，並以強型別 D 攜帶差量。
func Of[D any](mode string, kind Kind, msg string, delta D) Outcome {
	return Outcome{
		Mode:    mode,
		Kind:    kind,
		Success: true,
		Message: msg,
		Delta:   delta,
	}
}

// Noop 建立一個 no-op 結果（Success=false, Kind=none）。
func Noop(mode, msg string) Outcome {
	return Outcome{Mode: mode, Kind: KindNone, Message: msg}
}

// DeltaAs 取回 Outcome 內的強型別差量。
func DeltaAs[D any](o Outcome) (D, bool) {
	d, ok := o.Delta.(D)
	return d, ok
}

// By 設定行動者與目標，回傳修改後的副本（方便鏈式建立）。
func (o Outcome) By(playerID, targetID string) Outcome {
	o.PlayerID = playerID
	o.TargetID = targetID
	return o
}

// With 設定數值與稀有度。
func (o Outcome) With(amount float64, tier string) Outcome {
	o.Amount = amount
	o.Tier = tier
	return o
}

// Failed 回報此結果是否為 no-op。
func (o Outcome) Failed() bool {
	return !o.Success
}
