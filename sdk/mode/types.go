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

package mode

import (
	"time"

	"github.com/zintix-labs/quizlab/sdk/reward"
)

// Answer 是一次作答的結果事件，產生後立即交給 Logic.Resolve，不會被保存。
type Answer struct {
	PlayerID     string `json:"player_id"`
	IsCorrect    bool   `json:"is_correct"`
	AnswerTimeMs int64  `json:"answer_time_ms"`
	TimeLimitMs  int64  `json:"time_limit_ms"`
	ItemKey      string `json:"item_key,omitempty"`  // cafe: 作答對應的菜單品項
	TargetID     string `json:"target_id,omitempty"` // royale: 指定攻擊目標
}

// Action 是模式專屬的主動操作（serve/buy/unlock/open/cheat/investigate/shoot/use_item...）。
type Action struct {
	PlayerID string  `json:"player_id"`
	Name     string  `json:"name"`
	TargetID string  `json:"target_id,omitempty"`
	ItemKey  string  `json:"item_key,omitempty"`
	Index    int     `json:"index"`
	Angle    float64 `json:"angle"`
}

// Player 是加入房間的玩家。Bot=true 由模式自行驅動（例如 mafia 的 AI 對手）。
//
// Class 是玩家自選的角色（目前只有 royale 使用）；空字串或未知的 key 由模式自行分配。
type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Bot   bool   `json:"bot,omitempty"`
	Class string `json:"class,omitempty"`
}

// Standing 是對外（store/排行）公開的玩家數值。
//
// 不同模式只填自己有意義的欄位：racing 用 Position，cafe/factory/mafia 用 Gold，其餘用 Score。
type Standing struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Gold     int    `json:"gold"`
	Position int    `json:"position"`
	Rank     int    `json:"rank,omitempty"`
	Alive    bool   `json:"alive"`
}

// Logic 是模式邏輯的合約。
//
// 合約：
//   - 非並行安全，由上層 Session 持鎖後呼叫。
//   - 所有時間以參數 now 傳入，Logic 不可自行讀取時鐘。
//   - 所有隨機由 Host.Core 取得，不可使用全域亂數。
//   - Resolve/Act/Tick 不回傳 error：guard 失敗以 Outcome.Success=false 表達。
type Logic interface {
	Start(players []Player, now time.Time)
	Resolve(a Answer, now time.Time) reward.Outcome
	Act(a Action, now time.Time) reward.Outcome
	Tick(now time.Time) []reward.Outcome
	Standings() []Standing
	Snapshot() any
	Finished() (bool, string)
}

// Autoplayer 由模式選擇性實作：替模擬玩家挑一個合理的主動操作（沒有可做的事時回傳 false）。
//
// 只給 Simulator 使用；挑選過程不得消耗 Core 亂數流以外的隨機來源。
type Autoplayer interface {
	AutoAction(playerID string, now time.Time) (Action, bool)
}

// Action 名稱。
const (
	ActUseItem     = "use_item"
	ActServe       = "serve"
	ActBuy         = "buy"
	ActUpgrade     = "upgrade"
	ActUnlock      = "unlock"
	ActOpen        = "open"
	ActCheat       = "cheat"
	ActInvestigate = "investigate"
	ActShoot       = "shoot"
)
