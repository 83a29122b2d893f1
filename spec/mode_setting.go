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

package spec

import (
	"fmt"

	"github.com/zintix-labs/quizlab/errs"
)

// MID 是模式設定的唯一 id。
type MID uint

// LogicKey 對應 mode.LogicRegistry 內的 builder。
type LogicKey string

const (
	defaultTickMs     = 1000
	defaultMaxPlayers = 30
)

// ModeSetting 包含啟動一個模式房間所需的所有高階設定。
//
// 共用欄位之外的表格（catalog、權重、價格）都放在 Fixed，
// 由各模式以 DecodeFixed 嚴格解碼成自己的型別。
type ModeSetting struct {
	ModeID     MID            `yaml:"mode_id"     json:"mode_id"`
	ModeName   string         `yaml:"mode_name"   json:"mode_name"`
	LogicKey   LogicKey       `yaml:"logic_key"   json:"logic_key"`
	TickMs     int            `yaml:"tick_ms"     json:"tick_ms"`
	MaxPlayers int            `yaml:"max_players" json:"max_players"`
	Fixed      map[string]any `yaml:"fixed"       json:"fixed"`
}

// init 補上預設值後檢查。
func (ms *ModeSetting) init() error {
	if ms.TickMs == 0 {
		ms.TickMs = defaultTickMs
	}
	if ms.MaxPlayers == 0 {
		ms.MaxPlayers = defaultMaxPlayers
	}
	if ms.Fixed == nil {
		ms.Fixed = map[string]any{}
	}
	return ms.valid()
}

// valid 執行最基本的設定檔檢查，模式專屬欄位由各模式 builder 驗證。
func (ms *ModeSetting) valid() error {
	if ms.ModeName == "" {
		return errs.NewFatal(fmt.Sprintf("mode_id: %d err:empty mode_name", ms.ModeID))
	}
	if ms.LogicKey == "" {
		return errs.NewFatal(fmt.Sprintf("mode_name: %s err:empty logic_key", ms.ModeName))
	}
	if ms.TickMs < 0 {
		return errs.NewFatal(fmt.Sprintf("mode_name: %s err:negative tick_ms", ms.ModeName))
	}
	if ms.MaxPlayers < 1 {
		return errs.NewFatal(fmt.Sprintf("mode_name: %s err:invalid max_players", ms.ModeName))
	}
	return nil
}
