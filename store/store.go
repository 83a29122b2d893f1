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

// Package store 是房間狀態的持久化 / 即時推播協作者。
//
// 核心只寫入差量（partial fields），不做衝突解決：同一欄位以最後一次寫入為準。
package store

import (
	"context"
	"strings"

	"github.com/zintix-labs/quizlab/errs"
	"github.com/zintix-labs/quizlab/sdk/reward"
)

// PlayerRow 是對外公開的玩家欄位。
type PlayerRow struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Gold     int    `json:"gold"`
	Position int    `json:"position"`
}

// RoomState 是房間目前的持久化樣貌。
type RoomState struct {
	Code     string      `json:"code"`
	ModeID   uint        `json:"mode_id"`
	ModeName string      `json:"mode_name"`
	Phase    string      `json:"phase"`
	Players  []PlayerRow `json:"players"`
}

// Event 類型。
const (
	EventRoom    = "room"    // 房間欄位變更（phase 等）
	EventPlayer  = "player"  // 玩家欄位變更
	EventOutcome = "outcome" // 一次結算結果
	EventClosed  = "closed"
)

// Event 是推播給訂閱者的變更通知。
type Event struct {
	Type    string          `json:"type"`
	Room    string          `json:"room"`
	Record  string          `json:"record,omitempty"`
	Fields  map[string]any  `json:"fields,omitempty"`
	Outcome *reward.Outcome `json:"outcome,omitempty"`
	At      int64           `json:"at"` // unix ms
}

// RoomStore 是核心依賴的協作者合約。
//
// Subscribe 回傳的 cancel 必須被呼叫以釋放資源；ctx 結束時也會自動釋放。
type RoomStore interface {
	Read(ctx context.Context, code string) (RoomState, error)
	Subscribe(ctx context.Context, code string) (<-chan Event, func(), error)
	Write(ctx context.Context, recordID string, fields map[string]any) error
	SaveRoom(ctx context.Context, rs RoomState) error
	Publish(ctx context.Context, code string, ev Event) error
	Delete(ctx context.Context, code string) error
	Close() error
}

var ErrNotFound = errs.NewWarn("room not found")

// RoomRecordID 回傳房間本身的 record id：room:{code}。
func RoomRecordID(code string) string {
	return "room:" + code
}

// PlayerRecordID 回傳玩家的 record id：room:{code}:player:{id}。
func PlayerRecordID(code, playerID string) string {
	return "room:" + code + ":player:" + playerID
}

// ParseRecordID 拆解 record id；playerID 為空代表房間本身。
func ParseRecordID(recordID string) (code, playerID string, err error) {
	rest, ok := strings.CutPrefix(recordID, "room:")
	if !ok || rest == "" {
		return "", "", errs.Warnf("invalid record id %q", recordID)
	}
	code, playerID, found := strings.Cut(rest, ":player:")
	if code == "" || strings.Contains(code, ":") {
		return "", "", errs.Warnf("invalid record id %q", recordID)
	}
	if found && playerID == "" {
		return "", "", errs.Warnf("invalid record id %q", recordID)
	}
	return code, playerID, nil
}

// PlayerFields 把 PlayerRow 攤平成 Write 用的欄位。
func PlayerFields(r PlayerRow) map[string]any {
	return map[string]any{
		"id":       r.ID,
		"name":     r.Name,
		"score":    r.Score,
		"gold":     r.Gold,
		"position": r.Position,
	}
}

// applyPlayer 把欄位合併進 row；未知欄位忽略。
func applyPlayer(row *PlayerRow, fields map[string]any) {
	for k, v := range fields {
		switch k {
		case "id":
			row.ID = asString(v)
		case "name":
			row.Name = asString(v)
		case "score":
			row.Score = asInt(v)
		case "gold":
			row.Gold = asInt(v)
		case "position":
			row.Position = asInt(v)
		}
	}
}

func applyRoom(rs *RoomState, fields map[string]any) {
	for k, v := range fields {
		switch k {
		case "code":
			rs.Code = asString(v)
		case "mode_id":
			rs.ModeID = uint(asInt(v))
		case "mode_name":
			rs.ModeName = asString(v)
		case "phase":
			rs.Phase = asString(v)
		}
	}
}

func roomFields(rs RoomState) map[string]any {
	return map[string]any{
		"code":      rs.Code,
		"mode_id":   rs.ModeID,
		"mode_name": rs.ModeName,
		"phase":     rs.Phase,
	}
}
