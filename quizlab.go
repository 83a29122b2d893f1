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

// Package quizlab 提供問答遊戲獎勵結算引擎的「組裝入口（assembler）」與「運行入口（runtime entry）」。
//
// Lab 負責把三個必需的地基組裝在一起，並提供建立 Session / RoomRuntime / Simulator 的入口：
//  1. Catalog：模式目錄（SSOT），定義有哪些模式、各自對應的設定檔名稱（ConfigName）。
//  2. LogicRegistry：邏輯註冊表，依 LogicKey 建出模式邏輯（racing、royale、fishing...）。
//  3. PRNGFactory：亂數核心工廠，保證同 seed 可重現、Core 可 Snapshot/Restore 審計。
//
// 設定檔來源一律以 fs.FS 注入（go:embed 或 os.DirFS），Lab 本身不處理路徑。
//
// 典型使用情境：
//   - 後端服務：lab.BuildRuntime(...) 取得 RoomRuntime，依房號處理加入/作答/操作。
//   - 模擬器：lab.NewSimulator(id) 以合成玩家大量作答並輸出統計報表。
//   - 稽核：lab.Replay(...) 以 seed 或 Core 快照重跑一段劇本，結果逐位元一致。
package quizlab

import (
	"crypto/rand"
	"fmt"
	"io/fs"
	"math"
	"math/big"
	"strings"

	"github.com/zintix-labs/quizlab/catalog"
	"github.com/zintix-labs/quizlab/errs"
	"github.com/zintix-labs/quizlab/sdk/core"
	"github.com/zintix-labs/quizlab/sdk/mode"
	"github.com/zintix-labs/quizlab/spec"
)

// Configs 把一或多個設定檔來源（fs.FS）打包成 New() 需要的參數。
//
// 可以用 go:embed 把 configs 編進 binary，也可以用 os.DirFS 在本機開發時讀取目錄。
func Configs(cfgs ...fs.FS) []fs.FS {
	return cfgs
}

// Logics 把一或多個邏輯註冊表打包成 New() 需要的參數。
//
// New() 會合併多個 registries；重複的 LogicKey 直接視為錯誤。
func Logics(regs ...*mode.LogicRegistry) []*mode.LogicRegistry {
	return regs
}

// Lab 是組裝器與運行入口。
//
// 使用流程分成兩階段：
//   - 註冊階段：建立 catalog、合併 registries、檢查重複與缺漏。
//   - 執行階段：Freeze 之後依模式 ID 建立 Session，或建立整個 RoomRuntime。
//
// Catalog 的 ID 唯一性只保證在同一個 Lab instance 內。
//
//	lab, _ := quizlab.NewAuto(core.Default(), quizlab.Configs(configs.FS), quizlab.Logics(modes.Logics))
//	s, _ := lab.NewSessionWithSeed(1, 42)
//	_ = s.Join(mode.Player{ID: "p1", Name: "Amy"})
type Lab struct {
	cat *catalog.Catalog
	reg *mode.LogicRegistry
	cf  core.PRNGFactory
	sum []catalog.Summary
}

// New 建立一個尚未註冊任何模式的 Lab。
//
// 參數要求：
//   - cf 不能為 nil：沒有 RNG 工廠就無法建立可重現的核心。
//   - cfgs 至少一個。
//   - logics 至少一個。
func New(cf core.PRNGFactory, cfgs []fs.FS, logics []*mode.LogicRegistry) (*Lab, error) {
	if cf == nil {
		return nil, errs.NewFatal("core factory required")
	}
	if len(cfgs) == 0 {
		return nil, errs.NewFatal("configs required")
	}
	if len(logics) == 0 {
		return nil, errs.NewFatal("logic registry required")
	}
	cata, err := catalog.New(cfgs...)
	if err != nil {
		return nil, err
	}
	reg, err := mode.MergeLogicRegistry(logics...)
	if err != nil {
		return nil, err
	}
	return &Lab{cat: cata, reg: reg, cf: cf}, nil
}

// NewAuto 建立 Lab、註冊所有設定檔並 Freeze，直接進入執行階段。
func NewAuto(cf core.PRNGFactory, cfgs []fs.FS, logics []*mode.LogicRegistry) (*Lab, error) {
	lab, err := New(cf, cfgs, logics)
	if err != nil {
		return nil, err
	}
	if err := lab.RegisterAll(); err != nil {
		return nil, err
	}
	lab.Freeze()
	return lab, nil
}

func (l *Lab) Register(ents ...catalog.Entry) error {
	return l.cat.Register(ents...)
}

// RegisterAll 解析 catalog 索引到的所有設定檔，以檔內宣告的 mode_id/mode_name 批次註冊。
//
// 行為特性：
//  1. Fail-fast：任何一個檔案讀取/解析失敗立刻回傳 error。
//  2. 原子性：全部通過檢查才呼叫一次 Register，catalog 不會停在半完成狀態。
//  3. 穩定性：依檔名排序處理。
//  4. LogicKey 必須已存在於 registry，否則整批失敗。
func (l *Lab) RegisterAll() error {
	names := l.cat.Cfg().Names()
	if len(names) == 0 {
		return errs.NewFatal("no config files found to register")
	}

	entries := make([]catalog.Entry, 0, len(names))
	seenID := map[spec.MID]string{}
	seenName := map[string]string{}

	for _, base := range names {
		raw, err := l.cat.Cfg().Read(base)
		if err != nil {
			return errs.NewFatal(fmt.Sprintf("read config failed: %s", base))
		}
		ms, err := catalog.ParseModeSetting(base, raw)
		if err != nil {
			return errs.WrapWithExtra(err, "parse mode setting failed", base)
		}

		name := strings.TrimSpace(ms.ModeName)
		if name == "" {
			return errs.NewFatal(fmt.Sprintf("mode name required: %s", base))
		}

		id := ms.ModeID
		if prev, ok := seenID[id]; ok {
			return errs.NewFatal(fmt.Sprintf("duplicate mode id: %d (config=%s and %s)", id, prev, base))
		}
		if _, ok := l.cat.GetByID(id); ok {
			return errs.NewFatal(fmt.Sprintf("mode id already registered: %d (config=%s)", id, base))
		}
		seenID[id] = base

		nameKey := strings.ToLower(name)
		if prev, ok := seenName[nameKey]; ok {
			return errs.NewFatal(fmt.Sprintf("duplicate mode name: %s (config=%s and %s)", nameKey, prev, base))
		}
		if _, ok := l.cat.GetByName(name); ok {
			return errs.NewFatal(fmt.Sprintf("mode name already registered: %s (config=%s)", name, base))
		}
		seenName[nameKey] = base

		if !l.reg.IsExist(ms.LogicKey) {
			return errs.NewFatal(fmt.Sprintf("logic not registered: logic_key=%s (config=%s)", ms.LogicKey, base))
		}

		entries = append(entries, catalog.Entry{
			MID:        id,
			Name:       name,
			Logic:      ms.LogicKey,
			ConfigName: base,
		})
	}
	return l.cat.Register(entries...)
}

func (l *Lab) Freeze() {
	l.cat.Freeze()
}

func (l *Lab) EntryByID(id spec.MID) (catalog.Entry, bool) {
	return l.cat.GetByID(id)
}

func (l *Lab) EntryByName(name string) (catalog.Entry, bool) {
	return l.cat.GetByName(name)
}

func (l *Lab) IDs() []spec.MID {
	return l.cat.IDs()
}

func (l *Lab) All() []catalog.Entry {
	return l.cat.All()
}

// Summary 回傳目錄摘要（結果會快取；catalog 必須已 Freeze）。
func (l *Lab) Summary() ([]catalog.Summary, error) {
	if !l.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	if l.sum != nil {
		return l.sum, nil
	}
	ids := l.cat.IDs()
	cs := make([]catalog.Summary, 0, len(ids))
	for _, id := range ids {
		ms, err := l.cat.ModeSettingByID(id)
		if err != nil {
			return nil, errs.Wrap(err, "parse mode setting failed")
		}
		cs = append(cs, catalog.Summary{
			MID:        id,
			Name:       ms.ModeName,
			Logic:      ms.LogicKey,
			TickMs:     ms.TickMs,
			MaxPlayers: ms.MaxPlayers,
		})
	}
	l.sum = cs
	return l.sum, nil
}

// ModeSetting 回傳指定模式的設定（每次都是新的副本）。
func (l *Lab) ModeSetting(id spec.MID) (*spec.ModeSetting, error) {
	return l.cat.ModeSettingByID(id)
}

// NewSession 依模式 ID 建立一個房間狀態容器，seed 由 crypto/rand 產生。
//
// seed 會被記錄在 Session 內；要在任意時間點完整重現，以 SnapshotCore/RestoreCore 為準。
func (l *Lab) NewSession(id spec.MID) (*Session, error) {
	seed, err := cryptoSeed()
	if err != nil {
		return nil, err
	}
	return l.NewSessionWithSeed(id, seed)
}

// NewSessionWithSeed 與 NewSession 相同，但由呼叫端指定初始 seed。
func (l *Lab) NewSessionWithSeed(id spec.MID, seed int64) (*Session, error) {
	ms, err := l.frozenSetting(id)
	if err != nil {
		return nil, err
	}
	return newSessionWithSeed(ms, l.reg, l.cf, seed, false)
}

// NewSessionByYAML 以外部提供的 YAML 設定建立 Session（設定必須對應已註冊的模式）。
func (l *Lab) NewSessionByYAML(raw []byte, seed int64) (*Session, error) {
	if !l.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	ms, err := spec.GetModeSettingByYAML(raw)
	if err != nil {
		return nil, err
	}
	if err := l.validCfg(ms); err != nil {
		return nil, err
	}
	return newSessionWithSeed(ms, l.reg, l.cf, seed, true)
}

func (l *Lab) frozenSetting(id spec.MID) (*spec.ModeSetting, error) {
	if !l.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	return l.cat.ModeSettingByID(id)
}

func (l *Lab) validCfg(ms *spec.ModeSetting) error {
	ent, ok := l.cat.GetByID(ms.ModeID)
	if !ok {
		return errs.NewWarn("mode id not exist")
	}
	ent2, ok := l.cat.GetByName(ms.ModeName)
	if !ok {
		return errs.NewWarn("mode name not exist")
	}
	if ent.MID != ent2.MID {
		return errs.NewWarn("mode id is not matched mode name")
	}
	if !l.reg.IsExist(ms.LogicKey) {
		return errs.NewWarn("mode logic not exist")
	}
	return nil
}

func cryptoSeed() (int64, error) {
	seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return 0, errs.Wrap(err, "new crypto seed error in go std lib")
	}
	return seed.Int64(), nil
}
