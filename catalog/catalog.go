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

// Package catalog 是模式目錄：記錄有哪些模式、各自對應哪一個設定檔。
package catalog

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zintix-labs/quizlab/errs"
	"github.com/zintix-labs/quizlab/spec"
)

var (
	ErrDupID   = errs.NewFatal("duplicate mode id")
	ErrDupName = errs.NewFatal("duplicate mode name")
)

type Entry struct {
	MID        spec.MID
	Name       string
	Logic      spec.LogicKey
	ConfigName string
}

type Summary struct {
	MID        spec.MID      `json:"mid"         yaml:"mid"`
	Name       string        `json:"name"        yaml:"name"`
	Logic      spec.LogicKey `json:"logic"       yaml:"logic"`
	TickMs     int           `json:"tick_ms"     yaml:"tick_ms"`
	MaxPlayers int           `json:"max_players" yaml:"max_players"`
}

type Catalog struct {
	byID   map[spec.MID]Entry
	byName map[string]Entry
	ids    []spec.MID          // 用來穩定排序
	unique map[string]struct{} // 一個設定檔只能對應一個模式
	config *multiFS
	frozen bool
}

func New(cfg ...fs.FS) (*Catalog, error) {
	multFS, err := newMultiFS(cfg...)
	if err != nil {
		return nil, errs.Wrap(err, "can not create catalog")
	}
	return &Catalog{
		byID:   map[spec.MID]Entry{},
		byName: map[string]Entry{},
		ids:    make([]spec.MID, 0, 16),
		unique: map[string]struct{}{},
		config: multFS,
	}, nil
}

// Register 批次註冊；任何一筆不合法則整批不寫入。
func (c *Catalog) Register(metas ...Entry) error {
	if c.frozen {
		return errs.NewWarn("can not register when catalog already frozen")
	}
	seenID := map[spec.MID]struct{}{}
	seenName := map[string]struct{}{}
	seenCfg := map[string]struct{}{}
	for i := range metas {
		meta := &metas[i]
		meta.Name = normName(meta.Name)
		if meta.Name == "" {
			return errs.NewFatal("mode name required")
		}
		if err := validFileName(meta.ConfigName); err != nil {
			return err
		}
		if _, ok := c.config.index[meta.ConfigName]; !ok {
			return errs.NewFatal(fmt.Sprintf("config file not found: %s", meta.ConfigName))
		}
		if _, ok := c.byID[meta.MID]; ok {
			return ErrDupID
		}
		if _, ok := seenID[meta.MID]; ok {
			return ErrDupID
		}
		if _, ok := c.byName[meta.Name]; ok {
			return ErrDupName
		}
		if _, ok := seenName[meta.Name]; ok {
			return ErrDupName
		}
		_, dupCfg := c.unique[meta.ConfigName]
		_, dupSeen := seenCfg[meta.ConfigName]
		if dupCfg || dupSeen {
			return errs.NewFatal(fmt.Sprintf("duplicate config name: %s", meta.ConfigName))
		}
		seenID[meta.MID] = struct{}{}
		seenName[meta.Name] = struct{}{}
		seenCfg[meta.ConfigName] = struct{}{}
	}
	for _, meta := range metas {
		c.unique[meta.ConfigName] = struct{}{}
		c.byID[meta.MID] = meta
		c.byName[meta.Name] = meta
		c.ids = append(c.ids, meta.MID)
	}
	sort.Slice(c.ids, func(i, j int) bool { return c.ids[i] < c.ids[j] })
	return nil
}

func (c *Catalog) GetByID(id spec.MID) (Entry, bool) {
	m, ok := c.byID[id]
	return m, ok
}

func (c *Catalog) GetByName(name string) (Entry, bool) {
	m, ok := c.byName[normName(name)]
	return m, ok
}

func (c *Catalog) IDs() []spec.MID {
	if len(c.ids) == 0 {
		return nil
	}
	return append([]spec.MID(nil), c.ids...)
}

func (c *Catalog) All() []Entry {
	m := make([]Entry, 0, len(c.ids))
	for _, id := range c.ids {
		m = append(m, c.byID[id])
	}
	return m
}

func (c *Catalog) Cfg() *multiFS {
	return c.config
}

func (c *Catalog) Freeze() {
	c.frozen = true
}

func (c *Catalog) IsFrozen() bool {
	return c.frozen
}

// ModeSettingByID
//
// 會讀取 fs.FS 中的 YAML/JSON 設定、補預設值並執行基本檢查後回傳。
// 每次呼叫都回傳新的 *spec.ModeSetting，呼叫端可安全持有。
func (c *Catalog) ModeSettingByID(id spec.MID) (*spec.ModeSetting, error) {
	e, ok := c.GetByID(id)
	if !ok {
		return nil, errs.Warnf("mode id %d does not exist in catalog", id)
	}
	return c.load(e.ConfigName)
}

// ModeSettingByName 同 ModeSettingByID，以模式名稱查找（大小寫不敏感）。
func (c *Catalog) ModeSettingByName(name string) (*spec.ModeSetting, error) {
	e, ok := c.GetByName(name)
	if !ok {
		return nil, errs.Warnf("mode name %q does not exist in catalog", name)
	}
	return c.load(e.ConfigName)
}

func (c *Catalog) load(file string) (*spec.ModeSetting, error) {
	src, ok := c.config.GetFS(file)
	if !ok {
		return nil, errs.Warnf("config %q does not exist in catalog", file)
	}
	raw, err := fs.ReadFile(src, file)
	if err != nil {
		return nil, errs.Wrap(err, "catalog read file error")
	}
	return ParseModeSetting(file, raw)
}

// ParseModeSetting 依副檔名選擇 YAML 或 JSON 解析。
func ParseModeSetting(filename string, raw []byte) (*spec.ModeSetting, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return spec.GetModeSettingByYAML(raw)
	case ".json":
		return spec.GetModeSettingByJSON(raw)
	default:
		return nil, errs.NewFatal(fmt.Sprintf("unsupported config format: %q", filename))
	}
}

func normName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func isConfigFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

func validFileName(file string) error {
	if file == "" {
		return errs.NewFatal("empty config filename")
	}
	if strings.ContainsAny(file, `/\:`) {
		return errs.NewFatal(fmt.Sprintf("invalid config filename: %q (must be a basename)", file))
	}
	if !isConfigFile(file) {
		return errs.NewFatal(fmt.Sprintf("invalid config filename: %q (must end with .yaml, .yml, or .json)", file))
	}
	if strings.HasPrefix(file, ".") {
		return errs.NewFatal(fmt.Sprintf("invalid config filename: %q (cannot start with '.')", file))
	}
	return nil
}

// multiFS 把多個扁平設定目錄合併成單一索引：檔名 -> 來源。
type multiFS struct {
	src   []fs.FS
	index map[string]int
	names []string // 排序後的檔名
}

func newMultiFS(src ...fs.FS) (*multiFS, error) {
	if len(src) == 0 {
		return nil, errs.NewFatal("no fs provided")
	}
	for i, s := range src {
		if s == nil {
			return nil, errs.NewFatal(fmt.Sprintf("fs[%d] is nil", i))
		}
	}

	m := &multiFS{
		src:   src,
		index: make(map[string]int, 32),
	}

	for i := range src {
		err := fs.WalkDir(src[i], ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				// 設定目錄必須是扁平的：只允許根目錄 "."
				if path == "." {
					return nil
				}
				return errs.NewFatal(fmt.Sprintf("config FS must be flat (no subdirectories): %q", path))
			}
			if strings.HasPrefix(path, ".") || !isConfigFile(path) {
				return nil
			}
			if prev, ok := m.index[path]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate config %q in fs[%d] and fs[%d]", path, prev, i))
			}
			m.index[path] = i
			m.names = append(m.names, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(m.names)
	return m, nil
}

func (m *multiFS) GetFS(name string) (fs.FS, bool) {
	if id, ok := m.index[name]; ok {
		return m.src[id], ok
	}
	return nil, false
}

// Names 回傳所有已索引的設定檔名（排序後）。
func (m *multiFS) Names() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.names...)
}

// Read 讀取指定設定檔原始內容。
func (m *multiFS) Read(name string) ([]byte, error) {
	src, ok := m.GetFS(name)
	if !ok {
		return nil, errs.Warnf("config %q not indexed", name)
	}
	raw, err := fs.ReadFile(src, name)
	if err != nil {
		return nil, errs.Wrap(err, "read config failed: "+name)
	}
	return raw, nil
}
