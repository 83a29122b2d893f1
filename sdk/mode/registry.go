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

// Package mode 定義模式邏輯的合約（Logic）、宿主（Host）與 builder 註冊表。
package mode

import (
	"fmt"
	"sort"

	"github.com/zintix-labs/quizlab/errs"
	"github.com/zintix-labs/quizlab/spec"
)

// LogicBuilder builds a Logic bound to a specific *Host (per-room instance).
// It is invoked when a session is created and again on every Reset.
type LogicBuilder func(h *Host) (Logic, error)

type LogicRegistry struct {
	builders map[spec.LogicKey]LogicBuilder
}

func NewLogicRegistry() *LogicRegistry {
	return &LogicRegistry{
		builders: make(map[spec.LogicKey]LogicBuilder, 16),
	}
}

func (r *LogicRegistry) Register(lkey spec.LogicKey, b LogicBuilder) error {
	if b == nil {
		return errs.NewFatal(fmt.Sprintf("nil logic builder: %s", lkey))
	}
	if _, ok := r.builders[lkey]; ok {
		return errs.NewFatal(fmt.Sprintf("duplicate logic builder: %s", lkey))
	}
	r.builders[lkey] = b
	return nil
}

func (r *LogicRegistry) Build(lkey spec.LogicKey, h *Host) (Logic, error) {
	b, ok := r.builders[lkey]
	if !ok {
		return nil, errs.NewFatal(fmt.Sprintf("logic is not exist: %s", lkey))
	}
	return b(h)
}

func (r *LogicRegistry) IsExist(lkey spec.LogicKey) bool {
	_, ok := r.builders[lkey]
	return ok
}

// Keys 回傳已註冊的 logic key（排序後）。
func (r *LogicRegistry) Keys() []spec.LogicKey {
	out := make([]spec.LogicKey, 0, len(r.builders))
	for k := range r.builders {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MergeLogicRegistry merges multiple registries into a new one.
//
// Because function values are not comparable in Go (except to nil), duplicate keys are treated
// as an error unconditionally.
func MergeLogicRegistry(regs ...*LogicRegistry) (*LogicRegistry, error) {
	lr := NewLogicRegistry()

	// Track where a key first came from to produce a useful error message.
	origin := make(map[spec.LogicKey]int, 16)

	for i, r := range regs {
		if r == nil {
			continue
		}
		for lkey, builder := range r.builders {
			if _, ok := lr.builders[lkey]; ok {
				prev := origin[lkey]
				return nil, errs.NewFatal(fmt.Sprintf("duplicate logic key %s (registry #%d and #%d)", lkey, prev, i))
			}
			lr.builders[lkey] = builder
			origin[lkey] = i
		}
	}

	return lr, nil
}
