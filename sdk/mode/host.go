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
	"fmt"

	"github.com/google/uuid"
	"github.com/zintix-labs/quizlab/errs"
	"github.com/zintix-labs/quizlab/sdk/core"
	"github.com/zintix-labs/quizlab/spec"
)

// Host 是 Logic 執行期的宿主：持有設定與 Core，並負責透過 registry 建立 Logic。
//
// 一個 Host 對應一個房間（Session）；Logic 可在 Reset 時重建，Host 與 Core 不變，
// 亂數流因此延續而非重置。
type Host struct {
	Core        *core.Core
	ModeSetting *spec.ModeSetting
	ModeName    string
	ModeID      spec.MID
	IsSim       bool
}

// NewHost 建立 Host，使用呼叫端提供的 ModeSetting 與 Core。
func NewHost(ms *spec.ModeSetting, c *core.Core, isSim bool) (*Host, error) {
	if ms == nil {
		return nil, errs.NewFatal("nil mode setting")
	}
	if c == nil {
		return nil, errs.NewFatal("nil core")
	}
	return &Host{
		Core:        c,
		ModeSetting: ms,
		ModeName:    ms.ModeName,
		ModeID:      ms.ModeID,
		IsSim:       isSim,
	}, nil
}

// Build 依 LogicKey 從 registry 建立一個新的 Logic。
func (h *Host) Build(reg *LogicRegistry) (Logic, error) {
	logic, err := reg.Build(h.ModeSetting.LogicKey, h)
	if err != nil {
		return nil, errs.Wrap(err, fmt.Sprintf("build logic failed: mode=%q lkey=%q", h.ModeName, h.ModeSetting.LogicKey))
	}
	return logic, nil
}

// NewID 以 Core 的亂數流產生 uuid v4，確保同 seed 可重現。
func (h *Host) NewID() string {
	id, err := uuid.NewRandomFromReader(h.Core.Reader())
	if err != nil {
		// coreReader 不會失敗
		return uuid.Nil.String()
	}
	return id.String()
}
