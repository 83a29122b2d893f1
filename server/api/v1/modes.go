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

package v1

import (
	"net/http"
	"strconv"

	"github.com/zintix-labs/quizlab"
	"github.com/zintix-labs/quizlab/errs"
	"github.com/zintix-labs/quizlab/server/httperr"
	"github.com/zintix-labs/quizlab/server/netsvr"
	"github.com/zintix-labs/quizlab/spec"
)

type ModeHandler struct {
	lab *quizlab.Lab
}

func NewModeHandler(lab *quizlab.Lab) (*ModeHandler, error) {
	if lab == nil {
		return nil, errs.NewFatal("lab is required")
	}
	return &ModeHandler{lab: lab}, nil
}

// Modes 回傳目錄摘要（依 mode id 排序）。
func (h *ModeHandler) Modes(w http.ResponseWriter, r *http.Request) {
	sum, err := h.lab.Summary()
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// Mode 回傳單一模式的完整設定（含 fixed 表）。
func (h *ModeHandler) Mode(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(netsvr.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		httperr.Errs(w, errs.NewWarn("mode id must be positive integer"))
		return
	}
	ms, err := h.lab.ModeSetting(spec.MID(id))
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ms)
}
