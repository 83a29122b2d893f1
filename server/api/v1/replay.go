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

	"github.com/zintix-labs/quizlab"
	"github.com/zintix-labs/quizlab/errs"
	"github.com/zintix-labs/quizlab/server/httperr"
)

type ReplayHandler struct {
	lab *quizlab.Lab
}

func NewReplayHandler(lab *quizlab.Lab) (*ReplayHandler, error) {
	if lab == nil {
		return nil, errs.NewFatal("lab is required")
	}
	return &ReplayHandler{lab: lab}, nil
}

// Replay POST /v1/replay：同一份劇本永遠回傳相同的報告。
func (h *ReplayHandler) Replay(w http.ResponseWriter, r *http.Request) {
	req := new(quizlab.ReplayRequest)
	if err := decodeJSON(w, r, req); err != nil {
		httperr.Errs(w, err)
		return
	}
	rep, err := h.lab.Replay(*req)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
