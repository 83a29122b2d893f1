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
	"log/slog"
	"net/http"
	"strings"

	"github.com/zintix-labs/quizlab"
	"github.com/zintix-labs/quizlab/errs"
	"github.com/zintix-labs/quizlab/sdk/mode"
	"github.com/zintix-labs/quizlab/server/httperr"
	"github.com/zintix-labs/quizlab/server/netsvr"
	"github.com/zintix-labs/quizlab/server/svrcfg"
	"github.com/zintix-labs/quizlab/spec"
)

// RoomHandler 把 RoomRuntime 的操作包成 HTTP。
type RoomHandler struct {
	rt  *quizlab.RoomRuntime
	log *slog.Logger
}

func NewRoomHandler(sCfg *svrcfg.SvrCfg) (*RoomHandler, error) {
	if sCfg == nil || sCfg.Runtime == nil {
		return nil, errs.NewFatal("room runtime is required")
	}
	return &RoomHandler{rt: sCfg.Runtime, log: sCfg.Log}, nil
}

func roomCode(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(netsvr.URLParam(r, "code")))
}

// fail 寫回錯誤；5xx 與逾時另外記 log。
func (h *RoomHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	httperr.Log(h.log, "room."+op, errs.WrapWithExtra(err, op+" failed", roomCode(r)))
	httperr.Errs(w, err)
}

// Create POST /v1/rooms {"mode_id":1,"seed":123}
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	// 內部結構 不影響外部 也不被外部使用
	type createBody struct {
		ModeID spec.MID `json:"mode_id"`
		Seed   *int64   `json:"seed,omitempty"`
	}
	req := new(createBody)
	if err := decodeJSON(w, r, req); err != nil {
		httperr.Errs(w, err)
		return
	}
	if req.ModeID == 0 {
		httperr.Errs(w, errs.NewWarn("mode_id is required"))
		return
	}
	info, err := h.rt.CreateRoom(r.Context(), req.ModeID, req.Seed)
	if err != nil {
		h.fail(w, r, "create", err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// List GET /v1/rooms
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.rt.Rooms())
}

// Get GET /v1/rooms/{code}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.snapshot(w, r)
}

// State GET /v1/rooms/{code}/state：讀取 store 中的持久化樣貌。
func (h *RoomHandler) State(w http.ResponseWriter, r *http.Request) {
	// 只讀 runtime 仍持有的房間
	if _, err := h.rt.Room(r.Context(), roomCode(r)); err != nil {
		h.fail(w, r, "state", err)
		return
	}
	rs, err := h.rt.Store().Read(r.Context(), roomCode(r))
	if err != nil {
		h.fail(w, r, "state", err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

// Close DELETE /v1/rooms/{code}
func (h *RoomHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.rt.CloseRoom(r.Context(), roomCode(r)); err != nil {
		h.fail(w, r, "close", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Join POST /v1/rooms/{code}/join {"id":"p1","name":"Ann"}
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	p := new(mode.Player)
	if err := decodeJSON(w, r, p); err != nil {
		httperr.Errs(w, err)
		return
	}
	if err := h.rt.Join(r.Context(), roomCode(r), *p); err != nil {
		h.fail(w, r, "join", err)
		return
	}
	h.snapshot(w, r)
}

// Start POST /v1/rooms/{code}/start
func (h *RoomHandler) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.rt.Start(r.Context(), roomCode(r)); err != nil {
		h.fail(w, r, "start", err)
		return
	}
	h.snapshot(w, r)
}

// Reset POST /v1/rooms/{code}/reset
func (h *RoomHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.rt.Reset(r.Context(), roomCode(r)); err != nil {
		h.fail(w, r, "reset", err)
		return
	}
	h.snapshot(w, r)
}

// Answer POST /v1/rooms/{code}/answer，回傳該題的結算結果。
func (h *RoomHandler) Answer(w http.ResponseWriter, r *http.Request) {
	a := new(mode.Answer)
	if err := decodeJSON(w, r, a); err != nil {
		httperr.Errs(w, err)
		return
	}
	out, err := h.rt.Answer(r.Context(), roomCode(r), *a)
	if err != nil {
		h.fail(w, r, "answer", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Act POST /v1/rooms/{code}/act
func (h *RoomHandler) Act(w http.ResponseWriter, r *http.Request) {
	a := new(mode.Action)
	if err := decodeJSON(w, r, a); err != nil {
		httperr.Errs(w, err)
		return
	}
	out, err := h.rt.Act(r.Context(), roomCode(r), *a)
	if err != nil {
		h.fail(w, r, "act", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *RoomHandler) snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.rt.Room(r.Context(), roomCode(r))
	if err != nil {
		h.fail(w, r, "snapshot", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
