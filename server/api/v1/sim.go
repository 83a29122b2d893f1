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
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/zintix-labs/quizlab"
	"github.com/zintix-labs/quizlab/errs"
	"github.com/zintix-labs/quizlab/server/httperr"
	"github.com/zintix-labs/quizlab/spec"
	"github.com/zintix-labs/quizlab/stats"
)

const (
	maxSimQuestions = 1_000_000
	maxSimWorkers   = 64
	maxTierDraws    = 5_000_000
)

type SimHandler struct {
	lab *quizlab.Lab
}

func NewSimHandler(lab *quizlab.Lab) (*SimHandler, error) {
	if lab == nil {
		return nil, errs.NewFatal("lab is required")
	}
	return &SimHandler{lab: lab}, nil
}

// 內部結構 不影響外部 也不被外部使用
type simResponse struct {
	Report   *stats.SimReport `json:"report"`
	UsedTime int64            `json:"used_ms"`
	Seed     int64            `json:"seed"`
}

// Sim GET|POST /v1/sim
//
// questions 為每個 worker 的題數；workers > 1 時走 SimMP。
// format 為 table 或 yaml 時以純文字回傳報表，其餘回 JSON。
func (sh *SimHandler) Sim(w http.ResponseWriter, r *http.Request) {
	// 內部結構 不影響外部 也不被外部使用
	type simRequestBody struct {
		ModeID      spec.MID `json:"mode_id"`
		Questions   int      `json:"questions"`
		Workers     int      `json:"workers"`
		Players     int      `json:"players"`
		Accuracy    float64  `json:"accuracy"`
		Rounds      int      `json:"rounds"`
		TimeLimitMs int64    `json:"time_limit_ms"`
		Seed        *int64   `json:"seed,omitempty"`
		Format      string   `json:"format,omitempty"`
	}
	req := &simRequestBody{Workers: 1, Accuracy: 0.6}
	switch r.Method {
	case http.MethodGet:
		q := &query{r: r}
		var id int
		q.int("mode_id", &id)
		q.int("questions", &req.Questions)
		q.int("workers", &req.Workers)
		q.int("players", &req.Players)
		q.float("accuracy", &req.Accuracy)
		q.int("rounds", &req.Rounds)
		q.int64("time_limit_ms", &req.TimeLimitMs)
		q.optInt64("seed", &req.Seed)
		if q.err != nil {
			httperr.Errs(w, q.err)
			return
		}
		if id < 0 {
			httperr.Errs(w, errs.NewWarn("mode_id must be non-negative integer"))
			return
		}
		req.ModeID = spec.MID(id)
		req.Format = r.URL.Query().Get("format")
	case http.MethodPost:
		if err := decodeJSON(w, r, req); err != nil {
			httperr.Errs(w, err)
			return
		}
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// 業務檢驗
	if req.ModeID == 0 {
		httperr.Errs(w, errs.NewWarn("mode_id is required"))
		return
	}
	if req.Questions < 1 || req.Questions > maxSimQuestions {
		httperr.Errs(w, errs.Warnf("questions must be between 1 to %d", maxSimQuestions))
		return
	}
	if req.Workers < 1 || req.Workers > maxSimWorkers {
		httperr.Errs(w, errs.Warnf("workers must be between 1 to %d", maxSimWorkers))
		return
	}
	render, err := stats.RenderFor(req.Format)
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	sim, err := sh.newSimulator(req.ModeID, req.Seed)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	set := quizlab.SimSetting{
		Players:     req.Players,
		Accuracy:    req.Accuracy,
		TimeLimitMs: req.TimeLimitMs,
		Rounds:      req.Rounds,
	}
	var resp simResponse
	if req.Workers == 1 {
		rep, used, err := sim.Sim(set, req.Questions, false)
		if err != nil {
			httperr.Errs(w, errs.Wrap(err, "simulate err"))
			return
		}
		resp = simResponse{Report: rep, UsedTime: used.Milliseconds(), Seed: sim.InitSeed()}
	} else {
		rep, used, err := sim.SimMP(set, req.Questions, req.Workers, false)
		if err != nil {
			httperr.Errs(w, errs.Wrap(err, "simulate err"))
			return
		}
		resp = simResponse{Report: rep, UsedTime: used.Milliseconds(), Seed: sim.InitSeed()}
	}
	writeReport(w, req.Format, render, resp)
}

// Tiers GET|POST /v1/sim/tiers：只抽指定等級的娃娃機，附卡方檢定。
func (sh *SimHandler) Tiers(w http.ResponseWriter, r *http.Request) {
	// 內部結構 不影響外部 也不被外部使用
	type tierRequestBody struct {
		ModeID spec.MID `json:"mode_id"`
		Rank   int      `json:"rank"`
		N      int      `json:"n"`
		Frenzy bool     `json:"frenzy"`
		Seed   *int64   `json:"seed,omitempty"`
		Format string   `json:"format,omitempty"`
	}
	req := &tierRequestBody{Rank: 1}
	switch r.Method {
	case http.MethodGet:
		q := &query{r: r}
		var id int
		q.int("mode_id", &id)
		q.int("rank", &req.Rank)
		q.int("n", &req.N)
		q.bool("frenzy", &req.Frenzy)
		q.optInt64("seed", &req.Seed)
		if q.err != nil {
			httperr.Errs(w, q.err)
			return
		}
		if id < 0 {
			httperr.Errs(w, errs.NewWarn("mode_id must be non-negative integer"))
			return
		}
		req.ModeID = spec.MID(id)
		req.Format = r.URL.Query().Get("format")
	case http.MethodPost:
		if err := decodeJSON(w, r, req); err != nil {
			httperr.Errs(w, err)
			return
		}
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if req.ModeID == 0 {
		httperr.Errs(w, errs.NewWarn("mode_id is required"))
		return
	}
	if req.N < 1 || req.N > maxTierDraws {
		httperr.Errs(w, errs.Warnf("n must be between 1 to %d", maxTierDraws))
		return
	}
	render, err := stats.RenderFor(req.Format)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	sim, err := sh.newSimulator(req.ModeID, req.Seed)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	rep, err := sim.FishingTiers(req.Rank, req.N, req.Frenzy)
	if err != nil {
		httperr.Errs(w, errs.Wrap(err, "fishing tiers err"))
		return
	}
	writeReport(w, req.Format, render, simResponse{Report: rep, Seed: sim.InitSeed()})
}

func (sh *SimHandler) newSimulator(id spec.MID, seed *int64) (*quizlab.Simulator, error) {
	if seed == nil {
		sim, err := sh.lab.NewSimulator(id)
		if err != nil {
			return nil, errs.Wrap(err, fmt.Sprintf("build simulator err: %d", id))
		}
		return sim, nil
	}
	sim, err := sh.lab.NewSimulatorWithSeed(id, *seed)
	if err != nil {
		return nil, errs.Wrap(err, fmt.Sprintf("build simulator err: %d", id))
	}
	return sim, nil
}

// writeReport 依 format 輸出：空字串或 json 回 JSON 包裝，其餘以 renderer 輸出純文字。
func writeReport(w http.ResponseWriter, format string, render stats.SimReportRender, resp simResponse) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		writeJSON(w, http.StatusOK, resp)
		return
	}
	var buf bytes.Buffer
	if err := resp.Report.WriteWith(&buf, render); err != nil {
		httperr.Errs(w, errs.Wrap(err, "render report failed"))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Quizlab-Seed", fmt.Sprint(resp.Seed))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
