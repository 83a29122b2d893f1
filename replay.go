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

package quizlab

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/zintix-labs/quizlab/corefmt"
	"github.com/zintix-labs/quizlab/errs"
	"github.com/zintix-labs/quizlab/sdk/mode"
	"github.com/zintix-labs/quizlab/sdk/reward"
	"github.com/zintix-labs/quizlab/spec"
)

const maxReplaySteps = 5000

// ReplayStep 劇本的一步：Answer、Action、Tick 三者擇一。
//
// AtMs 是相對開局（Unix 0）的毫秒數，所有模式看到的時間都由它決定。
type ReplayStep struct {
	AtMs   int64        `json:"at_ms"`
	Answer *mode.Answer `json:"answer,omitempty"`
	Action *mode.Action `json:"action,omitempty"`
	Tick   bool         `json:"tick,omitempty"`
}

// ReplayRequest 稽核重跑的輸入；Core 與 Seed 擇一，兩者都給時以 Core 為準。
type ReplayRequest struct {
	ModeID  spec.MID      `json:"mode_id"`
	Seed    *int64        `json:"seed,omitempty"`
	Core    string        `json:"core_b64u,omitempty"`
	Players []mode.Player `json:"players"`
	Steps   []ReplayStep  `json:"steps"`
}

// ReplayReport 稽核重跑的輸出。同樣的 ReplayRequest 一定得到逐位元相同的 JSON。
type ReplayReport struct {
	ModeID       spec.MID         `json:"mode_id"`
	ModeName     string           `json:"mode_name"`
	Before       string           `json:"before_b64u"`
	After        string           `json:"after_b64u"`
	Steps        int              `json:"steps"`
	Outcomes     []reward.Outcome `json:"outcomes"`
	Standings    []mode.Standing  `json:"standings"`
	Phase        Phase            `json:"phase"`
	FinishReason string           `json:"finish_reason,omitempty"`
	State        string           `json:"state_zb64u"` // zstd 壓縮的 SessionSnapshot JSON
}

// Replay 以全新的 Session 依序執行劇本。
//
// 流程：
//  1. 以 seed 建立 Session；若給了 Core 快照，再 Restore 覆蓋亂數流
//  2. 記錄 before 快照，加入玩家並開局
//  3. 逐步執行；任何一步違反協定（未開局、未加入的玩家）立即回傳錯誤
//  4. 記錄 after 快照、最終排行與壓縮後的完整狀態
func (l *Lab) Replay(req ReplayRequest) (ReplayReport, error) {
	ms, err := l.frozenSetting(req.ModeID)
	if err != nil {
		return ReplayReport{}, err
	}
	if len(req.Steps) > maxReplaySteps {
		return ReplayReport{}, errs.Warnf("steps must be <= %d", maxReplaySteps)
	}
	var seed int64
	switch {
	case req.Core != "":
	case req.Seed != nil:
		seed = *req.Seed
	default:
		return ReplayReport{}, errs.NewWarn("seed or core_b64u required")
	}

	s, err := newSessionWithSeed(ms, l.reg, l.cf, seed, true)
	if err != nil {
		return ReplayReport{}, err
	}
	if req.Core != "" {
		raw, err := corefmt.DecodeBase64URL(req.Core)
		if err != nil {
			return ReplayReport{}, errs.NewWithExtra(errs.Warn, "invalid core snapshot", err.Error())
		}
		if err := s.RestoreCore(raw); err != nil {
			return ReplayReport{}, errs.NewWithExtra(errs.Warn, "invalid core snapshot", err.Error())
		}
	}
	before, err := s.SnapshotCore()
	if err != nil {
		return ReplayReport{}, err
	}

	t0 := time.Unix(0, 0).UTC()
	for _, p := range req.Players {
		if err := s.Join(p); err != nil {
			return ReplayReport{}, err
		}
	}
	if err := s.Start(t0); err != nil {
		return ReplayReport{}, err
	}

	outs := make([]reward.Outcome, 0, len(req.Steps))
	for i, st := range req.Steps {
		now := t0.Add(time.Duration(st.AtMs) * time.Millisecond)
		o, err := replayStep(s, st, now)
		if err != nil {
			return ReplayReport{}, errs.WrapWithExtra(err, "replay step failed", fmt.Sprintf("step=%d", i))
		}
		outs = append(outs, o...)
	}

	after, err := s.SnapshotCore()
	if err != nil {
		return ReplayReport{}, err
	}
	snap := s.Snapshot()
	raw, err := json.Marshal(snap)
	if err != nil {
		return ReplayReport{}, errs.Wrap(err, "encode session snapshot failed")
	}
	return ReplayReport{
		ModeID:       snap.ModeID,
		ModeName:     snap.ModeName,
		Before:       corefmt.EncodeBase64URL(before),
		After:        corefmt.EncodeBase64URL(after),
		Steps:        len(req.Steps),
		Outcomes:     outs,
		Standings:    snap.Standings,
		Phase:        snap.Phase,
		FinishReason: snap.FinishReason,
		State:        corefmt.Pack(raw),
	}, nil
}

func replayStep(s *Session, st ReplayStep, now time.Time) ([]reward.Outcome, error) {
	n := 0
	if st.Answer != nil {
		n++
	}
	if st.Action != nil {
		n++
	}
	if st.Tick {
		n++
	}
	if n != 1 {
		return nil, errs.NewWarn("step must set exactly one of answer, action, tick")
	}
	switch {
	case st.Answer != nil:
		o, err := s.ResolveAnswer(*st.Answer, now)
		if err != nil {
			return nil, err
		}
		return []reward.Outcome{o}, nil
	case st.Action != nil:
		o, err := s.Act(*st.Action, now)
		if err != nil {
			return nil, err
		}
		return []reward.Outcome{o}, nil
	default:
		return s.Tick(now), nil
	}
}
