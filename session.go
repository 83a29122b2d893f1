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
	"sync"
	"time"

	"github.com/zintix-labs/quizlab/errs"
	"github.com/zintix-labs/quizlab/sdk/core"
	"github.com/zintix-labs/quizlab/sdk/mode"
	"github.com/zintix-labs/quizlab/sdk/reward"
	"github.com/zintix-labs/quizlab/spec"
)

// Phase 是房間的生命週期階段。
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished"
)

// Session 封裝一個房間的模式狀態：可視為 mode.Logic 的外殼（shell）。
//
//   - 對外：提供 Join / Start / ResolveAnswer / Act / Tick / Reset。
//   - 對內：持有 Host（Core + 設定）與真正執行模式規則的 Logic。
//
// 並發語意：所有公開方法都持鎖，Logic 本身不需並行安全。
//
// Reset 只重建 Logic，不重設 Core：亂數流延續，重玩一局不會得到相同的抽樣。
type Session struct {
	mu       sync.Mutex
	host     *mode.Host
	reg      *mode.LogicRegistry
	logic    mode.Logic
	players  []mode.Player
	joined   map[string]struct{}
	phase    Phase
	reason   string // 結束原因（由 Logic.Finished 提供）
	resolved uint64 // 已產生的 outcome 數
	initseed int64  // 出生 seed（便於追溯；完整重現請用 SnapshotCore/RestoreCore）
}

// SessionSnapshot 是 Session 對外公開的唯讀快照。
type SessionSnapshot struct {
	ModeID       spec.MID        `json:"mode_id"`
	ModeName     string          `json:"mode_name"`
	Phase        Phase           `json:"phase"`
	FinishReason string          `json:"finish_reason,omitempty"`
	Resolved     uint64          `json:"resolved"`
	Players      []mode.Player   `json:"players"`
	Standings    []mode.Standing `json:"standings"`
	State        any             `json:"state"`
}

// newSessionWithSeed 建立流程：
//  1. core.New(cf.New(seed)) 建出 RNG 核心
//  2. mode.NewHost 包裝設定與核心
//  3. 依 LogicKey 從 registry 建出 Logic
func newSessionWithSeed(ms *spec.ModeSetting, reg *mode.LogicRegistry, cf core.PRNGFactory, seed int64, isSim bool) (*Session, error) {
	h, err := mode.NewHost(ms, core.New(cf.New(seed)), isSim)
	if err != nil {
		return nil, err
	}
	logic, err := h.Build(reg)
	if err != nil {
		return nil, err
	}
	return &Session{
		host:     h,
		reg:      reg,
		logic:    logic,
		players:  make([]mode.Player, 0, ms.MaxPlayers),
		joined:   make(map[string]struct{}, ms.MaxPlayers),
		phase:    PhaseWaiting,
		initseed: seed,
	}, nil
}

func (s *Session) ModeID() spec.MID { return s.host.ModeID }
func (s *Session) ModeName() string { return s.host.ModeName }
func (s *Session) InitSeed() int64 { return s.initseed }
func (s *Session) TickEvery() time.Duration {
	return time.Duration(s.host.ModeSetting.TickMs) * time.Millisecond
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}

// Join 只允許在 waiting 階段加入；人數上限取自 max_players。
func (s *Session) Join(p mode.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		return errs.NewWarn("player id required")
	}
	if s.phase != PhaseWaiting {
		return errs.Warnf("can not join while %s", s.phase)
	}
	if _, ok := s.joined[p.ID]; ok {
		return errs.Warnf("player %q already joined", p.ID)
	}
	if len(s.players) >= s.host.ModeSetting.MaxPlayers {
		return errs.Warnf("room is full (max_players=%d)", s.host.ModeSetting.MaxPlayers)
	}
	if p.Name == "" {
		p.Name = p.ID
	}
	s.players = append(s.players, p)
	s.joined[p.ID] = struct{}{}
	return nil
}

// Start 把目前加入的玩家交給 Logic 並進入 playing。
func (s *Session) Start(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseWaiting {
		return errs.Warnf("can not start while %s", s.phase)
	}
	if len(s.players) == 0 {
		return errs.NewWarn("no players joined")
	}
	s.logic.Start(append([]mode.Player(nil), s.players...), now)
	s.phase = PhasePlaying
	return nil
}

// ResolveAnswer 把一次作答交給模式結算。
//
// 回傳的 error 只代表協定違規（非 playing、未加入的玩家）；規則上的失敗以 Outcome.Success=false 表達。
func (s *Session) ResolveAnswer(a mode.Answer, now time.Time) (reward.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.playable(a.PlayerID); err != nil {
		return reward.Outcome{}, err
	}
	o := s.logic.Resolve(a, now)
	s.after(1)
	return o, nil
}

func (s *Session) Act(a mode.Action, now time.Time) (reward.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.playable(a.PlayerID); err != nil {
		return reward.Outcome{}, err
	}
	if a.Name == "" {
		return reward.Outcome{}, errs.NewWarn("action name required")
	}
	o := s.logic.Act(a, now)
	s.after(1)
	return o, nil
}

// Tick 推進計時類規則；非 playing 時不做事。
func (s *Session) Tick(now time.Time) []reward.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhasePlaying {
		return nil
	}
	out := s.logic.Tick(now)
	s.after(len(out))
	return out
}

// Reset 丟棄模式狀態並重建 Logic，回到 waiting（已加入的玩家保留）。
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	logic, err := s.host.Build(s.reg)
	if err != nil {
		return err
	}
	s.logic = logic
	s.phase = PhaseWaiting
	s.reason = ""
	return nil
}

func (s *Session) Standings() []mode.Standing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logic.Standings()
}

// Finished 回報本局是否結束與原因。
func (s *Session) Finished() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase == PhaseFinished, s.reason
}

func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionSnapshot{
		ModeID:       s.host.ModeID,
		ModeName:     s.host.ModeName,
		Phase:        s.phase,
		FinishReason: s.reason,
		Resolved:     s.resolved,
		Players:      append([]mode.Player(nil), s.players...),
		Standings:    s.logic.Standings(),
		State:        s.logic.Snapshot(),
	}
}

// SnapshotCore 取得 Core 狀態（只含亂數流，不含模式狀態）。
func (s *Session) SnapshotCore() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.host.Core.Snapshot()
}

// RestoreCore 恢復 Core 狀態。
func (s *Session) RestoreCore(src []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.host.Core.Restore(src)
}

// autoAction 替模擬玩家挑一個操作；模式未實作 mode.Autoplayer 時回傳 false。
func (s *Session) autoAction(playerID string, now time.Time) (mode.Action, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ap, ok := s.logic.(mode.Autoplayer)
	if !ok || s.phase != PhasePlaying {
		return mode.Action{}, false
	}
	return ap.AutoAction(playerID, now)
}

func (s *Session) playable(pid string) error {
	if s.phase != PhasePlaying {
		return errs.Warnf("room is %s", s.phase)
	}
	if _, ok := s.joined[pid]; !ok {
		return errs.Warnf("player %q not in room", pid)
	}
	return nil
}

func (s *Session) after(n int) {
	s.resolved += uint64(n)
	if done, reason := s.logic.Finished(); done {
		s.phase = PhaseFinished
		s.reason = reason
	}
}
