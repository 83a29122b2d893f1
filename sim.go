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
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/quizlab/errs"
	"github.com/zintix-labs/quizlab/modes/fishing"
	"github.com/zintix-labs/quizlab/recorder"
	"github.com/zintix-labs/quizlab/sdk/core"
	"github.com/zintix-labs/quizlab/sdk/mode"
	"github.com/zintix-labs/quizlab/sdk/reward"
	"github.com/zintix-labs/quizlab/spec"
	"github.com/zintix-labs/quizlab/stats"
	"golang.org/x/sync/errgroup"
)

const (
	defaultSimPlayers  = 4
	defaultTimeLimitMs = 10_000
	defaultSimRounds   = 20
)

// SimSetting 合成玩家的行為參數（零值欄位會套用預設）。
type SimSetting struct {
	Players     int     `json:"players"`       // 每局玩家數，預設 min(4, max_players)
	Accuracy    float64 `json:"accuracy"`      // 答對機率 [0,1]
	TimeLimitMs int64   `json:"time_limit_ms"` // 每題時限，作答時間在 [0, 時限] 均勻分佈
	Rounds      int     `json:"rounds"`        // 每局最多幾題；模式自行結束時提早換局
}

func (set SimSetting) normalize(ms *spec.ModeSetting) (SimSetting, error) {
	if set.Players <= 0 {
		set.Players = min(defaultSimPlayers, ms.MaxPlayers)
	}
	if set.Players > ms.MaxPlayers {
		return set, errs.Warnf("players must <= max_players(%d)", ms.MaxPlayers)
	}
	if !(set.Accuracy >= 0 && set.Accuracy <= 1) {
		return set, errs.NewWarn("accuracy must be in [0,1]")
	}
	if set.TimeLimitMs <= 0 {
		set.TimeLimitMs = defaultTimeLimitMs
	}
	if set.Rounds <= 0 {
		set.Rounds = defaultSimRounds
	}
	return set, nil
}

// Simulator 以合成玩家大量作答，並行紀錄並輸出統計。
type Simulator struct {
	ModeName  string              // 模式名稱
	ModeId    spec.MID            // 模式 ID
	ms        *spec.ModeSetting   // 方便重建 Session
	logic     *mode.LogicRegistry // 邏輯註冊表
	cf        core.PRNGFactory    // 亂數生成器
	tiers     []string            // 稀有度顯示順序（fishing 才有）
	initSeed  int64               // 初始下的種子
	seedmaker *seedMaker          // 種子生成器
}

// NewSimulator 建立模擬器，seed 由 crypto/rand 產生。
func (l *Lab) NewSimulator(id spec.MID) (*Simulator, error) {
	seed, err := cryptoSeed()
	if err != nil {
		return nil, err
	}
	return l.NewSimulatorWithSeed(id, seed)
}

// NewSimulatorWithSeed 同一個 seed、同樣的參數，報表完全相同。
func (l *Lab) NewSimulatorWithSeed(id spec.MID, seed int64) (*Simulator, error) {
	ms, err := l.frozenSetting(id)
	if err != nil {
		return nil, err
	}
	s := &Simulator{
		ModeName:  ms.ModeName,
		ModeId:    ms.ModeID,
		ms:        ms,
		logic:     l.reg,
		cf:        l.cf,
		initSeed:  seed,
		seedmaker: newSeedMaker(seed),
	}
	if ms.LogicKey == fishing.LogicKey {
		fs, err := fishing.LoadSetting(ms)
		if err != nil {
			return nil, err
		}
		s.tiers = fs.Tiers
	}
	return s, nil
}

func (s *Simulator) InitSeed() int64 { return s.initSeed }

// Sim 單線模擬器：以一個房間連續跑指定題數並回傳統計結果與用時。
func (s *Simulator) Sim(set SimSetting, questions int, showpb bool) (*stats.SimReport, time.Duration, error) {
	set, err := set.normalize(s.ms)
	if err != nil {
		return nil, 0, err
	}
	if questions < 1 {
		return nil, 0, errs.NewWarn("questions must > 0")
	}
	r, err := s.newRunner(set)
	if err != nil {
		return nil, 0, err
	}

	bar := pb.StartNew(questions)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	for range questions {
		if err := r.question(); err != nil {
			bar.Finish()
			return nil, 0, err
		}
		bar.Increment()
	}
	used := time.Since(bar.StartTime())
	bar.Finish()
	r.flush()
	return r.rec.Done(), used, nil
}

// SimMP 平行執行 mp 個房間，每個房間各跑 questions 題，合併統計結果後回傳統計結果與用時。
func (s *Simulator) SimMP(set SimSetting, questions int, mp int, showpb bool) (*stats.SimReport, time.Duration, error) {
	set, err := set.normalize(s.ms)
	if err != nil {
		return nil, 0, err
	}
	if mp <= 0 {
		return nil, 0, errs.NewWarn("workers must > 0")
	}
	if questions < 1 {
		return nil, 0, errs.NewWarn("questions must > 0")
	}

	// seed 依序配發，worker 的排程不影響結果
	runners := make([]*simRunner, mp)
	for i := range runners {
		if runners[i], err = s.newRunner(set); err != nil {
			return nil, 0, err
		}
	}

	bar := pb.StartNew(questions * mp)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	var g errgroup.Group
	for _, r := range runners {
		g.Go(func() error {
			for range questions {
				if err := r.question(); err != nil {
					return err
				}
				bar.Increment()
			}
			r.flush()
			return nil
		})
	}
	err = g.Wait()
	used := time.Since(bar.StartTime())
	bar.Finish()
	if err != nil {
		return nil, 0, err
	}

	recs := make([]*recorder.OutcomeRecorder, mp)
	for i, r := range runners {
		recs[i] = r.rec
	}
	merged, err := recorder.MergeOutcomeRecorder(recs)
	if err != nil {
		return nil, 0, err
	}
	return merged.Done(), used, nil
}

// FishingTiers 只抽 n 次指定等級的娃娃機，回傳稀有度分佈與對該等級權重列的卡方適合度檢定。
func (s *Simulator) FishingTiers(rank, n int, frenzy bool) (*stats.SimReport, error) {
	if s.ms.LogicKey != fishing.LogicKey {
		return nil, errs.Warnf("mode %s is not a fishing mode", s.ModeName)
	}
	if n < 1 {
		return nil, errs.NewWarn("n must > 0")
	}
	fs, err := fishing.LoadSetting(s.ms)
	if err != nil {
		return nil, err
	}
	if rank < 1 || rank > fs.MaxRank() {
		return nil, errs.Warnf("rank must be in [1,%d]", fs.MaxRank())
	}
	h, err := mode.NewHost(s.ms, core.New(s.cf.New(s.seedmaker.next())), true)
	if err != nil {
		return nil, err
	}
	rec, err := recorder.NewOutcomeRecorder(s.ModeName, s.ModeId, fs.Tiers)
	if err != nil {
		return nil, err
	}
	for range n {
		res := fishing.TryFishing(h.Core, fs, 0, defaultTimeLimitMs, rank, frenzy, h.NewID)
		o := reward.Of(s.ModeName, reward.KindCatch, "catch", res.Catch).With(float64(res.Catch.Value), res.Catch.Tier)
		o.Success = res.Success
		rec.Record(o)
	}
	rep := rec.Done()
	if err := rep.Tiers.Expect(fs.Ranks[rank-1]); err != nil {
		return nil, err
	}
	return rep, nil
}

// simRunner 驅動一個模擬房間；只在單一 goroutine 內使用。
type simRunner struct {
	s     *Session
	rec   *recorder.OutcomeRecorder
	set   SimSetting
	ids   []string
	dice  *core.Core // 合成玩家的行為亂數，與模式的 Core 分開
	now   time.Time
	step  time.Duration
	asked int
}

func (s *Simulator) newRunner(set SimSetting) (*simRunner, error) {
	sess, err := newSessionWithSeed(s.ms, s.logic, s.cf, s.seedmaker.next(), true)
	if err != nil {
		return nil, err
	}
	ids := make([]string, set.Players)
	for i := range ids {
		ids[i] = fmt.Sprintf("sim-%02d", i+1)
		if err := sess.Join(mode.Player{ID: ids[i]}); err != nil {
			return nil, err
		}
	}
	rec, err := recorder.NewOutcomeRecorder(s.ModeName, s.ModeId, s.tiers)
	if err != nil {
		return nil, err
	}
	step := sess.TickEvery()
	if step <= 0 {
		step = time.Second
	}
	return &simRunner{
		s:    sess,
		rec:  rec,
		set:  set,
		ids:  ids,
		dice: core.New(s.cf.New(s.seedmaker.next())),
		now:  time.Unix(0, 0).UTC(),
		step: step,
	}, nil
}

// question 模擬一題：每位玩家作答一次並嘗試一個自動操作，最後推進一個 tick。
func (r *simRunner) question() error {
	if r.s.Phase() == PhaseWaiting {
		if err := r.s.Start(r.now); err != nil {
			return err
		}
	}
	for _, id := range r.ids {
		correct := r.dice.Chance(r.set.Accuracy)
		ans := mode.Answer{
			PlayerID:     id,
			IsCorrect:    correct,
			AnswerTimeMs: int64(r.dice.IntRange(0, int(r.set.TimeLimitMs))),
			TimeLimitMs:  r.set.TimeLimitMs,
		}
		o, err := r.s.ResolveAnswer(ans, r.now)
		if err != nil {
			// 本局已在這一題中結束
			break
		}
		r.rec.RecordAnswer(correct)
		r.rec.Record(o)
		if act, ok := r.s.autoAction(id, r.now); ok {
			if o, err := r.s.Act(act, r.now); err == nil {
				r.rec.Record(o)
			}
		}
	}
	r.now = r.now.Add(r.step)
	for _, o := range r.s.Tick(r.now) {
		r.rec.Record(o)
	}
	r.asked++
	if done, _ := r.s.Finished(); done || r.asked >= r.set.Rounds {
		return r.endGame()
	}
	return nil
}

// flush 把進行到一半的局也算進報表。
func (r *simRunner) flush() {
	if r.asked > 0 {
		_, reason := r.s.Finished()
		r.rec.RecordGame(reason, r.s.Standings())
		r.asked = 0
	}
}

func (r *simRunner) endGame() error {
	_, reason := r.s.Finished()
	r.rec.RecordGame(reason, r.s.Standings())
	r.asked = 0
	return r.s.Reset()
}

const mask63 = uint64(1<<63) - 1

type seedMaker struct {
	state atomic.Uint64 // always in [0, 2^63)
}

func newSeedMaker(seed int64) *seedMaker {
	s := &seedMaker{}
	s.state.Store(uint64(seed) & mask63)
	return s
}

// state 走全週期（不重複），再用可逆 mix63 打散
//
// 注意：此方法可能在併發環境下被多 goroutines 同時呼叫。
// 因此 state 的推進必須是原子的：
//   - 使用 CAS（Compare-And-Swap）迴圈確保每次呼叫都會取得唯一的下一個 state。
//   - 回傳值使用推進後的 state 經 mix63 打散後的結果。
func (s *seedMaker) next() int64 {
	for {
		old := s.state.Load()                                            // always masked
		next := (old*6364136223846793005 + 1442695040888963407) & mask63 // full-period LCG mod 2^63
		if s.state.CompareAndSwap(old, next) {
			return int64(mix63(next)) // 一定非負
		}
	}
}

// mix63：只用「可逆」的 bit 操作 + 乘奇數（mod 2^63）
func mix63(x uint64) uint64 {
	x &= mask63
	x ^= x >> 30
	x = (x * 0xBF58476D1CE4E5B9) & mask63 // 乘奇數 ⇒ mod 2^63 可逆
	x ^= x >> 27
	x = (x * 0x94D049BB133111EB) & mask63
	x ^= x >> 31
	return x & mask63
}
