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
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zintix-labs/quizlab/corefmt"
	"github.com/zintix-labs/quizlab/errs"
	"github.com/zintix-labs/quizlab/metrics"
	"github.com/zintix-labs/quizlab/sdk/core"
	"github.com/zintix-labs/quizlab/sdk/mode"
	"github.com/zintix-labs/quizlab/sdk/reward"
	"github.com/zintix-labs/quizlab/spec"
	"github.com/zintix-labs/quizlab/store"
)

const (
	codeLen       = 6
	codeAlphabet  = "ABCDEFGHJKMNPQRSTUVWXYZ23456789" // 去掉 I L O 0 1
	storeTimeout  = 2 * time.Second
	reasonClosed  = "closed"
	reasonPanic   = "panic"
	reasonRuntime = "runtime_closed"
)

// RoomRuntime 以房號管理所有房間。
//
// 每個進入 playing 且 tick_ms > 0 的房間有一個 ticker goroutine；房間 Reset / Close / 結束、
// 或 runtime Close 時 ticker 停止。
//
// 每次結算後把受影響玩家的欄位寫進 store 並推播事件；store 失敗只記 log，不影響結算本身。
// 結算過程 panic 會被 recover：該房間以 "panic" 關閉並計入 metrics。
type RoomRuntime struct {
	lab   *Lab
	log   *slog.Logger
	store store.RoomStore
	met   *metrics.Metrics
	now   func() time.Time

	codeMu sync.Mutex
	codes  *core.Core

	mu    sync.RWMutex
	rooms map[string]*Room

	tickers sync.WaitGroup

	// lifecycle
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	reason    atomic.Value // string

	panics   atomic.Int32
	resolved atomic.Uint64
}

// Room 是 runtime 內的一個房間。
type Room struct {
	Code      string
	CreatedAt time.Time
	sess      *Session

	done      chan struct{}
	closeOnce sync.Once
	reason    atomic.Value // string

	tmu  sync.Mutex
	stop chan struct{} // 目前 ticker 的停止訊號；nil 表示沒有 ticker
}

// RoomInfo 是 Rooms() 列舉用的摘要。
type RoomInfo struct {
	Code        string    `json:"code"`
	ModeID      spec.MID  `json:"mode_id"`
	ModeName    string    `json:"mode_name"`
	Phase       Phase     `json:"phase"`
	Players     int       `json:"players"`
	Seed        int64     `json:"seed"`
	Closed      bool      `json:"closed"`
	CloseReason string    `json:"close_reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// RuntimeMetrics 是拉取式的觀測快照。
type RuntimeMetrics struct {
	Rooms        int    `json:"rooms"`
	Playing      int    `json:"playing"`
	ClosedRooms  int    `json:"closed_rooms"`
	Panics       int    `json:"panics"`
	Resolved     uint64 `json:"resolved"`
	Closed       bool   `json:"closed"`
	ClosedReason string `json:"closed_reason"`
}

type RuntimeOption func(*RoomRuntime)

func WithStore(s store.RoomStore) RuntimeOption {
	return func(rt *RoomRuntime) { rt.store = s }
}

func WithMetrics(m *metrics.Metrics) RuntimeOption {
	return func(rt *RoomRuntime) { rt.met = m }
}

func WithLogger(l *slog.Logger) RuntimeOption {
	return func(rt *RoomRuntime) { rt.log = l }
}

// WithClock 替換時鐘（測試用）。ticker 仍以真實時間觸發，只有傳給 Logic 的 now 來自 clock。
func WithClock(now func() time.Time) RuntimeOption {
	return func(rt *RoomRuntime) { rt.now = now }
}

// WithCodeSeed 讓房號序列可重現。
func WithCodeSeed(seed int64) RuntimeOption {
	return func(rt *RoomRuntime) { rt.codes = core.New(rt.lab.cf.New(seed)) }
}

// BuildRuntime 凍結 catalog 並建立 RoomRuntime。
func (l *Lab) BuildRuntime(opts ...RuntimeOption) (*RoomRuntime, error) {
	l.Freeze()
	if len(l.cat.IDs()) == 0 {
		return nil, errs.NewFatal("no modes registered")
	}
	rt := &RoomRuntime{
		lab:   l,
		log:   slog.New(slog.DiscardHandler),
		now:   time.Now,
		rooms: make(map[string]*Room),
		done:  make(chan struct{}),
	}
	rt.reason.Store("")
	for _, opt := range opts {
		opt(rt)
	}
	if rt.store == nil {
		rt.store = store.NewMemory()
	}
	if rt.codes == nil {
		seed, err := cryptoSeed()
		if err != nil {
			return nil, err
		}
		rt.codes = core.New(l.cf.New(seed))
	}
	return rt, nil
}

func (rt *RoomRuntime) Store() store.RoomStore { return rt.store }

func (rt *RoomRuntime) newCode() string {
	rt.codeMu.Lock()
	defer rt.codeMu.Unlock()
	b := make([]byte, codeLen)
	for i := range b {
		b[i] = codeAlphabet[rt.codes.IntN(len(codeAlphabet))]
	}
	return string(b)
}

func (rt *RoomRuntime) alive(ctx context.Context) error {
	select {
	case <-ctx.Done():
		e := errs.NewWarn("request canceled/timeout")
		e.Cause = ctx.Err()
		return e
	case <-rt.done:
		return errs.NewFatal("room runtime closed: " + rt.ClosedReason())
	default:
		return nil
	}
}

// CreateRoom 建立房間；seed 為 nil 時以 crypto/rand 產生。
func (rt *RoomRuntime) CreateRoom(ctx context.Context, id spec.MID, seed *int64) (RoomInfo, error) {
	if err := rt.alive(ctx); err != nil {
		return RoomInfo{}, err
	}
	var (
		s   *Session
		err error
	)
	if seed != nil {
		s, err = rt.lab.NewSessionWithSeed(id, *seed)
	} else {
		s, err = rt.lab.NewSession(id)
	}
	if err != nil {
		return RoomInfo{}, err
	}

	r := &Room{CreatedAt: rt.now(), sess: s, done: make(chan struct{})}
	r.reason.Store("")
	rt.mu.Lock()
	for {
		r.Code = rt.newCode()
		if _, dup := rt.rooms[r.Code]; !dup {
			break
		}
	}
	rt.rooms[r.Code] = r
	rt.mu.Unlock()

	rt.met.RoomOpened()
	rt.saveRoom(ctx, r)
	rt.log.Info("room created", "room", r.Code, "mode", s.ModeName(), "seed", s.InitSeed())
	return r.info(), nil
}

func (rt *RoomRuntime) room(ctx context.Context, code string) (*Room, error) {
	if err := rt.alive(ctx); err != nil {
		return nil, err
	}
	rt.mu.RLock()
	r, ok := rt.rooms[code]
	rt.mu.RUnlock()
	if !ok {
		return nil, errs.Warnf("room %q not found", code)
	}
	if r.Closed() {
		return nil, errs.NewFatal("room closed: " + r.ClosedReason())
	}
	return r, nil
}

func (rt *RoomRuntime) Join(ctx context.Context, code string, p mode.Player) error {
	r, err := rt.room(ctx, code)
	if err != nil {
		return err
	}
	if err := r.sess.Join(p); err != nil {
		return err
	}
	if p.Name == "" {
		p.Name = p.ID
	}
	rt.write(ctx, r, store.PlayerRow{ID: p.ID, Name: p.Name})
	return nil
}

func (rt *RoomRuntime) Start(ctx context.Context, code string) error {
	r, err := rt.room(ctx, code)
	if err != nil {
		return err
	}
	err = rt.guard(r, func() error { return r.sess.Start(rt.now()) })
	if err != nil {
		return err
	}
	rt.saveRoom(ctx, r)
	rt.startTicker(r)
	return nil
}

// Answer 結算一次作答。
func (rt *RoomRuntime) Answer(ctx context.Context, code string, a mode.Answer) (reward.Outcome, error) {
	r, err := rt.room(ctx, code)
	if err != nil {
		return reward.Outcome{}, err
	}
	var o reward.Outcome
	err = rt.guard(r, func() error {
		var e error
		o, e = r.sess.ResolveAnswer(a, rt.now())
		return e
	})
	if err != nil {
		return reward.Outcome{}, err
	}
	rt.settle(ctx, r, []reward.Outcome{o})
	return o, nil
}

func (rt *RoomRuntime) Act(ctx context.Context, code string, a mode.Action) (reward.Outcome, error) {
	r, err := rt.room(ctx, code)
	if err != nil {
		return reward.Outcome{}, err
	}
	var o reward.Outcome
	err = rt.guard(r, func() error {
		var e error
		o, e = r.sess.Act(a, rt.now())
		return e
	})
	if err != nil {
		return reward.Outcome{}, err
	}
	rt.settle(ctx, r, []reward.Outcome{o})
	return o, nil
}

// Reset 停止 ticker、重建模式狀態並回到 waiting。
func (rt *RoomRuntime) Reset(ctx context.Context, code string) error {
	r, err := rt.room(ctx, code)
	if err != nil {
		return err
	}
	r.stopTicker()
	if err := rt.guard(r, r.sess.Reset); err != nil {
		return err
	}
	rt.saveRoom(ctx, r)
	return nil
}

// CloseRoom 關閉並移除房間。
func (rt *RoomRuntime) CloseRoom(ctx context.Context, code string) error {
	if err := rt.alive(ctx); err != nil {
		return err
	}
	rt.mu.Lock()
	r, ok := rt.rooms[code]
	delete(rt.rooms, code)
	rt.mu.Unlock()
	if !ok {
		return errs.Warnf("room %q not found", code)
	}
	rt.closeRoom(r, reasonClosed)
	if err := rt.store.Delete(ctx, code); err != nil {
		rt.log.Warn("store delete failed", "room", code, "err", err)
	}
	return nil
}

// Room 回傳房間快照。
func (rt *RoomRuntime) Room(ctx context.Context, code string) (SessionSnapshot, error) {
	if err := rt.alive(ctx); err != nil {
		return SessionSnapshot{}, err
	}
	rt.mu.RLock()
	r, ok := rt.rooms[code]
	rt.mu.RUnlock()
	if !ok {
		return SessionSnapshot{}, errs.Warnf("room %q not found", code)
	}
	return r.sess.Snapshot(), nil
}

// Rooms 依房號排序列出所有房間（含因 panic 關閉、尚未移除的房間）。
func (rt *RoomRuntime) Rooms() []RoomInfo {
	rt.mu.RLock()
	out := make([]RoomInfo, 0, len(rt.rooms))
	for _, r := range rt.rooms {
		out = append(out, r.info())
	}
	rt.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Subscribe 轉接 store 的房間事件流（websocket feed 使用）。
func (rt *RoomRuntime) Subscribe(ctx context.Context, code string) (<-chan store.Event, func(), error) {
	if _, err := rt.room(ctx, code); err != nil {
		return nil, nil, err
	}
	return rt.store.Subscribe(ctx, code)
}

func (rt *RoomRuntime) Metrics() RuntimeMetrics {
	m := RuntimeMetrics{
		Panics:       int(rt.panics.Load()),
		Resolved:     rt.resolved.Load(),
		Closed:       rt.Closed(),
		ClosedReason: rt.ClosedReason(),
	}
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	m.Rooms = len(rt.rooms)
	for _, r := range rt.rooms {
		switch {
		case r.Closed():
			m.ClosedRooms++
		case r.sess.Phase() == PhasePlaying:
			m.Playing++
		}
	}
	return m
}

// Close 關閉 runtime：停止所有 ticker 並等待其結束。可重複呼叫。
func (rt *RoomRuntime) Close() {
	rt.closeWithReason(reasonRuntime)
}

func (rt *RoomRuntime) closeWithReason(reason string) {
	rt.closeOnce.Do(func() {
		if reason == "" {
			reason = reasonRuntime
		}
		rt.reason.Store(reason)
		rt.closed.Store(true)
		close(rt.done)

		rt.mu.RLock()
		rooms := make([]*Room, 0, len(rt.rooms))
		for _, r := range rt.rooms {
			rooms = append(rooms, r)
		}
		rt.mu.RUnlock()
		for _, r := range rooms {
			rt.closeRoom(r, reason)
		}
		rt.tickers.Wait()
	})
}

func (rt *RoomRuntime) Closed() bool {
	return rt.closed.Load()
}

// Done 在 runtime 關閉時被 close。
func (rt *RoomRuntime) Done() <-chan struct{} {
	return rt.done
}

func (rt *RoomRuntime) ClosedReason() string {
	if v := rt.reason.Load(); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// guard 執行一段會進入 Logic 的操作；panic 時關閉房間並轉成 Fatal。
func (rt *RoomRuntime) guard(r *Room, fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			rt.panics.Add(1)
			// core_b64u 可以直接貼進 ReplayRequest.Core 重現
			var snap string
			if b, serr := r.sess.SnapshotCore(); serr == nil {
				snap = corefmt.EncodeBase64URL(b)
			}
			rt.log.Error("room panic", "room", r.Code, "mode", r.sess.ModeName(), "panic", fmt.Sprint(p),
				"seed", r.sess.InitSeed(), "core_b64u", snap)
			rt.closeRoom(r, reasonPanic)
			err = errs.NewFatal(fmt.Sprintf("room %s panic: %v", r.Code, p))
		}
	}()
	return fn()
}

func (rt *RoomRuntime) closeRoom(r *Room, reason string) {
	r.closeOnce.Do(func() {
		r.reason.Store(reason)
		close(r.done)
		r.stopTicker()
		rt.met.RoomClosed(reason)

		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		ev := store.Event{Type: store.EventClosed, Fields: map[string]any{"reason": reason}, At: rt.now().UnixMilli()}
		if err := rt.store.Publish(ctx, r.Code, ev); err != nil {
			rt.log.Warn("store publish failed", "room", r.Code, "err", err)
		}
		rt.log.Info("room closed", "room", r.Code, "reason", reason)
	})
}

// settle 記錄 metrics、推播 outcome，並把受影響玩家的欄位寫回 store。
func (rt *RoomRuntime) settle(ctx context.Context, r *Room, outs []reward.Outcome) {
	if len(outs) == 0 {
		return
	}
	rt.resolved.Add(uint64(len(outs)))
	touched := map[string]struct{}{}
	for i := range outs {
		o := outs[i]
		rt.met.ObserveOutcome(o)
		ev := store.Event{Type: store.EventOutcome, Outcome: &o, At: rt.now().UnixMilli()}
		if err := rt.store.Publish(ctx, r.Code, ev); err != nil {
			rt.log.Warn("store publish failed", "room", r.Code, "err", err)
		}
		if !o.Success {
			continue
		}
		if o.PlayerID != "" {
			touched[o.PlayerID] = struct{}{}
		}
		if o.TargetID != "" {
			touched[o.TargetID] = struct{}{}
		}
	}
	for _, st := range r.sess.Standings() {
		if _, ok := touched[st.PlayerID]; ok {
			rt.write(ctx, r, store.PlayerRow{ID: st.PlayerID, Name: st.Name, Score: st.Score, Gold: st.Gold, Position: st.Position})
		}
	}
	if done, reason := r.sess.Finished(); done {
		r.stopTicker()
		rt.saveRoom(ctx, r)
		rt.log.Info("room finished", "room", r.Code, "reason", reason)
	}
}

func (rt *RoomRuntime) write(ctx context.Context, r *Room, row store.PlayerRow) {
	rid := store.PlayerRecordID(r.Code, row.ID)
	fields := store.PlayerFields(row)
	if err := rt.store.Write(ctx, rid, fields); err != nil {
		rt.log.Warn("store write failed", "record", rid, "err", err)
		return
	}
	ev := store.Event{Type: store.EventPlayer, Record: rid, Fields: fields, At: rt.now().UnixMilli()}
	if err := rt.store.Publish(ctx, r.Code, ev); err != nil {
		rt.log.Warn("store publish failed", "room", r.Code, "err", err)
	}
}

func (rt *RoomRuntime) saveRoom(ctx context.Context, r *Room) {
	info := r.info()
	fields := map[string]any{
		"code":      info.Code,
		"mode_id":   uint(info.ModeID),
		"mode_name": info.ModeName,
		"phase":     string(info.Phase),
	}
	rid := store.RoomRecordID(r.Code)
	if err := rt.store.Write(ctx, rid, fields); err != nil {
		rt.log.Warn("store write failed", "record", rid, "err", err)
		return
	}
	ev := store.Event{Type: store.EventRoom, Record: rid, Fields: fields, At: rt.now().UnixMilli()}
	if err := rt.store.Publish(ctx, r.Code, ev); err != nil {
		rt.log.Warn("store publish failed", "room", r.Code, "err", err)
	}
}

func (rt *RoomRuntime) startTicker(r *Room) {
	every := r.sess.TickEvery()
	if every <= 0 {
		return
	}
	r.tmu.Lock()
	if r.stop != nil {
		r.tmu.Unlock()
		return
	}
	stop := make(chan struct{})
	r.stop = stop
	r.tmu.Unlock()

	rt.tickers.Add(1)
	go func() {
		defer rt.tickers.Done()
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-r.done:
				return
			case <-rt.done:
				return
			case <-t.C:
				if !rt.tick(r) {
					return
				}
			}
		}
	}()
}

// tick 回傳 false 表示 ticker 應結束。
func (rt *RoomRuntime) tick(r *Room) bool {
	begin := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	err := rt.guard(r, func() error {
		rt.settle(ctx, r, r.sess.Tick(rt.now()))
		return nil
	})
	rt.met.ObserveTick(time.Since(begin))
	return err == nil && r.sess.Phase() == PhasePlaying
}

func (r *Room) stopTicker() {
	r.tmu.Lock()
	defer r.tmu.Unlock()
	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
}

func (r *Room) Closed() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

func (r *Room) ClosedReason() string {
	if v := r.reason.Load(); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func (r *Room) info() RoomInfo {
	return RoomInfo{
		Code:        r.Code,
		ModeID:      r.sess.ModeID(),
		ModeName:    r.sess.ModeName(),
		Phase:       r.sess.Phase(),
		Players:     r.sess.PlayerCount(),
		Seed:        r.sess.InitSeed(),
		Closed:      r.Closed(),
		CloseReason: r.ClosedReason(),
		CreatedAt:   r.CreatedAt,
	}
}
