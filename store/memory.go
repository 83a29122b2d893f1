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

package store

import (
	"context"
	"sync"

	"github.com/zintix-labs/quizlab/errs"
)

const defaultSubBuffer = 64

// memSub 是一個訂閱；stop 只在持有 m.mu 時呼叫。
type memSub struct {
	ch   chan Event
	done chan struct{} // 關閉後監看 ctx 的 goroutine 結束
	once sync.Once
}

func (s *memSub) stop() {
	s.once.Do(func() {
		close(s.ch)
		close(s.done)
	})
}

type memRoom struct {
	state   RoomState
	players map[string]*PlayerRow
	order   []string // 加入順序
}

// Memory 是單機版 RoomStore：map 保存狀態，訂閱以緩衝 channel 扇出。
//
// 訂閱者消化太慢時事件直接丟棄（不阻塞寫入端）。
type Memory struct {
	mu     sync.RWMutex
	rooms  map[string]*memRoom
	subs   map[string]map[int]*memSub
	nextID int
	buf    int
	closed bool
}

func NewMemory() *Memory {
	return NewMemoryWithBuffer(defaultSubBuffer)
}

func NewMemoryWithBuffer(buf int) *Memory {
	return &Memory{
		rooms: make(map[string]*memRoom),
		subs:  make(map[string]map[int]*memSub),
		buf:   max(1, buf),
	}
}

func (m *Memory) room(code string) *memRoom {
	r, ok := m.rooms[code]
	if !ok {
		r = &memRoom{state: RoomState{Code: code}, players: map[string]*PlayerRow{}}
		m.rooms[code] = r
	}
	return r
}

func (m *Memory) Read(_ context.Context, code string) (RoomState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[code]
	if !ok {
		return RoomState{}, ErrNotFound
	}
	rs := r.state
	rs.Players = make([]PlayerRow, 0, len(r.order))
	for _, id := range r.order {
		rs.Players = append(rs.Players, *r.players[id])
	}
	return rs, nil
}

// Write 以 record id 合併欄位；房間不存在時自動建立。
func (m *Memory) Write(_ context.Context, recordID string, fields map[string]any) error {
	code, pid, err := ParseRecordID(recordID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errs.NewWarn("store closed")
	}
	r := m.room(code)
	if pid == "" {
		applyRoom(&r.state, fields)
		r.state.Code = code
		return nil
	}
	row, ok := r.players[pid]
	if !ok {
		row = &PlayerRow{ID: pid}
		r.players[pid] = row
		r.order = append(r.order, pid)
	}
	applyPlayer(row, fields)
	row.ID = pid
	return nil
}

func (m *Memory) SaveRoom(ctx context.Context, rs RoomState) error {
	if rs.Code == "" {
		return errs.NewWarn("room code required")
	}
	if err := m.Write(ctx, RoomRecordID(rs.Code), roomFields(rs)); err != nil {
		return err
	}
	for _, p := range rs.Players {
		if err := m.Write(ctx, PlayerRecordID(rs.Code, p.ID), PlayerFields(p)); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, code string) (<-chan Event, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, nil, errs.NewWarn("store closed")
	}
	sub := &memSub{ch: make(chan Event, m.buf), done: make(chan struct{})}
	id := m.nextID
	m.nextID++
	if m.subs[code] == nil {
		m.subs[code] = map[int]*memSub{}
	}
	m.subs[code][id] = sub

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.subs[code][id]; ok {
			delete(m.subs[code], id)
			sub.stop()
		}
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-sub.done:
		}
	}()
	return sub.ch, cancel, nil
}

func (m *Memory) Publish(_ context.Context, code string, ev Event) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return errs.NewWarn("store closed")
	}
	ev.Room = code
	for _, sub := range m.subs[code] {
		select {
		case sub.ch <- ev:
		default:
		}
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, code)
	return nil
}

// Close 關閉所有訂閱 channel；之後的寫入回傳錯誤。
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for code, subs := range m.subs {
		for id, sub := range subs {
			sub.stop()
			delete(subs, id)
		}
		delete(m.subs, code)
	}
	return nil
}
