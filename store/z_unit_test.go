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
	"errors"
	"runtime"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/zintix-labs/quizlab/sdk/reward"
)

func TestParseRecordID(t *testing.T) {
	cases := []struct {
		in       string
		code, id string
		bad      bool
	}{
		{in: "room:ABC123", code: "ABC123"},
		{in: "room:ABC123:player:p1", code: "ABC123", id: "p1"},
		{in: "room:ABC123:player:", bad: true},
		{in: "player:p1", bad: true},
		{in: "room:", bad: true},
	}
	for _, c := range cases {
		code, id, err := ParseRecordID(c.in)
		if c.bad {
			if err == nil {
				t.Fatalf("%q: expected error", c.in)
			}
			continue
		}
		if err != nil || code != c.code || id != c.id {
			t.Fatalf("%q: got (%q,%q,%v)", c.in, code, id, err)
		}
	}
	if PlayerRecordID("R", "p") != "room:R:player:p" {
		t.Fatalf("player record id format changed")
	}
}

// exercise 對任一 RoomStore 跑同一套行為。
func exercise(t *testing.T, s RoomStore) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Read(ctx, "NOPE00"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing room: %v", err)
	}

	err := s.SaveRoom(ctx, RoomState{Code: "ROOM01", ModeID: 3, ModeName: "battle_royale", Phase: "waiting",
		Players: []PlayerRow{{ID: "a", Name: "Amy"}, {ID: "b", Name: "Bo"}}})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Write(ctx, PlayerRecordID("ROOM01", "b"), map[string]any{"score": 40}); err != nil {
		t.Fatal(err)
	}
	// last-write-wins：同欄位第二次寫入覆蓋
	if err := s.Write(ctx, PlayerRecordID("ROOM01", "b"), map[string]any{"score": 55, "gold": 7}); err != nil {
		t.Fatal(err)
	}
	if err := s.Write(ctx, RoomRecordID("ROOM01"), map[string]any{"phase": "playing"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Write(ctx, "bogus", map[string]any{"x": 1}); err == nil {
		t.Fatalf("bad record id must fail")
	}

	rs, err := s.Read(ctx, "ROOM01")
	if err != nil {
		t.Fatal(err)
	}
	if rs.Phase != "playing" || rs.ModeID != 3 || rs.ModeName != "battle_royale" || len(rs.Players) != 2 {
		t.Fatalf("room: %+v", rs)
	}
	b := rs.Players[1]
	if b.ID != "b" || b.Name != "Bo" || b.Score != 55 || b.Gold != 7 {
		t.Fatalf("player b: %+v", b)
	}

	if err := s.Delete(ctx, "ROOM01"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Read(ctx, "ROOM01"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted room must be gone: %v", err)
	}
}

func exercisePubSub(t *testing.T, s RoomStore) {
	t.Helper()
	ctx, stop := context.WithTimeout(context.Background(), 3*time.Second)
	defer stop()

	ch, cancel, err := s.Subscribe(ctx, "FEED01")
	if err != nil {
		t.Fatal(err)
	}
	o := reward.Of("pool", reward.KindScore, "pocket", 0).With(25, "")
	if err := s.Publish(ctx, "FEED01", Event{Type: EventOutcome, Outcome: &o, At: 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.Publish(ctx, "OTHER1", Event{Type: EventRoom}); err != nil {
		t.Fatal(err)
	}
	select {
	case ev := <-ch:
		if ev.Type != EventOutcome || ev.Room != "FEED01" || ev.Outcome == nil || ev.Outcome.Amount != 25 {
			t.Fatalf("event: %+v", ev)
		}
	case <-ctx.Done():
		t.Fatalf("no event delivered")
	}

	cancel()
	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("unexpected extra event")
		}
	case <-ctx.Done():
		t.Fatalf("channel not closed after cancel")
	}
}

func TestMemoryStore(t *testing.T) {
	m := NewMemory()
	exercise(t, m)
	exercisePubSub(t, m)
}

func TestMemoryDropsWhenSubscriberLags(t *testing.T) {
	m := NewMemoryWithBuffer(1)
	ctx := context.Background()
	ch, cancel, _ := m.Subscribe(ctx, "R")
	defer cancel()
	for i := 0; i < 5; i++ {
		if err := m.Publish(ctx, "R", Event{Type: EventPlayer, At: int64(i)}); err != nil {
			t.Fatal(err)
		}
	}
	if ev := <-ch; ev.At != 0 {
		t.Fatalf("first event must be kept: %+v", ev)
	}
	select {
	case ev := <-ch:
		t.Fatalf("overflow must be dropped: %+v", ev)
	default:
	}
}

func TestMemoryCancelWithoutContext(t *testing.T) {
	m := NewMemory()
	base := runtime.NumGoroutine()
	const n = 200
	for range n {
		ch, cancel, err := m.Subscribe(context.Background(), "R")
		if err != nil {
			t.Fatal(err)
		}
		cancel()
		cancel()
		if _, ok := <-ch; ok {
			t.Fatalf("cancel must close the channel")
		}
	}
	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > base+n/2 {
		if time.Now().After(deadline) {
			t.Fatalf("watchers still running: %d goroutines, base %d", runtime.NumGoroutine(), base)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err := m.Publish(context.Background(), "R", Event{Type: EventPlayer}); err != nil {
		t.Fatal(err)
	}
}

func TestMemoryCloseEndsSubscriptions(t *testing.T) {
	m := NewMemory()
	ch, _, _ := m.Subscribe(context.Background(), "R")
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if _, ok := <-ch; ok {
		t.Fatalf("subscription must be closed")
	}
	if err := m.Write(context.Background(), RoomRecordID("R"), map[string]any{"phase": "x"}); err == nil {
		t.Fatalf("write after close must fail")
	}
}

func newRedis(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedis(client, ttl)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStore(t *testing.T) {
	s, _ := newRedis(t, 0)
	exercise(t, s)
	exercisePubSub(t, s)
}

func TestRedisLayoutAndTTL(t *testing.T) {
	s, mr := newRedis(t, time.Minute)
	ctx := context.Background()
	if err := s.Write(ctx, PlayerRecordID("ROOM02", "p1"), map[string]any{"name": "P", "score": 3}); err != nil {
		t.Fatal(err)
	}
	key := "quizlab:room:ROOM02:player:p1"
	if !mr.Exists(key) {
		t.Fatalf("expected hash %s", key)
	}
	if got := mr.HGet(key, "score"); got != "3" {
		t.Fatalf("score field = %q", got)
	}
	if mr.TTL(key) <= 0 {
		t.Fatalf("ttl must be set")
	}
	mr.FastForward(2 * time.Minute)
	if mr.Exists(key) {
		t.Fatalf("key must expire")
	}
}
