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

package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/zintix-labs/quizlab/sdk/reward"
)

func TestOutcomeCounters(t *testing.T) {
	m := New()
	m.ObserveOutcome(reward.Of("fishing", reward.KindCatch, "ok", 0))
	m.ObserveOutcome(reward.Of("fishing", reward.KindCatch, "ok", 0))
	m.ObserveOutcome(reward.Noop("fishing", "guard"))

	if got := testutil.ToFloat64(m.Resolutions.WithLabelValues("fishing", "catch", "true")); got != 2 {
		t.Fatalf("catch successes = %v", got)
	}
	if got := testutil.ToFloat64(m.Resolutions.WithLabelValues("fishing", "none", "false")); got != 1 {
		t.Fatalf("no-ops = %v", got)
	}
}

func TestRoomLifecycle(t *testing.T) {
	m := New()
	m.RoomOpened()
	m.RoomOpened()
	m.RoomClosed("closed")
	m.RoomClosed("panic")
	if got := testutil.ToFloat64(m.ActiveRooms); got != 0 {
		t.Fatalf("active rooms = %v", got)
	}
	if got := testutil.ToFloat64(m.RoomPanics); got != 1 {
		t.Fatalf("panics = %v", got)
	}
	if got := testutil.ToFloat64(m.RoomsClosed.WithLabelValues("closed")); got != 1 {
		t.Fatalf("closed = %v", got)
	}
	m.ObserveTick(3 * time.Millisecond)
	if n := testutil.CollectAndCount(m.TickLatency); n != 1 {
		t.Fatalf("histogram series = %d", n)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RoomOpened()
	m.RoomClosed("panic")
	m.ObserveOutcome(reward.Noop("x", "y"))
	m.ObserveTick(time.Second)
	if m.Registry() != nil {
		t.Fatalf("nil metrics has no registry")
	}
}

func TestHandlerExposesSeries(t *testing.T) {
	m := New()
	m.RoomOpened()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "quizlab_rooms_active 1") {
		t.Fatalf("metrics output missing gauge:\n%s", body)
	}
}
