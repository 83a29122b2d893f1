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

// Package metrics 把房間執行期的觀測值輸出成 Prometheus collectors。
//
// collectors 註冊在專屬的 *prometheus.Registry，不污染全域 DefaultRegisterer，
// 測試可以各自建立互不干擾的 Metrics。所有方法對 nil receiver 都是 no-op。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zintix-labs/quizlab/sdk/reward"
)

const namespace = "quizlab"

type Metrics struct {
	reg         *prometheus.Registry
	Resolutions *prometheus.CounterVec
	ActiveRooms prometheus.Gauge
	RoomPanics  prometheus.Counter
	RoomsClosed *prometheus.CounterVec
	TickLatency prometheus.Histogram
}

// New 建立 Metrics 並註冊 Go runtime / process collectors。
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Reward resolutions by mode, kind and success",
		}, []string{"mode", "kind", "success"}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_active",
			Help:      "Number of open rooms",
		}),
		RoomPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_panics_total",
			Help:      "Rooms closed because a resolution panicked",
		}),
		RoomsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_closed_total",
			Help:      "Closed rooms by reason",
		}, []string{"reason"}),
		TickLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_seconds",
			Help:      "Room tick processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
	}
	m.reg.MustRegister(
		m.Resolutions,
		m.ActiveRooms,
		m.RoomPanics,
		m.RoomsClosed,
		m.TickLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// Handler 回傳 /metrics 用的 http.Handler。
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) ObserveOutcome(o reward.Outcome) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(o.Mode, string(o.Kind), strconv.FormatBool(o.Success)).Inc()
}

func (m *Metrics) RoomOpened() {
	if m == nil {
		return
	}
	m.ActiveRooms.Inc()
}

func (m *Metrics) RoomClosed(reason string) {
	if m == nil {
		return
	}
	m.ActiveRooms.Dec()
	m.RoomsClosed.WithLabelValues(reason).Inc()
	if reason == "panic" {
		m.RoomPanics.Inc()
	}
}

func (m *Metrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	m.TickLatency.Observe(d.Seconds())
}
