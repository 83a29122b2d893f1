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

package api

import (
	"net/http"

	v1 "github.com/zintix-labs/quizlab/server/api/v1"
	"github.com/zintix-labs/quizlab/server/netsvr"
	"github.com/zintix-labs/quizlab/server/netsvr/middleware"
	"github.com/zintix-labs/quizlab/server/svrcfg"
)

// RegisterRoutes 註冊；sCfg 必須已通過 Valid()。
func RegisterRoutes(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) error {
	registerMiddleware(svr, sCfg) // 1. 註冊 middleware
	registerOps(svr, sCfg)        // 2. 健康檢查與 metrics
	return registerV1API(svr, sCfg)
}

// 註冊 middleware
func registerMiddleware(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.AccessLog(sCfg.Log))
	svr.Use(middleware.Recover(sCfg.Log))
	svr.Use(middleware.Deadline(sCfg.ReqTimeout))
	svr.Use(middleware.Compression)
}

func registerOps(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) {
	svr.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if sCfg.Runtime.Closed() {
			http.Error(w, "runtime closed", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	svr.Handle("/metrics", sCfg.Metrics.Handler())
}

// 註冊 v1 api
func registerV1API(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) error {
	m, err := v1.NewModeHandler(sCfg.Lab)
	if err != nil {
		return err
	}
	rooms, err := v1.NewRoomHandler(sCfg)
	if err != nil {
		return err
	}
	feed, err := v1.NewFeedHandler(sCfg)
	if err != nil {
		return err
	}
	s, err := v1.NewSimHandler(sCfg.Lab)
	if err != nil {
		return err
	}
	rp, err := v1.NewReplayHandler(sCfg.Lab)
	if err != nil {
		return err
	}
	svr.Group("/v1", func(vOne netsvr.NetRouter) {
		vOne.Get("/modes", m.Modes)
		vOne.Get("/modes/{id}", m.Mode)

		vOne.Get("/rooms", rooms.List)
		vOne.Post("/rooms", rooms.Create)
		vOne.Group("/rooms/{code}", func(room netsvr.NetRouter) {
			room.Get("/", rooms.Get)
			room.Delete("/", rooms.Close)
			room.Get("/state", rooms.State)
			room.Get("/feed", feed.Feed)
			room.Post("/join", rooms.Join)
			room.Post("/start", rooms.Start)
			room.Post("/reset", rooms.Reset)
			room.Post("/answer", rooms.Answer)
			room.Post("/act", rooms.Act)
		})

		vOne.Get("/sim", s.Sim)
		vOne.Post("/sim", s.Sim)
		vOne.Get("/sim/tiers", s.Tiers)
		vOne.Post("/sim/tiers", s.Tiers)

		vOne.Post("/replay", rp.Replay)
	})
	return nil
}
