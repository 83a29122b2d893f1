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

// Package svrcfg 是 server 的組裝參數，以及 YAML 設定檔的讀取。
package svrcfg

import (
	"log/slog"
	"time"

	"github.com/zintix-labs/quizlab"
	"github.com/zintix-labs/quizlab/errs"
	"github.com/zintix-labs/quizlab/metrics"
	"github.com/zintix-labs/quizlab/server/logger"
	"github.com/zintix-labs/quizlab/store"
)

const DefaultReqTimeout = 5 * time.Second

// SvrCfg 是 server.Run 的依賴注入點；除了 Lab 之外都有預設值。
type SvrCfg struct {
	Log     *slog.Logger
	Lab     *quizlab.Lab
	Store   store.RoomStore      // nil 時使用 store.Memory
	Metrics *metrics.Metrics     // nil 時建立新的 registry
	Runtime *quizlab.RoomRuntime // nil 時由 Lab.BuildRuntime 建立

	Addr            string
	ReqTimeout      time.Duration // 每個 HTTP 請求的 context 期限（websocket 除外）
	ShutdownTimeout time.Duration
}

// Valid 補齊預設值並建立 RoomRuntime。
func (sc *SvrCfg) Valid() error {
	if sc.Log != nil {
		if ah, ok := sc.Log.Handler().(*logger.AsyncHandler); ok && !ah.Ready() {
			return errs.NewFatal("async log handler is not ready")
		}
	} else {
		sc.Log = logger.NewDefaultLogger(logger.ModeSilence)
	}
	if sc.Lab == nil {
		return errs.NewFatal("lab is required")
	}
	if sc.ReqTimeout <= 0 {
		sc.ReqTimeout = DefaultReqTimeout
	}
	if sc.Metrics == nil {
		sc.Metrics = metrics.New()
	}
	if sc.Store == nil {
		sc.Store = store.NewMemory()
	}
	if sc.Runtime == nil {
		rt, err := sc.Lab.BuildRuntime(
			quizlab.WithLogger(sc.Log),
			quizlab.WithMetrics(sc.Metrics),
			quizlab.WithStore(sc.Store),
		)
		if err != nil {
			return errs.Wrap(err, "build room runtime failed")
		}
		sc.Runtime = rt
	}
	return nil
}
