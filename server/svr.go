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

package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/zintix-labs/quizlab/errs"
	"github.com/zintix-labs/quizlab/server/api"
	"github.com/zintix-labs/quizlab/server/app"
	"github.com/zintix-labs/quizlab/server/netsvr"
	"github.com/zintix-labs/quizlab/server/svrcfg"
)

// Run 是 server 套件的「組裝器（assembler）」與「啟動入口（runtime entry）」。
//
// 它負責：
//  1. 驗證 SvrCfg 並補齊預設依賴（logger、store、metrics、RoomRuntime）。
//  2. 建立 HTTP server（netsvr），位址取自 sCfg.Addr。
//  3. 註冊路由與 middleware（api.RegisterRoutes）。
//  4. 啟動 app 並在收到信號後依序關閉：HTTP → RoomRuntime → store。
//
// Run 不讀檔案也不讀環境變數；設定檔由 cmd/quizlab 讀取後注入。
func Run(ctx context.Context, sCfg *svrcfg.SvrCfg) error {
	if err := sCfg.Valid(); err != nil {
		// 組裝失敗時 logger 可能不可用
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return RunWithSvr(ctx, sCfg, netsvr.NewChiServer(sCfg.Addr))
}

// RunWithSvr 與 Run 相同，但允許注入自訂的 NetSvr（例如自己的 listener 或 adapter）。
//
// svr 必須非 nil；若是 ChiAdapter 則要求 Ready() 為 true。
func RunWithSvr(ctx context.Context, sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr) error {
	a, err := Assemble(sCfg, svr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	sCfg.Log.Info("[quizlab] listening", slog.String("addr", addrOf(svr)))
	if err := a.RunContext(ctx); err != nil {
		sCfg.Log.Error("app stopped", slog.Any("err", err))
		return err
	}
	sCfg.Log.Info("[quizlab] stopped")
	return nil
}

// Assemble 註冊路由並把 RoomRuntime 與 HTTP server 組成 app，但不啟動。
func Assemble(sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr) (*app.App, error) {
	if sCfg == nil {
		return nil, errs.NewFatal("server config is required")
	}
	if err := sCfg.Valid(); err != nil {
		return nil, err
	}
	if svr == nil {
		return nil, errs.NewFatal("svr is required")
	}
	if s, ok := svr.(*netsvr.ChiAdapter); ok && !s.Ready() {
		return nil, errs.NewFatal("default server is not ready")
	}
	if err := api.RegisterRoutes(svr, sCfg); err != nil {
		return nil, errs.Wrap(err, "register routes failed")
	}

	a := app.New()
	a.SetShutdownTimeout(sCfg.ShutdownTimeout)
	a.Register(runtimeComponent(sCfg))
	a.Register(svr)
	return a, nil
}

// runtimeComponent 在 runtime 意外關閉時結束 app；關閉時先停 runtime 再關 store。
func runtimeComponent(sCfg *svrcfg.SvrCfg) app.Component {
	rt := sCfg.Runtime
	return app.Func{
		RunFn: func() error {
			<-rt.Done()
			return errs.Fatalf("room runtime closed: %s", rt.ClosedReason())
		},
		ShutdownFn: func(ctx context.Context) error {
			rt.Close()
			if err := sCfg.Store.Close(); err != nil {
				return errs.Wrap(err, "close store failed")
			}
			return nil
		},
	}
}

func addrOf(svr netsvr.NetSvr) string {
	if s, ok := svr.(*netsvr.ChiAdapter); ok {
		return s.Address()
	}
	return ""
}
