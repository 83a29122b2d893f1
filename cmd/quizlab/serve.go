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

package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/zintix-labs/quizlab/errs"
	"github.com/zintix-labs/quizlab/server"
	"github.com/zintix-labs/quizlab/server/logger"
	"github.com/zintix-labs/quizlab/server/svrcfg"
	"github.com/zintix-labs/quizlab/store"
)

const (
	defaultRedisTTL = 2 * time.Hour
	redisPingWait   = 3 * time.Second
	logBuffer       = 4096
)

type serveFlags struct {
	addr    string
	logMode string
	redis   string
}

func newServeCmd(configPath *string) *cobra.Command {
	fl := new(serveFlags)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the lab HTTP server (rooms, websocket feed, sim, replay)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := svrcfg.Load(*configPath)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), mergeFlags(file, fl))
		},
	}
	cmd.Flags().StringVar(&fl.addr, "addr", "", "listen address (default :5808)")
	cmd.Flags().StringVar(&fl.logMode, "log-mode", "", "log mode: dev|prod|silence")
	cmd.Flags().StringVar(&fl.redis, "redis", "", "redis address; empty keeps rooms in memory")
	return cmd
}

// mergeFlags 以非空的 flag 覆寫設定檔。
func mergeFlags(f svrcfg.File, fl *serveFlags) svrcfg.File {
	if fl.addr != "" {
		f.Addr = fl.addr
	}
	if fl.logMode != "" {
		f.LogMode = fl.logMode
	}
	if fl.redis != "" {
		f.RedisAddr = fl.redis
	}
	return f
}

func runServe(ctx context.Context, f svrcfg.File) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mode, err := logger.ParseMode(f.LogMode)
	if err != nil {
		return err
	}
	log, ah := logger.NewAsync(logBuffer, mode)
	defer ah.Close()

	lab, err := newLab()
	if err != nil {
		return err
	}
	st, err := openStore(ctx, f)
	if err != nil {
		return err
	}
	if f.RedisAddr != "" {
		log.Info("room store: redis", "addr", f.RedisAddr)
	}

	sCfg := &svrcfg.SvrCfg{
		Log:             log,
		Lab:             lab,
		Store:           st,
		Addr:            f.Addr,
		ReqTimeout:      svrcfg.Duration(f.RequestTimeout, svrcfg.DefaultReqTimeout),
		ShutdownTimeout: svrcfg.Duration(f.ShutdownTimeout, 0),
	}
	return server.Run(ctx, sCfg)
}

// openStore 沒有 redis_addr 時回傳 nil，由 SvrCfg 補上記憶體 store。
func openStore(ctx context.Context, f svrcfg.File) (store.RoomStore, error) {
	if f.RedisAddr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     f.RedisAddr,
		Password: f.RedisPassword,
		DB:       f.RedisDB,
	})
	pctx, cancel := context.WithTimeout(ctx, redisPingWait)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, errs.WrapWithExtra(err, "redis unreachable", f.RedisAddr)
	}
	return store.NewRedis(client, svrcfg.Duration(f.RedisTTL, defaultRedisTTL)), nil
}
