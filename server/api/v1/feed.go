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

package v1

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/zintix-labs/quizlab"
	"github.com/zintix-labs/quizlab/errs"
	"github.com/zintix-labs/quizlab/server/httperr"
	"github.com/zintix-labs/quizlab/server/svrcfg"
	"github.com/zintix-labs/quizlab/store"
)

const (
	feedWriteWait  = 5 * time.Second
	feedPingPeriod = 30 * time.Second
)

// FeedHandler 把房間事件流推給 websocket 客戶端（唯讀）。
type FeedHandler struct {
	rt       *quizlab.RoomRuntime
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewFeedHandler(sCfg *svrcfg.SvrCfg) (*FeedHandler, error) {
	if sCfg == nil || sCfg.Runtime == nil {
		return nil, errs.NewFatal("room runtime is required")
	}
	return &FeedHandler{
		rt:  sCfg.Runtime,
		log: sCfg.Log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}, nil
}

type feedMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Feed GET /v1/rooms/{code}/feed
//
// 連線後先送一筆 "snapshot"，之後每個 store 事件送一筆 {type, payload}。
// 房間關閉（closed 事件）或客戶端斷線時結束。
func (h *FeedHandler) Feed(w http.ResponseWriter, r *http.Request) {
	code := roomCode(r)
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// 升級前訂閱：房間不存在時還能回 HTTP 錯誤
	events, unsub, err := h.rt.Subscribe(ctx, code)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	defer unsub()
	snap, err := h.rt.Room(ctx, code)
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("ws upgrade failed", "room", code, "err", err)
		return
	}
	defer conn.Close()

	// 只讀 control frame；任何讀取錯誤都視為斷線
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := send(conn, feedMessage{Type: "snapshot", Payload: snap}); err != nil {
		return
	}
	ping := time.NewTicker(feedPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(feedWriteWait)); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := send(conn, feedMessage{Type: ev.Type, Payload: ev}); err != nil {
				h.log.Debug("ws write failed", "room", code, "err", err)
				return
			}
			if ev.Type == store.EventClosed {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "room closed")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(feedWriteWait))
				return
			}
		}
	}
}

func send(conn *websocket.Conn, msg feedMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(feedWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}
