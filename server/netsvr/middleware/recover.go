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

package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/zintix-labs/quizlab/errs"
	"github.com/zintix-labs/quizlab/server/httperr"
)

// Recover 攔下 handler 的 panic，記一筆 error log 並回 500 JSON。
//
// 房間結算本身的 panic 已由 RoomRuntime 處理；這裡只兜住 handler 層的錯誤。
func Recover(log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if p == http.ErrAbortHandler {
					panic(p)
				}
				log.Error("http.panic",
					slog.String("path", r.URL.Path),
					slog.String("req_id", GetReqId(r)),
					slog.Any("panic", p),
					slog.String("stack", string(debug.Stack())),
				)
				httperr.Errs(w, errs.NewFatal(fmt.Sprintf("internal error: %v", p)))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
