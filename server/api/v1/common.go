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

// Package v1 是 quizlab lab API 的 HTTP handlers。
package v1

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/zintix-labs/quizlab/errs"
	"github.com/zintix-labs/quizlab/server/httperr"
)

const maxBody = 1 << 20 // 1 MiB

// decodeJSON 讀取 request body；body 過大、格式錯誤或含未知欄位都是 Warn。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errs.NewWithExtra(errs.Warn, "invalid json", err.Error())
	}
	return nil
}

// writeJSON 先序列化再寫出，確保不會寫到一半才失敗。
func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		httperr.Errs(w, errs.Wrap(err, "encode response failed"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(b, '\n'))
}

// query 收集 GET 參數的解析錯誤，讓 handler 逐欄讀取、最後一次檢查。
type query struct {
	r   *http.Request
	err error
}

func (q *query) int(key string, dst *int) {
	s := q.r.URL.Query().Get(key)
	if s == "" || q.err != nil {
		return
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		q.err = errs.Warnf("%s must be integer", key)
		return
	}
	*dst = v
}

func (q *query) int64(key string, dst *int64) {
	s := q.r.URL.Query().Get(key)
	if s == "" || q.err != nil {
		return
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		q.err = errs.Warnf("%s must be int64", key)
		return
	}
	*dst = v
}

func (q *query) optInt64(key string, dst **int64) {
	if q.r.URL.Query().Get(key) == "" {
		return
	}
	var v int64
	q.int64(key, &v)
	if q.err == nil {
		*dst = &v
	}
}

func (q *query) float(key string, dst *float64) {
	s := q.r.URL.Query().Get(key)
	if s == "" || q.err != nil {
		return
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		q.err = errs.Warnf("%s must be a number", key)
		return
	}
	*dst = v
}

func (q *query) bool(key string, dst *bool) {
	s := q.r.URL.Query().Get(key)
	if s == "" || q.err != nil {
		return
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		q.err = errs.Warnf("%s must be a bool", key)
		return
	}
	*dst = v
}
