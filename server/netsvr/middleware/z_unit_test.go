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
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/zintix-labs/quizlab/server/httperr"
	"github.com/zintix-labs/quizlab/server/logger"
)

func TestPickEncoding(t *testing.T) {
	cases := map[string]string{
		"":                     "",
		"gzip":                 "gzip",
		"gzip, deflate, br":    "gzip",
		"gzip, zstd":           "zstd",
		"zstd;q=0, gzip":       "gzip",
		"ZSTD":                 "zstd",
		"gzip; q=0":            "",
		"identity, deflate":    "",
		" zstd ; q=0.5 , gzip": "zstd",
	}
	for in, want := range cases {
		if got := pickEncoding(in); got != want {
			t.Fatalf("pickEncoding(%q) = %q want %q", in, got, want)
		}
	}
}

func payload() []byte {
	return bytes.Repeat([]byte(`{"player_id":"p1","amount":12.5},`), 100)
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCompressionRoundTrip(t *testing.T) {
	body := payload()
	h := Compression(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := serve(h, req)
	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("want gzip, got %q", rec.Header().Get("Content-Encoding"))
	}
	gr, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(gr)
	if err != nil || !bytes.Equal(got, body) {
		t.Fatalf("gzip body mismatch: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip, zstd")
	rec = serve(h, req)
	if rec.Header().Get("Content-Encoding") != "zstd" {
		t.Fatalf("want zstd, got %q", rec.Header().Get("Content-Encoding"))
	}
	zr, err := zstd.NewReader(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	got, err = io.ReadAll(zr)
	if err != nil || !bytes.Equal(got, body) {
		t.Fatalf("zstd body mismatch: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = serve(h, req)
	if rec.Header().Get("Content-Encoding") != "" || !bytes.Equal(rec.Body.Bytes(), body) {
		t.Fatalf("no Accept-Encoding must pass through")
	}
}

func TestCompressionSkips(t *testing.T) {
	h := Compression(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := serve(h, req)
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 || rec.Header().Get("Content-Encoding") != "" {
		t.Fatalf("204 must not be compressed: code=%d len=%d enc=%q", rec.Code, rec.Body.Len(), rec.Header().Get("Content-Encoding"))
	}

	req = httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	if rec := serve(h, req); rec.Header().Get("Content-Encoding") != "" {
		t.Fatalf("websocket upgrade must not be compressed")
	}
}

func TestRequestIDEcho(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetReqId(r)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "trace-42")
	rec := serve(h, req)
	if seen != "trace-42" || rec.Header().Get("X-Request-Id") != "trace-42" {
		t.Fatalf("upstream id must be kept: seen=%q header=%q", seen, rec.Header().Get("X-Request-Id"))
	}

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rec.Header().Get("X-Request-Id") != seen {
		t.Fatalf("generated id must be echoed: %q", seen)
	}
}

func TestRecoverAndAccessLog(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, logger.ModeProd)
	h := RequestID(AccessLog(log)(Recover(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("handler bug")
	}))))
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/v1/rooms", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d", rec.Code)
	}
	var body httperr.Body
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Level != "fatal" {
		t.Fatalf("body: %s %v", rec.Body.String(), err)
	}
	out := buf.String()
	if !strings.Contains(out, `"msg":"http.panic"`) || !strings.Contains(out, `"msg":"http.access"`) || !strings.Contains(out, `"status":500`) {
		t.Fatalf("log:\n%s", out)
	}
}

func TestDeadline(t *testing.T) {
	var has bool
	h := Deadline(50 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, has = r.Context().Deadline()
	}))
	serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	if !has {
		t.Fatalf("plain request must get a deadline")
	}

	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	serve(h, req)
	if has {
		t.Fatalf("websocket upgrade must not get a deadline")
	}

	plain := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, has = r.Context().Deadline()
	})
	serve(Deadline(0)(plain), httptest.NewRequest(http.MethodGet, "/", nil))
	if has {
		t.Fatalf("zero timeout must leave the context alone")
	}
}
