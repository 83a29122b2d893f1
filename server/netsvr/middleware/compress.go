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
	"bufio"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// CompressConfig 控制壓縮等級。
type CompressConfig struct {
	GzipLevel int
	ZstdLevel zstd.EncoderLevel
}

var DefaultCompressConfig = CompressConfig{
	GzipLevel: gzip.DefaultCompression,
	ZstdLevel: zstd.SpeedFastest,
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket") ||
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}

// 1xx / 204 / 304 沒有 body
func isNoBodyStatus(code int) bool {
	return (code >= 100 && code < 200) || code == http.StatusNoContent || code == http.StatusNotModified
}

// pickEncoding 依 Accept-Encoding 選擇壓縮格式，zstd 優先；q=0 視為拒絕。
func pickEncoding(header string) string {
	var gz, zs bool
	for part := range strings.SplitSeq(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if strings.ReplaceAll(strings.TrimSpace(params), " ", "") == "q=0" {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "zstd":
			zs = true
		case "gzip":
			gz = true
		}
	}
	switch {
	case zs:
		return "zstd"
	case gz:
		return "gzip"
	default:
		return ""
	}
}

type encoderPools struct {
	cfg  CompressConfig
	gzip sync.Pool
	zstd sync.Pool
}

func (p *encoderPools) getZstd(w io.Writer) *zstd.Encoder {
	if v := p.zstd.Get(); v != nil {
		zw := v.(*zstd.Encoder)
		zw.Reset(w)
		return zw
	}
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(p.cfg.ZstdLevel), zstd.WithEncoderConcurrency(1))
	if err != nil {
		// 參數固定，只有程式錯誤才會走到這裡
		panic(err)
	}
	return zw
}

func (p *encoderPools) getGzip(w io.Writer) *gzip.Writer {
	if v := p.gzip.Get(); v != nil {
		gw := v.(*gzip.Writer)
		gw.Reset(w)
		return gw
	}
	gw, err := gzip.NewWriterLevel(w, p.cfg.GzipLevel)
	if err != nil {
		gw = gzip.NewWriter(w)
	}
	return gw
}

// compressor 是 gzip.Writer 與 zstd.Encoder 的共同行為。
type compressor interface {
	io.WriteCloser
	Reset(w io.Writer)
	Flush() error
}

type gzipCompressor struct{ *gzip.Writer }

type zstdCompressor struct{ *zstd.Encoder }

type compressResponseWriter struct {
	http.ResponseWriter
	w        compressor
	disabled bool // 204/304 等狀態動態取消壓縮
}

func (cw *compressResponseWriter) Write(b []byte) (int, error) {
	if cw.disabled {
		return cw.ResponseWriter.Write(b)
	}
	cw.Header().Del("Content-Length")
	if cw.Header().Get("Content-Type") == "" {
		cw.Header().Set("Content-Type", http.DetectContentType(b))
	}
	return cw.w.Write(b)
}

func (cw *compressResponseWriter) WriteHeader(code int) {
	cw.Header().Del("Content-Length")
	if isNoBodyStatus(code) {
		cw.disabled = true
		cw.Header().Del("Content-Encoding")
		cw.Header().Del("Vary")
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *compressResponseWriter) Flush() {
	if !cw.disabled {
		_ = cw.w.Flush()
	}
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (cw *compressResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := cw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("underlying response writer does not support Hijacker")
	}
	return hj.Hijack()
}

// Compression 以預設設定壓縮回應（zstd 優先，其次 gzip）。
var Compression = CompressionWith(DefaultCompressConfig)

// CompressionWith 建立指定壓縮等級的 middleware。HEAD 與 websocket upgrade 不壓縮。
func CompressionWith(cfg CompressConfig) func(http.Handler) http.Handler {
	pools := &encoderPools{cfg: cfg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead || isWebSocketUpgrade(r) || w.Header().Get("Content-Encoding") != "" {
				next.ServeHTTP(w, r)
				return
			}

			var (
				c       compressor
				release func()
				enc     = pickEncoding(r.Header.Get("Accept-Encoding"))
			)
			switch enc {
			case "zstd":
				zw := pools.getZstd(w)
				c = zstdCompressor{zw}
				release = func() { pools.zstd.Put(zw) }
			case "gzip":
				gw := pools.getGzip(w)
				c = gzipCompressor{gw}
				release = func() { pools.gzip.Put(gw) }
			default:
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Content-Encoding", enc)
			w.Header().Add("Vary", "Accept-Encoding")

			cw := &compressResponseWriter{ResponseWriter: w, w: c}
			defer func() {
				// 204/304 不能帶壓縮 footer
				if cw.disabled {
					c.Reset(io.Discard)
				}
				_ = c.Close()
				release()
			}()
			next.ServeHTTP(cw, r)
		})
	}
}
