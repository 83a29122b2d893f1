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

// Package corefmt 負責把 Core 快照與 Session 快照轉成可以放進 JSON/URL 的文字。
//
//   - Core 快照很小（數十 bytes），直接用 base64url（無 padding）。
//   - Session 快照是 JSON，先 zstd 壓縮再 base64url，並加上 "z." 前綴以便辨識。
package corefmt

import (
	"encoding/base64"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/zintix-labs/quizlab/errs"
)

const packedPrefix = "z."

// 上限 8 MiB，避免解開來源不明的資料時無限配置
const maxUnpacked = 8 << 20

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	decoder, _ = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxUnpacked))
)

func EncodeBase64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func DecodeBase64URL(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, errs.Wrap(err, "decode base64url failed")
	}
	return b, nil
}

// Pack 以 zstd 壓縮後輸出 "z." + base64url。
func Pack(b []byte) string {
	return packedPrefix + EncodeBase64URL(encoder.EncodeAll(b, make([]byte, 0, len(b)/2)))
}

// Unpack 是 Pack 的反向；沒有 "z." 前綴時視為未壓縮的 base64url。
func Unpack(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	raw, packed := strings.CutPrefix(s, packedPrefix)
	b, err := DecodeBase64URL(raw)
	if err != nil {
		return nil, err
	}
	if !packed {
		return b, nil
	}
	out, err := decoder.DecodeAll(b, nil)
	if err != nil {
		return nil, errs.Wrap(err, "decode zstd failed")
	}
	return out, nil
}
