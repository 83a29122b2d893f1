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

package spec

import (
	"bytes"

	"github.com/zintix-labs/quizlab/errs"
	"gopkg.in/yaml.v3"
)

// DecodeFixed 會把 ms.Fixed 由 map[string]any 轉成你要的型別 T。
// out 通常是模式自己的設定 struct，例如 *racing.Setting。
func DecodeFixed[T any](ms *ModeSetting, out *T) error {
	if ms == nil {
		return errs.NewFatal("spec.fixed_decoder : nil mode setting")
	}
	// 先把 map[string]any -> YAML bytes
	bs, err := yaml.Marshal(ms.Fixed)
	if err != nil {
		return errs.Wrap(err, "spec.fixed_decoder : marshal failed")
	}
	// 再把 YAML bytes -> 自定義的型別
	dec := yaml.NewDecoder(bytes.NewReader(bs))
	dec.KnownFields(true) // 嚴格檢查：多寫/拼錯欄位就報錯
	if err = dec.Decode(out); err != nil {
		return errs.WrapWithExtra(err, "spec.fixed_decoder : decode failed", ms.ModeName)
	}
	return nil
}
