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

package sampler

import (
	"math"

	"github.com/zintix-labs/quizlab/sdk/core"
)

// Select 依權重抽出一個索引（累積權重走訪）。
//
// 規則：
//   - 權重不需要加總為 1；抽樣當下以總和正規化。
//   - 負數、NaN、Inf 權重視為 0。
//   - 空表或總和 <= 0 回傳 -1。
//   - r = Float64()*total，回傳第一個累積權重 > r 的索引；權重為 0 的項目永遠不會被選中。
//   - 若因浮點捨入走完仍未命中，回傳最後一個正權重索引。
func Select[T Numbers](c *core.Core, weights []T) int {
	total := 0.0
	last := -1
	for i, w := range weights {
		f := weightOf(float64(w))
		if f > 0 {
			total += f
			last = i
		}
	}
	if last < 0 || !(total > 0) || math.IsInf(total, 0) {
		return -1
	}

	r := c.Float64() * total
	cum := 0.0
	for i, w := range weights {
		f := weightOf(float64(w))
		if f == 0 {
			continue
		}
		cum += f
		if r < cum {
			return i
		}
	}
	return last
}

// SelectBy 依 weight(item) 從 items 中抽出一個元素；沒有任何正權重時回傳零值與 false。
func SelectBy[T any](c *core.Core, items []T, weight func(T) float64) (T, bool) {
	var zero T
	if len(items) == 0 || weight == nil {
		return zero, false
	}
	ws := make([]float64, len(items))
	for i, it := range items {
		ws[i] = weight(it)
	}
	idx := Select(c, ws)
	if idx < 0 {
		return zero, false
	}
	return items[idx], true
}

// Uniform 從 items 中均勻抽一個；空表回傳零值與 false。
func Uniform[T any](c *core.Core, items []T) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}
	return items[c.IntN(len(items))], true
}

func weightOf(w float64) float64 {
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return 0
	}
	return w
}
