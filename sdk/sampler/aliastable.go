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
	"math/bits"

	"github.com/zintix-labs/quizlab/errs"
	"github.com/zintix-labs/quizlab/sdk/core"
)

// AliasTable 是整數版本的 Vose Alias Method。
//
// 建表在設定載入時做一次（金庫表、固定掉落表），之後每次 Pick 只需兩次 IntN。
// 整數 scaling 讓 sum(Prob) == Total*Size 恆成立，沒有浮點累積誤差。
//
//   - Prob: 每格經 scaling 後的保留機率
//   - Aliases: 機率不足時改取的別名索引
//   - Size: 格數
//   - Total: 權重總和
type AliasTable struct {
	Prob    []int `json:"prob"`
	Aliases []int `json:"aliases"`
	Size    int   `json:"size"`
	Total   int   `json:"total"`
}

// BuildAliasTable 由整數權重建表。
//
// 權重為負、總和為 0、或 scaling 會溢位時回傳 errs.Fatal（屬於設定錯誤，應在載入階段擋下）。
// 空權重回傳 Size=0 的表，Pick 會回 -1。
func BuildAliasTable(weights []int) (*AliasTable, error) {
	n := len(weights)
	if n == 0 {
		return &AliasTable{Prob: []int{}, Aliases: []int{}}, nil
	}

	total := uint64(0)
	for i, w := range weights {
		if w < 0 {
			return nil, errs.Fatalf("alias table: negative weight at %d", i)
		}
		if total > uint64(math.MaxInt)-uint64(w) {
			return nil, errs.NewFatal("alias table: total weight overflow")
		}
		total += uint64(w)
	}
	if total == 0 {
		return nil, errs.NewFatal("alias table: all weights are zero")
	}
	if !isSafeMultiply(int(total), n) {
		return nil, errs.NewFatal("alias table: weights too large to scale")
	}

	t := int(total)
	prob := make([]int, n)
	aliases := make([]int, n)
	small := make([]int, 0, n)
	large := make([]int, 0, n)

	for i, w := range weights {
		prob[i] = w * n
		aliases[i] = i
		if prob[i] < t {
			small = append(small, i)
		} else {
			large = append(large, i)
		}
	}

	for len(small) > 0 && len(large) > 0 {
		s := small[len(small)-1]
		small = small[:len(small)-1]
		l := large[len(large)-1]
		large = large[:len(large)-1]

		aliases[s] = l
		prob[l] = prob[l] + prob[s] - t

		if prob[l] < t {
			small = append(small, l)
		} else {
			large = append(large, l)
		}
	}
	// 剩下的格子理論上都是滿格；整數版不會有誤差，但仍補滿避免越界抽到 alias。
	for _, i := range large {
		prob[i] = t
	}
	for _, i := range small {
		prob[i] = t
	}

	return &AliasTable{Prob: prob, Aliases: aliases, Size: n, Total: t}, nil
}

func isSafeMultiply(a, b int) bool {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	return hi == 0 && lo <= math.MaxInt64
}

// Pick 抽出一個索引；空表回傳 -1。
func (at *AliasTable) Pick(c *core.Core) int {
	if at == nil || at.Size == 0 {
		return -1
	}
	idx := c.IntN(at.Size)
	if c.IntN(at.Total) < at.Prob[idx] {
		return idx
	}
	return at.Aliases[idx]
}
