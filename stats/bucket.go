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

package stats

import "sort"

// AmountBuckets 數值區間（outcome.Amount 的絕對值）
//
// 請勿修改預設值
//   - 區間: [0,0], (0,1), [1,5), [5,10), [10,20), [20,50), [50,100), [100,200), [200,500), [500,+inf)
var AmountBuckets = &Buckets{
	bounds: []float64{0, 1, 5, 10, 20, 50, 100, 200, 500},
	labels: []string{"[0,0]", "(0,1)", "[1,5)", "[5,10)", "[10,20)", "[20,50)", "[50,100)", "[100,200)", "[200,500)", "[500,+inf)"},
}

// Buckets 把數值定位到分佈區間，O(log n)。
type Buckets struct {
	bounds []float64
	labels []string
}

func (b *Buckets) Labels() []string {
	return b.labels
}

func (b *Buckets) Len() int {
	return len(b.labels)
}

// Index 回傳 v 所在區間；負數以絕對值計。
func (b *Buckets) Index(v float64) int {
	if v < 0 {
		v = -v
	}
	if v == 0 {
		return 0
	}
	// bounds[1:] 是各區間的上界（不含）
	return sort.Search(len(b.bounds)-1, func(i int) bool { return v < b.bounds[i+1] }) + 1
}

// DistReport 數值區間落點統計
type DistReport struct {
	Buckets []string  `json:"Buckets"`
	Counts  []int     `json:"Counts"`
	Rates   []float64 `json:"Rates"`
}

func (d *DistReport) done() {
	n := 0
	for _, c := range d.Counts {
		n += c
	}
	d.Rates = make([]float64, len(d.Counts))
	if n == 0 {
		return
	}
	for i, c := range d.Counts {
		d.Rates[i] = float64(c) / float64(n)
	}
}
