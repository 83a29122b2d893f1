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

// Package core 提供所有獎勵判定共用的亂數核心。
//
// 每一個會用到隨機的函數都必須「顯式」拿到 *Core，而不是呼叫全域亂數：
//   - 同一個 seed 產生同一條亂數序列，測試與回放（replay）才可重現。
//   - 透過 Snapshot/Restore 可以在任意時間點保存/還原核心狀態，用於審計。
package core

import (
	"io"
	"math"
)

// PRNG 定義 Core 所需的亂數來源，需同時支援取樣與狀態保存/還原。
type PRNG interface {
	RAND
	Restorable
}

// Restorable 定義可快照與還原的狀態介面。
type Restorable interface {
	// Snapshot 回傳可用於還原的序列化狀態。
	Snapshot() ([]byte, error)
	// Restore 依序列化狀態還原 PRNG 內部狀態。
	Restore([]byte) error
}

// RAND 定義核心亂數取樣能力。
type RAND interface {
	// Uint64 回傳非負 uint64 亂數。
	Uint64() uint64
	// Float64 回傳 [0,1) 的浮點亂數。
	Float64() float64
	// UintN 回傳 [0,max) 的 uint 亂數，若 max == 0 回傳 0。
	UintN(uint) uint
	// IntN 回傳 [0,max) 的 int 亂數，若 max <= 0 回傳 -1。
	IntN(int) int
}

// PRNGFactory 以 seed 建立 PRNG。
//
// 合約：同一實作、同一版本下 New(seed) 必須是決定性的，相同 seed 產生相同序列。
// 沒有「不帶 seed 的 New()」：seed 一律由 Lab/Runtime 產生並保存。
type PRNGFactory interface {
	New(int64) PRNG
}

type DefaultPRNG struct{}

func (d *DefaultPRNG) New(seed int64) PRNG {
	return newPCG64WithSeed(seed)
}

func Default() *DefaultPRNG {
	return &DefaultPRNG{}
}

// Core 是 PRNG 的薄包裝，補上模式判定常用的取樣 helper。
type Core struct {
	PRNG
}

func New(rng PRNG) *Core {
	return &Core{rng}
}

// Pick 從 src 均勻取一個值；src 為空回傳 -1。
func (c *Core) Pick(src []int) int {
	if len(src) == 0 {
		return -1
	}
	idx := c.IntN(len(src))
	return src[idx]
}

// ShuffleInts 原地 Fisher-Yates 洗牌。
func (c *Core) ShuffleInts(src []int) {
	if len(src) <= 1 {
		return
	}
	for i := len(src) - 1; i > 0; i-- {
		j := c.IntN(i + 1)
		src[i], src[j] = src[j], src[i]
	}
}

// ExpFloat64 回傳 rate=1 的指數分佈亂數（> 0）。
func (c *Core) ExpFloat64() float64 {
	u := c.Float64()
	for u == 0 {
		u = c.Float64()
	}
	return -math.Log(u)
}

// Chance 以機率 p 回傳 true。
//
// p <= 0 一律 false、p >= 1 一律 true，且這兩種情況「不消耗」亂數，
// 讓關閉某個機率事件時不會推進序列。
func (c *Core) Chance(p float64) bool {
	if !(p > 0) {
		return false
	}
	if p >= 1 {
		return true
	}
	return c.Float64() < p
}

// FloatRange 回傳 [lo,hi) 的浮點亂數；lo >= hi 時直接回傳 lo。
func (c *Core) FloatRange(lo, hi float64) float64 {
	if !(hi > lo) {
		return lo
	}
	return lo + (hi-lo)*c.Float64()
}

// IntRange 回傳 [lo,hi]（含兩端）的整數亂數；lo >= hi 時回傳 lo。
func (c *Core) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + c.IntN(hi-lo+1)
}

// Reader 回傳以本核心為來源的 io.Reader。
//
// 用於 uuid.NewRandomFromReader 等需要位元組流的 API，讓獎勵實例 id 也跟著 seed 可重現。
func (c *Core) Reader() io.Reader {
	return coreReader{c: c}
}

type coreReader struct {
	c *Core
}

func (r coreReader) Read(p []byte) (int, error) {
	for i := 0; i < len(p); i += 8 {
		v := r.c.Uint64()
		for j := 0; j < 8 && i+j < len(p); j++ {
			p[i+j] = byte(v >> (8 * j))
		}
	}
	return len(p), nil
}
