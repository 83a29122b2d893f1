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

// Package sampler 提供各模式共用的加權抽樣工具。
//
// 所有抽樣都吃呼叫端給的 *core.Core，本包不持有任何亂數狀態：
//   - Select / SelectBy：累積權重走訪，適用於小型戰利品表（道具、娃娃、商品）。
//   - Bands + PickTiered：先依百分位區間決定稀有度，再在該稀有度子池中均勻抽。
//   - AliasTable：整數權重 O(1) 抽樣，適用於固定且頻繁抽取的表（金庫）。
//
// 抽樣函數皆為 total：空表、零權重都回傳哨兵值（-1 或 ok=false），不 panic。
package sampler

// Integers 定義所有底層實現為整數型別的集合
type Integers interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Floaters 定義所有底層實現為浮點數型別的集合
type Floaters interface {
	~float32 | ~float64
}

// Numbers 為整數與浮點數的聯集
type Numbers interface {
	Integers | Floaters
}
