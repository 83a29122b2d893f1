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

package cafe

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/zintix-labs/quizlab/sdk/core"
	"github.com/zintix-labs/quizlab/sdk/reward"
	"github.com/zintix-labs/quizlab/sdk/sampler"
)

const modeName = "cafe"

type Customer struct {
	ID        string    `json:"id"`
	Order     string    `json:"order"`
	ExpiresAt time.Time `json:"expires_at"`
}

// State 是單一玩家的咖啡廳。
type State struct {
	Cash      int             `json:"cash"`
	Stock     map[string]int  `json:"stock"`
	Unlocked  map[string]bool `json:"unlocked"`
	Levels    map[string]int  `json:"levels"`
	Customers []Customer      `json:"customers"`
	NextSpawn time.Time       `json:"next_spawn"`
	Served    int             `json:"served"`
	Expired   int             `json:"expired"`
	Earned    int             `json:"earned"`

	s *Setting
}

// ServeDelta / ShopDelta 攜帶操作後的數值。
type ServeDelta struct {
	CustomerID string `json:"customer_id"`
	Item       string `json:"item"`
	Price      int    `json:"price"`
	StockLeft  int    `json:"stock_left"`
}

type ShopDelta struct {
	Key   string `json:"key"`
	Cost  int    `json:"cost"`
	Level int    `json:"level"`
	Stock int    `json:"stock"`
}

// NewState 依設定建立起始狀態。
func NewState(s *Setting, now time.Time) *State {
	st := &State{
		Cash:      s.StartCash,
		Stock:     make(map[string]int, len(s.Menu)),
		Unlocked:  make(map[string]bool, len(s.Menu)),
		Levels:    make(map[string]int, len(s.Upgrades)),
		NextSpawn: now,
		s:         s,
	}
	for _, m := range s.Menu {
		st.Unlocked[m.Key] = m.Unlocked
		if m.Unlocked {
			st.Stock[m.Key] = min(m.StartStock, s.MaxStock)
		}
	}
	return st
}

// Clone 深拷貝。
func (st *State) Clone() *State {
	cp := *st
	cp.Stock = maps.Clone(st.Stock)
	cp.Unlocked = maps.Clone(st.Unlocked)
	cp.Levels = maps.Clone(st.Levels)
	cp.Customers = slices.Clone(st.Customers)
	return &cp
}

// SpawnMultiplier 是所有升級 spawn_mult^level 的乘積。
func (st *State) SpawnMultiplier() float64 {
	m := 1.0
	for _, u := range st.s.Upgrades {
		m *= math.Pow(u.SpawnMult, float64(st.Levels[u.Key]))
	}
	return m
}

// SellMultiplier 是所有升級 sell_mult^level 的乘積。
func (st *State) SellMultiplier() float64 {
	m := 1.0
	for _, u := range st.s.Upgrades {
		m *= math.Pow(u.SellMult, float64(st.Levels[u.Key]))
	}
	return m
}

// UpgradeCost = floor(cost × growth^level)。
func UpgradeCost(u Upgrade, level int) int {
	return int(math.Floor(float64(u.Cost) * math.Pow(u.CostGrowth, float64(level))))
}

// orderable 回傳已解鎖且有庫存的品項（依菜單順序）。
func (st *State) orderable() []string {
	out := make([]string, 0, len(st.s.Menu))
	for _, m := range st.s.Menu {
		if st.Unlocked[m.Key] && st.Stock[m.Key] > 0 {
			out = append(out, m.Key)
		}
	}
	return out
}

// SpawnCustomer 在已解鎖且有庫存的品項中隨機選一個當訂單；沒有可點的品項或客滿時不產生客人。
func SpawnCustomer(st *State, c *core.Core, now time.Time, id string) (*State, reward.Outcome) {
	if len(st.Customers) >= st.s.MaxCustomers {
		return st, reward.Noop(modeName, "cafe is full")
	}
	order, ok := sampler.Uniform(c, st.orderable())
	if !ok {
		return st, reward.Noop(modeName, "nothing to order")
	}
	next := st.Clone()
	cu := Customer{ID: id, Order: order, ExpiresAt: now.Add(time.Duration(st.s.PatienceMs) * time.Millisecond)}
	next.Customers = append(next.Customers, cu)
	return next, reward.Of(modeName, reward.KindSpawn, "customer wants "+order, cu)
}

// SweepExpired 移除耐心耗盡（now >= expiresAt）的客人，只計數不扣分。
func SweepExpired(st *State, now time.Time) (*State, []reward.Outcome) {
	keep := st.Customers[:0:0]
	var outs []reward.Outcome
	for _, cu := range st.Customers {
		if !now.Before(cu.ExpiresAt) {
			outs = append(outs, reward.Of(modeName, reward.KindExpire, "customer left", cu))
			continue
		}
		keep = append(keep, cu)
	}
	if len(outs) == 0 {
		return st, nil
	}
	next := st.Clone()
	next.Customers = keep
	next.Expired += len(outs)
	return next, outs
}

// Tick 先清除過期客人，再在 now >= NextSpawn 時產生客人；
// 下一次來客時間 = interval / SpawnMultiplier。
func Tick(st *State, c *core.Core, now time.Time, newID func() string) (*State, []reward.Outcome) {
	st, outs := SweepExpired(st, now)
	if now.Before(st.NextSpawn) {
		return st, outs
	}
	next, o := SpawnCustomer(st, c, now, newID())
	if o.Success {
		outs = append(outs, o)
	}
	if next == st {
		next = st.Clone()
	}
	gap := time.Duration(float64(st.s.SpawnIntervalMs)/st.SpawnMultiplier()) * time.Millisecond
	next.NextSpawn = now.Add(gap)
	return next, outs
}

// ServeCustomer 出餐：找不到客人或無庫存時回傳原指標與 Success=false。
func ServeCustomer(st *State, customerID string) (*State, reward.Outcome) {
	idx := slices.IndexFunc(st.Customers, func(cu Customer) bool { return cu.ID == customerID })
	if idx < 0 {
		return st, reward.Noop(modeName, "no such customer")
	}
	cu := st.Customers[idx]
	if st.Stock[cu.Order] <= 0 {
		return st, reward.Noop(modeName, "out of "+cu.Order)
	}
	item, _ := st.s.menuItem(cu.Order)
	price := int(math.Floor(float64(item.BasePrice) * st.SellMultiplier()))

	next := st.Clone()
	next.Stock[cu.Order]--
	next.Cash += price
	next.Earned += price
	next.Served++
	next.Customers = slices.Delete(next.Customers, idx, idx+1)
	d := ServeDelta{CustomerID: cu.ID, Item: cu.Order, Price: price, StockLeft: next.Stock[cu.Order]}
	return next, reward.Of(modeName, reward.KindServe, fmt.Sprintf("served %s +%d", item.Name, price), d).With(float64(price), "")
}

// Restock 補一份庫存（上限 max_stock）；key 未知或空白時補給庫存最少的已解鎖品項。
func Restock(st *State, key string) (*State, reward.Outcome) {
	if !st.Unlocked[key] {
		key = st.lowestStock()
	}
	if key == "" {
		return st, reward.Noop(modeName, "nothing to restock")
	}
	if st.Stock[key] >= st.s.MaxStock {
		return st, reward.Noop(modeName, key+" is full")
	}
	next := st.Clone()
	next.Stock[key]++
	d := ShopDelta{Key: key, Stock: next.Stock[key]}
	return next, reward.Of(modeName, reward.KindRestock, "restocked "+key, d).With(1, "")
}

func (st *State) lowestStock() string {
	best, bestN := "", math.MaxInt
	for _, m := range st.s.Menu {
		if !st.Unlocked[m.Key] {
			continue
		}
		if n := st.Stock[m.Key]; n < bestN && n < st.s.MaxStock {
			best, bestN = m.Key, n
		}
	}
	return best
}

// BuyUpgrade 購買升級；未知、已滿級或現金不足時回傳原指標。
func BuyUpgrade(st *State, key string) (*State, reward.Outcome) {
	u, ok := st.s.upgrade(key)
	if !ok {
		return st, reward.Noop(modeName, "unknown upgrade "+key)
	}
	lv := st.Levels[key]
	if lv >= u.MaxLevel {
		return st, reward.Noop(modeName, u.Name+" is max level")
	}
	cost := UpgradeCost(u, lv)
	if st.Cash < cost {
		return st, reward.Noop(modeName, "not enough cash")
	}
	next := st.Clone()
	next.Cash -= cost
	next.Levels[key] = lv + 1
	d := ShopDelta{Key: key, Cost: cost, Level: lv + 1}
	return next, reward.Of(modeName, reward.KindUpgrade, fmt.Sprintf("%s lv%d", u.Name, lv+1), d).With(float64(-cost), "")
}

// UnlockItem 解鎖菜單品項；未知、已解鎖或現金不足時回傳原指標。
func UnlockItem(st *State, key string) (*State, reward.Outcome) {
	m, ok := st.s.menuItem(key)
	if !ok {
		return st, reward.Noop(modeName, "unknown item "+key)
	}
	if st.Unlocked[key] {
		return st, reward.Noop(modeName, m.Name+" already unlocked")
	}
	if st.Cash < m.UnlockCost {
		return st, reward.Noop(modeName, "not enough cash")
	}
	next := st.Clone()
	next.Cash -= m.UnlockCost
	next.Unlocked[key] = true
	next.Stock[key] = min(m.StartStock, st.s.MaxStock)
	d := ShopDelta{Key: key, Cost: m.UnlockCost, Stock: next.Stock[key]}
	return next, reward.Of(modeName, reward.KindUpgrade, "unlocked "+m.Name, d).With(float64(-m.UnlockCost), "")
}
