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

import (
	"math"
	"sort"

	"github.com/zintix-labs/quizlab/errs"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Estimate 點估計與區間
type Estimate struct {
	Hat float64 `json:"Hat"`
	CI  CI      `json:"CI"`
}

// TierReport 稀有度落點統計
//
// Tiers 依呼叫端給定的順序排列（通常由普通到稀有）；Expected 與 GoF 只在呼叫 Expect 後才有值。
type TierReport struct {
	Tiers    []string  `json:"Tiers"`
	Counts   []int     `json:"Counts"`
	Rates    []float64 `json:"Rates"`
	CIs      []CI      `json:"CIs"`
	Expected []float64 `json:"Expected,omitempty"`
	GoF      *GoF      `json:"GoF,omitempty"`
}

// GoF 卡方適合度檢定結果
type GoF struct {
	ChiSquare float64 `json:"ChiSquare"`
	DF        int     `json:"DF"`
	PValue    float64 `json:"PValue"`
}

// ScoreReport 每局結束時的玩家分數分佈
type ScoreReport struct {
	Scores  []float64 `json:"-"`
	Players int       `json:"Players"`
	Mean    float64   `json:"Mean"`
	Median  Estimate  `json:"Median"`
	P10     Estimate  `json:"P10"`
	P90     Estimate  `json:"P90"`
}

// Total 回傳所有稀有度的總次數。
func (t *TierReport) Total() int {
	n := 0
	for _, c := range t.Counts {
		n += c
	}
	return n
}

// Expect 以權重列（不需正規化）設定期望比例，並計算卡方適合度檢定。
func (t *TierReport) Expect(weights []float64) error {
	if len(weights) != len(t.Tiers) {
		return errs.NewWarn("expected weights must match tiers")
	}
	g, err := ChiSquareGoF(t.Counts, weights)
	if err != nil {
		return err
	}
	exp := make([]float64, len(weights))
	copy(exp, weights)
	floats.Scale(1/floats.Sum(exp), exp)
	t.Expected = exp
	t.GoF = &g
	return nil
}

func (t *TierReport) done() {
	n := t.Total()
	t.Rates = make([]float64, len(t.Counts))
	t.CIs = make([]CI, len(t.Counts))
	for i, c := range t.Counts {
		t.Rates[i], t.CIs[i] = ProportionCI(c, n, Confidence)
	}
}

func (sr *ScoreReport) done() {
	sr.Players = len(sr.Scores)
	if sr.Players == 0 {
		return
	}
	sr.Mean = stat.Mean(sr.Scores, nil)
	sr.Median = quantileEstimate(sr.Scores, 0.5)
	sr.P10 = quantileEstimate(sr.Scores, 0.1)
	sr.P90 = quantileEstimate(sr.Scores, 0.9)
}

// ProportionCI 回傳 k/n 的點估計與 Clopper–Pearson 精確區間。
func ProportionCI(k, n int, confidence float64) (float64, CI) {
	return proportionCICP(k, n, confidence)
}

// ChiSquareGoF 對觀察次數做卡方適合度檢定；weights 為期望權重（會自動正規化）。
//
// 期望為 0 的格子：若觀察也為 0 則略過，否則統計量為 +Inf、p 值為 0。
func ChiSquareGoF(observed []int, weights []float64) (GoF, error) {
	if len(observed) != len(weights) || len(observed) < 2 {
		return GoF{}, errs.NewWarn("chi-square needs at least two matching bins")
	}
	total := floats.Sum(weights)
	if !(total > 0) {
		return GoF{}, errs.NewWarn("chi-square weights must sum > 0")
	}
	n := 0
	for _, o := range observed {
		n += o
	}
	if n == 0 {
		return GoF{}, errs.NewWarn("chi-square needs observations")
	}

	obs := make([]float64, 0, len(observed))
	exp := make([]float64, 0, len(observed))
	for i, o := range observed {
		e := float64(n) * weights[i] / total
		if e <= 0 {
			if o > 0 {
				return GoF{ChiSquare: math.Inf(1), DF: len(observed) - 1, PValue: 0}, nil
			}
			continue
		}
		obs = append(obs, float64(o))
		exp = append(exp, e)
	}
	df := len(obs) - 1
	if df < 1 {
		return GoF{}, errs.NewWarn("chi-square needs at least two bins with positive weight")
	}
	x := stat.ChiSquare(obs, exp)
	p := distuv.ChiSquared{K: float64(df)}.Survival(x)
	return GoF{ChiSquare: x, DF: df, PValue: p}, nil
}

// ============================================================
// ** 內部統計函數 **
// ============================================================

// Clopper–Pearson exact CI for binomial proportion (k successes out of n)
func proportionCICP(k int, n int, confidence float64) (pHat float64, ci CI) {
	if n == 0 {
		return 0, CI{0, 1}
	}
	alpha := 1 - confidence
	pHat = float64(k) / float64(n)

	// Beta PPF 映射，處理邊界
	if k == 0 {
		ci.Lo = 0
	} else {
		b := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
		ci.Lo = b.Quantile(alpha / 2)
	}
	if k == n {
		ci.Hi = 1
	} else {
		b := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
		ci.Hi = b.Quantile(1 - alpha/2)
	}
	return
}

func quantileEstimate(data []float64, q float64) Estimate {
	lo, hi := quantileCI(data, q, Confidence)
	return Estimate{Hat: quantilePoint(data, q), CI: CI{Lo: lo, Hi: hi}}
}

// 估「第 q 分位」的上下界：把 order statistic 的秩視為二項→Beta 反推 p 範圍，再把 p 轉回樣本索引。
func quantileCI(data []float64, q, confidence float64) (float64, float64) {
	n := len(data)
	if n == 0 {
		return 0, 0
	}
	cp := make([]float64, n)
	copy(cp, data)
	sort.Float64s(cp)
	if n == 1 {
		return cp[0], cp[0]
	}

	alpha := 1 - confidence
	k := int(q * float64(n))
	if k < 1 {
		k = 1
	} else if k > n-1 {
		k = n - 1
	}

	bLo := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
	bHi := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
	pLo := bLo.Quantile(alpha / 2)
	pHi := bHi.Quantile(1 - alpha/2)

	li := min(max(int(pLo*float64(n)), 0), n-1)
	ui := int(pHi * float64(n))
	if ui > 0 {
		ui -= 1
	}
	ui = min(max(ui, 0), n-1)
	return cp[li], cp[ui]
}

// quantilePoint returns the empirical quantile point estimate at q.
func quantilePoint(data []float64, q float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}
	cp := make([]float64, n)
	copy(cp, data)
	sort.Float64s(cp)
	// 最近秩法
	idx := min(max(int(q*float64(n)), 0), n-1)
	return cp[idx]
}
