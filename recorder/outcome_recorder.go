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

package recorder

import (
	"fmt"
	"maps"
	"slices"
	"sort"

	"github.com/zintix-labs/quizlab/errs"
	"github.com/zintix-labs/quizlab/sdk/mode"
	"github.com/zintix-labs/quizlab/sdk/reward"
	"github.com/zintix-labs/quizlab/spec"
	"github.com/zintix-labs/quizlab/stats"
)

// OutcomeRecorder 結算紀錄員
//
// OutcomeRecorder 負責累計作答與結算結果，並透過 Done 輸出統計報表。
// 不是並行安全的：每個 worker 各自持有一個，最後用 MergeOutcomeRecorder 合併。
type OutcomeRecorder struct {
	ModeName string
	ModeId   spec.MID
	Basic    *BasicRecord
	Kinds    map[reward.Kind]*KindRecord
	Tiers    *TierRecord
	Dist     []int
	Finishes map[string]int
	Scores   []float64
}

// BasicRecord 基本資料紀錄
type BasicRecord struct {
	Games       int
	Answers     int
	Correct     int
	Outcomes    int
	Successes   int
	Amount      float64
	AmountSqSum float64 // 平方和
}

// KindRecord 單一獎勵種類的紀錄
type KindRecord struct {
	Count   int
	Success int
	Amount  float64
}

// TierRecord 稀有度次數
//
// order 是預期順序；不在其中的稀有度依字典序排在後面。
type TierRecord struct {
	order  []string
	counts map[string]int
}

// NewOutcomeRecorder 建立紀錄員；tiers 為稀有度的顯示順序，可為 nil。
func NewOutcomeRecorder(name string, id spec.MID, tiers []string) (*OutcomeRecorder, error) {
	if name == "" {
		return nil, errs.NewFatal("mode name required")
	}
	return &OutcomeRecorder{
		ModeName: name,
		ModeId:   id,
		Basic:    new(BasicRecord),
		Kinds:    make(map[reward.Kind]*KindRecord),
		Tiers:    &TierRecord{order: slices.Clone(tiers), counts: make(map[string]int)},
		Dist:     make([]int, stats.AmountBuckets.Len()),
		Finishes: make(map[string]int),
	}, nil
}

// MergeOutcomeRecorder 合併多個紀錄員（模式必須一致）。
func MergeOutcomeRecorder(r []*OutcomeRecorder) (*OutcomeRecorder, error) {
	if len(r) == 0 {
		return nil, errs.NewFatal("merge outcome record err : empty")
	}
	r0 := r[0]
	s, err := NewOutcomeRecorder(r0.ModeName, r0.ModeId, r0.Tiers.order)
	if err != nil {
		return nil, err
	}
	for _, v := range r {
		if v.ModeName != r0.ModeName || v.ModeId != r0.ModeId {
			return nil, errs.NewFatal(fmt.Sprintf("merge outcome record err : different mode %s(%d)", v.ModeName, v.ModeId))
		}
		s.Basic.Games += v.Basic.Games
		s.Basic.Answers += v.Basic.Answers
		s.Basic.Correct += v.Basic.Correct
		s.Basic.Outcomes += v.Basic.Outcomes
		s.Basic.Successes += v.Basic.Successes
		s.Basic.Amount += v.Basic.Amount
		s.Basic.AmountSqSum += v.Basic.AmountSqSum

		for k, kr := range v.Kinds {
			dst := s.kind(k)
			dst.Count += kr.Count
			dst.Success += kr.Success
			dst.Amount += kr.Amount
		}
		for t, c := range v.Tiers.counts {
			s.Tiers.counts[t] += c
		}
		for i, c := range v.Dist {
			s.Dist[i] += c
		}
		for reason, c := range v.Finishes {
			s.Finishes[reason] += c
		}
		s.Scores = append(s.Scores, v.Scores...)
	}
	return s, nil
}

// RecordAnswer 紀錄一次作答（不論結算結果）。
func (s *OutcomeRecorder) RecordAnswer(correct bool) {
	s.Basic.Answers++
	if correct {
		s.Basic.Correct++
	}
}

// Record 紀錄一個結算結果。
func (s *OutcomeRecorder) Record(o reward.Outcome) {
	b := s.Basic
	b.Outcomes++
	b.Amount += o.Amount
	b.AmountSqSum += o.Amount * o.Amount
	k := s.kind(o.Kind)
	k.Count++
	k.Amount += o.Amount
	if o.Success {
		b.Successes++
		k.Success++
	}
	if o.Success && o.Tier != "" {
		s.Tiers.counts[o.Tier]++
	}
	s.Dist[stats.AmountBuckets.Index(o.Amount)]++
}

// RecordGame 紀錄一局結束：結束原因與每位玩家的最終分數。
func (s *OutcomeRecorder) RecordGame(reason string, standings []mode.Standing) {
	s.Basic.Games++
	if reason == "" {
		reason = "rounds"
	}
	s.Finishes[reason]++
	for _, st := range standings {
		s.Scores = append(s.Scores, float64(st.Score))
	}
}

// Done 產出統計報表（已呼叫 SimReport.Done）。
func (s *OutcomeRecorder) Done() *stats.SimReport {
	b := s.Basic
	kinds := make([]stats.KindReport, 0, len(s.Kinds))
	for k, kr := range s.Kinds {
		kinds = append(kinds, stats.KindReport{
			Kind:    string(k),
			Count:   kr.Count,
			Success: kr.Success,
			Amount:  kr.Amount,
		})
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i].Kind < kinds[j].Kind })

	var tiers *stats.TierReport
	if names := s.Tiers.names(); len(names) > 0 {
		tiers = &stats.TierReport{Tiers: names, Counts: make([]int, len(names))}
		for i, n := range names {
			tiers.Counts[i] = s.Tiers.counts[n]
		}
	}

	report := &stats.SimReport{
		Summary: &stats.SummaryReport{
			ModeName:    s.ModeName,
			ModeId:      s.ModeId,
			Games:       b.Games,
			Answers:     b.Answers,
			Correct:     b.Correct,
			Outcomes:    b.Outcomes,
			Successes:   b.Successes,
			TotalAmount: b.Amount,
			AmountSqSum: b.AmountSqSum,
			Finishes:    maps.Clone(s.Finishes),
		},
		Kinds: kinds,
		Tiers: tiers,
		Dist: &stats.DistReport{
			Buckets: stats.AmountBuckets.Labels(),
			Counts:  slices.Clone(s.Dist),
		},
		Score: &stats.ScoreReport{Scores: slices.Clone(s.Scores)},
	}
	report.Done()
	return report
}

func (s *OutcomeRecorder) kind(k reward.Kind) *KindRecord {
	kr, ok := s.Kinds[k]
	if !ok {
		kr = new(KindRecord)
		s.Kinds[k] = kr
	}
	return kr
}

// names 回傳要輸出的稀有度：預期順序全列（即使次數為 0），其餘依字典序接在後面。
func (t *TierRecord) names() []string {
	out := slices.Clone(t.order)
	extra := make([]string, 0)
	for n := range t.counts {
		if !slices.Contains(t.order, n) {
			extra = append(extra, n)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}
