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
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/zintix-labs/quizlab/spec"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var lang language.Tag = language.English

// Confidence 是報表內所有區間估計使用的信賴水準。
const Confidence = 0.95

// 信賴區間
type CI struct {
	Lo float64 `json:"Lo"`
	Hi float64 `json:"Hi"`
}

// SimReport 模擬統計報告
type SimReport struct {
	Summary *SummaryReport `json:"Summary"`
	Kinds   []KindReport   `json:"Kinds"`
	Tiers   *TierReport    `json:"Tiers,omitzero"`
	Dist    *DistReport    `json:"Dist"`
	Score   *ScoreReport   `json:"Score,omitzero"`
	isDone  bool
}

type SummaryReport struct {
	ModeName    string         `json:"ModeName"`
	ModeId      spec.MID       `json:"ModeId"`
	Games       int            `json:"Games"`
	Answers     int            `json:"Answers"`
	Correct     int            `json:"Correct"`
	Accuracy    float64        `json:"Accuracy"`
	AccuracyCI  CI             `json:"AccuracyCI"`
	Outcomes    int            `json:"Outcomes"`
	Successes   int            `json:"Successes"`
	SuccessRate float64        `json:"SuccessRate"`
	SuccessCI   CI             `json:"SuccessCI"`
	TotalAmount float64        `json:"TotalAmount"`
	AmountSqSum float64        `json:"AmountSqSum"` // 平方和
	MeanAmount  float64        `json:"MeanAmount"`
	AmountCI    CI             `json:"AmountCI"`
	Std         float64        `json:"Std"`
	Finishes    map[string]int `json:"Finishes,omitempty"`
}

// KindReport 依獎勵種類彙總
type KindReport struct {
	Kind    string  `json:"Kind"`
	Count   int     `json:"Count"`
	Success int     `json:"Success"`
	Amount  float64 `json:"Amount"`
	Share   float64 `json:"Share"`
}

// ============================================================
// ** 公開方法 **
// ============================================================

// Done 將累積計數轉換為最終統計結果並鎖定 isDone 標記。
//
// 紀錄過程只累加計數與和，請在紀錄完成後呼叫 Done 一次性計算比例、標準差與信賴區間。
func (s *SimReport) Done() {
	if s.isDone {
		return
	}
	sum := s.Summary
	sum.Accuracy, sum.AccuracyCI = ProportionCI(sum.Correct, sum.Answers, Confidence)
	sum.SuccessRate, sum.SuccessCI = ProportionCI(sum.Successes, sum.Outcomes, Confidence)
	sum.MeanAmount = s.Mean()
	sum.Std = s.Std()
	sum.AmountCI = s.Ci()

	for i := range s.Kinds {
		if sum.Outcomes > 0 {
			s.Kinds[i].Share = float64(s.Kinds[i].Count) / float64(sum.Outcomes)
		}
	}
	if s.Tiers != nil {
		s.Tiers.done()
	}
	if s.Dist != nil {
		s.Dist.done()
	}
	if s.Score != nil {
		s.Score.done()
	}
	s.isDone = true
}

// Mean 回傳每個 outcome 的平均數值（含失敗的 0）
func (s *SimReport) Mean() float64 {
	if s.Summary.Outcomes == 0 {
		return 0
	}
	return s.Summary.TotalAmount / float64(s.Summary.Outcomes)
}

// Std 回傳單一 outcome 數值的樣本標準差
func (s *SimReport) Std() float64 {
	n := float64(s.Summary.Outcomes)
	if n < 2 {
		return 0
	}
	variance := (s.Summary.AmountSqSum - s.Summary.TotalAmount*s.Summary.TotalAmount/n) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// Ci 回傳平均數值的 95% 常態近似區間
func (s *SimReport) Ci() CI {
	mean := s.Mean()
	se := float64(0)
	if s.Summary.Outcomes > 1 {
		se = s.Std() / math.Sqrt(float64(s.Summary.Outcomes))
	}
	return CI{
		Lo: mean - 1.96*se,
		Hi: mean + 1.96*se,
	}
}

func (s *SimReport) WriteWith(w io.Writer, rep SimReportRender) error {
	s.Done()
	return rep.Write(w, s)
}

// StdOut 印出用時與表格報告。
func (s *SimReport) StdOut(ut time.Duration) {
	s.Done()
	formatDuration(ut, s.Summary.Answers)
	fmt.Println(s.Table())
}

// Table 回傳可直接印出的表格字串（基本資訊、種類、稀有度）。
func (s *SimReport) Table() string {
	s.Done()
	sk, sm := s.fmtBasic()
	out := fmtTable(s.Summary.ModeName, sk, sm)
	if kk, km := s.fmtKinds(); len(kk) > 0 {
		out += fmtTable("Outcome Kinds", kk, km)
	}
	if s.Tiers != nil && len(s.Tiers.Tiers) > 0 {
		tk, tm := s.fmtTiers()
		out += fmtTable("Tiers", tk, tm)
	}
	return out
}

// ============================================================
// ** 內部方法 **
// ============================================================

func formatDuration(d time.Duration, answers int) {
	p := message.NewPrinter(lang)
	if d < 0 {
		d = -d
	}
	sec := d.Seconds()
	if sec <= 0 {
		sec = 1e-9
	}
	aps := int(float64(answers) / sec)
	if sec < 60.0 {
		p.Printf("used: %.2f seconds\naps : %d answers/sec\n", sec, aps)
		return
	}
	s := int(d.Seconds()) % 60
	m := int(d.Minutes()) % 60
	h := int(d.Hours())
	if h == 0 {
		p.Printf("used: %dm %ds\naps : %d answers/sec\n", m, s, aps)
		return
	}
	p.Printf("used: %dh:%dm:%ds\naps : %d answers/sec\n", h, m, s, aps)
}

func (s *SimReport) fmtBasic() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	sum := s.Summary
	basic := map[string]string{
		"Mode Name":    p.Sprintf("%s", sum.ModeName),
		"Mode ID":      fmt.Sprintf("%d", sum.ModeId),
		"Games":        p.Sprintf("%d", sum.Games),
		"Answers":      p.Sprintf("%d", sum.Answers),
		"Accuracy":     p.Sprintf("%.2f %%", 100.0*sum.Accuracy),
		"Outcomes":     p.Sprintf("%d", sum.Outcomes),
		"Success Rate": p.Sprintf("%.2f %%", 100.0*sum.SuccessRate),
		"Success CI":   p.Sprintf("[%.2f%%,%.2f%%]", 100.0*sum.SuccessCI.Lo, 100.0*sum.SuccessCI.Hi),
		"Total Amount": p.Sprintf("%.2f", sum.TotalAmount),
		"Mean Amount":  p.Sprintf("%.3f", sum.MeanAmount),
		"Mean 95% CI":  p.Sprintf("[%.3f,%.3f]", sum.AmountCI.Lo, sum.AmountCI.Hi),
		"STD":          p.Sprintf("%.3f", sum.Std),
	}
	keys := []string{"Mode Name", "Mode ID", "Games", "Answers", "Accuracy", "Outcomes", "Success Rate", "Success CI", "Total Amount", "Mean Amount", "Mean 95% CI", "STD"}
	if s.Score != nil && s.Score.Players > 0 {
		basic["Median Score"] = fmtValueCI(s.Score.Median)
		basic["P90 Score"] = fmtValueCI(s.Score.P90)
		keys = append(keys, "Median Score", "P90 Score")
	}
	return keys, basic
}

func (s *SimReport) fmtKinds() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	keys := make([]string, 0, len(s.Kinds))
	msg := make(map[string]string, len(s.Kinds))
	for _, k := range s.Kinds {
		keys = append(keys, k.Kind)
		msg[k.Kind] = p.Sprintf("%d (%.2f%%) ok=%d amount=%.1f", k.Count, 100*k.Share, k.Success, k.Amount)
	}
	return keys, msg
}

func (s *SimReport) fmtTiers() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	t := s.Tiers
	keys := make([]string, 0, len(t.Tiers)+1)
	msg := make(map[string]string, len(t.Tiers)+1)
	for i, name := range t.Tiers {
		keys = append(keys, name)
		v := p.Sprintf("%d %s", t.Counts[i], fmtHatCI(Estimate{Hat: t.Rates[i], CI: t.CIs[i]}))
		if len(t.Expected) == len(t.Tiers) {
			v += p.Sprintf(" exp=%.2f%%", 100*t.Expected[i])
		}
		msg[name] = v
	}
	if t.GoF != nil {
		keys = append(keys, "chi-square")
		msg["chi-square"] = p.Sprintf("%.3f df=%d p=%.4f", t.GoF.ChiSquare, t.GoF.DF, t.GoF.PValue)
	}
	return keys, msg
}

func fmtTable(title string, keys []string, msg map[string]string) string {
	p := message.NewPrinter(lang)
	maxKeyLen := runewidth.StringWidth(title)
	maxValLen := 0
	for k, m := range msg {
		if w := runewidth.StringWidth(k); w > maxKeyLen {
			maxKeyLen = w
		}
		if w := runewidth.StringWidth(m); w > maxValLen {
			maxValLen = w
		}
	}
	maxKeyLen += 2
	maxValLen += 2

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
	top := "+" + strings.Repeat("-", maxKeyLen+1+maxValLen) + "+\n"

	totalInner := maxKeyLen + maxValLen + 1
	titleW := runewidth.StringWidth(title)

	left := (totalInner - titleW) / 2
	right := totalInner - titleW - left

	var b strings.Builder
	b.WriteString(top)
	b.WriteString(p.Sprintf("|%s%s%s|\n", blank(left), title, blank(right)))
	b.WriteString(divider)
	for _, k := range keys {
		b.WriteString(p.Sprintf("| %s%s | %s%s |\n", k, blank(maxKeyLen-2-runewidth.StringWidth(k)), msg[k], blank(maxValLen-2-runewidth.StringWidth(msg[k]))))
	}
	b.WriteString(divider)
	return b.String()
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}

func fmtPct01(x float64) string {
	return fmt.Sprintf("%.2f%%", x*100)
}

func fmtHatCI(e Estimate) string {
	return fmt.Sprintf("%s [%s, %s]", fmtPct01(e.Hat), fmtPct01(e.CI.Lo), fmtPct01(e.CI.Hi))
}

func fmtValueCI(e Estimate) string {
	return fmt.Sprintf("%.1f [%.1f, %.1f]", e.Hat, e.CI.Lo, e.CI.Hi)
}
