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

package main

import (
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/zintix-labs/quizlab"
	"github.com/zintix-labs/quizlab/errs"
	"github.com/zintix-labs/quizlab/sdk/perf"
	"github.com/zintix-labs/quizlab/spec"
	"github.com/zintix-labs/quizlab/stats"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	green = "\033[1;32m"
	reset = "\033[0m"
)

type simFlags struct {
	mode      uint
	rounds    int
	workers   int
	players   int
	accuracy  float64
	timeLimit int64
	seed      int64
	rank      int
	frenzy    bool
	pprofMode string
	pprofDir  string
	format    string
	progress  bool
}

func newSimCmd() *cobra.Command {
	fl := new(simFlags)
	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Simulate synthetic players against one game mode and print the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := fl.valid(); err != nil {
				return err
			}
			return perf.RunPProf(fl.pprofDir, fl.pprofMode, func() error {
				return runSim(cmd.OutOrStdout(), fl)
			})
		},
	}
	f := cmd.Flags()
	f.UintVar(&fl.mode, "mode", 0, "target mode id (see `quizlab modes`)")
	f.IntVar(&fl.rounds, "rounds", 100000, "questions per worker (draws per worker with --rank)")
	f.IntVar(&fl.workers, "workers", 1, "number of parallel rooms")
	f.IntVar(&fl.players, "players", 0, "players per room (default min(4, max_players))")
	f.Float64Var(&fl.accuracy, "accuracy", 0.6, "probability of a correct answer")
	f.Int64Var(&fl.timeLimit, "time-limit-ms", 0, "time limit per question (default 10000)")
	f.Int64Var(&fl.seed, "seed", -1, "int64 seed; negative draws one from crypto/rand")
	f.IntVar(&fl.rank, "rank", 0, "fishing only: draw the claw machine of this rank instead of playing")
	f.BoolVar(&fl.frenzy, "frenzy", false, "fishing only: draw with frenzy active (with --rank)")
	f.StringVar(&fl.pprofMode, "pprof", "", "pprof: '', cpu, heap, allocs")
	f.StringVar(&fl.pprofDir, "pprof-dir", perf.DefaultDir, "directory for pprof output")
	f.StringVar(&fl.format, "format", "table", "report format: table|json|yaml")
	f.BoolVar(&fl.progress, "progress", true, "show a progress bar on stderr")
	_ = cmd.MarkFlagRequired("mode")
	return cmd
}

func (fl *simFlags) valid() error {
	if fl.mode == 0 {
		return errs.NewWarn("--mode is required")
	}
	if fl.workers < 1 {
		return errs.NewWarn("workers must > 0")
	}
	if fl.rounds < 1 {
		return errs.NewWarn("rounds must > 0")
	}
	if _, err := stats.RenderFor(fl.format); err != nil {
		return err
	}
	return nil
}

// runSim 這裡解析並分支要執行的模擬器
func runSim(w io.Writer, fl *simFlags) error {
	lab, err := newLab()
	if err != nil {
		return err
	}
	id := spec.MID(fl.mode)
	var sim *quizlab.Simulator
	if fl.seed < 0 {
		sim, err = lab.NewSimulator(id)
	} else {
		sim, err = lab.NewSimulatorWithSeed(id, fl.seed)
	}
	if err != nil {
		return err
	}
	render, err := stats.RenderFor(fl.format)
	if err != nil {
		return err
	}

	p := message.NewPrinter(language.English)
	table := fl.format == "" || fl.format == "table"
	if table {
		p.Fprintf(w, "%s[MODE:%s] [WORKERS:%d] [QUESTIONS:%d] [SEED:%d]%s\n",
			green, sim.ModeName, fl.workers, fl.workers*fl.rounds, sim.InitSeed(), reset)
	}

	var (
		rep  *stats.SimReport
		used time.Duration
	)
	set := quizlab.SimSetting{Players: fl.players, Accuracy: fl.accuracy, TimeLimitMs: fl.timeLimit}
	switch {
	case fl.rank > 0:
		start := time.Now()
		rep, err = sim.FishingTiers(fl.rank, fl.rounds*fl.workers, fl.frenzy)
		used = time.Since(start)
	case fl.workers == 1:
		rep, used, err = sim.Sim(set, fl.rounds, fl.progress)
	default:
		rep, used, err = sim.SimMP(set, fl.rounds, fl.workers, fl.progress)
	}
	if err != nil {
		return err
	}
	if table {
		p.Fprintf(w, "used: %v (%.0f answers/s)\n", used.Round(time.Millisecond), perSecond(rep.Summary.Answers, used))
	}
	return rep.WriteWith(w, render)
}

func perSecond(n int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / d.Seconds()
}
