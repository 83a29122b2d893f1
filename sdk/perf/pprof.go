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

// Package perf 替模擬指令包上 pprof（quizlab sim --pprof cpu|heap|allocs）。
package perf

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"

	"github.com/zintix-labs/quizlab/errs"
)

const DefaultDir = "build/profiling" // pprof檔案寫入路徑

// RunPProf 根據 mode 決定執行哪種 Profiling，並回傳 exe 的錯誤。
//
// mode 為空時直接執行 exe；dir 為空時寫入 DefaultDir。
func RunPProf(dir, mode string, exe func() error) error {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		return exe()
	}
	if dir == "" {
		dir = DefaultDir
	}
	switch mode {
	case "cpu":
		return PProfCPU(dir, exe)
	case "heap":
		return PProfHeap(dir, exe)
	case "allocs":
		return PProfAllocs(dir, exe)
	default:
		return errs.Warnf("unknown pprof mode %q (want cpu, heap or allocs)", mode)
	}
}

// PProfCPU 在 exe 執行期間錄製 CPU profile，輸出 dir/cpu.pprof。
//
// 可以作性能分析，也可以拿來做構建時給pgo的優化blueprint
//
// Usage like:
//
//	go run ./cmd/quizlab sim --mode 1 --pprof cpu
func PProfCPU(dir string, exe func() error) error {
	f, err := create(dir, "cpu.pprof")
	if err != nil {
		return err
	}
	defer f.Close()
	if err := pprof.StartCPUProfile(f); err != nil {
		return errs.Wrap(err, "start cpu profile failed")
	}
	defer pprof.StopCPUProfile()

	return exe()
}

// PProfHeap 會在 exe() 執行完後，寫出一次 Heap Snapshot（in-use memory）。
// 寫出前先 runtime.GC()，讓快照貼近 live objects。
// 輸出檔：dir/heap.pprof
func PProfHeap(dir string, exe func() error) error {
	runErr := exe()

	runtime.GC()
	f, err := create(dir, "heap.pprof")
	if err != nil {
		return errors.Join(runErr, err)
	}
	defer f.Close()
	if err := pprof.WriteHeapProfile(f); err != nil {
		return errors.Join(runErr, errs.Wrap(err, "write heap profile failed"))
	}
	return runErr
}

// PProfAllocs 會在 exe() 後寫出「累積配置」(allocs) Profile，
// 可用於追蹤整體分配熱點（需要搭配 -alloc_space / -alloc_objects 指標查看）。
// 輸出檔：dir/allocs.pprof
func PProfAllocs(dir string, exe func() error) error {
	runErr := exe()

	f, err := create(dir, "allocs.pprof")
	if err != nil {
		return errors.Join(runErr, err)
	}
	defer f.Close()
	if prof := pprof.Lookup("allocs"); prof != nil {
		if err := prof.WriteTo(f, 0); err != nil {
			return errors.Join(runErr, errs.Wrap(err, "write allocs profile failed"))
		}
	}
	return runErr
}

func create(dir, name string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(err, "create profiling dir failed")
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, errs.Wrap(err, "create "+name+" failed")
	}
	return f, nil
}
