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

// Package modes 匯集所有內建模式的 builder。
package modes

import (
	"log"

	"github.com/zintix-labs/quizlab/modes/cafe"
	"github.com/zintix-labs/quizlab/modes/factory"
	"github.com/zintix-labs/quizlab/modes/fishing"
	"github.com/zintix-labs/quizlab/modes/mafia"
	"github.com/zintix-labs/quizlab/modes/pool"
	"github.com/zintix-labs/quizlab/modes/racing"
	"github.com/zintix-labs/quizlab/modes/royale"
	"github.com/zintix-labs/quizlab/sdk/mode"
)

// Logics 內含 racing、royale、fishing、cafe、factory、mafia、pool 七個 logic key；
// school-racing 只是另一份 racing 設定檔。
var Logics = mode.NewLogicRegistry()

func init() {
	for _, register := range []func(*mode.LogicRegistry) error{
		racing.Register,
		royale.Register,
		fishing.Register,
		cafe.Register,
		factory.Register,
		mafia.Register,
		pool.Register,
	} {
		if err := register(Logics); err != nil {
			log.Fatalf("builtin mode register failed: %v", err)
		}
	}
}
