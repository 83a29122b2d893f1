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
	"os"

	"github.com/spf13/cobra"
	"github.com/zintix-labs/quizlab"
	"github.com/zintix-labs/quizlab/configs"
	"github.com/zintix-labs/quizlab/modes"
	"github.com/zintix-labs/quizlab/sdk/core"
)

func newRootCmd() *cobra.Command {
	configPath := os.Getenv("QUIZLAB_CONFIG")

	cmd := &cobra.Command{
		Use:          "quizlab",
		Short:        "Quiz game-mode reward engine: lab server and simulator",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", configPath, "path to server YAML config")
	cmd.AddCommand(newServeCmd(&configPath))
	cmd.AddCommand(newSimCmd())
	cmd.AddCommand(newModesCmd())
	return cmd
}

// newLab 載入內建的八個模式設定與七個 logic。
func newLab() (*quizlab.Lab, error) {
	return quizlab.NewAuto(
		core.Default(),
		quizlab.Configs(configs.FS),
		quizlab.Logics(modes.Logics),
	)
}
