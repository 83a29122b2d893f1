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

// Package pool 實作撞球模式：答對蓄力（力道由作答速度決定），再以角度出桿；
// 球以固定步長積分（pos += vel、vel *= friction、碰牆反射），進袋得分並累積連進。
package pool

import (
	"github.com/zintix-labs/quizlab/errs"
	"github.com/zintix-labs/quizlab/spec"
)

type Setting struct {
	Width         float64 `yaml:"width"`
	Height        float64 `yaml:"height"`
	BallRadius    float64 `yaml:"ball_radius"`
	PocketRadius  float64 `yaml:"pocket_radius"`
	Friction      float64 `yaml:"friction"`
	StopThreshold float64 `yaml:"stop_threshold"`
	MinPower      float64 `yaml:"min_power"`
	MaxPower      float64 `yaml:"max_power"`
	MaxSteps      int     `yaml:"max_steps"`
	HoleValue     int     `yaml:"hole_value"`
	SpeedBonus    int     `yaml:"speed_bonus"`
	StreakBonus   int     `yaml:"streak_bonus"`
	BonusChance   float64 `yaml:"bonus_chance"`
}

func LoadSetting(ms *spec.ModeSetting) (*Setting, error) {
	s := &Setting{}
	if err := spec.DecodeFixed(ms, s); err != nil {
		return nil, err
	}
	if err := s.init(); err != nil {
		return nil, errs.WrapWithExtra(err, "pool setting invalid", ms.ModeName)
	}
	return s, nil
}

func (s *Setting) init() error {
	if s.Friction == 0 {
		s.Friction = 0.98
	}
	if s.StopThreshold == 0 {
		s.StopThreshold = 0.1
	}
	if s.MaxSteps <= 0 {
		s.MaxSteps = 2000
	}
	if s.Width <= 0 || s.Height <= 0 {
		return errs.NewFatal("table width and height must be > 0")
	}
	if s.BallRadius < 0 || 2*s.BallRadius >= min(s.Width, s.Height) {
		return errs.NewFatal("ball_radius does not fit the table")
	}
	if s.PocketRadius <= 0 {
		return errs.NewFatal("pocket_radius must be > 0")
	}
	if s.Friction <= 0 || s.Friction >= 1 {
		return errs.NewFatal("friction must be within (0,1)")
	}
	if s.MinPower < 0 || s.MaxPower < s.MinPower {
		return errs.NewFatal("invalid power range")
	}
	if s.BonusChance < 0 || s.BonusChance > 1 {
		return errs.NewFatal("bonus_chance must be within [0,1]")
	}
	return nil
}

// Table 回傳物理積分用的桌面參數。
func (s *Setting) Table() Table {
	return Table{
		Width:         s.Width,
		Height:        s.Height,
		BallRadius:    s.BallRadius,
		PocketRadius:  s.PocketRadius,
		Friction:      s.Friction,
		StopThreshold: s.StopThreshold,
	}
}
