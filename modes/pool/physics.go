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

package pool

import "math"

type Ball struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
}

// Speed 為速度向量長度。
func (b Ball) Speed() float64 { return math.Hypot(b.VX, b.VY) }

// AtRest 回報球是否完全靜止。
func (b Ball) AtRest() bool { return b.VX == 0 && b.VY == 0 }

type Table struct {
	Width         float64
	Height        float64
	BallRadius    float64
	PocketRadius  float64
	Friction      float64
	StopThreshold float64
}

// Point 是桌面座標。
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pockets 回傳六個袋口：四角與兩條長邊中點。
func (t Table) Pockets() [6]Point {
	w, h := t.Width, t.Height
	return [6]Point{{0, 0}, {w / 2, 0}, {w, 0}, {0, h}, {w / 2, h}, {w, h}}
}

// SimulateBallPhysics 推進一步：
//
//	pos += vel
//	碰牆：位置夾回桌內，該軸速度反向
//	vel *= friction
//	速度 < stop_threshold 時 vx = vy = 0
func SimulateBallPhysics(b Ball, t Table) Ball {
	b.X += b.VX
	b.Y += b.VY

	r := t.BallRadius
	if b.X < r {
		b.X, b.VX = r, -b.VX
	} else if b.X > t.Width-r {
		b.X, b.VX = t.Width-r, -b.VX
	}
	if b.Y < r {
		b.Y, b.VY = r, -b.VY
	} else if b.Y > t.Height-r {
		b.Y, b.VY = t.Height-r, -b.VY
	}

	b.VX *= t.Friction
	b.VY *= t.Friction
	if b.Speed() < t.StopThreshold {
		b.VX, b.VY = 0, 0
	}
	return b
}

// PocketAt 回傳球心落在哪個袋口內（距離 < pocket_radius），沒有則 -1。
func PocketAt(b Ball, t Table) int {
	for i, p := range t.Pockets() {
		if math.Hypot(b.X-p.X, b.Y-p.Y) < t.PocketRadius {
			return i
		}
	}
	return -1
}

// Launch 以角度（弧度）與力道設定初速。
func Launch(b Ball, angle, power float64) Ball {
	b.VX = power * math.Cos(angle)
	b.VY = power * math.Sin(angle)
	return b
}

// Roll 是一桿的模擬結果。
type Roll struct {
	Final  Ball `json:"final"`
	Pocket int  `json:"pocket"`
	Steps  int  `json:"steps"`
}

// RollOut 反覆積分直到進袋、靜止或達到 maxSteps。
func RollOut(b Ball, t Table, maxSteps int) Roll {
	for step := 1; step <= maxSteps; step++ {
		b = SimulateBallPhysics(b, t)
		if p := PocketAt(b, t); p >= 0 {
			return Roll{Final: b, Pocket: p, Steps: step}
		}
		if b.AtRest() {
			return Roll{Final: b, Pocket: -1, Steps: step}
		}
	}
	return Roll{Final: b, Pocket: -1, Steps: maxSteps}
}

// AimNearest 回傳朝最近袋口的角度（弧度）。
func AimNearest(b Ball, t Table) float64 {
	best, dist := Point{}, math.Inf(1)
	for _, p := range t.Pockets() {
		if d := math.Hypot(p.X-b.X, p.Y-b.Y); d < dist {
			best, dist = p, d
		}
	}
	return math.Atan2(best.Y-b.Y, best.X-b.X)
}
