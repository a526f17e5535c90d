/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package camera

import (
	"math"

	"sketchboard/internal/geom"
)

// Pinch scale limits, as a factor rather than a percentage.
const (
	MinPinchScale = 0.5
	MaxPinchScale = 4.0
)

// BeginPinch records the initial finger distance and scale of a two-finger
// gesture. Touches closer than one pixel apart are ignored.
func (c *Camera) BeginPinch(a, b geom.Point) bool {
	d := a.Dist(b)
	if d < 1 || !a.Finite() || !b.Finite() {
		return false
	}
	c.pinch = &pinchState{
		initialDist:  d,
		initialScale: c.Scale(),
		center:       geom.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2},
	}
	return true
}

// UpdatePinch applies scale = initialScale * dist/initialDist, clamped to the
// pinch range and the zoom limits, keeping the current touch midpoint fixed.
func (c *Camera) UpdatePinch(a, b geom.Point) bool {
	if c.pinch == nil {
		return false
	}
	d := a.Dist(b)
	if d <= 0 || math.IsNaN(d) {
		return false
	}
	scale := geom.Clamp(c.pinch.initialScale*d/c.pinch.initialDist, MinPinchScale, MaxPinchScale)
	mid := geom.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
	c.pinch.center = mid
	return c.ZoomAt(scale*100, mid)
}

// EndPinch clears the gesture; the resulting zoom and pan stay.
func (c *Camera) EndPinch() { c.pinch = nil }
