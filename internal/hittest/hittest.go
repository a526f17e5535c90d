/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package hittest decides which shape a world point touches. Two policies
// share a bounds pre-filter: Select (border-only for outlined primitives) and
// Erase (whole interior counts).
package hittest

import (
	"math"

	"sketchboard/internal/geom"
	"sketchboard/internal/shape"
)

// Base tolerances in screen pixels.
const (
	MouseTolerance = 5.0
	TouchTolerance = 10.0
	// EraserFactor derives the eraser radius from the tool stroke width.
	EraserFactor = 5.0
)

// Options carry input-device and camera context. Tolerances are specified in
// screen pixels and converted to world units by dividing by Scale.
type Options struct {
	Touch bool
	// Scale is the camera zoom factor (zoom/100); zero means 1.
	Scale float64
	// EraserRadius is the eraser size in screen pixels, usually
	// toolStrokeWidth*EraserFactor.
	EraserRadius float64
}

func (o Options) scale() float64 {
	if o.Scale > 0 && !math.IsInf(o.Scale, 0) {
		return o.Scale
	}
	return 1
}

// Base is the device tolerance in world units.
func (o Options) Base() float64 {
	b := MouseTolerance
	if o.Touch {
		b = TouchTolerance
	}
	return b / o.scale()
}

// Pad is the selection tolerance for s: max(base, strokeWidth/2+2), with the
// stroke term already in world units.
func (o Options) Pad(s shape.Shape) float64 {
	return math.Max(o.Base(), s.StrokeWidth/2+2)
}

// EraserReach is the eraser radius in world units, never below the device base.
func (o Options) EraserReach() float64 {
	r := o.EraserRadius
	if !(r > 0) {
		r = 0
	}
	return math.Max(o.Base(), r/o.scale())
}

// boxPadFactor widens the hit box of shapes selected by their bounds.
const boxPadFactor = 1.5

// Policy reports whether p hits s.
type Policy func(p geom.Point, s shape.Shape, opt Options) bool

// Select is the selection policy. Text, image and pencil hit anywhere in the
// padded box; rectangles and circles only near their outline; lines by
// segment distance.
func Select(p geom.Point, s shape.Shape, opt Options) bool {
	if len(s.Points) == 0 {
		return false
	}
	pad := opt.Pad(s)
	switch s.Kind {
	case shape.Text, shape.Image, shape.Pencil:
		return s.Bounds.Outset(pad * boxPadFactor).Contains(p)
	}
	if !s.Bounds.Outset(pad).Contains(p) {
		return false
	}
	switch s.Kind {
	case shape.Rectangle:
		return nearRectEdge(p, s.Bounds, pad)
	case shape.Circle:
		c := s.Points[0]
		return math.Abs(p.Dist(c)-s.Radius()) <= pad
	case shape.Line:
		return nearPolyline(p, s.Points, pad)
	}
	return false
}

// Erase is the eraser policy: sweeping through a rectangle or circle erases
// it, not only touching its outline.
func Erase(p geom.Point, s shape.Shape, opt Options) bool {
	if len(s.Points) == 0 {
		return false
	}
	r := opt.EraserReach()
	if !s.Bounds.Outset(r).Contains(p) {
		return false
	}
	switch s.Kind {
	case shape.Text, shape.Image, shape.Pencil, shape.Rectangle:
		return true
	case shape.Circle:
		return p.Dist(s.Points[0]) <= s.Radius()+r
	case shape.Line:
		return nearPolyline(p, s.Points, r)
	}
	return false
}

// Topmost scans shapes from the top of the paint order and returns the index
// of the first hit.
func Topmost(shapes []shape.Shape, p geom.Point, policy Policy, opt Options) (int, bool) {
	for i := len(shapes) - 1; i >= 0; i-- {
		if policy(p, shapes[i], opt) {
			return i, true
		}
	}
	return -1, false
}

// All returns the ids of every shape hit by p, topmost first.
func All(shapes []shape.Shape, p geom.Point, policy Policy, opt Options) []string {
	var out []string
	for i := len(shapes) - 1; i >= 0; i-- {
		if policy(p, shapes[i], opt) {
			out = append(out, shapes[i].ID)
		}
	}
	return out
}

func nearRectEdge(p geom.Point, b geom.Bounds, pad float64) bool {
	if !b.Outset(pad).Contains(p) {
		return false
	}
	inner := b.Outset(-pad)
	if inner.IsEmpty() {
		// thinner than twice the tolerance: everything inside is near an edge
		return true
	}
	return !(p.X > inner.MinX && p.X < inner.MaxX && p.Y > inner.MinY && p.Y < inner.MaxY)
}

func nearPolyline(p geom.Point, pts []geom.Point, tol float64) bool {
	if len(pts) == 1 {
		return p.Dist(pts[0]) <= tol
	}
	for i := 1; i < len(pts); i++ {
		if geom.SegmentDistance(p, pts[i-1], pts[i]) <= tol {
			return true
		}
	}
	return false
}
