/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package camera converts between screen space (CSS pixels reported by
// pointer events) and world space (where shapes are stored).
//
// The zoom pivot is the viewport center: with zero pan, zooming keeps the
// center of the viewport fixed. Device pixel ratio is applied only by Matrix,
// at the rendering-context level, never in the world/screen math.
package camera

import (
	"math"

	"sketchboard/internal/geom"
)

const (
	DefaultZoom = 100.0
	MinZoom     = 50.0
	MaxZoom     = 400.0
	ZoomStep    = 10.0
)

// WorldToScreen maps a world point to screen pixels:
// screen = (world - origin) * scale + origin + pan.
func WorldToScreen(p geom.Point, viewport geom.Size, zoom float64, pan geom.Point) geom.Point {
	s := zoom / 100
	ox, oy := viewport.W/2, viewport.H/2
	return geom.Point{
		X: (p.X-ox)*s + ox + pan.X,
		Y: (p.Y-oy)*s + oy + pan.Y,
	}
}

// ScreenToWorld is the inverse of WorldToScreen.
func ScreenToWorld(p geom.Point, viewport geom.Size, zoom float64, pan geom.Point) geom.Point {
	s := zoom / 100
	if s == 0 {
		s = 1
	}
	ox, oy := viewport.W/2, viewport.H/2
	return geom.Point{
		X: (p.X-ox-pan.X)/s + ox,
		Y: (p.Y-oy-pan.Y)/s + oy,
	}
}

// Limits bounds the zoom percentage and the step used by ZoomIn/ZoomOut.
type Limits struct {
	Min  float64
	Max  float64
	Step float64
}

// DefaultLimits returns the [50,400] range with a step of 10.
func DefaultLimits() Limits { return Limits{Min: MinZoom, Max: MaxZoom, Step: ZoomStep} }

// Camera is the viewport state of one canvas instance.
// It is not safe for concurrent use; the engine serializes access.
type Camera struct {
	zoom     float64
	pan      geom.Point
	dpr      float64
	viewport geom.Size
	limits   Limits

	pinch *pinchState
}

type pinchState struct {
	initialDist  float64
	initialScale float64
	center       geom.Point
}

// New returns a camera at 100% with no pan and a device pixel ratio of 1.
// Zero fields of limits fall back to the defaults.
func New(limits Limits) *Camera {
	d := DefaultLimits()
	if limits.Min <= 0 {
		limits.Min = d.Min
	}
	if limits.Max <= 0 || limits.Max < limits.Min {
		limits.Max = math.Max(d.Max, limits.Min)
	}
	if limits.Step <= 0 {
		limits.Step = d.Step
	}
	return &Camera{zoom: geom.Clamp(DefaultZoom, limits.Min, limits.Max), dpr: 1, limits: limits}
}

func (c *Camera) Zoom() float64       { return c.zoom }
func (c *Camera) Scale() float64      { return c.zoom / 100 }
func (c *Camera) Pan() geom.Point     { return c.pan }
func (c *Camera) DPR() float64        { return c.dpr }
func (c *Camera) Viewport() geom.Size { return c.viewport }
func (c *Camera) Limits() Limits      { return c.limits }
func (c *Camera) Pinching() bool      { return c.pinch != nil }

// Origin is the zoom pivot (viewport center) in screen pixels.
func (c *Camera) Origin() geom.Point { return geom.Point{X: c.viewport.W / 2, Y: c.viewport.H / 2} }

// SetViewport updates the CSS-pixel container size and device pixel ratio.
// Non-positive ratios are treated as 1.
func (c *Camera) SetViewport(w, h, dpr float64) {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	if dpr <= 0 || math.IsNaN(dpr) || math.IsInf(dpr, 0) {
		dpr = 1
	}
	c.viewport = geom.Size{W: w, H: h}
	c.dpr = dpr
}

// DeviceSize is the backing-store size in device pixels.
func (c *Camera) DeviceSize() (int, int) {
	return int(math.Ceil(c.viewport.W * c.dpr)), int(math.Ceil(c.viewport.H * c.dpr))
}

// SetZoom clamps z to the configured range. Out-of-range values saturate.
// It returns true if the value changed.
func (c *Camera) SetZoom(z float64) bool {
	if math.IsNaN(z) {
		return false
	}
	nz := geom.Clamp(z, c.limits.Min, c.limits.Max)
	if nz == c.zoom {
		return false
	}
	c.zoom = nz
	return true
}

func (c *Camera) ZoomIn() bool  { return c.SetZoom(c.zoom + c.limits.Step) }
func (c *Camera) ZoomOut() bool { return c.SetZoom(c.zoom - c.limits.Step) }

// ZoomAt changes the zoom while keeping the world point under focus (screen
// pixels) in place.
func (c *Camera) ZoomAt(z float64, focus geom.Point) bool {
	world := c.ScreenToWorld(focus)
	if !c.SetZoom(z) {
		return false
	}
	o := c.Origin()
	s := c.Scale()
	c.pan = geom.Point{
		X: focus.X - o.X - (world.X-o.X)*s,
		Y: focus.Y - o.Y - (world.Y-o.Y)*s,
	}
	return true
}

// ResetZoom restores 100% and clears the pan offset.
func (c *Camera) ResetZoom() {
	c.zoom = geom.Clamp(DefaultZoom, c.limits.Min, c.limits.Max)
	c.pan = geom.Point{}
	c.pinch = nil
}

func (c *Camera) SetPan(p geom.Point) {
	if p.Finite() {
		c.pan = p
	}
}

func (c *Camera) PanBy(dx, dy float64) {
	c.SetPan(geom.Point{X: c.pan.X + dx, Y: c.pan.Y + dy})
}

func (c *Camera) WorldToScreen(p geom.Point) geom.Point {
	return WorldToScreen(p, c.viewport, c.zoom, c.pan)
}

func (c *Camera) ScreenToWorld(p geom.Point) geom.Point {
	return ScreenToWorld(p, c.viewport, c.zoom, c.pan)
}

// Matrix maps world coordinates to device pixels: device pixel ratio scale,
// then zoom scale about the origin, then pan translate.
func (c *Camera) Matrix() geom.Affine {
	return c.MatrixFor(c.dpr)
}

// MatrixFor is Matrix with an explicit pixel ratio, used by exporters that
// render at a different density than the screen.
func (c *Camera) MatrixFor(dpr float64) geom.Affine {
	o := c.Origin()
	s := c.Scale()
	return geom.Scale(dpr, dpr).
		Mul(geom.Translate(o.X+c.pan.X, o.Y+c.pan.Y)).
		Mul(geom.Scale(s, s)).
		Mul(geom.Translate(-o.X, -o.Y))
}

// VisibleWorld is the world-space rectangle currently covered by the viewport.
func (c *Camera) VisibleWorld() geom.Bounds {
	return geom.BoxOf(c.ScreenToWorld(geom.Point{}), c.ScreenToWorld(geom.Point{X: c.viewport.W, Y: c.viewport.H}))
}
