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
	"testing"

	"sketchboard/internal/geom"
)

func newCam(w, h float64) *Camera {
	c := New(Limits{})
	c.SetViewport(w, h, 1)
	return c
}

func TestRoundTrip(t *testing.T) {
	vp := geom.Size{W: 800, H: 600}
	for _, z := range []float64{50, 100, 137, 400} {
		for _, pan := range []geom.Point{{}, {X: 40, Y: -25}} {
			p := geom.Pt(123.5, -77.25)
			back := ScreenToWorld(WorldToScreen(p, vp, z, pan), vp, z, pan)
			if !back.Eq(p, 1e-9) {
				t.Fatalf("zoom %v pan %v: got %v want %v", z, pan, back, p)
			}
		}
	}
}

func TestCenterFixedAtZeroPan(t *testing.T) {
	c := newCam(800, 600)
	c.SetZoom(200)
	if got := c.WorldToScreen(geom.Pt(400, 300)); !got.Eq(geom.Pt(400, 300), 1e-9) {
		t.Fatalf("center moved: %v", got)
	}
	// 800x600 at 200%: world (500,300) -> screen (600,300)
	if got := c.WorldToScreen(geom.Pt(500, 300)); !got.Eq(geom.Pt(600, 300), 1e-9) {
		t.Fatalf("got %v", got)
	}
}

func TestZoomClampAndStep(t *testing.T) {
	c := newCam(800, 600)
	c.SetZoom(395)
	c.ZoomIn()
	if c.Zoom() != 400 {
		t.Fatalf("zoom = %v want 400", c.Zoom())
	}
	if c.ZoomIn() {
		t.Fatalf("zoom in past max reported change")
	}
	c.SetZoom(10)
	if c.Zoom() != 50 {
		t.Fatalf("zoom = %v want 50", c.Zoom())
	}
	c.SetZoom(120)
	c.ZoomOut()
	if c.Zoom() != 110 {
		t.Fatalf("zoom = %v want 110", c.Zoom())
	}
	c.PanBy(10, 20)
	c.ResetZoom()
	if c.Zoom() != 100 || c.Pan() != (geom.Point{}) {
		t.Fatalf("reset left zoom=%v pan=%v", c.Zoom(), c.Pan())
	}
}

func TestZoomAtKeepsFocus(t *testing.T) {
	c := newCam(800, 600)
	c.PanBy(15, -8)
	focus := geom.Pt(120, 450)
	before := c.ScreenToWorld(focus)
	if !c.ZoomAt(250, focus) {
		t.Fatalf("expected zoom change")
	}
	after := c.ScreenToWorld(focus)
	if !after.Eq(before, 1e-9) {
		t.Fatalf("focus moved: %v -> %v", before, after)
	}
}

func TestMatrixMatchesWorldToScreen(t *testing.T) {
	c := newCam(640, 480)
	c.SetViewport(640, 480, 2)
	c.SetZoom(150)
	c.SetPan(geom.Pt(12, 34))
	p := geom.Pt(10, 20)
	dev := c.Matrix().Apply(p)
	scr := c.WorldToScreen(p)
	if !dev.Eq(scr.Mul(2), 1e-9) {
		t.Fatalf("device %v != 2*screen %v", dev, scr)
	}
	w, h := c.DeviceSize()
	if w != 1280 || h != 960 {
		t.Fatalf("device size %dx%d", w, h)
	}
}

func TestPinchClamp(t *testing.T) {
	c := newCam(800, 600)
	if !c.BeginPinch(geom.Pt(300, 300), geom.Pt(400, 300)) {
		t.Fatalf("begin pinch failed")
	}
	c.UpdatePinch(geom.Pt(0, 300), geom.Pt(1000, 300))
	if math.Abs(c.Zoom()-400) > 1e-9 {
		t.Fatalf("zoom = %v want 400", c.Zoom())
	}
	c.UpdatePinch(geom.Pt(340, 300), geom.Pt(360, 300))
	if math.Abs(c.Zoom()-50) > 1e-9 {
		t.Fatalf("zoom = %v want 50", c.Zoom())
	}
	c.EndPinch()
	if c.Pinching() {
		t.Fatalf("still pinching")
	}
	if c.BeginPinch(geom.Pt(1, 1), geom.Pt(1, 1)) {
		t.Fatalf("coincident touches should not start a pinch")
	}
}

func TestInvalidViewportInputs(t *testing.T) {
	c := New(Limits{})
	c.SetViewport(-5, 100, math.NaN())
	if c.Viewport().W != 0 || c.DPR() != 1 {
		t.Fatalf("viewport %v dpr %v", c.Viewport(), c.DPR())
	}
	c.SetPan(geom.Pt(math.Inf(1), 0))
	if c.Pan() != (geom.Point{}) {
		t.Fatalf("non-finite pan accepted")
	}
}
