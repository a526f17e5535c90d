//go:build fyne

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"sketchboard/internal/engine"
)

// Board is the drawing surface widget. It forwards input to the engine and
// shows the engine's composited layers.
type Board struct {
	widget.BaseWidget
	eng *engine.Engine

	pressed bool
	last    fyne.Position
	ctrl    bool
	shift   bool

	// viewport last pushed to the engine
	vw, vh, vdpr float64

	// OnChanged runs after every event that may have changed engine state.
	OnChanged func()
}

var (
	_ fyne.Focusable      = (*Board)(nil)
	_ fyne.Draggable      = (*Board)(nil)
	_ fyne.Scrollable     = (*Board)(nil)
	_ fyne.DoubleTappable = (*Board)(nil)
	_ desktop.Mouseable   = (*Board)(nil)
	_ desktop.Hoverable   = (*Board)(nil)
	_ desktop.Keyable     = (*Board)(nil)
)

func NewBoard(eng *engine.Engine) *Board {
	b := &Board{eng: eng}
	b.ExtendBaseWidget(b)
	return b
}

// CreateRenderer paints through a raster that pulls frames from the engine.
func (b *Board) CreateRenderer() fyne.WidgetRenderer {
	r := canvas.NewRaster(b.generate)
	r.ScaleMode = canvas.ImageScalePixels
	return widget.NewSimpleRenderer(r)
}

func (b *Board) MinSize() fyne.Size { return fyne.NewSize(320, 240) }

// generate syncs the viewport to the widget size, paints pending layers and
// returns the composite.
func (b *Board) generate(w, h int) image.Image {
	sz := b.Size()
	if sz.Width > 0 && sz.Height > 0 && w > 0 {
		lw, lh := float64(sz.Width), float64(sz.Height)
		dpr := float64(w) / lw
		if lw != b.vw || lh != b.vh || dpr != b.vdpr {
			b.vw, b.vh, b.vdpr = lw, lh, dpr
			b.eng.SetViewport(lw, lh, dpr)
		}
	}
	b.eng.Frame()
	return b.eng.Surfaces().Composite()
}

func (b *Board) changed() {
	b.Refresh()
	if b.OnChanged != nil {
		b.OnChanged()
	}
}

func (b *Board) pointer(p fyne.Position) engine.PointerEvent {
	return engine.PointerEvent{X: float64(p.X), Y: float64(p.Y)}
}

func (b *Board) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	if c := fyne.CurrentApp().Driver().CanvasForObject(b); c != nil {
		c.Focus(b)
	}
	b.pressed = true
	b.last = ev.Position
	b.eng.PointerDown(b.pointer(ev.Position))
	b.changed()
}

func (b *Board) MouseUp(ev *desktop.MouseEvent) {
	if !b.pressed || ev.Button != desktop.MouseButtonPrimary {
		return
	}
	b.pressed = false
	b.eng.PointerUp(b.pointer(ev.Position))
	b.changed()
}

func (b *Board) Dragged(ev *fyne.DragEvent) {
	if !b.pressed {
		return
	}
	b.last = ev.Position
	b.eng.PointerMove(b.pointer(ev.Position))
	b.changed()
}

// DragEnd finishes a gesture whose mouse-up was not delivered to the widget.
func (b *Board) DragEnd() {
	if !b.pressed {
		return
	}
	b.pressed = false
	b.eng.PointerUp(b.pointer(b.last))
	b.changed()
}

func (b *Board) DoubleTapped(ev *fyne.PointEvent) {
	pe := b.pointer(ev.Position)
	pe.Double = true
	b.eng.PointerDown(pe)
	b.eng.PointerUp(pe)
	b.changed()
}

func (b *Board) MouseIn(ev *desktop.MouseEvent) {}

func (b *Board) MouseMoved(ev *desktop.MouseEvent) {
	if b.pressed {
		return
	}
	// hover only matters for the eraser ring
	if b.eng.State().Tool == engine.ToolEraser {
		b.eng.PointerMove(b.pointer(ev.Position))
		b.changed()
	}
}

func (b *Board) MouseOut() {
	if b.pressed {
		return
	}
	b.eng.PointerLeave()
	b.changed()
}

func (b *Board) Scrolled(ev *fyne.ScrollEvent) {
	b.eng.Wheel(engine.WheelEvent{
		X: float64(ev.Position.X), Y: float64(ev.Position.Y),
		DX: -float64(ev.Scrolled.DX), DY: -float64(ev.Scrolled.DY),
		Ctrl: b.ctrl,
	})
	b.changed()
}

// FocusGained revalidates the scene, as a page regaining visibility would.
func (b *Board) FocusGained() {
	b.eng.Revalidate()
	b.changed()
}

func (b *Board) FocusLost() {
	b.ctrl, b.shift = false, false
}

func (b *Board) TypedRune(r rune) {
	if b.ctrl {
		return
	}
	if b.eng.Key(engine.KeyEvent{Key: RuneKey(r), Shift: b.shift}) {
		b.changed()
	}
}

func (b *Board) TypedKey(ev *fyne.KeyEvent) {
	k, ok := KeyName(string(ev.Name))
	if !ok {
		return
	}
	if b.eng.Key(engine.KeyEvent{Key: k, Ctrl: b.ctrl, Shift: b.shift}) {
		b.changed()
	}
}

// KeyDown tracks modifiers for wheel zoom; scroll events carry none.
func (b *Board) KeyDown(ev *fyne.KeyEvent) {
	switch ev.Name {
	case desktop.KeyControlLeft, desktop.KeyControlRight, desktop.KeySuperLeft, desktop.KeySuperRight:
		b.ctrl = true
	case desktop.KeyShiftLeft, desktop.KeyShiftRight:
		b.shift = true
	}
}

func (b *Board) KeyUp(ev *fyne.KeyEvent) {
	switch ev.Name {
	case desktop.KeyControlLeft, desktop.KeyControlRight, desktop.KeySuperLeft, desktop.KeySuperRight:
		b.ctrl = false
	case desktop.KeyShiftLeft, desktop.KeyShiftRight:
		b.shift = false
	}
}
