/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package engine

import (
	"sketchboard/internal/geom"
	"sketchboard/internal/history"
	"sketchboard/internal/hittest"
	"sketchboard/internal/resize"
	"sketchboard/internal/shape"
)

// PointerEvent is a mouse or single-touch event in screen (CSS) pixels.
type PointerEvent struct {
	X, Y   float64
	Touch  bool
	Double bool
}

func (ev PointerEvent) screen() geom.Point { return geom.Point{X: ev.X, Y: ev.Y} }

// TouchPoint is one active touch in screen pixels.
type TouchPoint struct {
	ID   int
	X, Y float64
}

func (t TouchPoint) pt() geom.Point { return geom.Point{X: t.X, Y: t.Y} }

// WheelEvent carries scroll deltas in screen pixels. Ctrl (or Cmd) turns
// the wheel into zoom.
type WheelEvent struct {
	X, Y   float64
	DX, DY float64
	Ctrl   bool
}

// PointerDown starts a gesture according to the active tool.
func (e *Engine) PointerDown(ev PointerEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pointerDownLocked(ev)
}

func (e *Engine) pointerDownLocked(ev PointerEvent) {
	if e.mode == ModePinching {
		return
	}
	sp := ev.screen()
	if !sp.Finite() {
		return
	}
	if e.mode == ModeEditingText {
		e.commitTextLocked(e.edit.Value)
	}
	if e.mode != ModeIdle {
		e.cancelGestureLocked()
	}
	p := e.cam.ScreenToWorld(sp)
	e.g = gesture{touch: ev.Touch, start: p, startScreen: sp}

	switch e.tool {
	case ToolHand:
		e.g.panStart = e.cam.Pan()
		e.mode = ModePanning
	case ToolSelect:
		e.selectDownLocked(p, ev)
	case ToolText:
		e.beginTextLocked(p, ev.Touch)
	case ToolEraser:
		e.mode = ModeErasing
		e.g.erased = make(map[string]bool)
		e.g.cursor = &p
		e.sweepLocked(p)
	case ToolImage:
		// images arrive through InsertImage
	default:
		k, ok := e.tool.shapeKind()
		if !ok {
			return
		}
		d := shape.New(k, p, e.style)
		e.g.draft = &d
		e.mode = ModeDrawing
		e.sched.RequestPreviewRender()
	}
}

func (e *Engine) selectDownLocked(p geom.Point, ev PointerEvent) {
	if sel, ok := e.col.Get(e.selected); ok {
		if h, ok := resize.HandleAt(p, sel, e.resizeOptions(ev.Touch)); ok {
			if ss := resize.Begin(sel, h, p); ss != nil {
				ss.Measurer = e.measurer
				e.g.resizer = ss
				e.g.orig = shape.Clone(sel)
				e.mode = ModeResizing
				return
			}
		}
	}
	shapes := e.col.All()
	i, ok := hittest.Topmost(shapes, p, hittest.Select, e.hitOptions(ev.Touch))
	if !ok {
		e.selected = ""
		e.sched.RequestPreviewRender()
		return
	}
	hit := shapes[i]
	e.selected = hit.ID
	if ev.Double && hit.Kind == shape.Text {
		e.editTextLocked(hit, ev.Touch)
		return
	}
	e.g.orig = shape.Clone(hit)
	e.mode = ModeMoving
	e.sched.RequestPreviewRender()
}

// PointerMove advances the current gesture. Without a gesture it only
// tracks the eraser cursor.
func (e *Engine) PointerMove(ev PointerEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pointerMoveLocked(ev)
}

func (e *Engine) pointerMoveLocked(ev PointerEvent) {
	sp := ev.screen()
	if !sp.Finite() {
		return
	}
	p := e.cam.ScreenToWorld(sp)
	switch e.mode {
	case ModePanning:
		d := sp.Sub(e.g.startScreen)
		e.cam.SetPan(e.g.panStart.Add(d))
		e.viewChangedLocked()
	case ModeDrawing:
		d := e.g.draft
		if d.Kind == shape.Pencil {
			if last, _ := d.Last(); last != p {
				d.Points = append(d.Points, p)
			}
		} else {
			d.Points = []geom.Point{e.g.start, p}
		}
		e.sched.RequestPreviewRender()
	case ModeErasing:
		e.g.cursor = &p
		e.sweepLocked(p)
		e.sched.RequestPreviewRender()
	case ModeMoving:
		live := shape.Translate(e.g.orig, p.Sub(e.g.start))
		live.Bounds, _ = shape.ComputeBounds(live, e.measurer)
		e.g.live = &live
		e.requestCommittedLocked()
		e.sched.RequestPreviewRender()
	case ModeResizing:
		live := e.g.resizer.Apply(p)
		e.g.live = &live
		e.requestCommittedLocked()
		e.sched.RequestPreviewRender()
	case ModeIdle:
		if e.tool == ToolEraser {
			e.g.cursor = &p
			e.sched.RequestPreviewRender()
		}
	}
}

// sweepLocked hides every shape the eraser touches at p. Hidden shapes are
// removed as one command when the gesture ends.
func (e *Engine) sweepLocked(p geom.Point) {
	hit := hittest.All(e.col.All(), p, hittest.Erase, e.hitOptions(e.g.touch))
	added := false
	for _, id := range hit {
		if !e.g.erased[id] {
			e.g.erased[id] = true
			e.g.eraseOrder = append(e.g.eraseOrder, id)
			added = true
		}
	}
	if added {
		e.requestCommittedLocked()
	}
}

// PointerUp finishes the gesture and records at most one command.
func (e *Engine) PointerUp(ev PointerEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pointerUpLocked()
}

func (e *Engine) pointerUpLocked() {
	switch e.mode {
	case ModeDrawing:
		if d := e.g.draft; d != nil {
			if v, err := shape.Validate(*d, e.measurer); err != nil {
				e.log.Debug("draft dropped", "error", err)
			} else {
				_ = e.execLocked(history.AddCommand(v))
			}
		}
		e.requestCommittedLocked()
	case ModeErasing:
		e.commitEraseLocked()
	case ModeMoving:
		if live := e.g.live; live != nil && !shape.PointsEqual(live.Points, e.g.orig.Points) {
			_ = e.execLocked(history.MoveCommand(e.g.orig, e.g.orig.Points, live.Points))
		}
		e.requestCommittedLocked()
	case ModeResizing:
		e.commitResizeLocked()
		e.requestCommittedLocked()
	case ModePanning, ModeIdle, ModePinching, ModeEditingText:
		return
	}
	cursor := e.g.cursor
	e.g = gesture{cursor: cursor}
	e.mode = ModeIdle
	e.sched.RequestPreviewRender()
}

func (e *Engine) commitEraseLocked() {
	if len(e.g.eraseOrder) == 0 {
		return
	}
	var shapes []shape.Shape
	var idx []int
	for _, id := range e.g.eraseOrder {
		if s, ok := e.col.Get(id); ok {
			shapes = append(shapes, s)
			idx = append(idx, e.col.IndexOf(id))
		}
	}
	if len(shapes) > 0 {
		_ = e.execLocked(history.DeleteBatchCommand(shapes, idx))
		if e.g.erased[e.selected] {
			e.selected = ""
		}
	}
	e.requestCommittedLocked()
}

func (e *Engine) commitResizeLocked() {
	live := e.g.live
	if live == nil || shape.Equal(*live, e.g.orig) {
		return
	}
	var c history.Command
	if live.Kind == shape.Text {
		c = history.ModifyCommand(e.g.orig, *live)
	} else {
		c = history.MoveCommand(e.g.orig, e.g.orig.Points, live.Points)
		c.ToSize = geom.Size{W: live.ImageWidth, H: live.ImageHeight}
	}
	_ = e.execLocked(c)
}

// PointerLeave aborts the gesture like Escape.
func (e *Engine) PointerLeave() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.g.cursor = nil
	e.cancelGestureLocked()
	e.sched.RequestPreviewRender()
}

// cancelGestureLocked drops draw, erase, move and resize gestures without
// recording a command and restores the display.
func (e *Engine) cancelGestureLocked() {
	switch e.mode {
	case ModeDrawing, ModeErasing, ModeMoving, ModeResizing, ModePanning:
	default:
		return
	}
	e.log.Debug("gesture cancelled", "mode", string(e.mode))
	hadHidden := len(e.g.erased) > 0 || e.g.live != nil
	e.g = gesture{}
	e.mode = ModeIdle
	if hadHidden {
		e.requestCommittedLocked()
	}
	e.sched.RequestPreviewRender()
}

// TouchStart begins a one-finger gesture or a pinch for two fingers.
func (e *Engine) TouchStart(touches []TouchPoint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case len(touches) >= 2:
		if e.mode == ModeEditingText {
			e.commitTextLocked(e.edit.Value)
		}
		e.cancelGestureLocked()
		if e.cam.BeginPinch(touches[0].pt(), touches[1].pt()) {
			e.mode = ModePinching
		}
	case len(touches) == 1:
		e.pointerDownLocked(PointerEvent{X: touches[0].X, Y: touches[0].Y, Touch: true})
	}
}

func (e *Engine) TouchMove(touches []TouchPoint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode == ModePinching {
		if len(touches) >= 2 && e.cam.UpdatePinch(touches[0].pt(), touches[1].pt()) {
			e.viewChangedLocked()
		}
		return
	}
	if len(touches) == 1 {
		e.pointerMoveLocked(PointerEvent{X: touches[0].X, Y: touches[0].Y, Touch: true})
	}
}

// TouchEnd receives the touches still down. Dropping from two fingers to
// one ends the pinch without starting a stroke.
func (e *Engine) TouchEnd(remaining []TouchPoint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode == ModePinching {
		if len(remaining) < 2 {
			e.cam.EndPinch()
			e.mode = ModeIdle
			e.g = gesture{}
		}
		return
	}
	if len(remaining) == 0 {
		e.pointerUpLocked()
	}
}

// Wheel zooms around the cursor with Ctrl held and pans otherwise.
func (e *Engine) Wheel(ev WheelEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ev.Ctrl {
		z := e.cam.Zoom()
		switch {
		case ev.DY < 0:
			z += e.cam.Limits().Step
		case ev.DY > 0:
			z -= e.cam.Limits().Step
		default:
			return
		}
		if e.cam.ZoomAt(z, geom.Point{X: ev.X, Y: ev.Y}) {
			e.viewChangedLocked()
		}
		return
	}
	if ev.DX == 0 && ev.DY == 0 {
		return
	}
	e.cam.PanBy(-ev.DX, -ev.DY)
	e.viewChangedLocked()
}
