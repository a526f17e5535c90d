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
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"time"

	"sketchboard/internal/raster"
	"sketchboard/internal/render"
	"sketchboard/internal/resize"
	"sketchboard/internal/shape"
)

// paint is the scheduler's painter. It runs outside the scheduler lock and
// takes the engine lock itself.
func (e *Engine) paint(l render.Layer, dst *image.RGBA) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if l == render.Committed {
		e.paintCommittedLocked(dst)
		return
	}
	e.paintPreviewLocked(dst)
}

func (e *Engine) paintCommittedLocked(dst *image.RGBA) {
	raster.Clear(dst, e.background)
	opt := raster.SceneOptions{Skip: e.g.erased}
	if e.g.live != nil {
		opt.Override = map[string]shape.Shape{e.g.live.ID: *e.g.live}
	}
	e.rast.DrawScene(dst, e.col.All(), e.cam.Matrix(), opt)
}

func (e *Engine) paintPreviewLocked(dst *image.RGBA) {
	m := e.cam.Matrix()
	if e.g.draft != nil {
		e.rast.DrawShape(dst, *e.g.draft, m)
	}
	if sel, ok := e.col.Get(e.selected); ok && e.tool == ToolSelect && e.mode != ModeEditingText {
		if e.g.live != nil && e.g.live.ID == sel.ID {
			sel = *e.g.live
		}
		ro := e.resizeOptions(e.g.touch)
		e.rast.DrawSelection(dst, sel, resize.Handles(sel), resize.HandleSize(sel, ro), m)
	}
	if e.tool == ToolEraser && e.g.cursor != nil {
		e.rast.DrawEraser(dst, *e.g.cursor, e.hitOptions(e.g.touch).EraserReach(), m)
	}
	if ed := e.edit; ed != nil && ed.Value != "" {
		// live text while typing
		s := shape.New(shape.Text, ed.At, e.style)
		s.Text = ed.Value
		s.StrokeWidth = ed.Size / shape.FontScale
		e.rast.DrawShape(dst, s, m)
	}
}

// Frame paints pending layers once, as an animation frame would.
func (e *Engine) Frame() render.Presented { return e.sched.Frame() }

// Run drives frames until ctx is done.
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	return e.sched.Run(ctx, interval)
}

// OnPresent registers a callback for painted frames.
func (e *Engine) OnPresent(fn func(render.Presented)) { e.sched.OnPresent(fn) }

// Surfaces exposes the committed and preview bitmaps.
func (e *Engine) Surfaces() *render.Surfaces { return e.sched.Surfaces() }

// Scheduler exposes render statistics and request control.
func (e *Engine) Scheduler() *render.Scheduler { return e.sched }

// RenderView paints the committed scene at the current camera into a fresh
// device-sized image.
func (e *Engine) RenderView() *image.RGBA {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, h := e.cam.DeviceSize()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	e.paintCommittedLocked(dst)
	return dst
}

// ExportPNG writes the current view as PNG.
func (e *Engine) ExportPNG(w io.Writer) error {
	if err := png.Encode(w, e.RenderView()); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// EraserReach is the eraser radius in world units for the current tool
// style and zoom.
func (e *Engine) EraserReach(touch bool) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hitOptions(touch).EraserReach()
}
