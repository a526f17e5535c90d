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
	"strings"

	"sketchboard/internal/geom"
	"sketchboard/internal/hittest"
	"sketchboard/internal/history"
	"sketchboard/internal/shape"
)

// TextEdit is an open text entry. ShapeID is set when an existing text
// shape is being edited.
type TextEdit struct {
	ShapeID string
	At      geom.Point // world baseline anchor
	Screen  geom.Point // anchor in screen pixels, for placing an input box
	Value   string
	Size    float64 // font size in pixels
	Touch   bool
}

// beginTextLocked opens an editor at p, or on the topmost text shape under p.
func (e *Engine) beginTextLocked(p geom.Point, touch bool) {
	shapes := e.col.All()
	opt := e.hitOptions(touch)
	for i := len(shapes) - 1; i >= 0; i-- {
		s := shapes[i]
		if s.Kind == shape.Text && s.Text != "" && hittest.Select(p, s, opt) {
			e.editTextLocked(s, touch)
			return
		}
	}
	size := e.style.TextSize
	if !(size > 0) {
		size = shape.FontSize(e.style.StrokeWidth)
	}
	e.edit = &TextEdit{At: p, Screen: e.cam.WorldToScreen(p), Size: geom.Clamp(size, shape.MinFontSize, shape.MaxFontSize), Touch: touch}
	e.mode = ModeEditingText
	e.sched.RequestPreviewRender()
}

func (e *Engine) editTextLocked(s shape.Shape, touch bool) {
	at, _ := s.First()
	e.g = gesture{}
	e.edit = &TextEdit{ShapeID: s.ID, At: at, Screen: e.cam.WorldToScreen(at), Value: s.Text, Size: s.FontSize(), Touch: touch}
	e.mode = ModeEditingText
	e.sched.RequestPreviewRender()
}

// SetTextValue updates the open editor's buffer.
func (e *Engine) SetTextValue(v string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.edit == nil {
		return false
	}
	e.edit.Value = v
	e.sched.RequestPreviewRender()
	return true
}

// CommitText closes the editor with value v. Blank text creates nothing and
// leaves an edited shape unchanged.
func (e *Engine) CommitText(v string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.commitTextLocked(v)
}

func (e *Engine) commitTextLocked(v string) bool {
	ed := e.edit
	if ed == nil {
		return false
	}
	e.endTextLocked()
	if strings.TrimSpace(v) == "" {
		return false
	}
	sw := ed.Size / shape.FontScale
	if ed.ShapeID != "" {
		before, ok := e.col.Get(ed.ShapeID)
		if !ok {
			return false
		}
		after := shape.Clone(before)
		after.Text = v
		after.StrokeWidth = sw
		if shape.Equal(before, after) {
			return false
		}
		return e.execLocked(history.ModifyCommand(before, after)) == nil
	}
	s := shape.New(shape.Text, ed.At, e.style)
	s.Text = v
	s.StrokeWidth = sw
	v2, err := shape.Validate(s, e.measurer)
	if err != nil {
		e.log.Debug("text dropped", "error", err)
		return false
	}
	return e.execLocked(history.AddCommand(v2)) == nil
}

// CancelText closes the editor without a command.
func (e *Engine) CancelText() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.edit == nil {
		return false
	}
	e.endTextLocked()
	return true
}

// endTextLocked leaves editing mode and replays a deferred committed repaint.
func (e *Engine) endTextLocked() {
	e.edit = nil
	if e.mode == ModeEditingText {
		e.mode = ModeIdle
	}
	e.deferredCommit = false
	e.sched.RequestRender()
	e.sched.RequestPreviewRender()
}
