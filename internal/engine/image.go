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
	"errors"
	"fmt"
	"math"
	"time"

	"sketchboard/internal/geom"
	"sketchboard/internal/history"
	"sketchboard/internal/raster"
	"sketchboard/internal/shape"
)

// ErrDecode is returned by InsertImage for data that is not a decodable image.
var ErrDecode = errors.New("image could not be decoded")

// MaxImageSide bounds the initial display size of inserted images.
const MaxImageSide = 300.0

// Notice is a dismissible user-facing message.
type Notice struct {
	ID      uint64
	Message string
	At      time.Time
}

func (e *Engine) noticeLocked(msg string) {
	e.noticeID++
	e.notice = &Notice{ID: e.noticeID, Message: msg, At: time.Now()}
}

// DismissNotice clears the notice with the given id; 0 clears any.
func (e *Engine) DismissNotice(id uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.notice == nil || (id != 0 && e.notice.ID != id) {
		return false
	}
	e.notice = nil
	return true
}

// InsertImage decodes data and adds an image shape centered on the screen
// point at, scaled down to fit MaxImageSide. On failure the scene is left
// untouched and a notice is raised.
func (e *Engine) InsertImage(data []byte, at geom.Point) (shape.Shape, error) {
	img, mime, err := raster.Decode(data)
	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.noticeLocked("The image could not be loaded. Please try another file.")
		e.log.Warn("image insert failed", "mime", mime, "bytes", len(data), "error", err)
		return shape.Shape{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	if w > MaxImageSide || h > MaxImageSide {
		k := math.Min(MaxImageSide/w, MaxImageSide/h)
		w, h = w*k, h*k
	}
	if !at.Finite() {
		v := e.cam.Viewport()
		at = geom.Point{X: v.W / 2, Y: v.H / 2}
	}
	c := e.cam.ScreenToWorld(at)
	e.closeInteractionLocked()
	s := shape.New(shape.Image, geom.Point{X: c.X - w/2, Y: c.Y - h/2}, e.style)
	s.ImageData = append([]byte(nil), data...)
	s.ImageWidth, s.ImageHeight = w, h
	v, err := shape.Validate(s, e.measurer)
	if err != nil {
		return shape.Shape{}, err
	}
	if err := e.execLocked(history.AddCommand(v)); err != nil {
		return shape.Shape{}, err
	}
	e.tool = ToolSelect
	e.selected = v.ID
	e.requestCommittedLocked()
	e.sched.RequestPreviewRender()
	e.log.Info("image inserted", "mime", mime, "w", w, "h", h)
	return v, nil
}

// ViewCenter is the center of the viewport in screen pixels.
func (e *Engine) ViewCenter() geom.Point {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := e.cam.Viewport()
	return geom.Point{X: v.W / 2, Y: v.H / 2}
}
