/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package render

import (
	"image"
	"image/draw"
	"sync"
)

// Surfaces owns the two layer bitmaps at device resolution. Each layer is
// double buffered: painters draw into the back buffer without holding mu,
// and the result is swapped in only if the size did not change meanwhile.
type Surfaces struct {
	paintMu sync.Mutex // serializes painters

	mu     sync.RWMutex
	layers [2]*image.RGBA
	back   [2]*image.RGBA
}

func NewSurfaces(w, h int) *Surfaces {
	s := &Surfaces{}
	s.Resize(w, h)
	return s
}

// Resize reallocates both layers when the device size changes and reports
// whether it did. Contents are dropped; callers request a repaint.
func (s *Surfaces) Resize(w, h int) bool {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.layers[0] != nil && s.layers[0].Rect.Dx() == w && s.layers[0].Rect.Dy() == h {
		return false
	}
	r := image.Rect(0, 0, w, h)
	s.layers[Committed] = image.NewRGBA(r)
	s.layers[Preview] = image.NewRGBA(r)
	s.back = [2]*image.RGBA{}
	return true
}

// Size returns the device size in pixels.
func (s *Surfaces) Size() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b := s.layers[0].Rect
	return b.Dx(), b.Dy()
}

// paint redraws layer l through p. It reports false when a Resize raced
// the painter and the result was dropped.
func (s *Surfaces) paint(l Layer, p Painter) bool {
	s.paintMu.Lock()
	defer s.paintMu.Unlock()

	s.mu.RLock()
	r := s.layers[l].Rect
	dst := s.back[l]
	s.mu.RUnlock()
	if dst == nil || dst.Rect != r {
		dst = image.NewRGBA(r)
	} else if l == Preview {
		// preview is transparent between frames
		draw.Draw(dst, dst.Rect, image.Transparent, image.Point{}, draw.Src)
	}
	if p != nil {
		p.Paint(l, dst)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.layers[l].Rect != r {
		return false
	}
	s.layers[l], s.back[l] = dst, s.layers[l]
	return true
}

// Copy returns a private copy of one layer.
func (s *Surfaces) Copy(l Layer) *image.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.layers[l]
	out := image.NewRGBA(src.Rect)
	copy(out.Pix, src.Pix)
	return out
}

// Composite returns preview drawn over committed.
func (s *Surfaces) Composite() *image.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.layers[Committed]
	out := image.NewRGBA(c.Rect)
	copy(out.Pix, c.Pix)
	draw.Draw(out, out.Rect, s.layers[Preview], image.Point{}, draw.Over)
	return out
}
