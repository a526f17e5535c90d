/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

// Single-line text measurement for text shapes. Everything is in pixels at a
// pixel font size; the canvas draws text with its anchor on the baseline.

import (
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// FontSpec describes a requested font.
type FontSpec struct {
	Family string  // logical family name, "" selects the default
	SizePx float64 // em size in pixels
}

// Metrics provides font metrics in pixels for the resolved face.
type Metrics struct {
	Ascent, Descent, LineGap float64
}

// Extent is the measured box of a single line of text.
type Extent struct {
	Width   float64
	Ascent  float64
	Descent float64
}

// Provider maps FontSpec to a concrete font.Face. Faces returned by a
// Provider are shared and must not be used from several goroutines at once.
type Provider interface {
	Resolve(FontSpec) (font.Face, Metrics)
}

// basicSize is the pixel height Face7x13 is designed for.
const basicSize = 13.0

// BasicProvider uses x/image/basicfont Face7x13 for deterministic tests.
// The face has a single size; Metrics are scaled to the requested size.
type BasicProvider struct{}

func (BasicProvider) Resolve(spec FontSpec) (font.Face, Metrics) {
	f := basicfont.Face7x13
	m := f.Metrics()
	k := 1.0
	if spec.SizePx > 0 {
		k = spec.SizePx / basicSize
	}
	return f, Metrics{
		Ascent:  float64(m.Ascent.Round()) * k,
		Descent: float64(m.Descent.Round()) * k,
		LineGap: float64(m.Height.Round()-m.Ascent.Round()-m.Descent.Round()) * k,
	}
}

// Measurer measures single lines of text through a Provider. It is safe for
// concurrent use.
type Measurer struct {
	Provider Provider

	mu sync.Mutex
}

// NewMeasurer returns a measurer backed by p; nil selects BasicProvider.
func NewMeasurer(p Provider) *Measurer {
	if p == nil {
		p = BasicProvider{}
	}
	return &Measurer{Provider: p}
}

// MeasureText returns the advance width and vertical metrics of text at
// sizePx. ok is false when no provider is configured or sizePx is invalid,
// in which case callers fall back to an estimate.
func (m *Measurer) MeasureText(text string, sizePx float64) (Extent, bool) {
	if m == nil || m.Provider == nil || !(sizePx > 0) {
		return Extent{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	face, met := m.Provider.Resolve(FontSpec{SizePx: sizePx})
	if face == nil {
		return Extent{}, false
	}
	w := Advance(face, FirstLine(text))
	if IsBasicFace(face) {
		w *= sizePx / basicSize
	}
	return Extent{Width: w, Ascent: met.Ascent, Descent: met.Descent}, true
}

// IsBasicFace reports whether face is the fixed-size fallback face, whose
// advances must be scaled by the caller.
func IsBasicFace(face font.Face) bool {
	bf, ok := face.(*basicfont.Face)
	return ok && bf == basicfont.Face7x13
}

// BasicScale is the factor between sizePx and the fallback face's design size.
func BasicScale(sizePx float64) float64 { return sizePx / basicSize }

// Advance is the pen advance of s on face in pixels.
func Advance(face font.Face, s string) float64 {
	d := &font.Drawer{Face: face}
	return float64(d.MeasureString(s)) / 64 // fixed.Int26_6 to px
}

// FirstLine keeps measurement single-line; embedded newlines are not laid out.
func FirstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
