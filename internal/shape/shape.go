/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package shape defines the drawable shape variant, its per-kind bounds and
// validation rules, and the ordered Collection that owns a scene's shapes.
package shape

import (
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"sketchboard/internal/geom"
	"sketchboard/internal/textlayout"
)

// Kind tags the shape variant. The JSON name is "type".
type Kind string

const (
	Pencil    Kind = "pencil"
	Line      Kind = "line"
	Rectangle Kind = "rectangle"
	Circle    Kind = "circle"
	Text      Kind = "text"
	Image     Kind = "image"
)

// Kinds lists every known kind in a stable order.
var Kinds = []Kind{Pencil, Line, Rectangle, Circle, Text, Image}

func (k Kind) Valid() bool {
	switch k {
	case Pencil, Line, Rectangle, Circle, Text, Image:
		return true
	}
	return false
}

// Text sizing. strokeWidth encodes the font size for text shapes.
const (
	FontScale       = 8.0
	MinFontSize     = 12.0
	MaxFontSize     = 72.0
	fallbackAdvance = 0.6
	minTextWidth    = 50.0
	minMeasured     = 20.0
	descentFactor   = 0.25
)

var (
	ErrNoPoints    = errors.New("shape has no finite points")
	ErrMissingID   = errors.New("shape id is empty")
	ErrUnknownKind = errors.New("unknown shape kind")
	ErrNoColor     = errors.New("shape color is empty")
	ErrStrokeWidth = errors.New("stroke width must be positive and finite")
)

// Shape is one drawable element. Points meaning depends on Kind: polyline for
// pencil, start/end for line and rectangle, center/edge for circle, a single
// anchor for text (baseline) and image (top-left).
//
// Bounds is a cache; it is recomputed by every Collection mutation and by
// Validate.
type Shape struct {
	ID          string       `json:"id"`
	Kind        Kind         `json:"type"`
	Points      []geom.Point `json:"points"`
	Color       string       `json:"color"`
	StrokeWidth float64      `json:"strokeWidth"`
	Roughness   float64      `json:"roughness,omitempty"`
	Text        string       `json:"text,omitempty"`
	ImageData   []byte       `json:"imageData,omitempty"`
	ImageWidth  float64      `json:"imageWidth,omitempty"`
	ImageHeight float64      `json:"imageHeight,omitempty"`
	Bounds      geom.Bounds  `json:"bounds"`
}

// Style is applied to each newly created shape.
type Style struct {
	Color       string
	StrokeWidth float64
	Roughness   float64
	// TextSize is the font size in pixels for new text; 0 derives it from StrokeWidth.
	TextSize float64
}

// DefaultStyle is black, 2px, no roughness.
func DefaultStyle() Style { return Style{Color: "#000000", StrokeWidth: 2} }

// TextMeasurer measures a single line of text at a pixel size.
type TextMeasurer interface {
	MeasureText(text string, sizePx float64) (textlayout.Extent, bool)
}

// NewID returns a fresh random shape id.
func NewID() string { return uuid.NewString() }

// New creates a shape of kind k anchored at p with a fresh id.
func New(k Kind, p geom.Point, st Style) Shape {
	s := Shape{
		ID:          NewID(),
		Kind:        k,
		Points:      []geom.Point{p},
		Color:       st.Color,
		StrokeWidth: st.StrokeWidth,
		Roughness:   st.Roughness,
	}
	if k == Text && st.TextSize > 0 {
		s.StrokeWidth = geom.Clamp(st.TextSize, MinFontSize, MaxFontSize) / FontScale
	}
	return s
}

// FontSize returns the text size in pixels encoded by StrokeWidth.
func FontSize(strokeWidth float64) float64 {
	return geom.Clamp(strokeWidth*FontScale, MinFontSize, MaxFontSize)
}

func (s Shape) FontSize() float64 { return FontSize(s.StrokeWidth) }

// First and Last return the first and last point; ok is false without points.
func (s Shape) First() (geom.Point, bool) {
	if len(s.Points) == 0 {
		return geom.Point{}, false
	}
	return s.Points[0], true
}

func (s Shape) Last() (geom.Point, bool) {
	if len(s.Points) == 0 {
		return geom.Point{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Radius is the circle radius: distance from the center to the last point.
func (s Shape) Radius() float64 {
	c, ok := s.First()
	if !ok {
		return 0
	}
	e, _ := s.Last()
	return c.Dist(e)
}

// HasImageSize reports whether both display dimensions are usable.
func (s Shape) HasImageSize() bool {
	return s.ImageWidth > 0 && s.ImageHeight > 0 && finite(s.ImageWidth) && finite(s.ImageHeight)
}

// ComputeBounds derives the bounding box of s. It is a pure function of
// points, text, stroke width and image size; m may be nil, in which case text
// uses the estimate. ok is false only for a shape without points.
func ComputeBounds(s Shape, m TextMeasurer) (geom.Bounds, bool) {
	if len(s.Points) == 0 {
		return geom.Bounds{}, false
	}
	first, last := s.Points[0], s.Points[len(s.Points)-1]
	switch s.Kind {
	case Rectangle:
		return geom.BoxOf(first, last), true
	case Circle:
		r := first.Dist(last)
		return geom.Bounds{MinX: first.X - r, MinY: first.Y - r, MaxX: first.X + r, MaxY: first.Y + r}, true
	case Text:
		w, asc, desc := textExtent(s, m)
		return geom.Bounds{MinX: first.X, MinY: first.Y - asc, MaxX: first.X + w, MaxY: first.Y + desc}, true
	case Image:
		if s.HasImageSize() {
			return geom.Bounds{MinX: first.X, MinY: first.Y, MaxX: first.X + s.ImageWidth, MaxY: first.Y + s.ImageHeight}, true
		}
	}
	return geom.BoundsOf(s.Points)
}

func textExtent(s Shape, m TextMeasurer) (w, ascent, descent float64) {
	fs := s.FontSize()
	if m != nil {
		if ext, ok := m.MeasureText(s.Text, fs); ok && finite(ext.Width) {
			return math.Max(ext.Width, minMeasured), ext.Ascent, ext.Descent
		}
	}
	n := float64(utf8.RuneCountInString(s.Text))
	return math.Max(n*fs*fallbackAdvance, minTextWidth), fs, fs * descentFactor
}

// Validate returns a cleaned copy of s: non-finite points are stripped and
// bounds recomputed. Shapes that cannot be drawn are rejected with a reason.
func Validate(s Shape, m TextMeasurer) (Shape, error) {
	if s.ID == "" {
		return Shape{}, ErrMissingID
	}
	if !s.Kind.Valid() {
		return Shape{}, fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
	}
	if s.Color == "" {
		return Shape{}, ErrNoColor
	}
	if !(s.StrokeWidth > 0) || !finite(s.StrokeWidth) {
		return Shape{}, fmt.Errorf("%w: %v", ErrStrokeWidth, s.StrokeWidth)
	}
	pts := make([]geom.Point, 0, len(s.Points))
	for _, p := range s.Points {
		if p.Finite() {
			pts = append(pts, p)
		}
	}
	if len(pts) == 0 {
		return Shape{}, ErrNoPoints
	}
	s.Points = pts
	if !(s.Roughness >= 0) || !finite(s.Roughness) {
		s.Roughness = 0
	}
	if !s.HasImageSize() {
		s.ImageWidth, s.ImageHeight = 0, 0
	}
	s.Bounds, _ = ComputeBounds(s, m)
	return s, nil
}

// Clone returns a deep copy sharing no slices with s.
func Clone(s Shape) Shape {
	var out Shape
	if err := copier.CopyWithOption(&out, &s, copier.Option{DeepCopy: true}); err != nil {
		// copier only fails on mismatched kinds; fall back to a manual copy
		out = s
		out.Points = append([]geom.Point(nil), s.Points...)
		out.ImageData = append([]byte(nil), s.ImageData...)
	}
	return out
}

// Equal compares identity, style, points, text and image size. Image bytes
// and cached bounds are not compared.
func Equal(a, b Shape) bool {
	if a.ID != b.ID || a.Kind != b.Kind || a.Color != b.Color {
		return false
	}
	if a.StrokeWidth != b.StrokeWidth || a.Roughness != b.Roughness {
		return false
	}
	if a.Text != b.Text || a.ImageWidth != b.ImageWidth || a.ImageHeight != b.ImageHeight {
		return false
	}
	return PointsEqual(a.Points, b.Points)
}

// PointsEqual compares two point slices element-wise.
func PointsEqual(a, b []geom.Point) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Translate returns s moved by d with bounds shifted accordingly.
func Translate(s Shape, d geom.Point) Shape {
	pts := make([]geom.Point, len(s.Points))
	for i, p := range s.Points {
		pts[i] = p.Add(d)
	}
	s.Points = pts
	s.Bounds = geom.Bounds{MinX: s.Bounds.MinX + d.X, MinY: s.Bounds.MinY + d.Y, MaxX: s.Bounds.MaxX + d.X, MaxY: s.Bounds.MaxY + d.Y}
	return s
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
