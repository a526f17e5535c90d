/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package raster paints shapes onto RGBA surfaces using x/image/vector for
// strokes, x/image/font for text and x/image/draw for embedded images.
package raster

import (
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"math"
	"sync"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"

	applog "sketchboard/internal/log"

	"sketchboard/internal/geom"
	"sketchboard/internal/resize"
	"sketchboard/internal/shape"
	"sketchboard/internal/textlayout"
)

// minDeviceStroke keeps hairlines visible at low zoom.
const minDeviceStroke = 0.75

// Selection styling.
var (
	SelectionColor = color.NRGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff}
	HandleFill     = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	selectionPad   = 5.0
)

// Renderer draws shapes. The zero value is not usable; call New.
type Renderer struct {
	faces textlayout.Provider
	// Interp scales embedded images; CatmullRom unless set.
	Interp xdraw.Interpolator

	// font.Face values are not safe for concurrent use
	textMu sync.Mutex
	images imageCache
}

// New returns a Renderer resolving text faces through p; nil uses the
// basic fixed face.
func New(p textlayout.Provider) *Renderer {
	if p == nil {
		p = textlayout.BasicProvider{}
	}
	return &Renderer{faces: p, Interp: xdraw.CatmullRom}
}

// Clear fills dst with c.
func Clear(dst *image.RGBA, c color.Color) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// SceneOptions tune DrawScene.
type SceneOptions struct {
	// Skip hides shapes by id, e.g. shapes being erased or edited.
	Skip map[string]bool
	// Override replaces the committed version of a shape with a live one.
	Override map[string]shape.Shape
}

// DrawScene paints shapes in order and returns how many were drawn.
func (r *Renderer) DrawScene(dst *image.RGBA, shapes []shape.Shape, m geom.Affine, opt SceneOptions) int {
	n := 0
	for _, s := range shapes {
		if opt.Skip[s.ID] {
			continue
		}
		if o, ok := opt.Override[s.ID]; ok {
			s = o
		}
		r.DrawShape(dst, s, m)
		n++
	}
	return n
}

// DrawShape paints one shape with the world-to-device matrix m.
func (r *Renderer) DrawShape(dst *image.RGBA, s shape.Shape, m geom.Affine) {
	if len(s.Points) == 0 {
		return
	}
	col, err := shape.ParseColor(s.Color)
	if err != nil {
		col = color.NRGBA{A: 0xff}
	}
	w := s.StrokeWidth * m.ScaleFactor()
	if w < minDeviceStroke {
		w = minDeviceStroke
	}
	switch s.Kind {
	case shape.Pencil:
		r.drawPencil(dst, s, m, w, col)
	case shape.Line:
		r.drawLine(dst, s, m, w, col)
	case shape.Rectangle:
		r.drawRect(dst, s, m, w, col)
	case shape.Circle:
		r.drawCircle(dst, s, m, w, col)
	case shape.Text:
		r.drawText(dst, s, m, col)
	case shape.Image:
		r.drawImage(dst, s, m)
	}
}

func (r *Renderer) drawPencil(dst *image.RGBA, s shape.Shape, m geom.Affine, w float64, col color.Color) {
	pts := s.Points
	if s.Roughness > 0 && len(pts) > 2 {
		pts = roughen(pts, geom.Clamp(s.Roughness, 0, 1)*0.3, rngFor(s.ID))
	}
	strokeDevice(dst, transformAll(m, pts), w, false, col)
}

func (r *Renderer) drawLine(dst *image.RGBA, s shape.Shape, m geom.Affine, w float64, col color.Color) {
	a, _ := s.First()
	b, _ := s.Last()
	pts := []geom.Point{a, b}
	if s.Roughness > 0 {
		rng := rngFor(s.ID)
		pts = wavy(a, b, segmentsFor(rng), s.Roughness, rng)
	}
	strokeDevice(dst, transformAll(m, pts), w, false, col)
}

func (r *Renderer) drawRect(dst *image.RGBA, s shape.Shape, m geom.Affine, w float64, col color.NRGBA) {
	a, _ := s.First()
	b, _ := s.Last()
	corners := []geom.Point{a, {X: b.X, Y: a.Y}, b, {X: a.X, Y: b.Y}}
	if !(s.Roughness > 0) {
		strokeDevice(dst, transformAll(m, corners), w, true, col)
		return
	}
	rng := rngFor(s.ID)
	outline := func(off geom.Point) []geom.Point {
		var pts []geom.Point
		for i := range corners {
			p, q := corners[i].Add(off), corners[(i+1)%4].Add(off)
			seg := wavy(p, q, segmentsFor(rng), s.Roughness, rng)
			if i > 0 {
				seg = seg[1:]
			}
			pts = append(pts, seg...)
		}
		return pts
	}
	strokeDevice(dst, transformAll(m, outline(geom.Point{})), w, true, col)
	// second, fainter pass for the sketched look
	ghost := col
	ghost.A = uint8(float64(col.A) * 0.4)
	strokeDevice(dst, transformAll(m, outline(geom.Pt(1, -1))), w, true, ghost)
}

func (r *Renderer) drawCircle(dst *image.RGBA, s shape.Shape, m geom.Affine, w float64, col color.Color) {
	c, _ := s.First()
	rad := s.Radius() * m.ScaleFactor()
	if rad <= 0 {
		strokeDevice(dst, []geom.Point{m.Apply(c)}, w, false, col)
		return
	}
	strokeDevice(dst, disc(m.Apply(c), rad), w, true, col)
}

func (r *Renderer) drawText(dst *image.RGBA, s shape.Shape, m geom.Affine, col color.Color) {
	line := textlayout.FirstLine(s.Text)
	if line == "" {
		return
	}
	anchor, _ := s.First()
	at := m.Apply(anchor)
	size := s.FontSize() * m.ScaleFactor()
	r.textMu.Lock()
	defer r.textMu.Unlock()
	face, _ := r.faces.Resolve(textlayout.FontSpec{SizePx: size})
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(math.Round(at.X * 64)), Y: fixed.Int26_6(math.Round(at.Y * 64))},
	}
	d.DrawString(line)
}

func (r *Renderer) drawImage(dst *image.RGBA, s shape.Shape, m geom.Affine) {
	if len(s.ImageData) == 0 {
		return
	}
	img, err := r.images.get(s.ID, s.ImageData)
	if err != nil {
		applog.WithComponent("raster").Debug("image skipped", slog.String("id", s.ID), slog.Any("error", err))
		return
	}
	sb := img.Bounds()
	if sb.Empty() {
		return
	}
	anchor, _ := s.First()
	w, h := s.ImageWidth, s.ImageHeight
	if !s.HasImageSize() {
		w, h = float64(sb.Dx()), float64(sb.Dy())
	}
	o := m.Apply(anchor)
	k := m.ScaleFactor()
	sx := w * k / float64(sb.Dx())
	sy := h * k / float64(sb.Dy())
	// source-to-destination transform
	aff := f64.Aff3{
		sx, 0, o.X - float64(sb.Min.X)*sx,
		0, sy, o.Y - float64(sb.Min.Y)*sy,
	}
	interp := r.Interp
	if interp == nil {
		interp = xdraw.CatmullRom
	}
	interp.Transform(dst, aff, img, sb, xdraw.Over, nil)
}

// DrawSelection outlines s and paints its resize handles. handle is the
// handle edge length in world units, as returned by resize.HandleSize.
func (r *Renderer) DrawSelection(dst *image.RGBA, s shape.Shape, spots []resize.Spot, handle float64, m geom.Affine) {
	b := s.Bounds.Outset(selectionPad / nonZero(m.ScaleFactor()))
	c := b.Corners()
	ring := []geom.Point{c[0], c[1], c[3], c[2]}
	strokeDevice(dst, transformAll(m, ring), 1.5, true, SelectionColor)
	for _, sp := range spots {
		half := handle / 2
		sq := []geom.Point{
			{X: sp.At.X - half, Y: sp.At.Y - half},
			{X: sp.At.X + half, Y: sp.At.Y - half},
			{X: sp.At.X + half, Y: sp.At.Y + half},
			{X: sp.At.X - half, Y: sp.At.Y + half},
		}
		dev := transformAll(m, sq)
		fillPolys(dst, [][]geom.Point{dev}, HandleFill)
		strokeDevice(dst, dev, 1.5, true, SelectionColor)
	}
}

// DrawEraser paints the eraser cursor ring at p with world radius rad.
func (r *Renderer) DrawEraser(dst *image.RGBA, p geom.Point, rad float64, m geom.Affine) {
	col := color.NRGBA{R: 0xef, G: 0x44, B: 0x44, A: 0xb0}
	strokeDevice(dst, disc(m.Apply(p), rad*m.ScaleFactor()), 1.5, true, col)
}

func nonZero(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}
