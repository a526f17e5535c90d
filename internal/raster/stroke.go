/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package raster

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"

	"sketchboard/internal/geom"
)

// The vector rasterizer accumulates signed coverage, so overlapping pieces
// of one stroke must share an orientation or they cancel out. orient puts
// every polygon into the same winding before it is added.

func signedArea(p []geom.Point) float64 {
	a := 0.0
	for i := range p {
		j := (i + 1) % len(p)
		a += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	return a / 2
}

func orient(p []geom.Point) []geom.Point {
	if signedArea(p) >= 0 {
		return p
	}
	out := make([]geom.Point, len(p))
	for i := range p {
		out[i] = p[len(p)-1-i]
	}
	return out
}

// disc approximates a circle with enough vertices for its device radius.
func disc(c geom.Point, r float64) []geom.Point {
	n := int(math.Ceil(2 * math.Pi * r / 2))
	if n < 8 {
		n = 8
	}
	if n > 96 {
		n = 96
	}
	pts := make([]geom.Point, n)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = geom.Point{X: c.X + r*math.Cos(a), Y: c.Y + r*math.Sin(a)}
	}
	return pts
}

// strokePolys builds a round-joined, round-capped stroke of width w around a
// polyline in device space: one quad per segment plus a disc per vertex.
func strokePolys(pts []geom.Point, w float64, closed bool) [][]geom.Point {
	if len(pts) == 0 || !(w > 0) {
		return nil
	}
	hw := w / 2
	var out [][]geom.Point
	if len(pts) == 1 {
		return [][]geom.Point{disc(pts[0], hw)}
	}
	n := len(pts)
	segs := n - 1
	if closed {
		segs = n
	}
	for i := 0; i < segs; i++ {
		a, b := pts[i], pts[(i+1)%n]
		d := b.Sub(a)
		l := math.Hypot(d.X, d.Y)
		if l == 0 {
			continue
		}
		nx, ny := -d.Y/l*hw, d.X/l*hw
		out = append(out, []geom.Point{
			{X: a.X + nx, Y: a.Y + ny},
			{X: b.X + nx, Y: b.Y + ny},
			{X: b.X - nx, Y: b.Y - ny},
			{X: a.X - nx, Y: a.Y - ny},
		})
	}
	for _, p := range pts {
		out = append(out, disc(p, hw))
	}
	return out
}

// fillPolys rasterizes polys onto dst with col. The rasterizer is sized to
// the polygons' device bounds clipped to dst.
func fillPolys(dst *image.RGBA, polys [][]geom.Point, col color.Color) {
	var bb geom.Bounds
	first := true
	for _, p := range polys {
		if b, ok := geom.BoundsOf(p); ok {
			if first {
				bb, first = b, false
			} else {
				bb = bb.Union(b)
			}
		}
	}
	if first {
		return
	}
	r := image.Rect(int(math.Floor(bb.MinX)), int(math.Floor(bb.MinY)), int(math.Ceil(bb.MaxX))+1, int(math.Ceil(bb.MaxY))+1)
	r = r.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	z := vector.NewRasterizer(r.Dx(), r.Dy())
	z.DrawOp = draw.Over
	ox, oy := float64(r.Min.X), float64(r.Min.Y)
	for _, p := range polys {
		if len(p) < 3 {
			continue
		}
		p = orient(p)
		z.MoveTo(float32(p[0].X-ox), float32(p[0].Y-oy))
		for _, q := range p[1:] {
			z.LineTo(float32(q.X-ox), float32(q.Y-oy))
		}
		z.ClosePath()
	}
	z.Draw(dst, r, image.NewUniform(col), image.Point{})
}

// strokeDevice strokes pts (device space) with width w.
func strokeDevice(dst *image.RGBA, pts []geom.Point, w float64, closed bool, col color.Color) {
	fillPolys(dst, strokePolys(pts, w, closed), col)
}

func transformAll(m geom.Affine, pts []geom.Point) []geom.Point {
	out := make([]geom.Point, len(pts))
	for i, p := range pts {
		out[i] = m.Apply(p)
	}
	return out
}
