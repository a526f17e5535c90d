/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package resize holds the per-kind resize handles and math. Each kind is an
// entry in a strategy table; kinds without an entry (pencil) cannot be
// resized.
//
// A resize gesture is a Session: the original shape is captured once at
// pointer-down and every Apply computes from that original plus the total
// drag delta, never from the previous frame.
package resize

import (
	"math"

	"sketchboard/internal/geom"
	"sketchboard/internal/shape"
)

// Handle names a grab point on a shape.
type Handle string

const (
	NW    Handle = "nw"
	NE    Handle = "ne"
	SW    Handle = "sw"
	SE    Handle = "se"
	Start Handle = "start"
	End   Handle = "end"
	Size  Handle = "size"
)

// Minimum extents in world units.
const (
	MinRectSide   = 20.0
	MinImageSide  = 30.0
	MinRadius     = 15.0
	textSizeRatio = 3.0 // drag pixels per font-size step
)

// Handle sizes in screen pixels.
const (
	mouseHandle     = 8.0
	touchHandle     = 20.0
	mouseTextHandle = 12.0
	touchTextHandle = 24.0
	outlinePad      = 5.0
)

// Options mirror hittest.Options: input device and camera zoom factor.
type Options struct {
	Touch bool
	Scale float64
}

func (o Options) scale() float64 {
	if o.Scale > 0 && !math.IsInf(o.Scale, 0) {
		return o.Scale
	}
	return 1
}

// Spot is a handle and its world position.
type Spot struct {
	Handle Handle
	At     geom.Point
}

type strategy struct {
	handles func(s shape.Shape) []Spot
	apply   func(orig shape.Shape, h Handle, start, cur geom.Point) shape.Shape
	// text handles use the larger text handle size
	text bool
	// extra detection padding in screen pixels
	pad float64
}

var strategies = map[shape.Kind]strategy{
	shape.Rectangle: {handles: cornerHandles, apply: resizeRect, pad: outlinePad},
	shape.Image:     {handles: cornerHandles, apply: resizeImage},
	shape.Circle:    {handles: cornerHandles, apply: resizeCircle, pad: outlinePad},
	shape.Line:      {handles: lineHandles, apply: resizeLine},
	shape.Text:      {handles: textHandles, apply: resizeText, text: true},
}

// Resizable reports whether kind k has resize handles.
func Resizable(k shape.Kind) bool {
	_, ok := strategies[k]
	return ok
}

// HandleSize is the drawn handle edge length for s in world units.
func HandleSize(s shape.Shape, opt Options) float64 {
	st := strategies[s.Kind]
	size := mouseHandle
	switch {
	case st.text && opt.Touch:
		size = touchTextHandle
	case st.text:
		size = mouseTextHandle
	case opt.Touch:
		size = touchHandle
	}
	return size / opt.scale()
}

// Handles returns the grab points of s; nil for kinds that cannot be resized.
func Handles(s shape.Shape) []Spot {
	st, ok := strategies[s.Kind]
	if !ok || len(s.Points) == 0 {
		return nil
	}
	return st.handles(s)
}

// HandleAt returns the handle of s under p, preferring the nearest when
// handles overlap on small shapes.
func HandleAt(p geom.Point, s shape.Shape, opt Options) (Handle, bool) {
	st, ok := strategies[s.Kind]
	if !ok || len(s.Points) == 0 {
		return "", false
	}
	reach := HandleSize(s, opt)/2 + st.pad/opt.scale()
	best, bestD := Handle(""), math.Inf(1)
	for _, sp := range st.handles(s) {
		if math.Abs(p.X-sp.At.X) > reach || math.Abs(p.Y-sp.At.Y) > reach {
			continue
		}
		if d := p.Dist(sp.At); d < bestD {
			best, bestD = sp.Handle, d
		}
	}
	return best, best != ""
}

// Session is one resize gesture.
type Session struct {
	Original shape.Shape
	Handle   Handle
	Start    geom.Point
	// Measurer is used for text bounds of the draft; nil uses the estimate.
	Measurer shape.TextMeasurer
}

// Begin captures s as the gesture's original. It returns nil for kinds that
// cannot be resized.
func Begin(s shape.Shape, h Handle, start geom.Point) *Session {
	if !Resizable(s.Kind) || len(s.Points) == 0 {
		return nil
	}
	return &Session{Original: shape.Clone(s), Handle: h, Start: start}
}

// Apply returns the original resized by the total delta cur-Start, with
// bounds recomputed.
func (ss *Session) Apply(cur geom.Point) shape.Shape {
	st := strategies[ss.Original.Kind]
	out := st.apply(shape.Clone(ss.Original), ss.Handle, ss.Start, cur)
	out.Bounds, _ = shape.ComputeBounds(out, ss.Measurer)
	return out
}

func cornerHandles(s shape.Shape) []Spot {
	c := s.Bounds.Corners()
	return []Spot{{NW, c[0]}, {NE, c[1]}, {SW, c[2]}, {SE, c[3]}}
}

func lineHandles(s shape.Shape) []Spot {
	first, _ := s.First()
	last, _ := s.Last()
	return []Spot{{Start, first}, {End, last}}
}

func textHandles(s shape.Shape) []Spot {
	return []Spot{{Size, s.Bounds.Max()}}
}

// movesWest/movesNorth report which sides a corner handle drags.
func movesWest(h Handle) bool  { return h == NW || h == SW }
func movesNorth(h Handle) bool { return h == NW || h == NE }

func resizeRect(s shape.Shape, h Handle, start, cur geom.Point) shape.Shape {
	if len(s.Points) < 2 {
		return s
	}
	p0, p1 := s.Points[0], s.Points[len(s.Points)-1]
	b := geom.BoxOf(p0, p1)
	d := cur.Sub(start)
	if movesWest(h) {
		b.MinX += d.X
	} else {
		b.MaxX += d.X
	}
	if movesNorth(h) {
		b.MinY += d.Y
	} else {
		b.MaxY += d.Y
	}
	if b.MaxX-b.MinX < MinRectSide {
		if movesWest(h) {
			b.MinX = b.MaxX - MinRectSide
		} else {
			b.MaxX = b.MinX + MinRectSide
		}
	}
	if b.MaxY-b.MinY < MinRectSide {
		if movesNorth(h) {
			b.MinY = b.MaxY - MinRectSide
		} else {
			b.MaxY = b.MinY + MinRectSide
		}
	}
	// keep which stored point was the start and which the end corner
	ns, ne := geom.Point{X: b.MinX, Y: b.MinY}, geom.Point{X: b.MaxX, Y: b.MaxY}
	if p0.X > p1.X {
		ns.X, ne.X = b.MaxX, b.MinX
	}
	if p0.Y > p1.Y {
		ns.Y, ne.Y = b.MaxY, b.MinY
	}
	s.Points = []geom.Point{ns, ne}
	return s
}

func resizeImage(s shape.Shape, h Handle, start, cur geom.Point) shape.Shape {
	if !s.HasImageSize() {
		return s
	}
	w0, h0 := s.ImageWidth, s.ImageHeight
	aspect := w0 / h0
	d := cur.Sub(start)
	sx, sy := 1.0, 1.0
	if movesWest(h) {
		sx = -1
	}
	if movesNorth(h) {
		sy = -1
	}
	dw := sx * d.X
	dwFromH := sy * d.Y * aspect
	if math.Abs(dwFromH) > math.Abs(dw) {
		dw = dwFromH
	}
	nw := w0 + dw
	nh := nw / aspect
	if math.Min(nw, nh) < MinImageSide {
		if aspect >= 1 {
			nh, nw = MinImageSide, MinImageSide*aspect
		} else {
			nw, nh = MinImageSide, MinImageSide/aspect
		}
	}
	anchor := s.Points[0]
	if sx < 0 {
		anchor.X += w0 - nw
	}
	if sy < 0 {
		anchor.Y += h0 - nh
	}
	s.Points = []geom.Point{anchor}
	s.ImageWidth, s.ImageHeight = nw, nh
	return s
}

func resizeCircle(s shape.Shape, _ Handle, start, cur geom.Point) shape.Shape {
	c, _ := s.First()
	e, _ := s.Last()
	r0 := c.Dist(e)
	angle := 0.0
	if r0 > 0 {
		angle = math.Atan2(e.Y-c.Y, e.X-c.X)
	}
	r := math.Max(MinRadius, r0+cur.Dist(c)-start.Dist(c))
	s.Points = []geom.Point{c, {X: c.X + math.Cos(angle)*r, Y: c.Y + math.Sin(angle)*r}}
	return s
}

func resizeLine(s shape.Shape, h Handle, start, cur geom.Point) shape.Shape {
	if len(s.Points) < 2 {
		return s
	}
	d := cur.Sub(start)
	pts := append([]geom.Point(nil), s.Points...)
	switch h {
	case Start:
		pts[0] = pts[0].Add(d)
	case End:
		pts[len(pts)-1] = pts[len(pts)-1].Add(d)
	}
	s.Points = pts
	return s
}

func resizeText(s shape.Shape, _ Handle, start, cur geom.Point) shape.Shape {
	d := cur.Sub(start)
	change := math.Round(math.Hypot(d.X, d.Y) / textSizeRatio)
	if d.X+d.Y < 0 {
		change = -change
	}
	fs := geom.Clamp(s.FontSize()+change, shape.MinFontSize, shape.MaxFontSize)
	s.StrokeWidth = fs / shape.FontScale
	return s
}
