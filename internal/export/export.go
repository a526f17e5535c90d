/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package export writes scenes to PNG, SVG and PDF and runs preset batches.
// All exporters frame the scene to its content bounds plus padding.
package export

import (
	"errors"
	"image/color"
	"math"

	"sketchboard/internal/geom"
	"sketchboard/internal/shape"
	"sketchboard/internal/textlayout"
)

// MaxPixels bounds either side of a raster export.
const MaxPixels = 16384

// ErrTooLarge is returned when a raster export would exceed MaxPixels.
var ErrTooLarge = errors.New("export exceeds maximum image size")

// DefaultPadding is the margin around the content in world units.
const DefaultPadding = 20.0

// emptyScene is the frame used when there is nothing to export.
var emptyScene = geom.Bounds{MaxX: 800, MaxY: 600}

// Options control every exporter.
//
//nolint:revive // clarity is preferred
type Options struct {
	// Background fill; "" is white, "transparent" leaves PNG alpha at zero.
	Background string
	// DPR is output pixels per world unit for PNG and the SVG size attributes.
	DPR float64
	// Padding around the content; negative means none, zero the default.
	Padding float64
	// Frame overrides the content bounds when non-nil.
	Frame *geom.Bounds
	// Faces resolves text for PNG; nil uses the embedded Go fonts.
	Faces textlayout.Provider
	// Title is written to PDF metadata and the SVG title element.
	Title string
}

func (o Options) dpr() float64 {
	if o.DPR > 0 && !math.IsInf(o.DPR, 0) {
		return o.DPR
	}
	return 1
}

func (o Options) padding() float64 {
	switch {
	case o.Padding < 0:
		return 0
	case o.Padding == 0:
		return DefaultPadding
	}
	return o.Padding
}

func (o Options) background() (color.NRGBA, bool) {
	if o.Background == "transparent" {
		return color.NRGBA{}, false
	}
	return shape.ColorOr(o.Background, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}), true
}

// ContentBounds is the union of the shapes' bounds recomputed with m (nil
// uses the text estimate). ok is false for a scene without drawable shapes.
func ContentBounds(shapes []shape.Shape, m shape.TextMeasurer) (geom.Bounds, bool) {
	var (
		out geom.Bounds
		ok  bool
	)
	for _, s := range shapes {
		b, has := shape.ComputeBounds(s, m)
		if !has || !b.Min().Finite() || !b.Max().Finite() {
			continue
		}
		if s.Kind != shape.Text && s.Kind != shape.Image {
			b = b.Outset(s.StrokeWidth / 2)
		}
		if !ok {
			out, ok = b, true
			continue
		}
		out = out.Union(b)
	}
	return out, ok
}

// frame resolves the exported world rectangle.
func frame(shapes []shape.Shape, o Options, m shape.TextMeasurer) geom.Bounds {
	if o.Frame != nil {
		return *o.Frame
	}
	b, ok := ContentBounds(shapes, m)
	if !ok {
		return emptyScene
	}
	b = b.Outset(o.padding())
	if b.W() <= 0 || b.H() <= 0 {
		b = b.Outset(1)
	}
	return b
}

// worldToPage maps the frame to a page of scale k per world unit at the origin.
func worldToPage(b geom.Bounds, k float64) geom.Affine {
	return geom.Scale(k, k).Mul(geom.Translate(-b.MinX, -b.MinY))
}
