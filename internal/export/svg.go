/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/color"
	"io"
	"math"
	"strings"

	"github.com/h2non/filetype"

	"sketchboard/internal/geom"
	"sketchboard/internal/shape"
	"sketchboard/internal/textlayout"
)

// SVG writes the framed scene as an SVG document. The viewBox is in world
// units; width and height are scaled by opt.DPR. Shapes are written with
// their clean geometry, without hand-drawn jitter.
func SVG(w io.Writer, shapes []shape.Shape, opt Options) error {
	var m shape.TextMeasurer
	if opt.Faces != nil {
		m = textlayout.NewMeasurer(opt.Faces)
	}
	b := frame(shapes, opt, m)
	k := opt.dpr()

	var buf bytes.Buffer
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(&buf, format, args...)
	}

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" version=\"1.1\" width=\"%dpx\" height=\"%dpx\" viewBox=\"%g %g %g %g\">\n",
		int(math.Ceil(b.W()*k)), int(math.Ceil(b.H()*k)), b.MinX, b.MinY, b.W(), b.H())
	if opt.Title != "" {
		wf("  <title>%s</title>\n", escText(opt.Title))
	}
	if bg, ok := opt.background(); ok {
		wf("  <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"%s\"/>\n", b.MinX, b.MinY, b.W(), b.H(), svgColor(bg))
	}
	for _, s := range shapes {
		writeSVGShape(wf, s)
	}
	wf("</svg>\n")
	if werr != nil {
		return fmt.Errorf("build svg: %w", werr)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

func writeSVGShape(wf func(string, ...any), s shape.Shape) {
	if len(s.Points) == 0 {
		return
	}
	col := shape.ColorOr(s.Color, color.NRGBA{A: 0xff})
	paint := fmt.Sprintf("stroke=\"%s\"%s stroke-width=\"%g\" stroke-linecap=\"round\" stroke-linejoin=\"round\" fill=\"none\"",
		svgColor(col), opacity("stroke-opacity", col), s.StrokeWidth)
	first, last := s.Points[0], s.Points[len(s.Points)-1]
	switch s.Kind {
	case shape.Pencil:
		if len(s.Points) == 1 {
			wf("  <circle cx=\"%g\" cy=\"%g\" r=\"%g\" fill=\"%s\"%s/>\n", first.X, first.Y, s.StrokeWidth/2, svgColor(col), opacity("fill-opacity", col))
			return
		}
		wf("  <polyline points=\"%s\" %s/>\n", svgPoints(s.Points), paint)
	case shape.Line:
		wf("  <line x1=\"%g\" y1=\"%g\" x2=\"%g\" y2=\"%g\" %s/>\n", first.X, first.Y, last.X, last.Y, paint)
	case shape.Rectangle:
		r := geom.BoxOf(first, last)
		wf("  <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" %s/>\n", r.MinX, r.MinY, r.W(), r.H(), paint)
	case shape.Circle:
		wf("  <circle cx=\"%g\" cy=\"%g\" r=\"%g\" %s/>\n", first.X, first.Y, first.Dist(last), paint)
	case shape.Text:
		wf("  <text x=\"%g\" y=\"%g\" font-family=\"%s\" font-size=\"%g\" fill=\"%s\"%s>%s</text>\n",
			first.X, first.Y, escAttr(svgFontFamily), s.FontSize(), svgColor(col), opacity("fill-opacity", col), escText(textlayout.FirstLine(s.Text)))
	case shape.Image:
		if !s.HasImageSize() || len(s.ImageData) == 0 {
			return
		}
		mime := "application/octet-stream"
		if kind, err := filetype.Match(s.ImageData); err == nil && kind != filetype.Unknown {
			mime = kind.MIME.Value
		}
		wf("  <image x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" preserveAspectRatio=\"none\" href=\"data:%s;base64,%s\"/>\n",
			first.X, first.Y, s.ImageWidth, s.ImageHeight, mime, base64.StdEncoding.EncodeToString(s.ImageData))
	}
}

const svgFontFamily = "Go, Helvetica, Arial, sans-serif"

func svgPoints(pts []geom.Point) string {
	var sb strings.Builder
	for i, p := range pts {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%g,%g", p.X, p.Y)
	}
	return sb.String()
}

func svgColor(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// opacity renders the alpha channel as an attribute, empty when opaque.
func opacity(attr string, c color.NRGBA) string {
	if c.A == 0xff {
		return ""
	}
	return fmt.Sprintf(" %s=\"%.3g\"", attr, float64(c.A)/255)
}

func escAttr(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '"':
			out = append(out, "&quot;"...)
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '\n':
			out = append(out, ' ')
		case '\r':
			// skip
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}

func escText(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '>':
			out = append(out, "&gt;"...)
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}
