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
	"fmt"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/h2non/filetype"
	"github.com/jung-kurt/gofpdf"

	"sketchboard/internal/geom"
	"sketchboard/internal/raster"
	"sketchboard/internal/shape"
	"sketchboard/internal/textlayout"
	"sketchboard/internal/version"
)

// PDF writes the framed scene as a single-page PDF at path, creating the
// folder if needed. One world unit maps to one point.
func PDF(path string, shapes []shape.Shape, opt Options) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure out dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create pdf: %w", err)
	}
	if err := WritePDF(f, shapes, opt); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close pdf: %w", err)
	}
	return nil
}

// WritePDF is PDF for an arbitrary writer.
func WritePDF(w io.Writer, shapes []shape.Shape, opt Options) error {
	var m shape.TextMeasurer
	if opt.Faces != nil {
		m = textlayout.NewMeasurer(opt.Faces)
	}
	b := frame(shapes, opt, m)
	size := gofpdf.SizeType{Wd: b.W(), Ht: b.H()}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", Size: size})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	if opt.Title != "" {
		pdf.SetTitle(opt.Title, true)
	}
	pdf.SetCreator("Sketchboard "+version.String(), false)
	pdf.AddPageFormat("", size)

	if bg, ok := opt.background(); ok {
		pdf.SetFillColor(int(bg.R), int(bg.G), int(bg.B))
		pdf.Rect(0, 0, b.W(), b.H(), "F")
	}
	pdf.SetLineCapStyle("round")
	pdf.SetLineJoinStyle("round")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	toPage := geom.Translate(-b.MinX, -b.MinY)

	for i, s := range shapes {
		drawPDFShape(pdf, s, toPage, tr, i)
		if pdf.Err() {
			break
		}
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func drawPDFShape(pdf *gofpdf.Fpdf, s shape.Shape, m geom.Affine, tr func(string) string, idx int) {
	if len(s.Points) == 0 {
		return
	}
	col := shape.ColorOr(s.Color, color.NRGBA{A: 0xff})
	pdf.SetAlpha(float64(col.A)/255, "Normal")
	defer pdf.SetAlpha(1, "Normal")
	pdf.SetDrawColor(int(col.R), int(col.G), int(col.B))
	pdf.SetLineWidth(s.StrokeWidth)

	first, last := m.Apply(s.Points[0]), m.Apply(s.Points[len(s.Points)-1])
	switch s.Kind {
	case shape.Pencil:
		if len(s.Points) == 1 {
			pdf.SetFillColor(int(col.R), int(col.G), int(col.B))
			pdf.Circle(first.X, first.Y, s.StrokeWidth/2, "F")
			return
		}
		pdf.MoveTo(first.X, first.Y)
		for _, p := range s.Points[1:] {
			q := m.Apply(p)
			pdf.LineTo(q.X, q.Y)
		}
		pdf.DrawPath("D")
	case shape.Line:
		pdf.Line(first.X, first.Y, last.X, last.Y)
	case shape.Rectangle:
		r := geom.BoxOf(first, last)
		pdf.Rect(r.MinX, r.MinY, r.W(), r.H(), "D")
	case shape.Circle:
		pdf.Circle(first.X, first.Y, first.Dist(last), "D")
	case shape.Text:
		pdf.SetFont("Helvetica", "", s.FontSize())
		pdf.SetTextColor(int(col.R), int(col.G), int(col.B))
		pdf.Text(first.X, first.Y, tr(textlayout.FirstLine(s.Text)))
	case shape.Image:
		drawPDFImage(pdf, s, first, idx)
	}
}

// drawPDFImage embeds JPEG, PNG and GIF as-is and re-encodes other formats as PNG.
func drawPDFImage(pdf *gofpdf.Fpdf, s shape.Shape, at geom.Point, idx int) {
	if !s.HasImageSize() || len(s.ImageData) == 0 {
		return
	}
	data, typ := s.ImageData, ""
	if kind, err := filetype.Match(data); err == nil {
		switch kind.Extension {
		case "jpg":
			typ = "JPG"
		case "png":
			typ = "PNG"
		case "gif":
			typ = "GIF"
		}
	}
	if typ == "" {
		img, _, err := raster.Decode(data)
		if err != nil {
			return
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return
		}
		data, typ = buf.Bytes(), "PNG"
	}
	name := fmt.Sprintf("img-%d-%s", idx, s.ID)
	opts := gofpdf.ImageOptions{ImageType: typ}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if pdf.Err() {
		// keep the rest of the page on a broken image
		pdf.ClearError()
		return
	}
	pdf.ImageOptions(name, at.X, at.Y, s.ImageWidth, s.ImageHeight, false, opts, 0, "")
}
