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
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sketchboard/internal/geom"
	"sketchboard/internal/shape"
	"sketchboard/internal/textlayout"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func sampleShapes(t *testing.T) []shape.Shape {
	t.Helper()
	st := shape.Style{Color: "#ff0000", StrokeWidth: 2}
	line := shape.New(shape.Line, geom.Point{}, st)
	line.Points = append(line.Points, geom.Point{X: 100, Y: 50})
	text := shape.New(shape.Text, geom.Point{X: 10, Y: 30}, shape.Style{Color: "#000000", StrokeWidth: 2})
	text.Text = "a < b & c"
	img := shape.New(shape.Image, geom.Point{X: 60, Y: 10}, st)
	img.ImageData = pngBytes(t, 4, 4)
	img.ImageWidth, img.ImageHeight = 20, 20
	return []shape.Shape{line, text, img}
}

func TestContentBounds(t *testing.T) {
	if _, ok := ContentBounds(nil, nil); ok {
		t.Fatalf("empty scene has no content")
	}
	line := shape.New(shape.Line, geom.Point{}, shape.Style{Color: "#000", StrokeWidth: 2})
	line.Points = append(line.Points, geom.Point{X: 100, Y: 50})
	b, ok := ContentBounds([]shape.Shape{line}, nil)
	if !ok || b != (geom.Bounds{MinX: -1, MinY: -1, MaxX: 101, MaxY: 51}) {
		t.Fatalf("bounds %#v", b)
	}
}

func TestPNGFramesContentAtDPR(t *testing.T) {
	line := shape.New(shape.Line, geom.Point{}, shape.Style{Color: "#ff0000", StrokeWidth: 2})
	line.Points = append(line.Points, geom.Point{X: 100, Y: 50})

	var buf bytes.Buffer
	if err := PNG(&buf, []shape.Shape{line}, Options{DPR: 2, Faces: textlayout.BasicProvider{}}); err != nil {
		t.Fatalf("PNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := img.Bounds().Size(); got != (image.Point{X: 284, Y: 184}) {
		t.Fatalf("size %v", got)
	}
	// corner is background, the line's midpoint is red
	if r, g, b, _ := img.At(0, 0).RGBA(); r>>8 != 0xff || g>>8 != 0xff || b>>8 != 0xff {
		t.Fatalf("background not white")
	}
	mid := img.At((50+21)*2, (25+21)*2)
	if r, g, _, _ := mid.RGBA(); r>>8 < 0xc0 || g>>8 > 0x40 {
		t.Fatalf("line not painted at midpoint: %v", mid)
	}
}

func TestPNGTransparentAndEmpty(t *testing.T) {
	img, err := Raster(nil, Options{Background: "transparent", Faces: textlayout.BasicProvider{}})
	if err != nil {
		t.Fatalf("Raster: %v", err)
	}
	if img.Bounds().Dx() != 800 || img.Bounds().Dy() != 600 {
		t.Fatalf("empty scene frame %v", img.Bounds())
	}
	if _, _, _, a := img.At(10, 10).RGBA(); a != 0 {
		t.Fatalf("expected transparent pixel")
	}
}

func TestPNGTooLarge(t *testing.T) {
	big := geom.Bounds{MaxX: 20000, MaxY: 10}
	_, err := Raster(nil, Options{Frame: &big, Faces: textlayout.BasicProvider{}})
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestSVGContainsShapes(t *testing.T) {
	var buf bytes.Buffer
	if err := SVG(&buf, sampleShapes(t), Options{Title: "Board \"1\"", DPR: 2}); err != nil {
		t.Fatalf("SVG: %v", err)
	}
	s := buf.String()
	for _, want := range []string{
		"<svg ",
		"<line x1=\"0\" y1=\"0\" x2=\"100\" y2=\"50\"",
		"stroke=\"#ff0000\"",
		"a &lt; b &amp; c",
		"href=\"data:image/png;base64,",
		"<title>Board \"1\"</title>",
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("svg missing %q:\n%s", want, s)
		}
	}
}

func TestSVGOpacityAndPencilDot(t *testing.T) {
	dot := shape.New(shape.Pencil, geom.Point{X: 5, Y: 5}, shape.Style{Color: "#00000080", StrokeWidth: 4})
	var buf bytes.Buffer
	if err := SVG(&buf, []shape.Shape{dot}, Options{}); err != nil {
		t.Fatalf("SVG: %v", err)
	}
	if !strings.Contains(buf.String(), "<circle cx=\"5\" cy=\"5\" r=\"2\"") || !strings.Contains(buf.String(), "fill-opacity=") {
		t.Fatalf("pencil dot: %s", buf.String())
	}
}

func TestPDFWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "scene.pdf")
	if err := PDF(path, sampleShapes(t), Options{Title: "Test"}); err != nil {
		t.Fatalf("PDF: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF-")) {
		t.Fatalf("not a pdf: %q", b[:8])
	}
}

func TestPDFSkipsUndecodableImages(t *testing.T) {
	img := shape.New(shape.Image, geom.Point{}, shape.DefaultStyle())
	img.ImageData = []byte("definitely not an image")
	img.ImageWidth, img.ImageHeight = 10, 10
	var buf bytes.Buffer
	if err := WritePDF(&buf, []shape.Shape{img}, Options{}); err != nil {
		t.Fatalf("broken image must be skipped: %v", err)
	}
}

func TestBatchPresets(t *testing.T) {
	dir := t.TempDir()
	shapes := sampleShapes(t)
	files, err := Batch(shapes, BatchOptions{Preset: PresetWeb, OutDir: filepath.Join(dir, "web"), Name: "board"})
	if err != nil {
		t.Fatalf("batch web: %v", err)
	}
	want := []string{filepath.Join(dir, "web", "png", "board.png"), filepath.Join(dir, "web", "svg", "board.svg")}
	if len(files) != len(want) {
		t.Fatalf("files %v", files)
	}
	for i, p := range want {
		if files[i] != p {
			t.Fatalf("file %d = %s, want %s", i, files[i], p)
		}
		st, err := os.Stat(p)
		if err != nil || st.Size() == 0 {
			t.Fatalf("missing or empty %s: %v", p, err)
		}
	}

	files, err = Batch(shapes, BatchOptions{Preset: PresetPrint, OutDir: filepath.Join(dir, "print")})
	if err != nil {
		t.Fatalf("batch print: %v", err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "scene.pdf" {
		t.Fatalf("print files %v", files)
	}
	f, _ := os.Open(files[1])
	defer func() { _ = f.Close() }()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode print png: %v", err)
	}
	web, _ := os.Open(filepath.Join(dir, "web", "png", "board.png"))
	defer func() { _ = web.Close() }()
	wcfg, _ := png.DecodeConfig(web)
	if cfg.Width < 2*wcfg.Width-1 || cfg.Width > 2*wcfg.Width {
		t.Fatalf("print png should be 2x web: %d vs %d", cfg.Width, wcfg.Width)
	}

	if _, err := Batch(shapes, BatchOptions{Preset: "poster"}); err == nil {
		t.Fatalf("expected unknown preset error")
	}
	if _, err := Batch(shapes, BatchOptions{Preset: PresetWeb, OutDir: dir, Formats: []string{"cbz"}}); err == nil {
		t.Fatalf("expected unknown format error")
	}
}

func TestFormatOf(t *testing.T) {
	for in, want := range map[string]string{"a.PNG": "png", "b.svg": "svg", "c/d.pdf": "pdf"} {
		if got, err := FormatOf(in); err != nil || got != want {
			t.Fatalf("FormatOf(%q) = %q %v", in, got, err)
		}
	}
	if _, err := FormatOf("x.gif"); err == nil {
		t.Fatalf("expected error for gif")
	}
}
