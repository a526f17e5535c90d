/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"math"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// DefaultFamily is the family registered by NewDefaultLibrary.
const DefaultFamily = "Go"

// FontLibrary stores loaded OpenType fonts mapped by family name.
type FontLibrary struct {
	mu    sync.RWMutex
	fonts map[string]*opentype.Font
	first string
}

func NewFontLibrary() *FontLibrary { return &FontLibrary{fonts: make(map[string]*opentype.Font)} }

// NewDefaultLibrary returns a library holding the bundled Go Regular font.
func NewDefaultLibrary() *FontLibrary {
	fl := NewFontLibrary()
	if err := fl.AddTTF(DefaultFamily, goregular.TTF); err != nil {
		// the bundled font always parses; keep an empty library otherwise
		return NewFontLibrary()
	}
	return fl
}

// AddTTF parses font data and registers it under family.
func (fl *FontLibrary) AddTTF(family string, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", family, err)
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.fonts == nil {
		fl.fonts = make(map[string]*opentype.Font)
	}
	if fl.first == "" {
		fl.first = family
	}
	fl.fonts[family] = f
	return nil
}

// LoadTTF loads a font file into the library under the given family.
func (fl *FontLibrary) LoadTTF(family, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	return fl.AddTTF(family, data)
}

// Families returns the number of registered families.
func (fl *FontLibrary) Families() int {
	if fl == nil {
		return 0
	}
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	return len(fl.fonts)
}

func (fl *FontLibrary) find(family string) *opentype.Font {
	if fl == nil {
		return nil
	}
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	if f, ok := fl.fonts[family]; ok {
		return f
	}
	// unknown or empty family falls back to the first registered font
	return fl.fonts[fl.first]
}

// OTProvider resolves FontSpec using a FontLibrary and falls back to another
// Provider. Faces are cached per family and size rounded to a quarter pixel.
type OTProvider struct {
	Lib      *FontLibrary
	DPI      float64 // default 72 if zero
	Fallback Provider

	mu    sync.Mutex
	faces map[faceKey]cachedFace
}

type faceKey struct {
	family string
	size   float64
}

type cachedFace struct {
	face font.Face
	met  Metrics
}

// NewOTProvider returns a provider over lib with BasicProvider fallback.
func NewOTProvider(lib *FontLibrary) *OTProvider {
	return &OTProvider{Lib: lib, Fallback: BasicProvider{}}
}

func (p *OTProvider) Resolve(spec FontSpec) (font.Face, Metrics) {
	if spec.SizePx <= 0 {
		spec.SizePx = 12
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = 72
	}
	key := faceKey{family: spec.Family, size: math.Round(spec.SizePx*4) / 4}

	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.faces[key]; ok {
		return c.face, c.met
	}
	if f := p.Lib.find(spec.Family); f != nil {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: key.size, DPI: dpi, Hinting: font.HintingNone})
		if err == nil {
			m := face.Metrics()
			met := Metrics{
				Ascent:  float64(m.Ascent) / 64,
				Descent: float64(m.Descent) / 64,
				LineGap: float64(m.Height-m.Ascent-m.Descent) / 64,
			}
			if p.faces == nil {
				p.faces = make(map[faceKey]cachedFace)
			}
			p.faces[key] = cachedFace{face: face, met: met}
			return face, met
		}
	}
	fb := p.Fallback
	if fb == nil {
		fb = BasicProvider{}
	}
	return fb.Resolve(spec)
}
