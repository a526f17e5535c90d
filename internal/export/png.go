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
	"fmt"
	"image"
	"image/png"
	"io"
	"math"

	"sketchboard/internal/raster"
	"sketchboard/internal/shape"
	"sketchboard/internal/textlayout"
)

// Raster paints the framed scene into a new image at opt.DPR pixels per world unit.
func Raster(shapes []shape.Shape, opt Options) (*image.RGBA, error) {
	faces := opt.Faces
	if faces == nil {
		faces = textlayout.NewOTProvider(textlayout.NewDefaultLibrary())
	}
	b := frame(shapes, opt, textlayout.NewMeasurer(faces))
	k := opt.dpr()
	pixW := int(math.Ceil(b.W() * k))
	pixH := int(math.Ceil(b.H() * k))
	if pixW < 1 {
		pixW = 1
	}
	if pixH < 1 {
		pixH = 1
	}
	if pixW > MaxPixels || pixH > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, pixW, pixH)
	}
	img := image.NewRGBA(image.Rect(0, 0, pixW, pixH))
	if bg, ok := opt.background(); ok {
		raster.Clear(img, bg)
	}
	raster.New(faces).DrawScene(img, shapes, worldToPage(b, k), raster.SceneOptions{})
	return img, nil
}

// PNG writes the framed scene as PNG.
func PNG(w io.Writer, shapes []shape.Shape, opt Options) error {
	img, err := Raster(shapes, opt)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
