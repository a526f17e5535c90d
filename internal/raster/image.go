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
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sync"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedImage is returned for payloads that are not a decodable image.
var ErrUnsupportedImage = errors.New("unsupported image data")

// Decode sniffs data and decodes it. The returned string is the MIME type.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 || !filetype.IsImage(data) {
		return nil, "", ErrUnsupportedImage
	}
	kind, err := filetype.Match(data)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, kind.MIME.Value, fmt.Errorf("%w (%s): %v", ErrUnsupportedImage, kind.MIME.Value, err)
	}
	return img, kind.MIME.Value, nil
}

const maxCachedImages = 64

type cacheKey struct {
	id string
	n  int
}

type cacheEntry struct {
	img image.Image
	err error
}

// imageCache keeps decoded shape images so frames do not decode again.
type imageCache struct {
	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
}

func (c *imageCache) get(id string, data []byte) (image.Image, error) {
	k := cacheKey{id, len(data)}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[k]; ok {
		return e.img, e.err
	}
	if c.entries == nil {
		c.entries = make(map[cacheKey]cacheEntry)
	}
	if len(c.entries) >= maxCachedImages {
		for old := range c.entries {
			delete(c.entries, old)
			break
		}
	}
	img, _, err := Decode(data)
	c.entries[k] = cacheEntry{img, err}
	return img, err
}

func (c *imageCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
