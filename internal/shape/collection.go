/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package shape

import (
	"errors"
	"fmt"
	"log/slog"

	"sketchboard/internal/geom"
	applog "sketchboard/internal/log"
)

// ErrNotFound is returned when an id is not in the collection.
var ErrNotFound = errors.New("shape not found")

// Collection owns the ordered shape list of one scene. Slice order is paint
// order; the last shape is topmost. Every mutation validates its input and
// recomputes bounds, so stored shapes always have at least one finite point.
//
// Shapes handed out by Get and All share point storage with the collection.
// Mutations always install fresh slices, so readers may keep them but must
// not modify them.
//
// Collection is not safe for concurrent use; the engine serializes access.
type Collection struct {
	measurer TextMeasurer
	shapes   []Shape
	index    map[string]int
}

// NewCollection returns an empty collection measuring text with m (may be nil).
func NewCollection(m TextMeasurer) *Collection {
	return &Collection{measurer: m, index: make(map[string]int)}
}

// Measurer returns the text measurer used for bounds.
func (c *Collection) Measurer() TextMeasurer { return c.measurer }

func (c *Collection) Len() int { return len(c.shapes) }

// All returns a copy of the shape list in paint order.
func (c *Collection) All() []Shape {
	out := make([]Shape, len(c.shapes))
	copy(out, c.shapes)
	return out
}

func (c *Collection) Get(id string) (Shape, bool) {
	i, ok := c.index[id]
	if !ok || i >= len(c.shapes) {
		return Shape{}, false
	}
	return c.shapes[i], true
}

// IndexOf returns the paint position of id or -1.
func (c *Collection) IndexOf(id string) int {
	if i, ok := c.index[id]; ok && i < len(c.shapes) {
		return i
	}
	return -1
}

// Add validates s and appends it on top. A shape whose id already exists
// replaces the stored one in place.
func (c *Collection) Add(s Shape) (Shape, error) {
	v, err := Validate(s, c.measurer)
	if err != nil {
		return Shape{}, fmt.Errorf("add shape: %w", err)
	}
	if c.index == nil {
		c.reindex()
	}
	if i, ok := c.index[v.ID]; ok {
		c.shapes[i] = v
		return v, nil
	}
	c.index[v.ID] = len(c.shapes)
	c.shapes = append(c.shapes, v)
	return v, nil
}

// InsertAt validates s and inserts it at paint position i, clamped to
// [0, Len()]. An existing shape with the same id is removed first.
func (c *Collection) InsertAt(i int, s Shape) (Shape, error) {
	v, err := Validate(s, c.measurer)
	if err != nil {
		return Shape{}, fmt.Errorf("insert shape: %w", err)
	}
	if j, ok := c.index[v.ID]; ok {
		c.shapes = append(c.shapes[:j:j], c.shapes[j+1:]...)
	}
	if i < 0 {
		i = 0
	}
	if i > len(c.shapes) {
		i = len(c.shapes)
	}
	next := make([]Shape, 0, len(c.shapes)+1)
	next = append(next, c.shapes[:i]...)
	next = append(next, v)
	next = append(next, c.shapes[i:]...)
	c.shapes = next
	c.reindex()
	return v, nil
}

// Remove deletes id and returns the removed shape and its former position.
func (c *Collection) Remove(id string) (Shape, int, bool) {
	i, ok := c.index[id]
	if !ok {
		return Shape{}, -1, false
	}
	s := c.shapes[i]
	c.shapes = append(c.shapes[:i:i], c.shapes[i+1:]...)
	c.reindex()
	return s, i, true
}

// Replace swaps the stored shape with the same id for s, keeping its position.
func (c *Collection) Replace(s Shape) (Shape, error) {
	i, ok := c.index[s.ID]
	if !ok {
		return Shape{}, fmt.Errorf("replace %s: %w", s.ID, ErrNotFound)
	}
	v, err := Validate(s, c.measurer)
	if err != nil {
		return Shape{}, fmt.Errorf("replace %s: %w", s.ID, err)
	}
	c.shapes[i] = v
	return v, nil
}

// UpdatePoints sets the points of id and recomputes its bounds.
func (c *Collection) UpdatePoints(id string, pts []geom.Point) (Shape, error) {
	s, ok := c.Get(id)
	if !ok {
		return Shape{}, fmt.Errorf("update points %s: %w", id, ErrNotFound)
	}
	s.Points = append([]geom.Point(nil), pts...)
	return c.Replace(s)
}

// Clear removes every shape and returns them in paint order.
func (c *Collection) Clear() []Shape {
	out := c.shapes
	c.shapes = nil
	c.index = make(map[string]int)
	return out
}

// Reset replaces the contents with shapes, dropping invalid ones and
// duplicate ids (first occurrence wins). It returns the number dropped.
func (c *Collection) Reset(shapes []Shape) int {
	c.shapes = nil
	c.index = make(map[string]int)
	dropped := 0
	for _, s := range shapes {
		v, err := Validate(s, c.measurer)
		if err != nil {
			dropped++
			applog.WithComponent("shape").Debug("dropping invalid shape", slog.String("id", s.ID), slog.Any("err", err))
			continue
		}
		if _, dup := c.index[v.ID]; dup {
			dropped++
			continue
		}
		c.index[v.ID] = len(c.shapes)
		c.shapes = append(c.shapes, v)
	}
	return dropped
}

// Sanitize re-validates the stored shapes and rebuilds the id index. It is
// run when the host regains focus or visibility. A store whose index no
// longer matches its slice is treated as corrupted and reset to empty.
func (c *Collection) Sanitize() int {
	if !c.consistent() {
		n := len(c.shapes)
		applog.WithComponent("shape").Warn("shape store corrupted, resetting", slog.Int("shapes", n))
		c.shapes = nil
		c.index = make(map[string]int)
		return n
	}
	dropped := c.Reset(c.shapes)
	if dropped > 0 {
		applog.WithComponent("shape").Warn("cleaned up invalid shapes", slog.Int("removed", dropped), slog.Int("remaining", len(c.shapes)))
	}
	return dropped
}

func (c *Collection) consistent() bool {
	if c.index == nil || len(c.index) != len(c.shapes) {
		return false
	}
	for i, s := range c.shapes {
		if j, ok := c.index[s.ID]; !ok || j != i {
			return false
		}
	}
	return true
}

// InBounds returns the shapes having at least one point inside b.
func (c *Collection) InBounds(b geom.Bounds) []Shape {
	var out []Shape
	for _, s := range c.shapes {
		for _, p := range s.Points {
			if b.Contains(p) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

func (c *Collection) reindex() {
	c.index = make(map[string]int, len(c.shapes))
	for i, s := range c.shapes {
		c.index[s.ID] = i
	}
}
