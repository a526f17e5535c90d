/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package history records user actions as plain-data commands and replays
// them against a shape collection. Commands carry captured snapshots only;
// undo and redo never re-derive state from the current scene.
package history

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"sketchboard/internal/geom"
	"sketchboard/internal/shape"
)

// Kind tags a command variant.
type Kind string

const (
	KindAdd         Kind = "add"
	KindDeleteBatch Kind = "deleteBatch"
	KindMove        Kind = "move"
	KindModify      Kind = "modify"
)

// ErrUnknownCommand is returned by Apply and Revert for an unset or foreign Kind.
var ErrUnknownCommand = errors.New("unknown command kind")

// Command is one undoable action. Only the fields of its Kind are set.
type Command struct {
	Kind        Kind      `json:"kind"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`

	// add
	Shape shape.Shape `json:"shape,omitempty"`

	// deleteBatch: removed shapes with their paint positions, ascending
	Shapes  []shape.Shape `json:"shapes,omitempty"`
	Indices []int         `json:"indices,omitempty"`

	// move; sizes are set for images only
	ShapeID    string       `json:"shapeId,omitempty"`
	FromPoints []geom.Point `json:"fromPoints,omitempty"`
	ToPoints   []geom.Point `json:"toPoints,omitempty"`
	FromSize   geom.Size    `json:"fromSize,omitempty"`
	ToSize     geom.Size    `json:"toSize,omitempty"`

	// modify
	Before shape.Shape `json:"before,omitempty"`
	After  shape.Shape `json:"after,omitempty"`
}

var now = time.Now

// AddCommand records s being added on top.
func AddCommand(s shape.Shape) Command {
	return Command{Kind: KindAdd, Description: "Add " + string(s.Kind), Timestamp: now(), Shape: shape.Clone(s)}
}

// DeleteBatchCommand records the removal of shapes from their paint
// positions. Pairs are stored sorted by index.
func DeleteBatchCommand(shapes []shape.Shape, indices []int) Command {
	type pair struct {
		s shape.Shape
		i int
	}
	n := len(shapes)
	if len(indices) < n {
		n = len(indices)
	}
	ps := make([]pair, n)
	for k := 0; k < n; k++ {
		ps[k] = pair{shape.Clone(shapes[k]), indices[k]}
	}
	sort.SliceStable(ps, func(a, b int) bool { return ps[a].i < ps[b].i })
	c := Command{Kind: KindDeleteBatch, Timestamp: now(), Shapes: make([]shape.Shape, n), Indices: make([]int, n)}
	for k, p := range ps {
		c.Shapes[k], c.Indices[k] = p.s, p.i
	}
	if n == 1 {
		c.Description = "Delete 1 shape"
	} else {
		c.Description = fmt.Sprintf("Delete %d shapes", n)
	}
	return c
}

// MoveCommand records a translation of one shape's points. Image sizes may be
// passed as zero for other kinds.
func MoveCommand(s shape.Shape, from, to []geom.Point) Command {
	size := geom.Size{W: s.ImageWidth, H: s.ImageHeight}
	return Command{
		Kind:        KindMove,
		Description: "Move " + string(s.Kind),
		Timestamp:   now(),
		ShapeID:     s.ID,
		FromPoints:  append([]geom.Point(nil), from...),
		ToPoints:    append([]geom.Point(nil), to...),
		FromSize:    size,
		ToSize:      size,
	}
}

// ModifyCommand records a full before/after snapshot, used for resize and
// text edits.
func ModifyCommand(before, after shape.Shape) Command {
	return Command{
		Kind:        KindModify,
		Description: "Modify " + string(after.Kind),
		Timestamp:   now(),
		ShapeID:     after.ID,
		Before:      shape.Clone(before),
		After:       shape.Clone(after),
	}
}

// Apply performs c forward on col.
func Apply(col *shape.Collection, c Command) error {
	switch c.Kind {
	case KindAdd:
		_, err := col.Add(c.Shape)
		return err
	case KindDeleteBatch:
		for _, s := range c.Shapes {
			col.Remove(s.ID)
		}
		return nil
	case KindMove:
		return setPoints(col, c.ShapeID, c.ToPoints, c.ToSize)
	case KindModify:
		_, err := col.Replace(c.After)
		return err
	}
	return fmt.Errorf("%w: %q", ErrUnknownCommand, c.Kind)
}

// Revert undoes c on col.
func Revert(col *shape.Collection, c Command) error {
	switch c.Kind {
	case KindAdd:
		col.Remove(c.Shape.ID)
		return nil
	case KindDeleteBatch:
		// ascending order restores every original position
		var errs []error
		for k, s := range c.Shapes {
			if _, err := col.InsertAt(c.Indices[k], s); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	case KindMove:
		return setPoints(col, c.ShapeID, c.FromPoints, c.FromSize)
	case KindModify:
		_, err := col.Replace(c.Before)
		return err
	}
	return fmt.Errorf("%w: %q", ErrUnknownCommand, c.Kind)
}

func setPoints(col *shape.Collection, id string, pts []geom.Point, size geom.Size) error {
	s, ok := col.Get(id)
	if !ok {
		return fmt.Errorf("move %s: %w", id, shape.ErrNotFound)
	}
	s.Points = append([]geom.Point(nil), pts...)
	if s.Kind == shape.Image && size.W > 0 && size.H > 0 {
		s.ImageWidth, s.ImageHeight = size.W, size.H
	}
	_, err := col.Replace(s)
	return err
}

// size estimates the memory held by c, dominated by image bytes.
func (c Command) size() int {
	n := shapeSize(c.Shape) + shapeSize(c.Before) + shapeSize(c.After)
	for _, s := range c.Shapes {
		n += shapeSize(s)
	}
	n += 16 * (len(c.FromPoints) + len(c.ToPoints))
	return n
}

func shapeSize(s shape.Shape) int {
	return len(s.ImageData) + 16*len(s.Points) + len(s.Text)
}
