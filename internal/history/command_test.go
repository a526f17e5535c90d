/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package history

import (
	"errors"
	"testing"

	"sketchboard/internal/geom"
	"sketchboard/internal/shape"
)

func order(col *shape.Collection) string {
	out := ""
	for _, s := range col.All() {
		out += s.ID
	}
	return out
}

func TestAddApplyRevert(t *testing.T) {
	col := shape.NewCollection(nil)
	c := AddCommand(ln("a"))
	if err := Apply(col, c); err != nil || col.Len() != 1 {
		t.Fatalf("apply: %v", err)
	}
	if err := Revert(col, c); err != nil || col.Len() != 0 {
		t.Fatalf("revert: %v", err)
	}
}

func TestDeleteBatchRestoresPositions(t *testing.T) {
	col := shape.NewCollection(nil)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		col.Add(ln(id))
	}
	// capture out of order on purpose
	d, _ := col.Get("d")
	b, _ := col.Get("b")
	c := DeleteBatchCommand([]shape.Shape{d, b}, []int{3, 1})
	if c.Indices[0] != 1 || c.Shapes[0].ID != "b" || c.Description != "Delete 2 shapes" {
		t.Fatalf("not sorted by index: %v", c.Indices)
	}
	if err := Apply(col, c); err != nil || order(col) != "ace" {
		t.Fatalf("apply: %v order=%s", err, order(col))
	}
	if err := Revert(col, c); err != nil || order(col) != "abcde" {
		t.Fatalf("revert: %v order=%s", err, order(col))
	}
}

func TestMoveReplaysCapturedPoints(t *testing.T) {
	col := shape.NewCollection(nil)
	col.Add(ln("a"))
	s, _ := col.Get("a")
	from := s.Points
	to := []geom.Point{{X: 5, Y: 5}, {X: 15, Y: 15}}
	c := MoveCommand(s, from, to)
	if err := Apply(col, c); err != nil {
		t.Fatalf("apply: %v", err)
	}
	got, _ := col.Get("a")
	if got.Bounds.MinX != 5 {
		t.Fatalf("bounds not recomputed: %+v", got.Bounds)
	}
	// unrelated change in between must not affect the replay
	col.Add(ln("z"))
	if err := Revert(col, c); err != nil {
		t.Fatalf("revert: %v", err)
	}
	got, _ = col.Get("a")
	if !shape.PointsEqual(got.Points, from) {
		t.Fatalf("points %v want %v", got.Points, from)
	}
	col.Remove("a")
	if err := Apply(col, c); !errors.Is(err, shape.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestModifyUsesSnapshots(t *testing.T) {
	col := shape.NewCollection(nil)
	col.Add(ln("a"))
	before, _ := col.Get("a")
	after := shape.Clone(before)
	after.StrokeWidth = 7
	c := ModifyCommand(before, after)
	after.StrokeWidth = 99 // caller mutation after capture
	if err := Apply(col, c); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got, _ := col.Get("a"); got.StrokeWidth != 7 {
		t.Fatalf("stroke width %v", got.StrokeWidth)
	}
	if err := Revert(col, c); err != nil {
		t.Fatalf("revert: %v", err)
	}
	if got, _ := col.Get("a"); got.StrokeWidth != 2 {
		t.Fatalf("stroke width after revert %v", got.StrokeWidth)
	}
	if err := Apply(col, Command{}); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
}
