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
	"math"
	"testing"

	"sketchboard/internal/geom"
)

func line(id string, x0, y0, x1, y1 float64) Shape {
	return Shape{ID: id, Kind: Line, Points: []geom.Point{{X: x0, Y: y0}, {X: x1, Y: y1}}, Color: "#000", StrokeWidth: 2}
}

func ids(shapes []Shape) []string {
	out := make([]string, len(shapes))
	for i, s := range shapes {
		out[i] = s.ID
	}
	return out
}

func TestCollectionAddOrderAndDuplicate(t *testing.T) {
	c := NewCollection(nil)
	for _, id := range []string{"a", "b", "c"} {
		if _, err := c.Add(line(id, 0, 0, 1, 1)); err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}
	// duplicate id replaces in place
	if _, err := c.Add(line("b", 5, 5, 6, 6)); err != nil {
		t.Fatalf("add dup: %v", err)
	}
	if got := ids(c.All()); len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("order %v", got)
	}
	b, _ := c.Get("b")
	if b.Bounds.MinX != 5 {
		t.Fatalf("bounds not recomputed: %+v", b.Bounds)
	}
	if _, err := c.Add(line("d", math.NaN(), 0, math.Inf(1), 0)); !errors.Is(err, ErrNoPoints) {
		t.Fatalf("expected ErrNoPoints, got %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("invalid shape stored")
	}
}

func TestCollectionRemoveInsertAt(t *testing.T) {
	c := NewCollection(nil)
	for _, id := range []string{"a", "b", "c", "d"} {
		c.Add(line(id, 0, 0, 1, 1))
	}
	s, idx, ok := c.Remove("b")
	if !ok || idx != 1 || s.ID != "b" {
		t.Fatalf("remove b: %v %d %v", s.ID, idx, ok)
	}
	if c.IndexOf("c") != 1 {
		t.Fatalf("index not rebuilt")
	}
	if _, err := c.InsertAt(idx, s); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if got := ids(c.All()); got[1] != "b" || got[2] != "c" {
		t.Fatalf("order after reinsertion %v", got)
	}
	c.InsertAt(99, line("e", 0, 0, 1, 1))
	if c.IndexOf("e") != 4 {
		t.Fatalf("insert past end should append")
	}
	if _, _, ok := c.Remove("zzz"); ok {
		t.Fatalf("removing unknown id reported ok")
	}
}

func TestCollectionUpdatePointsRecomputesBounds(t *testing.T) {
	c := NewCollection(nil)
	c.Add(line("a", 0, 0, 10, 10))
	pts := []geom.Point{{X: -5, Y: 0}, {X: 20, Y: 30}}
	s, err := c.UpdatePoints("a", pts)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if s.Bounds != (geom.Bounds{MinX: -5, MinY: 0, MaxX: 20, MaxY: 30}) {
		t.Fatalf("bounds %+v", s.Bounds)
	}
	pts[0].X = 1000
	got, _ := c.Get("a")
	if got.Points[0].X != -5 {
		t.Fatalf("collection aliases caller slice")
	}
	if _, err := c.UpdatePoints("missing", pts); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCollectionResetAndSanitize(t *testing.T) {
	c := NewCollection(nil)
	dropped := c.Reset([]Shape{
		line("a", 0, 0, 1, 1),
		line("a", 2, 2, 3, 3),
		{ID: "bad", Kind: Line, Color: "#000", StrokeWidth: 1},
		line("b", 0, 0, 1, 1),
	})
	if dropped != 2 || c.Len() != 2 {
		t.Fatalf("dropped=%d len=%d", dropped, c.Len())
	}
	if n := c.Sanitize(); n != 0 {
		t.Fatalf("clean store sanitized %d", n)
	}
	// simulate a corrupted store
	c.index = nil
	if n := c.Sanitize(); n != 2 || c.Len() != 0 {
		t.Fatalf("corrupted store not reset: n=%d len=%d", n, c.Len())
	}
	if _, err := c.Add(line("z", 0, 0, 1, 1)); err != nil || c.Len() != 1 {
		t.Fatalf("collection unusable after reset: %v", err)
	}
}

func TestCollectionInBoundsAndClear(t *testing.T) {
	c := NewCollection(nil)
	c.Add(line("in", 5, 5, 50, 50))
	c.Add(line("out", 200, 200, 300, 300))
	got := c.InBounds(geom.Bounds{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10})
	if len(got) != 1 || got[0].ID != "in" {
		t.Fatalf("in bounds %v", ids(got))
	}
	removed := c.Clear()
	if len(removed) != 2 || c.Len() != 0 || c.IndexOf("in") != -1 {
		t.Fatalf("clear left state")
	}
}
