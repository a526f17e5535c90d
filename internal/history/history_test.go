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
	"fmt"
	"sync"
	"testing"

	"sketchboard/internal/geom"
	"sketchboard/internal/shape"
)

func ln(id string) shape.Shape {
	return shape.Shape{ID: id, Kind: shape.Line, Points: []geom.Point{{X: 0, Y: 0}, {X: 10, Y: 10}}, Color: "#000", StrokeWidth: 2}
}

func TestUndoRedoBasic(t *testing.T) {
	h := New(Config{})
	h.Execute(AddCommand(ln("a")))
	h.Execute(AddCommand(ln("b")))
	if !h.CanUndo() || h.CanRedo() {
		t.Fatalf("unexpected can-undo/redo state")
	}
	c, ok := h.Undo()
	if !ok || c.Shape.ID != "b" {
		t.Fatalf("undo expected b, got %v %v", c.Shape.ID, ok)
	}
	c, ok = h.Redo()
	if !ok || c.Shape.ID != "b" {
		t.Fatalf("redo expected b, got %v %v", c.Shape.ID, ok)
	}
	if _, ok := h.Redo(); ok {
		t.Fatalf("redo past head")
	}
}

func TestExecuteTruncatesFuture(t *testing.T) {
	h := New(Config{})
	h.Execute(AddCommand(ln("a")))
	h.Execute(AddCommand(ln("b")))
	h.Undo()
	h.Execute(AddCommand(ln("c")))
	if h.CanRedo() || h.Len() != 2 {
		t.Fatalf("future not truncated: len=%d canRedo=%v", h.Len(), h.CanRedo())
	}
	cmds := h.Commands()
	if cmds[0].Shape.ID != "a" || cmds[1].Shape.ID != "c" {
		t.Fatalf("commands %v %v", cmds[0].Shape.ID, cmds[1].Shape.ID)
	}
}

func TestDepthCapEvictsOldest(t *testing.T) {
	h := New(Config{MaxCommands: 100})
	for i := 0; i < 101; i++ {
		h.Execute(AddCommand(ln(fmt.Sprintf("s%d", i))))
	}
	if h.Len() != 100 {
		t.Fatalf("len = %d", h.Len())
	}
	if h.Commands()[0].Shape.ID != "s1" {
		t.Fatalf("oldest not evicted: %s", h.Commands()[0].Shape.ID)
	}
	if st := h.Stats(); st.Evicted != 1 || st.Undoable != 100 {
		t.Fatalf("stats %+v", st)
	}
}

func TestByteCapKeepsNewest(t *testing.T) {
	h := New(Config{MaxBytes: 100})
	img := func(id string) shape.Shape {
		s := ln(id)
		s.Kind = shape.Image
		s.ImageData = make([]byte, 80)
		return s
	}
	h.Execute(AddCommand(img("a")))
	h.Execute(AddCommand(img("b")))
	if h.Len() != 1 || h.Commands()[0].Shape.ID != "b" {
		t.Fatalf("byte cap should keep only the newest, len=%d", h.Len())
	}
	h.Clear()
	if st := h.Stats(); st.TotalBytes != 0 || st.Undoable != 0 {
		t.Fatalf("clear left %+v", st)
	}
}

func TestConcurrentExecute(t *testing.T) {
	h := New(Config{MaxCommands: 1000})
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				h.Execute(AddCommand(ln(fmt.Sprintf("g%d-%d", g, i))))
				h.CanUndo()
			}
		}(g)
	}
	wg.Wait()
	if h.Len() != 400 {
		t.Fatalf("len = %d", h.Len())
	}
}
