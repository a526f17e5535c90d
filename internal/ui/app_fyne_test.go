//go:build fyne

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// These tests drive the board widget through the Fyne test driver. They are
// gated behind the "fyne" build tag so headless CI does not need Fyne:
//
//	go test -tags fyne ./internal/ui
package ui

import (
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"

	"sketchboard/internal/engine"
	"sketchboard/internal/textlayout"
)

func newBoard(t *testing.T) (*Board, *engine.Engine) {
	t.Helper()
	test.NewApp()
	eng := engine.New(engine.Options{Faces: textlayout.BasicProvider{}})
	eng.SetViewport(400, 300, 1)
	b := NewBoard(eng)
	b.Resize(fyne.NewSize(400, 300))
	return b, eng
}

func mouse(x, y float32) *desktop.MouseEvent {
	return &desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(x, y)}, Button: desktop.MouseButtonPrimary}
}

func TestBoardDrawsRectangle(t *testing.T) {
	b, eng := newBoard(t)
	calls := 0
	b.OnChanged = func() { calls++ }
	eng.SetTool(engine.ToolRectangle)
	b.MouseDown(mouse(10, 10))
	b.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(60, 50)}})
	b.MouseUp(mouse(80, 70))
	b.DragEnd()
	st := eng.State()
	if len(st.Shapes) != 1 || st.Shapes[0].Kind != "rectangle" {
		t.Fatalf("shapes %+v", st.Shapes)
	}
	if calls < 3 {
		t.Fatalf("OnChanged called %d times", calls)
	}
	if !st.CanUndo {
		t.Fatalf("draw not undoable")
	}
}

func TestBoardKeysAndWheel(t *testing.T) {
	b, eng := newBoard(t)
	b.TypedRune('e')
	if eng.State().Tool != engine.ToolEraser {
		t.Fatalf("tool %s", eng.State().Tool)
	}
	b.KeyDown(&fyne.KeyEvent{Name: desktop.KeyControlLeft})
	b.Scrolled(&fyne.ScrollEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(200, 150)}, Scrolled: fyne.Delta{DY: 1}})
	if z := eng.State().Zoom; z <= 100 {
		t.Fatalf("ctrl+wheel up did not zoom in: %v", z)
	}
	b.KeyUp(&fyne.KeyEvent{Name: desktop.KeyControlLeft})
	before := eng.State().Pan
	b.Scrolled(&fyne.ScrollEvent{Scrolled: fyne.Delta{DX: 0, DY: -10}})
	if eng.State().Pan == before {
		t.Fatalf("wheel did not pan")
	}
}

func TestBoardGeneratesComposite(t *testing.T) {
	b, _ := newBoard(t)
	img := b.generate(800, 600)
	if img.Bounds().Dx() != 800 || img.Bounds().Dy() != 600 {
		t.Fatalf("composite %v", img.Bounds())
	}
}
