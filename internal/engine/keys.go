/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package engine

import "strings"

// KeyEvent is a key press. Key uses browser-style names ("Escape",
// "Delete", "z", "+").
type KeyEvent struct {
	Key   string
	Ctrl  bool
	Meta  bool
	Shift bool
}

// toolKeys maps unmodified letters to tools.
var toolKeys = map[string]Tool{
	"v": ToolSelect,
	"b": ToolSelect,
	"p": ToolPencil,
	"d": ToolPencil,
	"e": ToolEraser,
	"t": ToolText,
	"l": ToolLine,
	"r": ToolRectangle,
	"c": ToolCircle,
	"h": ToolHand,
	"i": ToolImage,
}

// Key handles shortcuts and reports whether the key was consumed.
func (e *Engine) Key(ev KeyEvent) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.mode == ModeEditingText {
		switch ev.Key {
		case "Escape":
			e.endTextLocked()
			return true
		case "Enter":
			if ev.Shift {
				return false
			}
			e.commitTextLocked(e.edit.Value)
			return true
		}
		// everything else belongs to the text input
		return false
	}

	if ev.Key == "Escape" {
		if e.mode != ModeIdle {
			e.cancelGestureLocked()
			return true
		}
		if e.selected != "" {
			e.selected = ""
			e.sched.RequestPreviewRender()
			return true
		}
		return false
	}

	mod := ev.Ctrl || ev.Meta
	k := strings.ToLower(ev.Key)
	if mod {
		switch k {
		case "z":
			if ev.Shift {
				return e.redoLocked()
			}
			return e.undoLocked()
		case "y":
			return e.redoLocked()
		case "+", "=":
			if e.cam.ZoomIn() {
				e.viewChangedLocked()
			}
			return true
		case "-", "_":
			if e.cam.ZoomOut() {
				e.viewChangedLocked()
			}
			return true
		case "0":
			e.cam.ResetZoom()
			e.viewChangedLocked()
			return true
		}
		return false
	}

	switch ev.Key {
	case "Delete", "Backspace":
		return e.deleteSelectedLocked()
	}
	if t, ok := toolKeys[k]; ok && e.mode == ModeIdle {
		e.setToolLocked(t)
		return true
	}
	return false
}
