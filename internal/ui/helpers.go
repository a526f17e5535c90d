/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"sketchboard/internal/engine"
	"sketchboard/internal/export"
)

// Options configure the desktop UI.
type Options struct {
	Engine engine.Options
	Export export.Options
}

// Palette is the toolbar color choice.
var Palette = []string{"#1e1e1e", "#e03131", "#2f9e44", "#1971c2", "#f08c00", "#9c36b5"}

// KeyName maps a toolkit key name to the engine's key names. Printable keys
// arrive as runes and are not mapped here.
func KeyName(name string) (string, bool) {
	switch name {
	case "Escape":
		return "Escape", true
	case "Return", "Enter":
		return "Enter", true
	case "Delete":
		return "Delete", true
	case "BackSpace":
		return "Backspace", true
	}
	return "", false
}

// RuneKey maps a typed rune to an engine key name.
func RuneKey(r rune) string { return strings.ToLower(string(r)) }

// ToolLabel is the toolbar caption for t.
func ToolLabel(t engine.Tool) string { return capitalize(string(t)) }

func capitalize(s string) string { return cases.Title(language.English).String(s) }

// WindowTitle marks unsaved scenes with an asterisk.
func WindowTitle(title string, dirty bool) string {
	if dirty {
		title += "*"
	}
	return title + " - Sketchboard"
}

// StatusLine summarizes the engine state for the status bar.
func StatusLine(st engine.State) string {
	parts := []string{
		"Tool: " + ToolLabel(st.Tool),
		fmt.Sprintf("Zoom: %.0f%%", st.Zoom),
		fmt.Sprintf("Shapes: %d", len(st.Shapes)),
	}
	if st.SelectedID != "" {
		parts = append(parts, "1 selected")
	}
	if st.Mode != engine.ModeIdle {
		parts = append(parts, string(st.Mode))
	}
	return strings.Join(parts, " | ")
}

// stringPrefs is the part of fyne.Preferences the recent list needs.
type stringPrefs interface {
	StringWithFallback(key, fallback string) string
	SetString(key, value string)
}

const recentPrefsKey = "recent.scenes"
const recentMax = 10

func loadRecentScenes(p stringPrefs) []string {
	raw := p.StringWithFallback(recentPrefsKey, "")
	var items []string
	if strings.TrimSpace(raw) != "" {
		var tmp []string
		if err := json.Unmarshal([]byte(raw), &tmp); err == nil {
			items = tmp
		}
	}
	// drop files that no longer exist
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := os.Stat(s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func saveRecentScenes(p stringPrefs, items []string) {
	if len(items) > recentMax {
		items = items[:recentMax]
	}
	b, _ := json.Marshal(items)
	p.SetString(recentPrefsKey, string(b))
}

func addRecentScene(p stringPrefs, path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	abs, _ := filepath.Abs(path)
	rec := loadRecentScenes(p)
	out := make([]string, 0, 1+len(rec))
	out = append(out, abs)
	for _, s := range rec {
		// case-insensitive for Windows paths
		if strings.EqualFold(s, abs) {
			continue
		}
		out = append(out, s)
	}
	saveRecentScenes(p, out)
}
