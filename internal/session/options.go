/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package session

import (
	"fmt"
	"strings"

	"sketchboard/internal/camera"
	"sketchboard/internal/config"
	"sketchboard/internal/engine"
	"sketchboard/internal/export"
	"sketchboard/internal/history"
	"sketchboard/internal/shape"
	"sketchboard/internal/textlayout"
)

// EngineOptions maps the canvas section of the app config to engine options.
// A configured font file replaces the bundled face.
func EngineOptions(c config.CanvasConfig) (engine.Options, error) {
	opt := engine.Options{
		Limits:       camera.DefaultLimits(),
		History:      history.Config{MaxCommands: c.HistoryLimit, MaxBytes: c.HistoryMaxBytes},
		Style:        shape.DefaultStyle(),
		EraserFactor: c.EraserFactor,
	}
	if c.MinZoom > 0 && c.MaxZoom >= c.MinZoom {
		opt.Limits.Min, opt.Limits.Max = c.MinZoom, c.MaxZoom
	}
	if c.ZoomStep > 0 {
		opt.Limits.Step = c.ZoomStep
	}
	if strings.TrimSpace(c.Color) != "" {
		if _, err := shape.ParseColor(c.Color); err != nil {
			return opt, fmt.Errorf("canvas color: %w", err)
		}
		opt.Style.Color = c.Color
	}
	if c.StrokeWidth > 0 {
		opt.Style.StrokeWidth = c.StrokeWidth
	}
	if c.Roughness > 0 {
		opt.Style.Roughness = c.Roughness
	}
	if strings.TrimSpace(c.Background) != "" {
		bg, err := shape.ParseColor(c.Background)
		if err != nil {
			return opt, fmt.Errorf("canvas background: %w", err)
		}
		opt.Background = bg
	}
	if p := strings.TrimSpace(c.FontFile); p != "" {
		lib := textlayout.NewFontLibrary()
		if err := lib.LoadTTF("custom", p); err != nil {
			return opt, fmt.Errorf("canvas font: %w", err)
		}
		opt.Faces = textlayout.NewOTProvider(lib)
	}
	return opt, nil
}

// ExportOptions maps the export section of the app config.
func ExportOptions(c config.ExportConfig) export.Options {
	return export.Options{DPR: c.DPR}
}
