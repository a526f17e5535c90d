/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "sketchboard/internal/log"
	"sketchboard/internal/shape"
	"sketchboard/internal/telemetry"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// Preset bundles the formats and density of a named export.
type Preset struct {
	Name    PresetName
	Formats []string
	DPR     float64
}

// Formats understood by Write and Batch.
var Formats = []string{"png", "svg", "pdf"}

// LookupPreset resolves a preset by name.
func LookupPreset(name string) (Preset, error) {
	switch PresetName(strings.ToLower(strings.TrimSpace(name))) {
	case PresetWeb:
		return Preset{Name: PresetWeb, Formats: []string{"png", "svg"}, DPR: 1}, nil
	case PresetPrint:
		return Preset{Name: PresetPrint, Formats: []string{"pdf", "png"}, DPR: 2}, nil
	}
	return Preset{}, fmt.Errorf("unknown preset: %s", name)
}

// FormatOf returns the export format for a file name by extension.
func FormatOf(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	for _, f := range Formats {
		if f == ext {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format: %q", ext)
}

// WriteFile exports shapes to path in the format implied by its extension.
func WriteFile(path string, shapes []shape.Shape, opt Options) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	start := time.Now()
	if format == "pdf" {
		err = PDF(path, shapes, opt)
	} else {
		err = writeVia(path, func(f *os.File) error {
			if format == "svg" {
				return SVG(f, shapes, opt)
			}
			return PNG(f, shapes, opt)
		})
	}
	if err != nil {
		return fmt.Errorf("%s export: %w", format, err)
	}
	telemetry.Export(format, len(shapes), time.Since(start))
	applog.WithComponent("export").Info("exported",
		slog.String("format", format), slog.String("path", path), slog.Int("shapes", len(shapes)))
	return nil
}

func writeVia(path string, fn func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

// BatchOptions controls batch export across formats.
//
// Path semantics:
//   - OutDir defaults to ./exports/<preset>.
//   - Files are <OutDir>/<format>/<Name>.<format>, which keeps assets grouped by preset and format.
//
//nolint:revive // keep fields explicit for clarity
type BatchOptions struct {
	Preset      PresetName
	Formats     []string // empty means preset defaults
	DPROverride float64  // when > 0 overrides the preset density
	OutDir      string
	Name        string // base file name, "scene" if empty
	Base        Options
}

// Batch runs exports according to the given preset and returns the written files.
func Batch(shapes []shape.Shape, opt BatchOptions) ([]string, error) {
	p, err := LookupPreset(string(opt.Preset))
	if err != nil {
		return nil, err
	}
	formats := opt.Formats
	if len(formats) == 0 {
		formats = p.Formats
	}
	base := opt.OutDir
	if base == "" {
		base = filepath.Join("exports", string(p.Name))
	}
	name := opt.Name
	if name == "" {
		name = "scene"
	}
	eo := opt.Base
	eo.DPR = p.DPR
	if opt.DPROverride > 0 {
		eo.DPR = opt.DPROverride
	}

	var out []string
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		path := filepath.Join(base, f, name+"."+f)
		if _, err := FormatOf(path); err != nil {
			return out, err
		}
		if err := WriteFile(path, shapes, eo); err != nil {
			return out, err
		}
		out = append(out, path)
	}
	return out, nil
}
