/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	applog "sketchboard/internal/log"
	"sketchboard/internal/shape"
)

const (
	BackupsDirName = "backups"
	// SceneVersion is the document format written by SaveScene.
	SceneVersion = 1
	// CrashSuffix marks scene snapshots written while recovering from a panic.
	CrashSuffix = ".crash.json"
)

// Camera is the persisted view state.
type Camera struct {
	Zoom float64 `json:"zoom"`
	PanX float64 `json:"panX"`
	PanY float64 `json:"panY"`
}

// SceneDoc is the on-disk scene document.
type SceneDoc struct {
	Version    int           `json:"version"`
	Name       string        `json:"name,omitempty"`
	Background string        `json:"background,omitempty"`
	Camera     Camera        `json:"camera"`
	Shapes     []shape.Shape `json:"shapes"`
}

// NewSceneDoc returns an empty document at 100% zoom.
func NewSceneDoc(name string) SceneDoc {
	return SceneDoc{Version: SceneVersion, Name: name, Camera: Camera{Zoom: 100}, Shapes: []shape.Shape{}}
}

// SceneHandle ties a document to the file it was loaded from or saved to.
// Recovered is set when the document came from a backup.
type SceneHandle struct {
	Path      string
	Doc       SceneDoc
	Recovered bool
}

// Dir is the folder holding the scene file and its backups.
func (h *SceneHandle) Dir() string { return filepath.Dir(h.Path) }

// CreateScene writes doc to path, creating parent folders, and returns its handle.
func CreateScene(path string, doc SceneDoc) (*SceneHandle, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("scene path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create scene dir: %w", err)
	}
	h := &SceneHandle{Path: path, Doc: doc}
	if err := SaveScene(h); err != nil {
		return nil, err
	}
	return h, nil
}

// OpenScene loads the scene at path. If the file cannot be read or parsed
// the newest backup is used instead.
func OpenScene(path string) (*SceneHandle, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "open").With(slog.String("path", path))
	b, err := os.ReadFile(path)
	if err != nil {
		doc, berr := openFromLatestBackup(path)
		if berr != nil {
			return nil, fmt.Errorf("open scene: %w; backup attempt: %v", err, berr)
		}
		l.Warn("scene unreadable, recovered from backup", slog.Any("err", err))
		return &SceneHandle{Path: path, Doc: *doc, Recovered: true}, nil
	}
	doc, perr := ParseScene(b)
	if perr != nil {
		bdoc, berr := openFromLatestBackup(path)
		if berr != nil {
			return nil, fmt.Errorf("parse scene: %w; backup attempt: %v", perr, berr)
		}
		l.Warn("scene corrupt, recovered from backup", slog.Any("err", perr))
		return &SceneHandle{Path: path, Doc: *bdoc, Recovered: true}, nil
	}
	return &SceneHandle{Path: path, Doc: doc}, nil
}

// ParseScene decodes a scene document. A shapes field that does not decode
// is reset to an empty list and logged rather than failing the whole
// document; shape-level validation is left to the engine.
func ParseScene(b []byte) (SceneDoc, error) {
	var raw struct {
		Version    int             `json:"version"`
		Name       string          `json:"name"`
		Background string          `json:"background"`
		Camera     *Camera         `json:"camera"`
		Shapes     json.RawMessage `json:"shapes"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return SceneDoc{}, err
	}
	doc := SceneDoc{Version: raw.Version, Name: raw.Name, Background: raw.Background, Camera: Camera{Zoom: 100}}
	if raw.Camera != nil {
		doc.Camera = *raw.Camera
	}
	if doc.Version == 0 {
		doc.Version = SceneVersion
	}
	if len(raw.Shapes) > 0 && string(raw.Shapes) != "null" {
		if err := json.Unmarshal(raw.Shapes, &doc.Shapes); err != nil {
			applog.WithComponent("storage").Warn("shapes field corrupt, starting empty", slog.Any("err", err))
			doc.Shapes = nil
		}
	}
	if doc.Shapes == nil {
		doc.Shapes = []shape.Shape{}
	}
	return doc, nil
}

// MarshalScene renders doc in its human-readable on-disk form.
func MarshalScene(doc SceneDoc) ([]byte, error) {
	if doc.Shapes == nil {
		doc.Shapes = []shape.Shape{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal scene: %w", err)
	}
	return append(data, '\n'), nil
}

// SaveScene writes h.Doc to h.Path with transactional semantics and a
// timestamped backup of the previous file (if present).
func SaveScene(h *SceneHandle) error {
	if h == nil {
		return errors.New("nil SceneHandle")
	}
	if h.Path == "" {
		return errors.New("invalid SceneHandle: missing path")
	}
	h.Doc.Version = SceneVersion
	data, err := MarshalScene(h.Doc)
	if err != nil {
		return err
	}

	bdir := filepath.Join(h.Dir(), BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(h.Path); statErr == nil {
		stamp := time.Now().Format("20060102-150405.000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(h.Path), stamp))
		if cerr := copyFile(h.Path, bpath); cerr != nil {
			return fmt.Errorf("backup current scene: %w", cerr)
		}
	}

	if err := writeAtomic(h.Path, data); err != nil {
		return err
	}
	h.Recovered = false
	applog.WithComponent("storage").Debug("scene saved", slog.String("path", h.Path), slog.Int("shapes", len(h.Doc.Shapes)))
	return nil
}

// SaveSceneAs writes the document to a new path and updates the handle.
func SaveSceneAs(h *SceneHandle, path string) error {
	if h == nil {
		return errors.New("nil SceneHandle")
	}
	if path == "" {
		return errors.New("new path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create scene dir: %w", err)
	}
	h.Path = path
	return SaveScene(h)
}

// AutosaveCrashSnapshot writes the document next to the scene as
// <name>.crash.json without touching the scene file or its backups.
func AutosaveCrashSnapshot(h *SceneHandle) (string, error) {
	if h == nil || h.Path == "" {
		return "", errors.New("no scene to autosave")
	}
	data, err := MarshalScene(h.Doc)
	if err != nil {
		return "", err
	}
	base := strings.TrimSuffix(filepath.Base(h.Path), filepath.Ext(h.Path))
	path := filepath.Join(h.Dir(), base+CrashSuffix)
	if err := writeAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// writeAtomic writes to a temp file in the same directory, then renames over target.
func writeAtomic(target string, data []byte) error {
	dir := filepath.Dir(target)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(target), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp scene: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(target); err == nil {
		_ = os.Remove(target)
	}
	if rerr := os.Rename(temp, target); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace scene: %w", rerr)
	}
	return nil
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

// Backups lists the backups of the scene at path, oldest first.
func Backups(path string) ([]string, error) {
	bdir := filepath.Join(filepath.Dir(path), BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	prefix := filepath.Base(path) + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out, nil
}

// openFromLatestBackup tries to open the latest timestamped backup.
func openFromLatestBackup(path string) (*SceneDoc, error) {
	candidates, err := Backups(path)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	latest := candidates[len(candidates)-1]
	b, err := os.ReadFile(latest)
	if err != nil {
		return nil, fmt.Errorf("read latest backup: %w", err)
	}
	doc, err := ParseScene(b)
	if err != nil {
		return nil, fmt.Errorf("parse latest backup: %w", err)
	}
	return &doc, nil
}
