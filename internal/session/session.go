/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package session binds an engine to a scene file: open, save, export and
// store round trips with dirty tracking.
package session

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"sketchboard/internal/engine"
	"sketchboard/internal/export"
	"sketchboard/internal/geom"
	applog "sketchboard/internal/log"
	"sketchboard/internal/shape"
	"sketchboard/internal/storage"
	"sketchboard/internal/telemetry"
)

// ErrNoPath is returned by Save before the scene has a file.
var ErrNoPath = errors.New("scene has no file yet")

// Options configure a Session.
type Options struct {
	// Export is the base for Export; an empty Background follows the scene.
	Export export.Options
}

// Session is safe for concurrent use.
type Session struct {
	mu    sync.Mutex
	eng   *engine.Engine
	path  string
	name  string
	saved uint64
	opt   Options
	log   *slog.Logger
}

// New wraps eng with an unsaved, untitled scene.
func New(eng *engine.Engine, opt Options) *Session {
	return &Session{eng: eng, opt: opt, saved: eng.Revision(), log: applog.WithComponent("session")}
}

func (s *Session) Engine() *engine.Engine { return s.eng }

// Path is the scene file, "" while untitled.
func (s *Session) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Title is the scene name or file name for window titles.
func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.name
	if t == "" && s.path != "" {
		t = strings.TrimSuffix(filepath.Base(s.path), filepath.Ext(s.path))
	}
	if t == "" {
		t = "Untitled"
	}
	return t
}

// logCtx tags ctx with the scene title for the log enricher.
func (s *Session) logCtx(ctx context.Context) context.Context {
	return applog.ContextWithScene(ctx, s.Title())
}

// Dirty reports edits since the last open or save.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.Revision() != s.saved
}

// SnapshotOf converts a scene document to engine state.
func SnapshotOf(doc storage.SceneDoc) engine.Snapshot {
	return engine.Snapshot{
		Shapes: doc.Shapes,
		Zoom:   doc.Camera.Zoom,
		Pan:    geom.Point{X: doc.Camera.PanX, Y: doc.Camera.PanY},
	}
}

// DocOf converts engine state to a scene document.
func DocOf(snap engine.Snapshot, name string, bg color.Color) storage.SceneDoc {
	doc := storage.NewSceneDoc(name)
	doc.Shapes = snap.Shapes
	doc.Camera = storage.Camera{Zoom: snap.Zoom, PanX: snap.Pan.X, PanY: snap.Pan.Y}
	if bg != nil {
		doc.Background = shape.HexColor(color.NRGBAModel.Convert(bg).(color.NRGBA))
	}
	return doc
}

// Doc is the current scene as a document.
func (s *Session) Doc() storage.SceneDoc {
	s.mu.Lock()
	name := s.name
	s.mu.Unlock()
	return DocOf(s.eng.Snapshot(), name, s.eng.Background())
}

// Handle is a handle on the current scene for crash autosave; nil while untitled.
func (s *Session) Handle() *storage.SceneHandle {
	p := s.Path()
	if p == "" {
		return nil
	}
	return &storage.SceneHandle{Path: p, Doc: s.Doc()}
}

// Load replaces the engine scene with doc and returns the number of shapes
// dropped by validation.
func (s *Session) Load(doc storage.SceneDoc) int {
	if doc.Background != "" {
		if c, err := shape.ParseColor(doc.Background); err == nil {
			s.eng.SetBackground(c)
		}
	}
	dropped := s.eng.Load(SnapshotOf(doc))
	s.mu.Lock()
	s.name = doc.Name
	s.saved = s.eng.Revision()
	s.mu.Unlock()
	return dropped
}

// Reset starts a new untitled scene.
func (s *Session) Reset() {
	s.Load(storage.NewSceneDoc(""))
	s.mu.Lock()
	s.path = ""
	s.mu.Unlock()
}

// Open loads the scene file at path, recovering from its newest backup if needed.
func (s *Session) Open(path string) (int, error) {
	h, err := storage.OpenScene(path)
	if err != nil {
		return 0, err
	}
	dropped := s.Load(h.Doc)
	s.mu.Lock()
	s.path = path
	s.mu.Unlock()
	s.log.InfoContext(s.logCtx(context.Background()), "scene opened", slog.String("path", path), slog.Int("shapes", len(h.Doc.Shapes)),
		slog.Int("dropped", dropped), slog.Bool("recovered", h.Recovered))
	return dropped, nil
}

// Save writes the scene to its file.
func (s *Session) Save() error {
	p := s.Path()
	if p == "" {
		return ErrNoPath
	}
	return s.SaveAs(p)
}

// SaveAs writes the scene to path and makes it the scene file.
func (s *Session) SaveAs(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("save path is empty")
	}
	rev := s.eng.Revision()
	doc := s.Doc()
	h := &storage.SceneHandle{Path: path, Doc: doc}
	if err := storage.SaveSceneAs(h, path); err != nil {
		return err
	}
	s.mu.Lock()
	s.path = path
	s.saved = rev
	s.mu.Unlock()
	telemetry.SceneSaved(len(doc.Shapes))
	s.log.InfoContext(s.logCtx(context.Background()), "scene saved", slog.String("path", path), slog.Int("shapes", len(doc.Shapes)))
	return nil
}

// ExportOptions are the export settings with the scene background filled in.
func (s *Session) ExportOptions() export.Options {
	o := s.opt.Export
	if o.Background == "" {
		o.Background = shape.HexColor(color.NRGBAModel.Convert(s.eng.Background()).(color.NRGBA))
	}
	if o.Title == "" {
		o.Title = s.Title()
	}
	return o
}

// Export writes the scene to path; the format follows the extension.
func (s *Session) Export(path string) error {
	if err := export.WriteFile(path, s.eng.Snapshot().Shapes, s.ExportOptions()); err != nil {
		return err
	}
	s.log.InfoContext(s.logCtx(context.Background()), "scene exported", slog.String("path", path))
	return nil
}

// Batch runs a preset export of the scene.
func (s *Session) Batch(preset, outDir string) ([]string, error) {
	name := "scene"
	if p := s.Path(); p != "" {
		name = strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
	}
	files, err := export.Batch(s.eng.Snapshot().Shapes, export.BatchOptions{
		Preset: export.PresetName(preset),
		OutDir: outDir,
		Name:   name,
		Base:   s.ExportOptions(),
	})
	if err != nil {
		return files, err
	}
	s.log.InfoContext(s.logCtx(context.Background()), "scene batch exported",
		slog.String("preset", preset), slog.Int("files", len(files)))
	return files, nil
}

// Put stores the scene as the next revision of name.
func (s *Session) Put(ctx context.Context, st *storage.Store, name string) (storage.Revision, error) {
	if st == nil {
		return storage.Revision{}, errors.New("no scene store")
	}
	r, err := st.Put(ctx, name, s.Doc())
	if err != nil {
		return r, err
	}
	s.log.InfoContext(s.logCtx(ctx), "scene stored", slog.String("name", name), slog.Int("rev", r.Rev))
	return r, nil
}

// Get loads revision rev of name from the store; rev <= 0 loads the latest.
func (s *Session) Get(ctx context.Context, st *storage.Store, name string, rev int) (storage.Revision, error) {
	if st == nil {
		return storage.Revision{}, errors.New("no scene store")
	}
	var (
		doc storage.SceneDoc
		r   storage.Revision
		err error
	)
	if rev > 0 {
		doc, r, err = st.Get(ctx, name, rev)
	} else {
		doc, r, err = st.Latest(ctx, name)
	}
	if err != nil {
		return r, fmt.Errorf("load %s from store: %w", name, err)
	}
	dropped := s.Load(doc)
	s.log.InfoContext(s.logCtx(ctx), "scene loaded from store", slog.String("name", name),
		slog.Int("rev", r.Rev), slog.Int("dropped", dropped))
	return r, nil
}
