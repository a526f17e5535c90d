/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package engine is the drawing surface: it owns the shape collection,
// camera, history, tool state and the interaction state machine, and turns
// input events into validated mutations and repaint requests.
package engine

import (
	"image/color"
	"log/slog"
	"sync"

	"sketchboard/internal/camera"
	"sketchboard/internal/geom"
	"sketchboard/internal/history"
	"sketchboard/internal/hittest"
	applog "sketchboard/internal/log"
	"sketchboard/internal/raster"
	"sketchboard/internal/render"
	"sketchboard/internal/resize"
	"sketchboard/internal/shape"
	"sketchboard/internal/textlayout"
)

// Tool is the active drawing tool.
type Tool string

const (
	ToolSelect    Tool = "select"
	ToolPencil    Tool = "pencil"
	ToolLine      Tool = "line"
	ToolRectangle Tool = "rectangle"
	ToolCircle    Tool = "circle"
	ToolText      Tool = "text"
	ToolEraser    Tool = "eraser"
	ToolHand      Tool = "hand"
	ToolImage     Tool = "image"
)

// Tools lists every tool in toolbar order.
var Tools = []Tool{ToolSelect, ToolPencil, ToolLine, ToolRectangle, ToolCircle, ToolText, ToolEraser, ToolHand, ToolImage}

func (t Tool) Valid() bool {
	for _, x := range Tools {
		if x == t {
			return true
		}
	}
	return false
}

// shapeKind maps drawing tools to the kind they create.
func (t Tool) shapeKind() (shape.Kind, bool) {
	switch t {
	case ToolPencil:
		return shape.Pencil, true
	case ToolLine:
		return shape.Line, true
	case ToolRectangle:
		return shape.Rectangle, true
	case ToolCircle:
		return shape.Circle, true
	}
	return "", false
}

// Mode is the interaction state. Exactly one is active at a time.
type Mode string

const (
	ModeIdle        Mode = "idle"
	ModeDrawing     Mode = "drawing"
	ModeErasing     Mode = "erasing"
	ModeMoving      Mode = "moving"
	ModeResizing    Mode = "resizing"
	ModePanning     Mode = "panning"
	ModePinching    Mode = "pinching"
	ModeEditingText Mode = "editingText"
)

// Options configure a new Engine. Zero values select defaults.
type Options struct {
	Limits  camera.Limits
	History history.Config
	// Faces resolves fonts for text measurement and drawing; nil uses the
	// bundled Go font.
	Faces textlayout.Provider
	Style shape.Style
	// Background fills the committed layer; white if nil.
	Background color.Color
	// EraserFactor multiplies the tool stroke width into the eraser radius.
	EraserFactor float64
}

// Engine is the single authority over scene and interaction state. All
// methods are safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	col      *shape.Collection
	cam      *camera.Camera
	hist     *history.History
	measurer *textlayout.Measurer
	rast     *raster.Renderer
	sched    *render.Scheduler

	tool       Tool
	style      shape.Style
	background color.Color
	eraserK    float64

	selected string
	mode     Mode
	g        gesture
	edit     *TextEdit
	notice   *Notice
	noticeID uint64
	// set while a touch text edit holds back committed repaints
	deferredCommit bool
	// bumped on every scene change, for dirty tracking
	rev uint64

	log *slog.Logger
}

// gesture holds the transient state of the current pointer interaction.
type gesture struct {
	touch       bool
	start       geom.Point // world
	startScreen geom.Point
	panStart    geom.Point
	cursor      *geom.Point // world, for the eraser ring

	draft *shape.Shape

	erased     map[string]bool
	eraseOrder []string

	orig    shape.Shape
	live    *shape.Shape
	resizer *resize.Session
}

// New builds an engine with an empty scene.
func New(opt Options) *Engine {
	if opt.Faces == nil {
		opt.Faces = textlayout.NewOTProvider(textlayout.NewDefaultLibrary())
	}
	if opt.Style.Color == "" || !(opt.Style.StrokeWidth > 0) {
		def := shape.DefaultStyle()
		if opt.Style.Color == "" {
			opt.Style.Color = def.Color
		}
		if !(opt.Style.StrokeWidth > 0) {
			opt.Style.StrokeWidth = def.StrokeWidth
		}
	}
	if opt.Background == nil {
		opt.Background = color.White
	}
	if !(opt.EraserFactor > 0) {
		opt.EraserFactor = hittest.EraserFactor
	}
	m := textlayout.NewMeasurer(opt.Faces)
	e := &Engine{
		col:        shape.NewCollection(m),
		cam:        camera.New(opt.Limits),
		hist:       history.New(opt.History),
		measurer:   m,
		rast:       raster.New(opt.Faces),
		tool:       ToolPencil,
		style:      opt.Style,
		background: opt.Background,
		eraserK:    opt.EraserFactor,
		mode:       ModeIdle,
		log:        applog.WithComponent("engine"),
	}
	e.sched = render.NewScheduler(render.PainterFunc(e.paint), render.NewSurfaces(1, 1))
	return e
}

// Measurer is the text measurer used for text bounds.
func (e *Engine) Measurer() *textlayout.Measurer { return e.measurer }

// State is a read-only snapshot for UI binding.
type State struct {
	Shapes     []shape.Shape
	SelectedID string
	Drawing    bool
	Mode       Mode
	Tool       Tool
	Style      shape.Style
	Zoom       float64
	Pan        geom.Point
	CanUndo    bool
	CanRedo    bool
	Editing    *TextEdit
	Notice     *Notice
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := State{
		Shapes:     e.col.All(),
		SelectedID: e.selected,
		Drawing:    e.mode == ModeDrawing,
		Mode:       e.mode,
		Tool:       e.tool,
		Style:      e.style,
		Zoom:       e.cam.Zoom(),
		Pan:        e.cam.Pan(),
		CanUndo:    e.hist.CanUndo(),
		CanRedo:    e.hist.CanRedo(),
	}
	if e.edit != nil {
		ed := *e.edit
		st.Editing = &ed
	}
	if e.notice != nil {
		n := *e.notice
		st.Notice = &n
	}
	return st
}

// SetTool switches tools. Any running gesture is cancelled and a pending
// text edit is committed.
func (e *Engine) SetTool(t Tool) bool {
	if !t.Valid() {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setToolLocked(t)
	return true
}

func (e *Engine) setToolLocked(t Tool) {
	e.closeInteractionLocked()
	e.tool = t
	if t != ToolSelect {
		e.selected = ""
	}
	e.g.cursor = nil
	e.sched.RequestPreviewRender()
}

// closeInteractionLocked commits an open text edit and cancels any pointer
// gesture, leaving the engine idle.
func (e *Engine) closeInteractionLocked() {
	if e.mode == ModeEditingText {
		e.commitTextLocked(e.edit.Value)
	}
	e.cancelGestureLocked()
}

// SetStyle sets the style used for new shapes.
func (e *Engine) SetStyle(st shape.Style) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st.Color == "" {
		st.Color = e.style.Color
	}
	if !(st.StrokeWidth > 0) {
		st.StrokeWidth = e.style.StrokeWidth
	}
	if st.Roughness < 0 {
		st.Roughness = 0
	}
	e.style = st
}

// SetViewport updates the CSS viewport and pixel ratio and resizes the
// surfaces to the device size.
func (e *Engine) SetViewport(w, h, dpr float64) {
	e.mu.Lock()
	e.cam.SetViewport(w, h, dpr)
	dw, dh := e.cam.DeviceSize()
	e.mu.Unlock()

	// painters take e.mu, so the surfaces are never resized while holding it
	e.sched.Surfaces().Resize(dw, dh)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.requestCommittedLocked()
	e.sched.RequestPreviewRender()
}

// Select sets the selection to id, or clears it for "" or unknown ids.
func (e *Engine) Select(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.col.Get(id); !ok {
		e.selected = ""
		e.sched.RequestPreviewRender()
		return false
	}
	e.selected = id
	e.sched.RequestPreviewRender()
	return true
}

// Zoom helpers used by toolbars.

func (e *Engine) ZoomIn() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cam.ZoomIn() {
		e.viewChangedLocked()
	}
}

func (e *Engine) ZoomOut() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cam.ZoomOut() {
		e.viewChangedLocked()
	}
}

func (e *Engine) ResetZoom() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cam.ResetZoom()
	e.viewChangedLocked()
}

func (e *Engine) viewChangedLocked() {
	e.requestCommittedLocked()
	e.sched.RequestPreviewRender()
}

// requestCommittedLocked requests a committed repaint unless a touch text
// edit is open, in which case it is replayed when editing ends.
func (e *Engine) requestCommittedLocked() {
	if e.mode == ModeEditingText && e.edit != nil && e.edit.Touch {
		e.deferredCommit = true
		return
	}
	e.sched.RequestRender()
}

// execLocked applies c to the collection and records it.
func (e *Engine) execLocked(c history.Command) error {
	if err := history.Apply(e.col, c); err != nil {
		e.log.Warn("command rejected", "kind", string(c.Kind), "error", err)
		return err
	}
	e.hist.Execute(c)
	e.rev++
	e.log.Debug("command", "kind", string(c.Kind), "desc", c.Description)
	return nil
}

// Undo reverts the newest command.
func (e *Engine) Undo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.undoLocked()
}

func (e *Engine) undoLocked() bool {
	e.closeInteractionLocked()
	c, ok := e.hist.Undo()
	if !ok {
		return false
	}
	if err := history.Revert(e.col, c); err != nil {
		e.log.Warn("undo failed", "kind", string(c.Kind), "error", err)
	}
	e.afterReplayLocked()
	return true
}

// Redo re-applies the next undone command.
func (e *Engine) Redo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.redoLocked()
}

func (e *Engine) redoLocked() bool {
	e.closeInteractionLocked()
	c, ok := e.hist.Redo()
	if !ok {
		return false
	}
	if err := history.Apply(e.col, c); err != nil {
		e.log.Warn("redo failed", "kind", string(c.Kind), "error", err)
	}
	e.afterReplayLocked()
	return true
}

func (e *Engine) afterReplayLocked() {
	e.rev++
	if _, ok := e.col.Get(e.selected); !ok {
		e.selected = ""
	}
	e.requestCommittedLocked()
	e.sched.RequestPreviewRender()
}

// Clear removes every shape as one undoable command.
func (e *Engine) Clear() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closeInteractionLocked()
	all := e.col.All()
	if len(all) == 0 {
		return false
	}
	idx := make([]int, len(all))
	for i := range idx {
		idx[i] = i
	}
	if err := e.execLocked(history.DeleteBatchCommand(all, idx)); err != nil {
		return false
	}
	e.selected = ""
	e.requestCommittedLocked()
	e.sched.RequestPreviewRender()
	return true
}

// DeleteSelected removes the selected shape as an undoable command.
func (e *Engine) DeleteSelected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deleteSelectedLocked()
}

func (e *Engine) deleteSelectedLocked() bool {
	e.closeInteractionLocked()
	s, ok := e.col.Get(e.selected)
	if !ok {
		return false
	}
	c := history.DeleteBatchCommand([]shape.Shape{s}, []int{e.col.IndexOf(s.ID)})
	if err := e.execLocked(c); err != nil {
		return false
	}
	e.selected = ""
	e.requestCommittedLocked()
	e.sched.RequestPreviewRender()
	return true
}

// Revalidate sanitizes the scene after the surface regains focus or
// visibility and forces a full repaint. It returns the number of shapes
// dropped.
func (e *Engine) Revalidate() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	dropped := e.col.Sanitize()
	if dropped > 0 {
		e.rev++
	}
	if _, ok := e.col.Get(e.selected); !ok {
		e.selected = ""
	}
	e.sched.RequestRender()
	e.sched.RequestPreviewRender()
	return dropped
}

// ShapesInBounds returns shapes with any point inside b (world units).
func (e *Engine) ShapesInBounds(b geom.Bounds) []shape.Shape {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.col.InBounds(b)
}

// Snapshot is the serializable scene state: shapes plus camera.
type Snapshot struct {
	Shapes []shape.Shape
	Zoom   float64
	Pan    geom.Point
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{Shapes: e.col.All(), Zoom: e.cam.Zoom(), Pan: e.cam.Pan()}
}

// Load replaces the scene. History is cleared; invalid shapes are dropped
// and counted.
func (e *Engine) Load(s Snapshot) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelGestureLocked()
	e.edit = nil
	e.mode = ModeIdle
	dropped := e.col.Reset(s.Shapes)
	e.hist.Clear()
	e.rev++
	e.selected = ""
	if s.Zoom > 0 {
		e.cam.SetZoom(s.Zoom)
	}
	e.cam.SetPan(s.Pan)
	if dropped > 0 {
		e.log.Warn("scene loaded with invalid shapes", "dropped", dropped)
	}
	e.sched.RequestRender()
	e.sched.RequestPreviewRender()
	return dropped
}

// Revision changes whenever the scene changes through a command, undo, redo
// or Load. Callers compare it to detect unsaved edits.
func (e *Engine) Revision() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rev
}

// Background is the committed layer fill.
func (e *Engine) Background() color.Color {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.background
}

// SetBackground changes the committed layer fill.
func (e *Engine) SetBackground(c color.Color) {
	if c == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.background = c
	e.requestCommittedLocked()
}

// History exposes command statistics for diagnostics.
func (e *Engine) History() history.Stats { return e.hist.Stats() }

func (e *Engine) hitOptions(touch bool) hittest.Options {
	return hittest.Options{Touch: touch, Scale: e.cam.Scale(), EraserRadius: e.style.StrokeWidth * e.eraserK}
}

func (e *Engine) resizeOptions(touch bool) resize.Options {
	return resize.Options{Touch: touch, Scale: e.cam.Scale()}
}
