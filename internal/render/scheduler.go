/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package render coalesces repaint requests for the committed and preview
// layers and paints them at most once per frame.
package render

import (
	"context"
	"image"
	"sync"
	"time"

	applog "sketchboard/internal/log"
)

// Layer identifies a surface.
type Layer int

const (
	// Committed holds the finished scene on an opaque background.
	Committed Layer = iota
	// Preview holds transient drafts, selection and cursors over Committed.
	Preview
)

func (l Layer) String() string {
	if l == Preview {
		return "preview"
	}
	return "committed"
}

// Painter repaints a whole layer into dst. It is called without the
// scheduler or surface locks held, so it may take its own locks and call
// back into Resize.
type Painter interface {
	Paint(l Layer, dst *image.RGBA)
}

// PainterFunc adapts a function to Painter.
type PainterFunc func(l Layer, dst *image.RGBA)

func (f PainterFunc) Paint(l Layer, dst *image.RGBA) { f(l, dst) }

// Presented reports which layers a frame repainted.
type Presented struct {
	Committed bool
	Preview   bool
}

func (p Presented) Any() bool { return p.Committed || p.Preview }

// Stats counts scheduler activity.
type Stats struct {
	Requests  int
	Replaced  int
	Cancelled int
	Frames    int
	Paints    int
}

// Scheduler is the frame loop. Requests made between two frames collapse
// into one paint per layer; a newer request replaces the pending one.
type Scheduler struct {
	painter Painter

	mu        sync.Mutex
	nextID    uint64
	pending   [2]uint64 // request id per layer, 0 = none
	stats     Stats
	onPresent func(Presented)

	surfaces *Surfaces
}

// NewScheduler returns a scheduler painting through p onto s.
func NewScheduler(p Painter, s *Surfaces) *Scheduler {
	if s == nil {
		s = NewSurfaces(1, 1)
	}
	return &Scheduler{painter: p, surfaces: s}
}

func (s *Scheduler) Surfaces() *Surfaces { return s.surfaces }

// OnPresent registers fn to run after each frame that painted something.
func (s *Scheduler) OnPresent(fn func(Presented)) {
	s.mu.Lock()
	s.onPresent = fn
	s.mu.Unlock()
}

func (s *Scheduler) request(l Layer) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.stats.Requests++
	if s.pending[l] != 0 {
		s.stats.Replaced++
	}
	s.pending[l] = s.nextID
	return s.nextID
}

// RequestRender schedules a committed repaint and returns its request id.
func (s *Scheduler) RequestRender() uint64 { return s.request(Committed) }

// RequestPreviewRender schedules a preview repaint and returns its request id.
func (s *Scheduler) RequestPreviewRender() uint64 { return s.request(Preview) }

// Cancel drops the pending request id if it has not been painted or
// replaced yet.
func (s *Scheduler) Cancel(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for l := range s.pending {
		if id != 0 && s.pending[l] == id {
			s.pending[l] = 0
			s.stats.Cancelled++
			return true
		}
	}
	return false
}

// Pending reports whether a layer has an outstanding request.
func (s *Scheduler) Pending(l Layer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[l] != 0
}

// Frame paints every layer with a pending request, committed first.
func (s *Scheduler) Frame() Presented {
	s.mu.Lock()
	todo := s.pending
	s.pending = [2]uint64{}
	s.stats.Frames++
	onPresent := s.onPresent
	s.mu.Unlock()

	var out Presented
	if todo[Committed] != 0 {
		out.Committed = s.paintLayer(Committed)
	}
	if todo[Preview] != 0 {
		out.Preview = s.paintLayer(Preview)
	}
	if !out.Any() {
		return out
	}
	s.mu.Lock()
	if out.Committed {
		s.stats.Paints++
	}
	if out.Preview {
		s.stats.Paints++
	}
	s.mu.Unlock()
	if onPresent != nil {
		onPresent(out)
	}
	return out
}

// paintLayer paints l and re-queues it when a resize discarded the result.
func (s *Scheduler) paintLayer(l Layer) bool {
	if s.surfaces.paint(l, s.painter) {
		return true
	}
	s.mu.Lock()
	if s.pending[l] == 0 {
		s.nextID++
		s.pending[l] = s.nextID
	}
	s.mu.Unlock()
	return false
}

// Run drives Frame every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second / 60
	}
	l := applog.WithComponent("render")
	l.Debug("frame loop started", "interval", interval)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			l.Debug("frame loop stopped")
			return ctx.Err()
		case <-t.C:
			s.Frame()
		}
	}
}

func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
