/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package render

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync/atomic"
	"testing"
	"time"
)

type counter struct {
	committed, preview atomic.Int32
}

func (c *counter) Paint(l Layer, dst *image.RGBA) {
	if l == Committed {
		c.committed.Add(1)
		dst.SetRGBA(0, 0, color.RGBA{R: 0xff, A: 0xff})
		return
	}
	c.preview.Add(1)
	dst.SetRGBA(1, 0, color.RGBA{B: 0xff, A: 0xff})
}

func TestRequestsCoalesce(t *testing.T) {
	c := &counter{}
	s := NewScheduler(c, NewSurfaces(4, 4))
	for i := 0; i < 10; i++ {
		s.RequestRender()
	}
	p := s.Frame()
	if !p.Committed || p.Preview {
		t.Fatalf("presented %+v", p)
	}
	if c.committed.Load() != 1 {
		t.Fatalf("paints = %d, want 1", c.committed.Load())
	}
	if s.Frame().Any() {
		t.Fatalf("idle frame painted")
	}
	st := s.Stats()
	if st.Requests != 10 || st.Replaced != 9 || st.Paints != 1 || st.Frames != 2 {
		t.Fatalf("stats %+v", st)
	}
}

func TestNewerRequestReplacesPending(t *testing.T) {
	s := NewScheduler(&counter{}, nil)
	first := s.RequestPreviewRender()
	second := s.RequestPreviewRender()
	if first == second {
		t.Fatalf("request ids must differ")
	}
	if s.Cancel(first) {
		t.Fatalf("replaced request was cancellable")
	}
	if !s.Cancel(second) || s.Pending(Preview) {
		t.Fatalf("cancel of pending request failed")
	}
	if s.Frame().Any() {
		t.Fatalf("cancelled request painted")
	}
}

func TestLayersPaintIndependently(t *testing.T) {
	c := &counter{}
	s := NewScheduler(c, NewSurfaces(4, 4))
	s.RequestRender()
	s.RequestPreviewRender()
	s.Frame()
	s.RequestPreviewRender()
	s.Frame()
	if c.committed.Load() != 1 || c.preview.Load() != 2 {
		t.Fatalf("committed %d preview %d", c.committed.Load(), c.preview.Load())
	}
	comp := s.Surfaces().Composite()
	if comp.RGBAAt(0, 0).R != 0xff || comp.RGBAAt(1, 0).B != 0xff {
		t.Fatalf("composite missing layer pixels")
	}
}

func TestPreviewClearedBetweenFrames(t *testing.T) {
	var mark atomic.Bool
	mark.Store(true)
	s := NewScheduler(PainterFunc(func(l Layer, dst *image.RGBA) {
		if mark.Load() {
			dst.SetRGBA(2, 2, color.RGBA{A: 0xff})
		}
	}), NewSurfaces(4, 4))
	s.RequestPreviewRender()
	s.Frame()
	mark.Store(false)
	s.RequestPreviewRender()
	s.Frame()
	if s.Surfaces().Copy(Preview).RGBAAt(2, 2).A != 0 {
		t.Fatalf("stale preview pixel")
	}
}

func TestOnPresentAndRun(t *testing.T) {
	s := NewScheduler(&counter{}, nil)
	got := make(chan Presented, 1)
	s.OnPresent(func(p Presented) {
		select {
		case got <- p:
		default:
		}
	})
	s.RequestRender()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, time.Millisecond) }()
	select {
	case p := <-got:
		if !p.Committed {
			t.Fatalf("presented %+v", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no frame presented")
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("run returned %v", err)
	}
}

func TestSurfacesResize(t *testing.T) {
	s := NewSurfaces(10, 10)
	if s.Resize(10, 10) {
		t.Fatalf("same size reallocated")
	}
	if !s.Resize(20, 0) {
		t.Fatalf("resize not reported")
	}
	if w, h := s.Size(); w != 20 || h != 1 {
		t.Fatalf("size %dx%d", w, h)
	}
}

func TestResizeFromPainterDropsFrame(t *testing.T) {
	var s *Scheduler
	var resized atomic.Bool
	s = NewScheduler(PainterFunc(func(l Layer, dst *image.RGBA) {
		if !resized.Swap(true) {
			s.Surfaces().Resize(8, 8)
		}
		dst.SetRGBA(0, 0, color.RGBA{G: 0xff, A: 0xff})
	}), NewSurfaces(4, 4))
	s.RequestRender()
	if p := s.Frame(); p.Committed {
		t.Fatalf("stale-size frame presented: %+v", p)
	}
	if !s.Pending(Committed) {
		t.Fatalf("dropped layer not re-queued")
	}
	if p := s.Frame(); !p.Committed {
		t.Fatalf("repaint after resize missing: %+v", p)
	}
	img := s.Surfaces().Copy(Committed)
	if img.Rect.Dx() != 8 || img.RGBAAt(0, 0).G != 0xff {
		t.Fatalf("layer %v pixel %v", img.Rect, img.RGBAAt(0, 0))
	}
}
