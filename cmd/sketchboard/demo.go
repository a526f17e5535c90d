/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"

	"sketchboard/internal/engine"
	"sketchboard/internal/geom"
)

// demo draws a small scene through the same pointer path the UI uses and
// exports it to out.
func (c *cli) demo(out string) error {
	s, _, err := c.newSession()
	if err != nil {
		return err
	}
	e := s.Engine()
	stroke := func(t engine.Tool, pts ...geom.Point) {
		e.SetTool(t)
		e.PointerDown(engine.PointerEvent{X: pts[0].X, Y: pts[0].Y})
		for _, p := range pts[1:] {
			e.PointerMove(engine.PointerEvent{X: p.X, Y: p.Y})
		}
		last := pts[len(pts)-1]
		e.PointerUp(engine.PointerEvent{X: last.X, Y: last.Y})
	}

	st := e.State().Style
	st.Roughness = 1
	e.SetStyle(st)
	stroke(engine.ToolRectangle, geom.Pt(80, 80), geom.Pt(200, 160), geom.Pt(320, 220))
	stroke(engine.ToolCircle, geom.Pt(480, 150), geom.Pt(540, 190), geom.Pt(560, 210))
	stroke(engine.ToolLine, geom.Pt(320, 150), geom.Pt(400, 150))

	st.Color = "#1971c2"
	st.Roughness = 0
	e.SetStyle(st)
	var wave []geom.Point
	for i := 0; i <= 40; i++ {
		y := 300.0
		if i%2 == 1 {
			y = 280
		}
		wave = append(wave, geom.Pt(80+float64(i)*12, y))
	}
	stroke(engine.ToolPencil, wave...)

	e.SetTool(engine.ToolText)
	e.PointerDown(engine.PointerEvent{X: 110, Y: 130})
	e.PointerUp(engine.PointerEvent{X: 110, Y: 130})
	e.CommitText("Sketchboard")

	if err := s.Export(out); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Wrote demo scene with %d shapes to %s\n", len(e.State().Shapes), out)
	return nil
}
