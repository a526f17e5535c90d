/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package raster

import (
	"hash/fnv"
	"math"
	"math/rand"

	"sketchboard/internal/geom"
)

// Hand-drawn jitter. The generator is seeded from the shape id so a shape
// looks the same on every frame.

func rngFor(id string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

// roughen offsets interior points alternately along the local normal and adds
// jitter; the first point is kept and the last one jittered slightly.
func roughen(pts []geom.Point, amount float64, rng *rand.Rand) []geom.Point {
	if len(pts) < 2 || !(amount > 0) {
		return pts
	}
	out := make([]geom.Point, 0, len(pts))
	out = append(out, pts[0])
	zig := amount * 2.5
	jit := amount * 1.5
	for i := 1; i < len(pts)-1; i++ {
		prev, cur, next := pts[i-1], pts[i], pts[i+1]
		dx, dy := next.X-prev.X, next.Y-prev.Y
		l := math.Hypot(dx, dy)
		var px, py float64
		if l > 0 {
			px, py = -dy/l, dx/l
		}
		off := zig
		if i%2 == 1 {
			off = -zig
		}
		out = append(out, geom.Point{
			X: cur.X + px*off + (rng.Float64()-0.5)*jit,
			Y: cur.Y + py*off + (rng.Float64()-0.5)*jit,
		})
	}
	last := pts[len(pts)-1]
	out = append(out, geom.Point{
		X: last.X + (rng.Float64()-0.5)*amount*0.5,
		Y: last.Y + (rng.Float64()-0.5)*amount*0.5,
	})
	return out
}

// wavy subdivides a-b into segments with a sine offset along the normal.
func wavy(a, b geom.Point, segments int, amount float64, rng *rand.Rand) []geom.Point {
	if segments < 1 {
		segments = 1
	}
	dx, dy := (b.X-a.X)/float64(segments), (b.Y-a.Y)/float64(segments)
	l := math.Hypot(dx, dy)
	var px, py float64
	if l > 0 {
		px, py = -dy/l, dx/l
	}
	amp := amount * 3.5
	pts := make([]geom.Point, 0, segments+1)
	for i := 0; i <= segments; i++ {
		off := math.Sin(float64(i)*math.Pi*1.5) * amp
		if i == 0 || i == segments {
			off = 0
		}
		pts = append(pts, geom.Point{X: a.X + dx*float64(i) + px*off, Y: a.Y + dy*float64(i) + py*off})
	}
	return roughen(pts, amount, rng)
}

// segmentsFor picks 4..8 subdivisions from the generator.
func segmentsFor(rng *rand.Rand) int { return 4 + rng.Intn(5) }
