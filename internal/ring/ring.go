// Package ring stitches the outer way segments of a boundary relation into one ring.
package ring

import (
	"math"

	"github.com/mohammed-shakir/suburb-boundaries/internal/core/model"
)

// Tolerance is the per-axis distance (degrees) under which two vertices are the same.
const Tolerance = 1e-5

// JoinSegments chains segments end to end into a single ring. Segments may arrive
// in any order and orientation. The chain starts from the first segment and, on
// each pass, takes the first unused segment (input order) whose first or last
// vertex matches the current tail; a segment matched by its last vertex is
// appended reversed. The shared vertex is never duplicated. When a pass finds no
// connecting segment the partial ring assembled so far is returned.
func JoinSegments(segments [][]model.Coordinate) []model.Coordinate {
	segs := make([][]model.Coordinate, 0, len(segments))
	for _, s := range segments {
		if len(s) > 0 {
			segs = append(segs, s)
		}
	}

	switch len(segs) {
	case 0:
		return []model.Coordinate{}
	case 1:
		out := make([]model.Coordinate, len(segs[0]))
		copy(out, segs[0])
		return out
	}

	total := 0
	for _, s := range segs {
		total += len(s)
	}
	out := make([]model.Coordinate, 0, total)
	out = append(out, segs[0]...)

	used := make([]bool, len(segs))
	used[0] = true
	remaining := len(segs) - 1

	for remaining > 0 {
		tail := out[len(out)-1]
		found := false

		for i, seg := range segs {
			if used[i] {
				continue
			}
			first, last := seg[0], seg[len(seg)-1]

			if Match(tail, first) {
				out = append(out, seg[1:]...)
			} else if Match(tail, last) {
				for j := len(seg) - 2; j >= 0; j-- {
					out = append(out, seg[j])
				}
			} else {
				continue
			}
			used[i] = true
			remaining--
			found = true
			break
		}

		if !found {
			break
		}
	}
	return out
}

// Match reports whether a and b are within Tolerance on both axes.
func Match(a, b model.Coordinate) bool {
	return math.Abs(a.Latitude-b.Latitude) < Tolerance &&
		math.Abs(a.Longitude-b.Longitude) < Tolerance
}
