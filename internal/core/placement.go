package core

import "fmt"

// maxPlacementAttempts bounds the rejection-sampling loop in SamplePositions
// so a pathological density fails fast instead of spinning forever.
const maxPlacementAttempts = 20000

// ErrPlacementExhausted is returned when n non-overlapping points could not
// be placed within maxPlacementAttempts tries.
var ErrPlacementExhausted = fmt.Errorf("core: could not place positions without overlap within the attempt budget")

// SamplePositions draws n points uniformly within rect, shrunk inward by
// minSep, rejecting any candidate whose Chebyshev distance to an already
// accepted point is <= minSep. minSep == 0 disables the rejection check.
func SamplePositions(rng Rng, n int, rect Rect, minSep float64) ([]Vec2, error) {
	if rect.Width() < 2*minSep || rect.Height() < 2*minSep {
		return nil, fmt.Errorf("core: operating area too small for separation %.3f", minSep)
	}
	xMin, xMax := rect.XMin+minSep, rect.XMax-minSep
	yMin, yMax := rect.YMin+minSep, rect.YMax-minSep

	positions := make([]Vec2, 0, n)
	for attempts := 0; len(positions) < n; attempts++ {
		if attempts >= maxPlacementAttempts {
			return nil, ErrPlacementExhausted
		}
		cand := Vec2{X: UniformRange(rng, xMin, xMax), Y: UniformRange(rng, yMin, yMax)}
		if minSep <= 0 {
			positions = append(positions, cand)
			continue
		}
		ok := true
		for _, p := range positions {
			if ChebyshevDistance(cand, p) <= minSep {
				ok = false
				break
			}
		}
		if ok {
			positions = append(positions, cand)
		}
	}
	return positions, nil
}
