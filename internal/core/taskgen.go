package core

// TaskGenerator periodically appends new tasks to a running World. It is
// stateful: GenerationCount and LastGenerationTime persist across ticks.
type TaskGenerator struct {
	Enabled            bool
	IntervalSeconds    float64
	MaxGenerations     int
	TasksPerGeneration int

	Rect            Rect
	NonOverlapRadius float64
	AmountMin        float64
	AmountMax        float64
	TaskBaseRadius   float64

	GenerationCount    int
	LastGenerationTime float64
}

// Done reports whether the generator has exhausted its generations (or was
// never enabled) — used by the tick driver's mission-completed check.
func (g *TaskGenerator) Done() bool {
	return !g.Enabled || g.GenerationCount >= g.MaxGenerations
}

// Maybe appends TasksPerGeneration new tasks, starting ids at len(*tasks),
// if enabled, not yet exhausted, and enough sim time has elapsed since the
// last generation. Returns the tasks appended, or nil if nothing happened.
func (g *TaskGenerator) Maybe(simTime float64, rng Rng, tasks *[]*Task) ([]*Task, error) {
	if g.Done() {
		return nil, nil
	}
	if simTime-g.LastGenerationTime < g.IntervalSeconds {
		return nil, nil
	}

	existing := make([]Vec2, 0, len(*tasks))
	for _, t := range *tasks {
		existing = append(existing, t.Position)
	}

	positions, err := samplePositionsAvoiding(rng, g.TasksPerGeneration, g.Rect, g.NonOverlapRadius, existing)
	if err != nil {
		return nil, err
	}

	start := TaskID(len(*tasks))
	created := make([]*Task, 0, g.TasksPerGeneration)
	for i, pos := range positions {
		amount := UniformRange(rng, g.AmountMin, g.AmountMax)
		t := NewTask(start+TaskID(i), pos, amount, g.TaskBaseRadius)
		created = append(created, t)
	}
	*tasks = append(*tasks, created...)

	g.GenerationCount++
	g.LastGenerationTime = simTime
	return created, nil
}

// samplePositionsAvoiding is SamplePositions extended to also reject
// positions that overlap a fixed set of pre-existing points, so dynamically
// generated tasks don't land on top of existing ones.
func samplePositionsAvoiding(rng Rng, n int, rect Rect, minSep float64, existing []Vec2) ([]Vec2, error) {
	if rect.Width() < 2*minSep || rect.Height() < 2*minSep {
		return nil, ErrPlacementExhausted
	}
	xMin, xMax := rect.XMin+minSep, rect.XMax-minSep
	yMin, yMax := rect.YMin+minSep, rect.YMax-minSep

	accepted := make([]Vec2, 0, n)
	for attempts := 0; len(accepted) < n; attempts++ {
		if attempts >= maxPlacementAttempts {
			return nil, ErrPlacementExhausted
		}
		cand := Vec2{X: UniformRange(rng, xMin, xMax), Y: UniformRange(rng, yMin, yMax)}
		if minSep <= 0 {
			accepted = append(accepted, cand)
			continue
		}
		ok := true
		for _, p := range existing {
			if ChebyshevDistance(cand, p) <= minSep {
				ok = false
				break
			}
		}
		for _, p := range accepted {
			if ok && ChebyshevDistance(cand, p) <= minSep {
				ok = false
				break
			}
		}
		if ok {
			accepted = append(accepted, cand)
		}
	}
	return accepted, nil
}
