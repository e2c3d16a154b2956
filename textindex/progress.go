package textindex

// progress forwards scan fractions to a ProgressFunc, dropping updates
// that advance less than progressStep past the last one delivered. Updates
// within progressStep of completion are dropped too, so the final 1 keeps
// the same spacing.
type progress struct {
	fn   ProgressFunc
	last float64
}

func newProgress(fn ProgressFunc) *progress {
	return &progress{fn: fn, last: -1}
}

func (p *progress) update(fraction float64) {
	if p.fn == nil || fraction >= 1 {
		return
	}
	if 1-fraction < progressStep || (p.last >= 0 && fraction-p.last < progressStep) {
		return
	}
	p.last = fraction
	p.fn(fraction)
}

func (p *progress) done() {
	if p.fn == nil {
		return
	}
	p.last = 1
	p.fn(1)
}
