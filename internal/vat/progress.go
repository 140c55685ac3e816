package vat

// ProgressFunc receives completion percentages in [0, 100].
type ProgressFunc func(percent int)

// progressTracker forwards only percentages greater than the last one, so
// the receiver sees a non-decreasing sequence without repeats.
type progressTracker struct {
	fn   ProgressFunc
	last int
}

func newProgressTracker(fn ProgressFunc) *progressTracker {
	return &progressTracker{fn: fn, last: -1}
}

func (p *progressTracker) report(percent int) {
	percent = min(max(percent, 0), 100)
	if p.fn == nil || percent <= p.last {
		return
	}
	p.last = percent
	p.fn(percent)
}

// scaled maps done/total onto [lo, hi].
func scaled(lo, hi, done, total int) int {
	if total <= 0 {
		return hi
	}
	return lo + (hi-lo)*done/total
}

func (p *progressTracker) step(lo, hi, done, total int) {
	p.report(scaled(lo, hi, done, total))
}
