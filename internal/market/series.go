package market

// Series is an immutable snapshot of closed bars ordered most recent
// first, so Series index equals History offset. The engines hold no
// state of their own; a fresh Series is taken per evaluation cycle.
type Series struct {
	bars []Bar
}

// NewSeries builds a Series from bars already ordered most recent first.
func NewSeries(bars []Bar) *Series {
	cp := make([]Bar, len(bars))
	copy(cp, bars)
	return &Series{bars: cp}
}

// NewSeriesChronological builds a Series from bars in chronological
// order (oldest first), the order brokers usually deliver them in.
func NewSeriesChronological(bars []Bar) *Series {
	cp := make([]Bar, len(bars))
	for i, b := range bars {
		cp[len(bars)-1-i] = b
	}
	return &Series{bars: cp}
}

// Bar returns the bar at the given offset (0 = most recent closed bar).
func (s *Series) Bar(offset int) (Bar, bool) {
	if offset < 0 || offset >= len(s.bars) {
		return Bar{}, false
	}
	return s.bars[offset], true
}

// Len returns the number of bars in the snapshot.
func (s *Series) Len() int { return len(s.bars) }

// Closes returns closes in chronological order, the layout the
// indicator helpers expect.
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.bars))
	for i, b := range s.bars {
		out[len(s.bars)-1-i] = b.Close
	}
	return out
}

// Chronological returns the bars oldest first.
func (s *Series) Chronological() []Bar {
	out := make([]Bar, len(s.bars))
	for i, b := range s.bars {
		out[len(s.bars)-1-i] = b
	}
	return out
}

// LatestOpenTime returns the open time of the most recent closed bar,
// or 0 for an empty series. The scheduler uses it as its new-bar gate.
func (s *Series) LatestOpenTime() int64 {
	if len(s.bars) == 0 {
		return 0
	}
	return s.bars[0].OpenTime
}
