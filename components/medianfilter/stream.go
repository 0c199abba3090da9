package medianfilter

import "slices"

// A Stream keeps the last size samples and reports their median.
type Stream struct {
	window []float64
	next   int
	full   bool
}

// NewStream creates a Stream over a window of size samples.
func NewStream(size int) *Stream {
	if size <= 0 {
		panic("stream window must be positive")
	}

	return &Stream{window: make([]float64, 0, size)}
}

// In adds a sample, evicting the oldest one when the window is full.
func (s *Stream) In(v float64) {
	if !s.full {
		s.window = append(s.window, v)
		s.full = len(s.window) == cap(s.window)
		return
	}

	s.window[s.next] = v
	s.next = (s.next + 1) % len(s.window)
}

// Out returns the median of the window. An empty window yields 0. With an
// even number of samples the two middle samples are averaged.
func (s *Stream) Out() float64 {
	n := len(s.window)
	if n == 0 {
		return 0
	}

	sorted := slices.Clone(s.window)
	slices.Sort(sorted)

	if n%2 == 1 {
		return sorted[n/2]
	}

	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Len returns the number of samples in the window.
func (s *Stream) Len() int {
	return len(s.window)
}
