package sim

// stubRand is a scripted randomness source. Float64 and Intn replay their
// respective sequences and repeat the last value once exhausted.
type stubRand struct {
	floats []float64
	ints   []int
	fi, ii int
}

func (s *stubRand) Float64() float64 {
	if len(s.floats) == 0 {
		return 0.5
	}
	v := s.floats[s.fi]
	if s.fi < len(s.floats)-1 {
		s.fi++
	}
	return v
}

func (s *stubRand) Intn(n int) int {
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[s.ii]
	if s.ii < len(s.ints)-1 {
		s.ii++
	}
	return v % n
}
