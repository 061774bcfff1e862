package request

import (
	"sync/atomic"
	"time"
)

// Rates is the dispatch delay and timeout shared by every fetch in a cycle.
type Rates struct {
	RequestDelay time.Duration `json:"request_delay"`
	Timeout      time.Duration `json:"timeout"`
}

// RateState is read by concurrent fetches and replaced as a whole between
// cycles by a single writer.
type RateState struct {
	current atomic.Pointer[Rates]
}

func NewRateState(initial Rates) *RateState {
	s := &RateState{}
	s.Store(initial)
	return s
}

func (s *RateState) Load() Rates {
	return *s.current.Load()
}

func (s *RateState) Store(r Rates) {
	s.current.Store(&r)
}
