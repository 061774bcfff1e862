package request

import (
	"sync"
)

// Telemetry accumulates the per-endpoint status histogram and the number of
// dispatched requests for one cycle.
type Telemetry struct {
	mu        sync.Mutex
	statuses  map[string]map[int]int
	submitted int
}

func NewTelemetry() *Telemetry {
	return &Telemetry{statuses: map[string]map[int]int{}}
}

func (t *Telemetry) Submit() {
	t.mu.Lock()
	t.submitted++
	t.mu.Unlock()
}

func (t *Telemetry) Record(endpoint string, status int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	hist, ok := t.statuses[endpoint]
	if !ok {
		hist = map[int]int{}
		t.statuses[endpoint] = hist
	}
	hist[status]++
}

// Snapshot copies the current counters.
func (t *Telemetry) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	statuses := make(map[string]map[int]int, len(t.statuses))
	for endpoint, hist := range t.statuses {
		cp := make(map[int]int, len(hist))
		for status, count := range hist {
			cp[status] = count
		}
		statuses[endpoint] = cp
	}
	return Snapshot{Statuses: statuses, Submitted: t.submitted}
}

// Reset returns the counters and clears them for the next cycle.
func (t *Telemetry) Reset() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := Snapshot{Statuses: t.statuses, Submitted: t.submitted}
	t.statuses = map[string]map[int]int{}
	t.submitted = 0
	return snap
}

type Snapshot struct {
	Statuses  map[string]map[int]int `json:"statuses"`
	Submitted int                    `json:"submitted"`
}

// Responses is the number of recorded statuses across all endpoints.
func (s Snapshot) Responses() int {
	total := 0
	for _, hist := range s.Statuses {
		for _, count := range hist {
			total += count
		}
	}
	return total
}

// Count is the number of responses with status across all endpoints.
func (s Snapshot) Count(status int) int {
	total := 0
	for _, hist := range s.Statuses {
		total += hist[status]
	}
	return total
}

// Missing counts dispatched requests that never got a status.
func (s Snapshot) Missing() int {
	return s.Submitted - s.Responses()
}
