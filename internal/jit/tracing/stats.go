package tracing

import "sync"

// StatisticsSnapshot is a point-in-time, lock-free copy of Statistics
// suitable for logging, tests, and external inspection.
type StatisticsSnapshot struct {
	Attempts     uint64
	Starts       uint64
	Completions  uint64
	Compilations uint64
	Hits         uint64
	Evictions    uint64
	Aborts       map[string]uint64
	SideExits    map[string]uint64
}

// Statistics accumulates the counters spec §8's testable properties are
// phrased against ("at least one trace-hit event", "zero side exits",
// "the side exit handler records the side-exit kind").
type Statistics struct {
	mu           sync.Mutex
	attempts     uint64
	starts       uint64
	completions  uint64
	compilations uint64
	hits         uint64
	evictions    uint64
	aborts       map[string]uint64
	sideExits    map[string]uint64
}

func newStatistics() *Statistics {
	return &Statistics{
		aborts:    make(map[string]uint64),
		sideExits: make(map[string]uint64),
	}
}

func (s *Statistics) recordAttempt() {
	s.mu.Lock()
	s.attempts++
	s.mu.Unlock()
}

func (s *Statistics) recordStart() {
	s.mu.Lock()
	s.starts++
	s.mu.Unlock()
}

func (s *Statistics) recordCompletion() {
	s.mu.Lock()
	s.completions++
	s.mu.Unlock()
}

func (s *Statistics) recordCompilation() {
	s.mu.Lock()
	s.compilations++
	s.mu.Unlock()
}

func (s *Statistics) recordHit() {
	s.mu.Lock()
	s.hits++
	s.mu.Unlock()
}

func (s *Statistics) recordEviction() {
	s.mu.Lock()
	s.evictions++
	s.mu.Unlock()
}

func (s *Statistics) recordAbort(reason string) {
	s.mu.Lock()
	s.aborts[reason]++
	s.mu.Unlock()
}

func (s *Statistics) recordSideExit(kind SideExitKind) {
	s.mu.Lock()
	s.sideExits[kind.String()]++
	s.mu.Unlock()
}

// Snapshot copies the current counters out from under the mutex.
func (s *Statistics) Snapshot() StatisticsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	aborts := make(map[string]uint64, len(s.aborts))
	for k, v := range s.aborts {
		aborts[k] = v
	}
	sideExits := make(map[string]uint64, len(s.sideExits))
	for k, v := range s.sideExits {
		sideExits[k] = v
	}
	return StatisticsSnapshot{
		Attempts:     s.attempts,
		Starts:       s.starts,
		Completions:  s.completions,
		Compilations: s.compilations,
		Hits:         s.hits,
		Evictions:    s.evictions,
		Aborts:       aborts,
		SideExits:    sideExits,
	}
}
