package fetch

import "sync"

type failureClass int

const (
	failureNone failureClass = iota
	failureTimeout
	failureRefused
	failureTunnel
	failureOther
)

// Stats counts request outcomes for one client. The counters feed the
// close hook's proxy health check.
type Stats struct {
	mu       sync.Mutex
	requests int
	timeouts int
	refused  int
	tunnel   int
}

func (s *Stats) record(status int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++
	switch classify(err) {
	case failureTimeout:
		s.timeouts++
	case failureRefused:
		s.refused++
	case failureTunnel:
		s.tunnel++
	case failureNone:
		// 403 and 407 from an upstream proxy count as tunnel failures
		// even though the request technically completed.
		if status == 403 || status == 407 {
			s.tunnel++
		}
	}
}

func (s *Stats) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Requests: s.requests,
		Timeouts: s.timeouts,
		Refused:  s.refused,
		Tunnel:   s.tunnel,
	}
}

// Snapshot is an immutable view of the counters.
type Snapshot struct {
	Requests int
	Timeouts int
	Refused  int
	Tunnel   int
}

// Failures sums the proxy-relevant failure classes.
func (s Snapshot) Failures() int {
	return s.Timeouts + s.Refused + s.Tunnel
}

// ProxyBroken reports whether the run's traffic indicates an unusable
// proxy: every request failed, or the failure count passed threshold.
// A run that issued no requests is never blamed on the proxy.
func (s Snapshot) ProxyBroken(threshold int) bool {
	if s.Requests == 0 {
		return false
	}
	f := s.Failures()
	if f >= s.Requests {
		return true
	}
	return threshold > 0 && f > threshold
}
