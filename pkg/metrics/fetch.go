package metrics

// FetchStats captures how a screen's fetch lifecycle has behaved so far.
type FetchStats struct {
	Started       uint64 `json:"started"`
	Completed     uint64 `json:"completed"`
	Failed        uint64 `json:"failed"`
	StaleDiscards uint64 `json:"staleDiscards"`
	LastLatencyMs int64  `json:"lastLatencyMs,omitempty"`
}

// IsZero reports whether no fetch has been started yet.
func (s FetchStats) IsZero() bool {
	return s.Started == 0 && s.Completed == 0 && s.Failed == 0 && s.StaleDiscards == 0
}

// InFlight reports fetches begun but not yet settled, stale ones included.
func (s FetchStats) InFlight() uint64 {
	settled := s.Completed + s.Failed + s.StaleDiscards
	if settled >= s.Started {
		return 0
	}
	return s.Started - settled
}
