package ports

// MetricsPort receives duel counters. Implementations must be safe for concurrent use.
type MetricsPort interface {
	RoundResolved(outcome string)
	PurchaseAttempted(result string)
	MatchEnded(reason string, draw bool)
}

// NoopMetrics discards every observation.
type NoopMetrics struct{}

func (NoopMetrics) RoundResolved(string)     {}
func (NoopMetrics) PurchaseAttempted(string) {}
func (NoopMetrics) MatchEnded(string, bool)  {}

var _ MetricsPort = NoopMetrics{}
