package nakama

import (
	"strconv"

	"chaosclash/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	metricRounds    = "chaosclash_rounds_resolved"
	metricPurchases = "chaosclash_purchase_attempts"
	metricMatches   = "chaosclash_matches_ended"
)

// NakamaMetrics forwards duel counters to Nakama's metrics sink.
type NakamaMetrics struct {
	nk runtime.NakamaModule
}

// NewNakamaMetrics creates a metrics adapter.
func NewNakamaMetrics(nk runtime.NakamaModule) *NakamaMetrics {
	return &NakamaMetrics{nk: nk}
}

func (m *NakamaMetrics) RoundResolved(outcome string) {
	m.nk.MetricsCounterAdd(metricRounds, map[string]string{"outcome": outcome}, 1)
}

func (m *NakamaMetrics) PurchaseAttempted(result string) {
	m.nk.MetricsCounterAdd(metricPurchases, map[string]string{"result": result}, 1)
}

func (m *NakamaMetrics) MatchEnded(reason string, draw bool) {
	m.nk.MetricsCounterAdd(metricMatches, map[string]string{"reason": reason, "draw": strconv.FormatBool(draw)}, 1)
}

var _ ports.MetricsPort = (*NakamaMetrics)(nil)
