package gateway

import (
	"fmt"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

var (
	conflictsTotal = metrics.NewCounter("ddoc_gateway_conflicts_total")
	updateDuration = metrics.NewHistogram("ddoc_gateway_update_duration_seconds")
)

func countRequest(op OpClass) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`ddoc_gateway_requests_total{op=%q}`, op.String())).Inc()
}

func countBudgetExhausted(op OpClass) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`ddoc_gateway_budget_exhausted_total{op=%q}`, op.String())).Inc()
}

func observeUpdate(start time.Time) {
	updateDuration.UpdateDuration(start)
}
