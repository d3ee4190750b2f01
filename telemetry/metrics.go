package telemetry

// MutationBuckets cover connector write latency, from in-process sqlite to remote brokers
var MutationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// Statement Metrics
var (
	// StatementsTotal counts statements by type (create_database, insert, ...) and result (ok, error)
	StatementsTotal CounterVec = noopCounterVec{}

	// AuthorizationDecisionsTotal counts access-mode decisions by outcome
	// (allowed, policy_denied, capability_unimplemented, not_found, execution_failed)
	AuthorizationDecisionsTotal CounterVec = noopCounterVec{}

	// MutationDurationSeconds measures connector write latency by family (insert, update, delete)
	MutationDurationSeconds HistogramVec = noopHistogramVec{}

	// RowsAffectedTotal counts rows written through connectors by kind
	RowsAffectedTotal CounterVec = noopCounterVec{}
)

// Catalog Metrics
var (
	// CatalogEntries tracks catalog entry counts by entry type (database, table) and access mode
	CatalogEntries GaugeVec = noopGaugeVec{}

	// AccessModeChangesTotal counts alter-access-mode statements by entry type and new mode
	AccessModeChangesTotal CounterVec = noopCounterVec{}

	// OpenConnectors tracks connector instances held by the pool
	OpenConnectors GaugeVec = noopGaugeVec{}
)

// InitMetrics initializes all Prometheus metrics.
// Must be called after InitializeTelemetry().
func InitMetrics() {
	StatementsTotal = NewCounterVec(
		"statements_total",
		"Total statements by type and result",
		[]string{"type", "result"},
	)
	AuthorizationDecisionsTotal = NewCounterVec(
		"authorization_decisions_total",
		"Write authorization decisions by outcome",
		[]string{"outcome"},
	)
	MutationDurationSeconds = NewHistogramVec(
		"mutation_duration_seconds",
		"Connector write duration in seconds",
		[]string{"family"},
		MutationBuckets,
	)
	RowsAffectedTotal = NewCounterVec(
		"rows_affected_total",
		"Rows written through connectors",
		[]string{"kind"},
	)

	CatalogEntries = NewGaugeVec(
		"catalog_entries",
		"External catalog entries by entry type and access mode",
		[]string{"entry", "mode"},
	)
	AccessModeChangesTotal = NewCounterVec(
		"access_mode_changes_total",
		"Access mode alterations by entry type and new mode",
		[]string{"entry", "mode"},
	)
	OpenConnectors = NewGaugeVec(
		"open_connectors",
		"Connector instances currently held open by the pool",
		[]string{"kind"},
	)
}
