package service

import "time"

// MetricsRecorder receives one observation per warehouse call.
// *middleware.Metrics satisfies it.
type MetricsRecorder interface {
	ObserveWarehouseCall(operation string, err error, duration time.Duration)
	AddRowsReturned(rows int)
}

// Warehouse operation labels
const (
	OpRunQuery       = "run_query"
	OpListDatasets   = "list_datasets"
	OpListTables     = "list_tables"
	OpGetTableSchema = "get_table_schema"
)

type noopRecorder struct{}

func (noopRecorder) ObserveWarehouseCall(string, error, time.Duration) {}
func (noopRecorder) AddRowsReturned(int)                               {}

// observe times fn and reports it under operation
func observe(recorder MetricsRecorder, operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	recorder.ObserveWarehouseCall(operation, err, time.Since(start))
	return err
}
