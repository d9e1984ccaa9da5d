package drivers

import (
	"context"

	"query-gateway/internal/model"
)

// QueryOutcome is the result of one completed query job.
type QueryOutcome struct {
	JobID string
	Rows  []model.Row
	// TotalBytesProcessed is nil when the job reports no query statistics.
	TotalBytesProcessed *int64
}

// TableMetadata is the schema and storage statistics of one table.
type TableMetadata struct {
	Schema   []model.SchemaField
	NumRows  *uint64
	NumBytes *int64
}

// Warehouse is the remote analytical store behind the gateway.
// Implementations are shared by all requests and must be safe for
// concurrent use. Every failure is reported as an upstream error.
type Warehouse interface {
	// RunQuery submits sql as a job, waits for it and reads at most
	// maxRows rows.
	RunQuery(ctx context.Context, sql string, maxRows int) (*QueryOutcome, error)

	// ListDatasets lists datasets in enumeration order.
	ListDatasets(ctx context.Context) ([]model.Dataset, error)

	// ListTables lists the tables of one dataset.
	ListTables(ctx context.Context, datasetID string) ([]model.TableSummary, error)

	// GetTableSchema fetches the schema of one table.
	GetTableSchema(ctx context.Context, datasetID, tableID string) (*TableMetadata, error)

	// ProjectID returns the project the warehouse is bound to.
	ProjectID() string

	// Close releases the underlying clients.
	Close() error
}
