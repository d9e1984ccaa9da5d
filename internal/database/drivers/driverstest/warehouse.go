// Package driverstest provides an in-memory drivers.Warehouse for tests.
package driverstest

import (
	"context"
	"fmt"
	"sync"

	"query-gateway/internal/database/drivers"
	"query-gateway/internal/model"
	"query-gateway/internal/utils"
)

// Warehouse is a scripted warehouse that counts its calls. Zero-valued
// hooks return empty results.
type Warehouse struct {
	Project string

	RunQueryFunc       func(ctx context.Context, sql string, maxRows int) (*drivers.QueryOutcome, error)
	ListDatasetsFunc   func(ctx context.Context) ([]model.Dataset, error)
	ListTablesFunc     func(ctx context.Context, datasetID string) ([]model.TableSummary, error)
	GetTableSchemaFunc func(ctx context.Context, datasetID, tableID string) (*drivers.TableMetadata, error)

	mu    sync.Mutex
	calls map[string]int
	// LastSQL and LastMaxRows record the arguments of the latest RunQuery.
	LastSQL     string
	LastMaxRows int
}

// New returns a warehouse bound to project
func New(project string) *Warehouse {
	return &Warehouse{Project: project}
}

func (w *Warehouse) record(op string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.calls == nil {
		w.calls = make(map[string]int)
	}
	w.calls[op]++
}

// Calls returns how often op was invoked
func (w *Warehouse) Calls(op string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls[op]
}

// TotalCalls returns the number of warehouse calls of any kind
func (w *Warehouse) TotalCalls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	total := 0
	for _, n := range w.calls {
		total += n
	}
	return total
}

func (w *Warehouse) RunQuery(ctx context.Context, sql string, maxRows int) (*drivers.QueryOutcome, error) {
	w.record("RunQuery")
	w.mu.Lock()
	w.LastSQL, w.LastMaxRows = sql, maxRows
	w.mu.Unlock()
	if w.RunQueryFunc != nil {
		return w.RunQueryFunc(ctx, sql, maxRows)
	}
	return &drivers.QueryOutcome{JobID: "job-1", Rows: []model.Row{}}, nil
}

func (w *Warehouse) ListDatasets(ctx context.Context) ([]model.Dataset, error) {
	w.record("ListDatasets")
	if w.ListDatasetsFunc != nil {
		return w.ListDatasetsFunc(ctx)
	}
	return []model.Dataset{}, nil
}

func (w *Warehouse) ListTables(ctx context.Context, datasetID string) ([]model.TableSummary, error) {
	w.record("ListTables")
	if w.ListTablesFunc != nil {
		return w.ListTablesFunc(ctx, datasetID)
	}
	return []model.TableSummary{}, nil
}

func (w *Warehouse) GetTableSchema(ctx context.Context, datasetID, tableID string) (*drivers.TableMetadata, error) {
	w.record("GetTableSchema")
	if w.GetTableSchemaFunc != nil {
		return w.GetTableSchemaFunc(ctx, datasetID, tableID)
	}
	return &drivers.TableMetadata{}, nil
}

func (w *Warehouse) ProjectID() string {
	return w.Project
}

func (w *Warehouse) Close() error {
	return nil
}

// NotFound builds the upstream error the warehouse reports for a missing
// dataset.
func NotFound(project, datasetID string) error {
	return utils.NewErrorBuilder(utils.ErrKindUpstream).
		WithMessage(fmt.Sprintf("Not found: Dataset %s:%s", project, datasetID)).
		Build()
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}

var _ drivers.Warehouse = (*Warehouse)(nil)
