package service

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"query-gateway/internal/database/drivers"
	"query-gateway/internal/middleware"
	"query-gateway/internal/model"
	"query-gateway/internal/utils"
)

type QueryService interface {
	ExecuteQuery(ctx context.Context, req *model.QueryRequest) (*model.QueryResponse, error)
	ListCatalog(ctx context.Context) (*model.CatalogResponse, error)
	ListDatasets(ctx context.Context) (*model.DatasetsResponse, error)
	ListTables(ctx context.Context, datasetID string) (*model.TablesResponse, error)
	GetTableSchema(ctx context.Context, datasetID, tableID string) (*model.TableSchema, error)
}

type queryService struct {
	warehouse drivers.Warehouse
	logger    *zap.Logger
	metrics   MetricsRecorder
}

// NewQueryService creates a new instance of QueryService. logger and
// metrics may be nil.
func NewQueryService(warehouse drivers.Warehouse, logger *zap.Logger, metrics MetricsRecorder) QueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = noopRecorder{}
	}
	return &queryService{
		warehouse: warehouse,
		logger:    logger.Named("query_service"),
		metrics:   metrics,
	}
}

// ExecuteQuery runs the request's SQL once. The SQL is forwarded verbatim.
func (qs *queryService) ExecuteQuery(ctx context.Context, req *model.QueryRequest) (*model.QueryResponse, error) {
	req.ApplyDefaults()

	var outcome *drivers.QueryOutcome
	err := observe(qs.metrics, OpRunQuery, func() error {
		var err error
		outcome, err = qs.warehouse.RunQuery(ctx, req.SQL, req.MaxRows)
		return err
	})
	if err != nil {
		qs.log(ctx).Warn("query failed", zap.Int("max_rows", req.MaxRows), zap.Error(err))
		return nil, asUpstream(err)
	}

	rows := outcome.Rows
	if rows == nil {
		rows = make([]model.Row, 0)
	}
	qs.metrics.AddRowsReturned(len(rows))

	resp := &model.QueryResponse{
		Rows:  rows,
		JobID: outcome.JobID,
	}
	if outcome.TotalBytesProcessed != nil {
		total := strconv.FormatInt(*outcome.TotalBytesProcessed, 10)
		resp.TotalRows = &total
	}

	qs.log(ctx).Info("query executed",
		zap.String("job_id", outcome.JobID),
		zap.Int("rows", len(rows)),
		zap.Int("max_rows", req.MaxRows),
	)
	return resp, nil
}

// ListCatalog lists every table of every dataset. Tables are fetched
// concurrently, one call per dataset, and flattened in dataset order. The
// first failure fails the whole listing.
func (qs *queryService) ListCatalog(ctx context.Context) (*model.CatalogResponse, error) {
	datasets, err := qs.listDatasets(ctx)
	if err != nil {
		return nil, err
	}

	slots := make([][]model.TableSummary, len(datasets))
	g, gctx := errgroup.WithContext(ctx)
	for i, ds := range datasets {
		g.Go(func() error {
			tables, err := qs.listTables(gctx, ds.ID)
			if err != nil {
				return err
			}
			slots[i] = tables
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		qs.log(ctx).Warn("catalog listing failed", zap.Int("datasets", len(datasets)), zap.Error(err))
		return nil, err
	}

	entries := make([]model.CatalogEntry, 0)
	for i, ds := range datasets {
		for _, t := range slots[i] {
			entries = append(entries, model.CatalogEntry{
				ID:        t.ID,
				DatasetID: ds.ID,
				Location:  ds.Location,
				Type:      t.Type,
			})
		}
	}

	qs.log(ctx).Debug("catalog listed", zap.Int("datasets", len(datasets)), zap.Int("tables", len(entries)))
	return &model.CatalogResponse{
		ProjectID: qs.warehouse.ProjectID(),
		Tables:    entries,
	}, nil
}

func (qs *queryService) ListDatasets(ctx context.Context) (*model.DatasetsResponse, error) {
	datasets, err := qs.listDatasets(ctx)
	if err != nil {
		return nil, err
	}
	return &model.DatasetsResponse{
		ProjectID: qs.warehouse.ProjectID(),
		Datasets:  datasets,
	}, nil
}

func (qs *queryService) ListTables(ctx context.Context, datasetID string) (*model.TablesResponse, error) {
	tables, err := qs.listTables(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	return &model.TablesResponse{
		DatasetID: datasetID,
		Tables:    tables,
	}, nil
}

func (qs *queryService) GetTableSchema(ctx context.Context, datasetID, tableID string) (*model.TableSchema, error) {
	var meta *drivers.TableMetadata
	err := observe(qs.metrics, OpGetTableSchema, func() error {
		var err error
		meta, err = qs.warehouse.GetTableSchema(ctx, datasetID, tableID)
		return err
	})
	if err != nil {
		qs.log(ctx).Warn("table schema lookup failed",
			zap.String("dataset_id", datasetID),
			zap.String("table_id", tableID),
			zap.Error(err),
		)
		return nil, asUpstream(err)
	}

	schema := &model.TableSchema{
		TableID:   tableID,
		DatasetID: datasetID,
		Schema:    make([]model.SchemaField, 0),
	}
	if meta != nil {
		if meta.Schema != nil {
			schema.Schema = meta.Schema
		}
		schema.NumRows = meta.NumRows
		schema.NumBytes = meta.NumBytes
	}
	return schema, nil
}

func (qs *queryService) listDatasets(ctx context.Context) ([]model.Dataset, error) {
	var datasets []model.Dataset
	err := observe(qs.metrics, OpListDatasets, func() error {
		var err error
		datasets, err = qs.warehouse.ListDatasets(ctx)
		return err
	})
	if err != nil {
		qs.log(ctx).Warn("dataset listing failed", zap.Error(err))
		return nil, asUpstream(err)
	}
	if datasets == nil {
		datasets = make([]model.Dataset, 0)
	}
	return datasets, nil
}

func (qs *queryService) listTables(ctx context.Context, datasetID string) ([]model.TableSummary, error) {
	var tables []model.TableSummary
	err := observe(qs.metrics, OpListTables, func() error {
		var err error
		tables, err = qs.warehouse.ListTables(ctx, datasetID)
		return err
	})
	if err != nil {
		qs.log(ctx).Warn("table listing failed", zap.String("dataset_id", datasetID), zap.Error(err))
		return nil, asUpstream(err)
	}
	if tables == nil {
		tables = make([]model.TableSummary, 0)
	}
	return tables, nil
}

// log tags entries with the request's correlation id
func (qs *queryService) log(ctx context.Context) *zap.Logger {
	if id := middleware.CorrelationIDFromContext(ctx); id != "" {
		return qs.logger.With(zap.String("correlation_id", id))
	}
	return qs.logger
}

// asUpstream keeps classified errors and treats anything else from the
// warehouse as an upstream failure.
func asUpstream(err error) error {
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return utils.NewUpstreamError(err)
}
