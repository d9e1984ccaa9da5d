package warehouses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	bqapi "google.golang.org/api/bigquery/v2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"query-gateway/internal/database/drivers"
	"query-gateway/internal/model"
	"query-gateway/internal/utils"
)

// BigQueryConfig configures the BigQuery driver.
type BigQueryConfig struct {
	ProjectID string
	// Location is applied to every query job when set.
	Location string
	// QueryTimeout bounds each warehouse call. Zero disables it.
	QueryTimeout time.Duration
}

// BigQueryDriver implements drivers.Warehouse for Google BigQuery.
//
// Queries and table metadata go through the Go client. Dataset and table
// listing use the v2 REST service because its list responses carry the
// dataset location and the table type.
type BigQueryDriver struct {
	client *bigquery.Client
	api    *bqapi.Service
	config BigQueryConfig
	mapper *BigQueryTypeMapper
}

// NewBigQueryDriver creates a new BigQuery driver
func NewBigQueryDriver(ctx context.Context, config BigQueryConfig, opts ...option.ClientOption) (*BigQueryDriver, error) {
	if config.ProjectID == "" {
		return nil, fmt.Errorf("project ID is required")
	}

	client, err := bigquery.NewClient(ctx, config.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create BigQuery client: %w", err)
	}
	if config.Location != "" {
		client.Location = config.Location
	}

	api, err := bqapi.NewService(ctx, opts...)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create BigQuery REST service: %w", err)
	}

	return &BigQueryDriver{
		client: client,
		api:    api,
		config: config,
		mapper: NewBigQueryTypeMapper(),
	}, nil
}

// ProjectID returns the configured project
func (d *BigQueryDriver) ProjectID() string {
	return d.config.ProjectID
}

// Close closes the underlying client
func (d *BigQueryDriver) Close() error {
	return d.client.Close()
}

func (d *BigQueryDriver) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.config.QueryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.config.QueryTimeout)
}

// RunQuery runs sql as a query job and reads at most maxRows rows
func (d *BigQueryDriver) RunQuery(ctx context.Context, sql string, maxRows int) (*drivers.QueryOutcome, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	query := d.client.Query(sql)
	if d.config.Location != "" {
		query.Location = d.config.Location
	}

	job, err := query.Run(ctx)
	if err != nil {
		return nil, upstreamError("failed to run query", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return nil, upstreamError("failed to wait for job", err)
	}
	if err := status.Err(); err != nil {
		return nil, upstreamError("job failed", err)
	}

	it, err := job.Read(ctx)
	if err != nil {
		return nil, upstreamError("failed to read results", err)
	}
	it.PageInfo().MaxSize = maxRows

	rows := make([]model.Row, 0)
	for len(rows) < maxRows {
		var values []bigquery.Value
		err := it.Next(&values)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, upstreamError("failed to read row", err)
		}
		rows = append(rows, d.mapper.ConvertRow(values, it.Schema))
	}

	outcome := &drivers.QueryOutcome{
		JobID: job.ID(),
		Rows:  rows,
	}
	if status.Statistics != nil {
		if stats, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
			processed := stats.TotalBytesProcessed
			outcome.TotalBytesProcessed = &processed
		}
	}

	return outcome, nil
}

// ListDatasets lists datasets in the project
func (d *BigQueryDriver) ListDatasets(ctx context.Context) ([]model.Dataset, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	datasets := make([]model.Dataset, 0)
	err := d.api.Datasets.List(d.config.ProjectID).Pages(ctx, func(page *bqapi.DatasetList) error {
		for _, ds := range page.Datasets {
			if ds == nil || ds.DatasetReference == nil {
				continue
			}
			datasets = append(datasets, model.Dataset{
				ID:       ds.DatasetReference.DatasetId,
				Location: optionalString(ds.Location),
			})
		}
		return nil
	})
	if err != nil {
		return nil, upstreamError("failed to list datasets", err)
	}

	return datasets, nil
}

// ListTables lists tables in a dataset
func (d *BigQueryDriver) ListTables(ctx context.Context, datasetID string) ([]model.TableSummary, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	tables := make([]model.TableSummary, 0)
	err := d.api.Tables.List(d.config.ProjectID, datasetID).Pages(ctx, func(page *bqapi.TableList) error {
		for _, t := range page.Tables {
			if t == nil || t.TableReference == nil {
				continue
			}
			tables = append(tables, model.TableSummary{
				ID:   t.TableReference.TableId,
				Type: optionalString(t.Type),
			})
		}
		return nil
	})
	if err != nil {
		return nil, upstreamError("failed to list tables", err)
	}

	return tables, nil
}

// GetTableSchema retrieves table schema
func (d *BigQueryDriver) GetTableSchema(ctx context.Context, datasetID, tableID string) (*drivers.TableMetadata, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	meta, err := d.client.Dataset(datasetID).Table(tableID).Metadata(ctx)
	if err != nil {
		return nil, upstreamError("failed to get table metadata", err)
	}

	return d.mapper.ConvertTableMetadata(meta), nil
}

// upstreamError keeps the warehouse's own message where one is available.
func upstreamError(op string, err error) error {
	message := fmt.Sprintf("%s: %v", op, err)

	var apiErr *googleapi.Error
	var bqErr *bigquery.Error
	switch {
	case errors.As(err, &apiErr) && apiErr.Message != "":
		message = apiErr.Message
	case errors.As(err, &bqErr) && bqErr.Message != "":
		message = bqErr.Message
	}

	return utils.NewErrorBuilder(utils.ErrKindUpstream).
		WithMessage(message).
		WithCause(fmt.Errorf("%s: %w", op, err)).
		Build()
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ drivers.Warehouse = (*BigQueryDriver)(nil)
