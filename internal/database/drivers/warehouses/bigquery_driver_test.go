package warehouses

import (
	"context"
	"encoding/json"
	"math"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bqapi "google.golang.org/api/bigquery/v2"
	"google.golang.org/api/option"

	"query-gateway/internal/model"
	"query-gateway/internal/utils"
)

func TestNewBigQueryDriverRequiresProject(t *testing.T) {
	_, err := NewBigQueryDriver(context.Background(), BigQueryConfig{})
	if err == nil {
		t.Fatal("Expected error for missing project ID")
	}
}

func TestConvertRowNormalizesValues(t *testing.T) {
	mapper := NewBigQueryTypeMapper()
	schema := bigquery.Schema{
		{Name: "id", Type: bigquery.IntegerFieldType},
		{Name: "price", Type: bigquery.NumericFieldType},
		{Name: "ratio", Type: bigquery.FloatFieldType},
		{Name: "day", Type: bigquery.DateFieldType},
		{Name: "at", Type: bigquery.TimestampFieldType},
		{Name: "tags", Type: bigquery.StringFieldType, Repeated: true},
		{Name: "owner", Type: bigquery.RecordFieldType, Schema: bigquery.Schema{
			{Name: "name", Type: bigquery.StringFieldType},
			{Name: "since", Type: bigquery.DateTimeFieldType},
		}},
		{Name: "missing", Type: bigquery.StringFieldType},
	}
	at := time.Date(2024, 3, 1, 12, 30, 0, 0, time.FixedZone("CET", 3600))
	values := []bigquery.Value{
		int64(7),
		big.NewRat(1234, 100),
		math.Inf(1),
		civil.Date{Year: 2024, Month: 3, Day: 1},
		at,
		[]bigquery.Value{"a", "b"},
		[]bigquery.Value{"ada", civil.DateTime{Date: civil.Date{Year: 2020, Month: 1, Day: 2}, Time: civil.Time{Hour: 3, Minute: 4, Second: 5}}},
	}

	row := mapper.ConvertRow(values, schema)

	assert.Equal(t, int64(7), row["id"])
	assert.Equal(t, "12.340000000", row["price"])
	assert.Equal(t, "Infinity", row["ratio"])
	assert.Equal(t, "2024-03-01", row["day"])
	assert.Equal(t, "2024-03-01T11:30:00Z", row["at"])
	assert.Equal(t, []interface{}{"a", "b"}, row["tags"])
	assert.Equal(t, model.Row{"name": "ada", "since": "2020-01-02 03:04:05"}, row["owner"])
	assert.Contains(t, row, "missing")
	assert.Nil(t, row["missing"])

	_, err := json.Marshal(row)
	require.NoError(t, err)
}

func TestConvertSchemaModesAndNesting(t *testing.T) {
	mapper := NewBigQueryTypeMapper()
	schema := bigquery.Schema{
		{Name: "id", Type: bigquery.IntegerFieldType, Required: true},
		{Name: "labels", Type: bigquery.StringFieldType, Repeated: true},
		{Name: "address", Type: bigquery.RecordFieldType, Description: "postal", Schema: bigquery.Schema{
			{Name: "city", Type: bigquery.StringFieldType},
		}},
	}

	fields := mapper.ConvertSchema(schema)

	require.Len(t, fields, 3)
	assert.Equal(t, model.SchemaField{Name: "id", Type: "INTEGER", Mode: model.ModeRequired}, fields[0])
	assert.Equal(t, model.ModeRepeated, fields[1].Mode)
	assert.Equal(t, "postal", fields[2].Description)
	assert.Equal(t, []model.SchemaField{{Name: "city", Type: "STRING", Mode: model.ModeNullable}}, fields[2].Fields)
}

func TestConvertTableMetadataCounts(t *testing.T) {
	mapper := NewBigQueryTypeMapper()

	table := mapper.ConvertTableMetadata(&bigquery.TableMetadata{Type: bigquery.RegularTable, NumRows: 3, NumBytes: 120})
	require.NotNil(t, table.NumRows)
	require.NotNil(t, table.NumBytes)
	assert.Equal(t, uint64(3), *table.NumRows)
	assert.Equal(t, int64(120), *table.NumBytes)
	assert.NotNil(t, table.Schema)
	assert.Empty(t, table.Schema)

	view := mapper.ConvertTableMetadata(&bigquery.TableMetadata{Type: bigquery.ViewTable})
	assert.Nil(t, view.NumRows)
	assert.Nil(t, view.NumBytes)
}

// fakeBigQuery serves just enough of the BigQuery v2 REST API for query
// jobs and the listing and metadata calls. Query jobs return fakeResultRows
// rows of a single INTEGER column n; SQL containing FAIL produces a job that
// finishes with an error.
type fakeBigQuery struct {
	mu        sync.Mutex
	pageSizes []string
}

const (
	fakeResultRows       = 5
	fakeBytesProcessed   = 42
	fakeFailedJobMessage = "Syntax error: Unexpected identifier \"FAIL\" at [1:1]"
)

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeBigQuery) requestedPageSizes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.pageSizes...)
}

func (f *fakeBigQuery) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	path := r.URL.Path
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/projects/demo/jobs"):
		f.insertJob(w, r)
	case strings.Contains(path, "/projects/demo/jobs/"):
		f.getJob(w, path[strings.LastIndex(path, "/")+1:])
	case strings.Contains(path, "/projects/demo/queries/"):
		f.getQueryResults(w, r)
	case strings.HasSuffix(path, "/projects/demo/datasets"):
		if r.URL.Query().Get("pageToken") == "" {
			w.Write([]byte(`{"datasets":[{"datasetReference":{"projectId":"demo","datasetId":"sales"},"location":"EU"}],"nextPageToken":"p2"}`))
			return
		}
		w.Write([]byte(`{"datasets":[{"datasetReference":{"projectId":"demo","datasetId":"ops"}}]}`))
	case strings.HasSuffix(path, "/projects/demo/datasets/sales/tables"):
		w.Write([]byte(`{"tables":[{"tableReference":{"projectId":"demo","datasetId":"sales","tableId":"orders"},"type":"TABLE"},{"tableReference":{"projectId":"demo","datasetId":"sales","tableId":"v_orders"},"type":"VIEW"}]}`))
	case strings.HasSuffix(path, "/projects/demo/datasets/sales/tables/orders"):
		w.Write([]byte(`{"tableReference":{"projectId":"demo","datasetId":"sales","tableId":"orders"},"type":"TABLE","numRows":"3","numBytes":"120","schema":{"fields":[{"name":"id","type":"INTEGER","mode":"REQUIRED"},{"name":"note","type":"STRING"}]}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":404,"message":"Not found: Dataset demo:unknown-ds","errors":[{"reason":"notFound","message":"Not found: Dataset demo:unknown-ds"}]}}`))
	}
}

func (f *fakeBigQuery) insertJob(w http.ResponseWriter, r *http.Request) {
	var job bqapi.Job
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil || job.Configuration == nil || job.Configuration.Query == nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	jobID := "job-1"
	if strings.Contains(job.Configuration.Query.Query, "FAIL") {
		jobID = "job-failed"
	}
	writeJSON(w, &bqapi.Job{
		JobReference:  &bqapi.JobReference{ProjectId: "demo", JobId: jobID},
		Configuration: job.Configuration,
		Status:        &bqapi.JobStatus{State: "RUNNING"},
	})
}

func (f *fakeBigQuery) getJob(w http.ResponseWriter, jobID string) {
	job := &bqapi.Job{
		JobReference: &bqapi.JobReference{ProjectId: "demo", JobId: jobID},
		Status:       &bqapi.JobStatus{State: "DONE"},
		Statistics: &bqapi.JobStatistics{
			TotalBytesProcessed: fakeBytesProcessed,
			Query:               &bqapi.JobStatistics2{TotalBytesProcessed: fakeBytesProcessed},
		},
	}
	if jobID == "job-failed" {
		job.Status.ErrorResult = &bqapi.ErrorProto{Reason: "invalidQuery", Message: fakeFailedJobMessage}
		job.Statistics.Query.TotalBytesProcessed = 0
	}
	writeJSON(w, job)
}

func (f *fakeBigQuery) getQueryResults(w http.ResponseWriter, r *http.Request) {
	resp := &bqapi.GetQueryResultsResponse{
		JobComplete: true,
		TotalRows:   fakeResultRows,
		Schema: &bqapi.TableSchema{Fields: []*bqapi.TableFieldSchema{
			{Name: "n", Type: "INTEGER"},
		}},
	}

	maxResults := r.URL.Query().Get("maxResults")
	if maxResults == "0" {
		writeJSON(w, resp)
		return
	}

	f.mu.Lock()
	f.pageSizes = append(f.pageSizes, maxResults)
	f.mu.Unlock()

	start, _ := strconv.Atoi(r.URL.Query().Get("pageToken"))
	if start == 0 {
		start, _ = strconv.Atoi(r.URL.Query().Get("startIndex"))
	}
	size, err := strconv.Atoi(maxResults)
	if err != nil || size <= 0 {
		size = fakeResultRows
	}
	end := start + size
	if end > fakeResultRows {
		end = fakeResultRows
	}
	for i := start; i < end; i++ {
		resp.Rows = append(resp.Rows, &bqapi.TableRow{F: []*bqapi.TableCell{{V: strconv.Itoa(i + 1)}}})
	}
	if end < fakeResultRows {
		resp.PageToken = strconv.Itoa(end)
	}
	writeJSON(w, resp)
}

func newFakeWarehouse(t *testing.T) (*BigQueryDriver, *fakeBigQuery) {
	t.Helper()

	fake := &fakeBigQuery{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	driver, err := NewBigQueryDriver(context.Background(), BigQueryConfig{ProjectID: "demo"},
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { driver.Close() })
	return driver, fake
}

func TestBigQueryDriverRunQueryCapsRows(t *testing.T) {
	driver, fake := newFakeWarehouse(t)

	outcome, err := driver.RunQuery(context.Background(), "SELECT n FROM numbers", 2)
	require.NoError(t, err)

	assert.Equal(t, "job-1", outcome.JobID)
	assert.Equal(t, []model.Row{{"n": int64(1)}, {"n": int64(2)}}, outcome.Rows)
	require.NotNil(t, outcome.TotalBytesProcessed)
	assert.Equal(t, int64(fakeBytesProcessed), *outcome.TotalBytesProcessed)
	assert.Equal(t, []string{"2"}, fake.requestedPageSizes())
}

func TestBigQueryDriverRunQueryReadsAllRowsUnderCap(t *testing.T) {
	driver, _ := newFakeWarehouse(t)

	outcome, err := driver.RunQuery(context.Background(), "SELECT n FROM numbers", 1000)
	require.NoError(t, err)

	assert.Len(t, outcome.Rows, fakeResultRows)
	assert.Equal(t, model.Row{"n": int64(fakeResultRows)}, outcome.Rows[fakeResultRows-1])
}

func TestBigQueryDriverRunQueryFailedJob(t *testing.T) {
	driver, fake := newFakeWarehouse(t)

	outcome, err := driver.RunQuery(context.Background(), "FAIL", 10)
	require.Error(t, err)
	assert.Nil(t, outcome)

	assert.True(t, utils.IsErrorKind(err, utils.ErrKindUpstream))
	assert.Equal(t, fakeFailedJobMessage, utils.AsAppError(err).Message)
	assert.Empty(t, fake.requestedPageSizes(), "no rows are read from a failed job")
}

func TestBigQueryDriverListDatasetsFollowsPages(t *testing.T) {
	driver, _ := newFakeWarehouse(t)

	datasets, err := driver.ListDatasets(context.Background())
	require.NoError(t, err)
	require.Len(t, datasets, 2)
	assert.Equal(t, "sales", datasets[0].ID)
	require.NotNil(t, datasets[0].Location)
	assert.Equal(t, "EU", *datasets[0].Location)
	assert.Equal(t, "ops", datasets[1].ID)
	assert.Nil(t, datasets[1].Location)
}

func TestBigQueryDriverListTables(t *testing.T) {
	driver, _ := newFakeWarehouse(t)

	tables, err := driver.ListTables(context.Background(), "sales")
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "orders", tables[0].ID)
	assert.Equal(t, "VIEW", *tables[1].Type)
}

func TestBigQueryDriverListTablesUnknownDataset(t *testing.T) {
	driver, _ := newFakeWarehouse(t)

	_, err := driver.ListTables(context.Background(), "unknown-ds")
	require.Error(t, err)
	assert.True(t, utils.IsErrorKind(err, utils.ErrKindUpstream))
	assert.Equal(t, "Not found: Dataset demo:unknown-ds", utils.AsAppError(err).Message)
}

func TestBigQueryDriverGetTableSchema(t *testing.T) {
	driver, _ := newFakeWarehouse(t)

	meta, err := driver.GetTableSchema(context.Background(), "sales", "orders")
	require.NoError(t, err)
	assert.Equal(t, []model.SchemaField{
		{Name: "id", Type: "INTEGER", Mode: model.ModeRequired},
		{Name: "note", Type: "STRING", Mode: model.ModeNullable},
	}, meta.Schema)
	require.NotNil(t, meta.NumRows)
	assert.Equal(t, uint64(3), *meta.NumRows)
}

func TestBigQueryDriverGetTableSchemaIsRepeatable(t *testing.T) {
	driver, _ := newFakeWarehouse(t)

	first, err := driver.GetTableSchema(context.Background(), "sales", "orders")
	require.NoError(t, err)
	second, err := driver.GetTableSchema(context.Background(), "sales", "orders")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
