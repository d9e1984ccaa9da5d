package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"query-gateway/internal/model"
	"query-gateway/internal/utils"
)

func violationFields(t *testing.T, err error) []string {
	t.Helper()
	require.Error(t, err)
	appErr := utils.AsAppError(err)
	require.Equal(t, utils.ErrKindValidation, appErr.Kind)

	fields := make([]string, 0, len(appErr.Violations))
	for _, v := range appErr.Violations {
		fields = append(fields, v.Field)
	}
	return fields
}

func TestValidateQueryRequest_Valid(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantSQL     string
		wantMaxRows int
	}{
		{"defaults maxRows", `{"sql":"SELECT 1"}`, "SELECT 1", model.DefaultMaxRows},
		{"explicit maxRows", `{"sql":"SELECT 1","maxRows":5}`, "SELECT 1", 5},
		{"integral float", `{"sql":"SELECT 1","maxRows":5.0}`, "SELECT 1", 5},
		{"upper bound", `{"sql":"SELECT 1","maxRows":10000}`, "SELECT 1", 10000},
		{"unknown fields ignored", `{"sql":"SELECT 1","extra":true}`, "SELECT 1", model.DefaultMaxRows},
		{"sql kept verbatim", `{"sql":"  select *\nfrom t  "}`, "  select *\nfrom t  ", model.DefaultMaxRows},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ValidateQueryRequest([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, req.SQL)
			assert.Equal(t, tt.wantMaxRows, req.MaxRows)
		})
	}
}

func TestValidateQueryRequest_SQLLengthCountsCharacters(t *testing.T) {
	sql := strings.Repeat("é", model.MaxSQLLength)
	req, err := ValidateQueryRequest([]byte(`{"sql":"` + sql + `"}`))
	require.NoError(t, err)
	assert.Equal(t, sql, req.SQL)
}

func TestValidateQueryRequest_Invalid(t *testing.T) {
	tooLong := strings.Repeat("a", model.MaxSQLLength+1)

	tests := []struct {
		name       string
		body       string
		wantFields []string
	}{
		{"empty sql", `{"sql":""}`, []string{"sql"}},
		{"missing sql", `{"maxRows":10}`, []string{"sql"}},
		{"null sql", `{"sql":null}`, []string{"sql"}},
		{"numeric sql", `{"sql":42}`, []string{"sql"}},
		{"sql too long", `{"sql":"` + tooLong + `"}`, []string{"sql"}},
		{"zero maxRows", `{"sql":"SELECT 1","maxRows":0}`, []string{"maxRows"}},
		{"negative maxRows", `{"sql":"SELECT 1","maxRows":-3}`, []string{"maxRows"}},
		{"maxRows too large", `{"sql":"SELECT 1","maxRows":10001}`, []string{"maxRows"}},
		{"huge maxRows", `{"sql":"SELECT 1","maxRows":1e20}`, []string{"maxRows"}},
		{"fractional maxRows", `{"sql":"SELECT 1","maxRows":2.5}`, []string{"maxRows"}},
		{"string maxRows", `{"sql":"SELECT 1","maxRows":"5"}`, []string{"maxRows"}},
		{"null maxRows", `{"sql":"SELECT 1","maxRows":null}`, []string{"maxRows"}},
		{"every field wrong", `{"sql":"","maxRows":0}`, []string{"sql", "maxRows"}},
		{"type and range together", `{"sql":7,"maxRows":20000}`, []string{"sql", "maxRows"}},
		{"not an object", `["SELECT 1"]`, []string{"body"}},
		{"not json", `SELECT 1`, []string{"body"}},
		{"json null", `null`, []string{"body"}},
		{"empty body", ``, []string{"body"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ValidateQueryRequest([]byte(tt.body))
			assert.Nil(t, req)
			assert.Equal(t, tt.wantFields, violationFields(t, err))
		})
	}
}

func TestValidateQueryRequest_MessageEnumeratesViolations(t *testing.T) {
	_, err := ValidateQueryRequest([]byte(`{"sql":"","maxRows":0}`))
	require.Error(t, err)

	msg := utils.AsAppError(err).Message
	assert.Contains(t, msg, "sql: must contain at least 1 character(s)")
	assert.Contains(t, msg, "maxRows: must be greater than or equal to 1")
	assert.Less(t, strings.Index(msg, "sql:"), strings.Index(msg, "maxRows:"))
}

func TestValidatePathParams(t *testing.T) {
	require.NoError(t, ValidatePathParams(&model.TableRef{DatasetID: "sales", TableID: "orders"}))

	err := ValidatePathParams(&model.TableRef{DatasetID: "sales"})
	assert.Equal(t, []string{"tableId"}, violationFields(t, err))

	err = ValidatePathParams(&model.DatasetRef{DatasetID: strings.Repeat("d", 1025)})
	assert.Equal(t, []string{"datasetId"}, violationFields(t, err))
}
