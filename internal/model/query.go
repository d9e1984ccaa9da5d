package model

const (
	// DefaultMaxRows is applied when a query request omits maxRows.
	DefaultMaxRows = 1000
	// MaxSQLLength bounds the SQL text in characters.
	MaxSQLLength = 10000
)

// QueryRequest represents a validated query execution request.
// SQL is forwarded verbatim to the warehouse.
type QueryRequest struct {
	SQL     string `json:"sql" validate:"min=1,max=10000"`
	MaxRows int    `json:"maxRows" validate:"min=1,max=10000"`
}

// ApplyDefaults fills optional fields
func (r *QueryRequest) ApplyDefaults() {
	if r.MaxRows == 0 {
		r.MaxRows = DefaultMaxRows
	}
}

// Row is one warehouse-defined record keyed by column name.
type Row map[string]interface{}

// QueryResponse represents the response for a query execution
type QueryResponse struct {
	Rows []Row `json:"rows"`
	// TotalRows carries the job's total bytes processed.
	TotalRows *string `json:"totalRows,omitempty"`
	JobID     string  `json:"jobId"`
}
