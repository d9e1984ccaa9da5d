package model

// Dataset is a dataset in the configured project.
type Dataset struct {
	ID       string  `json:"id"`
	Location *string `json:"location,omitempty"`
}

// TableSummary is a table scoped to one dataset.
type TableSummary struct {
	ID   string  `json:"id"`
	Type *string `json:"type,omitempty"`
}

// CatalogEntry is a table tagged with its parent dataset.
type CatalogEntry struct {
	ID        string  `json:"id"`
	DatasetID string  `json:"datasetId"`
	Location  *string `json:"location,omitempty"`
	Type      *string `json:"type,omitempty"`
}

// Table modes reported in a schema.
const (
	ModeNullable = "NULLABLE"
	ModeRequired = "REQUIRED"
	ModeRepeated = "REPEATED"
)

// SchemaField describes one column. Fields is set for RECORD columns.
type SchemaField struct {
	Name        string        `json:"name"`
	Type        string        `json:"type"`
	Mode        string        `json:"mode"`
	Description string        `json:"description,omitempty"`
	Fields      []SchemaField `json:"fields,omitempty"`
}

// TableSchema is the schema and storage statistics of one table.
type TableSchema struct {
	TableID   string        `json:"tableId"`
	DatasetID string        `json:"datasetId"`
	Schema    []SchemaField `json:"schema"`
	NumRows   *uint64       `json:"numRows,omitempty"`
	NumBytes  *int64        `json:"numBytes,omitempty"`
}

// CatalogResponse is the flattened catalog of a project.
type CatalogResponse struct {
	ProjectID string         `json:"projectId"`
	Tables    []CatalogEntry `json:"tables"`
}

// DatasetsResponse lists the datasets of a project.
type DatasetsResponse struct {
	ProjectID string    `json:"projectId"`
	Datasets  []Dataset `json:"datasets"`
}

// TablesResponse lists the tables of one dataset.
type TablesResponse struct {
	DatasetID string         `json:"datasetId"`
	Tables    []TableSummary `json:"tables"`
}

// TableRef identifies a table in path parameters.
type TableRef struct {
	DatasetID string `uri:"datasetId" validate:"required,max=1024"`
	TableID   string `uri:"tableId" validate:"required,max=1024"`
}

// DatasetRef identifies a dataset in path parameters.
type DatasetRef struct {
	DatasetID string `uri:"datasetId" validate:"required,max=1024"`
}
