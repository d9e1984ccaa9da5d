package warehouses

import (
	"math"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"query-gateway/internal/database/drivers"
	"query-gateway/internal/model"
)

// BigQueryTypeMapper converts BigQuery values and schemas into the
// gateway's JSON-friendly model.
type BigQueryTypeMapper struct{}

// NewBigQueryTypeMapper creates a new BigQuery type mapper
func NewBigQueryTypeMapper() *BigQueryTypeMapper {
	return &BigQueryTypeMapper{}
}

// ConvertRow keys a row by column name, normalizing each value
func (m *BigQueryTypeMapper) ConvertRow(values []bigquery.Value, schema bigquery.Schema) model.Row {
	row := make(model.Row, len(schema))
	for i, field := range schema {
		if i >= len(values) {
			row[field.Name] = nil
			continue
		}
		row[field.Name] = m.ConvertValue(values[i], field)
	}
	return row
}

// ConvertValue converts a single BigQuery value into a value encoding/json
// can marshal without loss of meaning.
func (m *BigQueryTypeMapper) ConvertValue(value bigquery.Value, field *bigquery.FieldSchema) interface{} {
	if value == nil {
		return nil
	}

	if field.Repeated {
		items, ok := value.([]bigquery.Value)
		if !ok {
			return value
		}
		element := *field
		element.Repeated = false
		out := make([]interface{}, len(items))
		for i, item := range items {
			out[i] = m.ConvertValue(item, &element)
		}
		return out
	}

	switch field.Type {
	case bigquery.RecordFieldType:
		if fields, ok := value.([]bigquery.Value); ok {
			return m.ConvertRow(fields, field.Schema)
		}
	case bigquery.NumericFieldType:
		if r, ok := value.(*big.Rat); ok {
			return bigquery.NumericString(r)
		}
	case bigquery.BigNumericFieldType:
		if r, ok := value.(*big.Rat); ok {
			return bigquery.BigNumericString(r)
		}
	case bigquery.FloatFieldType:
		if f, ok := value.(float64); ok {
			return convertFloat(f)
		}
	case bigquery.TimestampFieldType:
		if t, ok := value.(time.Time); ok {
			return t.UTC().Format(time.RFC3339Nano)
		}
	case bigquery.DateFieldType:
		if d, ok := value.(civil.Date); ok {
			return d.String()
		}
	case bigquery.TimeFieldType:
		if t, ok := value.(civil.Time); ok {
			return bigquery.CivilTimeString(t)
		}
	case bigquery.DateTimeFieldType:
		if dt, ok := value.(civil.DateTime); ok {
			return bigquery.CivilDateTimeString(dt)
		}
	case bigquery.IntervalFieldType:
		if iv, ok := value.(*bigquery.IntervalValue); ok {
			return iv.String()
		}
	case bigquery.RangeFieldType:
		if rv, ok := value.(*bigquery.RangeValue); ok {
			return m.convertRange(rv, field)
		}
	}

	return value
}

func (m *BigQueryTypeMapper) convertRange(rv *bigquery.RangeValue, field *bigquery.FieldSchema) map[string]interface{} {
	bound := &bigquery.FieldSchema{Name: field.Name}
	if field.RangeElementType != nil {
		bound.Type = field.RangeElementType.Type
	}
	return map[string]interface{}{
		"start": m.ConvertValue(rv.Start, bound),
		"end":   m.ConvertValue(rv.End, bound),
	}
}

// encoding/json rejects NaN and infinities.
func convertFloat(f float64) interface{} {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	default:
		return f
	}
}

// ConvertSchema maps a BigQuery schema to schema fields, recursing into
// RECORD columns.
func (m *BigQueryTypeMapper) ConvertSchema(schema bigquery.Schema) []model.SchemaField {
	fields := make([]model.SchemaField, 0, len(schema))
	for _, f := range schema {
		if f == nil {
			continue
		}
		field := model.SchemaField{
			Name:        f.Name,
			Type:        string(f.Type),
			Mode:        fieldMode(f),
			Description: f.Description,
		}
		if len(f.Schema) > 0 {
			field.Fields = m.ConvertSchema(f.Schema)
		}
		fields = append(fields, field)
	}
	return fields
}

// ConvertTableMetadata keeps storage statistics only for table types that
// report them.
func (m *BigQueryTypeMapper) ConvertTableMetadata(meta *bigquery.TableMetadata) *drivers.TableMetadata {
	out := &drivers.TableMetadata{Schema: m.ConvertSchema(meta.Schema)}

	switch meta.Type {
	case bigquery.RegularTable, bigquery.Snapshot, "":
		numRows := meta.NumRows
		numBytes := meta.NumBytes
		out.NumRows = &numRows
		out.NumBytes = &numBytes
	}

	return out
}

func fieldMode(f *bigquery.FieldSchema) string {
	switch {
	case f.Repeated:
		return model.ModeRepeated
	case f.Required:
		return model.ModeRequired
	default:
		return model.ModeNullable
	}
}
