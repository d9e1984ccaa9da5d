// Package validation turns untyped request input into validated model types.
//
// Raw JSON never travels past this package: handlers hand over the body
// bytes and receive either a typed request or a ValidationError listing
// every violated constraint.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"query-gateway/internal/model"
	"query-gateway/internal/utils"
)

const (
	fieldBody    = "body"
	fieldSQL     = "sql"
	fieldMaxRows = "maxRows"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "uri"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})
	return v
}

// violations accumulates failures per field and reports them in a stable
// field order.
type violations struct {
	order  []string
	byName map[string][]utils.Violation
}

func newViolations(order ...string) *violations {
	return &violations{order: order, byName: make(map[string][]utils.Violation)}
}

func (v *violations) add(field, message string) {
	v.byName[field] = append(v.byName[field], utils.Violation{Field: field, Message: message})
}

func (v *violations) has(field string) bool {
	return len(v.byName[field]) > 0
}

func (v *violations) addValidatorErrors(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	for _, fe := range fieldErrs {
		v.add(fe.Field(), describe(fe))
	}
	return nil
}

func (v *violations) err() error {
	var out []utils.Violation
	for _, name := range v.order {
		out = append(out, v.byName[name]...)
	}
	if len(out) == 0 {
		return nil
	}
	return utils.NewValidationError(out)
}

// ValidateQueryRequest decodes and validates a query body. Types are
// checked strictly: sql must be a JSON string and maxRows a JSON integer.
func ValidateQueryRequest(body []byte) (*model.QueryRequest, error) {
	vs := newViolations(fieldBody, fieldSQL, fieldMaxRows)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		vs.add(fieldBody, "must be a JSON object")
		return nil, vs.err()
	}

	req := &model.QueryRequest{MaxRows: model.DefaultMaxRows}
	var checked []string

	if sql, ok := raw[fieldSQL]; !ok {
		vs.add(fieldSQL, "is required")
	} else if err := json.Unmarshal(sql, &req.SQL); err != nil || isNull(sql) {
		vs.add(fieldSQL, "must be a string")
	} else {
		checked = append(checked, "SQL")
	}

	if maxRows, ok := raw[fieldMaxRows]; ok {
		n, err := decodeInteger(maxRows)
		if err != nil {
			vs.add(fieldMaxRows, err.Error())
		} else {
			req.MaxRows = n
			checked = append(checked, "MaxRows")
		}
	}

	if len(checked) > 0 {
		if err := vs.addValidatorErrors(validate.StructPartial(req, checked...)); err != nil {
			return nil, utils.NewInternalError(err)
		}
	}

	if err := vs.err(); err != nil {
		return nil, err
	}
	return req, nil
}

// ValidatePathParams validates a struct bound from URI parameters.
func ValidatePathParams(params interface{}) error {
	err := validate.Struct(params)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return utils.NewInternalError(err)
	}
	out := make([]utils.Violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, utils.Violation{Field: fe.Field(), Message: describe(fe)})
	}
	return utils.NewValidationError(out)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// decodeInteger accepts JSON numbers with no fractional part. Values far
// outside the int32 range are clamped so range validation still reports
// them.
func decodeInteger(raw json.RawMessage) (int, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return 0, errors.New("must be an integer")
	}
	num, ok := v.(json.Number)
	if !ok {
		return 0, errors.New("must be an integer")
	}
	if i, err := num.Int64(); err == nil {
		return clamp(float64(i)), nil
	}
	f, err := num.Float64()
	if err != nil || f != math.Trunc(f) {
		return 0, errors.New("must be an integer")
	}
	return clamp(f), nil
}

func clamp(f float64) int {
	return int(math.Max(math.MinInt32, math.Min(math.MaxInt32, f)))
}

func describe(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if isString {
			return fmt.Sprintf("must contain at least %s character(s)", fe.Param())
		}
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("must contain at most %s character(s)", fe.Param())
		}
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	default:
		return fmt.Sprintf("failed the %q constraint", fe.Tag())
	}
}
