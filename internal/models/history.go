package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// DataRow is one comparison-history record. Columns are dynamic; Keys keeps
// the order they had in the backend's JSON object.
type DataRow struct {
	Keys   []string
	Values map[string]any
}

func NewDataRow(pairs ...string) DataRow {
	row := DataRow{Values: make(map[string]any, len(pairs)/2)}
	for i := 0; i+1 < len(pairs); i += 2 {
		row.Set(pairs[i], pairs[i+1])
	}
	return row
}

func (r *DataRow) Set(key string, value any) {
	if r.Values == nil {
		r.Values = make(map[string]any)
	}
	if _, ok := r.Values[key]; !ok {
		r.Keys = append(r.Keys, key)
	}
	r.Values[key] = value
}

// Cell returns the formatted value of a column, or "" when it is absent.
func (r DataRow) Cell(key string) string {
	return FormatScalar(r.Values[key])
}

func (r *DataRow) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("data row is not a JSON object")
	}

	*r = DataRow{Values: make(map[string]any)}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key := tok.(string)

		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("column %q: %w", key, err)
		}

		r.Set(key, value)
	}

	_, err = dec.Token()
	return err
}

func (r DataRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, k := range r.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.Values[k])
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FormatScalar renders a JSON scalar the way the history table shows it.
func FormatScalar(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "True"
		}
		return "False"
	default:
		return fmt.Sprint(val)
	}
}

// Schema is the ordered column list of a history batch.
type Schema []string

var ErrSchemaMismatch = errors.New("history rows do not share one schema")

// InferSchema takes the columns of the first row and checks every other row
// carries exactly the same key set.
func InferSchema(rows []DataRow) (Schema, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	schema := Schema(append([]string(nil), rows[0].Keys...))

	for i, row := range rows[1:] {
		if err := schema.Check(row); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
	}

	return schema, nil
}

func (s Schema) Check(row DataRow) error {
	if len(row.Keys) != len(s) {
		return fmt.Errorf("%w: expected %d columns, got %d", ErrSchemaMismatch, len(s), len(row.Keys))
	}

	for _, col := range s {
		if _, ok := row.Values[col]; !ok {
			return fmt.Errorf("%w: missing column %q", ErrSchemaMismatch, col)
		}
	}

	return nil
}
