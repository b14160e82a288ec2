package presenter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"

	"posecompare/internal/models"
)

type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
	FormatYAML    Format = "yaml"

	exportBaseName = "pose_comparison_data"
)

var Formats = []Format{FormatCSV, FormatParquet, FormatYAML}

// Artifact is a downloadable export. It only exists for non-empty history.
type Artifact struct {
	Name      string
	MediaType string
	Data      []byte
}

type encoder struct {
	mediaType string
	encode    func([]models.DataRow, models.Schema) ([]byte, error)
}

var encoders = map[Format]encoder{
	FormatCSV:     {mediaType: "text/csv", encode: EncodeCSV},
	FormatParquet: {mediaType: "application/vnd.apache.parquet", encode: EncodeParquet},
	FormatYAML:    {mediaType: "application/yaml", encode: EncodeYAML},
}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := encoders[f]; !ok {
		return "", fmt.Errorf("unsupported export format %q (want csv, parquet or yaml)", s)
	}
	return f, nil
}

// EncodeCSV joins values with commas, without quoting: a value that holds a
// comma or newline will shift columns. Lines are joined with "\n" and there
// is no trailing newline.
func EncodeCSV(rows []models.DataRow, schema models.Schema) ([]byte, error) {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, strings.Join(schema, ","))

	for _, row := range rows {
		lines = append(lines, strings.Join(cells(row, schema), ","))
	}

	return []byte(strings.Join(lines, "\n")), nil
}

// EncodeParquet writes every column as a required string.
func EncodeParquet(rows []models.DataRow, schema models.Schema) ([]byte, error) {
	group := parquet.Group{}
	for _, col := range schema {
		group[col] = parquet.String()
	}

	ps := parquet.NewSchema("pose_comparison", group)

	// Leaf order is the schema's, not the history's.
	leaves := ps.Columns()

	out := make([]parquet.Row, 0, len(rows))
	for _, row := range rows {
		prow := make(parquet.Row, len(leaves))
		for i, path := range leaves {
			prow[i] = parquet.ByteArrayValue([]byte(row.Cell(path[0]))).Level(0, 0, i)
		}
		out = append(out, prow)
	}

	var buf bytes.Buffer
	w := parquet.NewWriter(&buf, ps)

	if _, err := w.WriteRows(out); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// EncodeYAML writes a sequence of mappings in schema order.
func EncodeYAML(rows []models.DataRow, schema models.Schema) ([]byte, error) {
	doc := &yaml.Node{Kind: yaml.SequenceNode}

	for _, row := range rows {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for _, col := range schema {
			m.Content = append(m.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: col},
				scalarNode(row.Values[col]),
			)
		}
		doc.Content = append(doc.Content, m)
	}

	return yaml.Marshal(doc)
}

func scalarNode(v any) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode}

	switch val := v.(type) {
	case nil:
		n.Tag, n.Value = "!!null", "null"
	case string:
		n.Tag, n.Value = "!!str", val
	case bool:
		n.Tag, n.Value = "!!bool", fmt.Sprint(val)
	case json.Number:
		n.Value = val.String()
	default:
		n.Value = models.FormatScalar(val)
	}

	return n
}

// RowsForTable rebuilds DataRows from a rendered table so the CLI can print a
// view in any export encoding.
func RowsForTable(t Table) ([]models.DataRow, models.Schema) {
	rows := make([]models.DataRow, 0, len(t.Rows))
	for _, r := range t.Rows {
		row := models.DataRow{}
		for i, col := range t.Columns {
			row.Set(col, r[i])
		}
		rows = append(rows, row)
	}
	return rows, models.Schema(t.Columns)
}
