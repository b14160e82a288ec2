package presenter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"posecompare/internal/models"
)

type stubSource struct {
	rows []models.DataRow
	err  error
}

func (s stubSource) FetchHistory(context.Context) ([]models.DataRow, error) {
	return s.rows, s.err
}

func numberedRows(n int) []models.DataRow {
	rows := make([]models.DataRow, 0, n)
	for i := 1; i <= n; i++ {
		rows = append(rows, models.NewDataRow("id", fmt.Sprintf("row%d", i), "distance", "0.5"))
	}
	return rows
}

func TestRender(t *testing.T) {
	tests := []struct {
		name   string
		result models.ComparisonResult
		want   Metrics
	}{
		{
			name:   "excellent match",
			result: models.ComparisonResult{PoseDetected: true, Distance: 0.3, LandmarksCount: 33},
			want: Metrics{
				Distance:     "0.3000",
				PoseDetected: "Yes",
				Accuracy:     "97.0%",
				Quality:      models.QualityExcellent,
				Message:      "Pose detected! Distance: 0.3000, Accuracy: 97.0%. Excellent match!",
			},
		},
		{
			name:   "no pose at infinity",
			result: models.ComparisonResult{PoseDetected: false, Distance: models.Distance(math.Inf(1))},
			want: Metrics{
				Distance:     "∞",
				PoseDetected: "No",
				Accuracy:     "0.0%",
				Quality:      models.QualityPoor,
				Message:      "No pose detected in the current frame. Please ensure you are visible in the camera.",
			},
		},
		{
			name:   "fair match rounds",
			result: models.ComparisonResult{PoseDetected: true, Distance: 1.23456},
			want: Metrics{
				Distance:     "1.2346",
				PoseDetected: "Yes",
				Accuracy:     "87.7%",
				Quality:      models.QualityFair,
				Message:      "Pose detected! Distance: 1.2346, Accuracy: 87.7%. Fair match. Try adjusting your pose.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.result))
		})
	}
}

func TestViewHistoryShowsLastTenNewestFirst(t *testing.T) {
	p := New(stubSource{rows: numberedRows(12)}, nil)

	table, err := p.ViewHistory(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "distance"}, table.Columns)
	require.Len(t, table.Rows, 10)

	var ids []string
	for _, r := range table.Rows {
		ids = append(ids, r[0])
	}
	assert.Equal(t, []string{"row12", "row11", "row10", "row9", "row8", "row7", "row6", "row5", "row4", "row3"}, ids)
	assert.Equal(t, "Showing last 10 entries (most recent first)", table.Footer)
}

func TestViewHistoryFewerThanWindow(t *testing.T) {
	p := New(stubSource{rows: numberedRows(3)}, nil)

	table, err := p.ViewHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, "row3", table.Rows[0][0])
	assert.Equal(t, "row1", table.Rows[2][0])
}

func TestViewHistoryEmpty(t *testing.T) {
	p := New(stubSource{rows: []models.DataRow{}}, nil)

	table, err := p.ViewHistory(context.Background())
	require.NoError(t, err)

	assert.True(t, table.Empty())
	assert.Empty(t, table.Columns)
	assert.Equal(t, "No data available yet. Start capturing poses to see data here.", table.Message)
}

func TestViewHistoryFetchError(t *testing.T) {
	p := New(stubSource{err: errors.New("connection refused")}, nil)

	_, err := p.ViewHistory(context.Background())
	assert.ErrorIs(t, err, ErrFetch)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestViewHistoryRejectsMismatchedRows(t *testing.T) {
	rows := []models.DataRow{
		models.NewDataRow("a", "1", "b", "2"),
		models.NewDataRow("a", "3"),
	}
	p := New(stubSource{rows: rows}, nil)

	_, err := p.ViewHistory(context.Background())
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	_, err = p.ExportHistory(context.Background(), FormatCSV)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestExportCSV(t *testing.T) {
	rows := []models.DataRow{
		models.NewDataRow("a", "1", "b", "2"),
		models.NewDataRow("a", "3", "b", "4"),
	}
	p := New(stubSource{rows: rows}, nil)

	art, err := p.ExportHistory(context.Background(), FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, "a,b\n1,2\n3,4", string(art.Data))
	assert.Equal(t, "pose_comparison_data.csv", art.Name)
	assert.Equal(t, "text/csv", art.MediaType)
}

func TestExportCSVUsesFirstRowColumnOrder(t *testing.T) {
	rows := []models.DataRow{
		models.NewDataRow("b", "2", "a", "1"),
		models.NewDataRow("a", "3", "b", "4"),
	}

	data, err := EncodeCSV(rows, models.Schema{"b", "a"})
	require.NoError(t, err)
	assert.Equal(t, "b,a\n2,1\n4,3", string(data))
}

func TestExportEmptyProducesNoArtifact(t *testing.T) {
	for _, format := range Formats {
		t.Run(string(format), func(t *testing.T) {
			p := New(stubSource{rows: nil}, nil)

			art, err := p.ExportHistory(context.Background(), format)
			assert.ErrorIs(t, err, ErrNoData)
			assert.Equal(t, Artifact{}, art)
		})
	}
}

func TestExportFetchError(t *testing.T) {
	p := New(stubSource{err: errors.New("timeout")}, nil)

	_, err := p.ExportHistory(context.Background(), FormatCSV)
	assert.ErrorIs(t, err, ErrFetch)
}

func TestExportUnknownFormat(t *testing.T) {
	p := New(stubSource{rows: numberedRows(1)}, nil)

	_, err := p.ExportHistory(context.Background(), Format("xlsx"))
	assert.Error(t, err)
}

func TestExportParquet(t *testing.T) {
	p := New(stubSource{rows: numberedRows(4)}, nil)

	art, err := p.ExportHistory(context.Background(), FormatParquet)
	require.NoError(t, err)
	assert.Equal(t, "pose_comparison_data.parquet", art.Name)

	f, err := parquet.OpenFile(bytes.NewReader(art.Data), int64(len(art.Data)))
	require.NoError(t, err)
	assert.Equal(t, int64(4), f.NumRows())
	assert.ElementsMatch(t, [][]string{{"distance"}, {"id"}}, f.Schema().Columns())
}

func TestExportYAMLKeepsOrder(t *testing.T) {
	rows := []models.DataRow{
		models.NewDataRow("timestamp", "2025-01-01T00:00:00", "pose_detected", "True"),
	}
	p := New(stubSource{rows: rows}, nil)

	art, err := p.ExportHistory(context.Background(), FormatYAML)
	require.NoError(t, err)

	text := string(art.Data)
	assert.Less(t, bytes.Index(art.Data, []byte("timestamp")), bytes.Index(art.Data, []byte("pose_detected")), text)

	var back []map[string]string
	require.NoError(t, yaml.Unmarshal(art.Data, &back))
	assert.Equal(t, "True", back[0]["pose_detected"])
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestRowsForTable(t *testing.T) {
	table := BuildTable(numberedRows(2), models.Schema{"id", "distance"})
	rows, schema := RowsForTable(table)

	assert.Equal(t, models.Schema{"id", "distance"}, schema)
	require.Len(t, rows, 2)
	assert.Equal(t, "row2", rows[0].Cell("id"))
}
