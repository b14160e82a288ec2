package presenter

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"posecompare/internal/models"
)

var (
	ErrFetch  = errors.New("failed to fetch comparison history")
	ErrNoData = errors.New("no data available to download")

	ErrSchemaMismatch = models.ErrSchemaMismatch
)

const (
	historyWindow = 10

	noDataMessage = "No data available yet. Start capturing poses to see data here."
	windowFooter  = "Showing last 10 entries (most recent first)"
)

type HistorySource interface {
	FetchHistory(ctx context.Context) ([]models.DataRow, error)
}

// Table is the rendered history view. With no rows, Columns is empty and
// Message explains why.
type Table struct {
	Columns []string
	Rows    [][]string
	Message string
	Footer  string
}

func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

type Presenter struct {
	source HistorySource
	log    *zap.Logger
}

func New(source HistorySource, log *zap.Logger) *Presenter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Presenter{source: source, log: log}
}

// fetch returns the batch and its validated schema.
func (p *Presenter) fetch(ctx context.Context) ([]models.DataRow, models.Schema, error) {
	rows, err := p.source.FetchHistory(ctx)
	if err != nil {
		p.log.Warn("history fetch failed", zap.Error(err))
		return nil, nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	schema, err := models.InferSchema(rows)
	if err != nil {
		p.log.Error("history rejected", zap.Int("rows", len(rows)), zap.Error(err))
		return nil, nil, err
	}

	return rows, schema, nil
}

// ViewHistory shows the last ten records, most recent first.
func (p *Presenter) ViewHistory(ctx context.Context) (Table, error) {
	rows, schema, err := p.fetch(ctx)
	if err != nil {
		return Table{}, err
	}

	return BuildTable(rows, schema), nil
}

func BuildTable(rows []models.DataRow, schema models.Schema) Table {
	if len(rows) == 0 {
		return Table{Message: noDataMessage}
	}

	start := max(len(rows)-historyWindow, 0)
	window := rows[start:]

	t := Table{
		Columns: append([]string(nil), schema...),
		Rows:    make([][]string, 0, len(window)),
		Footer:  windowFooter,
	}

	for i := len(window) - 1; i >= 0; i-- {
		t.Rows = append(t.Rows, cells(window[i], schema))
	}

	return t
}

func cells(row models.DataRow, schema models.Schema) []string {
	out := make([]string, len(schema))
	for i, col := range schema {
		out[i] = row.Cell(col)
	}
	return out
}

// ExportHistory serialises the whole history. An empty history yields
// ErrNoData and no artifact.
func (p *Presenter) ExportHistory(ctx context.Context, format Format) (Artifact, error) {
	enc, ok := encoders[format]
	if !ok {
		return Artifact{}, fmt.Errorf("unsupported export format %q", format)
	}

	rows, schema, err := p.fetch(ctx)
	if err != nil {
		return Artifact{}, err
	}

	if len(rows) == 0 {
		return Artifact{}, ErrNoData
	}

	data, err := enc.encode(rows, schema)
	if err != nil {
		return Artifact{}, fmt.Errorf("encode %s: %w", format, err)
	}

	p.log.Info("history exported", zap.String("format", string(format)), zap.Int("rows", len(rows)))

	return Artifact{
		Name:      exportBaseName + "." + string(format),
		MediaType: enc.mediaType,
		Data:      data,
	}, nil
}
