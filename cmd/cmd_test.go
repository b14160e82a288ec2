package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"posecompare/internal/config"
	"posecompare/internal/presenter"
	"posecompare/processing/capture"
)

func newTestApp(t *testing.T, handler http.HandlerFunc) *app {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.NewDefaultConfig()
	cfg.SetBackendURL(srv.URL)
	cfg.ExportDir = t.TempDir()

	a := &app{}
	a.wire(cfg, zaptest.NewLogger(t))
	t.Cleanup(a.close)

	return a
}

func historyHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

const twoRows = `{"data":[{"timestamp":"t1","distance":"0.2"},{"timestamp":"t2","distance":"inf"}]}`

func TestHistoryTable(t *testing.T) {
	a := newTestApp(t, historyHandler(twoRows))

	out, err := run(t, newHistoryCmd(a))
	require.NoError(t, err)

	assert.Contains(t, out, "timestamp")
	assert.Contains(t, out, "Showing last 10 entries (most recent first)")
	assert.Less(t, bytes.Index([]byte(out), []byte("t2")), bytes.Index([]byte(out), []byte("t1")))
}

func TestHistoryEmpty(t *testing.T) {
	a := newTestApp(t, historyHandler(`{"data":[]}`))

	out, err := run(t, newHistoryCmd(a))
	require.NoError(t, err)
	assert.Contains(t, out, "No data available yet")
}

func TestHistoryRejectsUnknownOutput(t *testing.T) {
	a := newTestApp(t, historyHandler(twoRows))

	_, err := run(t, newHistoryCmd(a), "--output", "xml")
	assert.Error(t, err)
}

func TestExportWritesCSV(t *testing.T) {
	a := newTestApp(t, historyHandler(twoRows))

	_, err := run(t, newExportCmd(a), "--format", "csv")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(a.cfg.ExportDir, "pose_comparison_data.csv"))
	require.NoError(t, err)
	assert.Equal(t, "timestamp,distance\nt1,0.2\nt2,inf", string(data))
}

func TestExportEmptyFailsWithoutWriting(t *testing.T) {
	a := newTestApp(t, historyHandler(`{"data":[]}`))

	_, err := run(t, newExportCmd(a), "--format", "parquet")
	assert.ErrorIs(t, err, presenter.ErrNoData)

	entries, err := os.ReadDir(a.cfg.ExportDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUploadPrintsLandmarks(t *testing.T) {
	a := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"ok","landmarks_count":33}`))
	})

	img := filepath.Join(t.TempDir(), "ref.png")
	require.NoError(t, os.WriteFile(img, []byte("not really a png"), 0o644))

	out, err := run(t, newUploadCmd(a), img)
	require.NoError(t, err)
	assert.Contains(t, out, "33 landmarks detected")
	assert.True(t, a.gate.IsOpen())
}

func TestCompareNeedsReference(t *testing.T) {
	a := newTestApp(t, historyHandler(`{}`))

	_, err := run(t, newCompareCmd(a))
	assert.ErrorIs(t, err, capture.ErrNoReference)
	assert.False(t, a.session.State().Active)
}

func TestRootRegistersSubcommands(t *testing.T) {
	root := NewRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}

	assert.Subset(t, names, []string{"gui", "upload", "compare", "history", "export", "cameras"})
}
