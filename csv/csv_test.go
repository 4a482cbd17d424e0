package csv

import (
	csvreader "encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/azure/cidr-lookup/types"
	"github.com/sirupsen/logrus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveColumnsSortedUnion(t *testing.T) {
	rows := []types.GraphRow{
		{"a": 1, "b": 2},
		{"b": 3, "c": 4},
	}

	assert.Equal(t, []string{"a", "b", "c"}, DeriveColumns(rows))
}

func TestDeriveColumnsEmptyRows(t *testing.T) {
	assert.Empty(t, DeriveColumns([]types.GraphRow{}))
}

func TestRenderQuotesEveryField(t *testing.T) {
	rows := []types.GraphRow{{"name": "vnet-1", "prefixStr": "10.0.0.0/24"}}

	result := Render(rows, []string{"name", "prefixStr"})

	assert.Equal(t, "\"name\",\"prefixStr\"\n\"vnet-1\",\"10.0.0.0/24\"\n", result)
}

func TestRenderMissingValueIsEmptyField(t *testing.T) {
	rows := []types.GraphRow{{"name": "vnet-1"}}

	result := Render(rows, []string{"location", "name"})

	assert.Equal(t, "\"location\",\"name\"\n\"\",\"vnet-1\"\n", result)
}

func TestRenderSerializesObjectValues(t *testing.T) {
	rows := []types.GraphRow{{"tags": map[string]any{"env": "prod"}}}

	result := Render(rows, []string{"tags"})

	assert.Contains(t, result, `"{""env"":""prod""}"`)
}

func TestRenderRoundTripsEmbeddedQuotes(t *testing.T) {
	original := `He said "hi"`
	rows := []types.GraphRow{{"comment": original}}

	rendered := Render(rows, []string{"comment"})

	records, err := csvreader.NewReader(strings.NewReader(rendered)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, original, records[1][0])
}

func newTestExportClient(t *testing.T) (*ExportClient, string) {
	workspace := t.TempDir()
	client := NewExportClient(workspace, logrus.New())
	client.Now = func() time.Time {
		return time.Date(2026, 8, 23, 14, 30, 0, 0, time.UTC)
	}
	return client, workspace
}

func sampleResult() *types.LookupResult {
	return &types.LookupResult{
		Cidrs:   []string{"10.0.0.0/24"},
		Rows:    []types.GraphRow{{"name": "vnet-1", "prefixStr": "10.0.0.0/24"}},
		Columns: []string{"name", "prefixStr"},
	}
}

func TestExportWritesTimestampedFile(t *testing.T) {
	client, workspace := newTestExportClient(t)

	path, err := client.Export(sampleResult())

	require.NoError(t, err)
	expected := filepath.Join(workspace, ".azure-cidr-lookup", "cidr-lookup", "results-2026-08-23_14-30.csv")
	assert.Equal(t, expected, path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\"name\",\"prefixStr\"\n\"vnet-1\",\"10.0.0.0/24\"\n", string(content))
}

func TestExportSameMinuteAppendsWithoutHeader(t *testing.T) {
	client, _ := newTestExportClient(t)

	_, err := client.Export(sampleResult())
	require.NoError(t, err)
	path, err := client.Export(sampleResult())
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(content), "\"name\",\"prefixStr\""))
	assert.Equal(t, 2, strings.Count(string(content), "\"vnet-1\""))
}

func TestExportNilResult(t *testing.T) {
	client, _ := newTestExportClient(t)

	_, err := client.Export(nil)

	assert.ErrorIs(t, err, types.ErrNoLookupResult)
}

func TestExportAppendsGitignoreEntry(t *testing.T) {
	client, workspace := newTestExportClient(t)

	_, err := client.Export(sampleResult())
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(workspace, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(content), ".azure-cidr-lookup/\n")
}

func TestExportGitignoreEntryIsIdempotent(t *testing.T) {
	client, workspace := newTestExportClient(t)
	gitignorePath := filepath.Join(workspace, ".gitignore")
	require.NoError(t, os.WriteFile(gitignorePath, []byte("node_modules"), 0o644))

	_, err := client.Export(sampleResult())
	require.NoError(t, err)
	_, err = client.Export(sampleResult())
	require.NoError(t, err)

	content, err := os.ReadFile(gitignorePath)
	require.NoError(t, err)
	assert.Equal(t, "node_modules\n.azure-cidr-lookup/\n", string(content))
}
