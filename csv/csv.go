package csv

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/azure/cidr-lookup/types"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	namespaceFolder = ".azure-cidr-lookup"
	moduleFolder    = "cidr-lookup"
	baseFileName    = "results"
)

// DeriveColumns returns the union of all keys across all rows, sorted
// lexicographically. Rows from different resource types may carry different
// key sets, so the column set is derived rather than fixed.
func DeriveColumns(rows []types.GraphRow) []string {
	seen := map[string]bool{}
	columns := []string{}
	for _, row := range rows {
		for key := range row {
			if seen[key] {
				continue
			}
			seen[key] = true
			columns = append(columns, key)
		}
	}
	sort.Strings(columns)
	return columns
}

// Render serializes rows to CSV text: one header line of quoted column names,
// one line per row with quoted values in column order. Missing values render
// as empty quoted fields, object values as their JSON form, and embedded
// quotes are doubled.
func Render(rows []types.GraphRow, columns []string) string {
	var builder strings.Builder
	writeRecord(&builder, columns)
	builder.WriteString(renderRows(rows, columns))
	return builder.String()
}

func renderRows(rows []types.GraphRow, columns []string) string {
	var builder strings.Builder
	for _, row := range rows {
		fields := make([]string, len(columns))
		for i, column := range columns {
			fields[i] = formatValue(row[column])
		}
		writeRecord(&builder, fields)
	}
	return builder.String()
}

func writeRecord(builder *strings.Builder, fields []string) {
	for i, field := range fields {
		if i > 0 {
			builder.WriteString(",")
		}
		builder.WriteString(`"`)
		builder.WriteString(strings.ReplaceAll(field, `"`, `""`))
		builder.WriteString(`"`)
	}
	builder.WriteString("\n")
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, []any:
		serialized, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(serialized)
	default:
		return fmt.Sprintf("%v", v)
	}
}

type IExportClient interface {
	Export(result *types.LookupResult) (string, error)
}

// ExportClient writes lookup results as timestamped CSV files under the
// workspace folder.
type ExportClient struct {
	WorkspaceFolderPath string
	Logger              *logrus.Logger
	Now                 func() time.Time
}

func NewExportClient(workspaceFolderPath string, logger *logrus.Logger) *ExportClient {
	return &ExportClient{
		WorkspaceFolderPath: workspaceFolderPath,
		Logger:              logger,
		Now:                 time.Now,
	}
}

// Export writes the result to
// <workspace>/.azure-cidr-lookup/cidr-lookup/results-<YYYY-MM-DD_HH-MM>.csv
// and returns the file path. A same-minute repeat export appends rows to the
// existing file without a second header. The workspace .gitignore gets the
// namespace folder entry appended when not already present.
func (client *ExportClient) Export(result *types.LookupResult) (string, error) {
	if result == nil {
		return "", types.ErrNoLookupResult
	}

	exportFolder := filepath.Join(client.WorkspaceFolderPath, namespaceFolder, moduleFolder)
	if err := os.MkdirAll(exportFolder, 0o755); err != nil {
		return "", errors.Wrapf(err, "creating export folder %s", exportFolder)
	}

	fileName := fmt.Sprintf("%s-%s.csv", baseFileName, client.Now().Format("2006-01-02_15-04"))
	filePath := filepath.Join(exportFolder, fileName)

	_, statErr := os.Stat(filePath)
	fileExists := statErr == nil

	content := Render(result.Rows, result.Columns)
	if fileExists {
		content = renderRows(result.Rows, result.Columns)
	}

	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", errors.Wrapf(err, "opening export file %s", filePath)
	}
	defer file.Close()

	if _, err := file.WriteString(content); err != nil {
		return "", errors.Wrapf(err, "writing export file %s", filePath)
	}

	if err := client.ensureGitignoreEntry(); err != nil {
		client.Logger.Warnf("Could not update .gitignore: %v", err)
	}

	client.Logger.Infof("Results written to %s", filePath)
	return filePath, nil
}

func (client *ExportClient) ensureGitignoreEntry() error {
	gitignorePath := filepath.Join(client.WorkspaceFolderPath, ".gitignore")
	entry := namespaceFolder + "/"

	content, err := os.ReadFile(gitignorePath)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "reading .gitignore")
	}

	for _, line := range strings.Split(string(content), "\n") {
		if strings.TrimSpace(line) == entry {
			return nil
		}
	}

	file, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "opening .gitignore")
	}
	defer file.Close()

	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		entry = "\n" + entry
	}
	_, err = file.WriteString(entry + "\n")
	return errors.Wrap(err, "appending to .gitignore")
}
