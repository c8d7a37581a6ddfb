package testhelpers

import (
	"fmt"
	"os"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/pulseboard/insights-engine/pkg/apperrors"
	"github.com/pulseboard/insights-engine/pkg/models"
)

// Cell builds a worksheet cell with only a raw value.
func Cell(raw any) models.CellValue {
	return models.CellValue{Raw: raw}
}

// CellD builds a worksheet cell with a raw value and a display value.
func CellD(raw any, display string) models.CellValue {
	return models.CellValue{Raw: raw, Display: display}
}

// Records builds profiling-branch rows from a column-name header and
// positional value rows. Short rows leave trailing columns absent.
func Records(names []string, rows ...[]any) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		rec := make(map[string]any, len(names))
		for i, name := range names {
			if i < len(row) {
				rec[name] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out
}

// Column repeats one column's values into single-field records.
func Column(name string, values ...any) []map[string]any {
	out := make([]map[string]any, 0, len(values))
	for _, v := range values {
		out = append(out, map[string]any{name: v})
	}
	return out
}

// worksheetFixture is the YAML shape of a worksheet test fixture. Row cells
// are scalars, or {value, display} mappings when a display value matters.
type worksheetFixture struct {
	Columns []struct {
		FieldName string `yaml:"field_name"`
		DataType  string `yaml:"data_type"`
	} `yaml:"columns"`
	Rows [][]yaml.Node `yaml:"rows"`
}

// ParseWorksheetYAML decodes a worksheet fixture.
func ParseWorksheetYAML(data []byte) (models.Worksheet, error) {
	var fx worksheetFixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return models.Worksheet{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidFixture, err)
	}

	ws := models.Worksheet{}
	for _, col := range fx.Columns {
		ws.Columns = append(ws.Columns, models.ColumnDescriptor{
			FieldName: col.FieldName,
			DataType:  col.DataType,
		})
	}
	for _, rowNodes := range fx.Rows {
		row := make(models.Row, 0, len(rowNodes))
		for _, node := range rowNodes {
			cell, err := decodeCell(node)
			if err != nil {
				return models.Worksheet{}, err
			}
			row = append(row, cell)
		}
		ws.Rows = append(ws.Rows, row)
	}
	return ws, nil
}

func decodeCell(node yaml.Node) (models.CellValue, error) {
	if node.Kind == yaml.MappingNode {
		var c struct {
			Value   any    `yaml:"value"`
			Display string `yaml:"display"`
		}
		if err := node.Decode(&c); err != nil {
			return models.CellValue{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidFixture, err)
		}
		return models.CellValue{Raw: c.Value, Display: c.Display}, nil
	}
	var raw any
	if err := node.Decode(&raw); err != nil {
		return models.CellValue{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidFixture, err)
	}
	return models.CellValue{Raw: raw}, nil
}

// LoadWorksheet reads a YAML worksheet fixture from testdata.
func LoadWorksheet(t *testing.T, path string) models.Worksheet {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	ws, err := ParseWorksheetYAML(data)
	if err != nil {
		t.Fatalf("parse fixture %s: %v", path, err)
	}
	return ws
}
