package httpapi

import (
	"bytes"
	"fmt"

	"sensors-api/internal/domain"

	"github.com/xuri/excelize/v2"
)

const sensorsSheet = "Sensors"

// SensorsExportHeader is the column order of the export.
var SensorsExportHeader = []string{
	"ID",
	"Name",
	"Type",
	"Location",
	"Value",
	"Unit",
	"Status",
	"Last Updated",
	"Created At",
}

var sensorsColumnWidths = []float64{8, 25, 15, 30, 12, 10, 14, 22, 22}

// GenerateSensorsExport renders views as an xlsx workbook. Absent readings leave the cell empty.
func GenerateSensorsExport(views []domain.SensorView) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo needs the file open, so Close is called by hand below.

	index, err := f.NewSheet(sensorsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range SensorsExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sensorsSheet, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sensorsSheet, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sensorsSheet, name, name, sensorsColumnWidths[col]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, v := range views {
		row := i + 2
		values := []any{
			v.ID,
			v.Name,
			string(v.Type),
			v.Location,
			nil,
			nil,
			nil,
			v.LastUpdated.Format("2006-01-02 15:04:05"),
			v.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if v.Value != nil {
			values[4] = *v.Value
		}
		if v.Unit != nil {
			values[5] = *v.Unit
		}
		if v.Status != nil {
			values[6] = string(*v.Status)
		}

		for col, value := range values {
			if value == nil {
				continue
			}
			if err := setCellValue(f, sensorsSheet, col+1, row, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, col+1, err)
			}
		}
	}

	if err := f.SetPanes(sensorsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func setCellValue(f *excelize.File, sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}
