package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/courtstats/tennis-predict/internal/models"
)

// DatasetSheet is the worksheet WriteXLSXFile puts the rows on.
const DatasetSheet = "dataset"

// WriteXLSXFile writes ds as a spreadsheet with the same columns as
// WriteCSV, creating parent directories.
func WriteXLSXFile(path string, ds *models.Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create dataset directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", DatasetSheet); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(DatasetSheet)
	if err != nil {
		return fmt.Errorf("failed to open sheet writer: %w", err)
	}

	header := make([]any, 0, models.NumFeatures+1)
	for _, name := range models.FeatureNames {
		header = append(header, name)
	}
	header = append(header, TargetColumn)
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	row := make([]any, models.NumFeatures+1)
	for i := range ds.Features {
		for j, v := range ds.Features[i] {
			row[j] = v
		}
		row[models.NumFeatures] = ds.Labels[i]

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	rowsExported.WithLabelValues("xlsx").Add(float64(ds.Len()))
	return nil
}
