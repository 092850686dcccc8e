package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/courtstats/tennis-predict/internal/models"
)

// TargetColumn is the label column appended after the features.
const TargetColumn = "target"

// WriteCSV writes ds with a header of feature names followed by target.
func WriteCSV(w io.Writer, ds *models.Dataset) error {
	cw := csv.NewWriter(w)

	header := append(append([]string(nil), models.FeatureNames[:]...), TargetColumn)
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for i := range ds.Features {
		for j, v := range ds.Features[i] {
			record[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		record[len(record)-1] = strconv.Itoa(ds.Labels[i])
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes ds to path, creating parent directories.
func WriteCSVFile(path string, ds *models.Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create dataset directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dataset file: %w", err)
	}
	if err := WriteCSV(f, ds); err != nil {
		f.Close()
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	return f.Close()
}
