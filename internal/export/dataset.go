package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/courtstats/tennis-predict/internal/models"
)

// DefaultDatasetTable is the ClickHouse table holding labelled rows.
const DefaultDatasetTable = "tennis.training_rows"

// DatasetWriter batch-inserts labelled feature rows into ClickHouse.
type DatasetWriter struct {
	conn      driver.Conn
	table     string
	runID     string
	batchSize int
	logger    *zap.SugaredLogger
}

// NewDatasetWriter creates a writer that stamps rows with runID.
func NewDatasetWriter(conn driver.Conn, runID string, batchSize int, logger *zap.Logger) *DatasetWriter {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DatasetWriter{
		conn:      conn,
		table:     DefaultDatasetTable,
		runID:     runID,
		batchSize: batchSize,
		logger:    logger.Sugar(),
	}
}

func datasetColumns() []string {
	cols := []string{"run_id", "row_index", "target"}
	return append(cols, models.FeatureNames[:]...)
}

// EnsureTable creates the dataset table if it does not exist.
func (w *DatasetWriter) EnsureTable(ctx context.Context) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE TABLE IF NOT EXISTS %s (\n\trun_id String,\n\trow_index UInt32,\n\ttarget UInt8", w.table)
	for _, name := range models.FeatureNames {
		fmt.Fprintf(&sb, ",\n\t%s Float64", name)
	}
	sb.WriteString("\n) ENGINE = MergeTree ORDER BY (run_id, row_index)")

	if err := w.conn.Exec(ctx, sb.String()); err != nil {
		return fmt.Errorf("failed to create %s: %w", w.table, err)
	}
	return nil
}

// Write inserts every row of ds, sending a batch every batchSize rows.
// Row indexes follow dataset order so the chronological split can be
// reproduced downstream.
func (w *DatasetWriter) Write(ctx context.Context, ds *models.Dataset) (int, error) {
	insert := fmt.Sprintf("INSERT INTO %s (%s)", w.table, strings.Join(datasetColumns(), ", "))

	written := 0
	for start := 0; start < ds.Len(); start += w.batchSize {
		end := min(start+w.batchSize, ds.Len())
		if err := w.sendBatch(ctx, insert, ds, start, end); err != nil {
			exportFailures.WithLabelValues("clickhouse").Inc()
			w.logger.Errorw("Failed to send dataset batch", "start", start, "rows", end-start, "error", err)
			return written, err
		}
		written += end - start
		rowsExported.WithLabelValues("clickhouse").Add(float64(end - start))
	}

	w.logger.Infow("Exported dataset", "table", w.table, "rows", written)
	return written, nil
}

func (w *DatasetWriter) sendBatch(ctx context.Context, insert string, ds *models.Dataset, start, end int) error {
	begin := time.Now()
	defer func() {
		batchInsertDuration.WithLabelValues("clickhouse").Observe(time.Since(begin).Seconds())
	}()

	batch, err := w.conn.PrepareBatch(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	args := make([]any, 0, 3+models.NumFeatures)
	for i := start; i < end; i++ {
		args = append(args[:0], w.runID, uint32(i), uint8(ds.Labels[i]))
		for _, v := range ds.Features[i] {
			args = append(args, v)
		}
		if err := batch.Append(args...); err != nil {
			batch.Abort()
			return fmt.Errorf("append row %d: %w", i, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}
