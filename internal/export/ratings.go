// Package export writes pipeline results to Postgres, ClickHouse, object
// storage and local CSV files.
package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/courtstats/tennis-predict/internal/models"
	"github.com/courtstats/tennis-predict/internal/stats"
)

const defaultBatchSize = 500

// maxPgParams is the most bind parameters Postgres accepts in one statement.
const maxPgParams = 65535

const (
	playerCols   = 11
	snapshotCols = 11
)

// PgPool is the subset of the PostgreSQL pool the writers use
type PgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const ratingsSchema = `
CREATE TABLE IF NOT EXISTS player_ratings (
	tour        TEXT NOT NULL,
	player_id   TEXT NOT NULL,
	elo         DOUBLE PRECISION NOT NULL,
	elo_clay    DOUBLE PRECISION NOT NULL,
	elo_grass   DOUBLE PRECISION NOT NULL,
	elo_hard    DOUBLE PRECISION NOT NULL,
	elo_carpet  DOUBLE PRECISION NOT NULL,
	matches     INTEGER NOT NULL,
	last_played DATE,
	run_id      UUID NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (player_id)
);
CREATE TABLE IF NOT EXISTS match_elo_snapshots (
	tour               TEXT NOT NULL,
	tourney_id         TEXT NOT NULL,
	match_num          INTEGER NOT NULL,
	match_date         DATE NOT NULL,
	winner_id          TEXT NOT NULL,
	loser_id           TEXT NOT NULL,
	winner_elo         DOUBLE PRECISION NOT NULL,
	loser_elo          DOUBLE PRECISION NOT NULL,
	winner_surface_elo DOUBLE PRECISION NOT NULL,
	loser_surface_elo  DOUBLE PRECISION NOT NULL,
	run_id             UUID NOT NULL,
	PRIMARY KEY (tour, tourney_id, match_num)
)`

// RatingsWriter upserts final player ratings and per-match pre-match Elo
// snapshots.
type RatingsWriter struct {
	db        PgPool
	runID     string
	batchSize int
	logger    *zap.SugaredLogger
	now       func() time.Time
}

// NewRatingsWriter creates a writer that stamps rows with runID.
func NewRatingsWriter(db PgPool, runID string, batchSize int, logger *zap.Logger) *RatingsWriter {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RatingsWriter{db: db, runID: runID, batchSize: batchSize, logger: logger.Sugar(), now: time.Now}
}

// EnsureSchema creates the ratings tables if they do not exist.
func (w *RatingsWriter) EnsureSchema(ctx context.Context) error {
	if _, err := w.db.Exec(ctx, ratingsSchema); err != nil {
		return fmt.Errorf("failed to create ratings schema: %w", err)
	}
	return nil
}

// WritePlayers upserts one row per player in store, labelled with the tour
// from tourOf. Surfaces a player has never played on report the initial
// rating.
func (w *RatingsWriter) WritePlayers(ctx context.Context, store *stats.Store, tourOf map[string]string) (int, error) {
	ids := store.IDs()
	now := w.now().UTC()

	batch := w.rowsPerStatement(playerCols)
	written := 0
	for start := 0; start < len(ids); start += batch {
		end := min(start+batch, len(ids))

		var sb strings.Builder
		sb.WriteString("INSERT INTO player_ratings (tour, player_id, elo, elo_clay, elo_grass, elo_hard, elo_carpet, matches, last_played, run_id, updated_at) VALUES ")
		vals := make([]any, 0, (end-start)*playerCols)
		for i, id := range ids[start:end] {
			p, _ := store.Player(id)
			if i > 0 {
				sb.WriteString(", ")
			}
			writePlaceholders(&sb, i*playerCols, playerCols)

			var last any
			if d, ok := p.LastPlayed(); ok {
				last = d
			}
			vals = append(vals, tourOf[id], id, p.Elo(),
				p.SurfaceElo(models.SurfaceClay),
				p.SurfaceElo(models.SurfaceGrass),
				p.SurfaceElo(models.SurfaceHard),
				p.SurfaceElo(models.SurfaceCarpet),
				p.Matches(), last, w.runID, now)
		}
		sb.WriteString(` ON CONFLICT (player_id) DO UPDATE SET
			tour = EXCLUDED.tour, elo = EXCLUDED.elo, elo_clay = EXCLUDED.elo_clay, elo_grass = EXCLUDED.elo_grass,
			elo_hard = EXCLUDED.elo_hard, elo_carpet = EXCLUDED.elo_carpet, matches = EXCLUDED.matches,
			last_played = EXCLUDED.last_played, run_id = EXCLUDED.run_id, updated_at = EXCLUDED.updated_at`)

		if err := w.exec(ctx, "player_ratings", sb.String(), vals, end-start); err != nil {
			return written, err
		}
		written += end - start
	}

	w.logger.Infow("Exported player ratings", "players", written)
	return written, nil
}

// PlayerTours maps each player id to the tour of their latest match in
// matches.
func PlayerTours(matches []*models.MatchRecord) map[string]string {
	out := make(map[string]string)
	for _, m := range matches {
		if m == nil {
			continue
		}
		if m.WinnerID != "" {
			out[m.WinnerID] = m.Tour
		}
		if m.LoserID != "" {
			out[m.LoserID] = m.Tour
		}
	}
	return out
}

// WriteSnapshots upserts the pre-match ratings of every match that has been
// through accumulation. Matches without a snapshot are skipped.
func (w *RatingsWriter) WriteSnapshots(ctx context.Context, matches []*models.MatchRecord) (int, error) {
	type snapshotRow struct {
		m    *models.MatchRecord
		snap models.EloSnapshot
	}
	rows := make([]snapshotRow, 0, len(matches))
	for _, m := range matches {
		if snap, ok := m.PreMatchElo(); ok {
			rows = append(rows, snapshotRow{m: m, snap: snap})
		}
	}

	batch := w.rowsPerStatement(snapshotCols)
	written := 0
	for start := 0; start < len(rows); start += batch {
		end := min(start+batch, len(rows))

		var sb strings.Builder
		sb.WriteString("INSERT INTO match_elo_snapshots (tour, tourney_id, match_num, match_date, winner_id, loser_id, winner_elo, loser_elo, winner_surface_elo, loser_surface_elo, run_id) VALUES ")
		vals := make([]any, 0, (end-start)*snapshotCols)
		for i, r := range rows[start:end] {
			if i > 0 {
				sb.WriteString(", ")
			}
			writePlaceholders(&sb, i*snapshotCols, snapshotCols)
			vals = append(vals, r.m.Tour, r.m.TourneyID, r.m.MatchNum, r.m.Date,
				r.m.WinnerID, r.m.LoserID,
				r.snap.WinnerElo, r.snap.LoserElo, r.snap.WinnerSurfaceElo, r.snap.LoserSurfaceElo,
				w.runID)
		}
		sb.WriteString(` ON CONFLICT (tour, tourney_id, match_num) DO UPDATE SET
			match_date = EXCLUDED.match_date, winner_id = EXCLUDED.winner_id, loser_id = EXCLUDED.loser_id,
			winner_elo = EXCLUDED.winner_elo, loser_elo = EXCLUDED.loser_elo,
			winner_surface_elo = EXCLUDED.winner_surface_elo, loser_surface_elo = EXCLUDED.loser_surface_elo,
			run_id = EXCLUDED.run_id`)

		if err := w.exec(ctx, "match_elo_snapshots", sb.String(), vals, end-start); err != nil {
			return written, err
		}
		written += end - start
	}

	w.logger.Infow("Exported Elo snapshots", "matches", written, "withoutSnapshot", len(matches)-len(rows))
	return written, nil
}

// rowsPerStatement is the batch size, lowered so one statement stays within
// the bind parameter limit.
func (w *RatingsWriter) rowsPerStatement(cols int) int {
	return min(w.batchSize, maxPgParams/cols)
}

func (w *RatingsWriter) exec(ctx context.Context, table, sql string, vals []any, rows int) error {
	start := time.Now()
	_, err := w.db.Exec(ctx, sql, vals...)
	batchInsertDuration.WithLabelValues("postgres").Observe(time.Since(start).Seconds())
	if err != nil {
		exportFailures.WithLabelValues("postgres").Inc()
		w.logger.Errorw("Failed to upsert batch", "table", table, "rows", rows, "error", err)
		return fmt.Errorf("failed to upsert %s: %w", table, err)
	}
	rowsExported.WithLabelValues("postgres").Add(float64(rows))
	return nil
}

// writePlaceholders appends "($n+1, ..., $n+cols)".
func writePlaceholders(sb *strings.Builder, n, cols int) {
	sb.WriteByte('(')
	for c := 1; c <= cols; c++ {
		if c > 1 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "$%d", n+c)
	}
	sb.WriteByte(')')
}
