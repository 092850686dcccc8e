package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/courtstats/tennis-predict/internal/models"
	"github.com/courtstats/tennis-predict/internal/stats"
)

const sqliteDateLayout = "2006-01-02"

const localSchema = `
CREATE TABLE IF NOT EXISTS player_ratings (
	player_id   TEXT PRIMARY KEY,
	tour        TEXT NOT NULL,
	elo         REAL NOT NULL,
	elo_clay    REAL NOT NULL,
	elo_grass   REAL NOT NULL,
	elo_hard    REAL NOT NULL,
	elo_carpet  REAL NOT NULL,
	matches     INTEGER NOT NULL,
	last_played TEXT,
	run_id      TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS match_elo_snapshots (
	tour               TEXT NOT NULL,
	tourney_id         TEXT NOT NULL,
	match_num          INTEGER NOT NULL,
	match_date         TEXT NOT NULL,
	winner_id          TEXT NOT NULL,
	loser_id           TEXT NOT NULL,
	winner_elo         REAL NOT NULL,
	loser_elo          REAL NOT NULL,
	winner_surface_elo REAL NOT NULL,
	loser_surface_elo  REAL NOT NULL,
	run_id             TEXT NOT NULL,
	PRIMARY KEY (tour, tourney_id, match_num)
);`

// LocalRatings keeps the same ratings tables as RatingsWriter in a SQLite
// file, for runs without a Postgres server.
type LocalRatings struct {
	db     *sql.DB
	runID  string
	logger *zap.SugaredLogger
	now    func() time.Time
}

// OpenLocalRatings opens (or creates) the database at path and its schema.
func OpenLocalRatings(path, runID string, logger *zap.Logger) (*LocalRatings, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(localSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create local schema: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalRatings{db: db, runID: runID, logger: logger.Sugar(), now: time.Now}, nil
}

func (l *LocalRatings) Close() error {
	return l.db.Close()
}

// Write upserts player ratings and match snapshots in a single transaction.
func (l *LocalRatings) Write(ctx context.Context, store *stats.Store, tourOf map[string]string, matches []*models.MatchRecord) error {
	start := time.Now()
	err := l.write(ctx, store, tourOf, matches)
	batchInsertDuration.WithLabelValues("sqlite").Observe(time.Since(start).Seconds())
	if err != nil {
		exportFailures.WithLabelValues("sqlite").Inc()
		return err
	}
	return nil
}

func (l *LocalRatings) write(ctx context.Context, store *stats.Store, tourOf map[string]string, matches []*models.MatchRecord) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmtPlayers, err := tx.PrepareContext(ctx, `
		INSERT INTO player_ratings (player_id, tour, elo, elo_clay, elo_grass, elo_hard, elo_carpet, matches, last_played, run_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(player_id) DO UPDATE SET
			tour = excluded.tour, elo = excluded.elo, elo_clay = excluded.elo_clay,
			elo_grass = excluded.elo_grass, elo_hard = excluded.elo_hard, elo_carpet = excluded.elo_carpet,
			matches = excluded.matches, last_played = excluded.last_played,
			run_id = excluded.run_id, updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare player_ratings statement: %w", err)
	}
	defer stmtPlayers.Close()

	now := l.now().UTC().Format(time.RFC3339)
	players := 0
	for _, id := range store.IDs() {
		p, _ := store.Player(id)
		var last any
		if d, ok := p.LastPlayed(); ok {
			last = d.Format(sqliteDateLayout)
		}
		if _, err := stmtPlayers.ExecContext(ctx, id, tourOf[id], p.Elo(),
			p.SurfaceElo(models.SurfaceClay),
			p.SurfaceElo(models.SurfaceGrass),
			p.SurfaceElo(models.SurfaceHard),
			p.SurfaceElo(models.SurfaceCarpet),
			p.Matches(), last, l.runID, now); err != nil {
			return fmt.Errorf("failed to insert player_ratings: %w", err)
		}
		players++
	}

	stmtSnapshots, err := tx.PrepareContext(ctx, `
		INSERT INTO match_elo_snapshots (tour, tourney_id, match_num, match_date, winner_id, loser_id, winner_elo, loser_elo, winner_surface_elo, loser_surface_elo, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tour, tourney_id, match_num) DO UPDATE SET
			match_date = excluded.match_date, winner_id = excluded.winner_id, loser_id = excluded.loser_id,
			winner_elo = excluded.winner_elo, loser_elo = excluded.loser_elo,
			winner_surface_elo = excluded.winner_surface_elo, loser_surface_elo = excluded.loser_surface_elo,
			run_id = excluded.run_id
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare match_elo_snapshots statement: %w", err)
	}
	defer stmtSnapshots.Close()

	snapshots := 0
	for _, m := range matches {
		snap, ok := m.PreMatchElo()
		if !ok {
			continue
		}
		if _, err := stmtSnapshots.ExecContext(ctx, m.Tour, m.TourneyID, m.MatchNum, m.Date.Format(sqliteDateLayout),
			m.WinnerID, m.LoserID,
			snap.WinnerElo, snap.LoserElo, snap.WinnerSurfaceElo, snap.LoserSurfaceElo,
			l.runID); err != nil {
			return fmt.Errorf("failed to insert match_elo_snapshots: %w", err)
		}
		snapshots++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	rowsExported.WithLabelValues("sqlite").Add(float64(players + snapshots))
	l.logger.Infow("Exported local ratings", "players", players, "matches", snapshots)
	return nil
}
