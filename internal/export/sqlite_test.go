package export

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/courtstats/tennis-predict/internal/models"
)

func TestLocalRatingsWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "ratings.db")
	local, err := OpenLocalRatings(path, "run-1", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer local.Close()

	m := models.NewMatchRecord("atp", models.Row{
		"tourney_id": "2024-001", "tourney_date": "20240501", "match_num": "7",
		"winner_id": "A", "loser_id": "B", "surface": "Clay",
	})
	m.SetPreMatchElo(models.EloSnapshot{WinnerElo: 1500, LoserElo: 1500, WinnerSurfaceElo: 1500, LoserSurfaceElo: 1500})
	unrated := models.NewMatchRecord("atp", models.Row{"winner_id": "A", "loser_id": "B"})

	tours := map[string]string{"A": "atp", "B": "atp", "C": "wta"}
	ctx := context.Background()
	if err := local.Write(ctx, ratedStore(t), tours, []*models.MatchRecord{m, unrated}); err != nil {
		t.Fatal(err)
	}
	// A second run overwrites in place.
	if err := local.Write(ctx, ratedStore(t), tours, []*models.MatchRecord{m}); err != nil {
		t.Fatal(err)
	}

	var players int
	if err := local.db.QueryRow("SELECT COUNT(*) FROM player_ratings").Scan(&players); err != nil {
		t.Fatal(err)
	}
	if players != 3 {
		t.Errorf("players = %d, want 3", players)
	}

	var (
		elo  float64
		last sql.NullString
	)
	if err := local.db.QueryRow("SELECT elo_clay, last_played FROM player_ratings WHERE player_id = 'A'").Scan(&elo, &last); err != nil {
		t.Fatal(err)
	}
	if elo != 1516 || last.String != "2024-05-01" {
		t.Errorf("A = %v/%q, want 1516/2024-05-01", elo, last.String)
	}
	if err := local.db.QueryRow("SELECT last_played FROM player_ratings WHERE player_id = 'C'").Scan(&last); err != nil {
		t.Fatal(err)
	}
	if last.Valid {
		t.Errorf("C last_played = %q, want NULL", last.String)
	}

	var snapshots int
	var date string
	if err := local.db.QueryRow("SELECT COUNT(*), MAX(match_date) FROM match_elo_snapshots").Scan(&snapshots, &date); err != nil {
		t.Fatal(err)
	}
	if snapshots != 1 || date != "2024-05-01" {
		t.Errorf("snapshots = %d on %s, want 1 on 2024-05-01", snapshots, date)
	}
}

func TestLocalRatingsClosed(t *testing.T) {
	local, err := OpenLocalRatings(filepath.Join(t.TempDir(), "ratings.db"), "run-1", nil)
	if err != nil {
		t.Fatal(err)
	}
	local.Close()

	if err := local.Write(context.Background(), ratedStore(t), nil, nil); err == nil {
		t.Error("expected an error writing to a closed database")
	}
}
