package models

import (
	"testing"
	"time"
)

func sackmannRow() Row {
	return Row{
		"tourney_id":         "2024-0339",
		"tourney_name":       "Brisbane",
		"surface":            "Hard",
		"tourney_date":       "20240101",
		"match_num":          "300",
		"best_of":            "3",
		"winner_id":          "126094",
		"winner_name":        "Grigor Dimitrov",
		"winner_ht":          "191",
		"winner_age":         "32.6",
		"winner_rank":        "14",
		"winner_rank_points": "2775",
		"loser_id":           "208029",
		"loser_name":         "Holger Rune",
		"loser_ht":           "",
		"loser_age":          "20.6",
		"loser_rank":         "8",
		"loser_rank_points":  "3660",
		"w_ace":              "9",
		"w_svpt":             "68",
		"w_1stIn":            "45",
		"w_1stWon":           "37",
		"w_2ndWon":           "12",
		"w_SvGms":            "11",
		"w_bpSaved":          "2",
		"w_bpFaced":          "3",
		"l_ace":              "3",
		"l_svpt":             "79",
		"l_1stIn":            "48",
		"l_1stWon":           "33",
		"l_2ndWon":           "14",
		"l_SvGms":            "11",
		"l_bpSaved":          "4",
		"l_bpFaced":          "7",
	}
}

func TestNewMatchRecord(t *testing.T) {
	m := NewMatchRecord("atp", sackmannRow())

	if !m.Usable() {
		t.Fatal("expected usable record")
	}
	if !m.Date.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Date = %v", m.Date)
	}
	if m.Surface != SurfaceHard {
		t.Errorf("Surface = %q, want hard", m.Surface)
	}
	if m.WinnerRank != 14 || m.LoserRankPoints != 3660 {
		t.Errorf("ranks parsed wrong: %v / %v", m.WinnerRank, m.LoserRankPoints)
	}
	if m.LoserHeight != DefaultHeight {
		t.Errorf("LoserHeight = %v, want default %v", m.LoserHeight, DefaultHeight)
	}

	wantWinner := ServeCounters{Aces: 9, ServePoints: 68, FirstIn: 45, FirstWon: 37, SecondWon: 12, BreakPointsSaved: 2, BreakPointsFaced: 3, ServiceGames: 11}
	if m.Winner != wantWinner {
		t.Errorf("Winner = %+v, want %+v", m.Winner, wantWinner)
	}
	if m.Loser.BreakPointsFaced != 7 || m.Loser.ServePoints != 79 {
		t.Errorf("Loser = %+v", m.Loser)
	}
	if _, ok := m.PreMatchElo(); ok {
		t.Error("fresh record must not carry an Elo snapshot")
	}
}

func TestMatchRecordUsable(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(Row)
		want   bool
	}{
		{"Complete", func(Row) {}, true},
		{"MissingWinner", func(r Row) { r["winner_id"] = "" }, false},
		{"MissingLoser", func(r Row) { delete(r, "loser_id") }, false},
		{"BadDate", func(r Row) { r["tourney_date"] = "2024-01-01" }, false},
		{"MissingDate", func(r Row) { delete(r, "tourney_date") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := sackmannRow()
			tt.mutate(row)
			if got := NewMatchRecord("atp", row).Usable(); got != tt.want {
				t.Errorf("Usable() = %v, want %v", got, tt.want)
			}
		})
	}

	var nilRecord *MatchRecord
	if nilRecord.Usable() {
		t.Error("nil record must not be usable")
	}
}

func TestMatchRecordDefaults(t *testing.T) {
	m := NewMatchRecord("wta", Row{"winner_id": "1", "loser_id": "2", "tourney_date": "20200101", "best_of": "x"})

	if m.BestOf != DefaultBestOf {
		t.Errorf("BestOf = %d, want %d", m.BestOf, DefaultBestOf)
	}
	if m.WinnerAge != DefaultAge || m.LoserAge != DefaultAge {
		t.Errorf("ages = %v/%v, want %v", m.WinnerAge, m.LoserAge, DefaultAge)
	}
	if m.WinnerRank != 0 || m.LoserRank != 0 {
		t.Errorf("ranks = %v/%v, want 0", m.WinnerRank, m.LoserRank)
	}
	if m.Surface != SurfaceUnknown {
		t.Errorf("Surface = %q, want unknown", m.Surface)
	}
	if m.Winner != (ServeCounters{}) {
		t.Errorf("Winner = %+v, want zero counters", m.Winner)
	}
}

func TestPreMatchElo(t *testing.T) {
	m := NewMatchRecord("atp", sackmannRow())
	m.SetPreMatchElo(EloSnapshot{WinnerElo: 1516, LoserElo: 1484, WinnerSurfaceElo: 1500, LoserSurfaceElo: 1500})

	got, ok := m.PreMatchElo()
	if !ok {
		t.Fatal("snapshot missing")
	}
	if got.WinnerElo != 1516 || got.LoserElo != 1484 {
		t.Errorf("snapshot = %+v", got)
	}
}

func TestParseSurface(t *testing.T) {
	tests := map[string]Surface{
		"Hard":    SurfaceHard,
		" clay ":  SurfaceClay,
		"GRASS":   SurfaceGrass,
		"Carpet":  SurfaceCarpet,
		"":        SurfaceUnknown,
		"indoor":  SurfaceUnknown,
		"unknown": SurfaceUnknown,
	}
	for in, want := range tests {
		if got := ParseSurface(in); got != want {
			t.Errorf("ParseSurface(%q) = %q, want %q", in, got, want)
		}
	}
}
