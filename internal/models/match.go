package models

import (
	"time"

	"github.com/courtstats/tennis-predict/internal/parse"
)

// Defaults substituted for missing or malformed row values.
const (
	DefaultBestOf = 3
	DefaultAge    = 25.0
	DefaultHeight = 180.0
)

// ServeCounters are one side's raw serve tallies for a single match.
type ServeCounters struct {
	Aces             int `json:"ace"`
	ServePoints      int `json:"svpt"`
	FirstIn          int `json:"first_in"`
	FirstWon         int `json:"first_won"`
	SecondWon        int `json:"second_won"`
	BreakPointsSaved int `json:"bp_saved"`
	BreakPointsFaced int `json:"bp_faced"`
	ServiceGames     int `json:"sv_gms"`
}

// EloSnapshot holds both participants' ratings as they stood immediately
// before a match was applied.
type EloSnapshot struct {
	WinnerElo        float64 `json:"w_elo"`
	LoserElo         float64 `json:"l_elo"`
	WinnerSurfaceElo float64 `json:"w_surf_elo"`
	LoserSurfaceElo  float64 `json:"l_surf_elo"`
}

// MatchRecord is a typed view over one historical results row.
type MatchRecord struct {
	Tour        string    `json:"tour,omitempty"`
	TourneyID   string    `json:"tourney_id"`
	TourneyName string    `json:"tourney_name"`
	MatchNum    int       `json:"match_num"`
	TourneyDate string    `json:"tourney_date"`
	Date        time.Time `json:"-"`
	Surface     Surface   `json:"surface"`
	BestOf      int       `json:"best_of"`

	WinnerID         string  `json:"winner_id"`
	WinnerName       string  `json:"winner_name"`
	WinnerRank       float64 `json:"winner_rank"`
	WinnerRankPoints float64 `json:"winner_rank_points"`
	WinnerAge        float64 `json:"winner_age"`
	WinnerHeight     float64 `json:"winner_ht"`

	LoserID         string  `json:"loser_id"`
	LoserName       string  `json:"loser_name"`
	LoserRank       float64 `json:"loser_rank"`
	LoserRankPoints float64 `json:"loser_rank_points"`
	LoserAge        float64 `json:"loser_age"`
	LoserHeight     float64 `json:"loser_ht"`

	Winner ServeCounters `json:"w_serve"`
	Loser  ServeCounters `json:"l_serve"`

	preMatch *EloSnapshot
}

// NewMatchRecord builds a MatchRecord from a results row, applying the
// tolerant parsers. It never fails; use Usable to decide whether the record
// can take part in accumulation.
func NewMatchRecord(tour string, row Row) *MatchRecord {
	m := &MatchRecord{
		Tour:        tour,
		TourneyID:   row.Get("tourney_id"),
		TourneyName: row.Get("tourney_name"),
		MatchNum:    parse.Int(row.Get("match_num"), 0),
		TourneyDate: row.Get("tourney_date"),
		Surface:     ParseSurface(row.Get("surface")),
		BestOf:      parse.Int(row.Get("best_of"), DefaultBestOf),

		WinnerID:         row.Get("winner_id"),
		WinnerName:       row.Get("winner_name"),
		WinnerRank:       parse.Float(row.Get("winner_rank"), 0),
		WinnerRankPoints: parse.Float(row.Get("winner_rank_points"), 0),
		WinnerAge:        parse.Float(row.Get("winner_age"), DefaultAge),
		WinnerHeight:     parse.Float(row.Get("winner_ht"), DefaultHeight),

		LoserID:         row.Get("loser_id"),
		LoserName:       row.Get("loser_name"),
		LoserRank:       parse.Float(row.Get("loser_rank"), 0),
		LoserRankPoints: parse.Float(row.Get("loser_rank_points"), 0),
		LoserAge:        parse.Float(row.Get("loser_age"), DefaultAge),
		LoserHeight:     parse.Float(row.Get("loser_ht"), DefaultHeight),

		Winner: serveCounters(row, "w_"),
		Loser:  serveCounters(row, "l_"),
	}
	if d, ok := parse.Date(m.TourneyDate); ok {
		m.Date = d
	}
	return m
}

func serveCounters(row Row, prefix string) ServeCounters {
	get := func(field string) int {
		return parse.Int(row.Get(prefix+field), 0)
	}
	return ServeCounters{
		Aces:             get("ace"),
		ServePoints:      get("svpt"),
		FirstIn:          get("1stIn"),
		FirstWon:         get("1stWon"),
		SecondWon:        get("2ndWon"),
		BreakPointsSaved: get("bpSaved"),
		BreakPointsFaced: get("bpFaced"),
		ServiceGames:     get("SvGms"),
	}
}

// Usable reports whether the record identifies both participants and has a
// valid date.
func (m *MatchRecord) Usable() bool {
	return m != nil && m.WinnerID != "" && m.LoserID != "" && !m.Date.IsZero()
}

// SetPreMatchElo records the ratings both players carried into the match.
// Only the historical accumulator calls this; each accumulation pass
// rewrites the snapshot from its own chronological state.
func (m *MatchRecord) SetPreMatchElo(s EloSnapshot) {
	m.preMatch = &s
}

// PreMatchElo returns the snapshot written by the accumulator, if any.
func (m *MatchRecord) PreMatchElo() (EloSnapshot, bool) {
	if m == nil || m.preMatch == nil {
		return EloSnapshot{}, false
	}
	return *m.preMatch, true
}
