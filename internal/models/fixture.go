package models

import (
	"time"

	"github.com/courtstats/tennis-predict/internal/parse"
)

// Fixture is a match that has not been played yet. Player fields carry a
// p1_/p2_ prefix; the other columns match the results files.
type Fixture struct {
	Date    time.Time `json:"-"`
	Surface Surface   `json:"surface"`
	BestOf  int       `json:"best_of"`

	P1 FixtureSide `json:"p1"`
	P2 FixtureSide `json:"p2"`
}

// FixtureSide is one player's ranking and physical data as of the fixture.
type FixtureSide struct {
	ID         string  `json:"id"`
	Name       string  `json:"name,omitempty"`
	Rank       float64 `json:"rank"`
	RankPoints float64 `json:"rank_points"`
	Age        float64 `json:"age"`
	Height     float64 `json:"ht"`
}

// NewFixture builds a Fixture from a row. A missing or malformed
// tourney_date leaves Date zero.
func NewFixture(row Row) *Fixture {
	f := &Fixture{
		Surface: ParseSurface(row.Get("surface")),
		BestOf:  parse.Int(row.Get("best_of"), DefaultBestOf),
		P1:      fixtureSide(row, "p1_"),
		P2:      fixtureSide(row, "p2_"),
	}
	if d, ok := parse.Date(row.Get("tourney_date")); ok {
		f.Date = d
	}
	return f
}

func fixtureSide(row Row, prefix string) FixtureSide {
	return FixtureSide{
		ID:         row.Get(prefix + "id"),
		Name:       row.Get(prefix + "name"),
		Rank:       parse.Float(row.Get(prefix+"rank"), 0),
		RankPoints: parse.Float(row.Get(prefix+"rank_points"), 0),
		Age:        parse.Float(row.Get(prefix+"age"), DefaultAge),
		Height:     parse.Float(row.Get(prefix+"ht"), DefaultHeight),
	}
}

// Valid reports whether both players are identified and distinct.
func (f *Fixture) Valid() bool {
	return f != nil && f.P1.ID != "" && f.P2.ID != "" && f.P1.ID != f.P2.ID
}
