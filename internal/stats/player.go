// Package stats holds per-player rolling match statistics and answers
// windowed "as of" queries over them.
//
// A Player must be fed matches in non-decreasing date order. The windowed
// queries scan history newest-first and stop at the first entry older than
// the window, which is only correct under that ordering.
package stats

import (
	"errors"
	"fmt"
	"time"

	"github.com/courtstats/tennis-predict/internal/elo"
	"github.com/courtstats/tennis-predict/internal/models"
)

// ErrOutOfOrder is returned when a match is ingested with a date earlier
// than the player's most recent recorded match.
var ErrOutOfOrder = errors.New("stats: match ingested out of chronological order")

// Result is one entry of a player's match history.
type Result struct {
	Date       time.Time
	Won        bool
	Surface    models.Surface
	OpponentID string
}

// ServeEntry is the player's own serve tally for one match.
type ServeEntry struct {
	Date time.Time
	models.ServeCounters
}

// ReturnEntry is the opponent's serve tally for one match, seen from the
// returner's side.
type ReturnEntry struct {
	Date                 time.Time
	OppServePoints       int
	OppFirstIn           int
	OppFirstWon          int
	OppSecondWon         int
	BreakPointsConverted int
	BreakPointChances    int
	OppServiceGames      int
}

// HeadToHead counts results against a single opponent.
type HeadToHead struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
}

// Appearance is everything one player contributes from one match.
type Appearance struct {
	Date          time.Time
	Won           bool
	Surface       models.Surface
	OpponentID    string
	Serve         models.ServeCounters
	OpponentServe models.ServeCounters
}

// Player accumulates a single player's history and ratings.
type Player struct {
	ID string

	results    []Result
	serve      []ServeEntry
	ret        []ReturnEntry
	h2h        map[string]*HeadToHead
	elo        float64
	surfaceElo map[models.Surface]float64
}

// NewPlayer returns an empty record rated at elo.InitialRating.
func NewPlayer(id string) *Player {
	return &Player{
		ID:         id,
		h2h:        make(map[string]*HeadToHead),
		elo:        elo.InitialRating,
		surfaceElo: make(map[models.Surface]float64),
	}
}

// AddMatch appends one match to the player's history. Serve and return
// tallies are only kept when the respective point totals are positive.
// Matches must arrive in non-decreasing date order.
func (p *Player) AddMatch(a Appearance) error {
	if n := len(p.results); n > 0 && a.Date.Before(p.results[n-1].Date) {
		return fmt.Errorf("%w: player %s got %s after %s", ErrOutOfOrder, p.ID,
			a.Date.Format("2006-01-02"), p.results[n-1].Date.Format("2006-01-02"))
	}

	p.results = append(p.results, Result{Date: a.Date, Won: a.Won, Surface: a.Surface, OpponentID: a.OpponentID})

	if a.Serve.ServePoints > 0 {
		p.serve = append(p.serve, ServeEntry{Date: a.Date, ServeCounters: a.Serve})
	}

	if opp := a.OpponentServe; opp.ServePoints > 0 {
		p.ret = append(p.ret, ReturnEntry{
			Date:                 a.Date,
			OppServePoints:       opp.ServePoints,
			OppFirstIn:           opp.FirstIn,
			OppFirstWon:          opp.FirstWon,
			OppSecondWon:         opp.SecondWon,
			BreakPointsConverted: opp.BreakPointsFaced - opp.BreakPointsSaved,
			BreakPointChances:    opp.BreakPointsFaced,
			OppServiceGames:      opp.ServiceGames,
		})
	}

	if a.OpponentID != "" {
		rec := p.h2hEntry(a.OpponentID)
		if a.Won {
			rec.Wins++
		} else {
			rec.Losses++
		}
	}
	return nil
}

// UpdateElo applies one match to the overall rating and, for a known
// surface, to the surface rating. opponentElo must be the opponent's overall
// rating from before the match; it also stands in for the opponent's
// surface rating.
func (p *Player) UpdateElo(opponentElo float64, won bool, surface models.Surface) error {
	overall, err := elo.Update(p.elo, opponentElo, won)
	if err != nil {
		return fmt.Errorf("player %s overall elo: %w", p.ID, err)
	}

	if !surface.Known() {
		p.elo = overall
		return nil
	}

	onSurface, err := elo.Update(p.surfaceEloEntry(surface), opponentElo, won)
	if err != nil {
		return fmt.Errorf("player %s %s elo: %w", p.ID, surface, err)
	}
	p.elo = overall
	p.surfaceElo[surface] = onSurface
	return nil
}

// h2hEntry is the insert-or-get accessor used by the ingest path only.
func (p *Player) h2hEntry(opponentID string) *HeadToHead {
	rec, ok := p.h2h[opponentID]
	if !ok {
		rec = &HeadToHead{}
		p.h2h[opponentID] = rec
	}
	return rec
}

// surfaceEloEntry is the insert-or-get accessor used by the ingest path only.
func (p *Player) surfaceEloEntry(s models.Surface) float64 {
	r, ok := p.surfaceElo[s]
	if !ok {
		r = elo.InitialRating
		p.surfaceElo[s] = r
	}
	return r
}

// Elo returns the current overall rating.
func (p *Player) Elo() float64 {
	if p == nil {
		return elo.InitialRating
	}
	return p.elo
}

// SurfaceElo returns the current rating on s without creating an entry.
// Unknown surfaces report the overall rating.
func (p *Player) SurfaceElo(s models.Surface) float64 {
	if p == nil {
		return elo.InitialRating
	}
	if !s.Known() {
		return p.elo
	}
	if r, ok := p.surfaceElo[s]; ok {
		return r
	}
	return elo.InitialRating
}

// SurfaceRatings returns a copy of the surfaces the player has been rated on.
func (p *Player) SurfaceRatings() map[models.Surface]float64 {
	out := make(map[models.Surface]float64)
	if p == nil {
		return out
	}
	for s, r := range p.surfaceElo {
		out[s] = r
	}
	return out
}

// HeadToHead returns the record against opponentID, zero when they never met.
func (p *Player) HeadToHead(opponentID string) HeadToHead {
	if p == nil {
		return HeadToHead{}
	}
	if rec, ok := p.h2h[opponentID]; ok {
		return *rec
	}
	return HeadToHead{}
}

// Matches returns the number of matches ingested.
func (p *Player) Matches() int {
	if p == nil {
		return 0
	}
	return len(p.results)
}

// LastPlayed returns the date of the most recent ingested match.
func (p *Player) LastPlayed() (time.Time, bool) {
	if p == nil || len(p.results) == 0 {
		return time.Time{}, false
	}
	return p.results[len(p.results)-1].Date, true
}
