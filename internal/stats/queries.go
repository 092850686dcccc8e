package stats

import (
	"time"

	"github.com/courtstats/tennis-predict/internal/models"
)

// DefaultLookbackDays is the trailing window used by the feature builder.
const DefaultLookbackDays = 365

// NeutralWinRate is reported when no qualifying results exist.
const NeutralWinRate = 0.5

// Window bounds a windowed query. Entries dated on or after Before are
// excluded; entries older than Before minus LookbackDays end the scan.
// A zero Before means no bound at all. LookbackDays <= 0 keeps the upper
// bound but drops the lower one.
type Window struct {
	Before       time.Time
	LookbackDays int
}

// AsOf is the default window for a match played on date.
func AsOf(date time.Time) Window {
	return Window{Before: date, LookbackDays: DefaultLookbackDays}
}

// classify reports whether an entry dated d should be skipped, or whether
// the newest-first scan can stop.
func (w Window) classify(d time.Time) (skip, stop bool) {
	if w.Before.IsZero() {
		return false, false
	}
	if !d.Before(w.Before) {
		return true, false
	}
	if w.LookbackDays > 0 && d.Before(w.Before.AddDate(0, 0, -w.LookbackDays)) {
		return false, true
	}
	return false, false
}

// ServeAverages are ratios derived from summed serve tallies.
type ServeAverages struct {
	AceRate           float64 `json:"ace_rate"`
	FirstServeWinPct  float64 `json:"first_serve_win_pct"`
	BPSaveRate        float64 `json:"bp_save_rate"`
	SPW               float64 `json:"spw"`
	SecondServeWinPct float64 `json:"second_serve_win_pct"`
	HoldPct           float64 `json:"hold_pct"`
}

// ReturnAverages are ratios derived from summed opponent serve tallies.
type ReturnAverages struct {
	RPW      float64 `json:"rpw"`
	BreakPct float64 `json:"break_pct"`
}

// WinRate is the share of matches won inside w, optionally restricted to
// one surface. It is NeutralWinRate when nothing qualifies.
func (p *Player) WinRate(w Window, surface models.Surface) float64 {
	if p == nil {
		return NeutralWinRate
	}

	wins, total := 0, 0
	for i := len(p.results) - 1; i >= 0; i-- {
		r := p.results[i]
		skip, stop := w.classify(r.Date)
		if stop {
			break
		}
		if skip || (surface.Known() && r.Surface != surface) {
			continue
		}
		total++
		if r.Won {
			wins++
		}
	}

	if total == 0 {
		return NeutralWinRate
	}
	return float64(wins) / float64(total)
}

// ServeAverages sums the serve tallies inside w and derives the ratios.
// Every ratio is 0 when its denominator is.
func (p *Player) ServeAverages(w Window) ServeAverages {
	if p == nil {
		return ServeAverages{}
	}

	var sum models.ServeCounters
	for i := len(p.serve) - 1; i >= 0; i-- {
		e := p.serve[i]
		skip, stop := w.classify(e.Date)
		if stop {
			break
		}
		if skip {
			continue
		}
		sum.Aces += e.Aces
		sum.ServePoints += e.ServePoints
		sum.FirstIn += e.FirstIn
		sum.FirstWon += e.FirstWon
		sum.SecondWon += e.SecondWon
		sum.BreakPointsSaved += e.BreakPointsSaved
		sum.BreakPointsFaced += e.BreakPointsFaced
		sum.ServiceGames += e.ServiceGames
	}

	bpLost := sum.BreakPointsFaced - sum.BreakPointsSaved
	holds := 0
	if sum.ServiceGames > bpLost {
		holds = sum.ServiceGames - bpLost
	}

	return ServeAverages{
		AceRate:           ratio(sum.Aces, sum.ServePoints),
		FirstServeWinPct:  ratio(sum.FirstWon, sum.FirstIn),
		BPSaveRate:        ratio(sum.BreakPointsSaved, sum.BreakPointsFaced),
		SPW:               ratio(sum.FirstWon+sum.SecondWon, sum.ServePoints),
		SecondServeWinPct: ratio(sum.SecondWon, sum.ServePoints-sum.FirstIn),
		HoldPct:           ratio(holds, sum.ServiceGames),
	}
}

// ReturnAverages sums the opponents' serve tallies inside w.
func (p *Player) ReturnAverages(w Window) ReturnAverages {
	if p == nil {
		return ReturnAverages{}
	}

	var oppPoints, oppWon, converted, oppGames int
	for i := len(p.ret) - 1; i >= 0; i-- {
		e := p.ret[i]
		skip, stop := w.classify(e.Date)
		if stop {
			break
		}
		if skip {
			continue
		}
		oppPoints += e.OppServePoints
		oppWon += e.OppFirstWon + e.OppSecondWon
		converted += e.BreakPointsConverted
		oppGames += e.OppServiceGames
	}

	return ReturnAverages{
		RPW:      ratio(oppPoints-oppWon, oppPoints),
		BreakPct: ratio(converted, oppGames),
	}
}

// HeadToHeadAsOf counts results against opponentID dated strictly before
// before, with no lower bound. Unlike HeadToHead it is safe to use for
// matches that were accumulated together with later ones.
func (p *Player) HeadToHeadAsOf(opponentID string, before time.Time) HeadToHead {
	var rec HeadToHead
	if p == nil || opponentID == "" {
		return rec
	}
	w := Window{Before: before}
	for i := len(p.results) - 1; i >= 0; i-- {
		r := p.results[i]
		if skip, _ := w.classify(r.Date); skip || r.OpponentID != opponentID {
			continue
		}
		if r.Won {
			rec.Wins++
		} else {
			rec.Losses++
		}
	}
	return rec
}

func ratio(num, den int) float64 {
	if den <= 0 {
		return 0
	}
	return float64(num) / float64(den)
}
