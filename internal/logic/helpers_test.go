package logic

import "github.com/courtstats/tennis-predict/internal/models"

// fixedRand always returns the same draw: < 0.5 puts the winner in the p1
// slot, >= 0.5 the loser.
type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

const (
	winnerFirst = fixedRand(0.1)
	loserFirst  = fixedRand(0.9)
)

type matchOpt func(models.Row)

func withServe(prefix string, svpt, firstIn, firstWon, secondWon, bpSaved, bpFaced, games, aces string) matchOpt {
	return func(r models.Row) {
		r[prefix+"svpt"] = svpt
		r[prefix+"1stIn"] = firstIn
		r[prefix+"1stWon"] = firstWon
		r[prefix+"2ndWon"] = secondWon
		r[prefix+"bpSaved"] = bpSaved
		r[prefix+"bpFaced"] = bpFaced
		r[prefix+"SvGms"] = games
		r[prefix+"ace"] = aces
	}
}

func withRanks(w, l string) matchOpt {
	return func(r models.Row) {
		r["winner_rank"] = w
		r["loser_rank"] = l
	}
}

func withField(key, value string) matchOpt {
	return func(r models.Row) { r[key] = value }
}

func newMatch(date, winner, loser, surface string, opts ...matchOpt) *models.MatchRecord {
	row := models.Row{
		"tourney_id":   "T-" + date,
		"tourney_date": date,
		"surface":      surface,
		"winner_id":    winner,
		"loser_id":     loser,
		"winner_rank":  "20",
		"loser_rank":   "40",
		"best_of":      "3",
	}
	for _, opt := range opts {
		opt(row)
	}
	return models.NewMatchRecord("atp", row)
}
