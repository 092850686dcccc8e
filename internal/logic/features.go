package logic

import (
	"math"
	"time"

	"github.com/courtstats/tennis-predict/internal/elo"
	"github.com/courtstats/tennis-predict/internal/models"
	"github.com/courtstats/tennis-predict/internal/stats"
)

// UnrankedRank stands in for a missing ranking when only one side has one.
const UnrankedRank = 500.0

// RandomSource decides the p1/p2 assignment. *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// Side describes one participant of a matchup as seen before it is played.
type Side struct {
	ID         string
	Rank       float64
	Points     float64
	Age        float64
	Height     float64
	Elo        float64
	SurfaceElo float64
}

// Matchup is a p1-versus-p2 pairing on a given date.
type Matchup struct {
	P1, P2  Side
	Date    time.Time
	Surface models.Surface
	BestOf  int
}

// FeatureBuilder turns matches into feature vectors using only statistics
// dated strictly before each match.
type FeatureBuilder struct {
	store        *stats.Store
	rng          RandomSource
	lookbackDays int
}

// NewFeatureBuilder reads rolling statistics from store and draws p1/p2
// assignments from rng.
func NewFeatureBuilder(store *stats.Store, rng RandomSource) *FeatureBuilder {
	if store == nil {
		store = stats.NewStore()
	}
	if rng == nil {
		rng = NewSeededRand(1)
	}
	return &FeatureBuilder{store: store, rng: rng, lookbackDays: stats.DefaultLookbackDays}
}

// WithLookback overrides the trailing window used for rolling statistics.
func (b *FeatureBuilder) WithLookback(days int) *FeatureBuilder {
	b.lookbackDays = days
	return b
}

// Build produces the labelled feature vector for a historical match. The
// second result is false when the match carries no usable signal.
func (b *FeatureBuilder) Build(m *models.MatchRecord) (models.LabeledVector, bool) {
	lv, reason := b.build(m)
	return lv, reason == ""
}

func (b *FeatureBuilder) build(m *models.MatchRecord) (models.LabeledVector, string) {
	switch {
	case m == nil || m.WinnerID == "" || m.LoserID == "":
		return models.LabeledVector{}, reasonMissingPlayer
	case !m.Usable():
		return models.LabeledVector{}, reasonBadDate
	case m.WinnerID == m.LoserID:
		return models.LabeledVector{}, reasonSamePlayer
	case m.WinnerRank == 0 && m.LoserRank == 0:
		return models.LabeledVector{}, reasonUnranked
	}

	snap, ok := m.PreMatchElo()
	if !ok {
		snap = models.EloSnapshot{
			WinnerElo:        elo.InitialRating,
			LoserElo:         elo.InitialRating,
			WinnerSurfaceElo: elo.InitialRating,
			LoserSurfaceElo:  elo.InitialRating,
		}
	}

	winner := Side{
		ID: m.WinnerID, Rank: m.WinnerRank, Points: m.WinnerRankPoints,
		Age: m.WinnerAge, Height: m.WinnerHeight,
		Elo: snap.WinnerElo, SurfaceElo: snap.WinnerSurfaceElo,
	}
	loser := Side{
		ID: m.LoserID, Rank: m.LoserRank, Points: m.LoserRankPoints,
		Age: m.LoserAge, Height: m.LoserHeight,
		Elo: snap.LoserElo, SurfaceElo: snap.LoserSurfaceElo,
	}

	mu := Matchup{P1: winner, P2: loser, Date: m.Date, Surface: m.Surface, BestOf: m.BestOf}
	target := 1
	if b.rng.Float64() >= 0.5 {
		mu.P1, mu.P2 = loser, winner
		target = 0
	}

	return models.LabeledVector{Features: b.Features(mu), Target: target}, ""
}

// CurrentSide fills a Side's ratings from the store's latest state, for
// matchups that have not been played yet.
func (b *FeatureBuilder) CurrentSide(id string, rank, points, age, height float64, surface models.Surface) Side {
	p, _ := b.store.Player(id)
	return Side{
		ID: id, Rank: rank, Points: points, Age: age, Height: height,
		Elo: p.Elo(), SurfaceElo: p.SurfaceElo(surface),
	}
}

// FixtureFeatures builds the vector for an unplayed fixture from the
// store's latest ratings. Rolling statistics are taken as of the fixture
// date, or asOf when the fixture has none.
func (b *FeatureBuilder) FixtureFeatures(f *models.Fixture, asOf time.Time) models.FeatureVector {
	date := f.Date
	if date.IsZero() {
		date = asOf
	}
	return b.Features(Matchup{
		P1:      b.CurrentSide(f.P1.ID, f.P1.Rank, f.P1.RankPoints, f.P1.Age, f.P1.Height, f.Surface),
		P2:      b.CurrentSide(f.P2.ID, f.P2.Rank, f.P2.RankPoints, f.P2.Age, f.P2.Height, f.Surface),
		Date:    date,
		Surface: f.Surface,
		BestOf:  f.BestOf,
	})
}

// Features computes the vector for a fixed p1/p2 assignment.
func (b *FeatureBuilder) Features(mu Matchup) models.FeatureVector {
	p1Rank, p2Rank := mu.P1.Rank, mu.P2.Rank
	if p1Rank == 0 {
		p1Rank = UnrankedRank
	}
	if p2Rank == 0 {
		p2Rank = UnrankedRank
	}
	maxRank := math.Max(p1Rank, p2Rank)
	maxPts := math.Max(math.Max(mu.P1.Points, mu.P2.Points), 1)

	w := stats.Window{Before: mu.Date, LookbackDays: b.lookbackDays}
	s1, _ := b.store.Player(mu.P1.ID)
	s2, _ := b.store.Player(mu.P2.ID)

	p1WR := s1.WinRate(w, models.SurfaceUnknown)
	p2WR := s2.WinRate(w, models.SurfaceUnknown)
	p1SWR, p2SWR := p1WR, p2WR
	if mu.Surface.Known() {
		p1SWR = s1.WinRate(w, mu.Surface)
		p2SWR = s2.WinRate(w, mu.Surface)
	}
	p1Srv, p2Srv := s1.ServeAverages(w), s2.ServeAverages(w)
	p1Ret, p2Ret := s1.ReturnAverages(w), s2.ReturnAverages(w)

	// The cumulative counters include matches after mu.Date once the whole
	// history is accumulated, so count from the dated results instead.
	h2h := s1.HeadToHeadAsOf(mu.P2.ID, mu.Date)
	h2hRatio := 0.5
	if total := h2h.Wins + h2h.Losses; total > 0 {
		h2hRatio = float64(h2h.Wins) / float64(total)
	}

	rankRatio := 0.5
	if maxRank != 0 {
		rankRatio = math.Min(p1Rank, p2Rank) / maxRank
	}

	var v models.FeatureVector
	v[models.RankDiff] = p1Rank - p2Rank
	v[models.RankRatio] = rankRatio
	v[models.PointsDiff] = mu.P1.Points - mu.P2.Points
	v[models.PointsRatio] = math.Min(mu.P1.Points, mu.P2.Points) / maxPts
	v[models.AgeDiff] = mu.P1.Age - mu.P2.Age
	v[models.HeightDiff] = mu.P1.Height - mu.P2.Height
	v[models.H2HRatio] = h2hRatio
	v[models.P1WinRate52w] = p1WR
	v[models.P2WinRate52w] = p2WR
	v[models.P1SurfaceWinRate] = p1SWR
	v[models.P2SurfaceWinRate] = p2SWR
	v[models.P1AceRate] = p1Srv.AceRate
	v[models.P2AceRate] = p2Srv.AceRate
	v[models.P1BPSaveRate] = p1Srv.BPSaveRate
	v[models.P2BPSaveRate] = p2Srv.BPSaveRate
	v[models.P1FirstServeWinPct] = p1Srv.FirstServeWinPct
	v[models.P2FirstServeWinPct] = p2Srv.FirstServeWinPct
	v[models.EloDiff] = mu.P1.Elo - mu.P2.Elo
	v[models.SurfaceEloDiff] = mu.P1.SurfaceElo - mu.P2.SurfaceElo
	v[models.P1SPW] = p1Srv.SPW
	v[models.P2SPW] = p2Srv.SPW
	v[models.P1RPW] = p1Ret.RPW
	v[models.P2RPW] = p2Ret.RPW
	v[models.P1SecondServeWinPct] = p1Srv.SecondServeWinPct
	v[models.P2SecondServeWinPct] = p2Srv.SecondServeWinPct
	v[models.P1HoldPct] = p1Srv.HoldPct
	v[models.P2HoldPct] = p2Srv.HoldPct
	v[models.P1BreakPct] = p1Ret.BreakPct
	v[models.P2BreakPct] = p2Ret.BreakPct
	v[models.FeatureSurfaceClay] = indicator(mu.Surface == models.SurfaceClay)
	v[models.FeatureSurfaceGrass] = indicator(mu.Surface == models.SurfaceGrass)
	v[models.FeatureSurfaceHard] = indicator(mu.Surface == models.SurfaceHard)
	v[models.FeatureSurfaceCarpet] = indicator(mu.Surface == models.SurfaceCarpet)
	v[models.BestOf5] = indicator(mu.BestOf == 5)
	return v
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
