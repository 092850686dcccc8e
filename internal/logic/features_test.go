package logic

import (
	"math"
	"testing"

	"github.com/courtstats/tennis-predict/internal/model"
	"github.com/courtstats/tennis-predict/internal/models"
	"github.com/courtstats/tennis-predict/internal/stats"
)

func scenario(t *testing.T, extra ...*models.MatchRecord) (*stats.Store, *models.MatchRecord) {
	t.Helper()
	first := newMatch("20240101", "A", "B", "Clay", withRanks("10", "50"),
		withServe("w_", "60", "40", "30", "12", "1", "2", "10", "7"),
		withServe("l_", "70", "42", "28", "14", "3", "6", "10", "2"),
	)
	second := newMatch("20240601", "B", "A", "Hard", withRanks("50", "10"),
		withField("winner_rank_points", "900"), withField("loser_rank_points", "3000"),
		withField("winner_age", "24.5"), withField("loser_age", "29"),
		withField("winner_ht", "185"), withField("loser_ht", "193"),
	)
	matches := append([]*models.MatchRecord{first, second}, extra...)
	res, err := NewAccumulator(nil).Accumulate(matches)
	if err != nil {
		t.Fatal(err)
	}
	return res.Store, second
}

func TestBuildScenarioSecondMatch(t *testing.T) {
	store, second := scenario(t)

	lv, ok := NewFeatureBuilder(store, loserFirst).Build(second)
	if !ok {
		t.Fatal("expected a feature vector")
	}
	if lv.Target != 0 {
		t.Errorf("Target = %d, want 0 (A lost and sits in p1)", lv.Target)
	}

	v := lv.Features
	want := map[models.Feature]float64{
		models.RankDiff:           -40,
		models.RankRatio:          0.2,
		models.PointsDiff:         2100,
		models.PointsRatio:        0.3,
		models.AgeDiff:            4.5,
		models.HeightDiff:         8,
		models.H2HRatio:           1,
		models.EloDiff:            32,
		models.SurfaceEloDiff:     0,
		models.P1WinRate52w:       1,
		models.P2WinRate52w:       0,
		models.P1SurfaceWinRate:   0.5,
		models.P2SurfaceWinRate:   0.5,
		models.P1SPW:              0.7,
		models.P1RPW:              0.4,
		models.P1BreakPct:         0.3,
		models.P2BreakPct:         0.1,
		models.FeatureSurfaceHard: 1,
		models.FeatureSurfaceClay: 0,
		models.BestOf5:            0,
	}
	for f, w := range want {
		if math.Abs(v[f]-w) > 1e-9 {
			t.Errorf("%s = %v, want %v", f, v[f], w)
		}
	}
}

func TestBuildLeakage(t *testing.T) {
	store, second := scenario(t)
	base, ok := NewFeatureBuilder(store, loserFirst).Build(second)
	if !ok {
		t.Fatal("expected a feature vector")
	}

	// Matches strictly after the second one must not move its features.
	future := []*models.MatchRecord{
		newMatch("20240602", "A", "B", "Hard", withServe("w_", "50", "30", "25", "10", "0", "0", "8", "12")),
		newMatch("20240901", "A", "C", "Hard"),
		newMatch("20250101", "B", "A", "Grass"),
	}
	laterStore, laterSecond := scenario(t, future...)
	later, ok := NewFeatureBuilder(laterStore, loserFirst).Build(laterSecond)
	if !ok {
		t.Fatal("expected a feature vector")
	}

	if base.Features != later.Features {
		for i := range base.Features {
			if base.Features[i] != later.Features[i] {
				t.Errorf("%s changed: %v -> %v", models.Feature(i), base.Features[i], later.Features[i])
			}
		}
	}
}

func TestBuildSymmetry(t *testing.T) {
	store, second := scenario(t)
	w, ok := NewFeatureBuilder(store, winnerFirst).Build(second)
	if !ok {
		t.Fatal("expected a feature vector")
	}
	l, _ := NewFeatureBuilder(store, loserFirst).Build(second)

	if w.Target != 1 || l.Target != 0 {
		t.Fatalf("targets = %d/%d, want 1/0", w.Target, l.Target)
	}

	antisymmetric := []models.Feature{
		models.RankDiff, models.PointsDiff, models.AgeDiff, models.HeightDiff,
		models.EloDiff, models.SurfaceEloDiff,
	}
	for _, f := range antisymmetric {
		if w.Features[f] != -l.Features[f] {
			t.Errorf("%s: %v vs %v, want sign flip", f, w.Features[f], l.Features[f])
		}
	}

	invariant := []models.Feature{
		models.RankRatio, models.PointsRatio, models.FeatureSurfaceClay, models.FeatureSurfaceGrass,
		models.FeatureSurfaceHard, models.FeatureSurfaceCarpet, models.BestOf5,
	}
	for _, f := range invariant {
		if w.Features[f] != l.Features[f] {
			t.Errorf("%s: %v vs %v, want equal", f, w.Features[f], l.Features[f])
		}
	}

	// A model whose coefficients are antisymmetric under the swap must give
	// mirrored probabilities and key-factor directions.
	m := &model.Model{
		ModelType:    model.ModelType,
		Features:     []string{"rank_diff", "elo_diff", "p1_win_rate_52w", "p2_win_rate_52w"},
		Coefficients: []float64{-0.01, 0.004, 1.5, -1.5},
		Scaler: model.Scaler{
			Mean:  []float64{0, 0, 0.5, 0.5},
			Scale: []float64{1, 1, 1, 1},
		},
	}
	pw, pl := m.PredictVector(&w.Features), m.PredictVector(&l.Features)
	if math.Abs(pw.P1WinProb-pl.P2WinProb) > 1e-4 || math.Abs(pw.P2WinProb-pl.P1WinProb) > 1e-4 {
		t.Errorf("probabilities %v/%v vs %v/%v, want swapped", pw.P1WinProb, pw.P2WinProb, pl.P1WinProb, pl.P2WinProb)
	}
	if len(pw.KeyFactors) != len(pl.KeyFactors) {
		t.Fatalf("key factors = %d vs %d", len(pw.KeyFactors), len(pl.KeyFactors))
	}
	for i, kf := range pw.KeyFactors {
		other := pl.KeyFactors[i]
		if kf.Feature != other.Feature || kf.Impact != other.Impact || kf.Direction == other.Direction {
			t.Errorf("factor %d: %+v vs %+v, want same feature and impact, opposite direction", i, kf, other)
		}
	}

	swapped := [][2]models.Feature{
		{models.P1WinRate52w, models.P2WinRate52w},
		{models.P1SurfaceWinRate, models.P2SurfaceWinRate},
		{models.P1AceRate, models.P2AceRate},
		{models.P1BPSaveRate, models.P2BPSaveRate},
		{models.P1FirstServeWinPct, models.P2FirstServeWinPct},
		{models.P1SPW, models.P2SPW},
		{models.P1RPW, models.P2RPW},
		{models.P1SecondServeWinPct, models.P2SecondServeWinPct},
		{models.P1HoldPct, models.P2HoldPct},
		{models.P1BreakPct, models.P2BreakPct},
	}
	for _, pair := range swapped {
		if w.Features[pair[0]] != l.Features[pair[1]] || w.Features[pair[1]] != l.Features[pair[0]] {
			t.Errorf("%s/%s not swapped", pair[0], pair[1])
		}
	}

	if w.Features[models.H2HRatio]+l.Features[models.H2HRatio] != 1 {
		t.Errorf("h2h ratios %v + %v, want complementary", w.Features[models.H2HRatio], l.Features[models.H2HRatio])
	}
}

func TestBuildRejects(t *testing.T) {
	store := stats.NewStore()
	b := NewFeatureBuilder(store, winnerFirst)

	tests := []struct {
		name  string
		match *models.MatchRecord
	}{
		{"Nil", nil},
		{"MissingWinner", newMatch("20240101", "", "B", "Hard")},
		{"MissingLoser", newMatch("20240101", "A", "", "Hard")},
		{"BadDate", newMatch("2024", "A", "B", "Hard")},
		{"BothUnranked", newMatch("20240101", "A", "B", "Hard", withRanks("", "0"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := b.Build(tt.match); ok {
				t.Error("expected no feature vector")
			}
		})
	}
}

func TestBuildDefaults(t *testing.T) {
	// Never accumulated: no snapshot, no history, one side unranked.
	m := newMatch("20240101", "A", "B", "", withRanks("0", "100"), withField("best_of", "5"))
	lv, ok := NewFeatureBuilder(stats.NewStore(), winnerFirst).Build(m)
	if !ok {
		t.Fatal("single unranked player should still build")
	}

	v := lv.Features
	want := map[models.Feature]float64{
		models.RankDiff:             UnrankedRank - 100,
		models.RankRatio:            0.2,
		models.PointsRatio:          0,
		models.H2HRatio:             0.5,
		models.EloDiff:              0,
		models.SurfaceEloDiff:       0,
		models.P1WinRate52w:         0.5,
		models.P2WinRate52w:         0.5,
		models.P1SurfaceWinRate:     0.5,
		models.P1AceRate:            0,
		models.P2RPW:                0,
		models.FeatureSurfaceHard:   0,
		models.FeatureSurfaceCarpet: 0,
		models.BestOf5:              1,
	}
	for f, w := range want {
		if v[f] != w {
			t.Errorf("%s = %v, want %v", f, v[f], w)
		}
	}
}

func TestCurrentSideMatchup(t *testing.T) {
	store, second := scenario(t)
	b := NewFeatureBuilder(store, winnerFirst)

	date := second.Date.AddDate(0, 1, 0)
	p1 := b.CurrentSide("A", 10, 3000, 29, 193, models.SurfaceHard)
	p2 := b.CurrentSide("B", 50, 900, 24.5, 185, models.SurfaceHard)

	// B won the later match as the lower-rated player, so B now leads on
	// both overall and hard-court Elo.
	v := b.Features(Matchup{P1: p1, P2: p2, Date: date, Surface: models.SurfaceHard, BestOf: 3})
	if d := v[models.EloDiff]; d >= 0 || d < -5 {
		t.Errorf("elo_diff = %v, want slightly negative", d)
	}
	if v[models.SurfaceEloDiff] >= 0 {
		t.Errorf("surface_elo_diff = %v, want negative", v[models.SurfaceEloDiff])
	}
	if v[models.H2HRatio] != 0.5 {
		t.Errorf("h2h_ratio = %v, want 0.5 after 1-1", v[models.H2HRatio])
	}
	if v[models.P2SurfaceWinRate] != 1 {
		t.Errorf("B hard-court win rate = %v, want 1", v[models.P2SurfaceWinRate])
	}

	ghost := b.CurrentSide("nobody", 0, 0, 25, 180, models.SurfaceHard)
	if ghost.Elo != 1500 || ghost.SurfaceElo != 1500 {
		t.Errorf("unknown player side = %+v", ghost)
	}
}

func TestBuildRejectsSamePlayer(t *testing.T) {
	store, _ := scenario(t)
	m := newMatch("20240701", "A", "A", "Hard")

	if _, ok := NewFeatureBuilder(store, winnerFirst).Build(m); ok {
		t.Error("a match against oneself must not produce a row")
	}
	ds := NewDatasetAssembler(AssemblerConfig{Store: store, Rand: winnerFirst}).Assemble([]*models.MatchRecord{m})
	if ds.Len() != 0 {
		t.Errorf("dataset rows = %d, want 0", ds.Len())
	}
}

func TestBuilderDefaultsRandomSource(t *testing.T) {
	store, second := scenario(t)
	if _, ok := NewFeatureBuilder(store, nil).Build(second); !ok {
		t.Error("expected a feature vector with the default random source")
	}
}

func TestFixtureFeatures(t *testing.T) {
	store, second := scenario(t)
	b := NewFeatureBuilder(store, nil)

	f := &models.Fixture{
		Surface: models.SurfaceHard,
		BestOf:  5,
		P1:      models.FixtureSide{ID: "A", Rank: 10, RankPoints: 3000, Age: 29, Height: 193},
		P2:      models.FixtureSide{ID: "B", Rank: 50, RankPoints: 900, Age: 24.5, Height: 185},
	}
	asOf := second.Date.AddDate(0, 1, 0)
	v := b.FixtureFeatures(f, asOf)

	p1 := b.CurrentSide("A", 10, 3000, 29, 193, models.SurfaceHard)
	p2 := b.CurrentSide("B", 50, 900, 24.5, 185, models.SurfaceHard)
	want := b.Features(Matchup{P1: p1, P2: p2, Date: asOf, Surface: models.SurfaceHard, BestOf: 5})
	if v != want {
		t.Errorf("fixture vector differs from the equivalent matchup")
	}
	if v[models.BestOf5] != 1 || v[models.RankDiff] != -40 {
		t.Errorf("best_of_5 = %v rank_diff = %v", v[models.BestOf5], v[models.RankDiff])
	}

	if v[models.P2SurfaceWinRate] != 1 {
		t.Errorf("B hard-court win rate = %v, want 1", v[models.P2SurfaceWinRate])
	}

	// A dated fixture ignores asOf: on the day of the second match, that
	// match is not yet visible.
	f.Date = second.Date
	dated := b.FixtureFeatures(f, asOf)
	if dated[models.P2SurfaceWinRate] != stats.NeutralWinRate {
		t.Errorf("B hard-court win rate before the match = %v, want neutral", dated[models.P2SurfaceWinRate])
	}
}
