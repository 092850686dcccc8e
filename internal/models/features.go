package models

// Feature indexes a FeatureVector. The order is the wire order of exported
// datasets and must not change without retraining.
type Feature int

const (
	RankDiff Feature = iota
	RankRatio
	PointsDiff
	PointsRatio
	AgeDiff
	HeightDiff
	H2HRatio
	P1WinRate52w
	P2WinRate52w
	P1SurfaceWinRate
	P2SurfaceWinRate
	P1AceRate
	P2AceRate
	P1BPSaveRate
	P2BPSaveRate
	P1FirstServeWinPct
	P2FirstServeWinPct
	EloDiff
	SurfaceEloDiff
	P1SPW
	P2SPW
	P1RPW
	P2RPW
	P1SecondServeWinPct
	P2SecondServeWinPct
	P1HoldPct
	P2HoldPct
	P1BreakPct
	P2BreakPct
	FeatureSurfaceClay
	FeatureSurfaceGrass
	FeatureSurfaceHard
	FeatureSurfaceCarpet
	BestOf5

	NumFeatures int = iota
)

// FeatureNames is the full ordered schema produced by the feature builder.
var FeatureNames = [NumFeatures]string{
	"rank_diff",
	"rank_ratio",
	"points_diff",
	"points_ratio",
	"age_diff",
	"height_diff",
	"h2h_ratio",
	"p1_win_rate_52w",
	"p2_win_rate_52w",
	"p1_surface_win_rate",
	"p2_surface_win_rate",
	"p1_ace_rate",
	"p2_ace_rate",
	"p1_bp_save_rate",
	"p2_bp_save_rate",
	"p1_first_serve_win_pct",
	"p2_first_serve_win_pct",
	"elo_diff",
	"surface_elo_diff",
	"p1_spw",
	"p2_spw",
	"p1_rpw",
	"p2_rpw",
	"p1_second_serve_win_pct",
	"p2_second_serve_win_pct",
	"p1_hold_pct",
	"p2_hold_pct",
	"p1_break_pct",
	"p2_break_pct",
	"surface_clay",
	"surface_grass",
	"surface_hard",
	"surface_carpet",
	"best_of_5",
}

// ModelFeatures is the 22-feature schema the shipped model coefficients
// are aligned with.
var ModelFeatures = []string{
	"rank_diff",
	"rank_ratio",
	"points_diff",
	"points_ratio",
	"age_diff",
	"height_diff",
	"h2h_ratio",
	"p1_win_rate_52w",
	"p2_win_rate_52w",
	"p1_surface_win_rate",
	"p2_surface_win_rate",
	"p1_ace_rate",
	"p2_ace_rate",
	"p1_bp_save_rate",
	"p2_bp_save_rate",
	"p1_first_serve_win_pct",
	"p2_first_serve_win_pct",
	"surface_clay",
	"surface_grass",
	"surface_hard",
	"surface_carpet",
	"best_of_5",
}

var featureIndex = func() map[string]Feature {
	idx := make(map[string]Feature, NumFeatures)
	for i, name := range FeatureNames {
		idx[name] = Feature(i)
	}
	return idx
}()

func (f Feature) String() string {
	if f < 0 || int(f) >= NumFeatures {
		return "unknown"
	}
	return FeatureNames[f]
}

// LookupFeature resolves a feature by its schema name.
func LookupFeature(name string) (Feature, bool) {
	f, ok := featureIndex[name]
	return f, ok
}

// FeatureVector is one match's numeric features in schema order.
type FeatureVector [NumFeatures]float64

// Get returns the value of the named feature.
func (v *FeatureVector) Get(name string) (float64, bool) {
	f, ok := LookupFeature(name)
	if !ok {
		return 0, false
	}
	return v[f], true
}

// Select projects the vector onto names; unknown names read as 0.
func (v *FeatureVector) Select(names []string) []float64 {
	out := make([]float64, len(names))
	for i, name := range names {
		out[i], _ = v.Get(name)
	}
	return out
}

// Map returns the vector keyed by feature name.
func (v *FeatureVector) Map() map[string]float64 {
	m := make(map[string]float64, NumFeatures)
	for i, name := range FeatureNames {
		m[name] = v[i]
	}
	return m
}

// LabeledVector is a feature vector plus whether the player placed in the
// p1 slot won (1) or lost (0).
type LabeledVector struct {
	Features FeatureVector
	Target   int
}

// Dataset holds parallel feature and label arrays in input-match order.
type Dataset struct {
	Features []FeatureVector
	Labels   []int
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.Labels)
}

// Append adds one row.
func (d *Dataset) Append(lv LabeledVector) {
	d.Features = append(d.Features, lv.Features)
	d.Labels = append(d.Labels, lv.Target)
}

// Slice returns rows [i, j) sharing the underlying arrays.
func (d *Dataset) Slice(i, j int) *Dataset {
	return &Dataset{Features: d.Features[i:j], Labels: d.Labels[i:j]}
}

// PositiveRate is the share of rows labelled 1, or 0 for an empty dataset.
func (d *Dataset) PositiveRate() float64 {
	if len(d.Labels) == 0 {
		return 0
	}
	n := 0
	for _, l := range d.Labels {
		n += l
	}
	return float64(n) / float64(len(d.Labels))
}
