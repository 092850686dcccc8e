package models

// Factor directions reported on a KeyFactor.
const (
	FavorsP1 = "favors_p1"
	FavorsP2 = "favors_p2"
)

// MatchPrediction is the model's forecast for a p1 vs p2 matchup
type MatchPrediction struct {
	P1WinProb  float64     `json:"p1_win_prob"`
	P2WinProb  float64     `json:"p2_win_prob"`
	Confidence float64     `json:"confidence"` // |p1 - 0.5| * 2
	KeyFactors []KeyFactor `json:"key_factors"`
}

// KeyFactor is one feature's contribution to a prediction
type KeyFactor struct {
	Feature   string  `json:"feature"`
	Label     string  `json:"label"`
	Impact    float64 `json:"impact"`
	Direction string  `json:"direction"`
}

// FeatureLabels maps feature names to display labels.
var FeatureLabels = map[string]string{
	"rank_diff":               "Ranking difference",
	"rank_ratio":              "Ranking closeness",
	"points_diff":             "Rating-points gap",
	"points_ratio":            "Rating-points ratio",
	"age_diff":                "Age difference",
	"height_diff":             "Height difference",
	"h2h_ratio":               "Head-to-head record",
	"p1_win_rate_52w":         "52-week win rate (P1)",
	"p2_win_rate_52w":         "52-week win rate (P2)",
	"p1_surface_win_rate":     "Surface win rate (P1)",
	"p2_surface_win_rate":     "Surface win rate (P2)",
	"p1_ace_rate":             "Ace rate (P1)",
	"p2_ace_rate":             "Ace rate (P2)",
	"p1_bp_save_rate":         "Break-point save % (P1)",
	"p2_bp_save_rate":         "Break-point save % (P2)",
	"p1_first_serve_win_pct":  "1st-serve win % (P1)",
	"p2_first_serve_win_pct":  "1st-serve win % (P2)",
	"elo_diff":                "Elo difference",
	"surface_elo_diff":        "Surface Elo difference",
	"p1_spw":                  "Serve points won (P1)",
	"p2_spw":                  "Serve points won (P2)",
	"p1_rpw":                  "Return points won (P1)",
	"p2_rpw":                  "Return points won (P2)",
	"p1_second_serve_win_pct": "2nd-serve win % (P1)",
	"p2_second_serve_win_pct": "2nd-serve win % (P2)",
	"p1_hold_pct":             "Service hold % (P1)",
	"p2_hold_pct":             "Service hold % (P2)",
	"p1_break_pct":            "Break % (P1)",
	"p2_break_pct":            "Break % (P2)",
	"surface_clay":            "Clay court",
	"surface_grass":           "Grass court",
	"surface_hard":            "Hard court",
	"surface_carpet":          "Carpet court",
	"best_of_5":               "Best-of-5 format",
}

// FeatureLabel returns the display label for name, or name itself.
func FeatureLabel(name string) string {
	if l, ok := FeatureLabels[name]; ok {
		return l
	}
	return name
}
