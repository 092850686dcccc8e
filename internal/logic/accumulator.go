package logic

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/courtstats/tennis-predict/internal/models"
	"github.com/courtstats/tennis-predict/internal/stats"
)

// Accumulator replays historical matches in date order, building each
// player's rolling statistics and stamping pre-match Elo onto every record.
type Accumulator struct {
	logger *zap.SugaredLogger
}

// AccumulationResult is the outcome of one chronological pass.
type AccumulationResult struct {
	Store   *stats.Store
	Applied int
	Skipped int
}

// NewAccumulator creates an accumulator. A nil logger disables logging.
func NewAccumulator(logger *zap.Logger) *Accumulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Accumulator{logger: logger.Sugar()}
}

// Accumulate runs one authoritative pass over matches. The input slice is
// not reordered; records are sorted by date on a copy with ties kept in
// input order. Unusable records are skipped. Errors are only returned for
// broken invariants (non-finite ratings, out-of-order ingest).
func (a *Accumulator) Accumulate(matches []*models.MatchRecord) (*AccumulationResult, error) {
	start := time.Now()
	defer func() { accumulateDuration.Observe(time.Since(start).Seconds()) }()

	ordered := make([]*models.MatchRecord, len(matches))
	copy(ordered, matches)
	// nil records sort first and are skipped below.
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a == nil || b == nil {
			return a == nil && b != nil
		}
		return a.Date.Before(b.Date)
	})

	res := &AccumulationResult{Store: stats.NewStore()}
	for _, m := range ordered {
		if reason := accumulateSkipReason(m); reason != "" {
			res.Skipped++
			matchesSkipped.WithLabelValues(reason).Inc()
			if m != nil {
				a.logger.Debugw("Skipping match", "reason", reason,
					"tourney", m.TourneyID, "match", m.MatchNum, "date", m.TourneyDate)
			}
			continue
		}
		if err := apply(res.Store, m); err != nil {
			return nil, fmt.Errorf("accumulate %s/%d: %w", m.TourneyID, m.MatchNum, err)
		}
		res.Applied++
		matchesAccumulated.Inc()
	}

	playersTracked.Set(float64(res.Store.Len()))
	a.logger.Infow("Accumulated player statistics",
		"matches", len(matches),
		"applied", res.Applied,
		"skipped", res.Skipped,
		"players", res.Store.Len(),
		"duration", time.Since(start),
	)
	return res, nil
}

// AccumulateTours accumulates each tour concurrently into its own store and
// merges the results. Tours must not share player ids; if they do, the
// merged stream is replayed as a single chronological pass instead.
func (a *Accumulator) AccumulateTours(ctx context.Context, byTour map[string][]*models.MatchRecord) (*AccumulationResult, error) {
	tours := make([]string, 0, len(byTour))
	for tour := range byTour {
		tours = append(tours, tour)
	}
	sort.Strings(tours)

	results := make([]*AccumulationResult, len(tours))
	g, ctx := errgroup.WithContext(ctx)
	for i, tour := range tours {
		i, tour := i, tour
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := a.Accumulate(byTour[tour])
			if err != nil {
				return fmt.Errorf("tour %s: %w", tour, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := &AccumulationResult{Store: stats.NewStore()}
	for i, r := range results {
		if id, ok := merged.Store.Merge(r.Store); !ok {
			a.logger.Warnw("Tours share a player id, replaying as one stream",
				"tour", tours[i], "player", id)
			var all []*models.MatchRecord
			for _, tour := range tours {
				all = append(all, byTour[tour]...)
			}
			return a.Accumulate(all)
		}
		merged.Applied += r.Applied
		merged.Skipped += r.Skipped
	}
	playersTracked.Set(float64(merged.Store.Len()))
	return merged, nil
}

func accumulateSkipReason(m *models.MatchRecord) string {
	switch {
	case m == nil || m.WinnerID == "" || m.LoserID == "":
		return reasonMissingPlayer
	case !m.Usable():
		return reasonBadDate
	case m.WinnerID == m.LoserID:
		return reasonSamePlayer
	}
	return ""
}

// apply folds one usable match into the store. The snapshot is taken before
// either rating moves, and each side is updated from the other's pre-match
// rating.
func apply(store *stats.Store, m *models.MatchRecord) error {
	w := store.Ensure(m.WinnerID)
	l := store.Ensure(m.LoserID)

	snap := models.EloSnapshot{
		WinnerElo:        w.Elo(),
		LoserElo:         l.Elo(),
		WinnerSurfaceElo: w.SurfaceElo(m.Surface),
		LoserSurfaceElo:  l.SurfaceElo(m.Surface),
	}
	m.SetPreMatchElo(snap)

	if err := w.UpdateElo(snap.LoserElo, true, m.Surface); err != nil {
		return err
	}
	if err := l.UpdateElo(snap.WinnerElo, false, m.Surface); err != nil {
		return err
	}

	if err := w.AddMatch(stats.Appearance{
		Date:          m.Date,
		Won:           true,
		Surface:       m.Surface,
		OpponentID:    m.LoserID,
		Serve:         m.Winner,
		OpponentServe: m.Loser,
	}); err != nil {
		return err
	}
	return l.AddMatch(stats.Appearance{
		Date:          m.Date,
		Won:           false,
		Surface:       m.Surface,
		OpponentID:    m.WinnerID,
		Serve:         m.Loser,
		OpponentServe: m.Winner,
	})
}
