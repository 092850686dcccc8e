// Package source downloads yearly match files from the public Sackmann
// repositories, caching bodies between runs.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/courtstats/tennis-predict/internal/models"
)

const (
	DefaultATPBaseURL = "https://raw.githubusercontent.com/JeffSackmann/tennis_atp/master"
	DefaultWTABaseURL = "https://raw.githubusercontent.com/JeffSackmann/tennis_wta/master"

	userAgent = "Mozilla/5.0 (compatible; TennisAnalytics/1.0)"
)

// ErrUnknownTour is returned for a tour with no configured base URL.
var ErrUnknownTour = errors.New("source: unknown tour")

var sourceFiles = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tennis_source_files_total",
	Help: "Match files resolved, by tour and result (hit, miss, not_found)",
}, []string{"tour", "result"})

// FetcherConfig configures a Fetcher
type FetcherConfig struct {
	// BaseURLs maps a tour code to the directory holding its files.
	BaseURLs     map[string]string
	Cache        TextCache
	Client       *http.Client
	Concurrency  int
	Timeout      time.Duration
	RateLimit    float64
	RateBurst    int
	MaxRetries   int
	RetryBackoff time.Duration
	// Force skips cache reads. Fresh downloads are still written back.
	Force  bool
	Logger *zap.Logger
}

// Fetcher downloads and decodes match files.
type Fetcher struct {
	cfg     FetcherConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.SugaredLogger
}

// DefaultBaseURLs returns the public ATP and WTA repositories.
func DefaultBaseURLs() map[string]string {
	return map[string]string{"atp": DefaultATPBaseURL, "wta": DefaultWTABaseURL}
}

// NewFetcher creates a new fetcher
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.BaseURLs == nil {
		cfg.BaseURLs = DefaultBaseURLs()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 5
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = cfg.Concurrency
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Fetcher{
		cfg:     cfg,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		logger:  cfg.Logger.Sugar(),
	}
}

// FileName is the repository file holding one tour-year of matches.
func FileName(tour string, year int) string {
	return fmt.Sprintf("%s_matches_%d.csv", tour, year)
}

// FetchMatches returns every row of one tour-year file. A year that has not
// been published yet yields an empty slice.
func (f *Fetcher) FetchMatches(ctx context.Context, tour string, year int) ([]*models.MatchRecord, error) {
	body, found, err := f.fetchFile(ctx, tour, FileName(tour, year))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	matches, err := DecodeMatches(tour, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", FileName(tour, year), err)
	}
	return matches, nil
}

// FetchRange fetches years [start, end) concurrently and concatenates them
// in year order.
func (f *Fetcher) FetchRange(ctx context.Context, tour string, start, end int) ([]*models.MatchRecord, error) {
	if end <= start {
		return nil, nil
	}

	perYear := make([][]*models.MatchRecord, end-start)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.Concurrency)
	for year := start; year < end; year++ {
		year := year
		g.Go(func() error {
			matches, err := f.FetchMatches(gctx, tour, year)
			if err != nil {
				return err
			}
			perYear[year-start] = matches
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, m := range perYear {
		total += len(m)
	}
	all := make([]*models.MatchRecord, 0, total)
	for i, m := range perYear {
		f.logger.Infow("Fetched matches", "tour", tour, "year", start+i, "matches", len(m))
		all = append(all, m...)
	}
	return all, nil
}

func (f *Fetcher) fetchFile(ctx context.Context, tour, name string) (string, bool, error) {
	base, ok := f.cfg.BaseURLs[tour]
	if !ok {
		return "", false, fmt.Errorf("%w: %q", ErrUnknownTour, tour)
	}

	if !f.cfg.Force && f.cfg.Cache != nil {
		body, err := f.cfg.Cache.Get(ctx, name)
		if err == nil {
			sourceFiles.WithLabelValues(tour, "hit").Inc()
			return body, true, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			f.logger.Warnw("Cache read failed", "file", name, "error", err)
		}
	}

	url := strings.TrimSuffix(base, "/") + "/" + name
	body, err := f.download(ctx, url)
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
		sourceFiles.WithLabelValues(tour, "not_found").Inc()
		f.logger.Debugw("Match file not published", "url", url)
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	sourceFiles.WithLabelValues(tour, "miss").Inc()

	if f.cfg.Cache != nil {
		if err := f.cfg.Cache.Set(ctx, name, body); err != nil {
			f.logger.Warnw("Cache write failed", "file", name, "error", err)
		}
	}
	return body, true, nil
}

// download performs a rate-limited GET with exponential backoff on
// retryable failures.
func (f *Fetcher) download(ctx context.Context, url string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * f.cfg.RetryBackoff
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := f.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}

		body, err := f.get(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return "", err
		}
		f.logger.Debugw("Retrying download", "url", url, "attempt", attempt+1, "error", err)
	}
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (f *Fetcher) get(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &transportError{err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &transportError{err: err}
	}
	if resp.StatusCode >= 400 {
		return "", &HTTPError{StatusCode: resp.StatusCode}
	}
	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}

// HTTPError is a non-success response status.
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// transportError marks connection-level failures, which are retried.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}
	var te *transportError
	if errors.As(err, &te) {
		return !errors.Is(err, context.Canceled)
	}
	return false
}
