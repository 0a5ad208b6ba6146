// Package runner fans feed fetches out over a bounded worker pool with a
// shared rate limit.
package runner

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hopguard/hopguard/internal/connector/rss"
)

// FeedFetcher fetches one feed URL. *rss.Connector satisfies it.
type FeedFetcher interface {
	FetchFeed(ctx context.Context, url string) (*rss.Feed, []rss.Entry, error)
}

// Config holds settings for the runner.
type Config struct {
	Workers   int
	RateLimit float64 // requests per second, 0 = unlimited
}

// Result is the outcome of fetching one feed.
type Result struct {
	URL      string
	Feed     *rss.Feed
	Entries  []rss.Entry
	Err      error
	Duration time.Duration
}

// Runner coordinates concurrent feed fetches.
type Runner struct {
	cfg     Config
	fetcher FeedFetcher
	limiter *rate.Limiter
	log     *zap.Logger
}

// New creates a new Runner.
func New(cfg Config, fetcher FeedFetcher, log *zap.Logger) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return &Runner{cfg: cfg, fetcher: fetcher, limiter: limiter, log: log}
}

// Run fetches every URL and returns results in input order.
func (r *Runner) Run(ctx context.Context, urls []string) []Result {
	out := make([]Result, len(urls))
	mu := &sync.Mutex{}

	type job struct {
		idx int
		url string
	}

	jobs := make(chan job)
	wg := sync.WaitGroup{}
	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for jb := range jobs {
				if err := r.limiter.Wait(ctx); err != nil {
					mu.Lock()
					out[jb.idx] = Result{URL: jb.url, Err: err}
					mu.Unlock()
					continue
				}
				start := time.Now()
				feed, entries, err := r.fetcher.FetchFeed(ctx, jb.url)
				res := Result{
					URL:      jb.url,
					Feed:     feed,
					Entries:  entries,
					Err:      err,
					Duration: time.Since(start),
				}
				if err != nil {
					r.log.Warn("feed fetch failed",
						zap.String("url", jb.url),
						zap.Error(err))
				}
				mu.Lock()
				out[jb.idx] = res
				mu.Unlock()
			}
		}()
	}

	go func() {
		for i, u := range urls {
			if ctx.Err() != nil {
				break
			}
			jobs <- job{idx: i, url: u}
		}
		close(jobs)
	}()

	wg.Wait()
	return out
}
