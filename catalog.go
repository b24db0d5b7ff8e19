// Package catalog builds a ranked library catalog by merging the published
// library index with live repository metadata.
//
// Basic usage:
//
//	reg, summary, err := catalog.Build(ctx, catalog.Options{
//		Token: os.Getenv("GITHUB_TOKEN"),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(summary.Retained, "libraries")
//	_ = catalog.Write("registry.json", reg)
//
// A run fails only when the index cannot be fetched or is malformed.
// Per-library lookup failures reduce ranking completeness but never abort.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/git-pkgs/catalog/client"
	"github.com/git-pkgs/catalog/fetch"
	"github.com/git-pkgs/catalog/internal/cache"
	"github.com/git-pkgs/catalog/internal/core"
	"github.com/git-pkgs/catalog/internal/enrich"
	"github.com/git-pkgs/catalog/internal/github"
	"github.com/git-pkgs/catalog/internal/index"
	"github.com/git-pkgs/catalog/internal/output"
	"github.com/git-pkgs/catalog/internal/rank"
)

// Re-export types from internal/core
type (
	// Registry is the document produced by a run.
	Registry = core.Registry

	// Package is one library with its release history and metadata.
	Package = core.Package

	// Enrichment is the repository metadata attached to a Package.
	Enrichment = core.Enrichment

	// VersionRecord is a single release of a Package.
	VersionRecord = core.VersionRecord

	// Cache stores metadata lookups between runs.
	Cache = cache.Cache
)

// UserAgent is sent with every request.
const UserAgent = "git-pkgs-catalog/1.0"

// Defaults
const (
	DefaultIndexURL         = index.DefaultURL
	DefaultAPIURL           = github.DefaultBaseURL
	DefaultBatchSize        = enrich.DefaultBatchSize
	DefaultProgressEvery    = enrich.DefaultProgressEvery
	DefaultTimeout          = 10 * time.Second
	DefaultIndexTimeout     = 60 * time.Second
	DefaultRateLimitWait    = github.DefaultRateLimitWait
	DefaultRateLimitMargin  = github.DefaultRateLimitMargin
	DefaultBreakerThreshold = 5
	DefaultCacheTTL         = github.DefaultCacheTTL
)

// Options configures a run. Zero values select the defaults.
type Options struct {
	IndexURL string
	APIURL   string
	Token    string

	BatchSize     int
	ProgressEvery int

	MaxAttempts  int           // index downloads and rate-limited lookups
	BaseDelay    time.Duration // index backoff
	MaxDelay     time.Duration // index backoff ceiling
	Timeout      time.Duration // per metadata call
	IndexTimeout time.Duration // index download

	RateLimitWait   time.Duration
	RateLimitMargin time.Duration

	BreakerThreshold int

	Cache    Cache
	CacheTTL time.Duration

	// ExcludeUnverified drops libraries whose metadata could not be fetched.
	ExcludeUnverified bool

	Logger *log.Logger
	Now    func() time.Time
}

func (o Options) withDefaults() Options {
	def := client.DefaultPolicy()
	if o.IndexURL == "" {
		o.IndexURL = DefaultIndexURL
	}
	if o.APIURL == "" {
		o.APIURL = DefaultAPIURL
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = DefaultProgressEvery
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = def.MaxAttempts
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = def.BaseDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = def.MaxDelay
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.IndexTimeout <= 0 {
		o.IndexTimeout = DefaultIndexTimeout
	}
	if o.RateLimitWait <= 0 {
		o.RateLimitWait = DefaultRateLimitWait
	}
	if o.RateLimitMargin <= 0 {
		o.RateLimitMargin = DefaultRateLimitMargin
	}
	if o.BreakerThreshold <= 0 {
		o.BreakerThreshold = DefaultBreakerThreshold
	}
	if o.Cache == nil {
		o.Cache = cache.NewNullCache()
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = DefaultCacheTTL
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	o.Logger = core.Logger(o.Logger)
	return o
}

// Summary counts what happened during a run.
type Summary struct {
	Entries        int // index entries read
	SkippedEntries int // entries without a name
	Malformed      int // entries that could not be decoded
	Packages       int // distinct library names
	Enrichment     enrich.Stats
	Retained       int // libraries in the registry
}

// Build fetches the index, groups it, enriches every library, and returns
// the ranked registry. The registry is not written.
func Build(ctx context.Context, opts Options) (*Registry, Summary, error) {
	opts = opts.withDefaults()
	logger := opts.Logger
	var summary Summary

	policy := client.Policy{
		MaxAttempts: opts.MaxAttempts,
		BaseDelay:   opts.BaseDelay,
		MaxDelay:    opts.MaxDelay,
	}

	fetcher := fetch.NewCircuitBreakerFetcher(
		fetch.NewFetcher(fetch.WithTimeout(opts.IndexTimeout), fetch.WithUserAgent(UserAgent)),
		fetch.WithTripThreshold(opts.BreakerThreshold),
	)
	loader := index.NewLoader(opts.IndexURL,
		index.WithFetcher(fetcher),
		index.WithPolicy(policy),
		index.WithLogger(logger),
	)

	idx, err := loader.Load(ctx)
	if err != nil {
		return nil, summary, err
	}

	grouped := index.Group(idx.Libraries, logger)
	summary.Entries = grouped.Entries
	summary.SkippedEntries = grouped.Skipped
	summary.Malformed = len(idx.Malformed)
	summary.Packages = grouped.Len()
	logger.Info("grouped library index", "entries", grouped.Entries, "libraries", grouped.Len(), "skipped", grouped.Skipped)

	api := github.NewClient(opts.Token,
		client.WithTimeout(opts.Timeout),
		client.WithUserAgent(UserAgent),
	)
	provider := github.New(
		github.WithClient(api),
		github.WithBaseURL(opts.APIURL),
		github.WithCache(opts.Cache, opts.CacheTTL),
		github.WithLogger(logger),
		github.WithMaxAttempts(opts.MaxAttempts),
		github.WithRateLimitWait(opts.RateLimitWait),
		github.WithRateLimitMargin(opts.RateLimitMargin),
		github.WithClock(opts.Now),
	)

	pkgs := grouped.Packages()
	scheduler := enrich.New(provider,
		enrich.WithBatchSize(opts.BatchSize),
		enrich.WithProgressEvery(opts.ProgressEvery),
		enrich.WithLogger(logger),
	)
	stats, err := scheduler.Run(ctx, pkgs)
	summary.Enrichment = stats
	if err != nil {
		return nil, summary, err
	}

	ranked := rank.Rank(pkgs, rank.Policy{ExcludeUnverified: opts.ExcludeUnverified})
	reg := output.Assemble(ranked, opts.Now())
	if err := output.Validate(reg); err != nil {
		return nil, summary, fmt.Errorf("assembled registry is inconsistent: %w", err)
	}
	summary.Retained = reg.TotalLibraries

	if states := fetcher.GetBreakerState(); len(states) > 0 {
		logger.Debug("index circuit breakers", "states", states)
	}
	return reg, summary, nil
}

// Write stores reg at path atomically; "-" writes to standard output.
func Write(path string, reg *Registry) error {
	return output.Write(path, reg)
}
