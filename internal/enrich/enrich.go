// Package enrich drives metadata lookups across every grouped package in
// fixed-size concurrent batches.
package enrich

import (
	"context"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/git-pkgs/catalog/internal/core"
	"github.com/git-pkgs/catalog/internal/github"
)

const (
	DefaultBatchSize     = 5
	DefaultProgressEvery = 50
)

// Provider looks up metadata for one repository. Lookup must not fail;
// a nil enrichment means no data.
type Provider interface {
	Lookup(ctx context.Context, id core.RepoIdentity) (*core.Enrichment, github.Outcome)
	PackageURL(id core.RepoIdentity) string
}

// Stats counts lookup outcomes for a run.
type Stats struct {
	Total       int
	Skipped     int
	Enriched    int
	NotFound    int
	RateLimited int
	Failed      int
}

func (s *Stats) add(o github.Outcome) {
	switch o {
	case github.OutcomeEnriched:
		s.Enriched++
	case github.OutcomeNotFound:
		s.NotFound++
	case github.OutcomeRateLimited:
		s.RateLimited++
	case github.OutcomeFailed:
		s.Failed++
	default:
		s.Skipped++
	}
}

// Scheduler enriches packages batch by batch.
type Scheduler struct {
	provider      Provider
	batchSize     int
	progressEvery int
	logger        *log.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithBatchSize sets how many lookups run at once.
func WithBatchSize(n int) Option {
	return func(s *Scheduler) {
		s.batchSize = n
	}
}

// WithProgressEvery sets how often, in processed packages, progress is logged.
func WithProgressEvery(n int) Option {
	return func(s *Scheduler) {
		s.progressEvery = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// New creates a Scheduler using p for lookups.
func New(p Provider, opts ...Option) *Scheduler {
	s := &Scheduler{
		provider:      p,
		batchSize:     DefaultBatchSize,
		progressEvery: DefaultProgressEvery,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.batchSize = max(s.batchSize, 1)
	s.progressEvery = max(s.progressEvery, 1)
	s.logger = core.Logger(s.logger)
	return s
}

type result struct {
	enrichment *core.Enrichment
	outcome    github.Outcome
}

// Run enriches pkgs in place. Each batch is fully settled before the next
// starts, and results are applied only after the batch has joined. A
// package's lookup outcome never affects its siblings. Cancelling ctx stops
// scheduling new batches; the returned error is then ctx.Err().
func (s *Scheduler) Run(ctx context.Context, pkgs []*core.Package) (Stats, error) {
	stats := Stats{Total: len(pkgs)}
	processed := 0

	for start := 0; start < len(pkgs); start += s.batchSize {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("enrichment interrupted", "processed", processed, "total", len(pkgs))
			return stats, err
		}

		batch := pkgs[start:min(start+s.batchSize, len(pkgs))]
		results := make([]result, len(batch))

		var g errgroup.Group
		for i, pkg := range batch {
			if pkg.Identity == nil {
				s.logger.Warn("no repository identity, skipping enrichment", "package", pkg.Name)
				continue
			}
			id := *pkg.Identity
			g.Go(func() error {
				e, outcome := s.provider.Lookup(ctx, id)
				results[i] = result{enrichment: e, outcome: outcome}
				return nil
			})
		}
		_ = g.Wait()

		for i, pkg := range batch {
			r := results[i]
			stats.add(r.outcome)
			if pkg.Identity != nil {
				pkg.PURL = s.provider.PackageURL(*pkg.Identity)
			}
			pkg.Apply(r.enrichment)
			pkg.Identity = nil
		}

		before := processed
		processed += len(batch)
		if processed/s.progressEvery > before/s.progressEvery || processed == len(pkgs) {
			s.logger.Info("enrichment progress", "processed", processed, "total", len(pkgs))
		}
	}

	return stats, nil
}
