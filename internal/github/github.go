// Package github looks up repository metadata used to enrich catalog packages.
//
// A lookup never fails: transport errors and unexpected responses are logged
// and reported as "no data" so one repository cannot disturb another.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/git-pkgs/purl"
	"github.com/github/go-spdx/v2/spdxexp"

	"github.com/git-pkgs/catalog/client"
	"github.com/git-pkgs/catalog/internal/cache"
	"github.com/git-pkgs/catalog/internal/core"
)

const (
	DefaultBaseURL = "https://api.github.com"
	AcceptHeader   = "application/vnd.github.v3+json"

	DefaultRateLimitWait   = 60 * time.Second
	DefaultRateLimitMargin = time.Second
	DefaultCacheTTL        = 6 * time.Hour
	DefaultMaxAttempts     = 3
)

// Outcome classifies a single lookup.
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeEnriched
	OutcomeNotFound
	OutcomeRateLimited
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEnriched:
		return "enriched"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// NewClient returns an API client sending the v3 media type and, when token
// is non-empty, a bearer token.
func NewClient(token string, opts ...client.Option) *client.Client {
	base := []client.Option{
		client.WithHeader("Accept", AcceptHeader),
		client.WithToken(token),
	}
	return client.NewClient(append(base, opts...)...)
}

// Provider fetches repository metadata from the GitHub REST API.
type Provider struct {
	client      *client.Client
	urls        client.URLBuilder
	cache       cache.Cache
	cacheTTL    time.Duration
	logger      *log.Logger
	maxAttempts int
	waitDefault time.Duration
	waitMargin  time.Duration
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option configures a Provider.
type Option func(*Provider)

// WithClient sets the API client.
func WithClient(c *client.Client) Option {
	return func(p *Provider) {
		p.client = c
	}
}

// WithBaseURL points the provider at another API root.
func WithBaseURL(base string) Option {
	return func(p *Provider) {
		p.urls = urlsFor(base)
	}
}

// WithCache stores successful lookups in c for ttl.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(p *Provider) {
		p.cache = c
		p.cacheTTL = ttl
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Provider) {
		p.logger = l
	}
}

// WithMaxAttempts bounds how many times a rate-limited lookup is issued.
func WithMaxAttempts(n int) Option {
	return func(p *Provider) {
		p.maxAttempts = n
	}
}

// WithRateLimitWait sets the wait used when a rate-limit response carries no reset time.
func WithRateLimitWait(d time.Duration) Option {
	return func(p *Provider) {
		p.waitDefault = d
	}
}

// WithRateLimitMargin sets the margin added after a reset time.
func WithRateLimitMargin(d time.Duration) Option {
	return func(p *Provider) {
		p.waitMargin = d
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		p.now = now
	}
}

// WithSleep replaces the context-aware sleep used for rate-limit waits.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Provider) {
		p.sleep = fn
	}
}

// New creates a Provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		urls:        urlsFor(DefaultBaseURL),
		cacheTTL:    DefaultCacheTTL,
		maxAttempts: DefaultMaxAttempts,
		waitDefault: DefaultRateLimitWait,
		waitMargin:  DefaultRateLimitMargin,
		now:         time.Now,
		sleep:       sleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		p.client = NewClient("")
	}
	if p.cache == nil {
		p.cache = cache.NewNullCache()
	}
	p.maxAttempts = max(p.maxAttempts, 1)
	p.logger = core.Logger(p.logger)
	return p
}

func urlsFor(base string) client.URLBuilder {
	base = strings.TrimRight(base, "/")
	return &client.BaseURLs{
		APIFn: func(owner, repo string) string {
			return fmt.Sprintf("%s/repos/%s/%s", base, owner, repo)
		},
		PURLFn: func(owner, repo string) string {
			return fmt.Sprintf("pkg:github/%s/%s", owner, repo)
		},
	}
}

// PackageURL returns the package URL for a repository, or "" if the
// identity cannot form a valid one.
func (p *Provider) PackageURL(id core.RepoIdentity) string {
	s := p.urls.PURL(id.Owner, id.Repo)
	if _, err := purl.Parse(s); err != nil {
		p.logger.Debug("invalid package url", "repo", id, "purl", s, "err", err)
		return ""
	}
	return s
}

type repoResponse struct {
	Stars       int        `json:"stargazers_count"`
	Archived    bool       `json:"archived"`
	PushedAt    *time.Time `json:"pushed_at"`
	OpenIssues  int        `json:"open_issues_count"`
	Description *string    `json:"description"`
	License     *struct {
		SPDXID string `json:"spdx_id"`
	} `json:"license"`
	Topics []string `json:"topics"`
}

type cachedLookup struct {
	NotFound   bool             `json:"not_found"`
	Enrichment *core.Enrichment `json:"enrichment"`
}

// Lookup fetches metadata for id. A missing repository yields the not-found
// enrichment (zero stars, archived). Rate-limited calls are re-issued after
// the advertised reset, up to the attempt ceiling. Every other failure
// yields nil.
func (p *Provider) Lookup(ctx context.Context, id core.RepoIdentity) (*core.Enrichment, Outcome) {
	key := "github:" + id.String()
	if e, outcome, ok := p.cached(ctx, key); ok {
		return e, outcome
	}

	url := p.urls.API(id.Owner, id.Repo)
	p.logger.Debug("looking up repository", "repo", id, "url", url)

	for attempt := 1; ; attempt++ {
		resp, err := p.client.Get(ctx, url)
		if err != nil {
			p.logger.Warn("repository lookup failed", "repo", id, "err", err)
			return nil, OutcomeFailed
		}

		switch {
		case resp.OK():
			e, err := decode(resp.Body)
			if err != nil {
				p.logger.Warn("decoding repository metadata", "repo", id, "err", err)
				return nil, OutcomeFailed
			}
			p.store(ctx, key, cachedLookup{Enrichment: e})
			return e, OutcomeEnriched

		case resp.StatusCode == http.StatusNotFound:
			p.logger.Info("repository not found, marking archived", "repo", id)
			e := core.NotFoundEnrichment()
			p.store(ctx, key, cachedLookup{NotFound: true, Enrichment: e})
			return e, OutcomeNotFound

		case client.IsRateLimited(resp.StatusCode, resp.Header):
			if attempt >= p.maxAttempts {
				p.logger.Warn("rate limit retries exhausted", "repo", id, "attempts", attempt)
				return nil, OutcomeRateLimited
			}
			wait := client.RateLimitWait(resp.Header, p.now(), p.waitDefault, p.waitMargin)
			p.logger.Warn("rate limited, waiting", "repo", id, "attempt", attempt, "wait", wait)
			if err := p.sleep(ctx, wait); err != nil {
				p.logger.Warn("rate limit wait interrupted", "repo", id, "err", err)
				return nil, OutcomeFailed
			}

		default:
			p.logger.Warn("repository lookup failed", "repo", id, "err", client.CheckResponse(resp, p.now()))
			return nil, OutcomeFailed
		}
	}
}

func (p *Provider) cached(ctx context.Context, key string) (*core.Enrichment, Outcome, bool) {
	data, ok, err := p.cache.Get(ctx, key)
	if err != nil {
		p.logger.Debug("cache read failed", "key", key, "err", err)
		return nil, OutcomeSkipped, false
	}
	if !ok {
		return nil, OutcomeSkipped, false
	}

	var c cachedLookup
	if err := json.Unmarshal(data, &c); err != nil || c.Enrichment == nil {
		p.logger.Debug("discarding unreadable cache entry", "key", key)
		return nil, OutcomeSkipped, false
	}

	p.logger.Debug("cache hit", "key", key)
	if c.NotFound {
		return c.Enrichment, OutcomeNotFound, true
	}
	return c.Enrichment, OutcomeEnriched, true
}

func (p *Provider) store(ctx context.Context, key string, c cachedLookup) {
	data, err := json.Marshal(c)
	if err != nil {
		return
	}
	if err := p.cache.Set(ctx, key, data, p.cacheTTL); err != nil {
		p.logger.Warn("cache write failed", "key", key, "err", err)
	}
}

func decode(body []byte) (*core.Enrichment, error) {
	var r repoResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, err
	}

	e := &core.Enrichment{
		Stars:      max(r.Stars, 0),
		IsArchived: r.Archived,
		PushedAt:   r.PushedAt,
		OpenIssues: r.OpenIssues,
		Topics:     r.Topics,
	}
	if e.Topics == nil {
		e.Topics = []string{}
	}
	if r.License != nil {
		e.License = NormalizeLicense(r.License.SPDXID)
	}
	if r.Description != nil && strings.TrimSpace(*r.Description) != "" {
		e.GitHubDescription = r.Description
	}
	return e, nil
}

// NormalizeLicense returns id if it is a valid SPDX identifier, nil otherwise.
// GitHub reports NOASSERTION for licences it could not classify.
func NormalizeLicense(id string) *string {
	id = strings.TrimSpace(id)
	if id == "" || strings.EqualFold(id, "NOASSERTION") {
		return nil
	}
	if ok, _ := spdxexp.ValidateLicenses([]string{id}); !ok {
		return nil
	}
	return &id
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
