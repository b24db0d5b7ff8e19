// Package index loads the library index document and collapses its
// per-release entries into one Package per library name.
package index

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tidwall/gjson"

	"github.com/git-pkgs/catalog/client"
	"github.com/git-pkgs/catalog/fetch"
	"github.com/git-pkgs/catalog/internal/core"
)

// DefaultURL is the published location of the library index.
const DefaultURL = "https://downloads.arduino.cc/libraries/library_index.json"

// Loader downloads and validates the index document.
type Loader struct {
	url     string
	fetcher fetch.FetcherInterface
	policy  client.Policy
	logger  *log.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithFetcher sets the fetcher used for the download.
func WithFetcher(f fetch.FetcherInterface) LoaderOption {
	return func(l *Loader) {
		l.fetcher = f
	}
}

// WithPolicy sets the retry policy wrapped around the download.
func WithPolicy(p client.Policy) LoaderOption {
	return func(l *Loader) {
		l.policy = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a Loader for the index at url. An empty url selects DefaultURL.
func NewLoader(url string, opts ...LoaderOption) *Loader {
	if url == "" {
		url = DefaultURL
	}
	l := &Loader{
		url:    url,
		policy: client.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.fetcher == nil {
		l.fetcher = fetch.NewCircuitBreakerFetcher(fetch.NewFetcher())
	}
	l.logger = core.Logger(l.logger)
	return l
}

// URL returns the index location.
func (l *Loader) URL() string {
	return l.url
}

// Load fetches the index, retrying transient failures, and decodes it.
// Exhausted retries and malformed documents are both fatal to a run.
func (l *Loader) Load(ctx context.Context) (*core.Index, error) {
	l.logger.Info("fetching library index", "url", l.url)
	start := time.Now()

	var data []byte
	err := client.Retry(ctx, l.policy, func(ctx context.Context) error {
		var err error
		data, err = fetch.FetchBytes(ctx, l.fetcher, l.url)
		return err
	}, func(err error, attempt int, next time.Duration) {
		l.logger.Warn("index fetch failed, retrying", "attempt", attempt, "wait", next, "err", err)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching index %s: %w", l.url, err)
	}

	idx, err := Decode(data)
	if err != nil {
		return nil, err
	}
	for _, bad := range idx.Malformed {
		l.logger.Warn("skipping malformed index entry", "position", bad.Position, "err", bad.Err)
	}

	l.logger.Info("library index loaded",
		"entries", len(idx.Libraries),
		"malformed", len(idx.Malformed),
		"bytes", len(data),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return idx, nil
}

// Decode validates that data is an object with a libraries array and decodes
// each element on its own. Elements that fail to decode are recorded in
// Index.Malformed and left out; only a bad document shape is an error.
func Decode(data []byte) (*core.Index, error) {
	if !gjson.ValidBytes(data) {
		return nil, &core.IndexError{Reason: "document is not valid JSON"}
	}

	libs := gjson.GetBytes(data, "libraries")
	if !libs.Exists() {
		return nil, &core.IndexError{Reason: "missing libraries array"}
	}
	if !libs.IsArray() {
		return nil, &core.IndexError{Reason: fmt.Sprintf("libraries is %s, not an array", libs.Type)}
	}

	idx := &core.Index{Libraries: []core.RawEntry{}}
	pos := 0
	libs.ForEach(func(_, value gjson.Result) bool {
		var e core.RawEntry
		if err := json.Unmarshal([]byte(value.Raw), &e); err != nil {
			idx.Malformed = append(idx.Malformed, &core.EntryError{Position: pos, Err: err})
		} else {
			idx.Libraries = append(idx.Libraries, e)
		}
		pos++
		return true
	})
	return idx, nil
}
