// Package output assembles the final registry document and writes it.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/git-pkgs/purl"

	"github.com/git-pkgs/catalog/internal/core"
)

// TimeFormat is ISO 8601 in UTC with millisecond precision.
const TimeFormat = "2006-01-02T15:04:05.000Z"

// Stdout is the path that selects standard output in Write.
const Stdout = "-"

// Assemble wraps the ranked packages with generation metadata.
func Assemble(pkgs []*core.Package, now time.Time) *core.Registry {
	if pkgs == nil {
		pkgs = []*core.Package{}
	}
	return &core.Registry{
		GeneratedAt:    now.UTC().Format(TimeFormat),
		TotalLibraries: len(pkgs),
		Libraries:      pkgs,
	}
}

// Validate checks the invariants a registry must hold before it is written.
func Validate(reg *core.Registry) error {
	if reg.TotalLibraries != len(reg.Libraries) {
		return fmt.Errorf("totalLibraries is %d but %d libraries are listed", reg.TotalLibraries, len(reg.Libraries))
	}
	if _, err := time.Parse(TimeFormat, reg.GeneratedAt); err != nil {
		return fmt.Errorf("generatedAt: %w", err)
	}

	var errs []error
	for i, p := range reg.Libraries {
		if p.Repository == "" {
			errs = append(errs, fmt.Errorf("%s: missing repository", p.Name))
		}
		if p.Archived() {
			errs = append(errs, fmt.Errorf("%s: archived", p.Name))
		}
		if len(p.Versions) == 0 {
			errs = append(errs, fmt.Errorf("%s: no versions", p.Name))
		}
		if p.PURL != "" {
			if _, err := purl.Parse(p.PURL); err != nil {
				errs = append(errs, fmt.Errorf("%s: purl %q: %w", p.Name, p.PURL, err))
			}
		}
		if i > 0 {
			prev := reg.Libraries[i-1]
			if prev.StarCount() < p.StarCount() ||
				(prev.StarCount() == p.StarCount() && prev.Name > p.Name) {
				errs = append(errs, fmt.Errorf("%s: out of order after %s", p.Name, prev.Name))
			}
		}
	}
	return errors.Join(errs...)
}

// Encode writes reg as indented JSON.
func Encode(w io.Writer, reg *core.Registry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(reg)
}

// Write stores reg at path, replacing any existing file atomically.
// A path of "-" writes to standard output.
func Write(path string, reg *core.Registry) error {
	if path == Stdout {
		return Encode(os.Stdout, reg)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := Encode(tmp, reg); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encoding registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
