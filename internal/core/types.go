// Package core provides the data model shared by every stage of the catalog pipeline.
package core

import (
	"fmt"
	"strings"
	"time"
)

// Index is the document published by the library index provider.
type Index struct {
	Libraries []RawEntry `json:"libraries"`

	// Malformed lists entries dropped because they could not be decoded.
	Malformed []*EntryError `json:"-"`
}

// RawEntry is one (library, version) record as it appears in the index.
// Entries are read once during grouping and never modified.
type RawEntry struct {
	Name            string   `json:"name"`
	Author          string   `json:"author"`
	Maintainer      string   `json:"maintainer"`
	Sentence        string   `json:"sentence"`
	Paragraph       string   `json:"paragraph"`
	Website         string   `json:"website"`
	Repository      string   `json:"repository"`
	Category        string   `json:"category"`
	Architectures   []string `json:"architectures"`
	Types           []string `json:"types"`
	Version         string   `json:"version"`
	URL             string   `json:"url"`
	ArchiveFileName string   `json:"archiveFileName"`
	Size            int64    `json:"size"`
	Checksum        string   `json:"checksum"`
}

// VersionRecord is the per-release part of a RawEntry.
type VersionRecord struct {
	Version         string `json:"version"`
	URL             string `json:"url"`
	ArchiveFileName string `json:"archiveFileName"`
	Size            int64  `json:"size"`
	Checksum        string `json:"checksum"`
}

// VersionOf projects a RawEntry onto its release fields.
func VersionOf(e RawEntry) VersionRecord {
	return VersionRecord{
		Version:         e.Version,
		URL:             e.URL,
		ArchiveFileName: e.ArchiveFileName,
		Size:            e.Size,
		Checksum:        e.Checksum,
	}
}

// RepoIdentity names a hosted repository.
type RepoIdentity struct {
	Owner string
	Repo  string
}

func (r RepoIdentity) String() string {
	return r.Owner + "/" + r.Repo
}

// URL returns the canonical https URL of the repository.
func (r RepoIdentity) URL() string {
	return fmt.Sprintf("https://github.com/%s/%s", r.Owner, r.Repo)
}

// Enrichment is the live repository metadata attached to a Package.
// A Package holds either a complete Enrichment or none at all.
type Enrichment struct {
	Stars             int        `json:"stars"`
	IsArchived        bool       `json:"isArchived"`
	PushedAt          *time.Time `json:"pushedAt"`
	OpenIssues        int        `json:"openIssues"`
	Topics            []string   `json:"topics"`
	License           *string    `json:"license"`
	GitHubDescription *string    `json:"githubDescription"`
}

// NotFoundEnrichment is the result recorded for a repository that no longer exists.
func NotFoundEnrichment() *Enrichment {
	return &Enrichment{
		Stars:      0,
		IsArchived: true,
		Topics:     []string{},
	}
}

// Package is one uniquely named library with its release history.
type Package struct {
	Name          string          `json:"name"`
	Author        string          `json:"author"`
	Maintainer    string          `json:"maintainer"`
	Sentence      string          `json:"sentence"`
	Paragraph     string          `json:"paragraph"`
	Website       string          `json:"website"`
	Category      string          `json:"category"`
	Architectures []string        `json:"architectures"`
	Types         []string        `json:"types"`
	Versions      []VersionRecord `json:"versions"`
	Repository    string          `json:"repository,omitempty"` // canonical URL when an identity exists, else as listed
	PURL          string          `json:"purl,omitempty"`

	*Enrichment

	// Identity is derived during grouping and only consulted by enrichment.
	Identity *RepoIdentity `json:"-"`
}

// NewPackage starts a Package from the first entry seen for its name.
// Repository is the canonical GitHub URL when id is set, otherwise the
// entry's own repository URL, falling back to its website.
func NewPackage(e RawEntry, id *RepoIdentity) *Package {
	p := &Package{
		Name:          e.Name,
		Author:        e.Author,
		Maintainer:    e.Maintainer,
		Sentence:      e.Sentence,
		Paragraph:     e.Paragraph,
		Website:       e.Website,
		Category:      e.Category,
		Architectures: e.Architectures,
		Types:         e.Types,
		Versions:      []VersionRecord{VersionOf(e)},
		Identity:      id,
	}
	switch {
	case id != nil:
		p.Repository = id.URL()
	case strings.TrimSpace(e.Repository) != "":
		p.Repository = strings.TrimSpace(e.Repository)
	default:
		p.Repository = strings.TrimSpace(e.Website)
	}
	return p
}

// Enriched reports whether enrichment data has been applied.
func (p *Package) Enriched() bool {
	return p.Enrichment != nil
}

// StarCount returns the star count, treating a never-enriched package as zero.
func (p *Package) StarCount() int {
	if p.Enrichment == nil {
		return 0
	}
	return p.Stars
}

// Archived reports the archive flag, treating a never-enriched package as live.
func (p *Package) Archived() bool {
	return p.Enrichment != nil && p.IsArchived
}

// Apply attaches enrichment data. A nil value leaves the package untouched.
func (p *Package) Apply(e *Enrichment) {
	if e == nil {
		return
	}
	if e.Topics == nil {
		e.Topics = []string{}
	}
	p.Enrichment = e
}

// Registry is the final artifact written at the end of a run.
type Registry struct {
	GeneratedAt    string     `json:"generatedAt"`
	TotalLibraries int        `json:"totalLibraries"`
	Libraries      []*Package `json:"libraries"`
}
