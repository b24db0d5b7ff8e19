// Package repourl extracts GitHub repository identities from the URL strings
// found in library metadata.
package repourl

import (
	"regexp"
	"strings"

	"github.com/git-pkgs/catalog/internal/core"
)

var repoURLPattern = regexp.MustCompile(
	`(?i:https?://(?:www\.)?github\.com/|git@github\.com:|git://github\.com/|ssh://git@github\.com/)([A-Za-z0-9._-]+)/([A-Za-z0-9._-]+)`,
)

// Parse returns the owner/repo pair named by u. It recognises https, ssh and
// scp-style git URLs, with or without a trailing .git and extra path segments.
// Anything else yields ok=false.
func Parse(u string) (id core.RepoIdentity, ok bool) {
	u = strings.TrimSpace(u)
	if u == "" {
		return id, false
	}

	m := repoURLPattern.FindStringSubmatch(u)
	if len(m) < 3 {
		return id, false
	}

	owner := m[1]
	repo := strings.TrimSuffix(m[2], ".git")
	if owner == "" || repo == "" || owner == "." || owner == ".." || repo == "." || repo == ".." {
		return id, false
	}
	return core.RepoIdentity{Owner: owner, Repo: repo}, true
}

// FirstOf parses each candidate in order and returns the first identity found.
func FirstOf(candidates ...string) (*core.RepoIdentity, bool) {
	for _, c := range candidates {
		if id, ok := Parse(c); ok {
			return &id, true
		}
	}
	return nil, false
}
