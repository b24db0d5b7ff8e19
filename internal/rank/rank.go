// Package rank filters enriched packages and orders them by popularity.
package rank

import (
	"cmp"
	"slices"

	"github.com/git-pkgs/catalog/internal/core"
)

// Policy controls which packages survive filtering.
type Policy struct {
	// ExcludeUnverified drops packages whose metadata could never be
	// fetched. By default they are kept, since an unknown archive state
	// is treated as not archived.
	ExcludeUnverified bool
}

// Filter returns the packages that have a repository and are not archived.
// The input slice is not modified.
func Filter(pkgs []*core.Package, policy Policy) []*core.Package {
	out := make([]*core.Package, 0, len(pkgs))
	for _, p := range pkgs {
		if p.Repository == "" || p.Archived() {
			continue
		}
		if policy.ExcludeUnverified && !p.Enriched() {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Sort orders pkgs by stars descending, then by name ascending (byte-wise).
func Sort(pkgs []*core.Package) {
	slices.SortStableFunc(pkgs, func(a, b *core.Package) int {
		if c := cmp.Compare(b.StarCount(), a.StarCount()); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
}

// Rank filters then sorts.
func Rank(pkgs []*core.Package, policy Policy) []*core.Package {
	out := Filter(pkgs, policy)
	Sort(out)
	return out
}
