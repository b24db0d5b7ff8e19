// Package version orders library release strings by their numeric
// major.minor.patch prefix.
//
// The comparison is total over all strings: missing components count as zero
// and input without a numeric prefix is treated as 0.0.0.
package version

import (
	"cmp"
	"regexp"
	"slices"
	"strconv"

	"github.com/git-pkgs/catalog/internal/core"
)

var prefixPattern = regexp.MustCompile(`^\s*[vV]?(\d+)(?:\.(\d+))?(?:\.(\d+))?`)

// Triple is a parsed major.minor.patch prefix.
type Triple [3]uint64

// Parse extracts the numeric prefix of s. Components that overflow uint64
// saturate at the maximum value.
func Parse(s string) Triple {
	var t Triple
	m := prefixPattern.FindStringSubmatch(s)
	if m == nil {
		return t
	}
	for i := range t {
		if m[i+1] == "" {
			continue
		}
		n, _ := strconv.ParseUint(m[i+1], 10, 64)
		t[i] = n
	}
	return t
}

func (t Triple) String() string {
	return strconv.FormatUint(t[0], 10) + "." + strconv.FormatUint(t[1], 10) + "." + strconv.FormatUint(t[2], 10)
}

// Compare returns -1, 0 or +1 as a is older than, equal to, or newer than b.
func Compare(a, b string) int {
	ta, tb := Parse(a), Parse(b)
	for i := range ta {
		if c := cmp.Compare(ta[i], tb[i]); c != 0 {
			return c
		}
	}
	return 0
}

// Newest is a comparison function for sorting newest first.
func Newest(a, b string) int {
	return Compare(b, a)
}

// SortDescending orders records newest first. Records with equal versions
// keep their original relative order.
func SortDescending(records []core.VersionRecord) {
	slices.SortStableFunc(records, func(x, y core.VersionRecord) int {
		return Newest(x.Version, y.Version)
	})
}
