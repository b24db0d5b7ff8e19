package rank

import (
	"testing"

	"github.com/git-pkgs/catalog/internal/core"
)

func pkg(name string, stars int, archived bool) *core.Package {
	p := core.NewPackage(core.RawEntry{Name: name, Version: "1.0.0"}, &core.RepoIdentity{Owner: "o", Repo: name})
	p.Apply(&core.Enrichment{Stars: stars, IsArchived: archived})
	return p
}

func names(pkgs []*core.Package) []string {
	out := make([]string, len(pkgs))
	for i, p := range pkgs {
		out[i] = p.Name
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFilter(t *testing.T) {
	noRepo := core.NewPackage(core.RawEntry{Name: "NoRepo", Version: "1.0.0"}, nil)
	unverified := core.NewPackage(core.RawEntry{Name: "Unverified", Version: "1.0.0"}, &core.RepoIdentity{Owner: "o", Repo: "u"})
	elsewhere := core.NewPackage(core.RawEntry{Name: "Elsewhere", Version: "1.0.0", Repository: "https://gitlab.com/x/e"}, nil)
	all := []*core.Package{
		pkg("Live", 10, false),
		pkg("Archived", 500, true),
		noRepo,
		unverified,
		elsewhere,
	}

	got := names(Filter(all, Policy{}))
	if want := []string{"Live", "Unverified", "Elsewhere"}; !equal(got, want) {
		t.Errorf("Filter = %v, want %v", got, want)
	}

	got = names(Filter(all, Policy{ExcludeUnverified: true}))
	if want := []string{"Live"}; !equal(got, want) {
		t.Errorf("Filter(exclude unverified) = %v, want %v", got, want)
	}

	if len(all) != 5 {
		t.Error("Filter must not modify its input")
	}
}

func TestSort(t *testing.T) {
	pkgs := []*core.Package{
		pkg("beta", 5, false),
		pkg("Zeta", 100, false),
		pkg("alpha", 5, false),
		pkg("Alpha", 5, false),
		core.NewPackage(core.RawEntry{Name: "Never", Version: "1.0.0"}, &core.RepoIdentity{Owner: "o", Repo: "n"}),
		pkg("Zero", 0, false),
	}

	Sort(pkgs)

	want := []string{"Zeta", "Alpha", "alpha", "beta", "Never", "Zero"}
	if got := names(pkgs); !equal(got, want) {
		t.Errorf("Sort = %v, want %v", got, want)
	}

	for i := 1; i < len(pkgs); i++ {
		a, b := pkgs[i-1], pkgs[i]
		if a.StarCount() < b.StarCount() {
			t.Errorf("stars not descending at %d: %d < %d", i, a.StarCount(), b.StarCount())
		}
		if a.StarCount() == b.StarCount() && a.Name > b.Name {
			t.Errorf("names not ascending at %d: %q > %q", i, a.Name, b.Name)
		}
	}
}

func TestRank(t *testing.T) {
	got := names(Rank([]*core.Package{
		pkg("Small", 1, false),
		pkg("Gone", 0, true),
		pkg("Big", 1000, false),
	}, Policy{}))
	if want := []string{"Big", "Small"}; !equal(got, want) {
		t.Errorf("Rank = %v, want %v", got, want)
	}
}

func TestRankEmpty(t *testing.T) {
	if got := Rank(nil, Policy{}); got == nil || len(got) != 0 {
		t.Errorf("Rank(nil) = %#v, want empty non-nil slice", got)
	}
}
