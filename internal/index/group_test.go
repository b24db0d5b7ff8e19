package index

import (
	"testing"

	"github.com/git-pkgs/catalog/internal/core"
)

func entries() []core.RawEntry {
	return []core.RawEntry{
		{Name: "Foo", Version: "1.0.0", Sentence: "first", Repository: "https://github.com/a/foo.git"},
		{Name: "Bar", Version: "1.0.0", Repository: "unparseable"},
		{Name: "Foo", Version: "2.1.3", Sentence: "second", Repository: "https://github.com/other/foo"},
		{Name: "", Version: "0.1.0"},
		{Name: "Baz", Version: "0.9", Website: "https://github.com/site/baz", Repository: "https://github.com/repo/baz"},
		{Name: "Foo", Version: "1.10.0"},
		{Name: "  ", Version: "3.0.0"},
	}
}

func TestGroup(t *testing.T) {
	g := Group(entries(), nil)

	if g.Len() != 3 {
		t.Fatalf("expected 3 packages, got %d", g.Len())
	}
	if g.Entries != 7 || g.Skipped != 2 {
		t.Errorf("Entries=%d Skipped=%d, want 7 and 2", g.Entries, g.Skipped)
	}

	wantOrder := []string{"Foo", "Bar", "Baz"}
	for i, name := range g.Names() {
		if name != wantOrder[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, name, wantOrder[i])
		}
	}
	for i, p := range g.Packages() {
		if p.Name != wantOrder[i] {
			t.Errorf("Packages()[%d] = %q, want %q", i, p.Name, wantOrder[i])
		}
	}

	foo, ok := g.Get("Foo")
	if !ok {
		t.Fatal("Foo not grouped")
	}
	if foo.Sentence != "first" {
		t.Errorf("descriptive fields should come from the first entry, got %q", foo.Sentence)
	}
	wantVersions := []string{"2.1.3", "1.10.0", "1.0.0"}
	if len(foo.Versions) != len(wantVersions) {
		t.Fatalf("expected %d versions, got %d", len(wantVersions), len(foo.Versions))
	}
	for i, v := range foo.Versions {
		if v.Version != wantVersions[i] {
			t.Errorf("Versions[%d] = %q, want %q", i, v.Version, wantVersions[i])
		}
	}
	if foo.Identity == nil || foo.Identity.String() != "a/foo" {
		t.Errorf("Foo identity = %v, want a/foo", foo.Identity)
	}
	if foo.Repository != "https://github.com/a/foo" {
		t.Errorf("Foo repository = %q", foo.Repository)
	}

	bar, _ := g.Get("Bar")
	if bar.Identity != nil || bar.Repository != "unparseable" {
		t.Errorf("Bar should keep its listed repository without an identity, got %v %q", bar.Identity, bar.Repository)
	}

	baz, _ := g.Get("Baz")
	if baz.Identity == nil || baz.Identity.Owner != "site" {
		t.Errorf("website URL should win over repository URL, got %v", baz.Identity)
	}
	if baz.Enriched() {
		t.Error("grouped packages must not carry enrichment")
	}
}

func TestGroupIsIdempotentInCount(t *testing.T) {
	first := Group(entries(), nil)
	second := Group(entries(), nil)

	if first.Len() != second.Len() {
		t.Fatalf("package counts differ: %d vs %d", first.Len(), second.Len())
	}
	for _, name := range first.Names() {
		a, _ := first.Get(name)
		b, ok := second.Get(name)
		if !ok {
			t.Fatalf("%s missing from second run", name)
		}
		if len(a.Versions) != len(b.Versions) {
			t.Errorf("%s: version counts differ: %d vs %d", name, len(a.Versions), len(b.Versions))
		}
	}
}

func TestGroupEmpty(t *testing.T) {
	g := Group(nil, nil)
	if g.Len() != 0 || len(g.Packages()) != 0 {
		t.Errorf("expected no packages, got %d", g.Len())
	}
}
