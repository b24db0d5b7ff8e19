package index

import (
	"strings"

	"github.com/charmbracelet/log"

	"github.com/git-pkgs/catalog/internal/core"
	"github.com/git-pkgs/catalog/internal/repourl"
	"github.com/git-pkgs/catalog/internal/version"
)

// Grouped holds one Package per distinct name, in first-seen order.
type Grouped struct {
	names    []string
	packages map[string]*core.Package

	Entries int // entries consumed
	Skipped int // entries without a name
}

// Len returns the number of packages.
func (g *Grouped) Len() int {
	return len(g.names)
}

// Get returns the package with the given name.
func (g *Grouped) Get(name string) (*core.Package, bool) {
	p, ok := g.packages[name]
	return p, ok
}

// Names returns package names in first-seen order.
func (g *Grouped) Names() []string {
	return append([]string(nil), g.names...)
}

// Packages returns the packages in first-seen order.
func (g *Grouped) Packages() []*core.Package {
	out := make([]*core.Package, 0, len(g.names))
	for _, name := range g.names {
		out = append(out, g.packages[name])
	}
	return out
}

// Group collapses entries sharing a name into one Package. The first entry
// seen for a name supplies the descriptive fields and the repository
// identity (website URL first, then repository URL); later entries only
// contribute versions. Each version list ends up sorted newest first.
func Group(entries []core.RawEntry, logger *log.Logger) *Grouped {
	logger = core.Logger(logger)
	g := &Grouped{packages: make(map[string]*core.Package)}

	for i, e := range entries {
		g.Entries++
		if strings.TrimSpace(e.Name) == "" {
			g.Skipped++
			logger.Warn("skipping index entry without a name", "position", i, "version", e.Version)
			continue
		}

		if p, ok := g.packages[e.Name]; ok {
			p.Versions = append(p.Versions, core.VersionOf(e))
			continue
		}

		id, _ := repourl.FirstOf(e.Website, e.Repository)
		g.packages[e.Name] = core.NewPackage(e, id)
		g.names = append(g.names, e.Name)
	}

	for _, p := range g.packages {
		version.SortDescending(p.Versions)
	}

	logger.Debug("grouped index entries", "entries", g.Entries, "packages", len(g.names), "skipped", g.Skipped)
	return g
}
