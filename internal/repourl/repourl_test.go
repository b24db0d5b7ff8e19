package repourl

import (
	"testing"

	"github.com/git-pkgs/catalog/internal/core"
)

func TestParse(t *testing.T) {
	want := core.RepoIdentity{Owner: "o", Repo: "r"}

	tests := []struct {
		input  string
		wantOK bool
	}{
		{"https://github.com/o/r", true},
		{"https://github.com/o/r.git", true},
		{"git@github.com:o/r.git", true},
		{"git@github.com:o/r", true},
		{"https://github.com/o/r/tree/main/examples", true},
		{"https://github.com/o/r.git/", true},
		{"http://www.github.com/o/r", true},
		{"git+https://github.com/o/r.git", true},
		{"git://github.com/o/r", true},
		{"  https://github.com/o/r  ", true},
		{"https://github.com/o/r?tab=readme", true},
		{"https://github.com/o/r#readme", true},

		{"", false},
		{"https://github.com/o", false},
		{"https://gitlab.com/o/r", false},
		{"https://www.arduino.cc/reference/en/libraries/", false},
		{"not a url", false},
		{"https://github.com/o/.git", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := Parse(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("Parse(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, want)
			}
		})
	}
}

func TestParseSegmentCharacters(t *testing.T) {
	got, ok := Parse("https://github.com/my_org.x/lib-name_2.0.git")
	if !ok {
		t.Fatal("expected identity")
	}
	if got.Owner != "my_org.x" || got.Repo != "lib-name_2.0" {
		t.Errorf("got %+v", got)
	}
}

func TestParseHostIsCaseInsensitive(t *testing.T) {
	for _, u := range []string{
		"https://GitHub.com/Owner/Repo",
		"HTTPS://WWW.GITHUB.COM/Owner/Repo.git",
		"git@GitHub.com:Owner/Repo.git",
	} {
		got, ok := Parse(u)
		if !ok {
			t.Errorf("Parse(%q) found no identity", u)
			continue
		}
		if got.Owner != "Owner" || got.Repo != "Repo" {
			t.Errorf("Parse(%q) = %+v, want Owner/Repo with case preserved", u, got)
		}
	}
}

func TestFirstOf(t *testing.T) {
	id, ok := FirstOf("https://www.example.com", "https://github.com/a/foo")
	if !ok {
		t.Fatal("expected fallback to second candidate")
	}
	if id.String() != "a/foo" {
		t.Errorf("FirstOf = %s, want a/foo", id)
	}

	id, ok = FirstOf("https://github.com/web/site", "https://github.com/a/foo")
	if !ok || id.String() != "web/site" {
		t.Errorf("FirstOf should prefer the first candidate, got %v", id)
	}

	if _, ok := FirstOf("", "nope"); ok {
		t.Error("expected no identity")
	}
	if _, ok := FirstOf(); ok {
		t.Error("expected no identity for empty input")
	}
}
