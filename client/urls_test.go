package client

import "testing"

func TestBaseURLs(t *testing.T) {
	urls := &BaseURLs{
		APIFn: func(owner, repo string) string { return "https://api.example.com/repos/" + owner + "/" + repo },
	}

	if got := urls.API("a", "foo"); got != "https://api.example.com/repos/a/foo" {
		t.Errorf("API = %q", got)
	}
	if got := urls.PURL("a", "foo"); got != "pkg:generic/a/foo" {
		t.Errorf("PURL = %q, want generic fallback", got)
	}
}

func TestBaseURLsUnset(t *testing.T) {
	var urls BaseURLs
	if got := urls.API("a", "foo"); got != "" {
		t.Errorf("API = %q, want empty", got)
	}
}
