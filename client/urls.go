package client

import "fmt"

// URLBuilder constructs URLs for a hosted repository.
type URLBuilder interface {
	API(owner, repo string) string
	PURL(owner, repo string) string
}

// BaseURLs provides a default URLBuilder implementation.
type BaseURLs struct {
	APIFn  func(owner, repo string) string
	PURLFn func(owner, repo string) string
}

func (b *BaseURLs) API(owner, repo string) string {
	if b.APIFn != nil {
		return b.APIFn(owner, repo)
	}
	return ""
}

func (b *BaseURLs) PURL(owner, repo string) string {
	if b.PURLFn != nil {
		return b.PURLFn(owner, repo)
	}
	return fmt.Sprintf("pkg:%s/%s/%s", "generic", owner, repo)
}
