package redirect

import (
	"errors"
	"net/url"
	"strings"
)

// ErrInvalidLocation is returned when a page location cannot be parsed into
// an absolute URL.
var ErrInvalidLocation = errors.New("invalid page location")

// PageContext is an immutable snapshot of the page location at evaluation time.
type PageContext struct {
	Hostname string
	// Host is hostname plus port, if any.
	Host     string
	Origin   string
	Pathname string
	// Fragment is the raw text after '#', without the '#'.
	Fragment string
	FullURL  string
	// NavigationAvailable reports whether the hosting environment exposes
	// location replacement. A page that cannot navigate is never corrected.
	NavigationAvailable bool
}

// NewPageContext captures a PageContext from an absolute URL as reported by
// the browser (location.href). The fragment is kept verbatim.
func NewPageContext(rawURL string) (PageContext, error) {
	raw := strings.TrimSpace(rawURL)
	base, fragment, _ := strings.Cut(raw, "#")
	// The fragment is opaque here; a malformed escape in it must not reject the page.
	u, err := url.Parse(base)
	if err != nil {
		return PageContext{}, errors.Join(ErrInvalidLocation, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return PageContext{}, ErrInvalidLocation
	}

	pathname := u.EscapedPath()
	if pathname == "" {
		pathname = "/"
	}

	return PageContext{
		Hostname:            u.Hostname(),
		Host:                u.Host,
		Origin:              u.Scheme + "://" + u.Host,
		Pathname:            pathname,
		Fragment:            fragment,
		FullURL:             raw,
		NavigationAvailable: true,
	}, nil
}

// Environment classifies the page hostname.
func (p PageContext) Environment() Environment {
	return Classify(p.Hostname)
}

// URLWithFragment builds {origin}{pathname}#{fragment}. An empty fragment
// yields the URL without a '#'.
func (p PageContext) URLWithFragment(fragment string) string {
	if fragment == "" {
		return p.Origin + p.Pathname
	}
	return p.Origin + p.Pathname + "#" + fragment
}

// SameDocument reports whether target differs from the page only in its
// fragment. Browsers treat such a navigation as a scroll, not a load.
func (p PageContext) SameDocument(target string) bool {
	return stripFragment(target) == stripFragment(p.FullURL)
}

func stripFragment(u string) string {
	if i := strings.IndexByte(u, '#'); i >= 0 {
		return u[:i]
	}
	return u
}
