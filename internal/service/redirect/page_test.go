package redirect

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPageContext(t *testing.T) {
	p, err := NewPageContext("https://my-app.example.com:8443/campaigns?x=1#access_token=abc&localhost:3000")
	require.NoError(t, err)

	assert.Equal(t, "my-app.example.com", p.Hostname)
	assert.Equal(t, "my-app.example.com:8443", p.Host)
	assert.Equal(t, "https://my-app.example.com:8443", p.Origin)
	assert.Equal(t, "/campaigns", p.Pathname)
	assert.Equal(t, "access_token=abc&localhost:3000", p.Fragment)
	assert.True(t, p.NavigationAvailable)
	assert.Equal(t, Deployed, p.Environment())
}

func TestNewPageContext_DefaultsPathname(t *testing.T) {
	p, err := NewPageContext("http://localhost#x=1")
	require.NoError(t, err)
	assert.Equal(t, "/", p.Pathname)
	assert.Equal(t, "x=1", p.Fragment)
	assert.Equal(t, Development, p.Environment())
}

func TestNewPageContext_FragmentVerbatim(t *testing.T) {
	p, err := NewPageContext("https://a.example.com/#redirect_to=http%3A%2F%2Flocalhost%3A3000")
	require.NoError(t, err)
	assert.Equal(t, "redirect_to=http%3A%2F%2Flocalhost%3A3000", p.Fragment)
}

func TestNewPageContext_Invalid(t *testing.T) {
	for _, raw := range []string{"", "/relative/path", "::not a url", "my-app.example.com"} {
		_, err := NewPageContext(raw)
		assert.True(t, errors.Is(err, ErrInvalidLocation), "input %q", raw)
	}
}

func TestPageContext_URLWithFragment(t *testing.T) {
	p := PageContext{Origin: "https://a.example.com", Pathname: "/"}
	assert.Equal(t, "https://a.example.com/#x=1", p.URLWithFragment("x=1"))
	assert.Equal(t, "https://a.example.com/", p.URLWithFragment(""))
}

func TestPageContext_SameDocument(t *testing.T) {
	tests := []struct {
		href   string
		target string
		want   bool
	}{
		{"https://my-app.example.com/#access_token=abc&localhost:3000", "https://my-app.example.com/#access_token=abc&my-app.example.com", true},
		{"https://my-app.example.com/", "https://my-app.example.com/#x=1", true},
		{"https://my-app.example.com/?t=1#access_token=abc", "https://my-app.example.com/#access_token=abc", false},
		{"https://my-app.example.com/a#x", "https://my-app.example.com/b#x", false},
	}

	for _, tt := range tests {
		p, err := NewPageContext(tt.href)
		require.NoError(t, err)
		assert.Equal(t, tt.want, p.SameDocument(tt.target), "%s -> %s", tt.href, tt.target)
	}
}
