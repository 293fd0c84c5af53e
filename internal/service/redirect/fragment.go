package redirect

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultDevHost is the development host the identity provider echoes back
// when the redirect target was captured during a local session.
const DefaultDevHost = "localhost:3000"

// credentialParams name the fragment parameters that carry an access credential.
var credentialParams = []string{"access_token", "id_token", "provider_token"}

// errorParams name the fragment parameters that carry a provider error.
var errorParams = []string{"error", "error_code"}

// ErrorInfo is a provider-reported error captured from the fragment so the
// caller can show it after the fragment is stripped.
type ErrorInfo struct {
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

// FragmentPayload is the parsed meaning of a URL fragment.
type FragmentPayload struct {
	HasAuthPayload  bool
	HasErrorCode    bool
	EmbeddedDevHost bool
	RawParams       map[string]string
	Error           *ErrorInfo
}

// ParseFragment classifies fragment. A leading '#' is ignored. An empty or
// malformed fragment yields the zero payload.
func ParseFragment(fragment, knownDevHost string) FragmentPayload {
	fragment = strings.TrimPrefix(fragment, "#")
	if fragment == "" {
		return FragmentPayload{}
	}

	values, err := url.ParseQuery(fragment)
	if err != nil {
		return FragmentPayload{}
	}

	params := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}

	p := FragmentPayload{
		HasAuthPayload:  hasAny(values, credentialParams),
		HasErrorCode:    hasAny(values, errorParams),
		EmbeddedDevHost: containsDevHost(fragment, knownDevHost),
		RawParams:       params,
	}
	if p.HasErrorCode {
		code := params["error"]
		if code == "" {
			code = params["error_code"]
		}
		p.Error = &ErrorInfo{Code: code, Description: params["error_description"]}
	}
	return p
}

// Token returns the credential material carried by the fragment. The values
// are passed through as received.
func (p FragmentPayload) Token() *oauth2.Token {
	if !p.HasAuthPayload {
		return nil
	}
	tok := &oauth2.Token{
		AccessToken:  p.RawParams["access_token"],
		TokenType:    p.RawParams["token_type"],
		RefreshToken: p.RawParams["refresh_token"],
	}
	if at, err := strconv.ParseInt(p.RawParams["expires_at"], 10, 64); err == nil {
		tok.Expiry = time.Unix(at, 0)
	} else if in, err := strconv.ParseInt(p.RawParams["expires_in"], 10, 64); err == nil {
		tok.Expiry = time.Now().Add(time.Duration(in) * time.Second)
	}
	if id := p.RawParams["id_token"]; id != "" {
		tok = tok.WithExtra(map[string]any{"id_token": id})
	}
	return tok
}

// ReplaceDevHost substitutes every occurrence of devHost in fragment with
// host, both literally and in query-escaped form. Nothing else is touched.
func ReplaceDevHost(fragment, devHost, host string) string {
	if devHost == "" {
		return fragment
	}
	fragment = strings.ReplaceAll(fragment, devHost, host)
	if escaped := url.QueryEscape(devHost); escaped != devHost {
		fragment = strings.ReplaceAll(fragment, escaped, url.QueryEscape(host))
	}
	return fragment
}

func containsDevHost(fragment, devHost string) bool {
	if devHost == "" {
		return false
	}
	return strings.Contains(fragment, devHost) ||
		strings.Contains(fragment, url.QueryEscape(devHost))
}

func hasAny(values url.Values, names []string) bool {
	for _, name := range names {
		if _, ok := values[name]; ok {
			return true
		}
	}
	return false
}
