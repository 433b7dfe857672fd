package mailchimp

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrEndpointRequired is returned when no hosted form URL is configured.
var ErrEndpointRequired = errors.New("mailchimp: form URL is required")

// DefaultFormURL is the Boostalk list's hosted signup form.
const DefaultFormURL = "https://gmail.us7.list-manage.com/subscribe/post?u=2276722dc13d2df34b48d99de&id=f7873189db&f_id=00faade4f0"

// JSONPEndpoint turns a hosted form URL (".../subscribe/post?u=..&id=..") into
// the JSONP endpoint the embedded signup widget talks to (".../subscribe/post-json?...").
func JSONPEndpoint(formURL string) (*url.URL, error) {
	formURL = strings.TrimSpace(formURL)
	if formURL == "" {
		return nil, ErrEndpointRequired
	}
	u, err := url.Parse(formURL)
	if err != nil {
		return nil, fmt.Errorf("parse form URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("form URL must be http(s), got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("form URL %q has no host", formURL)
	}

	path := strings.TrimSuffix(u.Path, "/")
	switch {
	case strings.HasSuffix(path, "/subscribe/post-json"):
	case strings.HasSuffix(path, "/subscribe/post"):
		path += "-json"
	default:
		return nil, fmt.Errorf("form URL %q is not a /subscribe/post endpoint", formURL)
	}
	u.Path = path
	u.Fragment = ""
	return u, nil
}
