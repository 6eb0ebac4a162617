package service

import (
	"net/url"
	"strings"
)

// OriginPolicy decides the origin claim bound into every token.
type OriginPolicy struct {
	// SiteURL is the public home URL of the site embedding the map.
	SiteURL string
	// Local disables origin locking for local development proxies.
	Local bool
}

// Origin returns scheme://host for the site, or false when tokens must not
// carry an origin. The port is dropped and the host keeps its case.
func (p OriginPolicy) Origin() (string, bool) {
	if p.Local {
		return "", false
	}
	u, ok := p.parse()
	if !ok {
		return "", false
	}
	host := u.Hostname()
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return u.Scheme + "://" + host, true
}

// BrowserOrigin returns scheme://host[:port] as a browser sends it in the
// Origin header. It ignores Local.
func (p OriginPolicy) BrowserOrigin() (string, bool) {
	u, ok := p.parse()
	if !ok {
		return "", false
	}
	return u.Scheme + "://" + strings.ToLower(u.Host), true
}

func (p OriginPolicy) parse() (*url.URL, bool) {
	raw := strings.TrimSpace(p.SiteURL)
	if raw == "" {
		return nil, false
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return nil, false
	}
	if u.Scheme == "" {
		u.Scheme = "http"
	}
	return u, true
}
