package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginPolicy_Origin(t *testing.T) {
	tests := []struct {
		name   string
		policy OriginPolicy
		want   string
		ok     bool
	}{
		{"https with path", OriginPolicy{SiteURL: "https://maps.example.com/wp/"}, "https://maps.example.com", true},
		{"explicit port dropped", OriginPolicy{SiteURL: "http://localhost:8888"}, "http://localhost", true},
		{"scheme defaults to http", OriginPolicy{SiteURL: "example.org/blog"}, "http://example.org", true},
		{"host case kept", OriginPolicy{SiteURL: "https://Maps.Example.com:8443/wp/"}, "https://Maps.Example.com", true},
		{"ipv6 host bracketed", OriginPolicy{SiteURL: "https://[::1]:8443"}, "https://[::1]", true},
		{"local omits origin", OriginPolicy{SiteURL: "https://example.com", Local: true}, "", false},
		{"empty site url", OriginPolicy{}, "", false},
		{"no host", OriginPolicy{SiteURL: "https://"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.policy.Origin()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOriginPolicy_BrowserOrigin(t *testing.T) {
	got, ok := OriginPolicy{SiteURL: "https://Maps.Example.com:8443/wp/", Local: true}.BrowserOrigin()
	assert.True(t, ok)
	assert.Equal(t, "https://maps.example.com:8443", got)

	_, ok = OriginPolicy{SiteURL: "https://"}.BrowserOrigin()
	assert.False(t, ok)
}
