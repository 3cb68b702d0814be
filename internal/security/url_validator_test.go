package security

import (
	"net"
	"testing"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{"marketplace search", "https://marketplace.secondlife.com/products/search?search%5Bpage%5D=1", nil},
		{"valid http", "http://example.com/page", nil},
		{"valid with port", "https://example.com:8080/path", nil},

		{"file scheme", "file:///etc/passwd", ErrBlockedScheme},
		{"javascript scheme", "javascript:alert(1)", ErrBlockedScheme},
		{"no scheme", "example.com", ErrBlockedScheme},
		{"no host", "https:///path", ErrInvalidURL},

		{"localhost", "http://localhost/admin", ErrLocalhostBlocked},
		{"localhost subdomain", "http://foo.localhost/", ErrLocalhostBlocked},
		{"127.0.0.1", "http://127.0.0.1:3000", ErrLocalhostBlocked},
		{"IPv6 loopback", "http://[::1]/", ErrLocalhostBlocked},
		{"decimal loopback", "http://2130706433/", ErrLocalhostBlocked},
		{"shortened loopback", "http://127.1/", ErrLocalhostBlocked},
		{"mapped loopback", "http://[::ffff:127.0.0.1]/", ErrLocalhostBlocked},

		{"private 10.x", "http://10.0.0.1", ErrPrivateIPBlocked},
		{"private 192.168.x", "http://192.168.1.1", ErrPrivateIPBlocked},
		{"hex private", "http://0xC0.0xA8.0x01.0x01/", ErrPrivateIPBlocked},
		{"unspecified", "http://0.0.0.0", ErrPrivateIPBlocked},

		{"AWS metadata", "http://169.254.169.254/latest/meta-data/", ErrMetadataBlocked},
		{"GCP metadata host", "http://metadata.google.internal/", ErrLocalhostBlocked},

		{"empty", "", ErrInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if err != tt.wantErr {
				t.Errorf("ValidateURL(%q) = %v, want %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestSameOrigin(t *testing.T) {
	base := "https://marketplace.secondlife.com/products/search?search%5Bpage%5D=1"

	tests := []struct {
		name    string
		target  string
		wantErr error
	}{
		{"same origin", "https://marketplace.secondlife.com/products/search?search%5Bpage%5D=2", nil},
		{"default port", "https://marketplace.secondlife.com:443/products/search", nil},
		{"host case", "https://Marketplace.SecondLife.com/x", nil},
		{"other host", "https://evil.example.com/products/search", ErrCrossOrigin},
		{"other scheme", "http://marketplace.secondlife.com/products/search", ErrCrossOrigin},
		{"other port", "https://marketplace.secondlife.com:8443/products/search", ErrCrossOrigin},
		{"relative", "/products/search", ErrInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := SameOrigin(base, tt.target); err != tt.wantErr {
				t.Errorf("SameOrigin(%q) = %v, want %v", tt.target, err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeCookieDomain(t *testing.T) {
	tests := []struct {
		name       string
		domain     string
		targetHost string
		want       string
	}{
		{"empty domain uses target", "", "marketplace.secondlife.com", "marketplace.secondlife.com"},
		{"exact match", "marketplace.secondlife.com", "marketplace.secondlife.com", "marketplace.secondlife.com"},
		{"parent domain", ".secondlife.com", "marketplace.secondlife.com", "secondlife.com"},
		{"mismatched domain uses target", "evil.com", "marketplace.secondlife.com", "marketplace.secondlife.com"},
		{"top level domain blocked", "com", "secondlife.com", "secondlife.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeCookieDomain(tt.domain, tt.targetHost)
			if got != tt.want {
				t.Errorf("SanitizeCookieDomain(%q, %q) = %q, want %q",
					tt.domain, tt.targetHost, got, tt.want)
			}
		})
	}
}

func TestIsCloudMetadataIP(t *testing.T) {
	tests := []struct {
		ip       string
		expected bool
	}{
		{"169.254.169.254", true},
		{"100.100.100.200", true},
		{"8.8.8.8", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			if got := isCloudMetadataIP(net.ParseIP(tt.ip)); got != tt.expected {
				t.Errorf("isCloudMetadataIP(%s) = %v, want %v", tt.ip, got, tt.expected)
			}
		})
	}
}
