// Package security provides URL validation for navigation and page fetches.
package security

import (
	"errors"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// URL validation errors.
var (
	ErrInvalidURL       = errors.New("invalid URL")
	ErrBlockedScheme    = errors.New("URL scheme not allowed")
	ErrPrivateIPBlocked = errors.New("private/internal IP addresses are not allowed")
	ErrLocalhostBlocked = errors.New("localhost URLs are not allowed")
	ErrMetadataBlocked  = errors.New("cloud metadata URLs are not allowed")
	ErrCrossOrigin      = errors.New("URL is not same-origin")
)

// AllowedSchemes defines the permitted URL schemes.
var AllowedSchemes = map[string]bool{
	"http":  true,
	"https": true,
}

// BlockedHosts contains hostnames that are never a listing site.
var BlockedHosts = map[string]bool{
	"localhost":                true,
	"metadata.google.internal": true,
	"metadata":                 true,
	"instance-data":            true,
}

var cloudMetadataIPs = []net.IP{
	net.ParseIP("169.254.169.254"),
	net.ParseIP("169.254.170.2"),
	net.ParseIP("100.100.100.200"),
	net.ParseIP("192.0.0.192"),
	net.ParseIP("fd00:ec2::254"),
}

// ValidateURL checks that a start URL is an http(s) URL on a public host.
// Hostnames are not resolved; the browser resolves them when navigating.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return ErrInvalidURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ErrInvalidURL
	}
	if !AllowedSchemes[strings.ToLower(parsed.Scheme)] {
		return ErrBlockedScheme
	}
	if parsed.Host == "" {
		return ErrInvalidURL
	}

	hostname := strings.ToLower(parsed.Hostname())
	if BlockedHosts[hostname] || strings.HasSuffix(hostname, ".localhost") {
		return ErrLocalhostBlocked
	}

	if ip := parseIPWithNormalization(hostname); ip != nil {
		return validateIP(ip)
	}
	return nil
}

// Origin returns the scheme://host[:port] of rawURL in lower case.
func Origin(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", ErrInvalidURL
	}
	scheme := strings.ToLower(parsed.Scheme)
	host := strings.ToLower(parsed.Hostname())
	port := parsed.Port()
	if port == "" || (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		return scheme + "://" + host, nil
	}
	return scheme + "://" + net.JoinHostPort(host, port), nil
}

// SameOrigin returns nil when target has the same origin as base.
func SameOrigin(base, target string) error {
	want, err := Origin(base)
	if err != nil {
		return err
	}
	got, err := Origin(target)
	if err != nil {
		return err
	}
	if got != want {
		return ErrCrossOrigin
	}
	return nil
}

// parseIPWithNormalization parses an IP address string, including decimal,
// octal and hex encoded IPv4 forms.
func parseIPWithNormalization(hostname string) net.IP {
	if ip := net.ParseIP(hostname); ip != nil {
		return normalizeIPv4Mapped(ip)
	}

	if num, err := strconv.ParseUint(hostname, 10, 32); err == nil {
		return net.IPv4(byte(num>>24), byte(num>>16), byte(num>>8), byte(num)).To4()
	}

	parts := strings.Split(hostname, ".")
	switch len(parts) {
	case 4:
		var octets [4]byte
		for i, part := range parts {
			val, err := parseIntWithBase(part)
			if err != nil || val > 255 {
				return nil
			}
			octets[i] = byte(val)
		}
		return net.IPv4(octets[0], octets[1], octets[2], octets[3]).To4()
	case 2:
		first, err1 := parseIntWithBase(parts[0])
		second, err2 := parseIntWithBase(parts[1])
		if err1 == nil && err2 == nil && first <= 255 && second <= 0xFFFFFF {
			return net.IPv4(byte(first), byte(second>>16), byte(second>>8), byte(second)).To4()
		}
	}
	return nil
}

// parseIntWithBase parses a decimal, 0-prefixed octal or 0x-prefixed hex number.
func parseIntWithBase(s string) (uint64, error) {
	switch {
	case s == "":
		return 0, errors.New("empty string")
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		return strconv.ParseUint(s[2:], 16, 64)
	case len(s) > 1 && s[0] == '0':
		return strconv.ParseUint(s[1:], 8, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}

func normalizeIPv4Mapped(ip net.IP) net.IP {
	if ip4 := ip.To4(); ip4 != nil {
		return ip4
	}
	return ip
}

func validateIP(ip net.IP) error {
	switch {
	case ip.IsLoopback():
		return ErrLocalhostBlocked
	case isCloudMetadataIP(ip):
		return ErrMetadataBlocked
	case ip.IsPrivate(), ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast(), ip.IsUnspecified():
		return ErrPrivateIPBlocked
	}
	return nil
}

func isCloudMetadataIP(ip net.IP) bool {
	for _, metadataIP := range cloudMetadataIPs {
		if ip.Equal(metadataIP) {
			return true
		}
	}
	return false
}

// SanitizeCookieDomain validates a cookie domain against the host it is
// sent to. It returns targetHost when the domain does not cover it.
func SanitizeCookieDomain(domain string, targetHost string) string {
	domain = strings.ToLower(strings.TrimPrefix(domain, "."))
	targetHost = strings.ToLower(targetHost)

	if domain == "" || domain == targetHost {
		return targetHost
	}
	if strings.HasSuffix(targetHost, "."+domain) && strings.Contains(domain, ".") {
		return domain
	}
	return targetHost
}
