package security

import (
	"net/url"
	"strings"
)

// RedactURL removes credentials and secret-looking query parameters from a
// URL for logging. Listing parameters are left readable.
func RedactURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "[invalid-url]"
	}

	if parsed.User != nil {
		parsed.User = url.User("[REDACTED]")
	}

	if parsed.RawQuery != "" && hasSensitiveParam(parsed.Query()) {
		parsed.RawQuery = redactQueryParams(parsed.Query()).Encode()
	}

	return parsed.String()
}

// sensitiveParamPatterns are query parameter names that likely contain secrets.
var sensitiveParamPatterns = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"api_key",
	"apikey",
	"auth",
	"credential",
	"session",
	"sid",
}

func isSensitive(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveParamPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

func hasSensitiveParam(params url.Values) bool {
	for key := range params {
		if isSensitive(key) {
			return true
		}
	}
	return false
}

func redactQueryParams(params url.Values) url.Values {
	redacted := make(url.Values, len(params))
	for key, values := range params {
		if isSensitive(key) {
			redacted[key] = []string{"[REDACTED]"}
		} else {
			redacted[key] = values
		}
	}
	return redacted
}
