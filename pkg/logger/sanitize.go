package logger

import "strings"

// SanitizedEmail masks an email address for logging (e.g., "u***@e***.com")
func SanitizedEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "[invalid-email]"
	}

	username := parts[0]
	domain := parts[1]

	// Mask username: keep first char, mask rest
	if len(username) > 1 {
		username = string(username[0]) + strings.Repeat("*", len(username)-1)
	}

	// Mask domain: keep TLD, mask the rest
	domainParts := strings.Split(domain, ".")
	if len(domainParts) > 1 {
		for i := 0; i < len(domainParts)-1; i++ {
			domainParts[i] = strings.Repeat("*", len(domainParts[i]))
		}
		domain = strings.Join(domainParts, ".")
	}

	return username + "@" + domain
}

// sensitiveParams are query parameters whose values must never reach
// the logs. One-time codes and session tokens travel in POST bodies,
// but a misbehaving client could put them in the query string.
var sensitiveParams = map[string]struct{}{
	"code":          {},
	"token":         {},
	"access_token":  {},
	"refresh_token": {},
	"apikey":        {},
}

// SanitizeQueryString reports whether a raw query string contains any
// sensitive parameter and should be redacted wholesale.
func SanitizeQueryString(rawQuery string) bool {
	if rawQuery == "" {
		return false
	}
	query := strings.ToLower(rawQuery)
	for param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
