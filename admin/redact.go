package admin

import (
	"regexp"
	"strings"
)

const redacted = "****"

// secretKeys are option key fragments whose values are never shown
var secretKeys = []string{"password", "passwd", "pwd", "secret", "token", "credential", "api_key", "apikey", "private_key"}

// userinfo matches the password part of user:password@host in DSNs and URLs
var userinfo = regexp.MustCompile(`^((?:[a-zA-Z][a-zA-Z0-9+.-]*://)?[^:@/\s]*):[^\s]*@`)

// redactOptions copies connector options for display with credentials masked
func redactOptions(opts map[string]string) map[string]string {
	if len(opts) == 0 {
		return nil
	}

	out := make(map[string]string, len(opts))
	for k, v := range opts {
		out[k] = redactOption(k, v)
	}
	return out
}

func redactOption(key, value string) string {
	key = strings.ToLower(key)
	for _, s := range secretKeys {
		if strings.Contains(key, s) {
			return redacted
		}
	}
	return userinfo.ReplaceAllString(value, "${1}:"+redacted+"@")
}
