package gem

import (
	"net/url"
	"strings"
)

// RedactURL removes user info from a URL for safe logging
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.User == nil {
		return rawURL
	}
	u.User = nil
	return u.String()
}

// redactArgs returns args with credentials stripped from URL arguments and
// a replacer that applies the same substitutions to free text
func redactArgs(args []string) ([]string, *strings.Replacer) {
	redacted := make([]string, len(args))
	var pairs []string
	for i, arg := range args {
		redacted[i] = RedactURL(arg)
		if redacted[i] != arg {
			pairs = append(pairs, arg, redacted[i])
		}
	}
	return redacted, strings.NewReplacer(pairs...)
}
