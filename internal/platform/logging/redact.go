package logging

import (
	"log/slog"
	"regexp"

	"github.com/m-mizutani/masq"
)

var (
	// credentialURL matches URLs carrying a password in their userinfo, such
	// as postgres DSNs and redis addresses.
	credentialURL = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://[^/\s:@]*:[^/\s@]+@`)

	// keywordDSN matches libpq key/value connection strings with a password.
	keywordDSN = regexp.MustCompile(`(?i)(^|\s)password=\S+`)

	authScheme = regexp.MustCompile(`(?i)^(bearer|basic)\s+\S+`)
	jwt        = regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`)
)

// redactOptions lists the attribute names and value shapes that never reach
// a log sink in clear text.
func redactOptions() []masq.Option {
	opts := []masq.Option{
		masq.WithFieldPrefix("secret"),
		masq.WithFieldPrefix("private"),
		masq.WithRegex(credentialURL),
		masq.WithRegex(keywordDSN),
		masq.WithRegex(authScheme),
		masq.WithRegex(jwt),
	}

	for _, name := range []string{
		"password", "passwd", "dsn", "token", "api_key", "apiKey",
		"access_token", "accessToken", "refresh_token", "refreshToken",
		"authorization", "Authorization", "auth", "cookie", "Cookie",
		"credentials", "secret_key", "secretKey",
	} {
		opts = append(opts, masq.WithFieldName(name))
	}

	return opts
}

// NewReplaceAttr returns a slog ReplaceAttr func that masks connection
// strings, credentials and auth headers. extra extends the built-in rules.
func NewReplaceAttr(extra ...masq.Option) func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(append(redactOptions(), extra...)...)
}
