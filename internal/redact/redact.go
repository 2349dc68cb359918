// Package redact scrubs credentials, tokens, personal data and SQL from
// strings before they reach logs. Client responses never carry raw error
// text; this package protects the log stream.
package redact

import "regexp"

// Placeholders substituted for redacted fragments.
const (
	Credential = "[REDACTED_CREDENTIAL]"
	Key        = "[REDACTED_KEY]"
	JWT        = "[REDACTED_JWT]"
	Email      = "[REDACTED_EMAIL]"
	SQL        = "[REDACTED_SQL]"
	Path       = "[REDACTED_PATH]"
)

type rule struct {
	re          *regexp.Regexp
	placeholder string
}

// rules run in order. JWTs go before generic keys so a bearer token is
// recognised as a token rather than a partial key match.
var rules = []rule{
	{regexp.MustCompile(`(?i)(postgres(?:ql)?|mysql|smtp)://[^@\s]+@`), Credential},
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`), JWT},
	{regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]?['"]?)[^'"&\s]{3,}`), Credential},
	{regexp.MustCompile(`(?i)(api[_-]?key|token|secret)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`), Key},
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), Email},
	{regexp.MustCompile(
		`(?i)\b(SELECT|INSERT|UPDATE|DELETE)\b[\s\w,*()$.=']+\b(FROM|INTO|SET|WHERE)\b[^;"]*`,
	), SQL},
	{regexp.MustCompile(`(/[\w.-]+){3,}`), Path},
}

// String returns input with every sensitive fragment replaced.
func String(input string) string {
	for _, r := range rules {
		if input == "" {
			break
		}
		input = r.re.ReplaceAllString(input, r.placeholder)
	}
	return input
}

// Error redacts err.Error(); a nil error yields the empty string.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
