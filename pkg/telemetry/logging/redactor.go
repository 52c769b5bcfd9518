package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

const redactedValue = "[REDACTED]"

// credentialKeys are attribute keys whose values are always scrubbed.
var credentialKeys = map[string]struct{}{
	"token":          {},
	"password":       {},
	"secret":         {},
	"authorization":  {},
	"api_key":        {},
	"passphrase":     {},
	"ssh_passphrase": {},
}

// bearerPattern matches bearer and basic credentials embedded in
// free-form strings, e.g. leaked request dumps.
var bearerPattern = regexp.MustCompile(`(?i)\b(bearer|basic|token)\s+[A-Za-z0-9\-._~+/=]{8,}`)

// redactAttr is the slog ReplaceAttr hook scrubbing credentials from
// every log record.
func redactAttr(groups []string, attr slog.Attr) slog.Attr {
	if _, ok := credentialKeys[strings.ToLower(attr.Key)]; ok {
		attr.Value = slog.StringValue(redactedValue)
		return attr
	}
	if attr.Value.Kind() == slog.KindString {
		attr.Value = slog.StringValue(redactString(attr.Value.String()))
	}
	return attr
}

// redactString masks inline credentials inside a string value.
func redactString(s string) string {
	return bearerPattern.ReplaceAllString(s, redactedValue)
}
