// Package redact masks key material before it reaches logs or audit trails.
package redact

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	neverPersistKey = "never_persist"
	redactedSecret  = "[REDACTED_SECRET]"
)

var (
	kvSecretRe  = regexp.MustCompile(`(?i)((?:api|token|secret|key|password)[-_ ]*(?:id|key|token)?\s*[:=]\s*)(['\"]?)([A-Za-z0-9+/=_\-]+)(['\"]?)`)
	bearerRe    = regexp.MustCompile(`(?i)\b(bearer|token)\s+([A-Za-z0-9._\-]{10,})`)
	longTokenRe = regexp.MustCompile(`\b[A-Za-z0-9]{32,}\b`)
)

// sensitiveFields are metadata names whose values are always masked.
var sensitiveFields = []string{"key", "secret", "token", "password"}

// String masks key assignments, bearer tokens and long opaque strings.
func String(in string) string {
	if strings.TrimSpace(in) == "" {
		return in
	}
	masked := kvSecretRe.ReplaceAllString(in, `$1$2[REDACTED_SECRET]$4`)
	masked = bearerRe.ReplaceAllString(masked, `$1 [REDACTED_SECRET]`)
	masked = longTokenRe.ReplaceAllString(masked, redactedSecret)
	return masked
}

// Sensitive reports whether a metadata field name refers to key material.
func Sensitive(field string) bool {
	lower := strings.ToLower(field)
	for _, s := range sensitiveFields {
		if lower == s || strings.HasSuffix(lower, "_"+s) {
			return true
		}
	}
	return false
}

// Interface redacts recognised sensitive values within nested structures.
func Interface(value any) any {
	switch v := value.(type) {
	case string:
		return String(v)
	case fmt.Stringer:
		return String(v.String())
	case []string:
		out := make([]string, len(v))
		for i, s := range v {
			out[i] = String(s)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = Interface(elem)
		}
		return out
	case map[string]any:
		return Map(v)
	default:
		return value
	}
}

// Map masks sensitive fields, fields listed under "never_persist", and
// secret-looking substrings of every other value.
func Map(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	var neverPersist map[string]struct{}
	if raw, ok := in[neverPersistKey]; ok {
		neverPersist = fieldSet(raw)
	}

	out := make(map[string]any, len(in))
	for k, v := range in {
		if k == neverPersistKey {
			continue
		}
		if _, listed := neverPersist[strings.ToLower(k)]; listed || Sensitive(k) {
			out[k] = redactedSecret
			continue
		}
		out[k] = Interface(v)
	}
	return out
}

func fieldSet(value any) map[string]struct{} {
	var names []string
	switch v := value.(type) {
	case string:
		names = strings.Split(v, ",")
	case []string:
		names = v
	case []any:
		for _, elem := range v {
			names = append(names, fmt.Sprint(elem))
		}
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}
