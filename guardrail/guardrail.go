// Package guardrail sanitizes structured log records before they leave the
// process. It never imports internal/logger: logger calls into guardrail,
// not the other way around.
package guardrail

import (
	"strconv"
	"strings"
)

const redacted = "[REDACTED]"

// sensitiveKeys mirrors the set of field names that can carry secret or
// biometric material anywhere in the engine: passphrases, derived keys,
// nonces/salts, raw audio, certificate payloads, and track names (which can
// leak a user's library contents).
var sensitiveKeys = map[string]struct{}{
	"passphrase":    {},
	"key":           {},
	"secret":        {},
	"token":         {},
	"nonce":         {},
	"salt":          {},
	"master_key":    {},
	"audio_samples": {},
	"roc_payload":   {},
	"track_name":    {},
	"file_content":  {},
}

// homePathPrefixes catches values that begin with a filesystem path under
// a user's home directory, a common way a track name or export path leaks a
// real identity into logs.
var homePathPrefixes = []string{
	"/home/",
	"/Users/",
	"C:\\Users\\",
}

// Sanitize returns a copy of record with sensitive fields redacted. It
// recurses into nested map[string]interface{} values (such as a map logged
// via Any); structs, slices other than []byte, and other values are passed
// through unchanged.
func Sanitize(record map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(record))
	for k, v := range record {
		if _, sensitive := sensitiveKeys[strings.ToLower(k)]; sensitive {
			out[k] = redacted
			continue
		}
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case []byte:
		return byteSummary(len(val))
	case map[string]interface{}:
		return Sanitize(val)
	case string:
		if containsPII(val) {
			return redacted
		}
		return val
	default:
		return v
	}
}

func byteSummary(n int) string {
	return "[bytes: " + strconv.Itoa(n) + " bytes]"
}

// containsPII applies the same cheap heuristics as the original privacy
// guardrail: an email-shaped string, a run of 10+ consecutive digits (phone
// numbers, card numbers), or a well-known home-directory prefix.
func containsPII(s string) bool {
	if strings.Contains(s, "@") {
		return true
	}
	for _, prefix := range homePathPrefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	run := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			run++
			if run >= 10 {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

// allowedEvents lists the named events considered safe to forward to an
// external sink. The logger does not consult it: anything not listed here
// is still logged, and callers use IsAllowedEvent to decide whether an
// event may be forwarded.
var allowedEvents = map[string]struct{}{
	"session.started":       {},
	"session.ended":         {},
	"session.expired":       {},
	"encrypt.completed":     {},
	"decrypt.completed":     {},
	"roc.created":           {},
	"roc.verified":          {},
	"identity.generated":    {},
	"identity.reset":        {},
	"migration.applied":     {},
	"recovery.generated":    {},
	"recovery.used":         {},
}

// IsAllowedEvent reports whether name is a recognized, non-sensitive event
// name suitable for forwarding to an external log sink.
func IsAllowedEvent(name string) bool {
	_, ok := allowedEvents[name]
	return ok
}
