// Package errs defines the engine-wide error taxonomy. Packages attach
// one of these sentinels to an error through New, whose EchotomeError
// unwraps to the sentinel, so callers can recover the taxonomy kind via
// errors.Is. Some errors (for example kdf's missing-profile error and
// aead's encryption-setup errors) carry no sentinel.
package errs

import "errors"

var (
	// ErrInvalidInput covers empty audio buffers, zero-length frame
	// lists, wrong-length public keys, oversize stego payloads, and
	// malformed recovery code input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAuthenticationFailed is the single, undifferentiated kind
	// for AEAD tag mismatch, ROC signature mismatch, and rune-id
	// mismatch at unlock. It never reveals which check failed.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrNotFound covers unknown profile names, unknown session ids,
	// and missing ROC lookups.
	ErrNotFound = errors.New("not found")

	// ErrStateViolation covers use of a finalized streamer, strict
	// session extension past max TTL, and timing validation failure.
	ErrStateViolation = errors.New("state violation")

	// ErrResource covers filesystem or permission failures on
	// identity, ROC, or session paths.
	ErrResource = errors.New("resource error")

	// ErrMigrationIncompatible covers a cross-major-version artifact.
	ErrMigrationIncompatible = errors.New("migration incompatible")

	// ErrCorrupt covers a stego payload whose magic matched but whose
	// subsequent decode failed.
	ErrCorrupt = errors.New("corrupt payload")
)

// EchotomeError carries a taxonomy sentinel plus structured details for
// callers that want more than errors.Is.
type EchotomeError struct {
	Kind    error
	Message string
	Details map[string]any
}

func (e *EchotomeError) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Message
}

func (e *EchotomeError) Unwrap() error {
	return e.Kind
}

// WithDetail attaches a key/value pair and returns the receiver for chaining.
func (e *EchotomeError) WithDetail(key string, value any) *EchotomeError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New builds an EchotomeError for the given taxonomy kind.
func New(kind error, message string) *EchotomeError {
	return &EchotomeError{Kind: kind, Message: message}
}
