// Package recovery generates and validates one-time recovery codes
// for vaults that opt into recoverability. Codes are shown to the
// caller exactly once at generation time; only their hashes persist.
package recovery

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/scrimshawlife-ctrl/Echotome/errs"
)

// Code is a single freshly generated recovery code together with the
// hash that should be persisted in its place.
type Code struct {
	Plaintext string
	HashHex   string
}

// Block is the persisted recovery state for one vault.
type Block struct {
	Enabled           bool
	CodeHashes        []string
	UseCount          int
	LastUsedTimestamp *time.Time
}

// Generate produces n fresh recovery codes of the form
// XXXX-XXXX-XXXX-XXXX, each sourced from 8 CSPRNG bytes (16 hex
// characters), and returns both the plaintext codes and a recovery
// block holding only their hashes.
func Generate(n int) ([]Code, *Block, error) {
	if n <= 0 {
		return nil, nil, errs.New(errs.ErrInvalidInput, "recovery code count must be positive")
	}

	codes := make([]Code, 0, n)
	hashes := make([]string, 0, n)

	for i := 0; i < n; i++ {
		raw := make([]byte, 8)
		if _, err := rand.Read(raw); err != nil {
			return nil, nil, errs.New(errs.ErrResource, "generating recovery code entropy: "+err.Error())
		}
		hexDigits := strings.ToUpper(hex.EncodeToString(raw))
		plaintext := formatCode(hexDigits)
		hashHex := hashNormalized(hexDigits)

		codes = append(codes, Code{Plaintext: plaintext, HashHex: hashHex})
		hashes = append(hashes, hashHex)
	}

	return codes, &Block{Enabled: true, CodeHashes: hashes}, nil
}

// formatCode splits a 16-character hex string into four
// hyphen-separated groups of four.
func formatCode(hexDigits string) string {
	var b strings.Builder
	for i := 0; i < len(hexDigits); i += 4 {
		if i > 0 {
			b.WriteByte('-')
		}
		b.WriteString(hexDigits[i : i+4])
	}
	return b.String()
}

// normalize strips hyphens and spaces and uppercases, matching both
// the storage-time and verify-time normalization rules.
func normalize(code string) string {
	code = strings.ReplaceAll(code, "-", "")
	code = strings.ReplaceAll(code, " ", "")
	return strings.ToUpper(code)
}

func hashNormalized(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// ValidateAndMarkUsed checks candidate against the block's stored
// hashes. On success it increments UseCount and stamps
// LastUsedTimestamp on the returned block; the input block is never
// mutated in place, so callers must persist the returned value.
func ValidateAndMarkUsed(b *Block, candidate string, now time.Time) (*Block, bool) {
	if b == nil || !b.Enabled {
		return b, false
	}

	candidateHash := hashNormalized(normalize(candidate))

	matched := false
	for _, stored := range b.CodeHashes {
		if subtle.ConstantTimeCompare([]byte(stored), []byte(candidateHash)) == 1 {
			matched = true
			break
		}
	}
	if !matched {
		return b, false
	}

	out := *b
	out.CodeHashes = append([]string(nil), b.CodeHashes...)
	out.UseCount = b.UseCount + 1
	ts := now
	out.LastUsedTimestamp = &ts
	return &out, true
}

// FormatForDisplay renders a one-time reveal screen listing every
// freshly generated code, mirroring the original package's
// format_codes_for_display.
func FormatForDisplay(codes []Code) string {
	var b strings.Builder
	b.WriteString("Recovery codes (each usable once, shown only now):\n")
	for i, c := range codes {
		fmt.Fprintf(&b, "  %2d. %s\n", i+1, c.Plaintext)
	}
	b.WriteString("Store these somewhere safe. They will not be shown again.\n")
	return b.String()
}
