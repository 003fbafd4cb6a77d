// Package kdf implements the audio-feature-bound key derivation used to
// turn a passphrase plus a feature vector plus a privacy profile into a
// 32-byte symmetric key. Wrong passphrase or wrong audio is never
// detected here — only downstream, at AEAD authentication.
package kdf

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/scrypt"

	"github.com/scrimshawlife-ctrl/Echotome/profile"
)

const keyLen = 32

// Fallback selects the memory-hard function applied after HKDF.
type Fallback int

const (
	// Argon2ID is the default, full-strength memory-hard function.
	Argon2ID Fallback = iota
	// Scrypt is used only where Argon2id is unavailable to the
	// caller's runtime; it reduces the effective cost of the profile's
	// configured parameters and callers should log that fact.
	Scrypt
)

// Params carries the derivation inputs the caller already has to hand.
type Params struct {
	Passphrase   []byte
	FeatureVector []byte // canonical little-endian bytes of the 256-float vector
	Profile      *profile.PrivacyProfile
	Fallback     Fallback
}

// Derive runs the full AF-KDF pipeline and returns a 32-byte key.
func Derive(p Params) ([]byte, error) {
	if p.Profile == nil {
		return nil, fmt.Errorf("kdf: profile is required")
	}

	featureHash := sha256.Sum256(p.FeatureVector)

	intermediate, err := hkdfExpand(p.Passphrase, featureHash[:], []byte(p.Profile.Name))
	if err != nil {
		return nil, fmt.Errorf("kdf: hkdf stage failed: %w", err)
	}

	salt := memoryHardSalt(featureHash[:], p.Profile.Name, p.Profile.AudioWeight)

	switch p.Fallback {
	case Scrypt:
		n := 1 << minInt(14, int(p.Profile.KDFMemoryKiB)/1024)
		key, err := scrypt.Key(intermediate, salt, n, 8, 1, keyLen)
		if err != nil {
			return nil, fmt.Errorf("kdf: scrypt fallback failed: %w", err)
		}
		return key, nil
	default:
		key := argon2.IDKey(
			intermediate,
			salt,
			p.Profile.KDFTime,
			p.Profile.KDFMemoryKiB,
			p.Profile.KDFParallelism,
			keyLen,
		)
		return key, nil
	}
}

func hkdfExpand(ikm, salt, info []byte) ([]byte, error) {
	reader := hkdf.New(sha256.New, ikm, salt, info)
	out := make([]byte, keyLen)
	if _, err := reader.Read(out); err != nil {
		return nil, err
	}
	return out, nil
}

// memoryHardSalt picks the Argon2id/scrypt salt: when the profile mixes
// in any audio signal, the salt binds to the feature hash as well as
// the profile name; purely passphrase-bound profiles (audio_weight==0)
// bind to the profile name alone.
func memoryHardSalt(featureHash []byte, profileName string, audioWeight float64) []byte {
	h := sha256.New()
	if audioWeight > 0 {
		h.Write(featureHash)
	}
	h.Write([]byte(profileName))
	sum := h.Sum(nil)
	return sum[:16]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
