// Package aead implements the authenticated-encryption envelope that
// wraps every ciphertext the engine produces: XChaCha20-Poly1305 by
// default, with an AES-GCM fallback, negotiated on decrypt purely by
// nonce length.
package aead

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/scrimshawlife-ctrl/Echotome/errs"
	"github.com/scrimshawlife-ctrl/Echotome/internal/canonicaljson"
)

const (
	xchachaNonceLen = chacha20poly1305.NonceSizeX // 24
	gcmNonceLen     = 12
)

// decoyTypes are the five fixed carrier types a deniable profile's
// decoy header can masquerade as.
var decoyTypes = []string{"PNG", "JPEG", "PDF", "ZIP", "MP3"}

// EncryptedBlob is the on-disk/on-wire envelope.
type EncryptedBlob struct {
	Version       string `json:"version"`
	NonceHex      string `json:"nonce_hex"`
	CiphertextHex string `json:"ciphertext_hex"`
	AuthTag       string `json:"auth_tag"`
	ProfileName   string `json:"profile_name"`
	RuneID        string `json:"rune_id"`
	DecoyHeader   string `json:"decoy_header,omitempty"`
}

// Context carries the fields that both select the AEAD's additional
// data and decide whether a decoy header is generated.
type Context struct {
	ProfileName string
	RuneID      string
	Deniable    bool
}

// Algorithm identifies which cipher produced or will open a blob.
type Algorithm string

const (
	AlgorithmXChaCha20Poly1305 Algorithm = "xchacha20poly1305"
	AlgorithmAESGCM            Algorithm = "aes-gcm"
)

// RuneIDFromKey derives the short human-presentable identifier for a
// derived key: "ECH-" followed by the upper-hex of the first 4 bytes
// of SHA-256(key).
func RuneIDFromKey(key []byte) string {
	sum := sha256.Sum256(key)
	return "ECH-" + strings.ToUpper(hex.EncodeToString(sum[:4]))
}

// Encrypt seals plaintext under key, selecting XChaCha20-Poly1305.
// AAD is the canonical JSON of {profile_name, rune_id} taken from ctx.
func Encrypt(plaintext, key []byte, ctx Context) (*EncryptedBlob, error) {
	return EncryptWithAlgorithm(plaintext, key, ctx, AlgorithmXChaCha20Poly1305)
}

// EncryptWithAlgorithm seals plaintext under key using the requested
// algorithm explicitly. The Go runtime never reports XChaCha20-Poly1305
// as unavailable, so Encrypt always takes that branch; the AES-GCM
// path exists for callers (and tests) that need the negotiated
// fallback exercised deliberately.
func EncryptWithAlgorithm(plaintext, key []byte, ctx Context, alg Algorithm) (*EncryptedBlob, error) {
	aad, err := aadBytes(ctx)
	if err != nil {
		return nil, fmt.Errorf("aead: building aad: %w", err)
	}

	var nonce, ciphertext []byte

	switch alg {
	case AlgorithmAESGCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("aead: aes init: %w", err)
		}
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("aead: gcm init: %w", err)
		}
		nonce = make([]byte, gcmNonceLen)
		if _, err := rand.Read(nonce); err != nil {
			return nil, fmt.Errorf("aead: generating nonce: %w", err)
		}
		ciphertext = gcm.Seal(nil, nonce, plaintext, aad)
	default:
		a, err := chacha20poly1305.NewX(key)
		if err != nil {
			return nil, fmt.Errorf("aead: xchacha20poly1305 init: %w", err)
		}
		nonce = make([]byte, xchachaNonceLen)
		if _, err := rand.Read(nonce); err != nil {
			return nil, fmt.Errorf("aead: generating nonce: %w", err)
		}
		ciphertext = a.Seal(nil, nonce, plaintext, aad)
	}

	blob := &EncryptedBlob{
		Version:       "2.0",
		NonceHex:      hex.EncodeToString(nonce),
		CiphertextHex: hex.EncodeToString(ciphertext),
		AuthTag:       "",
		ProfileName:   ctx.ProfileName,
		RuneID:        ctx.RuneID,
	}

	if ctx.Deniable {
		header, err := generateDecoyHeader()
		if err != nil {
			return nil, fmt.Errorf("aead: generating decoy header: %w", err)
		}
		blob.DecoyHeader = header
	}

	return blob, nil
}

// Decrypt opens blob under key. Any AEAD failure — wrong key, wrong
// AAD, truncated ciphertext, unsupported nonce length — collapses to
// a single ErrAuthenticationFailed; the internal branch never leaks.
func Decrypt(blob *EncryptedBlob, key []byte) ([]byte, error) {
	nonce, err := hex.DecodeString(blob.NonceHex)
	if err != nil {
		return nil, errs.New(errs.ErrAuthenticationFailed, "")
	}
	ciphertext, err := hex.DecodeString(blob.CiphertextHex)
	if err != nil {
		return nil, errs.New(errs.ErrAuthenticationFailed, "")
	}

	ctx := Context{ProfileName: blob.ProfileName, RuneID: blob.RuneID}
	aad, err := aadBytes(ctx)
	if err != nil {
		return nil, errs.New(errs.ErrAuthenticationFailed, "")
	}

	var plaintext []byte
	switch len(nonce) {
	case xchachaNonceLen:
		a, err := chacha20poly1305.NewX(key)
		if err != nil {
			return nil, errs.New(errs.ErrAuthenticationFailed, "")
		}
		plaintext, err = a.Open(nil, nonce, ciphertext, aad)
		if err != nil {
			return nil, errs.New(errs.ErrAuthenticationFailed, "")
		}
	case gcmNonceLen:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, errs.New(errs.ErrAuthenticationFailed, "")
		}
		a, err := cipher.NewGCM(block)
		if err != nil {
			return nil, errs.New(errs.ErrAuthenticationFailed, "")
		}
		plaintext, err = a.Open(nil, nonce, ciphertext, aad)
		if err != nil {
			return nil, errs.New(errs.ErrAuthenticationFailed, "")
		}
	default:
		return nil, errs.New(errs.ErrAuthenticationFailed, "")
	}

	return plaintext, nil
}

// AlgorithmFor reports which algorithm a blob's nonce length selects.
func AlgorithmFor(blob *EncryptedBlob) (Algorithm, error) {
	nonce, err := hex.DecodeString(blob.NonceHex)
	if err != nil {
		return "", errs.New(errs.ErrAuthenticationFailed, "malformed nonce")
	}
	switch len(nonce) {
	case xchachaNonceLen:
		return AlgorithmXChaCha20Poly1305, nil
	case gcmNonceLen:
		return AlgorithmAESGCM, nil
	default:
		return "", errs.New(errs.ErrAuthenticationFailed, "unrecognized nonce length")
	}
}

func aadBytes(ctx Context) ([]byte, error) {
	return canonicaljson.Marshal(map[string]interface{}{
		"profile_name": ctx.ProfileName,
		"rune_id":      ctx.RuneID,
	})
}

func generateDecoyHeader() (string, error) {
	idx := make([]byte, 1)
	if _, err := rand.Read(idx); err != nil {
		return "", err
	}
	t := decoyTypes[int(idx[0])%len(decoyTypes)]

	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return "", err
	}

	return fmt.Sprintf("DECOY_%s_%s", t, hex.EncodeToString(suffix)), nil
}
