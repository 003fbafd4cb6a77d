// Package identity manages the single Ed25519 device identity every
// ritual ownership certificate is signed against. Adapted from the
// general multi-curve keystore the rest of this codebase uses down to
// one fixed key type and one fixed on-disk layout: raw key bytes, two
// files, nothing else.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/scrimshawlife-ctrl/Echotome/errs"
)

const (
	dirMode  = 0700
	fileMode = 0600

	privateKeyFile = "device.priv"
	publicKeyFile  = "device.pub"
)

// Identity is a loaded or freshly generated device keypair.
type Identity struct {
	dir        string
	PrivateKey ed25519.PrivateKey
	PublicKey  ed25519.PublicKey
}

// Load opens the identity rooted at dir, generating one if it does not
// exist yet. Subsequent loads validate key lengths and reconstruct the
// Ed25519 key objects to catch silent corruption; any failure there is
// terminal for the caller — the core never auto-regenerates.
func Load(dir string) (*Identity, error) {
	privPath := filepath.Join(dir, privateKeyFile)
	pubPath := filepath.Join(dir, publicKeyFile)

	if _, err := os.Stat(privPath); os.IsNotExist(err) {
		return generate(dir)
	}

	privBytes, err := os.ReadFile(privPath)
	if err != nil {
		return nil, errs.New(errs.ErrResource, "reading private key: "+err.Error())
	}
	pubBytes, err := os.ReadFile(pubPath)
	if err != nil {
		return nil, errs.New(errs.ErrResource, "reading public key: "+err.Error())
	}

	if len(privBytes) != ed25519.PrivateKeySize {
		return nil, errs.New(errs.ErrResource, fmt.Sprintf("private key has wrong length: %d", len(privBytes)))
	}
	if len(pubBytes) != ed25519.PublicKeySize {
		return nil, errs.New(errs.ErrResource, fmt.Sprintf("public key has wrong length: %d", len(pubBytes)))
	}

	priv := ed25519.PrivateKey(privBytes)
	pub := ed25519.PublicKey(pubBytes)

	// Reconstructing the derived public key from the private key and
	// comparing catches a corrupted or mismatched pair outright.
	derivedPub := priv.Public().(ed25519.PublicKey)
	if !derivedPub.Equal(pub) {
		return nil, errs.New(errs.ErrResource, "stored public key does not match private key")
	}

	return &Identity{dir: dir, PrivateKey: priv, PublicKey: pub}, nil
}

// generate creates a brand-new identity under dir. It is invoked
// exactly once per device by Load; the core never rotates it.
func generate(dir string) (*Identity, error) {
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, errs.New(errs.ErrResource, "creating identity dir: "+err.Error())
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errs.New(errs.ErrResource, "generating key: "+err.Error())
	}

	if err := writeKeyFile(filepath.Join(dir, privateKeyFile), priv); err != nil {
		return nil, err
	}
	if err := writeKeyFile(filepath.Join(dir, publicKeyFile), pub); err != nil {
		return nil, err
	}

	return &Identity{dir: dir, PrivateKey: priv, PublicKey: pub}, nil
}

func writeKeyFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, fileMode); err != nil {
		return errs.New(errs.ErrResource, "writing "+path+": "+err.Error())
	}
	return nil
}

// Reset discards the existing identity and generates a fresh one. Any
// ritual certificate signed under the old identity becomes
// unverifiable against this device's new public key.
func Reset(dir string) (*Identity, error) {
	for _, name := range []string{privateKeyFile, publicKeyFile} {
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, errs.New(errs.ErrResource, "removing "+path+": "+err.Error())
		}
	}
	return generate(dir)
}

// Sign returns a 64-byte Ed25519 signature over data.
func (id *Identity) Sign(data []byte) []byte {
	return ed25519.Sign(id.PrivateKey, data)
}

// Verify reports whether sig is a valid signature over data under pub.
// It never panics or returns an error — a malformed signature or key
// simply verifies false.
func Verify(data, sig []byte, pub ed25519.PublicKey) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(pub, data, sig)
}

// Fingerprint returns the upper-hex encoding of the raw public key's
// first 8 bytes, a short human-presentable identifier for the device
// matching the certificate-summary fingerprint shown elsewhere.
func Fingerprint(pub ed25519.PublicKey) string {
	n := 8
	if len(pub) < n {
		n = len(pub)
	}
	return strings.ToUpper(hex.EncodeToString(pub[:n]))
}

// ExportPublicBase64 encodes pub for embedding in a ritual ownership
// certificate's owner_pub field.
func ExportPublicBase64(pub ed25519.PublicKey) string {
	return base64.StdEncoding.EncodeToString(pub)
}

// ImportPublicBase64 decodes a base64 owner_pub field back into a
// public key, validating its length.
func ImportPublicBase64(s string) (ed25519.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errs.New(errs.ErrInvalidInput, "malformed base64 public key")
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, errs.New(errs.ErrInvalidInput, fmt.Sprintf("public key has wrong length: %d", len(raw)))
	}
	return ed25519.PublicKey(raw), nil
}
