// Package roc implements the Ritual Ownership Certificate: an
// Ed25519-signed statement, bound to the device identity, that a given
// rune was derived while one or more audio tracks were active.
package roc

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/scrimshawlife-ctrl/Echotome/crypto/identity"
	"github.com/scrimshawlife-ctrl/Echotome/errs"
	"github.com/scrimshawlife-ctrl/Echotome/internal/canonicaljson"
)

const payloadVersion = "3.1"

// RitualTrack records one audio track's binding: its content hash, the
// active region used, the imprint vector derived from it, and
// optionally the temporal salt chain hash and declared frame count.
type RitualTrack struct {
	AudioHashHex    string `json:"audio_hash_hex"`
	ActiveStart     int    `json:"active_start"`
	ActiveEnd       int    `json:"active_end"`
	RIVHex          string `json:"riv_hex"`
	TemporalHashHex string `json:"temporal_hash_hex,omitempty"`
	TrackLength     int    `json:"track_length,omitempty"`
}

// RitualCertificatePayload is the signed body of a certificate. A
// single-track certificate also populates the v3.0-compat shadow
// fields so a v3.0 reader can verify the same bytes unmodified.
type RitualCertificatePayload struct {
	Version     string        `json:"version"`
	OwnerPubB64 string        `json:"owner_pub_b64"`
	RuneID      string        `json:"rune_id"`
	Profile     string        `json:"profile"`
	CreatedAt   int64         `json:"created_at_unix"`
	Tracks      []RitualTrack `json:"tracks"`

	// v3.0-compat shadow fields, mirroring Tracks[0] for single-track
	// certificates. Absent on multi-track certificates.
	AudioHash    string `json:"audio_hash,omitempty"`
	ActiveStart  int    `json:"active_start,omitempty"`
	ActiveEnd    int    `json:"active_end,omitempty"`
	RIV          string `json:"riv,omitempty"`
	TemporalHash string `json:"temporal_hash,omitempty"`
}

// RitualCertificate is the signed payload plus its base64-encoded
// Ed25519 signature.
type RitualCertificate struct {
	Payload   RitualCertificatePayload `json:"payload"`
	Signature string                   `json:"signature"`
}

// Create builds and signs a certificate over tracks for the given
// rune and profile, using id to sign and to populate owner_pub.
func Create(id *identity.Identity, runeID, profileName string, tracks []RitualTrack, createdAt time.Time) (*RitualCertificate, error) {
	if len(tracks) == 0 {
		return nil, errs.New(errs.ErrInvalidInput, "at least one track is required")
	}

	payload := RitualCertificatePayload{
		Version:     payloadVersion,
		OwnerPubB64: identity.ExportPublicBase64(id.PublicKey),
		RuneID:      runeID,
		Profile:     profileName,
		CreatedAt:   createdAt.Unix(),
		Tracks:      tracks,
	}

	if len(tracks) == 1 {
		payload.AudioHash = tracks[0].AudioHashHex
		payload.ActiveStart = tracks[0].ActiveStart
		payload.ActiveEnd = tracks[0].ActiveEnd
		payload.RIV = tracks[0].RIVHex
		payload.TemporalHash = tracks[0].TemporalHashHex
	}

	signBytes, err := canonicalPayloadBytes(payload)
	if err != nil {
		return nil, errs.New(errs.ErrInvalidInput, "canonicalizing payload: "+err.Error())
	}

	sig := id.Sign(signBytes)

	return &RitualCertificate{
		Payload:   payload,
		Signature: b64Encode(sig),
	}, nil
}

// VerifyOptions narrows what Verify additionally checks beyond the
// signature itself.
type VerifyOptions struct {
	// ExpectedAudioHash, if non-empty, is compared against the
	// certificate's legacy single-track audio_hash field. Callers
	// verifying a multi-track certificate must compare against
	// Payload.Tracks[i].AudioHashHex themselves.
	ExpectedAudioHash string

	// AllowedSigners, if non-empty, rejects certificates whose
	// owner_pub is not in this allow-list.
	AllowedSigners []string
}

// Verify is total: any decode or cryptographic failure returns false,
// never a panic, and never an error.
func Verify(cert *RitualCertificate, opts VerifyOptions) (ok bool) {
	if cert == nil {
		return false
	}

	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	signBytes, err := canonicalPayloadBytes(cert.Payload)
	if err != nil {
		return false
	}

	sig, err := b64Decode(cert.Signature)
	if err != nil {
		return false
	}

	pub, err := identity.ImportPublicBase64(cert.Payload.OwnerPubB64)
	if err != nil {
		return false
	}

	if !identity.Verify(signBytes, sig, pub) {
		return false
	}

	if opts.ExpectedAudioHash != "" {
		if cert.Payload.AudioHash == "" || cert.Payload.AudioHash != opts.ExpectedAudioHash {
			return false
		}
	}

	if len(opts.AllowedSigners) > 0 {
		allowed := false
		for _, s := range opts.AllowedSigners {
			if s == cert.Payload.OwnerPubB64 {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	return true
}

// Store persists and retrieves certificates under a per-user ROC
// directory, one file per rune id.
type Store struct {
	dir string
}

// NewStore roots a certificate store at dir, creating it if necessary.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errs.New(errs.ErrResource, "creating roc dir: "+err.Error())
	}
	return &Store{dir: dir}, nil
}

func (s *Store) pathForRuneID(runeID string) string {
	return filepath.Join(s.dir, runeID+".roc.json")
}

// Save writes cert to <rune_id>.roc.json.
func (s *Store) Save(cert *RitualCertificate) error {
	data, err := json.MarshalIndent(cert, "", "  ")
	if err != nil {
		return errs.New(errs.ErrInvalidInput, "marshaling certificate: "+err.Error())
	}
	path := s.pathForRuneID(cert.Payload.RuneID)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return errs.New(errs.ErrResource, "writing certificate: "+err.Error())
	}
	return nil
}

// LoadByRuneID opens the certificate stored for runeID.
func (s *Store) LoadByRuneID(runeID string) (*RitualCertificate, error) {
	data, err := os.ReadFile(s.pathForRuneID(runeID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.New(errs.ErrNotFound, "no certificate for rune id "+runeID)
		}
		return nil, errs.New(errs.ErrResource, "reading certificate: "+err.Error())
	}
	var cert RitualCertificate
	if err := json.Unmarshal(data, &cert); err != nil {
		return nil, errs.New(errs.ErrInvalidInput, "decoding certificate: "+err.Error())
	}
	return &cert, nil
}

// LoadByAudioHash scans every certificate in the store for one whose
// legacy audio_hash (or, for multi-track certificates, any track's
// audio hash) matches audioHash. Unreadable or malformed files are
// skipped rather than treated as fatal.
func (s *Store) LoadByAudioHash(audioHash string) (*RitualCertificate, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errs.New(errs.ErrResource, "scanning roc dir: "+err.Error())
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		var cert RitualCertificate
		if err := json.Unmarshal(data, &cert); err != nil {
			continue
		}
		if cert.Payload.AudioHash == audioHash {
			return &cert, nil
		}
		for _, tr := range cert.Payload.Tracks {
			if tr.AudioHashHex == audioHash {
				return &cert, nil
			}
		}
	}

	return nil, errs.New(errs.ErrNotFound, "no certificate found for audio hash "+audioHash)
}

// ListAll returns every certificate currently stored.
func (s *Store) ListAll() ([]*RitualCertificate, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errs.New(errs.ErrResource, "scanning roc dir: "+err.Error())
	}

	var out []*RitualCertificate
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		var cert RitualCertificate
		if err := json.Unmarshal(data, &cert); err != nil {
			continue
		}
		out = append(out, &cert)
	}
	return out, nil
}

// Delete removes the certificate stored for runeID.
func (s *Store) Delete(runeID string) error {
	if err := os.Remove(s.pathForRuneID(runeID)); err != nil && !os.IsNotExist(err) {
		return errs.New(errs.ErrResource, "deleting certificate: "+err.Error())
	}
	return nil
}

// Hash returns SHA-256 of the certificate's pretty-printed JSON bytes,
// used only as the stego payload's roc_hash cross-check — deliberately
// not the canonical signing bytes.
func Hash(cert *RitualCertificate) (string, error) {
	data, err := json.MarshalIndent(cert, "", "  ")
	if err != nil {
		return "", errs.New(errs.ErrInvalidInput, "marshaling certificate: "+err.Error())
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Summary renders a short human-readable description of cert: track
// count, owner fingerprint, and age, for display to an external
// collaborator inspecting a vault.
func Summary(cert *RitualCertificate) (string, error) {
	pub, err := identity.ImportPublicBase64(cert.Payload.OwnerPubB64)
	if err != nil {
		return "", errs.New(errs.ErrInvalidInput, "decoding owner public key: "+err.Error())
	}

	age := time.Since(time.Unix(cert.Payload.CreatedAt, 0))

	return "rune " + cert.Payload.RuneID +
		" — " + strconv.Itoa(len(cert.Payload.Tracks)) + " track(s)" +
		", owner " + identity.Fingerprint(pub) +
		", age " + age.Round(time.Second).String(), nil
}

func b64Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func b64Decode(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// canonicalPayloadBytes produces the lexicographically-sorted-key,
// no-whitespace JSON encoding of payload used as the Ed25519 signing
// input. A struct would fix key order to field-declaration order, so
// the payload is round-tripped through a generic map first.
func canonicalPayloadBytes(payload RitualCertificatePayload) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var generic map[string]interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	return canonicaljson.Marshal(generic)
}
