// Package riv computes the Ritual Imprint Vector: a 32-byte fingerprint
// binding a track's spectral shape, its rhythmic shape, and the
// temporal salt chain hash produced while it was captured.
package riv

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"math/bits"

	"github.com/scrimshawlife-ctrl/Echotome/errs"
)

const featureVectorLen = 256

// featureBytes returns the little-endian byte encoding of
// features[lo:hi], matching the canonical byte form used for hashing
// the feature vector everywhere else in the engine.
func featureBytes(features []float32, lo, hi int) []byte {
	out := make([]byte, 0, (hi-lo)*4)
	for _, f := range features[lo:hi] {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(f))
		out = append(out, buf[:]...)
	}
	return out
}

// SpectralSignature folds the centroid, rolloff, and spectral mean/std
// bands into a 16-byte signature.
func SpectralSignature(features []float32) ([]byte, error) {
	if len(features) != featureVectorLen {
		return nil, errs.New(errs.ErrInvalidInput, "feature vector must have 256 elements")
	}
	h := sha256.New()
	h.Write([]byte("SPECTRAL_SIG_V3"))
	h.Write(featureBytes(features, 0, 32))
	h.Write(featureBytes(features, 160, 192))
	h.Write(featureBytes(features, 224, 240))
	h.Write(featureBytes(features, 240, 256))
	return h.Sum(nil)[:16], nil
}

// RhythmSignature folds the flux, loudness, and onset bands into a
// 16-byte signature.
func RhythmSignature(features []float32) ([]byte, error) {
	if len(features) != featureVectorLen {
		return nil, errs.New(errs.ErrInvalidInput, "feature vector must have 256 elements")
	}
	h := sha256.New()
	h.Write([]byte("RHYTHM_SIG_V3"))
	h.Write(featureBytes(features, 32, 64))
	h.Write(featureBytes(features, 64, 128))
	h.Write(featureBytes(features, 128, 160))
	return h.Sum(nil)[:16], nil
}

// Compute derives the 32-byte Ritual Imprint Vector from a feature
// vector and the temporal salt chain hash produced while it was
// captured.
func Compute(features []float32, temporalHash []byte) ([]byte, error) {
	if len(temporalHash) != 32 {
		return nil, errs.New(errs.ErrInvalidInput, "temporal hash must be 32 bytes")
	}

	spectral, err := SpectralSignature(features)
	if err != nil {
		return nil, err
	}
	rhythm, err := RhythmSignature(features)
	if err != nil {
		return nil, err
	}

	h := sha256.New()
	h.Write([]byte("ECHOTOME_RIV_V3"))
	h.Write(spectral)
	h.Write(rhythm)
	h.Write(temporalHash)
	return h.Sum(nil), nil
}

// Distance returns the normalized Hamming distance between two RIVs in
// [0, 1]: 0 means identical, 1 means every bit differs.
func Distance(a, b []byte) (float64, error) {
	if len(a) != len(b) {
		return 0, errs.New(errs.ErrInvalidInput, "RIVs must be equal length")
	}
	if len(a) == 0 {
		return 0, errs.New(errs.ErrInvalidInput, "RIV must not be empty")
	}

	diffBits := 0
	for i := range a {
		diffBits += bits.OnesCount8(a[i] ^ b[i])
	}

	totalBits := len(a) * 8
	return float64(diffBits) / float64(totalBits), nil
}

// Compare reports whether two RIVs are within the given normalized
// Hamming distance threshold of each other.
func Compare(a, b []byte, threshold float64) (bool, error) {
	d, err := Distance(a, b)
	if err != nil {
		return false, err
	}
	return d <= threshold, nil
}

// Fingerprint renders riv as a lowercase hex string for display.
func Fingerprint(riv []byte) string {
	return hex.EncodeToString(riv)
}
