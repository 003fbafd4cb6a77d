// Package tsc implements the temporal salt chain: a per-ritual running
// hash that binds a track's frames to the order and approximate timing
// they arrived in, not just their content.
package tsc

import (
	"crypto/sha256"
	"encoding/binary"
	"time"

	"github.com/scrimshawlife-ctrl/Echotome/errs"
)

const magic = "ECHOTOME-TSC-V3"

// expectedFrameInterval is the nominal seconds-per-frame for the
// engine's default (hop=512, sample_rate=16000) framing. Implementations
// that change hop or sample_rate must recompute this from their own
// active-region framing parameters rather than reuse the constant.
const expectedFrameInterval = 0.032

const (
	accelerationFloor    = expectedFrameInterval * 0.8
	stallCeiling         = expectedFrameInterval * 1.2 * 3
	accelerationMaxRatio = 0.10
	stallMaxRatio        = 0.20
)

type state int

const (
	stateInit state = iota
	stateChaining
	stateFinalized
)

// Streamer folds frames into a running temporal hash one at a time,
// optionally enforcing that their arrival timing looks like a live
// capture rather than a replayed file.
type Streamer struct {
	st             state
	chain          []byte
	frameIndex     uint64
	arrivalOffsets []float64
	firstArrival   time.Time
	haveFirst      bool
}

// NewStreamer begins a chain bound to devicePub and the track's
// declared frame count.
func NewStreamer(devicePub []byte, trackLength uint64) *Streamer {
	h := sha256.New()
	h.Write([]byte(magic))
	h.Write(devicePub)
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], trackLength)
	h.Write(lenBuf[:])

	return &Streamer{
		st:    stateChaining,
		chain: h.Sum(nil),
	}
}

// AddFrame folds one frame (float32 little-endian samples already
// flattened to bytes) into the chain. arrivedAt is used only for the
// timing gate; pass the zero time.Time when reconstructing offline.
func (s *Streamer) AddFrame(frame []byte, arrivedAt time.Time) error {
	if s.st == stateFinalized {
		return errs.New(errs.ErrStateViolation, "add_frame called after finalize")
	}

	if !arrivedAt.IsZero() {
		if !s.haveFirst {
			s.firstArrival = arrivedAt
			s.haveFirst = true
			s.arrivalOffsets = append(s.arrivalOffsets, 0)
		} else {
			s.arrivalOffsets = append(s.arrivalOffsets, arrivedAt.Sub(s.firstArrival).Seconds())
		}
	}

	fh := sha256.Sum256(frame)

	var idxBuf [8]byte
	binary.BigEndian.PutUint64(idxBuf[:], s.frameIndex)

	jh := sha256.New()
	jh.Write(s.chain)
	jh.Write(idxBuf[:])
	jitter := jh.Sum(nil)[:8]

	next := sha256.New()
	next.Write(s.chain)
	next.Write(fh[:])
	next.Write(jitter)
	next.Write(idxBuf[:])
	s.chain = next.Sum(nil)

	s.frameIndex++
	return nil
}

// Finalize closes the chain and returns the 32-byte temporal hash. When
// validateTiming is true and at least two frames carried an arrival
// timestamp, inter-arrival intervals are checked for implausible
// acceleration or stalls; an offline reconstruction from a stored file
// should pass validateTiming = false to bypass the gate entirely.
func (s *Streamer) Finalize(validateTiming bool) ([]byte, error) {
	if s.st == stateFinalized {
		return nil, errs.New(errs.ErrStateViolation, "finalize called twice")
	}

	if validateTiming && len(s.arrivalOffsets) >= 2 {
		if err := checkTiming(s.arrivalOffsets); err != nil {
			return nil, err
		}
	}

	s.st = stateFinalized
	return s.chain, nil
}

func checkTiming(offsets []float64) error {
	n := len(offsets) - 1
	if n <= 0 {
		return nil
	}

	accelerated := 0
	stalled := 0
	for i := 1; i < len(offsets); i++ {
		interval := offsets[i] - offsets[i-1]
		if interval < accelerationFloor {
			accelerated++
		}
		if interval > stallCeiling {
			stalled++
		}
	}

	if float64(accelerated)/float64(n) > accelerationMaxRatio {
		return errs.New(errs.ErrStateViolation, "timing validation failed: excessive acceleration")
	}
	if float64(stalled)/float64(n) > stallMaxRatio {
		return errs.New(errs.ErrStateViolation, "timing validation failed: excessive stalling")
	}
	return nil
}

// Compute folds every frame in frames with no timing enforcement and
// returns the resulting temporal hash directly, for callers that
// already have the full track in hand and don't need the streaming API.
func Compute(devicePub []byte, frames [][]byte) ([]byte, error) {
	s := NewStreamer(devicePub, uint64(len(frames)))
	for _, f := range frames {
		if err := s.AddFrame(f, time.Time{}); err != nil {
			return nil, err
		}
	}
	return s.Finalize(false)
}
