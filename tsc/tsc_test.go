package tsc

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrimshawlife-ctrl/Echotome/errs"
)

func floatFrame(v float32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
	return buf
}

func TestComputeIsDeterministic(t *testing.T) {
	pub := []byte("0123456789abcdef0123456789abcdef")
	frames := [][]byte{floatFrame(0.1), floatFrame(0.2), floatFrame(0.3)}

	first, err := Compute(pub, frames)
	require.NoError(t, err)

	second, err := Compute(pub, frames)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 32)
}

func TestComputeDiffersOnFrameOrder(t *testing.T) {
	pub := []byte("device-pub")
	a := [][]byte{floatFrame(0.1), floatFrame(0.2)}
	b := [][]byte{floatFrame(0.2), floatFrame(0.1)}

	hashA, err := Compute(pub, a)
	require.NoError(t, err)
	hashB, err := Compute(pub, b)
	require.NoError(t, err)

	assert.NotEqual(t, hashA, hashB)
}

func TestAddFrameAfterFinalizeErrors(t *testing.T) {
	s := NewStreamer([]byte("pub"), 1)
	require.NoError(t, s.AddFrame(floatFrame(0.1), time.Time{}))
	_, err := s.Finalize(false)
	require.NoError(t, err)

	err = s.AddFrame(floatFrame(0.2), time.Time{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrStateViolation))
}

func TestTimingGateRejectsAcceleration(t *testing.T) {
	s := NewStreamer([]byte("pub"), 10)
	base := time.Unix(0, 0)

	// Ten frames, almost all arriving far faster than the expected
	// 32ms cadence.
	for i := 0; i < 10; i++ {
		require.NoError(t, s.AddFrame(floatFrame(float32(i)), base.Add(time.Duration(i)*time.Millisecond)))
	}

	_, err := s.Finalize(true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrStateViolation))
}

func TestTimingGateBypassedOfflineReconstruction(t *testing.T) {
	s := NewStreamer([]byte("pub"), 10)
	base := time.Unix(0, 0)
	for i := 0; i < 10; i++ {
		require.NoError(t, s.AddFrame(floatFrame(float32(i)), base.Add(time.Duration(i)*time.Millisecond)))
	}

	_, err := s.Finalize(false)
	assert.NoError(t, err)
}

func TestTimingGateAcceptsPlausibleCadence(t *testing.T) {
	s := NewStreamer([]byte("pub"), 5)
	base := time.Unix(0, 0)
	interval := time.Duration(float64(time.Second) * expectedFrameInterval)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.AddFrame(floatFrame(float32(i)), base.Add(time.Duration(i)*interval)))
	}

	_, err := s.Finalize(true)
	assert.NoError(t, err)
}
