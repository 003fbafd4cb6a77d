// Package audio turns a raw audio buffer into the deterministic
// 256-float fingerprint the rest of the engine binds a key to, and
// locates the contiguous "meaningful" region of a track that a
// ritual session is allowed to bind against.
package audio

import (
	"math"

	"github.com/scrimshawlife-ctrl/Echotome/errs"
)

// DefaultSampleRate is the internal sample rate every feature is
// computed at, regardless of the carrier's native rate.
const DefaultSampleRate = 16000

// FrameSize and HopSize fix the STFT framing used throughout.
const (
	FrameSize = 2048
	HopSize   = 512
)

// FeatureVectorLen is the fixed length of an extracted feature vector.
const FeatureVectorLen = 256

// Downmix averages per-sample across channels, matching a simple
// stereo/multi-channel-to-mono reduction.
func Downmix(channels [][]float32) ([]float32, error) {
	if len(channels) == 0 {
		return nil, errs.New(errs.ErrInvalidInput, "no audio channels supplied")
	}

	n := len(channels[0])
	for _, ch := range channels {
		if len(ch) != n {
			return nil, errs.New(errs.ErrInvalidInput, "audio channels have mismatched lengths")
		}
	}

	mono := make([]float32, n)
	for _, ch := range channels {
		for i, v := range ch {
			mono[i] += v
		}
	}
	inv := 1.0 / float32(len(channels))
	for i := range mono {
		mono[i] *= inv
	}
	return mono, nil
}

// ResampleLinear deterministically resamples mono samples from srIn
// to srOut using linear interpolation over two equally spaced
// parameterizations of [0, 1).
func ResampleLinear(samples []float32, srIn, srOut int) []float32 {
	if srIn == srOut || len(samples) == 0 {
		out := make([]float32, len(samples))
		copy(out, samples)
		return out
	}

	ratio := float64(srOut) / float64(srIn)
	newLength := int(float64(len(samples)) * ratio)
	if newLength <= 0 {
		return nil
	}

	out := make([]float32, newLength)
	oldLen := len(samples)
	for i := 0; i < newLength; i++ {
		xNew := float64(i) / float64(newLength)
		pos := xNew * float64(oldLen)
		lower := int(pos)
		if lower >= oldLen-1 {
			out[i] = samples[oldLen-1]
			continue
		}
		frac := float32(pos - float64(lower))
		out[i] = samples[lower] + frac*(samples[lower+1]-samples[lower])
	}
	return out
}

// FrameAudio slices samples into overlapping frames of frameSize with
// the given hop, zero-padding a final short frame defensively.
func FrameAudio(samples []float32, frameSize, hopSize int) [][]float32 {
	if len(samples) == 0 {
		return nil
	}

	nFrames := 1
	if len(samples) > frameSize {
		nFrames += (len(samples) - frameSize) / hopSize
	}

	frames := make([][]float32, nFrames)
	for i := 0; i < nFrames; i++ {
		frame := make([]float32, frameSize)
		start := i * hopSize
		end := start + frameSize
		if end > len(samples) {
			end = len(samples)
		}
		copy(frame, samples[start:end])
		frames[i] = frame
	}
	return frames
}

// HannWindow returns the n-point symmetric Hann window (numpy's
// np.hanning), used to taper every frame before an FFT.
func HannWindow(n int) []float32 {
	w := make([]float32, n)
	if n <= 1 {
		for i := range w {
			w[i] = 1
		}
		return w
	}
	for i := 0; i < n; i++ {
		w[i] = float32(0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}
