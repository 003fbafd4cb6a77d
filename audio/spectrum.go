package audio

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

const logEpsilon = 1e-8

// SpectralMap is a log1p-normalized magnitude spectrogram: one row of
// frequency-bin magnitudes per frame.
type SpectralMap [][]float64

// ComputeSpectralMap frames samples, applies a Hann window, and takes
// the real FFT of each frame via gonum's FFT planner (the one
// numerically delicate stage in the pipeline), log1p-normalizing the
// resulting magnitudes against the global maximum.
func ComputeSpectralMap(samples []float32, frameSize, hopSize int) (SpectralMap, error) {
	frames := FrameAudio(samples, frameSize, hopSize)
	return computeSpectralMapFromFrames(frames, frameSize)
}

func computeSpectralMapFromFrames(frames [][]float32, frameSize int) (SpectralMap, error) {
	mag, err := rawMagnitudeSpectrogram(frames, frameSize)
	if err != nil {
		return nil, err
	}

	maxMag := 0.0
	for _, row := range mag {
		for _, v := range row {
			if v > maxMag {
				maxMag = v
			}
		}
	}

	spec := make(SpectralMap, len(mag))
	denom := maxMag + logEpsilon
	for i, row := range mag {
		specRow := make([]float64, len(row))
		for j, v := range row {
			specRow[j] = math.Log1p(v / denom)
		}
		spec[i] = specRow
	}

	return spec, nil
}

// rawMagnitudeSpectrogram applies a Hann window and takes the real FFT
// magnitude of each frame via gonum's FFT planner, with no log
// compression and no normalization against a global maximum. This is
// the raw-scale magnitude the active-region detector's flux and
// centroid-shift metrics are calibrated against, distinct from the
// log1p-normalized SpectralMap used for feature extraction.
func rawMagnitudeSpectrogram(frames [][]float32, frameSize int) ([][]float64, error) {
	if len(frames) == 0 {
		return nil, errEmptyAudio
	}

	window := HannWindow(frameSize)
	plan := fourier.NewFFT(frameSize)

	mag := make([][]float64, len(frames))
	for i, frame := range frames {
		windowed := make([]float64, frameSize)
		for j, v := range frame {
			windowed[j] = float64(v) * float64(window[j])
		}

		coeffs := plan.Coefficients(nil, windowed)
		row := make([]float64, len(coeffs))
		for j, c := range coeffs {
			row[j] = cmplx.Abs(c)
		}
		mag[i] = row
	}

	return mag, nil
}
