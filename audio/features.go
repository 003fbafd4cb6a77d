package audio

import (
	"math"
	"sort"

	"github.com/scrimshawlife-ctrl/Echotome/errs"
)

var errEmptyAudio = errs.New(errs.ErrInvalidInput, "empty audio samples")

// Extracted holds the frames and log1p-normalized spectral map a
// caller may already have computed (with FrameAudio and
// ComputeSpectralMap), letting ExtractFeaturesFrom reuse them instead
// of recomputing an FFT.
type Extracted struct {
	Frames      [][]float32
	SpectralMap SpectralMap
}

// ExtractFeatures computes the 256-float deterministic fingerprint of
// a mono audio buffer already at the internal sample rate.
func ExtractFeatures(samples []float32, sr int) ([]float32, error) {
	if len(samples) == 0 {
		return nil, errEmptyAudio
	}

	frames := FrameAudio(samples, FrameSize, HopSize)
	spec, err := computeSpectralMapFromFrames(frames, FrameSize)
	if err != nil {
		return nil, err
	}

	return ExtractFeaturesFrom(samples, sr, Extracted{Frames: frames, SpectralMap: spec})
}

// ExtractFeaturesFrom computes the fingerprint from pre-computed
// frames and spectral map, avoiding recomputation when a caller
// already produced them.
func ExtractFeaturesFrom(samples []float32, sr int, pre Extracted) ([]float32, error) {
	if len(samples) == 0 {
		return nil, errEmptyAudio
	}
	if len(pre.Frames) == 0 || len(pre.SpectralMap) == 0 {
		return nil, errs.New(errs.ErrInvalidInput, "pre-computed frames/spectral map required")
	}

	spec := pre.SpectralMap
	frames := pre.Frames
	nBins := len(spec[0])

	freqs := linspace(0, float64(sr)/2, nBins)

	centroids := spectralCentroids(spec, freqs)
	flux := spectralFlux(spec)
	rms := computeRMS(frames)
	onset := onsetEnvelope(rms)
	rolloff := spectralRolloff(spec)
	zcr := zeroCrossingRate(frames)
	specMean, specStd := spectralMoments(spec)

	features := make([]float32, 0, FeatureVectorLen)
	features = append(features, compressToN(centroids, 32)...)
	features = append(features, compressToN(flux, 32)...)
	features = append(features, compressToN(rms, 64)...)
	features = append(features, compressToN(onset, 32)...)
	features = append(features, compressToN(rolloff, 32)...)
	features = append(features, compressToN(zcr, 32)...)
	features = append(features, compressToN(specMean, 16)...)
	features = append(features, compressToN(specStd, 16)...)

	if len(features) > FeatureVectorLen {
		features = features[:FeatureVectorLen]
	}
	for len(features) < FeatureVectorLen {
		features = append(features, 0)
	}
	return features, nil
}

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = lo
		return out
	}
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + step*float64(i)
	}
	return out
}

func spectralCentroids(spec SpectralMap, freqs []float64) []float64 {
	out := make([]float64, len(spec))
	for i, row := range spec {
		var weighted, total float64
		for j, v := range row {
			weighted += v * freqs[j]
			total += v
		}
		out[i] = weighted / (total + logEpsilon)
	}
	return out
}

func spectralFlux(spec SpectralMap) []float64 {
	if len(spec) < 2 {
		return []float64{}
	}
	out := make([]float64, len(spec)-1)
	for i := 1; i < len(spec); i++ {
		var sumSq float64
		for j := range spec[i] {
			d := spec[i][j] - spec[i-1][j]
			sumSq += d * d
		}
		out[i-1] = sumSq
	}
	return out
}

func computeRMS(frames [][]float32) []float64 {
	out := make([]float64, len(frames))
	for i, frame := range frames {
		var sumSq float64
		for _, v := range frame {
			sumSq += float64(v) * float64(v)
		}
		out[i] = math.Sqrt(sumSq / float64(len(frame)))
	}
	return out
}

func onsetEnvelope(rms []float64) []float64 {
	if len(rms) < 2 {
		return []float64{}
	}
	out := make([]float64, len(rms)-1)
	for i := 1; i < len(rms); i++ {
		d := rms[i] - rms[i-1]
		if d < 0 {
			d = 0
		}
		out[i-1] = d
	}
	return out
}

func spectralRolloff(spec SpectralMap) []float64 {
	out := make([]float64, len(spec))
	for i, row := range spec {
		var total float64
		for _, v := range row {
			total += v
		}
		target := 0.85 * total
		var cum float64
		idx := 0
		for j, v := range row {
			cum += v
			if cum >= target {
				idx = j
				break
			}
		}
		out[i] = float64(idx) / float64(len(row))
	}
	return out
}

func zeroCrossingRate(frames [][]float32) []float64 {
	out := make([]float64, len(frames))
	for i, frame := range frames {
		if len(frame) < 2 {
			continue
		}
		var sum float64
		prevSign := signOf(frame[0])
		for j := 1; j < len(frame); j++ {
			s := signOf(frame[j])
			sum += math.Abs(float64(s - prevSign))
			prevSign = s
		}
		out[i] = sum / float64(len(frame)-1)
	}
	return out
}

func signOf(v float32) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func spectralMoments(spec SpectralMap) (mean, std []float64) {
	mean = make([]float64, len(spec))
	std = make([]float64, len(spec))
	for i, row := range spec {
		var sum float64
		for _, v := range row {
			sum += v
		}
		m := sum / float64(len(row))
		mean[i] = m

		var sqSum float64
		for _, v := range row {
			d := v - m
			sqSum += d * d
		}
		std[i] = math.Sqrt(sqSum / float64(len(row)))
	}
	return mean, std
}

// compressToN deterministically compresses data to exactly n float32
// values by sampling n equally spaced percentiles (numpy's linear
// interpolation method), the determinism anchor of the whole
// extractor. Shorter inputs are zero-padded rather than sampled.
func compressToN(data []float64, n int) []float32 {
	out := make([]float32, n)
	if len(data) == 0 {
		return out
	}
	if len(data) <= n {
		for i, v := range data {
			out[i] = float32(v)
		}
		return out
	}

	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)

	for i := 0; i < n; i++ {
		p := 0.0
		if n > 1 {
			p = 100 * float64(i) / float64(n-1)
		}
		out[i] = float32(percentile(sorted, p))
	}
	return out
}

// percentile computes the p-th percentile of pre-sorted data using
// the same linear-interpolation rule numpy.percentile defaults to.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := (p / 100) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*frac
}
