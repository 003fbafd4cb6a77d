package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sineWave(freq float64, sr, n int, amp float32) []float32 {
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = amp * float32(math.Sin(2*math.Pi*freq*float64(i)/float64(sr)))
	}
	return out
}

func TestDownmixAveragesChannels(t *testing.T) {
	left := []float32{1, 1, 1}
	right := []float32{-1, -1, -1}

	mono, err := Downmix([][]float32{left, right})
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0}, mono)
}

func TestDownmixRejectsMismatchedLengths(t *testing.T) {
	_, err := Downmix([][]float32{{1, 2}, {1}})
	assert.Error(t, err)
}

func TestResampleLinearIsIdentityWhenRatesMatch(t *testing.T) {
	in := []float32{1, 2, 3, 4}
	out := ResampleLinear(in, 16000, 16000)
	assert.Equal(t, in, out)
}

func TestResampleLinearChangesLength(t *testing.T) {
	in := make([]float32, 32000)
	out := ResampleLinear(in, 32000, 16000)
	assert.InDelta(t, 16000, len(out), 2)
}

func TestFrameAudioYieldsFullLengthFrames(t *testing.T) {
	samples := make([]float32, 5000)
	frames := FrameAudio(samples, FrameSize, HopSize)
	assert.Greater(t, len(frames), 0)
	for _, f := range frames {
		assert.Len(t, f, FrameSize)
	}
}

func TestHannWindowEndpointsNearZero(t *testing.T) {
	w := HannWindow(8)
	assert.InDelta(t, 0, w[0], 1e-6)
	assert.InDelta(t, 0, w[7], 1e-6)
}

func TestExtractFeaturesReturnsFixedLength(t *testing.T) {
	samples := sineWave(440, DefaultSampleRate, DefaultSampleRate*2, 0.5)
	features, err := ExtractFeatures(samples, DefaultSampleRate)
	require.NoError(t, err)
	assert.Len(t, features, FeatureVectorLen)
}

func TestExtractFeaturesIsDeterministic(t *testing.T) {
	samples := sineWave(220, DefaultSampleRate, DefaultSampleRate, 0.3)

	a, err := ExtractFeatures(samples, DefaultSampleRate)
	require.NoError(t, err)
	b, err := ExtractFeatures(samples, DefaultSampleRate)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestExtractFeaturesRejectsEmptyInput(t *testing.T) {
	_, err := ExtractFeatures(nil, DefaultSampleRate)
	assert.Error(t, err)
}

func TestExtractFeaturesDiffersForDifferentAudio(t *testing.T) {
	a, err := ExtractFeatures(sineWave(220, DefaultSampleRate, DefaultSampleRate, 0.3), DefaultSampleRate)
	require.NoError(t, err)
	b, err := ExtractFeatures(sineWave(880, DefaultSampleRate, DefaultSampleRate, 0.3), DefaultSampleRate)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestCompressToNPadsShortInput(t *testing.T) {
	out := compressToN([]float64{1, 2}, 5)
	assert.Len(t, out, 5)
	assert.Equal(t, float32(1), out[0])
	assert.Equal(t, float32(2), out[1])
	assert.Equal(t, float32(0), out[4])
}

func TestCompressToNHandlesEmptyInput(t *testing.T) {
	out := compressToN(nil, 4)
	assert.Equal(t, []float32{0, 0, 0, 0}, out)
}

func TestPercentileMatchesKnownValues(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}
	assert.InDelta(t, 1.0, percentile(sorted, 0), 1e-9)
	assert.InDelta(t, 5.0, percentile(sorted, 100), 1e-9)
	assert.InDelta(t, 3.0, percentile(sorted, 50), 1e-9)
}

func TestDetectActiveRegionFindsLoudSegment(t *testing.T) {
	sr := DefaultSampleRate
	silence := make([]float32, sr)
	tone := sineWave(440, sr, sr*2, 0.8)
	trailingSilence := make([]float32, sr)

	samples := append(append(append([]float32{}, silence...), tone...), trailingSilence...)

	region, err := DetectActiveRegion(samples, sr)
	require.NoError(t, err)
	assert.Greater(t, region.EndFrame, region.StartFrame)
}

func TestDetectActiveRegionFailsOnSilence(t *testing.T) {
	silence := make([]float32, DefaultSampleRate*3)
	_, err := DetectActiveRegion(silence, DefaultSampleRate)
	assert.Error(t, err)
}

func TestGetActiveRegionInfoComputesTiming(t *testing.T) {
	info := GetActiveRegionInfo(100000, DefaultSampleRate, 10, 20)
	assert.Equal(t, 11, info.NumFrames)
	assert.Greater(t, info.EndTimeSeconds, info.StartTimeSeconds)
	assert.LessOrEqual(t, info.EndSample, 100000)
}
