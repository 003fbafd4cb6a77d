package audio

import (
	"fmt"
	"math"

	"github.com/scrimshawlife-ctrl/Echotome/errs"
)

// Active-region detection thresholds, applied with hysteresis to
// avoid false positives right at a region boundary.
const (
	rmsThreshold             = 0.01
	fluxThreshold            = 0.02
	centroidShiftThresholdHz = 500
	minActiveDurationS       = 1.0
	hysteresisFactor         = 0.8
)

// ActiveRegion is the contiguous frame span selected as the portion
// of a track a ritual session is bound against.
type ActiveRegion struct {
	StartFrame int
	EndFrame   int
}

// Info is a human-readable summary of an active region for display by
// external collaborators, supplementing the original's
// get_active_region_info.
type Info struct {
	StartFrame       int
	EndFrame         int
	StartTimeSeconds float64
	EndTimeSeconds   float64
	DurationSeconds  float64
	StartSample      int
	EndSample        int
	NumFrames        int
}

// DetectActiveRegion frames samples, computes per-frame RMS, spectral
// flux, and centroid shift, and returns the longest contiguous run of
// frames where any metric clears its hysteresis-scaled threshold.
func DetectActiveRegion(samples []float32, sr int) (ActiveRegion, error) {
	if len(samples) == 0 {
		return ActiveRegion{}, errEmptyAudio
	}

	frames := FrameAudio(samples, FrameSize, HopSize)

	rms := computeRMS(frames)
	flux, centroidShift := fluxAndCentroidShift(frames, sr)

	isActive := make([]bool, len(frames))
	for i := range frames {
		isActive[i] = rms[i] > rmsThreshold*hysteresisFactor ||
			flux[i] > fluxThreshold*hysteresisFactor ||
			centroidShift[i] > centroidShiftThresholdHz*hysteresisFactor
	}

	minFrames := int(minActiveDurationS * float64(sr) / float64(HopSize))
	start, end, found := findLongestActiveRegion(isActive, minFrames)
	if !found {
		return ActiveRegion{}, errs.New(errs.ErrInvalidInput,
			fmt.Sprintf("no active region found meeting minimum duration of %.1fs", minActiveDurationS))
	}

	return ActiveRegion{StartFrame: start, EndFrame: end}, nil
}

func fluxAndCentroidShift(frames [][]float32, sr int) (flux, centroidShift []float64) {
	flux = make([]float64, len(frames))
	centroidShift = make([]float64, len(frames))
	if len(frames) < 2 {
		return flux, centroidShift
	}

	frameSize := len(frames[0])
	spec, err := rawMagnitudeSpectrogram(frames, frameSize)
	if err != nil {
		return flux, centroidShift
	}

	freqs := linspace(0, float64(sr)/2, len(spec[0]))
	centroids := spectralCentroids(spec, freqs)

	for i := 1; i < len(frames); i++ {
		var sumSq float64
		for j := range spec[i] {
			d := spec[i][j] - spec[i-1][j]
			sumSq += d * d
		}
		flux[i] = sumSq
		centroidShift[i] = math.Abs(centroids[i] - centroids[i-1])
	}
	return flux, centroidShift
}

// findLongestActiveRegion returns the longest contiguous run of true
// values in isActive whose length is at least minFrames.
func findLongestActiveRegion(isActive []bool, minFrames int) (start, end int, found bool) {
	bestLen := -1
	runStart := -1

	flush := func(runEnd int) {
		if runStart < 0 {
			return
		}
		length := runEnd - runStart + 1
		if length >= minFrames && length > bestLen {
			bestLen = length
			start = runStart
			end = runEnd
			found = true
		}
		runStart = -1
	}

	for i, active := range isActive {
		if active {
			if runStart < 0 {
				runStart = i
			}
		} else {
			flush(i - 1)
		}
	}
	flush(len(isActive) - 1)

	return start, end, found
}

// GetActiveRegionInfo renders a human-readable summary of the region
// [startFrame, endFrame] within a track of the given sample count and
// sample rate.
func GetActiveRegionInfo(numSamples, sr, startFrame, endFrame int) Info {
	startTime := float64(startFrame*HopSize) / float64(sr)
	endTime := float64((endFrame+1)*HopSize) / float64(sr)

	startSample := startFrame * HopSize
	endSample := (endFrame + 1) * HopSize
	if endSample > numSamples {
		endSample = numSamples
	}

	return Info{
		StartFrame:       startFrame,
		EndFrame:         endFrame,
		StartTimeSeconds: startTime,
		EndTimeSeconds:   endTime,
		DurationSeconds:  endTime - startTime,
		StartSample:      startSample,
		EndSample:        endSample,
		NumFrames:        endFrame - startFrame + 1,
	}
}
