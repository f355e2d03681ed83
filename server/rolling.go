package eventide

import (
	Et "github.com/maroda/eventide/types"
)

// NeutralValue is what a window with no samples averages to.
// It is also the stand-in for non-numeric event values.
const NeutralValue = 0.5

// DefaultRollingWindow is the width used when none is configured
const DefaultRollingWindow = 10

// Rolling is a causal simple moving average that skips nil samples.
// result[i] is the mean of the non-nil samples in [i-w+1, i],
// or NeutralValue when there are none.
func Rolling(samples []*float64, w int) []float64 {
	if w < 1 {
		w = 1
	}
	result := make([]float64, len(samples))

	for i := range samples {
		start := max(0, i-w+1)
		sum := 0.0
		valid := 0
		for j := start; j <= i; j++ {
			if samples[j] != nil {
				sum += *samples[j]
				valid++
			}
		}

		if valid == 0 {
			result[i] = NeutralValue
			continue
		}
		result[i] = sum / float64(valid)
	}

	return result
}

func sample(v float64) *float64 { return &v }

func boolSample(b bool) *float64 {
	if b {
		return sample(1)
	}
	return sample(0)
}

// ChoiceSamples is 1 for a right choice, 0 for left, nil for no choice
func ChoiceSamples(trials []Et.TrialOutcome) []*float64 {
	samples := make([]*float64, len(trials))
	for i, t := range trials {
		if t.IsRightChoice != nil {
			samples[i] = boolSample(*t.IsRightChoice)
		}
	}
	return samples
}

// RewardSamples only counts trials with a choice, the rest are nil
func RewardSamples(trials []Et.TrialOutcome) []*float64 {
	samples := make([]*float64, len(trials))
	for i, t := range trials {
		if t.IsRightChoice != nil {
			samples[i] = boolSample(t.IsRewarded)
		}
	}
	return samples
}

// FinishedSamples is 1 when a choice was made and 0 otherwise, never nil
func FinishedSamples(trials []Et.TrialOutcome) []*float64 {
	samples := make([]*float64, len(trials))
	for i, t := range trials {
		samples[i] = boolSample(t.IsRightChoice != nil)
	}
	return samples
}

// RewardProbabilities are the static per-trial reward probability traces
func RewardProbabilities(trials []Et.TrialOutcome) ([]float64, []float64) {
	left := make([]float64, len(trials))
	right := make([]float64, len(trials))
	for i, t := range trials {
		left[i] = t.Trial.PRewardLeft
		right[i] = t.Trial.PRewardRight
	}
	return left, right
}
