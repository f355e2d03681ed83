package eventide

import (
	Et "github.com/maroda/eventide/types"
)

// DefaultTrialHistoryCap bounds how many outcome records are retained
const DefaultTrialHistoryCap = 5000

// TrialHistory is the append-only outcome record list.
// Offset is the absolute index of Records[0].
type TrialHistory struct {
	Records []Et.TrialOutcome
	Offset  int
	Cap     int
}

func NewTrialHistory(limit int) *TrialHistory {
	if limit < 1 {
		limit = DefaultTrialHistoryCap
	}
	return &TrialHistory{
		Records: make([]Et.TrialOutcome, 0),
		Cap:     limit,
	}
}

// Append adds a record, dropping the oldest past Cap
func (th *TrialHistory) Append(o Et.TrialOutcome) {
	th.Records = append(th.Records, o)
	if over := len(th.Records) - th.Cap; over > 0 {
		th.Records = th.Records[over:]
		th.Offset += over
	}
}

// Count is the absolute number of trials ever appended
func (th *TrialHistory) Count() int {
	return th.Offset + len(th.Records)
}

// Categorize puts an outcome in its drawing bucket.
// The bool reports an auto-response trial.
func Categorize(o Et.TrialOutcome) (Et.OutcomeCategory, bool) {
	auto := o.Trial.IsAutoResponseRight != nil
	switch {
	case o.IsRightChoice == nil:
		return Et.NoChoice, auto
	case *o.IsRightChoice && o.IsRewarded:
		return Et.RightRewarded, auto
	case *o.IsRightChoice:
		return Et.RightUnrewarded, auto
	case o.IsRewarded:
		return Et.LeftRewarded, auto
	default:
		return Et.LeftUnrewarded, auto
	}
}

// OutcomeXLimits is the trial axis range for a history length (0 = all)
func OutcomeXLimits(count, history int) (float64, float64) {
	if history > 0 && count > history {
		return float64(count-history) - 0.5, float64(count)
	}
	return -0.5, float64(count)
}

// visibleFrom is the first retained record index inside the x limits
func (th *TrialHistory) visibleFrom(history int) int {
	xMin, _ := OutcomeXLimits(th.Count(), history)
	first := int(xMin+0.5) - th.Offset
	return max(0, first)
}

// Outcomes builds the outcome marks inside the history window
func (th *TrialHistory) Outcomes(history int) Et.OutcomeView {
	xMin, xMax := OutcomeXLimits(th.Count(), history)
	view := Et.OutcomeView{
		Marks: make([]Et.OutcomeMark, 0),
		XMin:  xMin,
		XMax:  xMax,
	}

	for i := th.visibleFrom(history); i < len(th.Records); i++ {
		cat, auto := Categorize(th.Records[i])
		view.Marks = append(view.Marks, Et.OutcomeMark{
			Index:    th.Offset + i,
			Category: cat,
			Auto:     auto,
		})
	}
	return view
}

// RollingSeries averages over every retained record so the window is
// warm at the left edge, then keeps only the history window.
func (th *TrialHistory) RollingSeries(w, history int) Et.RollingSeries {
	choice := Rolling(ChoiceSamples(th.Records), w)
	reward := Rolling(RewardSamples(th.Records), w)
	finished := Rolling(FinishedSamples(th.Records), w)
	left, right := RewardProbabilities(th.Records)

	from := th.visibleFrom(history)
	indices := make([]int, 0, len(th.Records)-from)
	for i := from; i < len(th.Records); i++ {
		indices = append(indices, th.Offset+i)
	}

	return Et.RollingSeries{
		Indices:      indices,
		ChoiceRate:   choice[from:],
		RewardRate:   reward[from:],
		FinishedRate: finished[from:],
		PRewardLeft:  left[from:],
		PRewardRight: right[from:],
	}
}
