package eventide

// ViewportMapper maps absolute timestamps to plot coordinates.
// Now is read once per tick and shared by everything in that tick.
type ViewportMapper struct {
	Now    float64
	Trials *TrialBoundaryTracker
}

// ToRelativeTime puts now at 0, the window extends into negative time
func (vm ViewportMapper) ToRelativeTime(t float64) float64 {
	return t - vm.Now
}

// TrialRow is the trial row for t, always 0 outside trial mode
func (vm ViewportMapper) TrialRow(t float64) int {
	if !vm.Trials.Enabled() {
		return 0
	}
	return vm.Trials.TrialIndexOf(t)
}
