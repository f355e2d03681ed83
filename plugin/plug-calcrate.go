package plugin

/*
	CalcRate

	Turns a monotonically increasing counter payload (e.g. a lick counter)
	into a per-second rate between consecutive events of the same name.

	~~~ Plugin Reference Implementation ~~~
*/

import (
	"encoding/json"
	"fmt"
)

type CalcRatePlugin struct {
	PrevVal  map[string]float64
	PrevTime map[string]float64
}

// Extract is the main wrapper for the interface.
// Other calculation functions should be called from here.
func (p *CalcRatePlugin) Extract(name string, raw json.RawMessage, timestamp float64) (float64, error) {
	var current float64
	if err := json.Unmarshal(raw, &current); err != nil {
		return 0, fmt.Errorf("calc_rate needs a numeric counter for %s: %w", name, err)
	}

	// If it's not even initialized, fix that too
	if p.PrevVal == nil {
		p.PrevVal = make(map[string]float64)
		p.PrevTime = make(map[string]float64)
	}

	prev, exists := p.PrevVal[name]
	prevTime := p.PrevTime[name]
	p.PrevVal[name] = current
	p.PrevTime[name] = timestamp

	// No rate, first time reading
	if !exists {
		return 0, nil
	}
	return CalcRate(current, prev, timestamp, prevTime), nil
}

// CalcRate is a generic rate calculator that
// receives two sequential readings and their timestamps in seconds
// and returns the rate per second
func CalcRate(curr, prev, currtime, prevtime float64) float64 {
	delta := curr - prev
	timeDelta := currtime - prevtime
	if timeDelta <= 0 {
		return 0
	}

	// Handle counter reset (to 0)
	if delta < 0 {
		delta = curr
	}

	return delta / timeDelta
}

func (p *CalcRatePlugin) Type() string { return "calc_rate" }
