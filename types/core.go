package types

/*

	These are the "immutable" core types of Eventide,
	provided for cross-package use (e.g. Plugins) and testing.

	There are no functions defined here.
	Struct constructors are housed in their own packages.
	Methods taking these types should create local aliases,
	for example: type Events []Et.Event

*/

import "encoding/json"

// Event is a single named occurrence in time.
// Once stored it is never modified, only evicted.
type Event struct {
	Name      string   `json:"name"`            // event name, the store key
	Timestamp float64  `json:"timestamp"`       // seconds since the engine epoch
	Value     *float64 `json:"value,omitempty"` // optional numeric value
}

// EventPayload is a named event as delivered by the upstream producer.
// Timestamp is optional, the delivery wall clock is used when it is nil.
type EventPayload struct {
	Name      string          `json:"name"`
	Timestamp *float64        `json:"timestamp,omitempty"`
	Value     json.RawMessage `json:"value,omitempty"`
}

// Delivery is one element of an ingestion batch.
// Exactly one of Event or Trial is expected to be set.
// WallClock is nil until the engine stamps the delivery.
type Delivery struct {
	WallClock *float64      `json:"wallClock,omitempty"`
	Event     *EventPayload `json:"event,omitempty"`
	Trial     *TrialOutcome `json:"trial,omitempty"`
}

// RegionSpec declares that occurrences of EventName start a shaded region
// lasting until the next occurrence of any region-tagged event.
type RegionSpec struct {
	EventName string  `json:"eventName"`
	Color     string  `json:"color"`
	Alpha     float64 `json:"alpha"`
}

// PointSpec declares a point overlay for an event name.
type PointSpec struct {
	EventName   string  `json:"eventName"`
	Color       string  `json:"color"`
	YPosition   float64 `json:"yPosition"`
	MarkerSize  float64 `json:"markerSize"`
	MarkerShape string  `json:"markerShape"`
}

// Segment is a derived, per-tick interval with one display style.
// Trial is the row the segment was split into, 0 without trial mode.
type Segment struct {
	StartTime float64    `json:"startTime"`
	EndTime   float64    `json:"endTime"`
	Trial     int        `json:"trial"`
	Style     RegionSpec `json:"style"`
}

// WindowState is the visible slice of time and trial rows for one tick.
type WindowState struct {
	VisibleTimeMin    float64 `json:"visibleTimeMin"`
	VisibleTimeMax    float64 `json:"visibleTimeMax"`
	VisibleTrialFirst int     `json:"visibleTrialFirst"`
	VisibleTrialCount int     `json:"visibleTrialCount"`
}

// Point is a projected scatter coordinate.
// X is relative time (0 = now), Y is the row-offset position.
type Point struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Trial int     `json:"trial"`
}

// PointSeries holds every projected point for one PointSpec.
type PointSeries struct {
	Spec   PointSpec `json:"spec"`
	Points []Point   `json:"points"`
}

// TrialSpec is the task parameter set a trial was run with.
type TrialSpec struct {
	PRewardLeft                float64 `json:"p_reward_left"`
	PRewardRight               float64 `json:"p_reward_right"`
	RewardConsumptionDuration  float64 `json:"reward_consumption_duration"`
	RewardDelayDuration        float64 `json:"reward_delay_duration"`
	ResponseDeadlineDuration   float64 `json:"response_deadline_duration"`
	EnableFastRetract          bool    `json:"enable_fast_retract"`
	QuiescencePeriodDuration   float64 `json:"quiescence_period_duration"`
	InterTrialIntervalDuration float64 `json:"inter_trial_interval_duration"`
	IsAutoResponseRight        *bool   `json:"is_auto_response_right"`
	LickspoutOffset            float64 `json:"lickspout_offset"`
}

// TrialOutcome is the structured record emitted when a trial ends.
// IsRightChoice is nil when the subject made no choice.
type TrialOutcome struct {
	Trial         TrialSpec `json:"trial"`
	IsRightChoice *bool     `json:"is_right_choice"`
	IsRewarded    bool      `json:"is_rewarded"`
}

// OutcomeCategory is the bucket a trial outcome is drawn in
type OutcomeCategory int

const (
	NoChoice        OutcomeCategory = iota // no response in the deadline
	RightRewarded                          // right, rewarded
	RightUnrewarded                        // right, not rewarded
	LeftRewarded                           // left, rewarded
	LeftUnrewarded                         // left, not rewarded
)

// OutcomeMark places one trial outcome on the trial axis.
type OutcomeMark struct {
	Index    int             `json:"index"`    // absolute trial index
	Category OutcomeCategory `json:"category"` // drawing bucket
	Auto     bool            `json:"auto"`     // auto-response trial
}

// RollingSeries is the RollingAggregator output for the retained trials.
// Every slice has the same length as Indices.
type RollingSeries struct {
	Indices      []int     `json:"indices"`
	ChoiceRate   []float64 `json:"choiceRate"`
	RewardRate   []float64 `json:"rewardRate"`
	FinishedRate []float64 `json:"finishedRate"`
	PRewardLeft  []float64 `json:"pRewardLeft"`
	PRewardRight []float64 `json:"pRewardRight"`
}

// OutcomeView is everything needed to draw the trial outcome plot
type OutcomeView struct {
	Marks []OutcomeMark `json:"marks"`
	XMin  float64       `json:"xMin"`
	XMax  float64       `json:"xMax"`
}

// TrialTable is the recent-trial property table, newest column first.
type TrialTable struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"` // Rows[i][0] is the property name
}

// Frame is every drawable the engine produces for a single tick.
type Frame struct {
	Now      float64       `json:"now"`
	Window   WindowState   `json:"window"`
	Segments []Segment     `json:"segments"`
	Points   []PointSeries `json:"points"`
	Rolling  RollingSeries `json:"rolling"`
	Outcomes OutcomeView   `json:"outcomes"`
	Table    TrialTable    `json:"table"`
}
