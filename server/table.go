package eventide

import (
	"strconv"

	Et "github.com/maroda/eventide/types"
)

// DefaultTableHistory is the number of trial columns shown by default
const DefaultTableHistory = 3

// TrialField describes one row of the trial table.
// The list is fixed at configuration time, no reflection is involved.
type TrialField struct {
	Name  string
	Value func(o Et.TrialOutcome) string
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

func formatOptBool(b *bool) string {
	if b == nil {
		return "null"
	}
	return strconv.FormatBool(*b)
}

// TrialFields is the default descriptor list, in display order
var TrialFields = []TrialField{
	{"IsRightChoice", func(o Et.TrialOutcome) string { return formatOptBool(o.IsRightChoice) }},
	{"IsRewarded", func(o Et.TrialOutcome) string { return strconv.FormatBool(o.IsRewarded) }},
	{"PRewardLeft", func(o Et.TrialOutcome) string { return formatFloat(o.Trial.PRewardLeft) }},
	{"PRewardRight", func(o Et.TrialOutcome) string { return formatFloat(o.Trial.PRewardRight) }},
	{"RewardConsumptionDuration", func(o Et.TrialOutcome) string { return formatFloat(o.Trial.RewardConsumptionDuration) }},
	{"RewardDelayDuration", func(o Et.TrialOutcome) string { return formatFloat(o.Trial.RewardDelayDuration) }},
	{"ResponseDeadlineDuration", func(o Et.TrialOutcome) string { return formatFloat(o.Trial.ResponseDeadlineDuration) }},
	{"EnableFastRetract", func(o Et.TrialOutcome) string { return strconv.FormatBool(o.Trial.EnableFastRetract) }},
	{"QuiescencePeriodDuration", func(o Et.TrialOutcome) string { return formatFloat(o.Trial.QuiescencePeriodDuration) }},
	{"InterTrialIntervalDuration", func(o Et.TrialOutcome) string { return formatFloat(o.Trial.InterTrialIntervalDuration) }},
	{"IsAutoResponseRight", func(o Et.TrialOutcome) string { return formatOptBool(o.Trial.IsAutoResponseRight) }},
	{"LickspoutOffset", func(o Et.TrialOutcome) string { return formatFloat(o.Trial.LickspoutOffset) }},
}

// TableColumns is the header row: Property, Trial, Trial-1, ...
func TableColumns(history int) []string {
	columns := []string{"Property"}
	for i := 0; i < history; i++ {
		if i == 0 {
			columns = append(columns, "Trial")
			continue
		}
		columns = append(columns, "Trial-"+strconv.Itoa(i))
	}
	return columns
}

// BuildTrialTable lays out the newest history records, newest first.
// Columns with no record yet are filled with "-".
func BuildTrialTable(records []Et.TrialOutcome, history int, fields []TrialField) Et.TrialTable {
	if history < 0 {
		history = 0
	}
	table := Et.TrialTable{
		Columns: TableColumns(history),
		Rows:    make([][]string, 0, len(fields)),
	}

	for _, f := range fields {
		row := make([]string, 0, history+1)
		row = append(row, f.Name)
		for i := 0; i < history; i++ {
			idx := len(records) - 1 - i
			if idx < 0 {
				row = append(row, "-")
				continue
			}
			row = append(row, f.Value(records[idx]))
		}
		table.Rows = append(table.Rows, row)
	}

	return table
}
