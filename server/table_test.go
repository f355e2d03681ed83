package eventide_test

import (
	"testing"

	Es "github.com/maroda/eventide/server"
	Et "github.com/maroda/eventide/types"
)

func TestTableColumns(t *testing.T) {
	cols := Es.TableColumns(3)
	assertInt(t, len(cols), 4)
	assertString(t, cols[0], "Property")
	assertString(t, cols[1], "Trial")
	assertString(t, cols[3], "Trial-2")

	assertInt(t, len(Es.TableColumns(0)), 1)
}

func TestBuildTrialTable(t *testing.T) {
	older := choiceTrial(nil, false)
	newer := choiceTrial(bptr(true), true)
	newer.Trial.RewardDelayDuration = 0.25

	table := Es.BuildTrialTable([]Et.TrialOutcome{older, newer}, 3, Es.TrialFields)

	t.Run("One row per field", func(t *testing.T) {
		assertInt(t, len(table.Rows), len(Es.TrialFields))
		for _, row := range table.Rows {
			assertInt(t, len(row), 4)
		}
		assertString(t, table.Rows[0][0], "IsRightChoice")
	})

	t.Run("Newest first, nil as null, missing as dash", func(t *testing.T) {
		choice := table.Rows[0]
		assertString(t, choice[1], "true")
		assertString(t, choice[2], "null")
		assertString(t, choice[3], "-")
	})

	t.Run("Floats keep their precision", func(t *testing.T) {
		for _, row := range table.Rows {
			if row[0] == "RewardDelayDuration" {
				assertString(t, row[1], "0.25")
				return
			}
		}
		t.Error("RewardDelayDuration row missing")
	})

	t.Run("Custom descriptors", func(t *testing.T) {
		fields := []Es.TrialField{
			{Name: "Rewarded", Value: func(o Et.TrialOutcome) string {
				if o.IsRewarded {
					return "yes"
				}
				return "no"
			}},
		}
		got := Es.BuildTrialTable([]Et.TrialOutcome{older, newer}, 1, fields)
		assertInt(t, len(got.Rows), 1)
		assertString(t, got.Rows[0][1], "yes")
	})
}
