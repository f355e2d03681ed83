package eventide_test

import (
	"os"
	"testing"

	Es "github.com/maroda/eventide/server"
	Et "github.com/maroda/eventide/types"
)

// Temporary OS file to use for testing configurations
func createTempFile(t testing.TB, data string) (*os.File, func()) {
	t.Helper()
	tmpfile, err := os.CreateTemp("", "eventide")
	if err != nil {
		t.Fatalf("could not create temp file %v", err)
	}

	tmpfile.Write([]byte(data))
	removeFile := func() {
		tmpfile.Close()
		os.Remove(tmpfile.Name())
	}
	return tmpfile, removeFile
}

func TestLoadConfigFileName(t *testing.T) {
	configFile, delConfig := createTempFile(t, `{
		  "timeWindowSeconds": 12.5,
		  "maxTrials": 4,
		  "trialBoundaryEventName": "trial_start",
		  "rollingWindowSize": 20,
		  "regionSpecs": [
		    {"eventName": "iti", "color": "#888888", "alpha": 0},
		    {"eventName": "response"}
		  ],
		  "pointSpecs": [
		    {"eventName": "lick_left", "yPosition": 0},
		    {"eventName": "lick_right"}
		  ],
		  "historyLength": 100,
		  "valueExtractors": {
		    "wheel": {"type": "json_key", "key": "position.x"}
		  }
		}`)
	defer delConfig()
	fileName := configFile.Name()

	t.Run("Loads the window settings", func(t *testing.T) {
		cfg, err := Es.LoadConfigFileName(fileName)

		assertError(t, err, nil)
		assertFloat(t, cfg.TimeWindowSeconds, 12.5)
		assertInt(t, cfg.MaxTrials, 4)
		assertInt(t, cfg.RollingWindowSize, 20)
		assertInt(t, cfg.HistoryLength, 100)
		assertString(t, cfg.TrialBoundaryEventName, "trial_start")
	})

	t.Run("Keeps explicit zeros and fills defaults", func(t *testing.T) {
		cfg, err := Es.LoadConfigFileName(fileName)
		assertError(t, err, nil)

		assertInt(t, len(cfg.RegionSpecs), 2)
		assertFloat(t, cfg.RegionSpecs[0].Alpha, 0)
		assertString(t, cfg.RegionSpecs[0].Color, "#888888")
		assertFloat(t, cfg.RegionSpecs[1].Alpha, Es.DefaultRegionAlpha)
		assertString(t, cfg.RegionSpecs[1].Color, Es.DefaultRegionColor)

		assertInt(t, len(cfg.PointSpecs), 2)
		assertFloat(t, cfg.PointSpecs[0].YPosition, 0)
		assertFloat(t, cfg.PointSpecs[1].YPosition, Es.DefaultPointY)
		assertString(t, cfg.PointSpecs[1].Color, Es.DefaultPointColor)
		assertFloat(t, cfg.PointSpecs[1].MarkerSize, Es.DefaultMarkerSize)
		assertString(t, cfg.PointSpecs[1].MarkerShape, Es.DefaultMarkerShape)
		assertInt(t, cfg.TableHistory, Es.DefaultTableHistory)
	})

	t.Run("Loads value extractors", func(t *testing.T) {
		cfg, err := Es.LoadConfigFileName(fileName)
		assertError(t, err, nil)

		ec, ok := cfg.ValueExtractors["wheel"]
		if !ok {
			t.Fatal("wheel extractor missing")
		}
		assertString(t, ec.Type, "json_key")
		assertString(t, ec.Key, "position.x")
	})

	t.Run("Errors with malformed JSON", func(t *testing.T) {
		configFile, delConfig = createTempFile(t, `{"timeWindowSeconds": "thirty"}`)
		defer delConfig()
		fileName = configFile.Name()

		_, err := Es.LoadConfigFileName(fileName)
		assertGotError(t, err)
	})

	t.Run("Errors with an empty file", func(t *testing.T) {
		configFile, delConfig = createTempFile(t, ``)
		defer delConfig()
		fileName = configFile.Name()

		_, err := Es.LoadConfigFileName(fileName)
		assertGotError(t, err)
	})

	t.Run("Errors with missing file", func(t *testing.T) {
		configFile, delConfig = createTempFile(t, ``)
		fileName = configFile.Name()
		delConfig()

		_, err := Es.LoadConfigFileName(fileName)
		assertGotError(t, err)
	})
}

func TestNewConfig(t *testing.T) {
	t.Run("Defaults when nothing is set", func(t *testing.T) {
		cfg := Es.NewConfig(Es.ConfigFile{})

		assertFloat(t, cfg.TimeWindowSeconds, Es.DefaultTimeWindowSeconds)
		assertInt(t, cfg.RollingWindowSize, Es.DefaultRollingWindow)
		assertInt(t, cfg.MaxTrials, 0)
		assertInt(t, cfg.TableHistory, Es.DefaultTableHistory)
		if cfg.RegionSpecs == nil || cfg.PointSpecs == nil {
			t.Error("spec lists should be empty, not nil")
		}
	})

	t.Run("Clamps out of range values", func(t *testing.T) {
		window := 0.25
		alpha := 3.0
		cfg := Es.NewConfig(Es.ConfigFile{
			TimeWindowSeconds: &window,
			MaxTrials:         -5,
			RollingWindowSize: -1,
			RegionSpecs:       []Es.RegionSpecFile{{EventName: "A", Alpha: &alpha}},
		})

		assertFloat(t, cfg.TimeWindowSeconds, Es.MinTimeWindowSeconds)
		assertInt(t, cfg.MaxTrials, 0)
		assertInt(t, cfg.RollingWindowSize, 1)
		assertFloat(t, cfg.RegionSpecs[0].Alpha, 1)
	})

	t.Run("Clamp leaves the caller's specs alone", func(t *testing.T) {
		specs := []Et.RegionSpec{{EventName: "A", Alpha: 3}}
		cfg := Es.Config{TimeWindowSeconds: 6, RollingWindowSize: 1, RegionSpecs: specs}

		clamped := cfg.Clamp()
		assertFloat(t, clamped.RegionSpecs[0].Alpha, 1)
		assertFloat(t, specs[0].Alpha, 3)
		assertFloat(t, cfg.RegionSpecs[0].Alpha, 3)
	})

	t.Run("Policy follows the config", func(t *testing.T) {
		window := 6.0
		cfg := Es.NewConfig(Es.ConfigFile{TimeWindowSeconds: &window, MaxTrials: 2})
		p := cfg.Policy()

		assertFloat(t, p.TimeWindowSeconds, 6)
		assertInt(t, p.MaxTrials, 2)
	})
}

func TestLoadRuntimeConfig(t *testing.T) {
	t.Run("Uses defaults", func(t *testing.T) {
		rc, err := Es.LoadRuntimeConfig()
		assertError(t, err, nil)

		assertString(t, rc.Addr, ":8090")
		assertString(t, rc.ConfigFile, "eventide.json")
		assertInt(t, rc.BadgerBatch, 100)
		if rc.Tick.Milliseconds() != 100 {
			t.Errorf("got tick %v, want 100ms", rc.Tick)
		}
	})

	t.Run("Reads the environment", func(t *testing.T) {
		t.Setenv("EVENTIDE_ADDR", ":9999")
		t.Setenv("EVENTIDE_TICK", "250ms")
		t.Setenv("EVENTIDE_LOG_LEVEL", "debug")

		rc, err := Es.LoadRuntimeConfig()
		assertError(t, err, nil)

		assertString(t, rc.Addr, ":9999")
		if rc.Tick.Milliseconds() != 250 {
			t.Errorf("got tick %v, want 250ms", rc.Tick)
		}
		if rc.SlogLevel().String() != "DEBUG" {
			t.Errorf("got level %s, want DEBUG", rc.SlogLevel())
		}
	})

	t.Run("Errors on a bad duration", func(t *testing.T) {
		t.Setenv("EVENTIDE_POLL", "often")

		_, err := Es.LoadRuntimeConfig()
		assertGotError(t, err)
	})

	t.Run("Unknown log level falls back to info", func(t *testing.T) {
		rc := Es.RuntimeConfig{LogLevel: "chatty"}
		if rc.SlogLevel().String() != "INFO" {
			t.Errorf("got level %s, want INFO", rc.SlogLevel())
		}
	})
}
