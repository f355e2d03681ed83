package eventide

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	Et "github.com/maroda/eventide/types"
)

const (
	MinTimeWindowSeconds     = 1.0
	DefaultTimeWindowSeconds = 30.0
	DefaultRegionColor       = "#6495ED" // CornflowerBlue
	DefaultRegionAlpha       = 0.3
	DefaultPointColor        = "#FF0000"
	DefaultPointY            = 0.5
	DefaultMarkerSize        = 6.0
	DefaultMarkerShape       = "circle"
)

// ConfigFile is the on-disk JSON configuration.
// Optional numbers are pointers so an explicit zero is kept.
type ConfigFile struct {
	TimeWindowSeconds      *float64                   `json:"timeWindowSeconds"`
	MaxTrials              int                        `json:"maxTrials"`
	TrialBoundaryEventName string                     `json:"trialBoundaryEventName"`
	RollingWindowSize      int                        `json:"rollingWindowSize"`
	RegionSpecs            []RegionSpecFile           `json:"regionSpecs"`
	PointSpecs             []PointSpecFile            `json:"pointSpecs"`
	HistoryLength          int                        `json:"historyLength"`
	TableHistory           *int                       `json:"tableHistory"`
	ValueExtractors        map[string]ExtractorConfig `json:"valueExtractors"`
}

type RegionSpecFile struct {
	EventName string   `json:"eventName"`
	Color     string   `json:"color"`
	Alpha     *float64 `json:"alpha"`
}

type PointSpecFile struct {
	EventName   string   `json:"eventName"`
	Color       string   `json:"color"`
	YPosition   *float64 `json:"yPosition"`
	MarkerSize  float64  `json:"markerSize"`
	MarkerShape string   `json:"markerShape"`
}

// ExtractorConfig names a ValueExtractor plugin and its key
type ExtractorConfig struct {
	Type string `json:"type"`
	Key  string `json:"key"`
}

// Config is the normalized engine configuration
type Config struct {
	TimeWindowSeconds      float64                    `json:"timeWindowSeconds"`
	MaxTrials              int                        `json:"maxTrials"`
	TrialBoundaryEventName string                     `json:"trialBoundaryEventName"`
	RollingWindowSize      int                        `json:"rollingWindowSize"`
	RegionSpecs            []Et.RegionSpec            `json:"regionSpecs"`
	PointSpecs             []Et.PointSpec             `json:"pointSpecs"`
	HistoryLength          int                        `json:"historyLength"`
	TableHistory           int                        `json:"tableHistory"`
	ValueExtractors        map[string]ExtractorConfig `json:"valueExtractors"`
}

// DefaultConfig is used when no config file is given
func DefaultConfig() Config {
	return Config{
		TimeWindowSeconds: DefaultTimeWindowSeconds,
		RollingWindowSize: DefaultRollingWindow,
		RegionSpecs:       make([]Et.RegionSpec, 0),
		PointSpecs:        make([]Et.PointSpec, 0),
		TableHistory:      DefaultTableHistory,
		ValueExtractors:   make(map[string]ExtractorConfig),
	}
}

// NewConfig fills defaults and clamps out of range values.
// Nothing is rejected, clamping is logged instead.
func NewConfig(cf ConfigFile) Config {
	c := DefaultConfig()

	if cf.TimeWindowSeconds != nil {
		c.TimeWindowSeconds = *cf.TimeWindowSeconds
	}
	c.MaxTrials = cf.MaxTrials
	c.TrialBoundaryEventName = cf.TrialBoundaryEventName
	if cf.RollingWindowSize != 0 {
		c.RollingWindowSize = cf.RollingWindowSize
	}
	c.HistoryLength = cf.HistoryLength
	if cf.TableHistory != nil {
		c.TableHistory = *cf.TableHistory
	}
	for k, v := range cf.ValueExtractors {
		c.ValueExtractors[k] = v
	}

	for _, r := range cf.RegionSpecs {
		spec := Et.RegionSpec{
			EventName: r.EventName,
			Color:     r.Color,
			Alpha:     DefaultRegionAlpha,
		}
		if spec.Color == "" {
			spec.Color = DefaultRegionColor
		}
		if r.Alpha != nil {
			spec.Alpha = *r.Alpha
		}
		c.RegionSpecs = append(c.RegionSpecs, spec)
	}

	for _, p := range cf.PointSpecs {
		spec := Et.PointSpec{
			EventName:   p.EventName,
			Color:       p.Color,
			YPosition:   DefaultPointY,
			MarkerSize:  p.MarkerSize,
			MarkerShape: p.MarkerShape,
		}
		if spec.Color == "" {
			spec.Color = DefaultPointColor
		}
		if p.YPosition != nil {
			spec.YPosition = *p.YPosition
		}
		if spec.MarkerSize <= 0 {
			spec.MarkerSize = DefaultMarkerSize
		}
		if spec.MarkerShape == "" {
			spec.MarkerShape = DefaultMarkerShape
		}
		c.PointSpecs = append(c.PointSpecs, spec)
	}

	return c.Clamp()
}

// Clamp pulls every option back into its valid range
func (c Config) Clamp() Config {
	if c.TimeWindowSeconds < MinTimeWindowSeconds {
		slog.Warn("timeWindowSeconds below minimum, clamping",
			slog.Float64("value", c.TimeWindowSeconds),
			slog.Float64("min", MinTimeWindowSeconds))
		c.TimeWindowSeconds = MinTimeWindowSeconds
	}
	if c.MaxTrials < 0 {
		slog.Warn("maxTrials is negative, using unlimited", slog.Int("value", c.MaxTrials))
		c.MaxTrials = 0
	}
	if c.RollingWindowSize < 1 {
		slog.Warn("rollingWindowSize below 1, clamping", slog.Int("value", c.RollingWindowSize))
		c.RollingWindowSize = 1
	}
	if c.HistoryLength < 0 {
		c.HistoryLength = 0
	}
	if c.TableHistory < 0 {
		c.TableHistory = 0
	}
	c.RegionSpecs = slices.Clone(c.RegionSpecs)
	for i := range c.RegionSpecs {
		c.RegionSpecs[i].Alpha = min(max(c.RegionSpecs[i].Alpha, 0), 1)
	}
	return c
}

// Policy is the WindowPolicy for this configuration
func (c Config) Policy() WindowPolicy {
	return WindowPolicy{
		TimeWindowSeconds: c.TimeWindowSeconds,
		MaxTrials:         c.MaxTrials,
	}
}

// LoadConfigFileName pulls a given filename config off local disk
// Validation is performed on the file before opening
func LoadConfigFileName(filename string) (Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	// validation
	err = validateLoad(file)
	if err != nil {
		slog.Error("Validation failed", slog.Any("Error", err))
		return Config{}, err
	}

	cf, err := LoadConfig(file)
	if err != nil {
		return Config{}, err
	}
	return NewConfig(cf), nil
}

func validateLoad(file *os.File) error {
	// validate file
	info, err := file.Stat()
	if err != nil {
		slog.Error("could not stat file")
		return err
	}

	// validate size
	if info.Size() == 0 {
		slog.Error("file is empty")
		return errors.New("file is empty")
	}

	return nil
}

// LoadConfig decodes the JSON config from an open file
func LoadConfig(file *os.File) (ConfigFile, error) {
	var config ConfigFile
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&config); err != nil {
		slog.Error("could not decode file")
		return ConfigFile{}, fmt.Errorf("decode config %s: %w", file.Name(), err)
	}

	return config, nil
}
