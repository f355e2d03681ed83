package plugin

/*
	JSONKey

	This plugin allows for a JSON object to be used as the event value.

	Returns the float64 held at a dotted key path inside the payload,
	for example "lick.count" inside {"lick":{"count":3}}
*/

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

type JSONKeyPlugin struct {
	ValueKey string
}

// NewJSONTransformer returns a struct for what to search in the JSON
func NewJSONTransformer(vk string) *JSONKeyPlugin {
	return &JSONKeyPlugin{ValueKey: vk}
}

// Extract pulls the JSONKeyPlugin key out of the JSON object
// delivered as the event's raw value
func (tj *JSONKeyPlugin) Extract(name string, raw json.RawMessage, timestamp float64) (float64, error) {
	var data interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		slog.Error("Error unmarshalling json",
			slog.String("event", name),
			slog.String("search", tj.ValueKey),
			slog.Any("error", err))
		return 0, fmt.Errorf("error unmarshalling json from %s: %w", name, err)
	}

	value, err := ExtractValue(data, tj.ValueKey)
	if err != nil {
		return 0, fmt.Errorf("error extracting json value from %s: %w", name, err)
	}

	return value, nil
}

func ExtractValue(data interface{}, path string) (float64, error) {
	keys := strings.Split(path, ".")
	current := data

	for _, key := range keys {
		switch v := current.(type) {
		case map[string]interface{}:
			var ok bool
			current, ok = v[key]
			if !ok {
				return 0, fmt.Errorf("key %s not found", key)
			}
		case []interface{}:
			return 0, fmt.Errorf("array indexing not implemented yet")
		default:
			return 0, fmt.Errorf("cannot traverse into type %T at key %s", v, key)
		}
	}

	// Convert final value to float64
	switch v := current.(type) {
	case float64:
		return v, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("error converting json.Number to float64: %w", err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("value not numeric, cannot use %T", v)
	}
}

func (tj *JSONKeyPlugin) Type() string { return "json_key" }
