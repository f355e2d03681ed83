package plugin_test

import (
	"encoding/json"
	"testing"

	Ep "github.com/maroda/eventide/plugin"
)

func TestNewJSONTransformer(t *testing.T) {
	t.Run("Returns JSON transformer", func(t *testing.T) {
		key := "lick.count"
		newJSON := Ep.NewJSONTransformer(key)
		assertStringContains(t, newJSON.ValueKey, key)
	})
}

func TestJSONKeyPlugin(t *testing.T) {
	t.Run("Type returns the correct value", func(t *testing.T) {
		plugin := Ep.JSONKeyPlugin{}
		assertStringContains(t, plugin.Type(), "json_key")
	})

	tests := []struct {
		name    string
		key     string
		payload string
		want    float64
		wantErr bool
	}{
		{"nested number", "valve.open_ms", `{"valve":{"open_ms":35.5}}`, 35.5, false},
		{"top level number", "speed", `{"speed":12}`, 12, false},
		{"boolean is 0 or 1", "rewarded", `{"rewarded":true}`, 1, false},
		{"missing key", "valve.close_ms", `{"valve":{"open_ms":35.5}}`, 0, true},
		{"string value", "side", `{"side":"left"}`, 0, true},
		{"array value", "licks.0", `{"licks":[1,2]}`, 0, true},
		{"not json", "speed", `speed=12`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plugin := Ep.JSONKeyPlugin{ValueKey: tt.key}
			got, err := plugin.Extract("Encoder", json.RawMessage(tt.payload), 1)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Extract() error = %v, wantErr %v", err, tt.wantErr)
			}
			assertFloat(t, got, tt.want)
		})
	}
}
