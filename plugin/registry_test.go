package plugin_test

import (
	"testing"

	Ep "github.com/maroda/eventide/plugin"
)

func TestExtractorLookup(t *testing.T) {
	t.Run("Returns known extractors", func(t *testing.T) {
		for _, known := range []string{"calc_rate", "json_key"} {
			got, err := Ep.ExtractorLookup(known, "a.b")
			assertError(t, err, nil)
			assertStringContains(t, got.Type(), known)
		}
	})

	t.Run("Passes the key to json_key", func(t *testing.T) {
		got, err := Ep.ExtractorLookup("json_key", "valve.open_ms")
		assertError(t, err, nil)
		jk, ok := got.(*Ep.JSONKeyPlugin)
		if !ok {
			t.Fatalf("got %T, want *JSONKeyPlugin", got)
		}
		assertStringContains(t, jk.ValueKey, "valve.open_ms")
	})

	t.Run("Returns error if extractors don't exist", func(t *testing.T) {
		_, err := Ep.ExtractorLookup("craquemattic", "")
		assertGotError(t, err)
	})
}
