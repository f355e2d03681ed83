package eventide

import (
	"log/slog"

	Ep "github.com/maroda/eventide/plugin"
)

// InitBadgerOutput opens the badger archive at path and attaches it to the engine
func InitBadgerOutput(view *View, path string, batchSize int) error {
	output, err := Ep.NewBadgerOutput(path, batchSize)
	if err != nil {
		slog.Error("Failed to create adapter",
			slog.String("output", path),
			slog.Any("error", err))
		return err
	}
	view.Engine.SetOutput(output)
	slog.Info("Badger Adapter Enabled", slog.String("output", path))
	return nil
}
