package fix

import "log/slog"

func run() {
	slog.Info("Starting worker") // want "log message should start with a lowercase letter"

	slog.Warn(`Retrying request`) // want "log message should start with a lowercase letter"

	slog.Error("Élan lost") // want "log message should start with a lowercase letter"
}
