package logmsg

import (
	"context"
	"fmt"
	"log"
	"log/slog"
)

const greeting = "Hello"

func examples(ctx context.Context, apiKey, user string) {
	log.Println("starting server")

	log.Printf("Starting server on %d", 8080) // want "log message should start with a lowercase letter"

	slog.Info("Connected") // want "log message should start with a lowercase letter"

	slog.InfoContext(ctx, "Request done") // want "log message should start with a lowercase letter"

	slog.Info(greeting + " world") // want "log message should start with a lowercase letter"

	slog.Info("token validated")

	slog.Info("user password: " + user) // want `sensitive data \(keyword "password" in message text\)`

	slog.Info("request sent", "key", apiKey) // want `keyword "api_key" in argument apiKey`

	slog.Info("user logged in", "user", user)

	log.Printf("Token: %s", apiKey) // want "lowercase letter" "sensitive data"

	fmt.Println("Not a logger")
}
