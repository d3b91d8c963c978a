package serviceutil

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

func Fatal(message string, err error) {
	slog.Error(message, "err", err.Error())
	os.Exit(1)
}

// EnvOrDefault returns the value of the environment variable key, or
// fallback when it is unset or blank.
func EnvOrDefault(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// RedactSecret keeps enough of a secret to tell values apart in logs.
func RedactSecret(secret string) string {
	if len(secret) <= 2 {
		return strings.Repeat("*", len(secret))
	}
	return fmt.Sprintf("%c%s%c", secret[0], strings.Repeat("*", len(secret)-2), secret[len(secret)-1])
}
