package utils

import (
	"log/slog"
	"os"
	"strconv"
)

// EnvOrDefault returns the environment variable key, or def when it is unset
// or empty
func EnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// EnvIntOrDefault is EnvOrDefault for integer settings. Unparsable values are
// logged and ignored.
func EnvIntOrDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("Ignoring non-numeric environment variable", "key", key, "value", v)
		return def
	}
	return n
}

func ExitOnError(msg string, err error) {
	slog.Error(msg, "err", err)
	os.Exit(1)
}
