package utils

import "os"

// EnvOrDefault reads envName and falls back to def when it is unset or empty.
func EnvOrDefault(envName string, def string) string {
	if v := os.Getenv(envName); v != "" {
		return v
	}

	return def
}
