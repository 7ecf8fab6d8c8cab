// Package env reads raw environment variables for the few knobs that must
// resolve before config parsing, such as the log output format.
package env

import "os"

// Get returns the variable's value, or fallback when unset or empty.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
