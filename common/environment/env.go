// Package environment provides small helpers for reading configuration
// overrides from environment variables. Lookup helpers return the default
// for unset or unparsable values; Bool is strict because a mistyped toggle
// should fail startup rather than silently flip behavior.
package environment

import (
	"os"
	"strconv"
)

// StringOr returns the named variable, or defaultValue when it is unset or
// empty.
func StringOr(name, defaultValue string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return defaultValue
}

// IntOr parses the named variable as a decimal integer, falling back to
// defaultValue when unset, empty, or unparsable.
func IntOr(name string, defaultValue int) int {
	v := os.Getenv(name)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

// Bool parses the named variable with strconv.ParseBool semantics. set is
// false when the variable is unset or empty; a set but unparsable value is
// an error.
func Bool(name string) (value bool, set bool, err error) {
	v := os.Getenv(name)
	if v == "" {
		return false, false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, true, err
	}
	return b, true, nil
}
