// Package config loads process configuration from environment variables.
// Ported from a sibling pipeline's generic env-var loader; used by every
// cmd/ binary instead of hand-rolled flag parsing, since the core never
// touches configuration at all (see internal/protocol, internal/decoder,
// internal/orderbook, etc).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// GetEnv looks up key in the environment and parses it as T, falling back
// to defaultValue if the variable is unset. Supported T: string, int,
// uint16, uint32, bool, and []string (comma-separated).
func GetEnv[T any](key string, defaultValue T) (T, error) {
	v, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}

	var err error
	var parsed any

	switch any(defaultValue).(type) {
	case string:
		return any(v).(T), nil
	case int:
		parsed, err = strconv.Atoi(v)
	case uint16:
		var p uint64
		p, err = strconv.ParseUint(v, 10, 16)
		parsed = uint16(p)
	case uint32:
		var p uint64
		p, err = strconv.ParseUint(v, 10, 32)
		parsed = uint32(p)
	case bool:
		parsed, err = strconv.ParseBool(v)
	case []string:
		parsed = strings.Split(v, ",")
	default:
		return defaultValue, fmt.Errorf("config: unsupported type for env var %s: %T", key, defaultValue)
	}

	if err != nil {
		return defaultValue, fmt.Errorf("config: failed to parse env %s as %T: %w", key, defaultValue, err)
	}
	return parsed.(T), nil
}
