// Package config provides shared configuration utilities.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tomz197/fabric/internal/cloth"
)

// GetEnv returns the value of the environment variable named by the key,
// or fallback if the variable is not set.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetEnvInt parses the variable as an integer, returning fallback if unset.
func GetEnvInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// GetEnvFloat parses the variable as a float32, returning fallback if unset.
func GetEnvFloat(key string, fallback float32) (float32, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 32)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return float32(f), nil
}

// GetEnvBool parses the variable with strconv.ParseBool, returning fallback
// if unset.
func GetEnvBool(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

// ClothFromEnv overlays FABRIC_* environment variables on base and
// validates the result.
func ClothFromEnv(base cloth.Config) (cloth.Config, error) {
	cfg := base
	var err error

	ints := []struct {
		key string
		dst *int
	}{
		{"FABRIC_WIDTH", &cfg.Width},
		{"FABRIC_HEIGHT", &cfg.Height},
		{"FABRIC_ITERATIONS", &cfg.Iterations},
		{"FABRIC_WORKERS", &cfg.Workers},
	}
	for _, v := range ints {
		if *v.dst, err = GetEnvInt(v.key, *v.dst); err != nil {
			return base, err
		}
	}

	floats := []struct {
		key string
		dst *float32
	}{
		{"FABRIC_SPACING", &cfg.Spacing},
		{"FABRIC_STIFFNESS", &cfg.Stiffness},
		{"FABRIC_MASS", &cfg.Mass},
		{"FABRIC_DAMPING", &cfg.Damping},
		{"FABRIC_GRAVITY", &cfg.GravityAccel},
		{"FABRIC_WIND_SPEED", &cfg.WindSpeed},
		{"FABRIC_OSCILLATION", &cfg.OscillationSpeed},
	}
	for _, v := range floats {
		if *v.dst, err = GetEnvFloat(v.key, *v.dst); err != nil {
			return base, err
		}
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"FABRIC_GRAVITY_ENABLED", &cfg.Gravity},
		{"FABRIC_WIND", &cfg.Wind},
		{"FABRIC_SPHERE", &cfg.Sphere},
		{"FABRIC_CORNER_PINS", &cfg.CornerPins},
		{"FABRIC_EDGE_PINS", &cfg.EdgePins},
		{"FABRIC_PAUSED", &cfg.Paused},
		{"FABRIC_LEGACY_WIND_PHASE", &cfg.LegacyWindPhase},
	}
	for _, v := range bools {
		if *v.dst, err = GetEnvBool(v.key, *v.dst); err != nil {
			return base, err
		}
	}

	if mode, ok := os.LookupEnv("FABRIC_MODE"); ok {
		if cfg.Mode, err = cloth.ParseMode(mode); err != nil {
			return base, fmt.Errorf("FABRIC_MODE: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return base, err
	}
	return cfg, nil
}
