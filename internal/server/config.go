package server

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/iwvelando/boom-bust/internal/config"
	"github.com/iwvelando/boom-bust/pkg/constants"
)

// Limits bounds what a single client can push at the campaign.
type Limits struct {
	MaxBodyBytes      int64
	CommandsPerSecond float64
	Burst             int
}

// DefaultLimits returns the limits used when nothing is configured.
func DefaultLimits() Limits {
	return Limits{
		MaxBodyBytes:      constants.DefaultMaxBodySizeBytes,
		CommandsPerSecond: constants.DefaultCommandsPerSecond,
		Burst:             constants.DefaultCommandBurst,
	}
}

// LimitsFromConfig derives request limits from the server section.
func LimitsFromConfig(cfg config.ServerConfig) (Limits, error) {
	limits := Limits{
		CommandsPerSecond: cfg.CommandsPerSecond,
		Burst:             cfg.Burst,
	}
	size, err := ParseSize(cfg.MaxBodySize)
	if err != nil {
		return Limits{}, err
	}
	limits.MaxBodyBytes = size
	limits.normalize()
	return limits, nil
}

func (l *Limits) normalize() {
	d := DefaultLimits()
	if l.MaxBodyBytes <= 0 {
		l.MaxBodyBytes = d.MaxBodyBytes
	}
	if l.CommandsPerSecond <= 0 {
		l.CommandsPerSecond = d.CommandsPerSecond
	}
	if l.Burst <= 0 {
		l.Burst = d.Burst
	}
}

// ParseSize converts a human-friendly byte string (e.g., "256K", "10M") into bytes.
func ParseSize(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return constants.DefaultMaxBodySizeBytes, nil
	}

	upper := strings.ToUpper(trimmed)
	idx := len(upper)
	for idx > 0 && !unicode.IsDigit(rune(upper[idx-1])) {
		idx--
	}
	if idx == 0 {
		return 0, fmt.Errorf("invalid size: %s", value)
	}

	n, err := strconv.ParseInt(strings.TrimSpace(upper[:idx]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value %q: %w", value, err)
	}

	var multiplier int64
	switch strings.TrimSpace(upper[idx:]) {
	case "", "B":
		multiplier = 1
	case "K", "KB":
		multiplier = 1024
	case "M", "MB":
		multiplier = 1024 * 1024
	default:
		return 0, fmt.Errorf("unsupported size unit %q", upper[idx:])
	}

	result := n * multiplier
	if result < 0 || (n != 0 && result/multiplier != n) {
		return 0, fmt.Errorf("size overflow for value %s", value)
	}
	return result, nil
}
