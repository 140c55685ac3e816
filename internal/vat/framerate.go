package vat

import (
	"errors"
	"fmt"
	gomath "math"
	"strconv"
	"strings"
)

// ErrInvalidFrameRate is returned by ParseFrameRate.
var ErrInvalidFrameRate = errors.New("invalid frame rate")

// frameRatePresets are the named playback rates.
var frameRatePresets = map[string]float64{
	"game":  15,
	"film":  24,
	"pal":   25,
	"ntsc":  30,
	"show":  48,
	"palf":  50,
	"ntscf": 60,
}

// ParseFrameRate accepts a preset name, "<n>fps" or a plain number and
// returns frames per second.
func ParseFrameRate(s string) (float64, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if fps, ok := frameRatePresets[name]; ok {
		return fps, nil
	}

	fps, err := strconv.ParseFloat(strings.TrimSuffix(name, "fps"), 64)
	if err != nil || fps <= 0 || gomath.IsInf(fps, 0) || gomath.IsNaN(fps) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFrameRate, s)
	}
	return fps, nil
}
