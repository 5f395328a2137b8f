package vendorapi

import (
	"errors"

	"climate_bridge/internal/models"
)

// NoChange skips a field entirely: it is accepted by validation but maps to
// no vendor code, so it is neither sent nor verified during polling.
const NoChange = "no_change"

// Vendor numeric codes for the operating mode and fan speed enumerations.
var (
	modeCodes = map[string]int{
		"off":      1,
		"cool":     2,
		"heat":     3,
		"dry":      4,
		"fan_only": 5,
		"auto":     6,
	}
	fanCodes = map[string]int{
		"auto": 0,
		"low":  1,
		"mid":  2,
		"high": 3,
	}
)

var (
	ErrInvalidMode = errors.New("invalid mode: must be one of off, cool, heat, dry, fan_only, auto, no_change")
	ErrInvalidFan  = errors.New("invalid fan: must be one of low, mid, high, auto, no_change")
)

// ModeCode returns the vendor code for a mode string. The second return is
// false for "no_change" and for anything not in the enumeration.
func ModeCode(mode string) (int, bool) {
	code, ok := modeCodes[mode]
	return code, ok
}

// FanCode returns the vendor code for a fan string, false when unmapped.
func FanCode(fan string) (int, bool) {
	code, ok := fanCodes[fan]
	return code, ok
}

// defaultFlags is sent when the caller leaves flags unset.
const defaultFlags = 255

// WithDefaults fills the fan ("auto") and flags (255) defaults.
func WithDefaults(s models.ModeSettings) models.ModeSettings {
	if s.Fan == "" {
		s.Fan = "auto"
	}
	if s.Flags == nil {
		flags := defaultFlags
		s.Flags = &flags
	}
	return s
}

// ValidateSettings rejects unknown mode/fan strings locally, before any
// vendor round-trip.
func ValidateSettings(s models.ModeSettings) error {
	if _, ok := modeCodes[s.Mode]; !ok && s.Mode != NoChange {
		return ErrInvalidMode
	}
	if s.Fan != "" && s.Fan != NoChange {
		if _, ok := fanCodes[s.Fan]; !ok {
			return ErrInvalidFan
		}
	}
	return nil
}
