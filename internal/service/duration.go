package service

import (
	"fmt"
	"strconv"
	"time"
)

// durationUnits is the window grammar: a positive integer and one unit suffix
var durationUnits = map[byte]time.Duration{
	's': time.Second,
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
}

// ParseDuration parses window strings like "5m", "1h", "30d"
func ParseDuration(s string) (time.Duration, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration format: %q", s)
	}
	unit, ok := durationUnits[s[len(s)-1]]
	if !ok {
		return 0, fmt.Errorf("unknown duration unit in %q", s)
	}
	value, err := strconv.ParseUint(s[:len(s)-1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid duration value: %q", s)
	}
	return time.Duration(value) * unit, nil
}
