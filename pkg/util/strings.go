package util

import (
	"strconv"
	"strings"
)

// ParseFloat parses a numeric cell. Blank, "nan", "null" and "none" are reported as missing.
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "null", "none", "na", "n/a":
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
