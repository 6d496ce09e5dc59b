package http

import (
	"time"

	xutil "GSRSwap/pkg/util"
)

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int { return xutil.ParseIntDefault(s, def) }

// ParseDate parses YYYY-MM-DD (or RFC3339) into a UTC day.
func ParseDate(s string) (time.Time, error) { return xutil.ParseDate(s) }

// ParseWindows parses a comma separated list of window sizes.
func ParseWindows(s string, def []int) ([]int, error) { return xutil.ParseWindows(s, def) }

// SplitCSV splits a comma separated list, dropping blanks.
func SplitCSV(s string) []string { return xutil.SplitCSV(s) }
