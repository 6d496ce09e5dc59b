package util

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// SplitCSV splits on commas, trims blanks and drops empty items.
func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseWindows parses "30,90,180" into day counts, falling back to def when empty.
func ParseWindows(s string, def []int) ([]int, error) {
	items := SplitCSV(s)
	if len(items) == 0 {
		return def, nil
	}
	out := make([]int, 0, len(items))
	for _, item := range items {
		v, err := strconv.Atoi(item)
		if err != nil {
			return nil, fmt.Errorf("invalid window %q", item)
		}
		out = append(out, v)
	}
	return out, nil
}
