// Package util contains misc internal utilities.
package util

import (
	"math"
	"strings"
	"time"
)

// SplitList splits a comma separated list as returned by the driver's
// enumeration queries, e.g. "Dev1/ai0, Dev1/ai1" => ["Dev1/ai0", "Dev1/ai1"].
// Empty entries are dropped, so "" yields an empty (non-nil) slice.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// UniqueString returns the unique elements of a slice of strings, in order of first appearance
func UniqueString(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// SecsToDuration converts a floating point number of seconds to a time.Duration
// since time.Duration is an int64, durations below 1 ns are truncated
func SecsToDuration(secs float64) time.Duration {
	return time.Duration(math.Round(secs * 1e9))
}
