// Package util provides small helpers for cleaning host command arguments.
package util

import (
	"strconv"
	"strings"
)

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// CleanArg trims surrounding whitespace and quotes and unescapes doubled quotes.
func CleanArg(s string) string {
	return FixEscapeQuotes(TrimQuotes(strings.TrimSpace(s)))
}

// JoinArgs rebuilds a payload that the line protocol split on '|'.
func JoinArgs(args []string) string {
	return strings.Join(args, "|")
}

// ParseBool accepts the spellings hosts send for booleans: true/false in any
// case, 1/0, and on/off.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(CleanArg(s)) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return strconv.ParseBool(strings.ToLower(CleanArg(s)))
}
