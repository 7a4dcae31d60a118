package core

// convert.go provides coercion functions for spreadsheet cell values.
//
// These functions handle the messy reality of user-provided spreadsheets:
//   - Numbers that arrive as "1", "1.0" or "1e0" depending on the cell type
//   - Various boolean representations (yes/no, true/false, 1/0)
//   - Excel formula prefixes (="value")
//   - Lists that were JSON-encoded once, or twice, by whatever produced the file
//
// Every function here is total: invalid input is reported through the return
// value, never by panicking.

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// CleanCell removes common spreadsheet artifacts from a cell value:
// - Trims whitespace and a leading BOM
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.TrimSpace(s)

	// Remove leading '='
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	// Remove any surrounding quotes
	s = strings.Trim(s, `"'`)

	return strings.TrimSpace(s)
}

// parseNumber parses a numeric-looking cell. ok is false for anything else.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !numericRegex.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseFlag coerces a boolean-ish cell. Empty input returns def.
// Accepts true/false, yes/no, t/f, y/n and any number (non-zero is true).
func ParseFlag(s string, def bool) (bool, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return def, true
	}

	switch s {
	case "true", "t", "yes", "y":
		return true, true
	case "false", "f", "no", "n":
		return false, true
	}

	if f, ok := parseNumber(s); ok {
		return f != 0, true
	}
	return def, false
}

// ParseWholeNumber coerces a cell holding a whole number, such as "3" or "3.0".
// Fractional values are rejected.
func ParseWholeNumber(s string) (int, bool) {
	f, ok := parseNumber(s)
	if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// FeatureList is the outcome of decoding an allowedFeatures cell.
// OK is false when the cell held something that is not a list.
type FeatureList struct {
	Items []string
	OK    bool
}

// DecodeFeatureList decodes an allowedFeatures cell.
//
// Accepted shapes: empty (no features), a JSON array of strings, or a JSON
// string whose content is itself a JSON array. Anything else yields OK=false.
func DecodeFeatureList(raw string) FeatureList {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return FeatureList{Items: []string{}, OK: true}
	}

	// Unwrap at most one level of JSON string encoding.
	for range 2 {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return FeatureList{}
		}

		switch t := v.(type) {
		case string:
			raw = strings.TrimSpace(t)
			if raw == "" {
				return FeatureList{Items: []string{}, OK: true}
			}
			continue
		case []any:
			items := make([]string, 0, len(t))
			for _, e := range t {
				s, ok := e.(string)
				if !ok {
					return FeatureList{}
				}
				if s = strings.TrimSpace(s); s != "" {
					items = append(items, s)
				}
			}
			return FeatureList{Items: items, OK: true}
		default:
			return FeatureList{}
		}
	}

	return FeatureList{}
}

// EncodeFeatureList renders features as the JSON array stored with the profile.
func EncodeFeatureList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}
