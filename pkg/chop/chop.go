// Package chop provides shared primitives for chopping up strings and values
// before they reach a type normalizer.
package chop

import (
	"encoding/hex"
	"strconv"
	"strings"
	"unicode"

	"github.com/c360/semmodel/errors"
)

// IntStr parses an integer literal honoring base prefixes (0x, 0o, 0b) and
// Go-style underscore separators.
func IntStr(text string) (int64, error) {
	valu, err := strconv.ParseInt(strings.TrimSpace(text), 0, 64)
	if err != nil {
		return 0, errors.BadTypeValu("int", text, "invalid integer literal")
	}
	return valu, nil
}

// IntRange parses "<min>:<max>" into its two integer bounds.
func IntRange(text string) (int64, int64, error) {
	mins, maxs, ok := strings.Cut(text, ":")
	if !ok {
		return 0, 0, errors.BadTypeValu("range", text, "range must be formatted as min:max")
	}
	minv, err := IntStr(mins)
	if err != nil {
		return 0, 0, err
	}
	maxv, err := IntStr(maxs)
	if err != nil {
		return 0, 0, err
	}
	return minv, maxv, nil
}

// Digits returns only the decimal digits of text.
func Digits(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MergeRanges merges two ranges into the smallest range covering both.
func MergeRanges(x, y [2]int64) [2]int64 {
	return [2]int64{
		min(x[0], x[1], y[0], y[1]),
		max(x[0], x[1], y[0], y[1]),
	}
}

// HexStr ensures text is valid hex, returning it lowercased with any 0x
// prefix removed.
func HexStr(text string) (string, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.TrimPrefix(text, "0x")

	if text == "" {
		return "", errors.BadTypeValu("hex", text, "No string left after stripping")
	}

	if _, err := hex.DecodeString(text); err != nil {
		return "", errors.BadTypeValu("hex", text, "%s", err.Error())
	}
	return text, nil
}

// OneSpace collapses every run of whitespace to a single space and trims the ends.
func OneSpace(text string) string {
	return strings.Join(strings.FieldsFunc(text, unicode.IsSpace), " ")
}
