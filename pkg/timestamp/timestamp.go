// Package timestamp handles the model's canonical time value: int64
// milliseconds since the Unix epoch, always UTC.
//
//	now := timestamp.Now()
//	ms, err := timestamp.ParseDigits("20210101123000")
//	timestamp.Format(ms) // "2021/01/01 12:30:00.000"
package timestamp

import (
	"fmt"
	"time"
)

// ReprLayout is the display layout for model times.
const ReprLayout = "2006/01/02 15:04:05.000"

// Now returns the current time as Unix milliseconds.
func Now() int64 {
	return time.Now().UnixMilli()
}

// ToUnixMs converts a time.Time to Unix milliseconds. The zero time is 0.
func ToUnixMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// FromUnixMs converts Unix milliseconds to a UTC time.Time.
func FromUnixMs(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// Format renders ms with ReprLayout.
func Format(ms int64) string {
	return FromUnixMs(ms).Format(ReprLayout)
}

// digit count -> layout
var digitLayouts = map[int]string{
	4:  "2006",
	6:  "200601",
	8:  "20060102",
	10: "2006010215",
	12: "200601021504",
	14: "20060102150405",
	17: "20060102150405.000",
}

// ParseDigits reads a YYYY[MM[DD[hh[mm[ss[mmm]]]]]] digit string as UTC.
// Missing trailing fields take their lowest value.
func ParseDigits(digits string) (int64, error) {
	layout, ok := digitLayouts[len(digits)]
	if !ok {
		return 0, fmt.Errorf("unknown time format: %d digits", len(digits))
	}
	if len(digits) == 17 {
		digits = digits[:14] + "." + digits[14:]
	}
	t, err := time.ParseInLocation(layout, digits, time.UTC)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}
