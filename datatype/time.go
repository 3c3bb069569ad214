package datatype

import (
	"strings"
	"time"

	"github.com/c360/semmodel/pkg/chop"
	"github.com/c360/semmodel/pkg/timestamp"
)

// Time is a UTC timestamp in epoch milliseconds. Strings are read as
// YYYY[MM[DD[hh[mm[ss[mmm]]]]]] after dropping every non-digit, so
// "2021/01/01 12:30" and "202101011230" are equivalent. "now" is the
// current time.
type Time struct {
	Common
	now func() time.Time
}

// NewTime builds a Time type.
func NewTime(name, base string, info Info, opts map[string]any) (*Time, error) {
	t := &Time{now: time.Now}
	t.Common = NewCommon(name, base, info, opts, StorTime)
	t.Handle(VariantInt, func(r Raw) (Norm, error) { return Value(r.Int), nil })
	t.Handle(VariantStr, t.normStr)
	return t, nil
}

func (t *Time) normStr(r Raw) (Norm, error) {
	text := strings.TrimSpace(strings.ToLower(r.Str))
	if text == "now" {
		return Value(t.now().UnixMilli()), nil
	}

	ms, err := timestamp.ParseDigits(chop.Digits(text))
	if err != nil {
		return Norm{}, t.BadValu(r.Value, "invalid time: %v", err)
	}
	return Value(ms), nil
}

func (t *Time) Index(valu any) ([]byte, error) {
	n, ok := valu.(int64)
	if !ok {
		return nil, t.BadValu(valu, "index expects int64, got %T", valu)
	}
	return SignedKey(n), nil
}

// Repr formats the time as "2006/01/02 15:04:05.000" in UTC.
func (t *Time) Repr(valu any) (string, error) {
	n, ok := valu.(int64)
	if !ok {
		return "", t.BadValu(valu, "repr expects int64, got %T", valu)
	}
	return timestamp.Format(n), nil
}

func (t *Time) Extend(name string, opts map[string]any, info Info) (Type, error) {
	ext, err := NewTime(name, t.name, info, MergeOpts(t.opts, opts))
	if err != nil {
		return nil, err
	}
	ext.now = t.now
	return ext, nil
}
