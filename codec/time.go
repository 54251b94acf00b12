package codec

import (
	"fmt"
	"strings"
	"time"

	dmerr "github.com/obsforge/datamodel/errors"
)

// Timestamp formats. Fractional seconds are optional on input and carried
// to microsecond precision on output; inputs may carry more fractional
// digits than the stdlib layouts accept, so the fraction is parsed by hand.
const (
	dateLayout     = "2006-01-02"
	timeLayout     = "15:04:05"
	dateTimeLayout = "2006-01-02T15:04:05"
)

type fitsDate struct{}

func (fitsDate) Name() string { return "fits-date" }
func (fitsDate) Tag() string  { return "http://obsforge.io/formats/fits-date" }

func (c fitsDate) ToBasic(v any) (any, error) {
	t, err := normalizeTime(c, v)
	if err != nil {
		return nil, err
	}
	return t.UTC().Format(dateLayout), nil
}

func (fitsDate) FromBasic(v any) (any, error) {
	s, err := asString(v, "fits-date")
	if err != nil {
		return nil, err
	}
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return nil, dmerr.Wrap(dmerr.CodeValidation, "", err, "%q is not a calendar date", s)
	}
	return t, nil
}

type fitsTime struct{}

func (fitsTime) Name() string { return "fits-time" }
func (fitsTime) Tag() string  { return "http://obsforge.io/formats/fits-time" }

func (c fitsTime) ToBasic(v any) (any, error) {
	t, err := normalizeTime(c, v)
	if err != nil {
		return nil, err
	}
	return formatWithFraction(t.UTC(), timeLayout), nil
}

func (fitsTime) FromBasic(v any) (any, error) {
	s, err := asString(v, "fits-time")
	if err != nil {
		return nil, err
	}
	return parseWithFraction(s, timeLayout)
}

type fitsDateTime struct{}

func (fitsDateTime) Name() string { return "fits-date-time" }
func (fitsDateTime) Tag() string  { return "http://obsforge.io/formats/fits-date-time" }

func (c fitsDateTime) ToBasic(v any) (any, error) {
	t, err := normalizeTime(c, v)
	if err != nil {
		return nil, err
	}
	return formatWithFraction(t.UTC(), dateTimeLayout), nil
}

func (fitsDateTime) FromBasic(v any) (any, error) {
	s, err := asString(v, "fits-date-time")
	if err != nil {
		return nil, err
	}
	return parseWithFraction(s, dateTimeLayout)
}

// normalizeTime accepts either a time.Time or a string in the converter's
// own format; strings are round-tripped so setting an already-formatted
// value works.
func normalizeTime(c Converter, v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		parsed, err := c.FromBasic(t)
		if err != nil {
			return time.Time{}, err
		}
		return parsed.(time.Time), nil
	default:
		return time.Time{}, dmerr.New(dmerr.CodeValidation, "", "%s expects a time value, got %T", c.Name(), v)
	}
}

// parseWithFraction splits off an optional ".ffff" suffix before handing
// the rest to time.Parse, scaling however many digits appear (truncating
// below nanoseconds) so over-long fractions still parse.
func parseWithFraction(s, layout string) (time.Time, error) {
	base, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		base, frac = s[:i], s[i+1:]
	}
	t, err := time.ParseInLocation(layout, base, time.UTC)
	if err != nil {
		return time.Time{}, dmerr.Wrap(dmerr.CodeValidation, "", err, "%q does not match %s", s, layout)
	}
	if frac == "" {
		return t, nil
	}
	var ns int64
	scale := int64(100_000_000)
	for _, c := range frac {
		if c < '0' || c > '9' {
			return time.Time{}, dmerr.New(dmerr.CodeValidation, "", "%q has a malformed fractional second", s)
		}
		if scale > 0 {
			ns += int64(c-'0') * scale
			scale /= 10
		}
	}
	return t.Add(time.Duration(ns)), nil
}

func formatWithFraction(t time.Time, layout string) string {
	s := t.Format(layout)
	if us := t.Nanosecond() / 1000; us != 0 {
		s += fmt.Sprintf(".%06d", us)
	}
	return s
}

func asString(v any, format string) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", dmerr.New(dmerr.CodeValidation, "", "%s expects a string, got %T", format, v)
	}
	return s, nil
}
