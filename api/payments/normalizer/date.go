package normalizer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"TahsilatRaporu/internal/config"
)

// excelEpoch is the day-zero of Excel's 1900 date system. Excel treats 1900 as
// a leap year, so serial 60 maps to the fictitious 1900-02-29; adding days on
// the real calendar from 1899-12-30 lands serial 60 on 1900-02-28 instead,
// which is the corrected date callers want.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// dateLayouts is ordered: day-first forms win over year-first and US forms
// when a value like 02/03/2024 is ambiguous.
var dateLayouts = []string{
	"02/01/2006",
	"02.01.2006",
	"02-01-2006",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"2/1/2006",
	"2.1.2006",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
	"02.01.2006 15:04:05",
}

// EmptyDateError marks a value that was blank or a known null marker rather
// than malformed.
type EmptyDateError struct{}

func (e *EmptyDateError) Error() string {
	return "date value is empty"
}

// DateParseError carries the original value so data-quality logs can show
// what the sheet actually contained.
type DateParseError struct {
	Value string
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("unrecognized date value: %q", e.Value)
}

var nullMarkers = map[string]bool{
	"":     true,
	"-":    true,
	"nan":  true,
	"nat":  true,
	"none": true,
	"null": true,
	"n/a":  true,
}

// NormalizeDate converts a raw cell value into a calendar date. It accepts
// Excel serial numbers (as float64, int or numeric strings), time.Time values
// passed through by the spreadsheet reader, and the textual layouts above.
func NormalizeDate(raw interface{}) (time.Time, error) {
	switch v := raw.(type) {
	case nil:
		return time.Time{}, &EmptyDateError{}
	case time.Time:
		if v.IsZero() {
			return time.Time{}, &EmptyDateError{}
		}
		return truncateToDay(v), nil
	case float64:
		return fromSerial(int(v))
	case int:
		return fromSerial(v)
	case int64:
		return fromSerial(int(v))
	case string:
		return normalizeDateString(v)
	default:
		return normalizeDateString(fmt.Sprintf("%v", raw))
	}
}

func normalizeDateString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if nullMarkers[strings.ToLower(s)] {
		return time.Time{}, &EmptyDateError{}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if t, serr := fromSerial(int(serial)); serr == nil {
			return t, nil
		}
		return time.Time{}, &DateParseError{Value: s}
	}

	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Year() < config.MinPaymentYear || t.Year() > config.MaxPaymentYear {
			continue
		}
		return truncateToDay(t), nil
	}
	return time.Time{}, &DateParseError{Value: s}
}

func fromSerial(serial int) (time.Time, error) {
	if serial < config.ExcelSerialMin || serial > config.ExcelSerialMax {
		return time.Time{}, &DateParseError{Value: strconv.Itoa(serial)}
	}
	return excelEpoch.AddDate(0, 0, serial), nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
