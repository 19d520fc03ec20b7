package ptype

import "strconv"

// IntervalCode identifies the leading and trailing fields of an interval
// type, e.g. DAY TO SECOND.
type IntervalCode int

const (
	IntervalYear IntervalCode = iota + 1
	IntervalMonth
	IntervalYearToMonth
	IntervalDay
	IntervalHour
	IntervalMinute
	IntervalSecond
	IntervalDayToHour
	IntervalDayToMinute
	IntervalDayToSecond
	IntervalHourToMinute
	IntervalHourToSecond
	IntervalMinuteToSecond
)

type intervalField struct {
	lead, trail string
}

var intervalFields = map[IntervalCode]intervalField{
	IntervalYear:           {"YEAR", ""},
	IntervalMonth:          {"MONTH", ""},
	IntervalYearToMonth:    {"YEAR", "MONTH"},
	IntervalDay:            {"DAY", ""},
	IntervalHour:           {"HOUR", ""},
	IntervalMinute:         {"MINUTE", ""},
	IntervalSecond:         {"SECOND", ""},
	IntervalDayToHour:      {"DAY", "HOUR"},
	IntervalDayToMinute:    {"DAY", "MINUTE"},
	IntervalDayToSecond:    {"DAY", "SECOND"},
	IntervalHourToMinute:   {"HOUR", "MINUTE"},
	IntervalHourToSecond:   {"HOUR", "SECOND"},
	IntervalMinuteToSecond: {"MINUTE", "SECOND"},
}

// String returns the SQL spelling of the code, e.g. "DAY TO SECOND".
func (c IntervalCode) String() string {
	f, ok := intervalFields[c]
	if !ok {
		return "INTERVAL_CODE(" + strconv.Itoa(int(c)) + ")"
	}
	if f.trail == "" {
		return f.lead
	}
	return f.lead + " TO " + f.trail
}

// YearMonth reports whether the code belongs to the year-month family.
func (c IntervalCode) YearMonth() bool {
	return c == IntervalYear || c == IntervalMonth || c == IntervalYearToMonth
}

// HasSeconds reports whether the trailing field is SECOND, which is the only
// case where a fractional precision applies.
func (c IntervalCode) HasSeconds() bool {
	switch c {
	case IntervalSecond, IntervalDayToSecond, IntervalHourToSecond, IntervalMinuteToSecond:
		return true
	}
	return false
}

func (c IntervalCode) valid() bool {
	_, ok := intervalFields[c]
	return ok
}

func (c IntervalCode) fields() intervalField {
	return intervalFields[c]
}

// parseIntervalCode maps leading and (optional) trailing field names back to
// a code.
func parseIntervalCode(lead, trail string) (IntervalCode, bool) {
	for code, f := range intervalFields {
		if f.lead == lead && f.trail == trail {
			return code, true
		}
	}
	return 0, false
}
