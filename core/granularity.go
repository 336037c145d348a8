package core

import (
	"fmt"
	"strings"
)

// Granularity is a time-dimension bucket size. Values are ordered from
// finest to coarsest so that comparison operators (<, >=) express "coarser
// than" / "finer than" directly.
type Granularity int

const (
	GranularityDay Granularity = iota
	GranularityWeek
	GranularityMonth
	GranularityQuarter
	GranularityYear
)

var granularityNames = [...]string{"DAY", "WEEK", "MONTH", "QUARTER", "YEAR"}

func (g Granularity) String() string {
	if g < 0 || int(g) >= len(granularityNames) {
		return fmt.Sprintf("Granularity(%d)", int(g))
	}
	return granularityNames[g]
}

// AllGranularities lists every granularity from DAY through YEAR, the
// fan-out order used by the linkable-spec resolver.
func AllGranularities() []Granularity {
	return []Granularity{GranularityDay, GranularityWeek, GranularityMonth, GranularityQuarter, GranularityYear}
}

// IsCoarserOrEqual reports whether g is the same grain or a coarser one
// than other (DAY is finest, YEAR is coarsest).
func (g Granularity) IsCoarserOrEqual(other Granularity) bool {
	return g >= other
}

// CoarserThan reports whether g is strictly coarser than other.
func (g Granularity) CoarserThan(other Granularity) bool {
	return g > other
}

// ParseGranularity parses one of DAY/WEEK/MONTH/QUARTER/YEAR, case
// insensitively. Returns false if the string does not name a granularity.
func ParseGranularity(s string) (Granularity, bool) {
	for i, name := range granularityNames {
		if strings.EqualFold(name, s) {
			return Granularity(i), true
		}
	}
	return 0, false
}

// DatePart is an extractable component of a date.
type DatePart int

const (
	DatePartDay DatePart = iota
	DatePartDOW
	DatePartDOY
	DatePartMonth
	DatePartQuarter
	DatePartYear
)

var datePartNames = [...]string{"DAY", "DOW", "DOY", "MONTH", "QUARTER", "YEAR"}

func (d DatePart) String() string {
	if d < 0 || int(d) >= len(datePartNames) {
		return fmt.Sprintf("DatePart(%d)", int(d))
	}
	return datePartNames[d]
}

// AllDateParts lists every supported date_part value.
func AllDateParts() []DatePart {
	return []DatePart{DatePartDay, DatePartDOW, DatePartDOY, DatePartMonth, DatePartQuarter, DatePartYear}
}

// ParseDatePart parses one of DAY/DOW/DOY/MONTH/QUARTER/YEAR, case
// insensitively.
func ParseDatePart(s string) (DatePart, bool) {
	for i, name := range datePartNames {
		if strings.EqualFold(name, s) {
			return DatePart(i), true
		}
	}
	return 0, false
}

// TimeOffset expresses a shift of a time axis by a count of grain units,
// e.g. "5 days" or "2 months". Used by derived-metric input offset_window.
type TimeOffset struct {
	Count int
	Grain Granularity
}

func (o TimeOffset) String() string {
	return fmt.Sprintf("%d %s(s)", o.Count, o.Grain)
}

// IsZero reports whether the offset is the empty value (no shift).
func (o TimeOffset) IsZero() bool {
	return o.Count == 0
}
