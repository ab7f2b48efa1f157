// Package types holds the zone-naive temporal types used by generated
// records. They wrap github.com/golang-sql/civil values and implement
// sql.Scanner and driver.Valuer so they can be bound and scanned directly.
//
// A LocalDateTime is a wall-clock reading with no time zone. It is never
// converted to an instant; use time.Time for zone-aware columns.
package types

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/golang-sql/civil"
)

const (
	dateLayout     = "2006-01-02"
	timeLayout     = "15:04:05.999999999"
	dateTimeLayout = dateLayout + " " + timeLayout
)

// LocalDate is a calendar date without a time zone.
type LocalDate struct {
	civil.Date
}

// NewLocalDate returns the date y-m-d.
func NewLocalDate(year int, month time.Month, day int) LocalDate {
	return LocalDate{civil.Date{Year: year, Month: month, Day: day}}
}

// LocalDateOf returns the date part of t in t's location.
func LocalDateOf(t time.Time) LocalDate {
	return LocalDate{civil.DateOf(t)}
}

// ParseLocalDate parses "YYYY-MM-DD".
func ParseLocalDate(s string) (LocalDate, error) {
	d, err := civil.ParseDate(s)
	return LocalDate{d}, err
}

// Scan implements sql.Scanner.
func (d *LocalDate) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		d.Date = civil.DateOf(v)
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	case nil:
		return fmt.Errorf("types: cannot scan NULL into LocalDate")
	}
	return fmt.Errorf("types: cannot scan %T into LocalDate", src)
}

func (d *LocalDate) parse(s string) error {
	// postgres text format may carry a time part when cast loosely
	if i := strings.IndexAny(s, " T"); i > 0 {
		s = s[:i]
	}
	v, err := civil.ParseDate(s)
	if err != nil {
		return fmt.Errorf("types: %w", err)
	}
	d.Date = v
	return nil
}

// Value implements driver.Valuer.
func (d LocalDate) Value() (driver.Value, error) {
	if !d.IsValid() {
		return nil, fmt.Errorf("types: invalid date %s", d.Date)
	}
	return d.String(), nil
}

// LocalTime is a wall-clock time of day without a date or time zone.
type LocalTime struct {
	civil.Time
}

// NewLocalTime returns the time h:m:s.ns.
func NewLocalTime(hour, minute, second, nanosecond int) LocalTime {
	return LocalTime{civil.Time{Hour: hour, Minute: minute, Second: second, Nanosecond: nanosecond}}
}

// LocalTimeOf returns the time-of-day part of t in t's location.
func LocalTimeOf(t time.Time) LocalTime {
	return LocalTime{civil.TimeOf(t)}
}

// ParseLocalTime parses "HH:MM:SS[.fraction]".
func ParseLocalTime(s string) (LocalTime, error) {
	t, err := civil.ParseTime(s)
	return LocalTime{t}, err
}

// Scan implements sql.Scanner. MySQL TIME values outside 00:00:00 to
// 23:59:59 (durations) are rejected.
func (t *LocalTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = civil.TimeOf(v)
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		return fmt.Errorf("types: cannot scan NULL into LocalTime")
	}
	return fmt.Errorf("types: cannot scan %T into LocalTime", src)
}

func (t *LocalTime) parse(s string) error {
	v, err := civil.ParseTime(s)
	if err != nil {
		return fmt.Errorf("types: %w", err)
	}
	if !v.IsValid() {
		return fmt.Errorf("types: time of day out of range: %q", s)
	}
	t.Time = v
	return nil
}

// Value implements driver.Valuer.
func (t LocalTime) Value() (driver.Value, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("types: invalid time %s", t.Time)
	}
	return t.String(), nil
}

// LocalDateTime is a date and wall-clock time without a time zone.
type LocalDateTime struct {
	civil.DateTime
}

// NewLocalDateTime combines a date and a time of day.
func NewLocalDateTime(d LocalDate, t LocalTime) LocalDateTime {
	return LocalDateTime{civil.DateTime{Date: d.Date, Time: t.Time}}
}

// LocalDateTimeOf returns the wall-clock reading of t in t's location.
func LocalDateTimeOf(t time.Time) LocalDateTime {
	return LocalDateTime{civil.DateTimeOf(t)}
}

// ParseLocalDateTime accepts "YYYY-MM-DDTHH:MM:SS[.fraction]" and the
// space-separated form databases print.
func ParseLocalDateTime(s string) (LocalDateTime, error) {
	dt, err := civil.ParseDateTime(strings.Replace(s, " ", "T", 1))
	return LocalDateTime{dt}, err
}

// Scan implements sql.Scanner. A time.Time from the driver contributes
// only its wall clock.
func (dt *LocalDateTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		dt.DateTime = civil.DateTimeOf(v)
		return nil
	case string:
		return dt.parse(v)
	case []byte:
		return dt.parse(string(v))
	case nil:
		return fmt.Errorf("types: cannot scan NULL into LocalDateTime")
	}
	return fmt.Errorf("types: cannot scan %T into LocalDateTime", src)
}

func (dt *LocalDateTime) parse(s string) error {
	v, err := ParseLocalDateTime(s)
	if err != nil {
		return fmt.Errorf("types: %w", err)
	}
	*dt = v
	return nil
}

// Value implements driver.Valuer using the space-separated form both
// MySQL and PostgreSQL accept for zone-naive columns.
func (dt LocalDateTime) Value() (driver.Value, error) {
	if !dt.IsValid() {
		return nil, fmt.Errorf("types: invalid datetime %s", dt.DateTime)
	}
	return dt.In(time.UTC).Format(dateTimeLayout), nil
}

// String returns "YYYY-MM-DD HH:MM:SS[.fraction]".
func (dt LocalDateTime) String() string {
	return dt.In(time.UTC).Format(dateTimeLayout)
}
