// Package dateutil handles calendar dates and Brazil-local day boundaries.
package dateutil

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	dErrors "encantar/pkg/domain-errors"
)

const (
	DateLayout       = "2006-01-02"
	BRDateLayout     = "02/01/2006"
	BRDateTimeLayout = "02/01/2006 15:04"
)

// Location is America/Sao_Paulo, falling back to a fixed UTC-3 zone when the
// tz database is unavailable.
var Location = loadLocation()

func loadLocation() *time.Location {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		return time.FixedZone("BRT", -3*60*60)
	}
	return loc
}

// ParseDate parses YYYY-MM-DD into a calendar date at midnight UTC, so the day
// never shifts when serialized.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, dErrors.Newf(dErrors.CodeValidation, "invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// StartOfDay returns 00:00:00 of the given YYYY-MM-DD in Brazil time.
func StartOfDay(s string) (time.Time, error) {
	d, err := ParseDate(s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, Location), nil
}

// EndOfDay returns 23:59:59.999 of the given YYYY-MM-DD in Brazil time.
func EndOfDay(s string) (time.Time, error) {
	d, err := ParseDate(s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, int(999*time.Millisecond), Location), nil
}

// FormatDate renders a calendar date as dd/mm/yyyy.
func FormatDate(t time.Time) string {
	return t.UTC().Format(BRDateLayout)
}

// FormatDateTime renders an instant in Brazil time as dd/mm/yyyy hh:mm.
func FormatDateTime(t time.Time) string {
	return t.In(Location).Format(BRDateTimeLayout)
}

// Date is a calendar date without time of day. It travels as YYYY-MM-DD in
// JSON and maps to a PostgreSQL DATE column.
type Date struct {
	time.Time
}

// NewDate truncates t to its UTC calendar day.
func NewDate(t time.Time) Date {
	u := t.UTC()
	return Date{time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	// Accept full timestamps from clients that send ISO strings.
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	t, err := ParseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = NewDate(v)
		return nil
	case string:
		return d.UnmarshalJSON([]byte(v))
	case []byte:
		return d.UnmarshalJSON(v)
	case nil:
		d.Time = time.Time{}
		return nil
	}
	return fmt.Errorf("dateutil: cannot scan %T into Date", src)
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}
