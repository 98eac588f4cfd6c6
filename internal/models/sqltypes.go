package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Storage layouts. Values are bound as strings so the same repository code
// works against both Postgres (which casts text to DATE/TIMESTAMPTZ) and
// SQLite (which stores the text as-is). The timestamp layout is fixed-width
// so lexicographic ordering in SQLite matches chronological ordering.
const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Date is a nullable calendar date column value.
type Date struct {
	Time  time.Time
	Valid bool
}

// DateFrom builds a Date from an optional time pointer.
func DateFrom(t *time.Time) Date {
	if t == nil {
		return Date{}
	}
	return Date{Time: t.UTC(), Valid: true}
}

// Ptr returns the date as an optional time pointer (UTC midnight).
func (d Date) Ptr() *time.Time {
	if !d.Valid {
		return nil
	}
	y, m, day := d.Time.UTC().Date()
	t := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	return &t
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	if !d.Valid {
		return nil, nil
	}
	return d.Time.UTC().Format(dateLayout), nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = Date{Time: v.UTC(), Valid: true}
		return nil
	case []byte:
		return d.parse(string(v))
	case string:
		return d.parse(v)
	default:
		return fmt.Errorf("scan date: unsupported type %T", value)
	}
}

func (d *Date) parse(s string) error {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return fmt.Errorf("scan date %q: %w", s, err)
	}
	*d = Date{Time: t, Valid: true}
	return nil
}

// Timestamp is a non-null timestamp column value.
type Timestamp struct {
	Time time.Time
}

// Value implements driver.Valuer.
func (t Timestamp) Value() (driver.Value, error) {
	return t.Time.UTC().Format(timestampLayout), nil
}

// Scan implements sql.Scanner.
func (t *Timestamp) Scan(value any) error {
	switch v := value.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("scan timestamp: unsupported type %T", value)
	}
}

func (t *Timestamp) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("scan timestamp %q: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}
