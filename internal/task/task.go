package task

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Task is a named, described, time-stamped reminder item.
type Task struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Time        time.Time `json:"time"`
	CreatedAt   time.Time `json:"created_at"`
}

// Date is a calendar date as picked by the user, without a time of day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

func (d Date) String() string {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Format(dateLayout)
}

// Draft is unvalidated input collected by a UI. It is not retained after
// conversion to a Task or rejection.
type Draft struct {
	Name        string
	Description string
	Date        *Date
	Hour        string
	Minute      string
}

const (
	minHour, maxHour     = 0, 23
	minMinute, maxMinute = 0, 59
)

// NewFromDraft validates d and builds a Task in loc (time.Local when nil).
//
// Checks run in order: hour/minute must parse as integers (FormatError), name
// and date must be present (MissingFieldError), hour/minute must be in range
// (RangeError). Seconds are always zero.
func NewFromDraft(d Draft, loc *time.Location, now time.Time) (Task, error) {
	hour, err := parseInt("hour", d.Hour)
	if err != nil {
		return Task{}, err
	}
	minute, err := parseInt("minute", d.Minute)
	if err != nil {
		return Task{}, err
	}

	name := strings.TrimSpace(d.Name)
	var missing []string
	if name == "" {
		missing = append(missing, "name")
	}
	if d.Date == nil {
		missing = append(missing, "date")
	}
	if len(missing) > 0 {
		return Task{}, &MissingFieldError{Fields: missing}
	}

	if hour < minHour || hour > maxHour {
		return Task{}, &RangeError{Field: "hour", Value: hour, Min: minHour, Max: maxHour}
	}
	if minute < minMinute || minute > maxMinute {
		return Task{}, &RangeError{Field: "minute", Value: minute, Min: minMinute, Max: maxMinute}
	}

	if loc == nil {
		loc = time.Local
	}
	return Task{
		ID:          uuid.NewString(),
		Name:        name,
		Description: d.Description,
		Time:        time.Date(d.Date.Year, d.Date.Month, d.Date.Day, hour, minute, 0, 0, loc),
		CreatedAt:   now,
	}, nil
}

func parseInt(field, raw string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &FormatError{Field: field, Value: raw, Err: err}
	}
	return v, nil
}
