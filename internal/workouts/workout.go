package workouts

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DateFormat is the date layout used in the workouts CSV file
const DateFormat = "2006-01-02"

var (
	ErrInvalidWorkout   = errors.New("invalid workout")
	ErrFileUnreadable   = errors.New("workouts file unreadable")
	ErrInsufficientData = errors.New("insufficient data")
)

type Workout struct {
	Date     time.Time `json:"date"`
	Activity string    `json:"activity"`
	Value    float64   `json:"value"`
	Metric   string    `json:"metric"`
}

// Normalize returns the workout in its canonical stored form: text fields
// trimmed, activity name title-cased, date truncated to a UTC calendar day.
// The caser is constructed per call, a shared one is not safe for
// concurrent use.
func (w Workout) Normalize() Workout {
	w.Activity = cases.Title(language.English).String(strings.TrimSpace(w.Activity))
	w.Metric = strings.TrimSpace(w.Metric)
	if !w.Date.IsZero() {
		w.Date = time.Date(w.Date.Year(), w.Date.Month(), w.Date.Day(), 0, 0, 0, 0, time.UTC)
	}
	return w
}

func (w Workout) Validate() error {
	if strings.TrimSpace(w.Activity) == "" {
		return fmt.Errorf("%w: activity empty", ErrInvalidWorkout)
	}
	if strings.TrimSpace(w.Metric) == "" {
		return fmt.Errorf("%w: metric empty", ErrInvalidWorkout)
	}
	if w.Value < 0 {
		return fmt.Errorf("%w: value negative", ErrInvalidWorkout)
	}
	if w.Date.IsZero() {
		return fmt.Errorf("%w: date not set", ErrInvalidWorkout)
	}
	return nil
}
