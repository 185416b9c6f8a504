package workouts

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/2beens/fittracker/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var csvHeader = []string{"date", "activity", "value", "metric"}

// CsvStore keeps the append-only workout log in a single CSV file.
// It assumes a single process writing to the file; concurrent access
// within the process is guarded by the mutex.
type CsvStore struct {
	path  string
	mutex sync.RWMutex
}

func NewCsvStore(path string) (*CsvStore, error) {
	if path == "" {
		return nil, errors.New("csv path cannot be empty")
	}
	return &CsvStore{
		path: path,
	}, nil
}

// seedWorkouts is the sample data written on first run,
// so that a fresh dashboard is not empty
func seedWorkouts() []Workout {
	return []Workout{
		{Date: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), Activity: "Running", Value: 2.5, Metric: "km"},
		{Date: time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC), Activity: "Running", Value: 2.8, Metric: "km"},
		{Date: time.Date(2025, 7, 7, 0, 0, 0, 0, time.UTC), Activity: "Running", Value: 3.2, Metric: "km"},
		{Date: time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC), Activity: "Running", Value: 4.5, Metric: "km"},
		{Date: time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC), Activity: "Push-Ups", Value: 30, Metric: "reps"},
		{Date: time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC), Activity: "Push-Ups", Value: 35, Metric: "reps"},
		{Date: time.Date(2025, 7, 9, 0, 0, 0, 0, time.UTC), Activity: "Push-Ups", Value: 38, Metric: "reps"},
	}
}

// EnsureInitialized creates the backing file with the header and sample
// data if it does not exist yet. No-op when the file is already present.
func (cs *CsvStore) EnsureInitialized(ctx context.Context) (err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "csvStore.ensureInitialized")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	if _, err := os.Stat(cs.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat workouts file: %w", err)
	}

	file, err := os.OpenFile(cs.path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create workouts file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close workouts file: %w", closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, workout := range seedWorkouts() {
		if err := writer.Write(workoutToRow(workout)); err != nil {
			return fmt.Errorf("write seed workout: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush workouts file: %w", err)
	}

	log.Printf("created workouts file with sample data: %s", cs.path)
	return nil
}

// ListAll returns all stored workouts in file (append) order.
// A missing or empty file yields an empty list and no error; a file that
// cannot be parsed yields ErrFileUnreadable.
func (cs *CsvStore) ListAll(ctx context.Context) (_ []Workout, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "csvStore.listAll")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	file, err := os.Open(cs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrFileUnreadable, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			log.Warnf("close workouts file: %s", closeErr)
		}
	}()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFileUnreadable, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	if !isHeaderRow(rows[0]) {
		return nil, fmt.Errorf("%w: unexpected header row %v", ErrFileUnreadable, rows[0])
	}

	workouts := make([]Workout, 0, len(rows)-1)
	for i, row := range rows[1:] {
		workout, err := workoutFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %s", ErrFileUnreadable, i+2, err)
		}
		workouts = append(workouts, workout)
	}

	span.SetAttributes(attribute.Int("workouts.count", len(workouts)))
	return workouts, nil
}

// Append validates the workout and writes it as one new row at the end of
// the file. Existing rows are never touched; the header is written only
// when the file is created by this call.
func (cs *CsvStore) Append(ctx context.Context, workout Workout) (_ *Workout, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "csvStore.append")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	workout = workout.Normalize()
	if err := workout.Validate(); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("workout.activity", workout.Activity))

	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	fileExisted := true
	if _, err := os.Stat(cs.path); os.IsNotExist(err) {
		fileExisted = false
	} else if err != nil {
		return nil, fmt.Errorf("stat workouts file: %w", err)
	}

	file, err := os.OpenFile(cs.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open workouts file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close workouts file: %w", closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	if !fileExisted {
		if err := writer.Write(csvHeader); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	if err := writer.Write(workoutToRow(workout)); err != nil {
		return nil, fmt.Errorf("write workout: %w", err)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush workouts file: %w", err)
	}

	log.Debugf("workout appended: [%s] %s %s", workout.Activity, formatValue(workout.Value), workout.Metric)
	return &workout, nil
}

func workoutToRow(w Workout) []string {
	return []string{
		w.Date.Format(DateFormat),
		w.Activity,
		formatValue(w.Value),
		w.Metric,
	}
}

func workoutFromRow(row []string) (Workout, error) {
	if len(row) != len(csvHeader) {
		return Workout{}, fmt.Errorf("expected %d columns, got %d", len(csvHeader), len(row))
	}

	date, err := time.Parse(DateFormat, row[0])
	if err != nil {
		return Workout{}, fmt.Errorf("parse date: %s", err)
	}

	value, err := strconv.ParseFloat(row[2], 64)
	if err != nil {
		return Workout{}, fmt.Errorf("parse value: %s", err)
	}

	return Workout{
		Date:     date,
		Activity: row[1],
		Value:    value,
		Metric:   row[3],
	}, nil
}

func isHeaderRow(row []string) bool {
	if len(row) != len(csvHeader) {
		return false
	}
	for i := range csvHeader {
		if row[i] != csvHeader[i] {
			return false
		}
	}
	return true
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
