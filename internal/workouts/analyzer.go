package workouts

import (
	"context"
	"fmt"
	"sort"

	"github.com/2beens/fittracker/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// Summary holds the dashboard statistics for one activity series
type Summary struct {
	Activity string  `json:"activity"`
	Metric   string  `json:"metric"`
	Peak     Workout `json:"peak"`
	Latest   Workout `json:"latest"`
	// Progress is the value delta from the first to the most recent
	// workout; nil when there are fewer than two workouts
	Progress *float64 `json:"progress,omitempty"`
}

type Analyzer struct {
	repo workoutsRepo
}

func NewAnalyzer(repo workoutsRepo) *Analyzer {
	return &Analyzer{
		repo: repo,
	}
}

// DistinctActivities returns the unique activity names in the order
// they first appear in the log. Used to populate the activity selector.
func (a *Analyzer) DistinctActivities(ctx context.Context) (_ []string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.workouts.distinctActivities")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	all, err := a.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var activities []string
	for _, workout := range all {
		if seen[workout.Activity] {
			continue
		}
		seen[workout.Activity] = true
		activities = append(activities, workout.Activity)
	}

	return activities, nil
}

// ActivitySeries returns all workouts for the given activity, sorted
// ascending by date. Workouts on the same date keep their log order.
func (a *Analyzer) ActivitySeries(ctx context.Context, activity string) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.workouts.activitySeries")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	span.SetAttributes(attribute.String("activity", activity))

	all, err := a.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var series []Workout
	for _, workout := range all {
		if workout.Activity == activity {
			series = append(series, workout)
		}
	}

	sort.SliceStable(series, func(i, j int) bool {
		return series[i].Date.Before(series[j].Date)
	})

	return series, nil
}

// MetricLabel returns the unit label of the series: the metric of its
// first workout. All workouts of one activity are assumed (not enforced)
// to share the same metric.
func MetricLabel(series []Workout) string {
	if len(series) == 0 {
		return ""
	}
	return series[0].Metric
}

// Summarize computes peak, latest and total progress for one activity.
// Returns ErrInsufficientData when no workouts are logged for it.
func (a *Analyzer) Summarize(ctx context.Context, activity string) (_ *Summary, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.workouts.summarize")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	series, err := a.ActivitySeries(ctx, activity)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: no workouts for activity %q", ErrInsufficientData, activity)
	}

	// on equal values the earliest workout stays the peak
	peak := series[0]
	for _, workout := range series[1:] {
		if workout.Value > peak.Value {
			peak = workout
		}
	}

	summary := &Summary{
		Activity: activity,
		Metric:   MetricLabel(series),
		Peak:     peak,
		Latest:   series[len(series)-1],
	}

	if len(series) > 1 {
		progress := summary.Latest.Value - series[0].Value
		summary.Progress = &progress
	}

	return summary, nil
}
