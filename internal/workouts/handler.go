package workouts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/2beens/fittracker/internal/telemetry/metrics"
	"github.com/2beens/fittracker/internal/telemetry/tracing"
	"github.com/2beens/fittracker/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=workouts_mocks_test.go -package=workouts_test

type workoutsRepo interface {
	Append(ctx context.Context, workout Workout) (*Workout, error)
	ListAll(ctx context.Context) ([]Workout, error)
}

type AddWorkoutResponse struct {
	Workout
	// TotalForActivity is the series length after the add,
	// shown as feedback in the logging form
	TotalForActivity int `json:"totalForActivity"`
}

type ListResponse struct {
	Workouts []Workout `json:"workouts"`
	Total    int       `json:"total"`
}

type ActivitiesResponse struct {
	Activities []string `json:"activities"`
}

type SeriesResponse struct {
	Activity string    `json:"activity"`
	Metric   string    `json:"metric"`
	Workouts []Workout `json:"workouts"`
}

type NoDataResponse struct {
	Message string `json:"message"`
}

type Handler struct {
	repo           workoutsRepo
	analyzer       *Analyzer
	metricsManager *metrics.Manager
}

func NewHandler(repo workoutsRepo, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:           repo,
		analyzer:       NewAnalyzer(repo),
		metricsManager: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/workouts", handler.HandleAdd).Methods("POST", "OPTIONS").Name("new-workout")
	router.HandleFunc("/workouts/list", handler.HandleList).Methods("GET", "OPTIONS").Name("list-workouts")
	router.HandleFunc("/workouts/activities", handler.HandleActivities).Methods("GET", "OPTIONS").Name("list-activities")
	router.HandleFunc("/workouts/activity/{activity}/series", handler.HandleSeries).Methods("GET", "OPTIONS").Name("activity-series")
	router.HandleFunc("/workouts/activity/{activity}/summary", handler.HandleSummary).Methods("GET", "OPTIONS").Name("activity-summary")
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.add")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var workout Workout
	if err := json.NewDecoder(r.Body).Decode(&workout); err != nil {
		log.Tracef("new workout, unmarshal json params: %s", err)
		http.Error(w, "add workout failed", http.StatusBadRequest)
		return
	}

	// the logging form defaults the date to today
	if workout.Date.IsZero() {
		workout.Date = time.Now()
	}

	if err := workout.Normalize().Validate(); err != nil {
		log.Tracef("new workout rejected: %s", err)
		http.Error(w, "error, activity and metric cannot be empty, value must not be negative", http.StatusBadRequest)
		return
	}

	addedWorkout, err := handler.repo.Append(ctx, workout)
	if err != nil {
		log.Errorf("failed to add new workout [%s]: %s", workout.Activity, err)
		http.Error(w, "error, failed to save new workout", http.StatusInternalServerError)
		return
	}

	handler.metricsManager.CounterWorkoutsLogged.Inc()

	series, err := handler.analyzer.ActivitySeries(ctx, addedWorkout.Activity)
	if err != nil {
		// just log the error, no need to return error to the client
		log.Errorf("failed to get series for [%s]: %s", addedWorkout.Activity, err)
	}

	addWorkoutResponse := AddWorkoutResponse{
		Workout:          *addedWorkout,
		TotalForActivity: len(series),
	}

	addedWorkoutJson, err := json.Marshal(addWorkoutResponse)
	if err != nil {
		log.Errorf("failed to marshal new workout: %s", err)
		http.Error(w, "error, failed to save new workout", http.StatusInternalServerError)
		return
	}

	log.Debugf("new workout added: %s", addedWorkoutJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedWorkoutJson, http.StatusCreated)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.list")
	defer span.End()

	all, err := handler.repo.ListAll(ctx)
	if err != nil {
		if !errors.Is(err, ErrFileUnreadable) {
			log.Errorf("list workouts error: %s", err)
			http.Error(w, "failed to get workouts", http.StatusInternalServerError)
			return
		}
		// unreadable file degrades to an empty log
		log.Errorf("list workouts, unreadable file: %s", err)
		all = nil
	}

	// full log view shows the most recent workouts first
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Date.After(all[j].Date)
	})

	listResponseJson, err := json.Marshal(ListResponse{
		Workouts: all,
		Total:    len(all),
	})
	if err != nil {
		log.Errorf("marshal workouts error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, listResponseJson, http.StatusOK)
}

func (handler *Handler) HandleActivities(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.activities")
	defer span.End()

	activities, err := handler.analyzer.DistinctActivities(ctx)
	if err != nil {
		if !errors.Is(err, ErrFileUnreadable) {
			log.Errorf("get activities error: %s", err)
			http.Error(w, "failed to get activities", http.StatusInternalServerError)
			return
		}
		log.Errorf("get activities, unreadable file: %s", err)
		activities = nil
	}

	activitiesJson, err := json.Marshal(ActivitiesResponse{
		Activities: activities,
	})
	if err != nil {
		log.Errorf("marshal activities error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, activitiesJson, http.StatusOK)
}

func (handler *Handler) HandleSeries(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.series")
	defer span.End()

	vars := mux.Vars(r)
	activity := vars["activity"]
	if activity == "" {
		http.Error(w, "error, activity empty", http.StatusBadRequest)
		return
	}

	series, err := handler.analyzer.ActivitySeries(ctx, activity)
	if err != nil {
		if !errors.Is(err, ErrFileUnreadable) {
			log.Errorf("get series for [%s] error: %s", activity, err)
			http.Error(w, "failed to get workout series", http.StatusInternalServerError)
			return
		}
		log.Errorf("get series for [%s], unreadable file: %s", activity, err)
		series = nil
	}

	seriesJson, err := json.Marshal(SeriesResponse{
		Activity: activity,
		Metric:   MetricLabel(series),
		Workouts: series,
	})
	if err != nil {
		log.Errorf("marshal series error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, seriesJson, http.StatusOK)
}

func (handler *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.summary")
	defer span.End()

	vars := mux.Vars(r)
	activity := vars["activity"]
	if activity == "" {
		http.Error(w, "error, activity empty", http.StatusBadRequest)
		return
	}

	summary, err := handler.analyzer.Summarize(ctx, activity)
	switch {
	case err == nil:
	case errors.Is(err, ErrInsufficientData):
		handler.writeNoData(w, activity)
		return
	case errors.Is(err, ErrFileUnreadable):
		log.Errorf("summary for [%s], unreadable file: %s", activity, err)
		handler.writeNoData(w, activity)
		return
	default:
		log.Errorf("summary for [%s] error: %s", activity, err)
		http.Error(w, "failed to get workout summary", http.StatusInternalServerError)
		return
	}

	summaryJson, err := json.Marshal(summary)
	if err != nil {
		log.Errorf("marshal summary error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, summaryJson, http.StatusOK)
}

// writeNoData tells the dashboard there is nothing to summarize yet.
// That is an informational message, not an error.
func (handler *Handler) writeNoData(w http.ResponseWriter, activity string) {
	noDataJson, err := json.Marshal(NoDataResponse{
		Message: fmt.Sprintf("no workouts logged for %s yet", activity),
	})
	if err != nil {
		log.Errorf("marshal no data response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, noDataJson, http.StatusOK)
}
