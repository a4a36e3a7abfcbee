package workout

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/noble-hunt/axle/internal/telemetry/tracing"
	"github.com/noble-hunt/axle/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=workouts_mocks_test.go -package=workout_test

type workoutsRepo interface {
	Add(ctx context.Context, w Workout) (*Workout, error)
	Get(ctx context.Context, id int) (*Workout, error)
	ListRecent(ctx context.Context, userID string, days int) ([]Workout, error)
}

type ListResponse struct {
	Workouts []Workout `json:"workouts"`
	Total    int       `json:"total"`
}

type Handler struct {
	repo     workoutsRepo
	analyzer *Analyzer
}

func NewHandler(repo workoutsRepo) *Handler {
	return &Handler{
		repo:     repo,
		analyzer: NewAnalyzer(repo),
	}
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.add")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var wo Workout
	if err := json.NewDecoder(r.Body).Decode(&wo); err != nil {
		log.Tracef("new workout, unmarshal json params: %s", err)
		http.Error(w, "add workout failed", http.StatusBadRequest)
		return
	}

	if wo.UserID == "" || !wo.Category.Valid() {
		http.Error(w, "error, user id or category invalid", http.StatusBadRequest)
		return
	}
	if wo.Intensity < 1 || wo.Intensity > 10 {
		http.Error(w, "error, intensity out of range", http.StatusBadRequest)
		return
	}
	if wo.CreatedAt.IsZero() {
		wo.CreatedAt = time.Now()
	}

	added, err := handler.repo.Add(ctx, wo)
	if err != nil {
		log.Errorf("failed to add workout: %s", err)
		http.Error(w, "add workout failed", http.StatusInternalServerError)
		return
	}

	addedJson, err := json.Marshal(added)
	if err != nil {
		log.Errorf("marshal added workout: %s", err)
		http.Error(w, "add workout failed", http.StatusInternalServerError)
		return
	}

	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	pkg.WriteResponseBytes(w, "", addedJson)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.list")
	defer span.End()

	vars := mux.Vars(r)
	userID := vars["userId"]
	if userID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}

	days := 14
	if daysParam := r.URL.Query().Get("days"); daysParam != "" {
		parsed, err := strconv.Atoi(daysParam)
		if err != nil || parsed <= 0 {
			http.Error(w, "error, invalid days param", http.StatusBadRequest)
			return
		}
		days = parsed
	}

	workouts, err := handler.repo.ListRecent(ctx, userID, days)
	if err != nil {
		log.Errorf("list workouts for %s: %s", userID, err)
		http.Error(w, "list workouts failed", http.StatusInternalServerError)
		return
	}
	if workouts == nil {
		workouts = []Workout{}
	}

	resp, err := json.Marshal(ListResponse{
		Workouts: workouts,
		Total:    len(workouts),
	})
	if err != nil {
		log.Errorf("marshal workouts list: %s", err)
		http.Error(w, "list workouts failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(resp))
}

func (handler *Handler) HandleTrends(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.trends")
	defer span.End()

	vars := mux.Vars(r)
	userID := vars["userId"]
	if userID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}

	trends, err := handler.analyzer.Trends(ctx, userID)
	if err != nil {
		log.Errorf("workout trends for %s: %s", userID, err)
		http.Error(w, "get trends failed", http.StatusInternalServerError)
		return
	}

	trendsJson, err := json.Marshal(trends)
	if err != nil {
		log.Errorf("marshal trends: %s", err)
		http.Error(w, "get trends failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(trendsJson))
}
