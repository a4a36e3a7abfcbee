package suggestion

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/noble-hunt/axle/internal/telemetry/tracing"
	"github.com/noble-hunt/axle/pkg"
)

type StartSuggestionRequest struct {
	WorkoutID int `json:"workoutId"`
}

type StartSuggestionResponse struct {
	StartedID int `json:"startedId"`
	WorkoutID int `json:"workoutId"`
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

// HandleGetToday returns today's suggestion for a user, computing it on
// demand when the daily job has not run yet.
func (handler *Handler) HandleGetToday(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.suggestion.getToday")
	defer span.End()

	vars := mux.Vars(r)
	userID := vars["userId"]
	if userID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}

	suggested, err := handler.service.GetOrCreateToday(ctx, userID)
	if err != nil {
		log.Errorf("get or create today's suggestion for %s: %s", userID, err)
		http.Error(w, "get suggestion failed", http.StatusInternalServerError)
		return
	}

	suggestedJson, err := json.Marshal(suggested)
	if err != nil {
		log.Errorf("marshal suggestion: %s", err)
		http.Error(w, "get suggestion failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(suggestedJson))
}

func (handler *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.suggestion.start")
	defer span.End()

	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "error, invalid suggestion id", http.StatusBadRequest)
		return
	}

	var startReq StartSuggestionRequest
	if err := json.NewDecoder(r.Body).Decode(&startReq); err != nil {
		log.Tracef("start suggestion, unmarshal json params: %s", err)
		http.Error(w, "start suggestion failed", http.StatusBadRequest)
		return
	}
	if startReq.WorkoutID <= 0 {
		http.Error(w, "error, workout id invalid", http.StatusBadRequest)
		return
	}

	if err := handler.service.Start(ctx, id, startReq.WorkoutID); err != nil {
		if errors.Is(err, ErrSuggestionNotFound) {
			http.Error(w, "suggestion not found", http.StatusNotFound)
			return
		}
		log.Errorf("start suggestion %d: %s", id, err)
		http.Error(w, "start suggestion failed", http.StatusInternalServerError)
		return
	}

	resp, err := json.Marshal(StartSuggestionResponse{
		StartedID: id,
		WorkoutID: startReq.WorkoutID,
	})
	if err != nil {
		log.Errorf("marshal start suggestion response: %s", err)
		http.Error(w, "start suggestion failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(resp))
}
