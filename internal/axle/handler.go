package axle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/noble-hunt/axle/internal/telemetry/tracing"
	"github.com/noble-hunt/axle/pkg"
	log "github.com/sirupsen/logrus"
)

type lastRunRepo interface {
	Last(ctx context.Context) (*JobRun, error)
}

// Handler serves the administrative daily-job endpoints: manual
// trigger and last-run inspection.
type Handler struct {
	runner  jobRunnerFunc
	jobRuns lastRunRepo
}

func NewHandler(runner jobRunnerFunc, jobRuns lastRunRepo) *Handler {
	return &Handler{runner: runner, jobRuns: jobRuns}
}

func (handler *Handler) HandleTrigger(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "axleHandler.trigger")
	defer span.End()

	result, err := handler.runner.Run(ctx)
	if err != nil {
		log.Errorf("trigger daily job: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	resultJson, err := json.Marshal(result)
	if err != nil {
		log.Errorf("marshal job result: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(resultJson))
}

func (handler *Handler) HandleLastRun(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "axleHandler.lastRun")
	defer span.End()

	run, err := handler.jobRuns.Last(ctx)
	if err != nil {
		if errors.Is(err, ErrJobRunNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		log.Errorf("get last job run: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	runJson, err := json.Marshal(run)
	if err != nil {
		log.Errorf("marshal job run: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(runJson))
}
