package healthreport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/noble-hunt/axle/internal/telemetry/tracing"
	"github.com/noble-hunt/axle/pkg"
	log "github.com/sirupsen/logrus"
)

const defaultListDays = 7

type reportsRepo interface {
	GetForDay(ctx context.Context, userID string, day time.Time) (*HealthReport, error)
	ListRecent(ctx context.Context, userID string, days int) ([]HealthReport, error)
}

type Handler struct {
	repo reportsRepo
}

func NewHandler(repo reportsRepo) *Handler {
	return &Handler{repo: repo}
}

func (handler *Handler) HandleGetToday(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "healthReportHandler.getToday")
	defer span.End()

	vars := mux.Vars(r)
	userID := vars["userId"]
	if userID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}

	report, err := handler.repo.GetForDay(ctx, userID, time.Now())
	if err != nil {
		if errors.Is(err, ErrReportNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		log.Errorf("get health report for today, user %s: %s", userID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	reportJson, err := json.Marshal(report)
	if err != nil {
		log.Errorf("marshal health report: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(reportJson))
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "healthReportHandler.list")
	defer span.End()

	vars := mux.Vars(r)
	userID := vars["userId"]
	if userID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}

	days := defaultListDays
	if daysParam := r.URL.Query().Get("days"); daysParam != "" {
		parsedDays, err := strconv.Atoi(daysParam)
		if err != nil || parsedDays <= 0 {
			http.Error(w, "error, days invalid", http.StatusBadRequest)
			return
		}
		days = parsedDays
	}

	reports, err := handler.repo.ListRecent(ctx, userID, days)
	if err != nil {
		log.Errorf("list health reports, user %s: %s", userID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if reports == nil {
		reports = []HealthReport{}
	}

	reportsJson, err := json.Marshal(reports)
	if err != nil {
		log.Errorf("marshal health reports: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(reportsJson))
}
