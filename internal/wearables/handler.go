package wearables

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/noble-hunt/axle/internal/telemetry/tracing"
	"github.com/noble-hunt/axle/pkg"
	log "github.com/sirupsen/logrus"
)

type connectionsRepo interface {
	Add(ctx context.Context, conn Connection) (*Connection, error)
	ListForUser(ctx context.Context, userID string) ([]Connection, error)
	Disconnect(ctx context.Context, userID, provider string) error
}

type Handler struct {
	repo     connectionsRepo
	registry *Registry
}

func NewHandler(repo connectionsRepo, registry *Registry) *Handler {
	return &Handler{repo: repo, registry: registry}
}

type connectRequest struct {
	Provider    string `json:"provider"`
	AccessToken string `json:"accessToken"`
}

func (handler *Handler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "wearablesHandler.connect")
	defer span.End()

	vars := mux.Vars(r)
	userID := vars["userId"]
	if userID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}

	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warnf("connect wearable, decode request: %s", err)
		http.Error(w, "error, invalid request", http.StatusBadRequest)
		return
	}

	req.Provider = strings.ToLower(strings.TrimSpace(req.Provider))
	if _, err := handler.registry.Get(req.Provider); err != nil {
		http.Error(w, "error, unknown provider", http.StatusBadRequest)
		return
	}
	if req.AccessToken == "" {
		http.Error(w, "error, access token empty", http.StatusBadRequest)
		return
	}

	added, err := handler.repo.Add(ctx, Connection{
		UserID:      userID,
		Provider:    req.Provider,
		AccessToken: req.AccessToken,
	})
	if err != nil {
		log.Errorf("connect wearable %s for user %s: %s", req.Provider, userID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	addedJson, err := json.Marshal(added)
	if err != nil {
		log.Errorf("marshal wearable connection: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponse(w, http.StatusCreated, string(addedJson))
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "wearablesHandler.list")
	defer span.End()

	vars := mux.Vars(r)
	userID := vars["userId"]
	if userID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}

	connections, err := handler.repo.ListForUser(ctx, userID)
	if err != nil {
		log.Errorf("list wearables for user %s: %s", userID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if connections == nil {
		connections = []Connection{}
	}

	connectionsJson, err := json.Marshal(connections)
	if err != nil {
		log.Errorf("marshal wearable connections: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(connectionsJson))
}

func (handler *Handler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "wearablesHandler.disconnect")
	defer span.End()

	vars := mux.Vars(r)
	userID := vars["userId"]
	provider := vars["provider"]
	if userID == "" || provider == "" {
		http.Error(w, "error, user id or provider empty", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Disconnect(ctx, userID, provider); err != nil {
		if errors.Is(err, ErrConnectionNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		log.Errorf("disconnect wearable %s for user %s: %s", provider, userID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, "disconnected")
}
