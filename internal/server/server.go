// Package server exposes the search pipeline and durable collections over
// HTTP for the portal frontend.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haneul-dev/addrsearch/internal/core/domain"
	"github.com/haneul-dev/addrsearch/internal/search"
	"github.com/haneul-dev/addrsearch/internal/search/classify"
	"github.com/haneul-dev/addrsearch/internal/search/monitor"
	"github.com/haneul-dev/addrsearch/internal/store"
)

// Deps are the constructed collaborators the handlers work against.
type Deps struct {
	Pipeline *search.Pipeline
	Store    *store.Manager
	Monitor  *monitor.Monitor
	Logger   *slog.Logger
}

// New builds the API handler.
func New(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/address/search", handleSearch(deps))

		r.Get("/history", handleListHistory(deps))
		r.Delete("/history", handleClearHistory(deps))
		r.Delete("/history/{id}", handleDeleteHistory(deps))

		r.Get("/favorites", handleListFavorites(deps))
		r.Post("/favorites", handleAddFavorite(deps))
		r.Delete("/favorites/{id}", handleDeleteFavorite(deps))
		r.Patch("/favorites/{id}", handleUpdateFavorite(deps))
		r.Post("/favorites/{id}/use", handleUseFavorite(deps))

		r.Get("/settings", handleGetSettings(deps))
		r.Patch("/settings", handlePatchSettings(deps))

		r.Get("/stats", handleStats(deps))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

type searchResponse struct {
	Results []domain.AddressResult `json:"results"`
	Metric  domain.SearchMetric    `json:"metric"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Kind       string `json:"kind,omitempty"`
	Retryable  bool   `json:"retryable"`
	UserAction string `json:"userAction,omitempty"`
}

func handleSearch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("query")
		if query == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query is required"})
			return
		}

		size := 10
		if raw := r.URL.Query().Get("size"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 || parsed > 30 {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "size must be between 1 and 30"})
				return
			}
			size = parsed
		}

		mode := domain.ModeAddress
		if raw := r.URL.Query().Get("mode"); raw != "" {
			mode = domain.SearchMode(raw)
		}

		out, err := deps.Pipeline.Run(r.Context(), query, size, mode)
		if err != nil {
			writeSearchError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, searchResponse{Results: out.Results, Metric: out.Metric})
	}
}

func handleListHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items := deps.Store.History(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	}
}

func handleClearHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Store.ClearHistory(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleDeleteHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Store.RemoveHistory(r.Context(), chi.URLParam(r, "id"))
		w.WriteHeader(http.StatusNoContent)
	}
}

type addFavoriteRequest struct {
	Address  domain.AddressResult `json:"address"`
	Nickname string               `json:"nickname"`
	Category string               `json:"category"`
}

func handleListFavorites(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"items": deps.Store.Favorites(r.Context())})
	}
}

func handleAddFavorite(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addFavoriteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid body: %v", err)})
			return
		}
		if req.Address.FormattedName == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "address.formattedName is required"})
			return
		}
		if !deps.Store.AddFavorite(r.Context(), req.Address, req.Nickname, req.Category) {
			writeJSON(w, http.StatusConflict, errorResponse{Error: "address is already a favorite"})
			return
		}
		w.WriteHeader(http.StatusCreated)
	}
}

func handleDeleteFavorite(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Store.RemoveFavorite(r.Context(), chi.URLParam(r, "id"))
		w.WriteHeader(http.StatusNoContent)
	}
}

type updateFavoriteRequest struct {
	Nickname *string `json:"nickname"`
	Category *string `json:"category"`
}

func handleUpdateFavorite(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateFavoriteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid body: %v", err)})
			return
		}
		if !deps.Store.UpdateFavorite(r.Context(), chi.URLParam(r, "id"), req.Nickname, req.Category) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "favorite not found"})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleUseFavorite(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Store.IncrementUseCount(r.Context(), chi.URLParam(r, "id"))
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleGetSettings(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Store.Settings(r.Context()))
	}
}

func handlePatchSettings(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch domain.SettingsPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid body: %v", err)})
			return
		}
		writeJSON(w, http.StatusOK, deps.Store.UpdateSettings(r.Context(), patch))
	}
}

func handleStats(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"statistics": deps.Monitor.Statistics(),
			"issues":     deps.Monitor.PerformanceIssues(),
			"quota":      deps.Store.EstimateQuota(r.Context()),
		})
	}
}

// writeSearchError renders a classified failure. No search failure is fatal:
// the payload always carries a plain-language message the frontend can show,
// plus the retryable flag for a manual retry control.
func writeSearchError(w http.ResponseWriter, err error) {
	var serr *classify.SearchError
	if !errors.As(err, &serr) {
		serr = classify.Classify(err)
	}

	status := http.StatusBadGateway
	switch serr.Kind {
	case classify.KindRateLimited:
		status = http.StatusTooManyRequests
	case classify.KindInvalidCredential:
		status = http.StatusBadGateway // our credential, not the caller's
	case classify.KindNoResults:
		status = http.StatusNotFound
	case classify.KindCancelled:
		status = 499 // client closed request
	case classify.KindTimeout:
		status = http.StatusGatewayTimeout
	}

	writeJSON(w, status, errorResponse{
		Error:      serr.Message,
		Kind:       string(serr.Kind),
		Retryable:  serr.Retryable,
		UserAction: serr.UserAction,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
