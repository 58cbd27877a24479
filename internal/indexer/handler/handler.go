// Package handler serves the reindex endpoint. Requests run synchronously
// against the collection registry, or are queued on the reindex topic when
// the caller asks for async handling and a producer is configured.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/fts/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/logger"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	updater  consumer.Updater
	queue    kafka.Publisher
	onUpdate func(ctx context.Context, res *indexer.UpdateResult)
	logger   *slog.Logger
}

// New builds the handler. queue may be nil, in which case async requests
// are run inline. onUpdate, if set, runs after every synchronous update.
func New(updater consumer.Updater, queue kafka.Publisher, onUpdate func(ctx context.Context, res *indexer.UpdateResult)) *Handler {
	return &Handler{
		updater:  updater,
		queue:    queue,
		onUpdate: onUpdate,
		logger:   slog.Default().With("component", "index-handler"),
	}
}

func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req ReindexRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := ValidateReindexRequest(&req); err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Async && h.queue != nil {
		event := consumer.ReindexEvent{
			Kind:        req.Kind,
			Namespace:   req.Namespace,
			IDs:         req.IDs,
			All:         req.All,
			RequestedAt: time.Now().UTC(),
		}
		if err := h.queue.Publish(ctx, kafka.Event{Key: req.Kind, Value: event}); err != nil {
			log.Error("failed to queue reindex request", "kind", req.Kind, "error", err)
			h.writeError(w, http.StatusServiceUnavailable, "reindex queue unavailable")
			return
		}
		log.Info("reindex request queued", "kind", req.Kind, "namespace", req.Namespace, "id_count", len(req.IDs))
		h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
		return
	}

	res, err := h.updater.UpdateIndex(ctx, index.Scope{Kind: req.Kind, Namespace: req.Namespace, IDs: req.IDs})
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		log.Error("reindex failed", "kind", req.Kind, "error", err, "status_code", status)
		h.writeError(w, status, err.Error())
		return
	}
	if h.onUpdate != nil {
		h.onUpdate(ctx, res)
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
