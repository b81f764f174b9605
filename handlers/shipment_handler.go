package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/harborline/shipment-tracker/internal/listview"
	"github.com/harborline/shipment-tracker/middleware"
	"github.com/harborline/shipment-tracker/models"
	"github.com/harborline/shipment-tracker/services"
	"github.com/harborline/shipment-tracker/utils"
)

// ShipmentLister is the service contract the shipment handler depends on
type ShipmentLister interface {
	ListShipments(ctx context.Context, email string) ([]*models.ShipmentSummary, error)
	GetShipment(ctx context.Context, email, id string) (*services.ShipmentDetail, error)
}

// ShipmentHandler handles the shipment read endpoints
type ShipmentHandler struct {
	service ShipmentLister
	logger  *zap.Logger
}

// NewShipmentHandler creates a new shipment handler
func NewShipmentHandler(service ShipmentLister, logger *zap.Logger) *ShipmentHandler {
	return &ShipmentHandler{
		service: service,
		logger:  logger,
	}
}

// listQuery carries the optional presentation parameters of the list endpoint
type listQuery struct {
	Q    string `validate:"max=200"`
	Sort string `validate:"omitempty,oneof=reference route status eta last_event"`
	Dir  string `validate:"omitempty,oneof=asc desc"`
}

// listResponse is the list endpoint envelope
type listResponse struct {
	Data  []models.ShipmentSummary `json:"data"`
	Email string                   `json:"email"`
}

// List handles GET /api/v1/shipments
func (h *ShipmentHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentityFromContext(r.Context())
	if identity == nil {
		if err := utils.WriteUnauthorized(w, ""); err != nil {
			h.logger.Error("failed to write unauthorized response", zap.Error(err))
		}
		return
	}

	query := listQuery{
		Q:    r.URL.Query().Get("q"),
		Sort: r.URL.Query().Get("sort"),
		Dir:  r.URL.Query().Get("dir"),
	}
	if err := utils.ValidateStruct(query); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	summaries, err := h.service.ListShipments(r.Context(), identity.Email)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	rows := make([]models.ShipmentSummary, len(summaries))
	for i, summary := range summaries {
		rows[i] = *summary
	}

	rows = listview.Filter(rows, query.Q)
	if query.Sort != "" {
		key := listview.SortKey(query.Sort)
		dir := listview.Direction(query.Dir)
		if dir == "" {
			dir = listview.DefaultDirection(key)
		}
		rows = listview.Sort(rows, key, dir)
	}

	if err := utils.WriteJSON(w, http.StatusOK, listResponse{Data: rows, Email: identity.Email}); err != nil {
		h.logger.Error("failed to write shipment list response", zap.Error(err))
	}
}

// Get handles GET /api/v1/shipments/{id}
func (h *ShipmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentityFromContext(r.Context())
	if identity == nil {
		if err := utils.WriteUnauthorized(w, ""); err != nil {
			h.logger.Error("failed to write unauthorized response", zap.Error(err))
		}
		return
	}

	id := chi.URLParam(r, "id")

	detail, err := h.service.GetShipment(r.Context(), identity.Email, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteJSON(w, http.StatusOK, detail); err != nil {
		h.logger.Error("failed to write shipment detail response", zap.Error(err))
	}
}
