package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/utafrali/MarketplaceGo/internal/service"
	"github.com/utafrali/MarketplaceGo/pkg/httputil"
)

// SettlementHandler handles HTTP requests for vendor settlement reports.
type SettlementHandler struct {
	service *service.SettlementService
	logger  *slog.Logger
}

// NewSettlementHandler creates a new settlement HTTP handler.
func NewSettlementHandler(svc *service.SettlementService, logger *slog.Logger) *SettlementHandler {
	return &SettlementHandler{
		service: svc,
		logger:  logger,
	}
}

// GetSettlement handles GET /api/v1/settlement
//
// Query parameters: vendor_id (optional for admins, forced for vendors),
// period (daily|weekly|monthly|yearly), from and to as RFC 3339 timestamps.
func (h *SettlementHandler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()

	period := q.Get("period")
	if period == "" {
		period = "daily"
	}

	from, err := time.Parse(time.RFC3339, q.Get("from"))
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "from must be an RFC 3339 timestamp"},
		})
		return
	}
	to, err := time.Parse(time.RFC3339, q.Get("to"))
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "to must be an RFC 3339 timestamp"},
		})
		return
	}

	buckets, err := h.service.VendorSettlement(r.Context(), principal, q.Get("vendor_id"), period, from, to)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: buckets})
}
