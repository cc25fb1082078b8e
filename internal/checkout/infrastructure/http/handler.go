package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/quickmart/checkout-engine/internal/checkout/application"
	"github.com/quickmart/checkout-engine/internal/checkout/domain"
)

type Handler struct {
	log          *slog.Logger
	carts        *application.CartService
	reservations *application.ReservationService
	settlements  *application.SettlementService
	alerts       *application.AlertService
	tracer       trace.Tracer
}

func NewHandler(log *slog.Logger, carts *application.CartService, reservations *application.ReservationService, settlements *application.SettlementService, alerts *application.AlertService) *Handler {
	return &Handler{
		log:          log,
		carts:        carts,
		reservations: reservations,
		settlements:  settlements,
		alerts:       alerts,
		tracer:       otel.Tracer("checkout-http"),
	}
}

func (h *Handler) Cart() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.viewCart)
	r.Post("/", h.putCartLine)
	r.Patch("/{productID}", h.updateCartLine)
	r.Delete("/{productID}", h.removeCartLine)
	return r
}

func (h *Handler) Checkout() http.Handler {
	r := chi.NewRouter()
	r.Post("/reserve", h.reserve)
	r.Post("/confirm", h.confirm)
	return r
}

func (h *Handler) Admin() http.Handler {
	r := chi.NewRouter()
	r.Get("/low-stock-alerts", h.listAlerts)
	r.Post("/low-stock-alerts/{id}/ack", h.ackAlert)
	return r
}

type cartItemResp struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Stock     int    `json:"stock"`
	Qty       int    `json:"qty"`
}

func (h *Handler) viewCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.carts.View(r.Context(), UserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	items := make([]cartItemResp, 0, len(view.Items))
	for _, it := range view.Items {
		items = append(items, cartItemResp{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.PriceCents,
			Stock:     it.Stock,
			Qty:       it.Qty,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": view.TotalCents})
}

type putLineReq struct {
	ProductID string `json:"productId"`
	Qty       int    `json:"qty"`
}

func (h *Handler) putCartLine(w http.ResponseWriter, r *http.Request) {
	var req putLineReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		writeErrorCode(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if err := h.carts.Put(r.Context(), UserID(r.Context()), req.ProductID, req.Qty); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "item": map[string]any{"productId": req.ProductID, "qty": req.Qty}})
}

func (h *Handler) updateCartLine(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	var req struct {
		Qty int `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if err := h.carts.UpdateQty(r.Context(), UserID(r.Context()), productID, req.Qty); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "item": map[string]any{"productId": productID, "qty": req.Qty}})
}

func (h *Handler) removeCartLine(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if err := h.carts.Remove(r.Context(), UserID(r.Context()), productID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type reserveReq struct {
	Address        string `json:"address"`
	ShippingMethod string `json:"shippingMethod"`
}

func (h *Handler) reserve(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Reserve")
	defer span.End()

	var req reserveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Address) < 5 || len(req.ShippingMethod) < 2 {
		writeErrorCode(w, http.StatusBadRequest, "invalid_body")
		return
	}

	receipt, err := h.reservations.Create(ctx, UserID(ctx), req.Address, req.ShippingMethod)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reservationId": receipt.ReservationID,
		"expiresAt":     receipt.ExpiresAt.Format(time.RFC3339),
	})
}

type confirmReq struct {
	ReservationID string `json:"reservationId"`
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Confirm")
	defer span.End()

	var req confirmReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ReservationID == "" {
		writeErrorCode(w, http.StatusBadRequest, "invalid_body")
		return
	}

	result, err := h.settlements.Settle(ctx, req.ReservationID, UserID(ctx))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orderId": result.OrderID, "status": "created"})
}

type alertResp struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	Stock     int       `json:"stock"`
	Threshold int       `json:"threshold"`
	Processed bool      `json:"processed"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	var processed *bool
	if v := r.URL.Query().Get("processed"); v != "" {
		b := v == "true"
		processed = &b
	}
	alerts, err := h.alerts.List(r.Context(), processed)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]alertResp, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, alertResp{
			ID:        a.ID,
			ProductID: a.ProductID,
			Stock:     a.Stock,
			Threshold: a.Threshold,
			Processed: a.Processed,
			CreatedAt: a.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) ackAlert(w http.ResponseWriter, r *http.Request) {
	if err := h.alerts.Acknowledge(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// writeError maps the domain taxonomy onto HTTP: validation 400, conflicts
// 409, expiry 410 (Gone), unknowns an opaque 500.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var insufficient domain.InsufficientStockError
	switch {
	case errors.Is(err, domain.ErrCartEmpty),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrCartLineGone),
		errors.Is(err, domain.ErrReservationNotFound),
		errors.Is(err, domain.ErrReservationInactive):
		writeErrorCode(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrReservationExpired):
		writeErrorCode(w, http.StatusGone, err.Error())
	case errors.As(err, &insufficient):
		writeErrorCode(w, http.StatusConflict, insufficient.Error())
	case errors.Is(err, domain.ErrAlertNotFound):
		writeErrorCode(w, http.StatusNotFound, err.Error())
	default:
		h.log.Error("request failed", "err", err)
		writeErrorCode(w, http.StatusInternalServerError, "internal_error")
	}
}

func writeErrorCode(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
