package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/auth"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
)

// Handler handles HTTP requests for the application.
type Handler struct {
	orderSvc     *service.OrderService
	inventorySvc *service.InventoryService
	identity     auth.IdentityProvider
	logger       *zap.Logger
}

func NewHandler(orderSvc *service.OrderService, inventorySvc *service.InventoryService, identity auth.IdentityProvider, logger *zap.Logger) *Handler {
	return &Handler{
		orderSvc:     orderSvc,
		inventorySvc: inventorySvc,
		identity:     identity,
		logger:       logger,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handleHealth)

	mux.HandleFunc("GET /api/products", h.authenticated(h.handleListProducts))
	mux.HandleFunc("GET /api/products/{productID}/availability", h.authenticated(h.handleAvailability))
	mux.HandleFunc("POST /api/stores", h.authenticated(h.handleCreateStore))
	mux.HandleFunc("PUT /api/stock", h.authenticated(h.handleSetStock))

	mux.HandleFunc("POST /api/orders", h.authenticated(h.handleCheckout))
	mux.HandleFunc("POST /api/tenants/{tenantID}/guest-orders", h.handleGuestCheckout)
	mux.HandleFunc("GET /api/orders", h.authenticated(h.handleListTenantOrders))
	mux.HandleFunc("GET /api/orders/mine", h.authenticated(h.handleListMyOrders))
	mux.HandleFunc("GET /api/orders/{orderID}", h.authenticated(h.handleGetOrder))
	mux.HandleFunc("GET /api/orders/{orderID}/history", h.authenticated(h.handleOrderHistory))
	mux.HandleFunc("PATCH /api/orders/{orderID}/status", h.authenticated(h.handleSetStatus))
	mux.HandleFunc("DELETE /api/orders/{orderID}", h.authenticated(h.handleDeleteOrder))
}

// authenticated resolves the caller and rejects anonymous requests.
func (h *Handler) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok, err := h.identity.Identify(r)
		if err == nil && !ok {
			err = entity.NewUnauthenticated("authentication required")
		}
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		next(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	}
}

func caller(r *http.Request) entity.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.inventorySvc.ListProducts(r.Context(), caller(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) handleAvailability(w http.ResponseWriter, r *http.Request) {
	rows, err := h.inventorySvc.Availability(r.Context(), caller(r), r.PathValue("productID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

type CreateStoreRequest struct {
	Name    string `json:"name"`
	City    string `json:"city"`
	Address string `json:"address"`
}

func (h *Handler) handleCreateStore(w http.ResponseWriter, r *http.Request) {
	var req CreateStoreRequest
	if !h.decode(w, r, &req) {
		return
	}
	store, err := h.inventorySvc.CreateStore(r.Context(), caller(r), req.Name, req.City, req.Address)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, store)
}

func (h *Handler) handleSetStock(w http.ResponseWriter, r *http.Request) {
	var req entity.SetStockRequest
	if !h.decode(w, r, &req) {
		return
	}
	level, err := h.inventorySvc.SetStock(r.Context(), caller(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, level)
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req entity.CheckoutRequest
	if !h.decode(w, r, &req) {
		return
	}
	order, err := h.orderSvc.Checkout(r.Context(), caller(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) handleGuestCheckout(w http.ResponseWriter, r *http.Request) {
	var req entity.GuestCheckoutRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.TenantID = r.PathValue("tenantID")

	order, err := h.orderSvc.GuestCheckout(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) handleListTenantOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderSvc.ListTenant(r.Context(), caller(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) handleListMyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderSvc.ListMine(r.Context(), caller(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderSvc.Get(r.Context(), caller(r), r.PathValue("orderID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	events, err := h.orderSvc.History(r.Context(), caller(r), r.PathValue("orderID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

type SetStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req SetStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	order, err := h.orderSvc.SetStatus(r.Context(), caller(r), r.PathValue("orderID"), req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orderSvc.Delete(r.Context(), caller(r), r.PathValue("orderID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		h.writeError(w, r, entity.NewValidation("invalid request body: %v", err))
		return false
	}
	return true
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	ProductID string `json:"product_id,omitempty"`
	Available *int   `json:"available,omitempty"`
	Requested *int   `json:"requested,omitempty"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind entity.ErrorKind) int {
	switch kind {
	case entity.KindValidation, entity.KindInvalidStatusValue:
		return http.StatusBadRequest
	case entity.KindUnauthenticated:
		return http.StatusUnauthorized
	case entity.KindForbidden, entity.KindTenantMismatch:
		return http.StatusForbidden
	case entity.KindProductNotFound, entity.KindOrderNotFound, entity.KindStoreNotFound:
		return http.StatusNotFound
	case entity.KindInsufficientStock, entity.KindInvalidTransition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var de *entity.Error
	if !errors.As(err, &de) {
		h.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "INTERNAL", Message: "internal server error"})
		return
	}

	resp := ErrorResponse{Error: de.Kind.String(), Message: de.Message}
	if s := de.Shortage; s != nil {
		resp.ProductID = s.ProductID
		resp.Available = &s.Available
		resp.Requested = &s.Requested
	}
	writeJSON(w, StatusFor(de.Kind), resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// EnableCORS is a middleware to allow browser frontends to connect.
func EnableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+auth.HeaderAccountID+", "+auth.HeaderTenantID+", "+auth.HeaderRole)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
