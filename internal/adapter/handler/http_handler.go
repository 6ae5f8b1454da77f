package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rl1809/retail-fulfillment/internal/core/domain"
	"github.com/rl1809/retail-fulfillment/internal/core/service"
)

type HTTPHandler struct {
	orderService *service.OrderService
	ledger       *service.StockLedger
	checker      *service.AvailabilityChecker
	logger       *zap.Logger
}

type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type StockItemsRequest struct {
	Items []domain.StockItem `json:"items"`
}

type RestockRequest struct {
	Quantity int `json:"quantity"`
}

type LineItemRequest struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	ProductCode string          `json:"product_code"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

type CheckoutRequest struct {
	OrderNumber     string            `json:"order_number"`
	UserID          string            `json:"user_id"`
	CustomerEmail   string            `json:"customer_email"`
	Items           []LineItemRequest `json:"items"`
	ShippingAddress domain.Address    `json:"shipping_address"`
	BillingAddress  *domain.Address   `json:"billing_address"`
	PaymentMethod   string            `json:"payment_method"`
	Total           decimal.Decimal   `json:"total"`
}

type CheckoutResponse struct {
	OrderID     string             `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	Status      domain.OrderStatus `json:"status"`
	Subtotal    decimal.Decimal    `json:"subtotal"`
	Total       decimal.Decimal    `json:"total"`
}

func NewHTTPHandler(orderService *service.OrderService, ledger *service.StockLedger, checker *service.AvailabilityChecker, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{
		orderService: orderService,
		ledger:       ledger,
		checker:      checker,
		logger:       logger,
	}
}

func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(traceRequests)

	r.Get("/health", h.HealthCheck)

	r.Route("/api/stock", func(r chi.Router) {
		r.Post("/validate", h.ValidateStock)
		r.Post("/reduce", h.ReduceStock)
		r.Post("/{productID}/restock", h.Restock)
		r.Get("/low", h.LowStock)
		r.Get("/out", h.OutOfStock)
	})

	r.Route("/api/orders", func(r chi.Router) {
		r.Post("/", h.Checkout)
		r.Post("/{orderID}/dispatch", h.Dispatch)
		r.Get("/{orderID}/tracking", h.Track)
		r.Post("/{orderID}/cancel-shipment", h.CancelShipment)
	})

	return r
}

func (h *HTTPHandler) ValidateStock(w http.ResponseWriter, r *http.Request) {
	var req StockItemsRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.checker.Validate(r.Context(), req.Items); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "stock validation passed"})
}

func (h *HTTPHandler) ReduceStock(w http.ResponseWriter, r *http.Request) {
	var req StockItemsRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.ledger.CommitReduction(r.Context(), req.Items); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "stock reduced successfully"})
}

func (h *HTTPHandler) Restock(w http.ResponseWriter, r *http.Request) {
	var req RestockRequest
	if !h.decode(w, r, &req) {
		return
	}

	productID := chi.URLParam(r, "productID")
	if err := h.ledger.Restock(r.Context(), productID, req.Quantity); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "stock updated"})
}

func (h *HTTPHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	threshold := 0
	if v := r.URL.Query().Get("threshold"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, APIResponse{Success: false, Message: "threshold must be a positive integer"})
			return
		}
		threshold = n
	}

	records, err := h.ledger.LowStock(r.Context(), threshold)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "ok", Data: stockView(records)})
}

func (h *HTTPHandler) OutOfStock(w http.ResponseWriter, r *http.Request) {
	records, err := h.ledger.OutOfStock(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "ok", Data: stockView(records)})
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if !h.decode(w, r, &req) {
		return
	}

	order := req.toOrder()
	if err := h.orderService.Checkout(r.Context(), order); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Message: "order placed successfully",
		Data: CheckoutResponse{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Status:      order.Status,
			Subtotal:    order.Subtotal,
			Total:       order.Total,
		},
	})
}

func (h *HTTPHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	record, err := h.orderService.DispatchOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "shipment created", Data: record})
}

func (h *HTTPHandler) Track(w http.ResponseWriter, r *http.Request) {
	info, err := h.orderService.TrackOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "ok", Data: info})
}

func (h *HTTPHandler) CancelShipment(w http.ResponseWriter, r *http.Request) {
	info, err := h.orderService.CancelOrderShipment(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "shipment cancelled", Data: info})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, APIResponse{
			Success: false,
			Message: "invalid request body",
		})
		return false
	}
	return true
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"
	var data any

	var shortage *domain.InsufficientStockError
	switch {
	case errors.As(err, &shortage):
		status = http.StatusConflict
		message = err.Error()
		data = shortage.Items
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrProductNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, domain.ErrStockReduction), errors.Is(err, domain.ErrDispatchInProgress):
		status = http.StatusConflict
		message = err.Error()
	case errors.Is(err, domain.ErrCarrierAuth), errors.Is(err, domain.ErrDispatch):
		status = http.StatusBadGateway
		message = err.Error()
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	}

	writeJSON(w, status, APIResponse{Success: false, Message: message, Data: data})
}

func (req CheckoutRequest) toOrder() *domain.Order {
	items := make([]domain.OrderLineItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, domain.NewOrderLineItem(it.ProductID, it.ProductName, it.ProductCode, it.Quantity, it.Price))
	}

	billing := req.ShippingAddress
	if req.BillingAddress != nil {
		billing = *req.BillingAddress
	}

	return &domain.Order{
		OrderNumber:     req.OrderNumber,
		UserID:          req.UserID,
		CustomerEmail:   req.CustomerEmail,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  billing,
		PaymentMethod:   domain.PaymentMethod(req.PaymentMethod),
		Total:           req.Total,
	}
}

type stockRecordView struct {
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	Code           string `json:"code"`
	AvailableStock int    `json:"stock"`
	QuantitySold   int    `json:"quantity_sold"`
}

func stockView(records []domain.StockRecord) []stockRecordView {
	out := make([]stockRecordView, 0, len(records))
	for _, rec := range records {
		out = append(out, stockRecordView{
			ProductID:      rec.ProductID,
			Name:           rec.ProductName,
			Code:           rec.ProductCode,
			AvailableStock: rec.AvailableStock,
			QuantitySold:   rec.QuantitySold,
		})
	}
	return out
}

// traceRequests opens a server span per request, continuing any trace the
// caller propagated.
func traceRequests(next http.Handler) http.Handler {
	tracer := otel.Tracer("github.com/rl1809/retail-fulfillment/handler")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
			),
		)
		defer span.End()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))
		span.SetAttributes(attribute.Int("http.response.status_code", ww.Status()))
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
