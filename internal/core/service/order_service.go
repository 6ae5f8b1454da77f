package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rl1809/retail-fulfillment/internal/core/domain"
	"github.com/rl1809/retail-fulfillment/internal/port"
)

const (
	dispatchLockPrefix     = "dispatch:"
	DefaultDispatchLockTTL = 2 * time.Minute
)

// OrderService drives an order from checkout to a carrier shipment. Stock is
// committed synchronously; dispatch happens off the queue or on demand.
type OrderService struct {
	checker       *AvailabilityChecker
	ledger        *StockLedger
	dispatcher    *ShipmentDispatcher
	orders        port.OrderRepository
	locks         port.LockRepository
	events        port.EventPublisher
	dispatchQueue chan string
	lockTTL       time.Duration
	logger        *zap.Logger
	tracer        trace.Tracer
}

type OrderServiceDeps struct {
	Checker    *AvailabilityChecker
	Ledger     *StockLedger
	Dispatcher *ShipmentDispatcher
	Orders     port.OrderRepository
	Locks      port.LockRepository
	Events     port.EventPublisher
	Logger     *zap.Logger
}

func NewOrderService(deps OrderServiceDeps, queueSize int, lockTTL time.Duration) *OrderService {
	if lockTTL <= 0 {
		lockTTL = DefaultDispatchLockTTL
	}
	return &OrderService{
		checker:       deps.Checker,
		ledger:        deps.Ledger,
		dispatcher:    deps.Dispatcher,
		orders:        deps.Orders,
		locks:         deps.Locks,
		events:        deps.Events,
		dispatchQueue: make(chan string, queueSize),
		lockTTL:       lockTTL,
		logger:        deps.Logger,
		tracer:        otel.Tracer("github.com/rl1809/retail-fulfillment/service"),
	}
}

// Checkout persists the order and commits its stock reduction. A confirmed
// order is queued for dispatch; if the queue is full it stays confirmed and
// can be dispatched later through DispatchOrder.
func (s *OrderService) Checkout(ctx context.Context, order *domain.Order) (err error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.Checkout")
	defer func() { endSpan(span, err) }()

	if err := validateLineItems(order.Items); err != nil {
		return err
	}
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.OrderNumber == "" {
		order.OrderNumber = newOrderNumber(order.ID)
	}
	order.RecalculateTotals()
	span.SetAttributes(attribute.String("order.id", order.ID), attribute.Int("order.items", len(order.Items)))

	items := order.StockItems()
	if err := s.checker.Validate(ctx, items); err != nil {
		return err
	}

	now := time.Now().UTC()
	order.Status = domain.OrderStatusPending
	order.CreatedAt = now
	order.UpdatedAt = now
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	// the pre-check above already ran, the ledger goes straight to the transaction
	if err := s.ledger.commit(ctx, items); err != nil {
		if statusErr := s.orders.UpdateStatus(context.WithoutCancel(ctx), order.ID, domain.OrderStatusFailed); statusErr != nil {
			s.logger.Error("failed to mark order failed", zap.String("order_id", order.ID), zap.Error(statusErr))
		}
		order.Status = domain.OrderStatusFailed
		return err
	}

	if err := s.orders.UpdateStatus(ctx, order.ID, domain.OrderStatusConfirmed); err != nil {
		s.logger.Error("CRITICAL stock committed but order not confirmed",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
		return fmt.Errorf("confirm order: %w", err)
	}
	order.Status = domain.OrderStatusConfirmed

	s.publish(ctx, domain.EventStockReduced, order.ID, items)

	select {
	case s.dispatchQueue <- order.ID:
	default:
		s.logger.Warn("dispatch queue full, order left confirmed", zap.String("order_id", order.ID))
	}

	return nil
}

// DispatchOrder ships a confirmed order. Only one dispatch per order runs at
// a time; a failure leaves the order confirmed for another attempt.
func (s *OrderService) DispatchOrder(ctx context.Context, orderID string) (record *domain.ShipmentRecord, err error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.DispatchOrder", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer func() { endSpan(span, err) }()

	key := dispatchLockPrefix + orderID
	owner := uuid.NewString()
	ok, err := s.locks.AcquireLock(ctx, key, owner, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire dispatch lock: %w", err)
	}
	if !ok {
		return nil, domain.ErrDispatchInProgress
	}
	defer func() {
		if err := s.locks.ReleaseLock(context.WithoutCancel(ctx), key, owner); err != nil {
			s.logger.Warn("dispatch lock release failed", zap.String("order_id", orderID), zap.Error(err))
		}
	}()

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status == domain.OrderStatusShipped && order.Shipment != nil {
		return order.Shipment, nil
	}
	if order.Status != domain.OrderStatusConfirmed {
		return nil, domain.NewValidationError("status", fmt.Sprintf("order is %s, only confirmed orders can be dispatched", order.Status))
	}

	record, err = s.dispatcher.CreateShipment(ctx, order, order.CustomerEmail)
	if err != nil {
		return nil, err
	}

	if err := s.orders.SaveShipment(ctx, orderID, *record); err != nil {
		s.logger.Error("CRITICAL shipment created but not persisted",
			zap.String("order_id", orderID),
			zap.String("shipment_id", record.ShipmentID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("persist shipment: %w", err)
	}

	s.publish(ctx, domain.EventShipmentCreated, orderID, record)
	return record, nil
}

func (s *OrderService) TrackOrder(ctx context.Context, orderID string) (domain.TrackingInfo, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Shipment.HasAWB() {
		return nil, domain.NewValidationError("awb", "order has no awb assigned yet")
	}
	return s.dispatcher.TrackShipment(ctx, order.Shipment.AWBNumber)
}

func (s *OrderService) CancelOrderShipment(ctx context.Context, orderID string) (info domain.TrackingInfo, err error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CancelOrderShipment", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer func() { endSpan(span, err) }()

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusShipped {
		return nil, domain.NewValidationError("status", fmt.Sprintf("order is %s, only shipped orders can be cancelled", order.Status))
	}
	if !order.Shipment.HasAWB() {
		return nil, domain.NewValidationError("awb", "order has no awb assigned yet")
	}

	info, err = s.dispatcher.CancelShipments(ctx, []string{order.Shipment.AWBNumber})
	if err != nil {
		return nil, err
	}

	if err := s.orders.UpdateStatus(ctx, orderID, domain.OrderStatusCancelled); err != nil {
		return nil, fmt.Errorf("mark order cancelled: %w", err)
	}

	s.publish(ctx, domain.EventShipmentCancelled, orderID, order.Shipment)
	return info, nil
}

func (s *OrderService) GetDispatchQueue() <-chan string {
	return s.dispatchQueue
}

func (s *OrderService) Close() {
	close(s.dispatchQueue)
}

func (s *OrderService) loadOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if order == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
	}
	return order, nil
}

// publish runs after the state change is durable, so a broker failure is
// logged rather than undoing the operation.
func (s *OrderService) publish(ctx context.Context, eventType, aggregateID string, payload any) {
	event := domain.Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		AggregateID: aggregateID,
		OccurredAt:  time.Now().UTC(),
		Payload:     payload,
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Error("event publish failed",
			zap.String("event_type", eventType),
			zap.String("aggregate_id", aggregateID),
			zap.Error(err),
		)
	}
}

func validateLineItems(items []domain.OrderLineItem) error {
	if len(items) == 0 {
		return domain.NewValidationError("items", "no order items provided")
	}
	for i, li := range items {
		if li.ProductID == "" {
			return domain.NewValidationError(fmt.Sprintf("items[%d].product_id", i), "is required")
		}
		if li.Quantity < 1 {
			return domain.NewValidationError(fmt.Sprintf("items[%d].quantity", i), "must be at least 1")
		}
		if li.PriceAtPurchase.IsNegative() {
			return domain.NewValidationError(fmt.Sprintf("items[%d].price_at_purchase", i), "must not be negative")
		}
	}
	return nil
}

func newOrderNumber(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return "ORD-" + strings.ToUpper(id)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// IsClientError reports whether err is the caller's to fix rather than an
// infrastructure failure.
func IsClientError(err error) bool {
	return errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrInsufficientStock) ||
		errors.Is(err, domain.ErrStockReduction) ||
		errors.Is(err, domain.ErrOrderNotFound) ||
		errors.Is(err, domain.ErrProductNotFound) ||
		errors.Is(err, domain.ErrDispatchInProgress)
}
