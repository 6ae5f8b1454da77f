package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/retail-fulfillment/internal/core/domain"
	"github.com/rl1809/retail-fulfillment/internal/port"
)

const (
	defaultBillingEmail = "customer@example.com"
	defaultLastName     = "Customer"

	opCreate = "create"
	opTrack  = "track"
	opCancel = "cancel"
)

var errPickupLocationMissing = errors.New("pickup location is not configured")

type ShipmentDispatcher struct {
	session        *CarrierSession
	client         port.CarrierClient
	catalog        port.CatalogRepository
	packer         *PackageAggregator
	pickupLocation string
	logger         *zap.Logger
}

func NewShipmentDispatcher(
	session *CarrierSession,
	client port.CarrierClient,
	catalog port.CatalogRepository,
	packer *PackageAggregator,
	pickupLocation string,
	logger *zap.Logger,
) *ShipmentDispatcher {
	return &ShipmentDispatcher{
		session:        session,
		client:         client,
		catalog:        catalog,
		packer:         packer,
		pickupLocation: pickupLocation,
		logger:         logger,
	}
}

// CreateShipment submits the order to the carrier. Nothing is persisted here;
// the caller stores the returned record on the order.
func (d *ShipmentDispatcher) CreateShipment(ctx context.Context, order *domain.Order, customerEmail string) (*domain.ShipmentRecord, error) {
	if d.pickupLocation == "" {
		return nil, &domain.DispatchError{Op: opCreate, OrderID: order.ID, Err: errPickupLocationMissing}
	}

	var record *domain.ShipmentRecord
	err := d.withSession(ctx, opCreate, order.ID, func(ctx context.Context, token string) error {
		payload := d.buildPayload(ctx, order, customerEmail)

		resp, err := d.client.CreateShipment(ctx, token, payload)
		if err != nil {
			return err
		}
		if resp.Success != nil && !*resp.Success {
			return &domain.CarrierResponseError{StatusCode: 200, Message: resp.Message}
		}

		record = toShipmentRecord(resp)
		return nil
	})
	if err != nil {
		return nil, err
	}

	d.logger.Info("shipment created",
		zap.String("order_id", order.ID),
		zap.String("shipment_id", record.ShipmentID),
		zap.String("awb", record.AWBNumber),
		zap.String("status", record.Status),
	)
	return record, nil
}

func (d *ShipmentDispatcher) TrackShipment(ctx context.Context, awb string) (domain.TrackingInfo, error) {
	if strings.TrimSpace(awb) == "" {
		return nil, domain.NewValidationError("awb", "is required")
	}

	var info domain.TrackingInfo
	err := d.withSession(ctx, opTrack, "", func(ctx context.Context, token string) error {
		var err error
		info, err = d.client.TrackShipment(ctx, token, awb)
		return err
	})
	return info, err
}

func (d *ShipmentDispatcher) CancelShipments(ctx context.Context, awbs []string) (domain.TrackingInfo, error) {
	if len(awbs) == 0 {
		return nil, domain.NewValidationError("awbs", "at least one awb is required")
	}
	for _, awb := range awbs {
		if strings.TrimSpace(awb) == "" {
			return nil, domain.NewValidationError("awbs", "must not contain empty values")
		}
	}

	var info domain.TrackingInfo
	err := d.withSession(ctx, opCancel, "", func(ctx context.Context, token string) error {
		var err error
		info, err = d.client.CancelShipments(ctx, token, awbs)
		return err
	})
	return info, err
}

// withSession runs call with a bearer token. A 401 invalidates the token and
// reruns call exactly once; every other failure is returned as is.
func (d *ShipmentDispatcher) withSession(ctx context.Context, op, orderID string, call func(ctx context.Context, token string) error) error {
	for attempt := 0; ; attempt++ {
		token, err := d.session.Token(ctx)
		if err != nil {
			return err
		}

		err = call(ctx, token)
		if err == nil {
			return nil
		}

		if errors.Is(err, domain.ErrCarrierUnauthorized) && attempt == 0 {
			d.logger.Warn("carrier rejected token, re-authenticating",
				zap.String("op", op),
				zap.String("order_id", orderID),
			)
			d.session.Invalidate(ctx, token)
			continue
		}

		d.logger.Error("carrier call failed",
			zap.String("op", op),
			zap.String("order_id", orderID),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		return &domain.DispatchError{Op: op, OrderID: orderID, StatusCode: statusCode(err), Err: err}
	}
}

func (d *ShipmentDispatcher) buildPayload(ctx context.Context, order *domain.Order, customerEmail string) domain.ShipmentPayload {
	ids := make([]string, 0, len(order.Items))
	for _, li := range order.Items {
		ids = append(ids, li.ProductID)
	}
	products := resolveProducts(ctx, d.catalog, d.logger, ids)

	items := make([]domain.ShipmentOrderItem, 0, len(order.Items))
	for _, li := range order.Items {
		sku, hsn := d.resolveTaxData(ctx, li, products[li.ProductID])
		items = append(items, domain.ShipmentOrderItem{
			Name:         li.ProductName,
			SKU:          sku,
			Units:        li.Quantity,
			SellingPrice: li.PriceAtPurchase.StringFixed(2),
			HSN:          hsn,
		})
	}

	pkg := d.packer.AggregateResolved(order.PackageItems(), products)

	addr := order.ShippingAddress
	email := customerEmail
	if email == "" {
		email = order.CustomerEmail
	}
	if email == "" {
		email = defaultBillingEmail
	}

	return domain.ShipmentPayload{
		OrderID:             order.OrderNumber,
		OrderDate:           order.CreatedAt.UTC().Format(time.RFC3339),
		PickupLocation:      d.pickupLocation,
		BillingCustomerName: addr.Name,
		BillingLastName:     lastName(addr.Name),
		BillingAddress:      addr.AddressLine1,
		BillingAddress2:     addr.AddressLine2,
		BillingCity:         addr.City,
		BillingPincode:      addr.PinCode,
		BillingState:        NormalizeState(addr.State),
		BillingCountry:      addr.Country,
		BillingEmail:        email,
		BillingPhone:        addr.Phone,
		ShippingIsBilling:   true,
		OrderItems:          items,
		PaymentMethod:       paymentFlag(order.PaymentMethod),
		SubTotal:            order.Subtotal.StringFixed(2),
		Length:              pkg.LengthCm,
		Breadth:             pkg.BreadthCm,
		Height:              pkg.HeightCm,
		Weight:              pkg.WeightKg,
	}
}

// resolveTaxData finds the SKU and the HSN code of the product's category.
// Lookup failures degrade to the line item's own code and an empty HSN.
func (d *ShipmentDispatcher) resolveTaxData(ctx context.Context, li domain.OrderLineItem, product *domain.Product) (string, string) {
	sku := li.ProductCode

	if product == nil {
		d.logger.Warn("hsn lookup: product unresolved", zap.String("product_id", li.ProductID))
		return sku, ""
	}
	if sku == "" {
		sku = product.Code
	}

	category, err := d.catalog.GetCategoryByID(ctx, product.CategoryID)
	if err != nil || category == nil {
		d.logger.Warn("hsn lookup: category unresolved",
			zap.String("product_id", li.ProductID),
			zap.String("category_id", product.CategoryID),
			zap.Error(err),
		)
		return sku, ""
	}
	return sku, category.HSN
}

func toShipmentRecord(resp *domain.CarrierShipmentResponse) *domain.ShipmentRecord {
	status := resp.Status
	if status == "" {
		status = domain.ShipmentStatusUnknown
	}
	return &domain.ShipmentRecord{
		ShipmentID:       resp.ShipmentID,
		CarrierOrderID:   resp.OrderID,
		AWBNumber:        resp.AWBCode,
		CourierName:      resp.CourierName,
		CourierCompanyID: resp.CourierCompanyID,
		Status:           status,
		StatusCode:       resp.StatusCode,
		TrackingURL:      resp.TrackingURL,
		LabelURL:         resp.LabelURL,
	}
}

func lastName(full string) string {
	fields := strings.Fields(full)
	if len(fields) == 0 {
		return defaultLastName
	}
	return fields[len(fields)-1]
}

func paymentFlag(m domain.PaymentMethod) string {
	if m == domain.PaymentMethodCOD {
		return "COD"
	}
	return "Prepaid"
}

func statusCode(err error) int {
	var respErr *domain.CarrierResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode
	}
	return 0
}
