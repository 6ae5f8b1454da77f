package domain

import "encoding/json"

// ShipmentPayload is the carrier's ad-hoc order creation body.
type ShipmentPayload struct {
	OrderID             string              `json:"order_id"`
	OrderDate           string              `json:"order_date"`
	PickupLocation      string              `json:"pickup_location"`
	ChannelID           string              `json:"channel_id"`
	BillingCustomerName string              `json:"billing_customer_name"`
	BillingLastName     string              `json:"billing_last_name"`
	BillingAddress      string              `json:"billing_address"`
	BillingAddress2     string              `json:"billing_address_2"`
	BillingCity         string              `json:"billing_city"`
	BillingPincode      string              `json:"billing_pincode"`
	BillingState        string              `json:"billing_state"`
	BillingCountry      string              `json:"billing_country"`
	BillingEmail        string              `json:"billing_email"`
	BillingPhone        string              `json:"billing_phone"`
	ShippingIsBilling   bool                `json:"shipping_is_billing"`
	OrderItems          []ShipmentOrderItem `json:"order_items"`
	PaymentMethod       string              `json:"payment_method"`
	SubTotal            string              `json:"sub_total"`
	Length              float64             `json:"length"`
	Breadth             float64             `json:"breadth"`
	Height              float64             `json:"height"`
	Weight              float64             `json:"weight"`
}

type ShipmentOrderItem struct {
	Name         string  `json:"name"`
	SKU          string  `json:"sku"`
	Units        int     `json:"units"`
	SellingPrice string  `json:"selling_price"`
	Discount     float64 `json:"discount"`
	Tax          float64 `json:"tax"`
	HSN          string  `json:"hsn"`
}

// CarrierShipmentResponse is the normalized create-shipment response. Success
// is nil when the carrier did not send the flag at all.
type CarrierShipmentResponse struct {
	Success          *bool
	Message          string
	OrderID          string
	ShipmentID       string
	Status           string
	StatusCode       int
	AWBCode          string
	CourierCompanyID string
	CourierName      string
	TrackingURL      string
	LabelURL         string
}

// TrackingInfo is passed through from the carrier untouched.
type TrackingInfo = json.RawMessage
