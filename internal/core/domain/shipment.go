package domain

// Carrier-imposed package minimums.
const (
	MinPackageWeightKg  = 0.1
	MinPackageLengthCm  = 10
	MinPackageBreadthCm = 10
	MinPackageHeightCm  = 5
)

// ShipmentStatusUnknown is used when the carrier does not report a status.
const ShipmentStatusUnknown = "UNKNOWN"

type PackageItem struct {
	ProductID string
	Quantity  int
}

type PackageDetails struct {
	WeightKg  float64
	LengthCm  float64
	BreadthCm float64
	HeightCm  float64
}

// ApplyFloors raises every field to its carrier minimum.
func (p PackageDetails) ApplyFloors() PackageDetails {
	return PackageDetails{
		WeightKg:  max(p.WeightKg, MinPackageWeightKg),
		LengthCm:  max(p.LengthCm, MinPackageLengthCm),
		BreadthCm: max(p.BreadthCm, MinPackageBreadthCm),
		HeightCm:  max(p.HeightCm, MinPackageHeightCm),
	}
}

// ShipmentRecord is what a successful dispatch leaves on the order. AWBNumber
// and CourierName stay empty until the carrier assigns a courier.
type ShipmentRecord struct {
	ShipmentID       string `json:"shipment_id"`
	CarrierOrderID   string `json:"carrier_order_id"`
	AWBNumber        string `json:"awb_number,omitempty"`
	CourierName      string `json:"courier_name,omitempty"`
	CourierCompanyID string `json:"courier_company_id,omitempty"`
	Status           string `json:"status"`
	StatusCode       int    `json:"status_code"`
	TrackingURL      string `json:"tracking_url,omitempty"`
	LabelURL         string `json:"label_url,omitempty"`
}

func (s *ShipmentRecord) HasAWB() bool {
	return s != nil && s.AWBNumber != ""
}
