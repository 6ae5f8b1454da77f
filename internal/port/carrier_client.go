package port

import (
	"context"

	"github.com/rl1809/retail-fulfillment/internal/core/domain"
)

// CarrierClient is the shipping carrier's HTTP API. Non-2xx answers come back
// as *domain.CarrierResponseError.
type CarrierClient interface {
	Login(ctx context.Context, email, password string) (string, error)

	CreateShipment(ctx context.Context, token string, payload domain.ShipmentPayload) (*domain.CarrierShipmentResponse, error)

	TrackShipment(ctx context.Context, token, awb string) (domain.TrackingInfo, error)

	CancelShipments(ctx context.Context, token string, awbs []string) (domain.TrackingInfo, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}
