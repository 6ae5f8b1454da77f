package domain

import "time"

const (
	EventStockReduced      = "stock.reduced"
	EventShipmentCreated   = "shipment.created"
	EventShipmentCancelled = "shipment.cancelled"
)

// Event is published after the state it describes has been persisted.
type Event struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	AggregateID string    `json:"aggregate_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Payload     any       `json:"payload"`
}
