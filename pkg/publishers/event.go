package publishers

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/samvad-hq/octo-harvester/internal/domain"
	"github.com/samvad-hq/octo-harvester/pkg/converter"
)

// Event represents one harvested item published downstream.
type Event struct {
	EventID     string         `json:"event_id"`
	EndpointID  string         `json:"endpoint_id"`
	ItemID      string         `json:"item_id"`
	Item        map[string]any `json:"item"`
	Page        int            `json:"page"`
	CollectedAt time.Time      `json:"collected_at"`
}

// NewEvent wraps an item in an Event with a fresh id.
func NewEvent(item domain.Item) Event {
	return Event{
		EventID:     uuid.NewString(),
		EndpointID:  item.EndpointID,
		ItemID:      item.ID,
		Item:        item.Fields,
		Page:        item.Page,
		CollectedAt: time.Now().UTC(),
	}
}

// Payload encodes the event as JSON without HTML escaping.
func (e Event) Payload() ([]byte, error) {
	return converter.Encode(e)
}

// Attributes returns routing metadata for buses that carry it alongside the body.
func (e Event) Attributes() map[string]string {
	return map[string]string{
		"event_id":    e.EventID,
		"endpoint_id": e.EndpointID,
		"item_id":     e.ItemID,
		"page":        strconv.Itoa(e.Page),
	}
}
