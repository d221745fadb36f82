package model

import "time"

// PropertyStatus is the operational state of a property.
type PropertyStatus string

const (
	PropertyAvailable   PropertyStatus = "available"
	PropertyOccupied    PropertyStatus = "occupied"
	PropertyMaintenance PropertyStatus = "maintenance"
)

// Property is a rentable unit.  Prices are stored in minor currency units.
// Only administrative tooling outside this service mutates properties;
// bookings snapshot the price at creation time.
//
// Fields:
//  ID            – primary key identifier.
//  Name          – display name.
//  Location      – free-form address or area.
//  PricePerNight – base nightly rate in minor units.
//  Bedrooms      – bedroom count.
//  Bathrooms     – bathroom count.
//  MaxGuests     – guest capacity.
//  Status        – available, occupied or maintenance.
//  Images        – ordered image references.
//  Featured      – shown on the marketing site's featured list.
type Property struct {
	ID            uint64         `json:"id"`              // properties.id
	Name          string         `json:"name"`            // properties.name
	Location      string         `json:"location"`        // properties.location
	PricePerNight int64          `json:"price_per_night"` // properties.price_per_night
	Bedrooms      int            `json:"bedrooms"`        // properties.bedrooms
	Bathrooms     int            `json:"bathrooms"`       // properties.bathrooms
	MaxGuests     int            `json:"max_guests"`      // properties.max_guests
	Status        PropertyStatus `json:"status"`          // properties.status
	Images        []string       `json:"images"`          // properties.images (JSON array)
	Featured      bool           `json:"featured"`        // properties.featured
	CreatedAt     time.Time      `json:"created_at"`      // properties.created_at
	UpdatedAt     time.Time      `json:"updated_at"`      // properties.updated_at
}
