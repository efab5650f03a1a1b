package inventory

import (
	"regexp"
	"time"

	"github.com/usos-inventory/server/pkg/apperr"
)

// DateFormat is the wire format for all date fields
const DateFormat = "2006-01-02"

// Inventory is a named collection of items owned by exactly one
// principal. The owner is assigned at creation time from the
// authenticated request and never changes.
type Inventory struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Date   string `json:"date"`
	UserID int64  `json:"user_id"`
}

// Item is a single tracked asset. Its effective owner is derived
// through the inventory relation and never stored directly.
type Item struct {
	ID                int64   `json:"id"`
	InventoryID       int64   `json:"inventory_id"`
	Department        int     `json:"department"`
	AssetGroup        int     `json:"asset_group"`
	Category          string  `json:"category"`
	InventoryNumber   string  `json:"inventory_number"`
	AssetComponent    int64   `json:"asset_component"`
	SubNumber         int     `json:"sub_number"`
	AcquisitionDate   string  `json:"acquisition_date"`
	AssetDescription  string  `json:"asset_description"`
	Quantity          int     `json:"quantity"`
	InitialValue      string  `json:"initial_value"`
	LastInventoryRoom string  `json:"last_inventory_room"`
	CurrentRoom       *string `json:"current_room"`
	Scanned           *bool   `json:"scanned"`
}

// InventoryRequest is the client payload for creating or updating an
// inventory. The owner is never part of it; a supplied user_id is
// ignored by the handler.
type InventoryRequest struct {
	Name string `json:"name"`
	Date string `json:"date"`
}

// Validate checks structural correctness of an inventory payload
func (r *InventoryRequest) Validate() error {
	if r.Name == "" {
		return apperr.New(apperr.KindValidationError, "name is required")
	}
	if _, err := time.Parse(DateFormat, r.Date); err != nil {
		return apperr.New(apperr.KindValidationError,
			"date must be in %s format", DateFormat)
	}
	return nil
}

// initial_value travels as a string to avoid float rounding; the store
// column is NUMERIC(10,2).
var decimalPattern = regexp.MustCompile(`^\d{1,8}(\.\d{1,2})?$`)

// Validate checks structural correctness of an item payload. Ownership
// of the target inventory is a separate, later check.
func (i *Item) Validate() error {
	if i.InventoryID <= 0 {
		return apperr.New(apperr.KindValidationError, "inventory_id is required")
	}
	if _, err := time.Parse(DateFormat, i.AcquisitionDate); err != nil {
		return apperr.New(apperr.KindValidationError,
			"acquisition_date must be in %s format", DateFormat)
	}
	if i.Quantity < 0 {
		return apperr.New(apperr.KindValidationError, "quantity must not be negative")
	}
	if !decimalPattern.MatchString(i.InitialValue) {
		return apperr.New(apperr.KindValidationError,
			"initial_value must be a decimal with at most two fractional digits")
	}
	return nil
}
