package model

import (
	"errors"
	"time"
)

// ErrBikeStatusChanged is returned by the composite store methods when
// the bike's status no longer matches the one the transition was
// validated against.  Another request changed the row between the read
// and the write; nothing has been applied.
var ErrBikeStatusChanged = errors.New("bike status changed concurrently")

// Bike statuses.  A bike starts its life IN_STOCK and moves through the
// other statuses via inventory transitions.  Values are stored verbatim
// in the bikes.status column.
const (
	BikeStatusInStock   = "IN_STOCK"
	BikeStatusInService = "IN_SERVICE"
	BikeStatusReserved  = "RESERVED"
	BikeStatusSold      = "SOLD"
	BikeStatusScrapped  = "SCRAPPED"
)

// ValidBikeStatuses lists every accepted bike status value, used for
// defensive input validation before a transition is attempted.
var ValidBikeStatuses = []string{
	BikeStatusInStock,
	BikeStatusInService,
	BikeStatusReserved,
	BikeStatusSold,
	BikeStatusScrapped,
}

// IsValidBikeStatus reports whether s is one of the known bike statuses.
func IsValidBikeStatus(s string) bool {
	for _, v := range ValidBikeStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Bike represents a bicycle record as stored in the `bikes` table.
// The frame number is the immutable business key and is globally
// unique.  Monetary amounts are stored as integer cents to avoid
// floating point drift; nil means the price has not been entered yet.
// SoldAt is stamped exactly once, on the transition into SOLD, and is
// deliberately never cleared on a later reverse transition.
//
// Fields:
//  ID            – primary key identifier.
//  FrameNumber   – unique physical serial number (business key).
//  BrandID       – reference into the brands table.
//  ModelID       – reference into the models table.
//  Year          – build year (nullable).
//  Color         – color description (nullable).
//  Size          – frame size such as S/M/L (nullable).
//  PurchaseCents – purchase price in cents (nullable).
//  SellingCents  – selling price in cents (nullable).
//  Status        – current inventory status.
//  Notes         – free-text remarks (nullable).
//  SoldAt        – timestamp of the first transition into SOLD.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Bike struct {
	ID            uint64     // bikes.id
	FrameNumber   string     // bikes.frame_number
	BrandID       uint64     // bikes.brand_id
	ModelID       uint64     // bikes.model_id
	Year          *int       // bikes.year (nullable)
	Color         *string    // bikes.color (nullable)
	Size          *string    // bikes.size (nullable)
	PurchaseCents *int64     // bikes.purchase_cents (nullable)
	SellingCents  *int64     // bikes.selling_cents (nullable)
	Status        string     // bikes.status
	Notes         *string    // bikes.notes (nullable)
	SoldAt        *time.Time // bikes.sold_at (nullable)
	CreatedAt     time.Time  // bikes.created_at
	UpdatedAt     time.Time  // bikes.updated_at
}

// BikeWithNames is a Bike joined with its brand and model names.  It is
// what list, detail, export and signal queries return so callers never
// need a second round trip for catalog names.
type BikeWithNames struct {
	Bike
	BrandName string // brands.name
	ModelName string // models.name
}

// BikePatch carries the optional field changes of a partial bike
// update.  nil pointers mean "leave the column untouched".  Status,
// FromStatus and SoldAt are filled in by the inventory service once the
// transition has been validated; handlers never set them directly.
// When FromStatus is set the store must only apply the patch while the
// row still holds that status, and report ErrBikeStatusChanged
// otherwise.
type BikePatch struct {
	Color         *string
	Size          *string
	PurchaseCents *int64
	SellingCents  *int64
	Notes         *string
	Status        *string
	FromStatus    *string
	SoldAt        *time.Time
}

// BikeFilter restricts and pages a bike listing.
type BikeFilter struct {
	Status string // exact status match, empty = all
	Search string // substring match on frame number, empty = all
	Page   int
	Limit  int
}

// BikeTransition describes a bike status flip that must be applied
// atomically together with another write (a work order insert or
// update).  The embedded movement is the audit record for the flip.
// FromStatus is the status the flip was validated against; the store
// must report ErrBikeStatusChanged when the row no longer holds it.
type BikeTransition struct {
	BikeID     uint64
	FromStatus string
	ToStatus   string
	Movement   InventoryMovement
}
