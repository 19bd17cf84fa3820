package model

import "time"

// InventoryMovement is the immutable audit record written for every
// bike status change.  FromStatus is nil only for the creation event.
// Rows are append-only and ordered by creation time within one bike.
//
// Fields:
//  ID            – primary key identifier.
//  BikeID        – the bike this movement belongs to.
//  FromStatus    – status before the change (nil for creation).
//  ToStatus      – status after the change.
//  Reason        – human readable explanation of the change.
//  PerformedByID – user who triggered the change.
//  CreatedAt     – when the movement was recorded.
type InventoryMovement struct {
	ID            uint64     // inventory_movements.id
	BikeID        uint64     // inventory_movements.bike_id
	FromStatus    *string    // inventory_movements.from_status (nullable)
	ToStatus      string     // inventory_movements.to_status
	Reason        string     // inventory_movements.reason
	PerformedByID uint64     // inventory_movements.performed_by_id
	CreatedAt     time.Time  // inventory_movements.created_at
}
