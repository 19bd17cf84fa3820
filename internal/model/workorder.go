package model

import "time"

// Work order statuses.  The state machine is deliberately permissive:
// apart from the bike coupling on completion, any status can follow any
// other.
const (
	WorkOrderStatusOpen         = "OPEN"
	WorkOrderStatusInProgress   = "IN_PROGRESS"
	WorkOrderStatusWaitingParts = "WAITING_PARTS"
	WorkOrderStatusCompleted    = "COMPLETED"
	WorkOrderStatusCancelled    = "CANCELLED"
)

// ValidWorkOrderStatuses lists every accepted work order status value.
var ValidWorkOrderStatuses = []string{
	WorkOrderStatusOpen,
	WorkOrderStatusInProgress,
	WorkOrderStatusWaitingParts,
	WorkOrderStatusCompleted,
	WorkOrderStatusCancelled,
}

// IsValidWorkOrderStatus reports whether s is a known work order status.
func IsValidWorkOrderStatus(s string) bool {
	for _, v := range ValidWorkOrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Work order priorities.
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
	PriorityUrgent = "URGENT"
)

// ValidPriorities lists every accepted priority value.
var ValidPriorities = []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// IsValidPriority reports whether s is a known priority.
func IsValidPriority(s string) bool {
	for _, v := range ValidPriorities {
		if v == s {
			return true
		}
	}
	return false
}

// ServiceWorkOrder is a tracked repair or service task against one
// bike, as stored in the `service_work_orders` table.  CompletedAt is
// stamped on the transition into COMPLETED.  Cost amounts are integer
// cents; nil means not entered.
//
// Fields:
//  ID             – primary key identifier.
//  BikeID         – the bike being serviced.
//  Description    – what has to be done.
//  Status         – current work order status.
//  Priority       – LOW/MEDIUM/HIGH/URGENT.
//  CreatedByID    – user who opened the order.
//  AssignedToID   – mechanic assigned to the order (nullable).
//  EstimatedCents – estimated cost in cents (nullable).
//  ActualCents    – actual cost in cents (nullable).
//  Notes          – free-text remarks (nullable).
//  CompletedAt    – when the order was completed (nullable).
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type ServiceWorkOrder struct {
	ID             uint64     // service_work_orders.id
	BikeID         uint64     // service_work_orders.bike_id
	Description    string     // service_work_orders.description
	Status         string     // service_work_orders.status
	Priority       string     // service_work_orders.priority
	CreatedByID    uint64     // service_work_orders.created_by_id
	AssignedToID   *uint64    // service_work_orders.assigned_to_id (nullable)
	EstimatedCents *int64     // service_work_orders.estimated_cents (nullable)
	ActualCents    *int64     // service_work_orders.actual_cents (nullable)
	Notes          *string    // service_work_orders.notes (nullable)
	CompletedAt    *time.Time // service_work_orders.completed_at (nullable)
	CreatedAt      time.Time  // service_work_orders.created_at
	UpdatedAt      time.Time  // service_work_orders.updated_at
}

// WorkOrderWithNames is a ServiceWorkOrder joined with the bike frame
// number, catalog names and user display names for listings and export.
type WorkOrderWithNames struct {
	ServiceWorkOrder
	FrameNumber    string  // bikes.frame_number
	BrandName      string  // brands.name
	ModelName      string  // models.name
	CreatedByName  string  // users.name of the creator
	AssignedToName *string // users.name of the assignee (nullable)
}

// WorkOrderPatch carries the optional field changes of a partial work
// order update.  nil pointers leave the column untouched.  AssignedToID
// uses a double pointer so callers can distinguish "not supplied" from
// "clear the assignment".  Status and CompletedAt are filled in by the
// work order service.
type WorkOrderPatch struct {
	Description  *string
	Priority     *string
	AssignedToID **uint64
	ActualCents  *int64
	Notes        *string
	Status       *string
	CompletedAt  *time.Time
}

// WorkOrderFilter restricts and pages a work order listing.
type WorkOrderFilter struct {
	Status string // exact status match, empty = all
	Page   int
	Limit  int
}

// WorkOrderCounts aggregates the dashboard numbers for work orders.
type WorkOrderCounts struct {
	Total  int // all work orders
	Open   int // OPEN, IN_PROGRESS or WAITING_PARTS
	Urgent int // URGENT priority, not COMPLETED/CANCELLED
}
