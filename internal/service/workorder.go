package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/velodepot/bikeshop/internal/model"
)

// WorkOrderStore is the persistence the work order state machine
// needs.  When a transition is passed along, the store applies the
// work order write, the bike status flip and the movement insert in
// one database transaction.  The flip re-checks the transition's
// FromStatus; when the bike no longer holds it, nothing is applied and
// model.ErrBikeStatusChanged is returned.
type WorkOrderStore interface {
	// GetByID returns (nil, nil) when no such work order exists.
	GetByID(ctx context.Context, id uint64) (*model.ServiceWorkOrder, error)
	CreateWithBikeTransition(ctx context.Context, wo *model.ServiceWorkOrder, tr *model.BikeTransition) error
	UpdateWithBikeTransition(ctx context.Context, id uint64, patch model.WorkOrderPatch, tr *model.BikeTransition) (*model.ServiceWorkOrder, error)
}

// WorkOrderEvent is the payload broadcast for workorder:* events.
type WorkOrderEvent struct {
	ID       uint64 `json:"id"`
	BikeID   uint64 `json:"bike_id"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
}

func workOrderEvent(wo *model.ServiceWorkOrder) WorkOrderEvent {
	return WorkOrderEvent{ID: wo.ID, BikeID: wo.BikeID, Status: wo.Status, Priority: wo.Priority}
}

// CreateWorkOrderInput is the payload for opening a work order.
type CreateWorkOrderInput struct {
	BikeID        uint64
	Description   string
	Priority      *string
	AssignedToID  *uint64
	EstimatedCost *float64
	Notes         *string
}

// UpdateWorkOrderInput is the partial-update payload for a work order.
// AssignedToID is a double pointer: nil means untouched, a pointer to
// nil clears the assignment.
type UpdateWorkOrderInput struct {
	Description  *string
	Status       *string
	Priority     *string
	AssignedToID **uint64
	ActualCost   *float64
	Notes        *string
}

// WorkOrderService enforces the work order lifecycle and its coupling
// to the inventory machine: opening an order against an IN_STOCK bike
// pulls it into service, completing one releases an IN_SERVICE bike
// back to stock.  Beyond that single coupling the transitions are
// permissive: any status may follow any other.
type WorkOrderService struct {
	orders WorkOrderStore
	bikes  BikeStore
	events Broadcaster
	now    func() time.Time
}

// NewWorkOrderService wires the service to its stores and broadcaster.
func NewWorkOrderService(orders WorkOrderStore, bikes BikeStore, events Broadcaster) *WorkOrderService {
	if events == nil {
		events = NopBroadcaster{}
	}
	return &WorkOrderService{orders: orders, bikes: bikes, events: events, now: time.Now}
}

// Create opens a work order against an existing bike.  If the bike is
// currently IN_STOCK it is moved to IN_SERVICE in the same transaction
// that inserts the order.
func (s *WorkOrderService) Create(ctx context.Context, in CreateWorkOrderInput, actorID uint64) (*model.ServiceWorkOrder, error) {
	if strings.TrimSpace(in.Description) == "" {
		return nil, Invalid("description is required")
	}
	priority := model.PriorityMedium
	if in.Priority != nil {
		priority = *in.Priority
		if !model.IsValidPriority(priority) {
			return nil, Invalid(fmt.Sprintf("unknown priority %q", priority))
		}
	}
	if err := validatePrices(in.EstimatedCost); err != nil {
		return nil, err
	}

	bike, err := s.bikes.GetByID(ctx, in.BikeID)
	if err != nil {
		return nil, err
	}
	if bike == nil {
		return nil, NotFound("bike not found")
	}

	wo := &model.ServiceWorkOrder{
		BikeID:         in.BikeID,
		Description:    in.Description,
		Status:         model.WorkOrderStatusOpen,
		Priority:       priority,
		CreatedByID:    actorID,
		AssignedToID:   in.AssignedToID,
		EstimatedCents: NormalizeCentsPtr(in.EstimatedCost),
		Notes:          in.Notes,
	}

	var tr *model.BikeTransition
	if bike.Status == model.BikeStatusInStock {
		from := bike.Status
		tr = &model.BikeTransition{
			BikeID:     bike.ID,
			FromStatus: from,
			ToStatus:   model.BikeStatusInService,
			Movement: model.InventoryMovement{
				BikeID:        bike.ID,
				FromStatus:    &from,
				ToStatus:      model.BikeStatusInService,
				Reason:        "Werkorder aangemaakt",
				PerformedByID: actorID,
			},
		}
	}

	if err := s.orders.CreateWithBikeTransition(ctx, wo, tr); err != nil {
		if errors.Is(err, model.ErrBikeStatusChanged) {
			return nil, InvalidTransition("bike status was changed by another request, reload and retry")
		}
		return nil, err
	}

	s.events.Broadcast(EventWorkOrderCreated, workOrderEvent(wo))
	return wo, nil
}

// Update applies a partial update.  A transition into COMPLETED stamps
// completedAt and, only when the bike is currently IN_SERVICE, returns
// it to IN_STOCK inside the same transaction.  No guard prevents
// leaving COMPLETED or CANCELLED again.
func (s *WorkOrderService) Update(ctx context.Context, id uint64, in UpdateWorkOrderInput, actorID uint64) (*model.ServiceWorkOrder, error) {
	existing, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, NotFound("work order not found")
	}
	if in.Description != nil && strings.TrimSpace(*in.Description) == "" {
		return nil, Invalid("description must not be empty")
	}
	if in.Priority != nil && !model.IsValidPriority(*in.Priority) {
		return nil, Invalid(fmt.Sprintf("unknown priority %q", *in.Priority))
	}
	if err := validatePrices(in.ActualCost); err != nil {
		return nil, err
	}

	patch := model.WorkOrderPatch{
		Description:  in.Description,
		Priority:     in.Priority,
		AssignedToID: in.AssignedToID,
		ActualCents:  NormalizeCentsPtr(in.ActualCost),
		Notes:        in.Notes,
	}

	var tr *model.BikeTransition
	if in.Status != nil {
		status := *in.Status
		if !model.IsValidWorkOrderStatus(status) {
			return nil, Invalid(fmt.Sprintf("unknown work order status %q", status))
		}
		patch.Status = &status

		if status == model.WorkOrderStatusCompleted {
			completedAt := s.now().UTC()
			patch.CompletedAt = &completedAt

			bike, err := s.bikes.GetByID(ctx, existing.BikeID)
			if err != nil {
				return nil, err
			}
			if bike != nil && bike.Status == model.BikeStatusInService {
				from := bike.Status
				tr = &model.BikeTransition{
					BikeID:     bike.ID,
					FromStatus: from,
					ToStatus:   model.BikeStatusInStock,
					Movement: model.InventoryMovement{
						BikeID:        bike.ID,
						FromStatus:    &from,
						ToStatus:      model.BikeStatusInStock,
						Reason:        "Werkorder afgerond",
						PerformedByID: actorID,
					},
				}
			}
		}
	}

	updated, err := s.orders.UpdateWithBikeTransition(ctx, id, patch, tr)
	if err != nil {
		if errors.Is(err, model.ErrBikeStatusChanged) {
			return nil, InvalidTransition("bike status was changed by another request, reload and retry")
		}
		return nil, err
	}

	s.events.Broadcast(EventWorkOrderUpdated, workOrderEvent(updated))
	return updated, nil
}
