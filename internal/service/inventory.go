package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/velodepot/bikeshop/internal/model"
)

// BikeStore is the persistence the inventory state machine needs.  The
// composite methods apply the row change and its audit movement in one
// database transaction; both writes land or neither does.
type BikeStore interface {
	// GetByID returns (nil, nil) when no such bike exists.
	GetByID(ctx context.Context, id uint64) (*model.Bike, error)
	FrameNumberExists(ctx context.Context, frameNumber string) (bool, error)
	CreateWithMovement(ctx context.Context, b *model.Bike, mv *model.InventoryMovement) error
	// UpdateWithMovement applies the patch, inserts mv when non-nil and
	// returns the updated row, all inside one transaction.  When the
	// patch carries a FromStatus guard and the row no longer holds that
	// status, nothing is applied and model.ErrBikeStatusChanged is
	// returned.
	UpdateWithMovement(ctx context.Context, id uint64, patch model.BikePatch, mv *model.InventoryMovement) (*model.Bike, error)
}

// BikeEvent is the payload broadcast for bike:* events.
type BikeEvent struct {
	ID          uint64     `json:"id"`
	FrameNumber string     `json:"frame_number"`
	Status      string     `json:"status"`
	SoldAt      *time.Time `json:"sold_at,omitempty"`
}

func bikeEvent(b *model.Bike) BikeEvent {
	return BikeEvent{ID: b.ID, FrameNumber: b.FrameNumber, Status: b.Status, SoldAt: b.SoldAt}
}

// CreateBikeInput is the payload for registering a new bike.  Prices
// arrive as euro amounts and are normalized to cents before storage.
type CreateBikeInput struct {
	FrameNumber   string
	BrandID       uint64
	ModelID       uint64
	Year          *int
	Color         *string
	Size          *string
	PurchasePrice *float64
	SellingPrice  *float64
	Notes         *string
}

// UpdateBikeInput is the partial-update payload for a bike.  nil
// fields are left untouched.
type UpdateBikeInput struct {
	Color         *string
	Size          *string
	PurchasePrice *float64
	SellingPrice  *float64
	Notes         *string
	Status        *string
}

// InventoryService enforces the bike status state machine: creation in
// IN_STOCK, the in-service sale guard, checkout eligibility, soldAt
// stamping and the one-movement-per-transition audit trail.
type InventoryService struct {
	bikes  BikeStore
	events Broadcaster
	now    func() time.Time
}

// NewInventoryService wires the service to its store and broadcaster.
func NewInventoryService(bikes BikeStore, events Broadcaster) *InventoryService {
	if events == nil {
		events = NopBroadcaster{}
	}
	return &InventoryService{bikes: bikes, events: events, now: time.Now}
}

// Create registers a new bike in IN_STOCK and appends the creation
// movement atomically.  A duplicate frame number is a conflict.
func (s *InventoryService) Create(ctx context.Context, in CreateBikeInput, actorID uint64) (*model.Bike, error) {
	frame := strings.TrimSpace(in.FrameNumber)
	if frame == "" {
		return nil, Invalid("frame number is required")
	}
	if in.BrandID == 0 || in.ModelID == 0 {
		return nil, Invalid("brand and model are required")
	}
	if err := validatePrices(in.PurchasePrice, in.SellingPrice); err != nil {
		return nil, err
	}

	exists, err := s.bikes.FrameNumberExists(ctx, frame)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, Conflict(CodeDuplicateFrame, "a bike with this frame number already exists")
	}

	bike := &model.Bike{
		FrameNumber:   frame,
		BrandID:       in.BrandID,
		ModelID:       in.ModelID,
		Year:          in.Year,
		Color:         in.Color,
		Size:          in.Size,
		PurchaseCents: NormalizeCentsPtr(in.PurchasePrice),
		SellingCents:  NormalizeCentsPtr(in.SellingPrice),
		Notes:         in.Notes,
		Status:        model.BikeStatusInStock,
	}
	mv := &model.InventoryMovement{
		ToStatus:      model.BikeStatusInStock,
		Reason:        "Nieuwe fiets toegevoegd",
		PerformedByID: actorID,
	}
	if err := s.bikes.CreateWithMovement(ctx, bike, mv); err != nil {
		return nil, err
	}

	s.events.Broadcast(EventBikeCreated, bikeEvent(bike))
	return bike, nil
}

// Update applies a partial update.  Non-status fields are applied
// unconditionally when present.  A status change appends exactly one
// movement; the single transition guard is that an IN_SERVICE bike
// cannot be moved directly to SOLD.  soldAt is stamped on the
// transition into SOLD and never cleared afterwards.
func (s *InventoryService) Update(ctx context.Context, id uint64, in UpdateBikeInput, actorID uint64) (*model.Bike, error) {
	existing, err := s.bikes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, NotFound("bike not found")
	}
	if err := validatePrices(in.PurchasePrice, in.SellingPrice); err != nil {
		return nil, err
	}

	patch := model.BikePatch{
		Color:         in.Color,
		Size:          in.Size,
		Notes:         in.Notes,
		PurchaseCents: NormalizeCentsPtr(in.PurchasePrice),
		SellingCents:  NormalizeCentsPtr(in.SellingPrice),
	}

	var mv *model.InventoryMovement
	if in.Status != nil {
		status := *in.Status
		if !model.IsValidBikeStatus(status) {
			return nil, Invalid(fmt.Sprintf("unknown bike status %q", status))
		}
		if status == model.BikeStatusSold && existing.Status == model.BikeStatusInService {
			return nil, InvalidTransition("cannot sell a bike that is currently in service")
		}
		if status != existing.Status {
			from := existing.Status
			patch.Status = &status
			patch.FromStatus = &from
			if status == model.BikeStatusSold {
				soldAt := s.now().UTC()
				patch.SoldAt = &soldAt
			}
			mv = &model.InventoryMovement{
				BikeID:        id,
				FromStatus:    &from,
				ToStatus:      status,
				Reason:        fmt.Sprintf("Status gewijzigd van %s naar %s", from, status),
				PerformedByID: actorID,
			}
		}
	}

	updated, err := s.bikes.UpdateWithMovement(ctx, id, patch, mv)
	if err != nil {
		if errors.Is(err, model.ErrBikeStatusChanged) {
			return nil, InvalidTransition("bike status was changed by another request, reload and retry")
		}
		return nil, err
	}

	s.events.Broadcast(EventBikeUpdated, bikeEvent(updated))
	return updated, nil
}

// Checkout sells a bike: the convenience transition to SOLD, permitted
// only from IN_STOCK or RESERVED.
func (s *InventoryService) Checkout(ctx context.Context, id uint64, actorID uint64) (*model.Bike, error) {
	bike, err := s.bikes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if bike == nil {
		return nil, NotFound("bike not found")
	}
	if bike.Status != model.BikeStatusInStock && bike.Status != model.BikeStatusReserved {
		return nil, InvalidTransition(fmt.Sprintf(
			"cannot checkout a bike with status %s: only IN_STOCK or RESERVED bikes can be sold", bike.Status))
	}

	status := model.BikeStatusSold
	soldAt := s.now().UTC()
	from := bike.Status
	patch := model.BikePatch{Status: &status, FromStatus: &from, SoldAt: &soldAt}
	mv := &model.InventoryMovement{
		BikeID:        id,
		FromStatus:    &from,
		ToStatus:      status,
		Reason:        "Fiets verkocht",
		PerformedByID: actorID,
	}

	updated, err := s.bikes.UpdateWithMovement(ctx, id, patch, mv)
	if err != nil {
		if errors.Is(err, model.ErrBikeStatusChanged) {
			return nil, InvalidTransition("bike was sold or moved by another request")
		}
		return nil, err
	}

	s.events.Broadcast(EventBikeCheckout, bikeEvent(updated))
	return updated, nil
}

func validatePrices(prices ...*float64) error {
	for _, p := range prices {
		if p != nil && *p < 0 {
			return Invalid("price must not be negative")
		}
	}
	return nil
}
