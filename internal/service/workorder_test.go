package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velodepot/bikeshop/internal/model"
)

// fakeWorkOrderStore pairs with fakeBikeStore so bike transitions land
// together with the order write, like the real composite transaction.
type fakeWorkOrderStore struct {
	bikes  *fakeBikeStore
	orders map[uint64]*model.ServiceWorkOrder
	nextID uint64
}

func newFakeWorkOrderStore(bikes *fakeBikeStore) *fakeWorkOrderStore {
	return &fakeWorkOrderStore{bikes: bikes, orders: make(map[uint64]*model.ServiceWorkOrder), nextID: 1}
}

func (f *fakeWorkOrderStore) applyTransition(tr *model.BikeTransition) error {
	b, ok := f.bikes.bikes[tr.BikeID]
	if !ok {
		return errors.New("bike vanished")
	}
	if b.Status != tr.FromStatus {
		return model.ErrBikeStatusChanged
	}
	b.Status = tr.ToStatus
	f.bikes.movements = append(f.bikes.movements, tr.Movement)
	return nil
}

func (f *fakeWorkOrderStore) GetByID(_ context.Context, id uint64) (*model.ServiceWorkOrder, error) {
	wo, ok := f.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *wo
	return &cp, nil
}

func (f *fakeWorkOrderStore) CreateWithBikeTransition(_ context.Context, wo *model.ServiceWorkOrder, tr *model.BikeTransition) error {
	if tr != nil {
		if err := f.applyTransition(tr); err != nil {
			return err
		}
	}
	wo.ID = f.nextID
	f.nextID++
	wo.CreatedAt = time.Now().UTC()
	wo.UpdatedAt = wo.CreatedAt
	cp := *wo
	f.orders[wo.ID] = &cp
	return nil
}

func (f *fakeWorkOrderStore) UpdateWithBikeTransition(_ context.Context, id uint64, patch model.WorkOrderPatch, tr *model.BikeTransition) (*model.ServiceWorkOrder, error) {
	wo, ok := f.orders[id]
	if !ok {
		return nil, errors.New("row vanished")
	}
	// Like the real transaction, a failed bike flip must leave the
	// order untouched.
	if tr != nil {
		if err := f.applyTransition(tr); err != nil {
			return nil, err
		}
	}
	if patch.Description != nil {
		wo.Description = *patch.Description
	}
	if patch.Priority != nil {
		wo.Priority = *patch.Priority
	}
	if patch.AssignedToID != nil {
		wo.AssignedToID = *patch.AssignedToID
	}
	if patch.ActualCents != nil {
		wo.ActualCents = patch.ActualCents
	}
	if patch.Notes != nil {
		wo.Notes = patch.Notes
	}
	if patch.Status != nil {
		wo.Status = *patch.Status
	}
	if patch.CompletedAt != nil {
		wo.CompletedAt = patch.CompletedAt
	}
	wo.UpdatedAt = time.Now().UTC()
	cp := *wo
	return &cp, nil
}

func newWorkOrderFixture(t *testing.T) (*WorkOrderService, *fakeBikeStore, *fakeWorkOrderStore, *model.Bike, *recordingBroadcaster) {
	t.Helper()
	bikes := newFakeBikeStore()
	orders := newFakeWorkOrderStore(bikes)
	events := &recordingBroadcaster{}

	inv := NewInventoryService(bikes, nil)
	bike, err := inv.Create(context.Background(), CreateBikeInput{FrameNumber: "WO-1", BrandID: 1, ModelID: 1}, 1)
	require.NoError(t, err)

	svc := NewWorkOrderService(orders, bikes, events)
	svc.now = fixedClock()
	return svc, bikes, orders, bike, events
}

func TestCreateWorkOrderPullsStockBikeIntoService(t *testing.T) {
	svc, bikes, _, bike, events := newWorkOrderFixture(t)

	wo, err := svc.Create(context.Background(), CreateWorkOrderInput{
		BikeID:      bike.ID,
		Description: "ketting vervangen",
	}, 3)
	require.NoError(t, err)

	assert.Equal(t, model.WorkOrderStatusOpen, wo.Status)
	assert.Equal(t, model.PriorityMedium, wo.Priority, "priority defaults to MEDIUM")
	assert.Equal(t, uint64(3), wo.CreatedByID)

	assert.Equal(t, model.BikeStatusInService, bikes.bikes[bike.ID].Status)
	last := bikes.movements[len(bikes.movements)-1]
	assert.Equal(t, "Werkorder aangemaakt", last.Reason)
	assert.Equal(t, model.BikeStatusInStock, *last.FromStatus)

	assert.Equal(t, []string{EventWorkOrderCreated}, events.types)
}

func TestCreateWorkOrderLeavesNonStockBikeAlone(t *testing.T) {
	svc, bikes, _, bike, _ := newWorkOrderFixture(t)
	bikes.bikes[bike.ID].Status = model.BikeStatusReserved

	_, err := svc.Create(context.Background(), CreateWorkOrderInput{
		BikeID:      bike.ID,
		Description: "remmen nakijken",
	}, 1)
	require.NoError(t, err)

	assert.Equal(t, model.BikeStatusReserved, bikes.bikes[bike.ID].Status)
	assert.Len(t, bikes.movements, 1, "no transition movement for a reserved bike")
}

func TestCreateWorkOrderValidation(t *testing.T) {
	svc, _, _, bike, _ := newWorkOrderFixture(t)

	var se *Error
	_, err := svc.Create(context.Background(), CreateWorkOrderInput{BikeID: bike.ID, Description: "  "}, 1)
	require.ErrorAs(t, err, &se)
	assert.Equal(t, CodeValidation, se.Code)

	_, err = svc.Create(context.Background(), CreateWorkOrderInput{
		BikeID: bike.ID, Description: "x", Priority: ptr("ASAP"),
	}, 1)
	require.ErrorAs(t, err, &se)

	_, err = svc.Create(context.Background(), CreateWorkOrderInput{BikeID: 404, Description: "x"}, 1)
	require.ErrorAs(t, err, &se)
	assert.Equal(t, CodeNotFound, se.Code)
}

func TestCompleteWorkOrderReleasesBikeAndStampsTime(t *testing.T) {
	svc, bikes, _, bike, events := newWorkOrderFixture(t)

	wo, err := svc.Create(context.Background(), CreateWorkOrderInput{BikeID: bike.ID, Description: "service"}, 1)
	require.NoError(t, err)
	require.Equal(t, model.BikeStatusInService, bikes.bikes[bike.ID].Status)

	done, err := svc.Update(context.Background(), wo.ID, UpdateWorkOrderInput{
		Status: ptr(model.WorkOrderStatusCompleted),
	}, 2)
	require.NoError(t, err)

	assert.Equal(t, model.WorkOrderStatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, fixedClock()(), *done.CompletedAt)

	assert.Equal(t, model.BikeStatusInStock, bikes.bikes[bike.ID].Status)
	last := bikes.movements[len(bikes.movements)-1]
	assert.Equal(t, "Werkorder afgerond", last.Reason)
	assert.Equal(t, uint64(2), last.PerformedByID)

	assert.Equal(t, EventWorkOrderUpdated, events.types[len(events.types)-1])
}

func TestCompleteWorkOrderSkipsBikeNotInService(t *testing.T) {
	svc, bikes, _, bike, _ := newWorkOrderFixture(t)

	wo, err := svc.Create(context.Background(), CreateWorkOrderInput{BikeID: bike.ID, Description: "service"}, 1)
	require.NoError(t, err)

	// The bike was sold out from under the order; completion must not
	// drag it back to stock.
	bikes.bikes[bike.ID].Status = model.BikeStatusSold

	_, err = svc.Update(context.Background(), wo.ID, UpdateWorkOrderInput{
		Status: ptr(model.WorkOrderStatusCompleted),
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, model.BikeStatusSold, bikes.bikes[bike.ID].Status)
}

func TestCompleteWorkOrderLosesRaceAgainstConcurrentSale(t *testing.T) {
	svc, bikes, orders, bike, _ := newWorkOrderFixture(t)

	wo, err := svc.Create(context.Background(), CreateWorkOrderInput{BikeID: bike.ID, Description: "service"}, 1)
	require.NoError(t, err)
	require.Equal(t, model.BikeStatusInService, bikes.bikes[bike.ID].Status)

	// The completing request read the bike while it was still
	// IN_SERVICE; a racing update moved it to SOLD before the write.
	snapshot := *bikes.bikes[bike.ID]
	bikes.bikes[bike.ID].Status = model.BikeStatusSold
	staleSvc := NewWorkOrderService(orders, &staleReadBikeStore{fakeBikeStore: bikes, stale: &snapshot}, nil)
	staleSvc.now = fixedClock()

	_, err = staleSvc.Update(context.Background(), wo.ID, UpdateWorkOrderInput{
		Status: ptr(model.WorkOrderStatusCompleted),
	}, 2)
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, CodeInvalidTransition, se.Code)

	assert.Equal(t, model.BikeStatusSold, bikes.bikes[bike.ID].Status)
	assert.Equal(t, model.WorkOrderStatusOpen, orders.orders[wo.ID].Status, "the order write rolled back with the bike flip")
	assert.Nil(t, orders.orders[wo.ID].CompletedAt)
	last := bikes.movements[len(bikes.movements)-1]
	assert.NotEqual(t, "Werkorder afgerond", last.Reason)
}

func TestWorkOrderStatusIsPermissiveBeyondCompletion(t *testing.T) {
	svc, _, _, bike, _ := newWorkOrderFixture(t)

	wo, err := svc.Create(context.Background(), CreateWorkOrderInput{BikeID: bike.ID, Description: "service"}, 1)
	require.NoError(t, err)

	done, err := svc.Update(context.Background(), wo.ID, UpdateWorkOrderInput{Status: ptr(model.WorkOrderStatusCompleted)}, 1)
	require.NoError(t, err)

	// Reopening a completed order is allowed; completedAt keeps its
	// historical value.
	reopened, err := svc.Update(context.Background(), wo.ID, UpdateWorkOrderInput{Status: ptr(model.WorkOrderStatusInProgress)}, 1)
	require.NoError(t, err)
	assert.Equal(t, model.WorkOrderStatusInProgress, reopened.Status)
	require.NotNil(t, reopened.CompletedAt)
	assert.Equal(t, *done.CompletedAt, *reopened.CompletedAt)
}

func TestUpdateWorkOrderAssignmentSemantics(t *testing.T) {
	svc, _, _, bike, _ := newWorkOrderFixture(t)

	assignee := uint64(7)
	wo, err := svc.Create(context.Background(), CreateWorkOrderInput{
		BikeID: bike.ID, Description: "service", AssignedToID: &assignee,
	}, 1)
	require.NoError(t, err)
	require.NotNil(t, wo.AssignedToID)

	// Untouched when not supplied.
	kept, err := svc.Update(context.Background(), wo.ID, UpdateWorkOrderInput{Notes: ptr("wacht op onderdelen")}, 1)
	require.NoError(t, err)
	require.NotNil(t, kept.AssignedToID)
	assert.Equal(t, assignee, *kept.AssignedToID)

	// A pointer to nil clears the assignment.
	var clear *uint64
	cleared, err := svc.Update(context.Background(), wo.ID, UpdateWorkOrderInput{AssignedToID: &clear}, 1)
	require.NoError(t, err)
	assert.Nil(t, cleared.AssignedToID)
}

func TestUpdateWorkOrderValidation(t *testing.T) {
	svc, _, _, bike, _ := newWorkOrderFixture(t)
	wo, err := svc.Create(context.Background(), CreateWorkOrderInput{BikeID: bike.ID, Description: "service"}, 1)
	require.NoError(t, err)

	var se *Error
	_, err = svc.Update(context.Background(), wo.ID, UpdateWorkOrderInput{Status: ptr("DONE")}, 1)
	require.ErrorAs(t, err, &se)
	assert.Equal(t, CodeValidation, se.Code)

	_, err = svc.Update(context.Background(), wo.ID, UpdateWorkOrderInput{Description: ptr(" ")}, 1)
	require.ErrorAs(t, err, &se)

	_, err = svc.Update(context.Background(), 404, UpdateWorkOrderInput{}, 1)
	require.ErrorAs(t, err, &se)
	assert.Equal(t, CodeNotFound, se.Code)
}

func TestWorkOrderCostNormalization(t *testing.T) {
	svc, _, _, bike, _ := newWorkOrderFixture(t)

	wo, err := svc.Create(context.Background(), CreateWorkOrderInput{
		BikeID: bike.ID, Description: "service", EstimatedCost: ptr(49.95),
	}, 1)
	require.NoError(t, err)
	require.NotNil(t, wo.EstimatedCents)
	assert.Equal(t, int64(4995), *wo.EstimatedCents)

	updated, err := svc.Update(context.Background(), wo.ID, UpdateWorkOrderInput{ActualCost: ptr(55.0)}, 1)
	require.NoError(t, err)
	require.NotNil(t, updated.ActualCents)
	assert.Equal(t, int64(5500), *updated.ActualCents)
}
