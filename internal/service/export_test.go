package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velodepot/bikeshop/internal/model"
)

func TestBikesCSV(t *testing.T) {
	year := 2024
	color := "zwart"
	purchase := int64(60000)
	selling := int64(89950)
	soldAt := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

	bikes := []model.BikeWithNames{
		{
			Bike: model.Bike{
				ID:            1,
				FrameNumber:   "GZ-1",
				Year:          &year,
				Color:         &color,
				PurchaseCents: &purchase,
				SellingCents:  &selling,
				Status:        model.BikeStatusSold,
				SoldAt:        &soldAt,
				CreatedAt:     time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC),
			},
			BrandName: "Gazelle",
			ModelName: "Chamonix",
		},
		{
			Bike: model.Bike{
				ID:          2,
				FrameNumber: "TR-2",
				Status:      model.BikeStatusInStock,
				CreatedAt:   time.Date(2026, 2, 3, 8, 0, 0, 0, time.UTC),
			},
			BrandName: "Trek",
			ModelName: "FX 3",
		},
	}

	out, err := BikesCSV(bikes)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID,Frame Number,Brand,Model,Year,Color,Size,Purchase Price,Selling Price,Status,Sold At,Created At", lines[0])
	assert.Equal(t, "1,GZ-1,Gazelle,Chamonix,2024,zwart,,600.00,899.50,SOLD,2026-05-01T09:30:00Z,2026-01-02T08:00:00Z", lines[1])
	assert.Contains(t, lines[2], ",,,,,IN_STOCK,,", "missing optionals render as empty cells")
}

func TestWorkOrdersCSV(t *testing.T) {
	mechanic := "Piet"
	actual := int64(5500)
	completed := time.Date(2026, 5, 2, 14, 0, 0, 0, time.UTC)

	orders := []model.WorkOrderWithNames{
		{
			ServiceWorkOrder: model.ServiceWorkOrder{
				ID:          1,
				Description: "ketting vervangen",
				Status:      model.WorkOrderStatusCompleted,
				Priority:    model.PriorityHigh,
				ActualCents: &actual,
				CompletedAt: &completed,
				CreatedAt:   time.Date(2026, 4, 30, 10, 0, 0, 0, time.UTC),
			},
			FrameNumber:    "GZ-1",
			CreatedByName:  "Anna",
			AssignedToName: &mechanic,
		},
	}

	out, err := WorkOrdersCSV(orders)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1,GZ-1,ketting vervangen,COMPLETED,HIGH,Piet,Anna,,55.00,2026-04-30T10:00:00Z,2026-05-02T14:00:00Z", lines[1])
}
