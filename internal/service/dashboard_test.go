package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velodepot/bikeshop/internal/model"
)

type fakeDashboardBikes struct {
	counts map[string]int
	sales  []model.BikeWithNames
}

func (f *fakeDashboardBikes) StatusCounts(context.Context) (map[string]int, error) {
	return f.counts, nil
}

func (f *fakeDashboardBikes) RecentSales(_ context.Context, limit int) ([]model.BikeWithNames, error) {
	if len(f.sales) > limit {
		return f.sales[:limit], nil
	}
	return f.sales, nil
}

type fakeDashboardOrders struct{ counts model.WorkOrderCounts }

func (f *fakeDashboardOrders) Counts(context.Context) (model.WorkOrderCounts, error) {
	return f.counts, nil
}

func TestDashboardStats(t *testing.T) {
	selling := int64(89900)
	soldAt := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	bikes := &fakeDashboardBikes{
		counts: map[string]int{
			model.BikeStatusInStock:   12,
			model.BikeStatusInService: 3,
			model.BikeStatusSold:      7,
			model.BikeStatusReserved:  2,
		},
		sales: []model.BikeWithNames{{
			Bike: model.Bike{
				ID: 1, FrameNumber: "GZ-1",
				SellingCents: &selling, SoldAt: &soldAt,
				Status: model.BikeStatusSold,
			},
			BrandName: "Gazelle",
			ModelName: "Chamonix",
		}},
	}
	orders := &fakeDashboardOrders{counts: model.WorkOrderCounts{Total: 9, Open: 4, Urgent: 1}}

	svc := NewDashboardService(bikes, orders)
	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 24, stats.TotalBikes, "total is the sum over every status")
	assert.Equal(t, 12, stats.BikesInStock)
	assert.Equal(t, 3, stats.BikesInService)
	assert.Equal(t, 7, stats.BikesSold)
	assert.Equal(t, 9, stats.TotalWorkOrders)
	assert.Equal(t, 4, stats.OpenWorkOrders)
	assert.Equal(t, 1, stats.UrgentWorkOrders)

	require.Len(t, stats.RecentSales, 1)
	sale := stats.RecentSales[0]
	assert.Equal(t, "Gazelle", sale.Brand)
	require.NotNil(t, sale.SellingPrice)
	assert.Equal(t, 899.0, *sale.SellingPrice)
}
