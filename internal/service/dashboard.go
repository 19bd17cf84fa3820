package service

import (
	"context"
	"time"

	"github.com/velodepot/bikeshop/internal/model"
)

// DashboardBikeStore provides the bike-side dashboard queries.
type DashboardBikeStore interface {
	StatusCounts(ctx context.Context) (map[string]int, error)
	RecentSales(ctx context.Context, limit int) ([]model.BikeWithNames, error)
}

// DashboardOrderStore provides the work-order-side dashboard queries.
type DashboardOrderStore interface {
	Counts(ctx context.Context) (model.WorkOrderCounts, error)
}

// RecentSale is one row of the dashboard's latest-sales list.
type RecentSale struct {
	ID           uint64     `json:"id"`
	FrameNumber  string     `json:"frame_number"`
	Brand        string     `json:"brand"`
	Model        string     `json:"model"`
	Year         *int       `json:"year"`
	Color        *string    `json:"color"`
	Size         *string    `json:"size"`
	SellingPrice *float64   `json:"selling_price"`
	SoldAt       *time.Time `json:"sold_at"`
}

// DashboardStats aggregates the shop overview numbers.
type DashboardStats struct {
	TotalBikes       int          `json:"total_bikes"`
	BikesInStock     int          `json:"bikes_in_stock"`
	BikesInService   int          `json:"bikes_in_service"`
	BikesSold        int          `json:"bikes_sold"`
	TotalWorkOrders  int          `json:"total_work_orders"`
	OpenWorkOrders   int          `json:"open_work_orders"`
	UrgentWorkOrders int          `json:"urgent_work_orders"`
	RecentSales      []RecentSale `json:"recent_sales"`
}

// DashboardService assembles the overview stats from the two stores.
type DashboardService struct {
	bikes  DashboardBikeStore
	orders DashboardOrderStore
}

// NewDashboardService wires the service to its stores.
func NewDashboardService(bikes DashboardBikeStore, orders DashboardOrderStore) *DashboardService {
	return &DashboardService{bikes: bikes, orders: orders}
}

// Stats returns the current dashboard numbers with the last five
// sales.
func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	byStatus, err := s.bikes.StatusCounts(ctx)
	if err != nil {
		return nil, err
	}
	orderCounts, err := s.orders.Counts(ctx)
	if err != nil {
		return nil, err
	}
	sales, err := s.bikes.RecentSales(ctx, 5)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, n := range byStatus {
		total += n
	}

	stats := &DashboardStats{
		TotalBikes:       total,
		BikesInStock:     byStatus[model.BikeStatusInStock],
		BikesInService:   byStatus[model.BikeStatusInService],
		BikesSold:        byStatus[model.BikeStatusSold],
		TotalWorkOrders:  orderCounts.Total,
		OpenWorkOrders:   orderCounts.Open,
		UrgentWorkOrders: orderCounts.Urgent,
		RecentSales:      make([]RecentSale, 0, len(sales)),
	}
	for _, b := range sales {
		stats.RecentSales = append(stats.RecentSales, RecentSale{
			ID:           b.ID,
			FrameNumber:  b.FrameNumber,
			Brand:        b.BrandName,
			Model:        b.ModelName,
			Year:         b.Year,
			Color:        b.Color,
			Size:         b.Size,
			SellingPrice: CentsToEurosPtr(b.SellingCents),
			SoldAt:       b.SoldAt,
		})
	}
	return stats, nil
}
