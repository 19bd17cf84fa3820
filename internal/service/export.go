package service

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/velodepot/bikeshop/internal/model"
)

// BikesCSV renders the full bike inventory as CSV, one row per bike,
// prices in euros with two decimals, timestamps in RFC 3339.
func BikesCSV(bikes []model.BikeWithNames) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	header := []string{
		"ID", "Frame Number", "Brand", "Model", "Year", "Color", "Size",
		"Purchase Price", "Selling Price", "Status", "Sold At", "Created At",
	}
	if err := w.Write(header); err != nil {
		return "", err
	}
	for _, b := range bikes {
		row := []string{
			strconv.FormatUint(b.ID, 10),
			b.FrameNumber,
			b.BrandName,
			b.ModelName,
			csvInt(b.Year),
			csvString(b.Color),
			csvString(b.Size),
			csvCents(b.PurchaseCents),
			csvCents(b.SellingCents),
			b.Status,
			csvTime(b.SoldAt),
			b.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	return sb.String(), w.Error()
}

// WorkOrdersCSV renders all work orders as CSV.
func WorkOrdersCSV(orders []model.WorkOrderWithNames) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	header := []string{
		"ID", "Bike Frame Number", "Description", "Status", "Priority",
		"Assigned To", "Created By", "Estimated Cost", "Actual Cost",
		"Created At", "Completed At",
	}
	if err := w.Write(header); err != nil {
		return "", err
	}
	for _, wo := range orders {
		row := []string{
			strconv.FormatUint(wo.ID, 10),
			wo.FrameNumber,
			wo.Description,
			wo.Status,
			wo.Priority,
			csvString(wo.AssignedToName),
			wo.CreatedByName,
			csvCents(wo.EstimatedCents),
			csvCents(wo.ActualCents),
			wo.CreatedAt.UTC().Format(time.RFC3339),
			csvTime(wo.CompletedAt),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	return sb.String(), w.Error()
}

func csvString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func csvInt(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func csvCents(c *int64) string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", CentsToEuros(*c))
}

func csvTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
