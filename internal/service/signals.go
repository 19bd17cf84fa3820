package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/velodepot/bikeshop/internal/model"
)

// Signal types and severities produced by the rule-based checks.
const (
	SignalDuplicateFrame = "duplicate_frame"
	SignalPriceOutlier   = "price_outlier"
	SignalNegativeStock  = "negative_stock"

	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Signal is one data-quality finding over the current inventory.
type Signal struct {
	Type     string         `json:"type"`
	Severity string         `json:"severity"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details"`
}

// SignalStore provides the inventory snapshot the checks run over.
type SignalStore interface {
	ListAllWithNames(ctx context.Context) ([]model.BikeWithNames, error)
}

// SignalService runs the stateless data-quality checks: duplicate
// frame numbers, MAD-based price outliers and negative-margin stock.
// Results are computed on demand and never persisted.
type SignalService struct {
	bikes SignalStore
}

// NewSignalService wires the service to its store.
func NewSignalService(bikes SignalStore) *SignalService {
	return &SignalService{bikes: bikes}
}

// Signals loads the inventory and returns the current findings.
func (s *SignalService) Signals(ctx context.Context) ([]Signal, error) {
	bikes, err := s.bikes.ListAllWithNames(ctx)
	if err != nil {
		return nil, err
	}
	return ComputeSignals(bikes), nil
}

// ComputeSignals runs every check over the given snapshot.  It is a
// pure function so the statistics are directly testable.
func ComputeSignals(bikes []model.BikeWithNames) []Signal {
	signals := make([]Signal, 0)
	signals = append(signals, duplicateFrameSignals(bikes)...)
	signals = append(signals, priceOutlierSignals(bikes)...)
	signals = append(signals, negativeMarginSignals(bikes)...)
	return signals
}

// duplicateFrameSignals flags every frame number shared by more than
// one bike.  Duplicates break the business key and are critical.
func duplicateFrameSignals(bikes []model.BikeWithNames) []Signal {
	byFrame := make(map[string][]uint64)
	order := make([]string, 0)
	for _, b := range bikes {
		if _, seen := byFrame[b.FrameNumber]; !seen {
			order = append(order, b.FrameNumber)
		}
		byFrame[b.FrameNumber] = append(byFrame[b.FrameNumber], b.ID)
	}

	var signals []Signal
	for _, frame := range order {
		ids := byFrame[frame]
		if len(ids) < 2 {
			continue
		}
		signals = append(signals, Signal{
			Type:     SignalDuplicateFrame,
			Severity: SeverityCritical,
			Message:  fmt.Sprintf("Dubbel framenummer gevonden: %s", frame),
			Details:  map[string]any{"frameNumber": frame, "bikeIds": ids},
		})
	}
	return signals
}

// priceOutlierSignals flags sellable bikes whose price deviates from
// the median by more than three median absolute deviations.  MAD is
// used instead of the standard deviation because it is itself robust
// against the outliers being hunted.  A zero MAD (homogeneous prices)
// flags nothing.
func priceOutlierSignals(bikes []model.BikeWithNames) []Signal {
	type priced struct {
		bike  model.BikeWithNames
		price float64
	}
	var eligible []priced
	for _, b := range bikes {
		if b.SellingCents == nil || *b.SellingCents <= 0 {
			continue
		}
		if b.Status != model.BikeStatusInStock && b.Status != model.BikeStatusReserved {
			continue
		}
		eligible = append(eligible, priced{bike: b, price: CentsToEuros(*b.SellingCents)})
	}
	if len(eligible) < 3 {
		return nil
	}

	prices := make([]float64, len(eligible))
	for i, p := range eligible {
		prices[i] = p.price
	}
	med := median(prices)

	deviations := make([]float64, len(prices))
	for i, p := range prices {
		deviations[i] = abs(p - med)
	}
	mad := median(deviations)
	threshold := 3 * mad
	if threshold <= 0 {
		return nil
	}

	var signals []Signal
	for _, p := range eligible {
		if abs(p.price-med) <= threshold {
			continue
		}
		signals = append(signals, Signal{
			Type:     SignalPriceOutlier,
			Severity: SeverityWarning,
			Message: fmt.Sprintf("Prijsafwijking: Fiets %s (€%.2f) wijkt sterk af van mediaan (€%.2f)",
				p.bike.FrameNumber, p.price, med),
			Details: map[string]any{
				"bikeId":      p.bike.ID,
				"frameNumber": p.bike.FrameNumber,
				"price":       p.price,
				"median":      med,
			},
		})
	}
	return signals
}

// negativeMarginSignals flags IN_STOCK bikes that would sell at a
// loss: both prices set and purchase above selling.
func negativeMarginSignals(bikes []model.BikeWithNames) []Signal {
	var signals []Signal
	for _, b := range bikes {
		if b.Status != model.BikeStatusInStock || b.PurchaseCents == nil || b.SellingCents == nil {
			continue
		}
		if *b.PurchaseCents <= *b.SellingCents {
			continue
		}
		purchase := CentsToEuros(*b.PurchaseCents)
		selling := CentsToEuros(*b.SellingCents)
		signals = append(signals, Signal{
			Type:     SignalNegativeStock,
			Severity: SeverityWarning,
			Message: fmt.Sprintf("Mogelijke verliespost: %s %s (Frame: %s) - Inkoop €%.2f > Verkoop €%.2f",
				b.BrandName, b.ModelName, b.FrameNumber, purchase, selling),
			Details: map[string]any{
				"bikeId":        b.ID,
				"frameNumber":   b.FrameNumber,
				"purchasePrice": purchase,
				"sellingPrice":  selling,
				"loss":          purchase - selling,
			},
		})
	}
	return signals
}

// median returns the middle value of vs (mean of the middle pair for
// even lengths).  The input slice is not modified.
func median(vs []float64) float64 {
	sorted := make([]float64, len(vs))
	copy(sorted, vs)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
