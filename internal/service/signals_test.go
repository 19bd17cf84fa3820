package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velodepot/bikeshop/internal/model"
)

func stockBike(id uint64, frame string, sellingCents int64) model.BikeWithNames {
	return model.BikeWithNames{
		Bike: model.Bike{
			ID:           id,
			FrameNumber:  frame,
			Status:       model.BikeStatusInStock,
			SellingCents: &sellingCents,
		},
		BrandName: "Gazelle",
		ModelName: "Chamonix",
	}
}

func TestDuplicateFrameSignals(t *testing.T) {
	bikes := []model.BikeWithNames{
		stockBike(1, "F-1", 10000),
		stockBike(2, "F-2", 10000),
		stockBike(3, "F-1", 10000),
	}

	signals := duplicateFrameSignals(bikes)
	require.Len(t, signals, 1)
	assert.Equal(t, SignalDuplicateFrame, signals[0].Type)
	assert.Equal(t, SeverityCritical, signals[0].Severity)
	assert.Equal(t, "Dubbel framenummer gevonden: F-1", signals[0].Message)
	assert.Equal(t, []uint64{1, 3}, signals[0].Details["bikeIds"])
}

func TestPriceOutlierSignalsFlagsExtremePrice(t *testing.T) {
	// Prices 100, 105, 110, 100000: median 107.50, MAD 5, threshold 15.
	bikes := []model.BikeWithNames{
		stockBike(1, "F-1", 10000),
		stockBike(2, "F-2", 10500),
		stockBike(3, "F-3", 11000),
		stockBike(4, "F-4", 10000000),
	}

	signals := priceOutlierSignals(bikes)
	require.Len(t, signals, 1)
	assert.Equal(t, SignalPriceOutlier, signals[0].Type)
	assert.Equal(t, SeverityWarning, signals[0].Severity)
	assert.Equal(t, uint64(4), signals[0].Details["bikeId"])
	assert.Equal(t, "Prijsafwijking: Fiets F-4 (€100000.00) wijkt sterk af van mediaan (€107.50)", signals[0].Message)
}

func TestPriceOutlierSignalsZeroMADFlagsNothing(t *testing.T) {
	bikes := []model.BikeWithNames{
		stockBike(1, "F-1", 10000),
		stockBike(2, "F-2", 10000),
		stockBike(3, "F-3", 10000),
		stockBike(4, "F-4", 99900000),
	}
	// Three identical prices give MAD 0; the rule abstains rather than
	// flag everything slightly different.
	bikes[3].SellingCents = bikes[0].SellingCents
	assert.Empty(t, priceOutlierSignals(bikes))
}

func TestPriceOutlierSignalsNeedsThreePricedBikes(t *testing.T) {
	bikes := []model.BikeWithNames{
		stockBike(1, "F-1", 10000),
		stockBike(2, "F-2", 99999999),
	}
	assert.Empty(t, priceOutlierSignals(bikes))
}

func TestPriceOutlierSignalsIgnoresSoldAndUnpriced(t *testing.T) {
	sold := stockBike(4, "F-4", 10000000)
	sold.Status = model.BikeStatusSold
	unpriced := stockBike(5, "F-5", 0)
	unpriced.SellingCents = nil

	bikes := []model.BikeWithNames{
		stockBike(1, "F-1", 10000),
		stockBike(2, "F-2", 10500),
		stockBike(3, "F-3", 11000),
		sold,
		unpriced,
	}
	assert.Empty(t, priceOutlierSignals(bikes), "sold and unpriced bikes are out of scope")
}

func TestNegativeMarginSignals(t *testing.T) {
	loss := stockBike(1, "F-1", 50000)
	purchase := int64(70000)
	loss.PurchaseCents = &purchase

	breakEven := stockBike(2, "F-2", 50000)
	even := int64(50000)
	breakEven.PurchaseCents = &even

	soldLoss := stockBike(3, "F-3", 50000)
	soldLoss.PurchaseCents = &purchase
	soldLoss.Status = model.BikeStatusSold

	signals := negativeMarginSignals([]model.BikeWithNames{loss, breakEven, soldLoss})
	require.Len(t, signals, 1)
	assert.Equal(t, SignalNegativeStock, signals[0].Type)
	assert.Equal(t, "Mogelijke verliespost: Gazelle Chamonix (Frame: F-1) - Inkoop €700.00 > Verkoop €500.00", signals[0].Message)
	assert.InDelta(t, 200.0, signals[0].Details["loss"], 0.001)
}

func TestComputeSignalsCombinesAllChecks(t *testing.T) {
	dup := stockBike(2, "F-1", 10000)
	loss := stockBike(3, "F-3", 40000)
	p := int64(60000)
	loss.PurchaseCents = &p

	signals := ComputeSignals([]model.BikeWithNames{stockBike(1, "F-1", 10000), dup, loss})

	types := make([]string, 0, len(signals))
	for _, s := range signals {
		types = append(types, s.Type)
	}
	assert.Contains(t, types, SignalDuplicateFrame)
	assert.Contains(t, types, SignalNegativeStock)
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 107.5, median([]float64{100, 105, 110, 100000}))
	assert.Equal(t, 105.0, median([]float64{110, 100, 105}))

	in := []float64{3, 1, 2}
	_ = median(in)
	assert.Equal(t, []float64{3, 1, 2}, in, "input must not be sorted in place")
}
