package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/velodepot/bikeshop/internal/model"
	"github.com/velodepot/bikeshop/internal/repository"
	"github.com/velodepot/bikeshop/internal/service"
)

// BikeHandler bundles dependencies for the inventory endpoints.
type BikeHandler struct {
	Inventory *service.InventoryService
	Bikes     *repository.BikeRepo
	Movements *repository.MovementRepo
	Orders    *repository.WorkOrderRepo
	Catalog   *repository.CatalogRepo
}

func NewBikeHandler(inv *service.InventoryService, bikes *repository.BikeRepo, movements *repository.MovementRepo, orders *repository.WorkOrderRepo, catalog *repository.CatalogRepo) *BikeHandler {
	return &BikeHandler{Inventory: inv, Bikes: bikes, Movements: movements, Orders: orders, Catalog: catalog}
}

// ----- DTOs -----

type createBikeReq struct {
	FrameNumber   string   `json:"frame_number"`
	BrandID       uint64   `json:"brand_id"`
	ModelID       uint64   `json:"model_id"`
	Year          *int     `json:"year"`
	Color         *string  `json:"color"`
	Size          *string  `json:"size"`
	PurchasePrice *float64 `json:"purchase_price"`
	SellingPrice  *float64 `json:"selling_price"`
	Notes         *string  `json:"notes"`
}

type updateBikeReq struct {
	Color         *string  `json:"color"`
	Size          *string  `json:"size"`
	PurchasePrice *float64 `json:"purchase_price"`
	SellingPrice  *float64 `json:"selling_price"`
	Notes         *string  `json:"notes"`
	Status        *string  `json:"status"`
}

type bikeResp struct {
	ID            uint64     `json:"id"`
	FrameNumber   string     `json:"frame_number"`
	BrandID       uint64     `json:"brand_id"`
	ModelID       uint64     `json:"model_id"`
	Brand         string     `json:"brand,omitempty"`
	Model         string     `json:"model,omitempty"`
	Year          *int       `json:"year"`
	Color         *string    `json:"color"`
	Size          *string    `json:"size"`
	PurchasePrice *float64   `json:"purchase_price"`
	SellingPrice  *float64   `json:"selling_price"`
	Status        string     `json:"status"`
	Notes         *string    `json:"notes"`
	SoldAt        *time.Time `json:"sold_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type movementResp struct {
	ID            uint64    `json:"id"`
	FromStatus    *string   `json:"from_status"`
	ToStatus      string    `json:"to_status"`
	Reason        string    `json:"reason"`
	PerformedByID uint64    `json:"performed_by_id"`
	CreatedAt     time.Time `json:"created_at"`
}

func toBikeResp(b *model.Bike) bikeResp {
	return bikeResp{
		ID:            b.ID,
		FrameNumber:   b.FrameNumber,
		BrandID:       b.BrandID,
		ModelID:       b.ModelID,
		Year:          b.Year,
		Color:         b.Color,
		Size:          b.Size,
		PurchasePrice: service.CentsToEurosPtr(b.PurchaseCents),
		SellingPrice:  service.CentsToEurosPtr(b.SellingCents),
		Status:        b.Status,
		Notes:         b.Notes,
		SoldAt:        b.SoldAt,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

func toBikeRespWithNames(b model.BikeWithNames) bikeResp {
	resp := toBikeResp(&b.Bike)
	resp.Brand = b.BrandName
	resp.Model = b.ModelName
	return resp
}

// List returns a filtered, paginated inventory listing.
func (h *BikeHandler) List(c echo.Context) error {
	page, limit := pageParams(c)
	filter := model.BikeFilter{
		Status: c.QueryParam("status"),
		Search: c.QueryParam("search"),
		Page:   page,
		Limit:  limit,
	}
	if filter.Status != "" && !model.IsValidBikeStatus(filter.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status filter"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	bikes, total, err := h.Bikes.List(ctx, filter)
	if err != nil {
		return writeServiceError(c, err)
	}

	data := make([]bikeResp, 0, len(bikes))
	for _, b := range bikes {
		data = append(data, toBikeRespWithNames(b))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data":  data,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// Get returns one bike with its movement history and work orders.
func (h *BikeHandler) Get(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	bike, err := h.Bikes.GetDetail(ctx, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	if bike == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "bike not found", "code": service.CodeNotFound})
	}

	movements, err := h.Movements.ListByBike(ctx, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	orders, err := h.Orders.ListByBike(ctx, id)
	if err != nil {
		return writeServiceError(c, err)
	}

	mvs := make([]movementResp, 0, len(movements))
	for _, mv := range movements {
		mvs = append(mvs, movementResp{
			ID:            mv.ID,
			FromStatus:    mv.FromStatus,
			ToStatus:      mv.ToStatus,
			Reason:        mv.Reason,
			PerformedByID: mv.PerformedByID,
			CreatedAt:     mv.CreatedAt,
		})
	}
	wos := make([]workOrderResp, 0, len(orders))
	for _, wo := range orders {
		wos = append(wos, toWorkOrderRespWithNames(wo))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"bike":        toBikeRespWithNames(*bike),
		"movements":   mvs,
		"work_orders": wos,
	})
}

// Create registers a new bike.
func (h *BikeHandler) Create(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	var req createBikeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	bike, err := h.Inventory.Create(ctx, service.CreateBikeInput{
		FrameNumber:   req.FrameNumber,
		BrandID:       req.BrandID,
		ModelID:       req.ModelID,
		Year:          req.Year,
		Color:         req.Color,
		Size:          req.Size,
		PurchasePrice: req.PurchasePrice,
		SellingPrice:  req.SellingPrice,
		Notes:         req.Notes,
	}, actor)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, toBikeResp(bike))
}

// Update applies a partial update, including guarded status changes.
func (h *BikeHandler) Update(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req updateBikeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	bike, err := h.Inventory.Update(ctx, id, service.UpdateBikeInput{
		Color:         req.Color,
		Size:          req.Size,
		PurchasePrice: req.PurchasePrice,
		SellingPrice:  req.SellingPrice,
		Notes:         req.Notes,
		Status:        req.Status,
	}, actor)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toBikeResp(bike))
}

// Checkout sells a bike from IN_STOCK or RESERVED.
func (h *BikeHandler) Checkout(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	bike, err := h.Inventory.Checkout(ctx, id, actor)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toBikeResp(bike))
}

// Brands lists the brand catalog.
func (h *BikeHandler) Brands(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	brands, err := h.Catalog.ListBrands(ctx)
	if err != nil {
		return writeServiceError(c, err)
	}
	data := make([]echo.Map, 0, len(brands))
	for _, b := range brands {
		data = append(data, echo.Map{"id": b.ID, "name": b.Name})
	}
	return c.JSON(http.StatusOK, data)
}

// Models lists the model catalog, optionally filtered by ?brand_id.
func (h *BikeHandler) Models(c echo.Context) error {
	var brandID *uint64
	if raw := c.QueryParam("brand_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid brand_id"})
		}
		brandID = &id
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	models, err := h.Catalog.ListModels(ctx, brandID)
	if err != nil {
		return writeServiceError(c, err)
	}
	data := make([]echo.Map, 0, len(models))
	for _, m := range models {
		data = append(data, echo.Map{"id": m.ID, "brand_id": m.BrandID, "name": m.Name, "brand": m.BrandName})
	}
	return c.JSON(http.StatusOK, data)
}
