package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/velodepot/bikeshop/internal/model"
	"github.com/velodepot/bikeshop/internal/repository"
	"github.com/velodepot/bikeshop/internal/service"
)

// WorkOrderHandler bundles dependencies for the work order endpoints.
type WorkOrderHandler struct {
	WorkOrders *service.WorkOrderService
	Orders     *repository.WorkOrderRepo
}

func NewWorkOrderHandler(svc *service.WorkOrderService, orders *repository.WorkOrderRepo) *WorkOrderHandler {
	return &WorkOrderHandler{WorkOrders: svc, Orders: orders}
}

// ----- DTOs -----

type createWorkOrderReq struct {
	BikeID        uint64   `json:"bike_id"`
	Description   string   `json:"description"`
	Priority      *string  `json:"priority"`
	AssignedToID  *uint64  `json:"assigned_to_id"`
	EstimatedCost *float64 `json:"estimated_cost"`
	Notes         *string  `json:"notes"`
}

// updateWorkOrderReq distinguishes an absent assigned_to_id from an
// explicit null: null clears the assignment, absent leaves it alone.
type updateWorkOrderReq struct {
	Description  *string          `json:"description"`
	Status       *string          `json:"status"`
	Priority     *string          `json:"priority"`
	AssignedToID *json.RawMessage `json:"assigned_to_id"`
	ActualCost   *float64         `json:"actual_cost"`
	Notes        *string          `json:"notes"`
}

type workOrderResp struct {
	ID            uint64     `json:"id"`
	BikeID        uint64     `json:"bike_id"`
	FrameNumber   string     `json:"frame_number,omitempty"`
	Brand         string     `json:"brand,omitempty"`
	Model         string     `json:"model,omitempty"`
	Description   string     `json:"description"`
	Status        string     `json:"status"`
	Priority      string     `json:"priority"`
	CreatedByID   uint64     `json:"created_by_id"`
	CreatedBy     string     `json:"created_by,omitempty"`
	AssignedToID  *uint64    `json:"assigned_to_id"`
	AssignedTo    *string    `json:"assigned_to,omitempty"`
	EstimatedCost *float64   `json:"estimated_cost"`
	ActualCost    *float64   `json:"actual_cost"`
	Notes         *string    `json:"notes"`
	CompletedAt   *time.Time `json:"completed_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func toWorkOrderResp(wo *model.ServiceWorkOrder) workOrderResp {
	return workOrderResp{
		ID:            wo.ID,
		BikeID:        wo.BikeID,
		Description:   wo.Description,
		Status:        wo.Status,
		Priority:      wo.Priority,
		CreatedByID:   wo.CreatedByID,
		AssignedToID:  wo.AssignedToID,
		EstimatedCost: service.CentsToEurosPtr(wo.EstimatedCents),
		ActualCost:    service.CentsToEurosPtr(wo.ActualCents),
		Notes:         wo.Notes,
		CompletedAt:   wo.CompletedAt,
		CreatedAt:     wo.CreatedAt,
		UpdatedAt:     wo.UpdatedAt,
	}
}

func toWorkOrderRespWithNames(wo model.WorkOrderWithNames) workOrderResp {
	resp := toWorkOrderResp(&wo.ServiceWorkOrder)
	resp.FrameNumber = wo.FrameNumber
	resp.Brand = wo.BrandName
	resp.Model = wo.ModelName
	resp.CreatedBy = wo.CreatedByName
	resp.AssignedTo = wo.AssignedToName
	return resp
}

// List returns a filtered, paginated work order listing.
func (h *WorkOrderHandler) List(c echo.Context) error {
	page, limit := pageParams(c)
	filter := model.WorkOrderFilter{
		Status: c.QueryParam("status"),
		Page:   page,
		Limit:  limit,
	}
	if filter.Status != "" && !model.IsValidWorkOrderStatus(filter.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status filter"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	orders, total, err := h.Orders.List(ctx, filter)
	if err != nil {
		return writeServiceError(c, err)
	}

	data := make([]workOrderResp, 0, len(orders))
	for _, wo := range orders {
		data = append(data, toWorkOrderRespWithNames(wo))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data":  data,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// Get returns one work order with joined names.
func (h *WorkOrderHandler) Get(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	wo, err := h.Orders.GetDetail(ctx, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	if wo == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "work order not found", "code": service.CodeNotFound})
	}
	return c.JSON(http.StatusOK, toWorkOrderRespWithNames(*wo))
}

// Create opens a work order against a bike.
func (h *WorkOrderHandler) Create(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	var req createWorkOrderReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.BikeID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bike_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	wo, err := h.WorkOrders.Create(ctx, service.CreateWorkOrderInput{
		BikeID:        req.BikeID,
		Description:   req.Description,
		Priority:      req.Priority,
		AssignedToID:  req.AssignedToID,
		EstimatedCost: req.EstimatedCost,
		Notes:         req.Notes,
	}, actor)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, toWorkOrderResp(wo))
}

// Update applies a partial update; completion flips the bike back to
// stock.
func (h *WorkOrderHandler) Update(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req updateWorkOrderReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	in := service.UpdateWorkOrderInput{
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		ActualCost:  req.ActualCost,
		Notes:       req.Notes,
	}
	if req.AssignedToID != nil {
		var assignee *uint64
		if string(*req.AssignedToID) != "null" {
			var v uint64
			if err := json.Unmarshal(*req.AssignedToID, &v); err != nil || v == 0 {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid assigned_to_id"})
			}
			assignee = &v
		}
		in.AssignedToID = &assignee
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	wo, err := h.WorkOrders.Update(ctx, id, in, actor)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toWorkOrderResp(wo))
}
