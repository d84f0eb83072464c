package handler

import (
	"net/http"

	"vendorhub/internal/middleware"
	"vendorhub/internal/model"
	"vendorhub/internal/service"
	"vendorhub/pkg/pagination"
	"vendorhub/pkg/response"

	"github.com/gin-gonic/gin"
)

type POHandler struct {
	poService service.POService
}

func NewPOHandler(poService service.POService) *POHandler {
	return &POHandler{poService: poService}
}

// Small update payloads that only carry one field each.
type priorityUpdateRequest struct {
	Priority string `json:"priority" binding:"required"`
}

type statusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
}

type dateUpdateRequest struct {
	ExpectedDeliveryDate string `json:"expected_delivery_date" binding:"required"`
}

func (h *POHandler) RegisterRoutes(router *gin.RouterGroup) {
	pos := router.Group("/api/purchase-orders")
	{
		pos.POST("", middleware.RequireRole(model.RoleAdmin), h.CreatePO)
		pos.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleVendor), h.ListPOs)
		pos.GET("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleVendor), h.GetPO)
		pos.PATCH("/:id/priority", middleware.RequireRole(model.RoleAdmin), h.UpdatePriority)
		pos.PATCH("/:id/status", middleware.RequireRole(model.RoleAdmin), h.OverrideStatus)
		pos.PATCH("/:id/closure", middleware.RequireRole(model.RoleAdmin), h.UpdateClosure)
		pos.POST("/:id/accept", middleware.RequireRole(model.RoleVendor), h.AcceptPO)

		items := pos.Group("/:id/line-items")
		{
			items.PATCH("/:itemId/expected-date", middleware.RequireRole(model.RoleAdmin, model.RoleVendor), h.UpdateLineItemExpectedDate)
			items.PATCH("/:itemId/status", middleware.RequireRole(model.RoleAdmin, model.RoleVendor), h.UpdateLineItemStatus)
			items.PATCH("/:itemId/priority", middleware.RequireRole(model.RoleAdmin), h.UpdateLineItemPriority)
		}
	}
}

func requireActor(c *gin.Context) (model.Actor, bool) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "No identity in context"))
	}
	return actor, ok
}

// CreatePO creates a purchase order with its line items
// @Summary      Create purchase order
// @Tags         purchase-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreatePORequest  true  "PO payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/purchase-orders [post]
func (h *POHandler) CreatePO(c *gin.Context) {
	var req service.CreatePORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	po, err := h.poService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, po))
}

// ListPOs returns purchase orders. Vendor users only see their own.
// @Summary      List purchase orders
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        vendor_id  query  string  false  "Filter by vendor (admin only)"
// @Param        status     query  string  false  "Filter by status"
// @Param        priority   query  string  false  "Filter by priority"
// @Param        page       query  int     false  "Page number (default: 1)"
// @Param        limit      query  int     false  "Items per page (default: 20)"
// @Success      200  {object}  response.Response
// @Router       /api/purchase-orders [get]
func (h *POHandler) ListPOs(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	params := pagination.Parse(c)

	filter := service.POFilterRequest{
		VendorID: c.Query("vendor_id"),
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Page:     params.Page,
		Limit:    params.Limit,
	}

	pos, total, err := h.poService.List(c.Request.Context(), filter, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, pos, params.Page, params.Limit, total))
}

// GetPO returns a purchase order with its line items
// @Summary      Get purchase order
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "PO ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/purchase-orders/{id} [get]
func (h *POHandler) GetPO(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	po, err := h.poService.Get(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// UpdatePriority changes the PO priority
// @Summary      Update PO priority
// @Tags         purchase-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                 true  "PO ID"
// @Param        payload  body  priorityUpdateRequest  true  "New priority"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/purchase-orders/{id}/priority [patch]
func (h *POHandler) UpdatePriority(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req priorityUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	po, err := h.poService.UpdatePriority(c.Request.Context(), c.Param("id"), req.Priority, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// OverrideStatus sets the PO status directly without transition checks
// @Summary      Override PO status
// @Tags         purchase-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string               true  "PO ID"
// @Param        payload  body  statusUpdateRequest  true  "New status"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/purchase-orders/{id}/status [patch]
func (h *POHandler) OverrideStatus(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	po, err := h.poService.OverrideStatus(c.Request.Context(), c.Param("id"), req.Status, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// UpdateClosure records ERP closure fields on the PO
// @Summary      Update PO closure
// @Tags         purchase-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                  true  "PO ID"
// @Param        payload  body  service.ClosureRequest  true  "Closure payload"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/purchase-orders/{id}/closure [patch]
func (h *POHandler) UpdateClosure(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req service.ClosureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	po, err := h.poService.UpdateClosure(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// AcceptPO accepts a CREATED purchase order with delivery dates per line item
// @Summary      Accept purchase order
// @Tags         purchase-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                   true  "PO ID"
// @Param        payload  body  service.AcceptPORequest  true  "Line item delivery dates"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/purchase-orders/{id}/accept [post]
func (h *POHandler) AcceptPO(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req service.AcceptPORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	po, err := h.poService.Accept(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// UpdateLineItemExpectedDate changes a line item's expected delivery date
// @Summary      Update line item expected date
// @Tags         purchase-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string             true  "PO ID"
// @Param        itemId   path  string             true  "Line item ID"
// @Param        payload  body  dateUpdateRequest  true  "New expected delivery date (YYYY-MM-DD)"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/purchase-orders/{id}/line-items/{itemId}/expected-date [patch]
func (h *POHandler) UpdateLineItemExpectedDate(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req dateUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	po, err := h.poService.UpdateLineItemExpectedDate(c.Request.Context(), c.Param("id"), c.Param("itemId"), req.ExpectedDeliveryDate, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// UpdateLineItemStatus advances a line item through the status lifecycle
// @Summary      Update line item status
// @Tags         purchase-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string               true  "PO ID"
// @Param        itemId   path  string               true  "Line item ID"
// @Param        payload  body  statusUpdateRequest  true  "New status"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/purchase-orders/{id}/line-items/{itemId}/status [patch]
func (h *POHandler) UpdateLineItemStatus(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	po, err := h.poService.UpdateLineItemStatus(c.Request.Context(), c.Param("id"), c.Param("itemId"), req.Status, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// UpdateLineItemPriority changes a line item's priority
// @Summary      Update line item priority
// @Tags         purchase-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                 true  "PO ID"
// @Param        itemId   path  string                 true  "Line item ID"
// @Param        payload  body  priorityUpdateRequest  true  "New priority"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/purchase-orders/{id}/line-items/{itemId}/priority [patch]
func (h *POHandler) UpdateLineItemPriority(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req priorityUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	po, err := h.poService.UpdateLineItemPriority(c.Request.Context(), c.Param("id"), c.Param("itemId"), req.Priority, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}
