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

type VendorHandler struct {
	vendorService service.VendorService
}

func NewVendorHandler(vendorService service.VendorService) *VendorHandler {
	return &VendorHandler{vendorService: vendorService}
}

func (h *VendorHandler) RegisterRoutes(router *gin.RouterGroup) {
	// Signup is the only unauthenticated vendor endpoint.
	router.POST("/api/vendors/signup", h.Signup)

	vendors := router.Group("/api/vendors")
	{
		vendors.GET("", middleware.RequireRole(model.RoleAdmin), h.ListVendors)
		vendors.GET("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleVendor), h.GetVendor)
		vendors.PUT("/:id", middleware.RequireRole(model.RoleAdmin), h.UpdateVendor)
		vendors.POST("/:id/approve", middleware.RequireRole(model.RoleAdmin), h.ApproveVendor)
		vendors.POST("/:id/reject", middleware.RequireRole(model.RoleAdmin), h.RejectVendor)
	}
}

// Signup registers a new vendor and its portal user
// @Summary      Vendor signup
// @Tags         vendors
// @Accept       json
// @Produce      json
// @Param        payload  body  service.SignupRequest  true  "Signup payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/vendors/signup [post]
func (h *VendorHandler) Signup(c *gin.Context) {
	var req service.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	vendor, err := h.vendorService.Signup(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, vendor))
}

// ListVendors returns vendors filtered by status and search term
// @Summary      List vendors
// @Tags         vendors
// @Security     BearerAuth
// @Produce      json
// @Param        status  query  string  false  "Filter by status (PENDING_APPROVAL, ACTIVE, REJECTED)"
// @Param        search  query  string  false  "Search by name or contact email"
// @Param        page    query  int     false  "Page number (default: 1)"
// @Param        limit   query  int     false  "Items per page (default: 20)"
// @Success      200  {object}  response.Response
// @Router       /api/vendors [get]
func (h *VendorHandler) ListVendors(c *gin.Context) {
	params := pagination.Parse(c)

	vendors, total, err := h.vendorService.List(
		c.Request.Context(),
		c.Query("status"),
		c.Query("search"),
		params.Page,
		params.Limit,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, vendors, params.Page, params.Limit, total))
}

// GetVendor returns a single vendor
// @Summary      Get vendor
// @Tags         vendors
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Vendor ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/vendors/{id} [get]
func (h *VendorHandler) GetVendor(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "No identity in context"))
		return
	}

	// Vendor users can only read their own record.
	if !actor.IsAdmin() {
		if actor.VendorID == nil || actor.VendorID.String() != c.Param("id") {
			c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Vendor belongs to a different account"))
			return
		}
	}

	vendor, err := h.vendorService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, vendor))
}

// UpdateVendor updates vendor master data
// @Summary      Update vendor
// @Tags         vendors
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                       true  "Vendor ID"
// @Param        payload  body  service.UpdateVendorRequest  true  "Update payload"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/vendors/{id} [put]
func (h *VendorHandler) UpdateVendor(c *gin.Context) {
	var req service.UpdateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	vendor, err := h.vendorService.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, vendor))
}

// ApproveVendor approves a pending vendor and assigns its code
// @Summary      Approve vendor
// @Tags         vendors
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Vendor ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/vendors/{id}/approve [post]
func (h *VendorHandler) ApproveVendor(c *gin.Context) {
	vendor, err := h.vendorService.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, vendor))
}

// RejectVendor rejects a vendor and deactivates its users
// @Summary      Reject vendor
// @Tags         vendors
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Vendor ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/vendors/{id}/reject [post]
func (h *VendorHandler) RejectVendor(c *gin.Context) {
	vendor, err := h.vendorService.Reject(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, vendor))
}
