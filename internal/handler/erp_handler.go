package handler

import (
	"net/http"

	"vendorhub/internal/middleware"
	"vendorhub/internal/service"
	"vendorhub/pkg/response"

	"github.com/gin-gonic/gin"
)

// ERPHandler exposes the machine-to-machine surface used by the ERP
// integration. These routes authenticate with a service key instead of a
// user token.
type ERPHandler struct {
	vendorService service.VendorService
	poService     service.POService
}

func NewERPHandler(vendorService service.VendorService, poService service.POService) *ERPHandler {
	return &ERPHandler{vendorService: vendorService, poService: poService}
}

func (h *ERPHandler) RegisterRoutes(router *gin.RouterGroup) {
	erp := router.Group("/api/erp", middleware.RequireServiceKey())
	{
		erp.POST("/vendors", h.UpsertVendor)
		erp.POST("/purchase-orders", h.CreatePO)
	}
}

// UpsertVendor creates or updates a vendor from ERP master data
// @Summary      ERP vendor upsert
// @Tags         erp
// @Accept       json
// @Produce      json
// @Param        X-Service-Key  header  string                          true  "Service API key"
// @Param        payload        body    service.ERPVendorUpsertRequest  true  "Vendor payload"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/erp/vendors [post]
func (h *ERPHandler) UpsertVendor(c *gin.Context) {
	var req service.ERPVendorUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	vendor, err := h.vendorService.UpsertFromERP(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, vendor))
}

// CreatePO ingests a purchase order pushed from the ERP
// @Summary      ERP purchase order create
// @Tags         erp
// @Accept       json
// @Produce      json
// @Param        X-Service-Key  header  string                   true  "Service API key"
// @Param        payload        body    service.CreatePORequest  true  "PO payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/erp/purchase-orders [post]
func (h *ERPHandler) CreatePO(c *gin.Context) {
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
