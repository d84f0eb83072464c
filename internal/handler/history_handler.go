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

type HistoryHandler struct {
	historyService service.HistoryService
}

func NewHistoryHandler(historyService service.HistoryService) *HistoryHandler {
	return &HistoryHandler{historyService: historyService}
}

func (h *HistoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/purchase-orders/:id/history", middleware.RequireRole(model.RoleAdmin, model.RoleVendor), h.GetPOHistory)
	router.GET("/api/history", middleware.RequireRole(model.RoleAdmin), h.GetAllHistory)
}

// GetPOHistory returns the merged change log for one purchase order
// @Summary      PO change history
// @Tags         history
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "PO ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/purchase-orders/{id}/history [get]
func (h *HistoryHandler) GetPOHistory(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	entries, err := h.historyService.GetPOHistory(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, entries))
}

// GetAllHistory returns the global change log, newest first
// @Summary      Global change history
// @Tags         history
// @Security     BearerAuth
// @Produce      json
// @Param        vendor_id  query  string  false  "Filter by vendor"
// @Param        page       query  int     false  "Page number (default: 1)"
// @Param        limit      query  int     false  "Items per page (default: 20)"
// @Success      200  {object}  response.Response
// @Router       /api/history [get]
func (h *HistoryHandler) GetAllHistory(c *gin.Context) {
	params := pagination.Parse(c)

	entries, total, err := h.historyService.GetAllHistory(c.Request.Context(), service.HistoryFilter{
		VendorID: c.Query("vendor_id"),
		Page:     params.Page,
		Limit:    params.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, entries, params.Page, params.Limit, total))
}
