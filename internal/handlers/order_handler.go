package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/b3nzuk3/gameCity-sub001/internal/middleware"
	"github.com/b3nzuk3/gameCity-sub001/internal/models"
	"github.com/b3nzuk3/gameCity-sub001/internal/services"
)

type OrderHandler struct {
	BaseHandler
	orderService services.OrderService
}

func NewOrderHandler(base BaseHandler, orderService services.OrderService) *OrderHandler {
	return &OrderHandler{BaseHandler: base, orderService: orderService}
}

func (h *OrderHandler) RegisterRoutes(api *gin.RouterGroup) {
	orders := api.Group("/orders")
	orders.Use(middleware.AuthMiddleware())
	{
		orders.POST("", h.Create)
		orders.GET("", h.ListMine)
		orders.GET("/:id", h.Get)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.RoleMiddleware(models.UserRoleAdmin))
	{
		admin.GET("/stats", h.Stats)
	}
}

func (h *OrderHandler) Create(c *gin.Context) {
	userID, ok := h.CurrentUserID(c)
	if !ok {
		return
	}

	var input services.CreateOrderInput
	if !h.BindAndValidateJSON(c, &input) {
		return
	}

	order, err := h.orderService.CreateOrder(userID, input)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.RespondCreated(c, order)
}

func (h *OrderHandler) ListMine(c *gin.Context) {
	userID, ok := h.CurrentUserID(c)
	if !ok {
		return
	}

	page, pageSize := h.ParsePagination(c)
	resp, err := h.orderService.ListUserOrders(userID, page, pageSize)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.RespondOK(c, resp)
}

func (h *OrderHandler) Get(c *gin.Context) {
	userID, ok := h.CurrentUserID(c)
	if !ok {
		return
	}

	isAdmin := middleware.GetUserRole(c) == string(models.UserRoleAdmin)
	order, err := h.orderService.GetOrder(userID, c.Param("id"), isAdmin)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.RespondOK(c, order)
}

// Stats reports order and revenue counters since ?days ago (default 30).
func (h *OrderHandler) Stats(c *gin.Context) {
	days := 30
	if q := c.Query("days"); q != "" {
		if parsed, err := strconv.Atoi(q); err == nil && parsed > 0 {
			days = parsed
		}
	}

	since := time.Now().AddDate(0, 0, -days)
	resp, err := h.orderService.GetAdminStats(since)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.RespondOK(c, resp)
}
