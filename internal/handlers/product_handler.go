package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/b3nzuk3/gameCity-sub001/internal/middleware"
	"github.com/b3nzuk3/gameCity-sub001/internal/models"
	"github.com/b3nzuk3/gameCity-sub001/internal/repositories"
	"github.com/b3nzuk3/gameCity-sub001/internal/services"
)

type ProductHandler struct {
	BaseHandler
	productService services.ProductService
}

func NewProductHandler(base BaseHandler, productService services.ProductService) *ProductHandler {
	return &ProductHandler{BaseHandler: base, productService: productService}
}

func (h *ProductHandler) RegisterRoutes(api *gin.RouterGroup) {
	products := api.Group("/products")
	{
		products.GET("", h.List)
		products.GET("/:slug", h.GetBySlug)
	}

	admin := api.Group("/admin/products")
	admin.Use(middleware.AuthMiddleware(), middleware.RoleMiddleware(models.UserRoleAdmin))
	{
		admin.POST("", h.Create)
		admin.PATCH("/:id", h.Update)
	}
}

func (h *ProductHandler) List(c *gin.Context) {
	page, pageSize := h.ParsePagination(c)

	filters := repositories.ProductFilters{
		Category:   c.Query("category"),
		Brand:      c.Query("brand"),
		Search:     c.Query("search"),
		OnlyActive: true,
	}

	resp, err := h.productService.List(filters, page, pageSize)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.RespondOK(c, resp)
}

func (h *ProductHandler) GetBySlug(c *gin.Context) {
	product, err := h.productService.GetBySlug(c.Param("slug"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.RespondOK(c, product)
}

func (h *ProductHandler) Create(c *gin.Context) {
	var input services.CreateProductInput
	if !h.BindAndValidateJSON(c, &input) {
		return
	}

	product, err := h.productService.Create(input)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.RespondCreated(c, product)
}

func (h *ProductHandler) Update(c *gin.Context) {
	var input services.UpdateProductInput
	if !h.BindAndValidateJSON(c, &input) {
		return
	}

	product, err := h.productService.Update(c.Param("id"), input)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.RespondOK(c, product)
}
