package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/b3nzuk3/gameCity-sub001/internal/middleware"
	"github.com/b3nzuk3/gameCity-sub001/internal/services"
)

type AuthHandler struct {
	BaseHandler
	authService services.AuthService
}

func NewAuthHandler(base BaseHandler, authService services.AuthService) *AuthHandler {
	return &AuthHandler{BaseHandler: base, authService: authService}
}

func (h *AuthHandler) RegisterRoutes(api *gin.RouterGroup) {
	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", h.Logout)
	}

	me := api.Group("/me")
	me.Use(middleware.AuthMiddleware())
	{
		me.GET("", h.Profile)
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var input services.RegisterInput
	if !h.BindAndValidateJSON(c, &input) {
		return
	}

	resp, err := h.authService.Register(input)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.RespondCreated(c, resp)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var input services.LoginInput
	if !h.BindAndValidateJSON(c, &input) {
		return
	}

	resp, err := h.authService.Login(input)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.RespondOK(c, resp)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var input services.RefreshInput
	if !h.BindAndValidateJSON(c, &input) {
		return
	}

	resp, err := h.authService.Refresh(input)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.RespondOK(c, resp)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	var input services.RefreshInput
	if !h.BindAndValidateJSON(c, &input) {
		return
	}

	if err := h.authService.Logout(input.RefreshToken); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.RespondOK(c, gin.H{"message": "Logged out"})
}

func (h *AuthHandler) Profile(c *gin.Context) {
	userID, ok := h.CurrentUserID(c)
	if !ok {
		return
	}

	user, err := h.authService.GetProfile(userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.RespondOK(c, user)
}
