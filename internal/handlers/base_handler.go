package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/b3nzuk3/gameCity-sub001/internal/middleware"
	"github.com/b3nzuk3/gameCity-sub001/internal/validator"
	"github.com/b3nzuk3/gameCity-sub001/pkg/apperrors"
)

// BaseHandler carries the pieces every handler needs. Concrete handlers embed
// it and add their service.
type BaseHandler struct {
	Validator *validator.Validator
}

func NewBaseHandler(v *validator.Validator) BaseHandler {
	return BaseHandler{Validator: v}
}

// BindAndValidateJSON binds the request body into obj and runs struct
// validation. On failure it writes the error response and returns false.
func (h *BaseHandler) BindAndValidateJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid JSON body"))
		return false
	}
	if err := h.Validator.Validate(obj); err != nil {
		var vErr *validator.ValidationError
		if apperrors.As(err, &vErr) {
			apperrors.HandleError(c, apperrors.ValidationError(vErr.Errors))
		} else {
			apperrors.HandleError(c, err)
		}
		return false
	}
	return true
}

// HandleServiceError maps a service error onto the response.
func (h *BaseHandler) HandleServiceError(c *gin.Context, err error) {
	apperrors.HandleError(c, err)
}

// CurrentUserID pulls the authenticated user id out of the context, writing
// a 401 when it is missing.
func (h *BaseHandler) CurrentUserID(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.HandleError(c, apperrors.NewUnauthorizedError("Authentication required"))
		return "", false
	}
	return userID, true
}

// ParsePagination reads ?page and ?page_size with sane bounds.
func (h *BaseHandler) ParsePagination(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

// RespondOK writes a 200 with the payload.
func (h *BaseHandler) RespondOK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// RespondCreated writes a 201 with the payload.
func (h *BaseHandler) RespondCreated(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusCreated, payload)
}
