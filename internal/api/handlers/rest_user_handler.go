package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"greendrake/freight/internal/services"
)

// RestUserHandler handles REST requests about the session user.
type RestUserHandler struct {
	userService services.IUserService
}

// NewRestUserHandler creates a new RestUserHandler.
func NewRestUserHandler(userService services.IUserService) *RestUserHandler {
	return &RestUserHandler{userService: userService}
}

// GetProfile handles GET /api/users/profile
func (h *RestUserHandler) GetProfile(c *gin.Context) {
	userID, ok := sessionUser(c)
	if !ok {
		return
	}

	profile, err := h.userService.Profile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	noCache(c)
	c.JSON(http.StatusOK, profile)
}
