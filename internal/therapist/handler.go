package therapist

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"theraslot/internal/api"
)

type Handler struct {
	directory Directory
}

func NewHandler(directory Directory) *Handler {
	return &Handler{directory: directory}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/therapists/:code", h.GetTherapist)
}

// GetTherapist godoc
// @Summary      Get therapist profile
// @Description  Returns the therapist's display name and declared timezone.
// @Tags         therapists
// @Security     BearerAuth
// @Produce      json
// @Param        code  path      string  true  "Therapist code"
// @Success      200   {object}  Profile
// @Failure      404   {object}  api.ErrorResponse
// @Failure      500   {object}  api.ErrorResponse
// @Router       /therapists/{code} [get]
func (h *Handler) GetTherapist(c *gin.Context) {
	code := c.Param("code")

	profile, err := h.directory.GetProfile(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, ErrTherapistNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Kind: api.KindNotFound, Error: "therapist not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Kind: api.KindInternal, Error: "failed to load therapist"})
		return
	}

	c.JSON(http.StatusOK, profile)
}
