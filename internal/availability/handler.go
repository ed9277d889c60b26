package availability

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"theraslot/internal/api"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/therapists/:code/availability", h.AddSlots)
	r.GET("/therapists/:code/availability", h.ListOpenSlots)
}

// AddSlots godoc
// @Summary      Declare availability
// @Description  Upserts open slots for a therapist from local wall-clock ranges. Entries are applied independently; per-entry failures are reported in the response body.
// @Tags         availability
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        code     path      string           true  "Therapist code ('-' for the configured default)"
// @Param        request  body      AddSlotsRequest  true  "Time ranges"
// @Success      201      {object}  AddSlotsResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /therapists/{code}/availability [post]
func (h *Handler) AddSlots(c *gin.Context) {
	var req AddSlotsRequest
	if err := api.BindStrict(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Kind: api.KindInvalidInput, Error: err.Error()})
		return
	}

	resp, err := h.service.AddSlots(c.Request.Context(), c.Param("code"), req)
	if err != nil {
		status, body := mapServiceError(err)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ListOpenSlots godoc
// @Summary      List open slots
// @Description  Returns unbooked slots starting within the window, ordered by start time, rendered in the therapist's and requester's zones.
// @Tags         availability
// @Security     BearerAuth
// @Produce      json
// @Param        code          path      string  true   "Therapist code ('-' for the configured default)"
// @Param        window_hours  query     int     false  "Look-ahead window in hours (default 96)"
// @Param        limit         query     int     false  "Maximum slots to return (default 20, max 100)"
// @Param        tz            query     string  false  "Requester timezone"
// @Success      200           {object}  ListSlotsResponse
// @Failure      400           {object}  api.ErrorResponse
// @Failure      500           {object}  api.ErrorResponse
// @Router       /therapists/{code}/availability [get]
func (h *Handler) ListOpenSlots(c *gin.Context) {
	windowHours, err := queryInt(c, "window_hours", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Kind: api.KindInvalidInput, Error: "window_hours must be an integer"})
		return
	}

	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Kind: api.KindInvalidInput, Error: "limit must be an integer"})
		return
	}

	resp, err := h.service.ListOpen(c.Request.Context(), c.Param("code"), windowHours, limit, c.Query("tz"))
	if err != nil {
		status, body := mapServiceError(err)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func queryInt(c *gin.Context, name string, defaultValue int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(raw)
}

func mapServiceError(err error) (int, api.ErrorResponse) {
	switch {
	case errors.Is(err, ErrMissingTherapistCode), errors.Is(err, ErrInvalidWindow), errors.Is(err, ErrInvalidRange):
		return http.StatusBadRequest, api.ErrorResponse{Kind: api.KindInvalidInput, Error: err.Error()}
	case api.IsTimeout(err):
		return http.StatusGatewayTimeout, api.ErrorResponse{Kind: api.KindUpstreamTimeout, Error: "storage timed out; retry"}
	default:
		return http.StatusInternalServerError, api.ErrorResponse{Kind: api.KindInternal, Error: "failed to process availability"}
	}
}
