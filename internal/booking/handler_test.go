package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"theraslot/internal/api"
	"theraslot/internal/availability"
)

type stubEngine struct {
	view    *BookingView
	list    *ListBookingsResponse
	err     error

	gotID     int64
	gotCreate CreateBookingRequest
	gotCancel CancelBookingRequest
	gotResch  RescheduleBookingRequest
	gotUserID string
	gotTz     string
}

func (s *stubEngine) Create(ctx context.Context, req CreateBookingRequest) (*BookingView, error) {
	s.gotCreate = req
	return s.view, s.err
}

func (s *stubEngine) Get(ctx context.Context, id int64, requesterTz string) (*BookingView, error) {
	s.gotID = id
	s.gotTz = requesterTz
	return s.view, s.err
}

func (s *stubEngine) ListByUser(ctx context.Context, userID, requesterTz string) (*ListBookingsResponse, error) {
	s.gotUserID = userID
	s.gotTz = requesterTz
	return s.list, s.err
}

func (s *stubEngine) Cancel(ctx context.Context, id int64, req CancelBookingRequest) (*BookingView, error) {
	s.gotID = id
	s.gotCancel = req
	return s.view, s.err
}

func (s *stubEngine) Reschedule(ctx context.Context, id int64, req RescheduleBookingRequest) (*BookingView, error) {
	s.gotID = id
	s.gotResch = req
	return s.view, s.err
}

func setupRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(svc).RegisterRoutes(router)
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateHandler(t *testing.T) {
	svc := &stubEngine{view: &BookingView{BookingID: 41, Status: StatusScheduled}}
	router := setupRouter(svc)

	w := postJSON(router, "/bookings", `{"user_id":"user-1","availability_id":7,"requester_tz":"Asia/Shanghai"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "user-1", svc.gotCreate.UserID)
	assert.Equal(t, int64(7), svc.gotCreate.AvailabilityID)
	assert.Equal(t, "Asia/Shanghai", svc.gotCreate.RequesterTz)

	var view BookingView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, int64(41), view.BookingID)
}

func TestCreateHandlerRejectsUnknownFields(t *testing.T) {
	router := setupRouter(&stubEngine{})

	w := postJSON(router, "/bookings", `{"user_id":"user-1","availability_id":7,"slot":7}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, api.KindInvalidInput, resp.Kind)
}

func TestCreateHandlerSlotConflict(t *testing.T) {
	svc := &stubEngine{err: availability.ErrSlotAlreadyBooked}
	router := setupRouter(svc)

	w := postJSON(router, "/bookings", `{"user_id":"user-1","availability_id":7}`)

	require.Equal(t, http.StatusConflict, w.Code)
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, api.KindSlotUnavailable, resp.Kind)
}

func TestCreateHandlerMissingSlot(t *testing.T) {
	svc := &stubEngine{err: availability.ErrSlotNotFound}
	router := setupRouter(svc)

	w := postJSON(router, "/bookings", `{"user_id":"user-1","availability_id":99}`)

	require.Equal(t, http.StatusNotFound, w.Code)
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, api.KindNotFound, resp.Kind)
}

func TestGetHandler(t *testing.T) {
	svc := &stubEngine{view: &BookingView{BookingID: 41, Status: StatusScheduled}}
	router := setupRouter(svc)

	req := httptest.NewRequest("GET", "/bookings/41?tz=Asia/Shanghai", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(41), svc.gotID)
	assert.Equal(t, "Asia/Shanghai", svc.gotTz)
}

func TestGetHandlerBadID(t *testing.T) {
	router := setupRouter(&stubEngine{})

	req := httptest.NewRequest("GET", "/bookings/abc", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetHandlerNotFound(t *testing.T) {
	svc := &stubEngine{err: ErrBookingNotFound}
	router := setupRouter(svc)

	req := httptest.NewRequest("GET", "/bookings/404", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListHandlerRequiresUserID(t *testing.T) {
	router := setupRouter(&stubEngine{})

	req := httptest.NewRequest("GET", "/bookings", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListHandler(t *testing.T) {
	svc := &stubEngine{list: &ListBookingsResponse{Bookings: []BookingView{{BookingID: 41}}, Count: 1}}
	router := setupRouter(svc)

	req := httptest.NewRequest("GET", "/bookings?user_id=user-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", svc.gotUserID)
}

func TestCancelHandler(t *testing.T) {
	svc := &stubEngine{view: &BookingView{BookingID: 41, Status: StatusCanceled}}
	router := setupRouter(svc)

	w := postJSON(router, "/bookings/41/cancel", `{"reason":"client request"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(41), svc.gotID)
	assert.Equal(t, "client request", svc.gotCancel.Reason)
}

func TestCancelHandlerEmptyBody(t *testing.T) {
	svc := &stubEngine{view: &BookingView{BookingID: 41, Status: StatusCanceled}}
	router := setupRouter(svc)

	req := httptest.NewRequest("POST", "/bookings/41/cancel", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, svc.gotCancel.Reason)
}

func TestCancelHandlerAlreadyCanceled(t *testing.T) {
	svc := &stubEngine{err: ErrAlreadyCanceled}
	router := setupRouter(svc)

	w := postJSON(router, "/bookings/41/cancel", `{}`)

	require.Equal(t, http.StatusConflict, w.Code)
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, api.KindAlreadyCanceled, resp.Kind)
}

func TestRescheduleHandler(t *testing.T) {
	svc := &stubEngine{view: &BookingView{BookingID: 41, Status: StatusScheduled}}
	router := setupRouter(svc)

	w := postJSON(router, "/bookings/41/reschedule", `{"new_availability_id":9}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(9), svc.gotResch.NewAvailabilityID)
}

func TestRescheduleHandlerPartialFailure(t *testing.T) {
	old := int64(7)
	svc := &stubEngine{err: &PartialFailureError{
		Step:            "claim_new",
		BookingID:       41,
		OldSlotID:       &old,
		NewSlotID:       9,
		OldSlotReleased: true,
		Err:             availability.ErrSlotAlreadyBooked,
	}}
	router := setupRouter(svc)

	w := postJSON(router, "/bookings/41/reschedule", `{"new_availability_id":9}`)

	require.Equal(t, http.StatusConflict, w.Code)

	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, api.KindPartialFailure, resp.Kind)

	details, ok := resp.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "claim_new", details["step"])
	assert.Equal(t, true, details["old_slot_released"])
	assert.Equal(t, false, details["new_slot_claimed"])
}

func TestRescheduleHandlerMissingBody(t *testing.T) {
	router := setupRouter(&stubEngine{})

	w := postJSON(router, "/bookings/41/reschedule", `{}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
