package booking

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"theraslot/internal/availability"
	"theraslot/internal/logger"
	"theraslot/internal/notify"
	"theraslot/internal/therapist"
	"theraslot/internal/timezone"
)

func TestMain(m *testing.M) {
	logger.Init()

	code := m.Run()
	os.Exit(code)
}

type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) Create(ctx context.Context, userID string, slotID int64) (*Booking, error) {
	args := m.Called(ctx, userID, slotID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *MockRepo) GetByID(ctx context.Context, id int64) (*Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *MockRepo) ListByUser(ctx context.Context, userID string) ([]Booking, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Booking), args.Error(1)
}

func (m *MockRepo) Cancel(ctx context.Context, id int64, reason string) (*Booking, error) {
	args := m.Called(ctx, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *MockRepo) Repoint(ctx context.Context, id int64, slotID int64, therapistCode string) (*Booking, error) {
	args := m.Called(ctx, id, slotID, therapistCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

type MockSlots struct {
	mock.Mock
}

func (m *MockSlots) UpsertSlot(ctx context.Context, therapistCode string, start, end time.Time) (*availability.Slot, bool, error) {
	args := m.Called(ctx, therapistCode, start, end)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*availability.Slot), args.Bool(1), args.Error(2)
}

func (m *MockSlots) GetSlotByID(ctx context.Context, id int64) (*availability.Slot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*availability.Slot), args.Error(1)
}

func (m *MockSlots) ListOpenSlots(ctx context.Context, therapistCode string, from, to time.Time, limit int) ([]availability.Slot, error) {
	args := m.Called(ctx, therapistCode, from, to, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]availability.Slot), args.Error(1)
}

func (m *MockSlots) SetBooked(ctx context.Context, id int64, desired bool) (*availability.Slot, error) {
	args := m.Called(ctx, id, desired)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*availability.Slot), args.Error(1)
}

type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) GetProfile(ctx context.Context, code string) (*therapist.Profile, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*therapist.Profile), args.Error(1)
}

func (m *MockDirectory) GetTimezone(ctx context.Context, code string) (string, error) {
	args := m.Called(ctx, code)
	return args.String(0), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Enqueue(ctx context.Context, event notify.Event) error {
	args := m.Called(ctx, event.Type, event.BookingID)
	return args.Error(0)
}

func testSlot(id int64, code string) *availability.Slot {
	start := time.Date(2025, 6, 1, 16, 0, 0, 0, time.UTC)
	return &availability.Slot{
		ID:            id,
		TherapistCode: code,
		StartTime:     start,
		EndTime:       start.Add(time.Hour),
		Booked:        true,
	}
}

func scheduled(id int64, slotID int64) *Booking {
	sid := slotID
	return &Booking{
		ID:            id,
		UserID:        "user-1",
		TherapistCode: "ABC123",
		SlotID:        &sid,
		Status:        StatusScheduled,
	}
}

func TestCreateBooksSlot(t *testing.T) {
	repo := new(MockRepo)
	slots := new(MockSlots)
	dir := new(MockDirectory)
	notifier := new(MockNotifier)

	repo.On("Create", mock.Anything, "user-1", int64(7)).Return(scheduled(41, 7), nil)
	slots.On("GetSlotByID", mock.Anything, int64(7)).Return(testSlot(7, "ABC123"), nil)
	dir.On("GetTimezone", mock.Anything, "ABC123").Return("America/Los_Angeles", nil)
	notifier.On("Enqueue", mock.Anything, notify.EventBookingScheduled, int64(41)).Return(nil)

	svc := NewService(repo, slots, dir, timezone.New("UTC"), notifier)

	view, err := svc.Create(context.Background(), CreateBookingRequest{
		UserID:         "user-1",
		AvailabilityID: 7,
		RequesterTz:    "Asia/Shanghai",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(41), view.BookingID)
	assert.Equal(t, StatusScheduled, view.Status)
	require.NotNil(t, view.Slot)
	// 16:00 UTC renders as 09:00 in LA and next-day 00:00 in Shanghai.
	assert.Equal(t, "2025-06-01 09:00", view.Slot.Display.ForTherapist.Start.Local)
	assert.Equal(t, "2025-06-02 00:00", view.Slot.Display.ForRequester.Start.Local)

	repo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestCreateLosesRaceNoSideEffects(t *testing.T) {
	repo := new(MockRepo)
	slots := new(MockSlots)
	dir := new(MockDirectory)
	notifier := new(MockNotifier)

	repo.On("Create", mock.Anything, "user-2", int64(7)).Return(nil, availability.ErrSlotAlreadyBooked)

	svc := NewService(repo, slots, dir, timezone.New("UTC"), notifier)

	_, err := svc.Create(context.Background(), CreateBookingRequest{UserID: "user-2", AvailabilityID: 7})
	require.ErrorIs(t, err, availability.ErrSlotAlreadyBooked)

	notifier.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateNotifierFailureDoesNotFailBooking(t *testing.T) {
	repo := new(MockRepo)
	slots := new(MockSlots)
	dir := new(MockDirectory)
	notifier := new(MockNotifier)

	repo.On("Create", mock.Anything, "user-1", int64(7)).Return(scheduled(41, 7), nil)
	slots.On("GetSlotByID", mock.Anything, int64(7)).Return(testSlot(7, "ABC123"), nil)
	dir.On("GetTimezone", mock.Anything, "ABC123").Return("UTC", nil)
	notifier.On("Enqueue", mock.Anything, notify.EventBookingScheduled, int64(41)).Return(errors.New("redis down"))

	svc := NewService(repo, slots, dir, timezone.New("UTC"), notifier)

	view, err := svc.Create(context.Background(), CreateBookingRequest{UserID: "user-1", AvailabilityID: 7})
	require.NoError(t, err)
	assert.Equal(t, int64(41), view.BookingID)
}

func TestGetMissingSlotRowStillRenders(t *testing.T) {
	repo := new(MockRepo)
	slots := new(MockSlots)
	dir := new(MockDirectory)

	b := scheduled(41, 7)
	repo.On("GetByID", mock.Anything, int64(41)).Return(b, nil)
	slots.On("GetSlotByID", mock.Anything, int64(7)).Return(nil, availability.ErrSlotNotFound)

	svc := NewService(repo, slots, dir, timezone.New("UTC"), nil)

	view, err := svc.Get(context.Background(), 41, "")
	require.NoError(t, err)
	assert.Equal(t, int64(41), view.BookingID)
	assert.Nil(t, view.Slot)
}

func TestListByUser(t *testing.T) {
	repo := new(MockRepo)
	slots := new(MockSlots)
	dir := new(MockDirectory)

	repo.On("ListByUser", mock.Anything, "user-1").Return([]Booking{*scheduled(41, 7)}, nil)
	slots.On("GetSlotByID", mock.Anything, int64(7)).Return(testSlot(7, "ABC123"), nil)
	dir.On("GetTimezone", mock.Anything, "ABC123").Return("UTC", nil)

	svc := NewService(repo, slots, dir, timezone.New("UTC"), nil)

	resp, err := svc.ListByUser(context.Background(), "user-1", "")
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Bookings, 1)
	require.NotNil(t, resp.Bookings[0].Slot)
}

func TestCancelEmitsEvent(t *testing.T) {
	repo := new(MockRepo)
	slots := new(MockSlots)
	dir := new(MockDirectory)
	notifier := new(MockNotifier)

	reason := "client request"
	canceled := scheduled(41, 7)
	canceled.Status = StatusCanceled
	canceled.CancelReason = &reason

	repo.On("Cancel", mock.Anything, int64(41), reason).Return(canceled, nil)
	slots.On("GetSlotByID", mock.Anything, int64(7)).Return(testSlot(7, "ABC123"), nil)
	dir.On("GetTimezone", mock.Anything, "ABC123").Return("UTC", nil)
	notifier.On("Enqueue", mock.Anything, notify.EventBookingCanceled, int64(41)).Return(nil)

	svc := NewService(repo, slots, dir, timezone.New("UTC"), notifier)

	view, err := svc.Cancel(context.Background(), 41, CancelBookingRequest{Reason: reason})
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, view.Status)
	assert.Equal(t, reason, *view.CancelReason)
	notifier.AssertExpectations(t)
}

func TestCancelAlreadyCanceled(t *testing.T) {
	repo := new(MockRepo)
	notifier := new(MockNotifier)

	repo.On("Cancel", mock.Anything, int64(41), "").Return(nil, ErrAlreadyCanceled)

	svc := NewService(repo, new(MockSlots), new(MockDirectory), timezone.New("UTC"), notifier)

	_, err := svc.Cancel(context.Background(), 41, CancelBookingRequest{})
	require.ErrorIs(t, err, ErrAlreadyCanceled)
	notifier.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything)
}

func TestRescheduleMovesBooking(t *testing.T) {
	repo := new(MockRepo)
	slots := new(MockSlots)
	dir := new(MockDirectory)
	notifier := new(MockNotifier)

	repo.On("GetByID", mock.Anything, int64(41)).Return(scheduled(41, 7), nil)
	slots.On("GetSlotByID", mock.Anything, int64(9)).Return(testSlot(9, "ABC123"), nil)
	slots.On("SetBooked", mock.Anything, int64(7), false).Return(testSlot(7, "ABC123"), nil)
	slots.On("SetBooked", mock.Anything, int64(9), true).Return(testSlot(9, "ABC123"), nil)
	repo.On("Repoint", mock.Anything, int64(41), int64(9), "ABC123").Return(scheduled(41, 9), nil)
	dir.On("GetTimezone", mock.Anything, "ABC123").Return("UTC", nil)
	notifier.On("Enqueue", mock.Anything, notify.EventBookingRescheduled, int64(41)).Return(nil)

	svc := NewService(repo, slots, dir, timezone.New("UTC"), notifier)

	view, err := svc.Reschedule(context.Background(), 41, RescheduleBookingRequest{NewAvailabilityID: 9})
	require.NoError(t, err)
	require.NotNil(t, view.Slot)
	assert.Equal(t, int64(9), view.Slot.AvailabilityID)

	slots.AssertExpectations(t)
	repo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestRescheduleLosesNewSlot(t *testing.T) {
	repo := new(MockRepo)
	slots := new(MockSlots)
	notifier := new(MockNotifier)

	repo.On("GetByID", mock.Anything, int64(41)).Return(scheduled(41, 7), nil)
	slots.On("GetSlotByID", mock.Anything, int64(9)).Return(testSlot(9, "ABC123"), nil)
	slots.On("SetBooked", mock.Anything, int64(7), false).Return(testSlot(7, "ABC123"), nil)
	slots.On("SetBooked", mock.Anything, int64(9), true).Return(nil, availability.ErrSlotAlreadyBooked)

	svc := NewService(repo, slots, new(MockDirectory), timezone.New("UTC"), notifier)

	_, err := svc.Reschedule(context.Background(), 41, RescheduleBookingRequest{NewAvailabilityID: 9})

	// The old slot stays released; the failure reports exactly that.
	var partial *PartialFailureError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, "claim_new", partial.Step)
	assert.True(t, partial.OldSlotReleased)
	assert.False(t, partial.NewSlotClaimed)
	assert.ErrorIs(t, err, availability.ErrSlotAlreadyBooked)

	repo.AssertNotCalled(t, "Repoint", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything)
}

func TestRescheduleRepointFailure(t *testing.T) {
	repo := new(MockRepo)
	slots := new(MockSlots)

	repo.On("GetByID", mock.Anything, int64(41)).Return(scheduled(41, 7), nil)
	slots.On("GetSlotByID", mock.Anything, int64(9)).Return(testSlot(9, "ABC123"), nil)
	slots.On("SetBooked", mock.Anything, int64(7), false).Return(testSlot(7, "ABC123"), nil)
	slots.On("SetBooked", mock.Anything, int64(9), true).Return(testSlot(9, "ABC123"), nil)
	repo.On("Repoint", mock.Anything, int64(41), int64(9), "ABC123").Return(nil, ErrBookingNotFound)

	svc := NewService(repo, slots, new(MockDirectory), timezone.New("UTC"), nil)

	_, err := svc.Reschedule(context.Background(), 41, RescheduleBookingRequest{NewAvailabilityID: 9})

	var partial *PartialFailureError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, "repoint", partial.Step)
	assert.True(t, partial.NewSlotClaimed)
}

func TestRescheduleCanceledBooking(t *testing.T) {
	repo := new(MockRepo)
	slots := new(MockSlots)

	canceled := scheduled(41, 7)
	canceled.Status = StatusCanceled
	repo.On("GetByID", mock.Anything, int64(41)).Return(canceled, nil)

	svc := NewService(repo, slots, new(MockDirectory), timezone.New("UTC"), nil)

	_, err := svc.Reschedule(context.Background(), 41, RescheduleBookingRequest{NewAvailabilityID: 9})
	require.ErrorIs(t, err, ErrCanceledBooking)
	slots.AssertNotCalled(t, "SetBooked", mock.Anything, mock.Anything, mock.Anything)
}

func TestRescheduleMissingNewSlot(t *testing.T) {
	repo := new(MockRepo)
	slots := new(MockSlots)

	repo.On("GetByID", mock.Anything, int64(41)).Return(scheduled(41, 7), nil)
	slots.On("GetSlotByID", mock.Anything, int64(99)).Return(nil, availability.ErrSlotNotFound)

	svc := NewService(repo, slots, new(MockDirectory), timezone.New("UTC"), nil)

	_, err := svc.Reschedule(context.Background(), 41, RescheduleBookingRequest{NewAvailabilityID: 99})
	require.ErrorIs(t, err, availability.ErrSlotNotFound)

	// Nothing was released before the lookup failed.
	slots.AssertNotCalled(t, "SetBooked", mock.Anything, mock.Anything, mock.Anything)
}

func TestRescheduleSameSlotIsNoop(t *testing.T) {
	repo := new(MockRepo)
	slots := new(MockSlots)
	dir := new(MockDirectory)

	repo.On("GetByID", mock.Anything, int64(41)).Return(scheduled(41, 7), nil)
	slots.On("GetSlotByID", mock.Anything, int64(7)).Return(testSlot(7, "ABC123"), nil)
	dir.On("GetTimezone", mock.Anything, "ABC123").Return("UTC", nil)

	svc := NewService(repo, slots, dir, timezone.New("UTC"), nil)

	view, err := svc.Reschedule(context.Background(), 41, RescheduleBookingRequest{NewAvailabilityID: 7})
	require.NoError(t, err)
	assert.Equal(t, int64(41), view.BookingID)
	slots.AssertNotCalled(t, "SetBooked", mock.Anything, mock.Anything, mock.Anything)
}
