package handlers

import (
	"net/http"
	"time"

	"villa-backend/internal/apperr"
	"villa-backend/internal/models"
	"villa-backend/internal/services"
	"villa-backend/internal/timeutil"
	"villa-backend/pkg/utils"
)

type BookingHandler struct {
	Availability *services.AvailabilityService
	Service      *services.BookingService
}

func NewBookingHandler(availability *services.AvailabilityService, s *services.BookingService) *BookingHandler {
	return &BookingHandler{Availability: availability, Service: s}
}

// CheckAvailability handles GET /api/bookings/availability?check_in=&check_out=&exclude_id=
func (h *BookingHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	checkIn, err := timeutil.ParseDate(q.Get("check_in"))
	if err != nil {
		writeServiceError(w, r, apperr.Validation("check_in", "%v", err))
		return
	}
	checkOut, err := timeutil.ParseDate(q.Get("check_out"))
	if err != nil {
		writeServiceError(w, r, apperr.Validation("check_out", "%v", err))
		return
	}

	var exclude *int
	if q.Get("exclude_id") != "" {
		id, err := queryInt(r, "exclude_id", 0)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		exclude = &id
	}

	result, err := h.Availability.CheckAvailability(r.Context(), checkIn, checkOut, exclude)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	utils.JSON(w, http.StatusOK, result)
}

// MonthCalendar handles GET /api/bookings/calendar?year=&month=
func (h *BookingHandler) MonthCalendar(w http.ResponseWriter, r *http.Request) {
	today := timeutil.Today()
	year, err := queryInt(r, "year", today.Year())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	month, err := queryInt(r, "month", int(today.Month()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	bookings, err := h.Service.MonthCalendar(r.Context(), year, time.Month(month))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	utils.JSON(w, http.StatusOK, bookings)
}

// BlockDates handles POST /api/bookings/block
func (h *BookingHandler) BlockDates(w http.ResponseWriter, r *http.Request) {
	var req models.BlockDatesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	booking, err := h.Service.BlockDates(r.Context(), &req, currentUserID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	utils.JSON(w, http.StatusCreated, booking)
}

// UnblockDates handles POST /api/bookings/unblock
func (h *BookingHandler) UnblockDates(w http.ResponseWriter, r *http.Request) {
	var req models.BlockDatesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	released, err := h.Service.UnblockDates(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{"released": released})
}
