package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"routerider/internal/database"
	"routerider/internal/models"
	"routerider/internal/parse"
)

func (s *HTTPServer) handleTrips(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listTrips(w, r)
	case http.MethodPost:
		s.createTrip(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) listTrips(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.TripFilter{
		Origin:      strings.TrimSpace(q.Get("origin")),
		Destination: strings.TrimSpace(q.Get("destination")),
		Status:      strings.TrimSpace(q.Get("status")),
	}
	if filter.Status == "" {
		filter.Status = models.TripStatusActive
	}
	if dateStr := strings.TrimSpace(q.Get("date")); dateStr != "" {
		date := parse.Date(dateStr)
		if date.IsZero() {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
		filter.Date = date
	}

	trips, err := s.repo.ListTrips(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list trips")
		return
	}
	if trips == nil {
		trips = []*models.Trip{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "trips": trips})
}

func (s *HTTPServer) createTrip(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DriverPhone  string `json:"driver_phone"`
		Origin       string `json:"origin"`
		Destination  string `json:"destination"`
		TripDate     string `json:"trip_date"`
		TripTime     string `json:"trip_time"`
		SeatsTotal   int    `json:"seats_total"`
		PricePerSeat int    `json:"price_per_seat"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.DriverPhone == "" || body.Origin == "" || body.Destination == "" ||
		body.SeatsTotal <= 0 || body.PricePerSeat < 0 {
		writeError(w, http.StatusBadRequest, "missing fields")
		return
	}

	driver, err := s.repo.GetUserByPhone(r.Context(), body.DriverPhone)
	if errors.Is(err, database.ErrNotFound) || (err == nil && driver.Role != models.RoleDriver) {
		writeError(w, http.StatusNotFound, "driver not found / not a driver")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to look up driver")
		return
	}

	trip := &models.Trip{
		DriverUserID: driver.ID,
		Origin:       body.Origin,
		Destination:  body.Destination,
		TripDate:     parse.Date(body.TripDate),
		TripTime:     parse.TimeOfDay(body.TripTime),
		SeatsTotal:   body.SeatsTotal,
		PricePerSeat: body.PricePerSeat,
	}
	if err := s.repo.CreateTrip(r.Context(), trip); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create trip")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "trip": trip})
}

func (s *HTTPServer) handleTrip(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id, ok := pathID(r.URL.Path, "/api/v1/trips/")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid trip id")
		return
	}

	trip, err := s.repo.GetTrip(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "trip not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get trip")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "trip": trip})
}

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listBookings(w, r)
	case http.MethodPost:
		s.createBooking(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) listBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var passengerID, tripID int64
	if phone := strings.TrimSpace(q.Get("phone")); phone != "" {
		user, err := s.repo.GetUserByPhone(r.Context(), phone)
		if errors.Is(err, database.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "bookings": []*models.Booking{}})
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to look up user")
			return
		}
		passengerID = user.ID
	}
	if raw := strings.TrimSpace(q.Get("trip_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid trip_id")
			return
		}
		tripID = id
	}

	bookings, err := s.repo.ListBookings(r.Context(), passengerID, tripID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list bookings")
		return
	}
	if bookings == nil {
		bookings = []*models.Booking{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "bookings": bookings})
}

func (s *HTTPServer) createBooking(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TripID         int64  `json:"trip_id"`
		PassengerPhone string `json:"passenger_phone"`
		Seats          int    `json:"seats"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.TripID == 0 || body.PassengerPhone == "" {
		writeError(w, http.StatusBadRequest, "trip_id and passenger_phone required")
		return
	}
	if body.Seats <= 0 {
		body.Seats = models.DefaultSeatsPerRequest
	}

	passenger, err := s.repo.EnsureUser(r.Context(), body.PassengerPhone, models.RolePassenger, "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve passenger")
		return
	}

	booking, err := s.repo.BookSeats(r.Context(), body.TripID, passenger.ID, body.Seats)
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "trip not found")
	case errors.Is(err, database.ErrTripNotActive):
		writeError(w, http.StatusBadRequest, "trip not active")
	case errors.Is(err, database.ErrNotAvailable):
		writeError(w, http.StatusConflict, "not enough seats left")
	case errors.Is(err, database.ErrAlreadyBooked):
		writeError(w, http.StatusConflict, "passenger already booked on this trip")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to create booking")
	default:
		writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "booking": booking})
	}
}

func (s *HTTPServer) handleBooking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id, ok := pathID(r.URL.Path, "/api/v1/bookings/")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	switch body.Status {
	case models.BookingStatusConfirmed, models.BookingStatusCancelled, models.BookingStatusCompleted:
	default:
		writeError(w, http.StatusBadRequest, "status must be confirmed|cancelled|completed")
		return
	}

	booking, err := s.repo.UpdateBookingStatus(r.Context(), id, body.Status)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "booking not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update booking")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "booking": booking})
}

func pathID(path, prefix string) (int64, bool) {
	raw := strings.TrimPrefix(path, prefix)
	if raw == "" || strings.Contains(raw, "/") {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
