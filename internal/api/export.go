package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"routerider/internal/database"
	"routerider/internal/models"

	"github.com/xuri/excelize/v2"
)

var bookingExportHeaders = []string{
	"ID", "Trip ID", "Route", "Date", "Time",
	"Passenger ID", "Seats", "Amount", "Status", "Driver",
}

// handleExportBookings streams an Excel workbook of bookings. Optional
// ?phone and ?trip_id narrow the export the same way GET /bookings does.
func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	bookings, ok := s.exportBookings(w, r)
	if !ok {
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Bookings"
	index, err := f.NewSheet(sheet)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build workbook")
		return
	}
	f.SetActiveSheet(index)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, header := range bookingExportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, header)
		_ = f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for i, b := range bookings {
		row := i + 2
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), b.ID)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), b.TripID)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), fmt.Sprintf("%s → %s", b.Origin, b.Destination))
		if !b.TripDate.IsZero() {
			_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), b.TripDate.Format("2006-01-02"))
		}
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), b.TripTime)
		_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), b.PassengerUserID)
		_ = f.SetCellValue(sheet, fmt.Sprintf("G%d", row), b.Seats)
		_ = f.SetCellValue(sheet, fmt.Sprintf("H%d", row), b.AmountPaid)
		_ = f.SetCellValue(sheet, fmt.Sprintf("I%d", row), b.Status)
		_ = f.SetCellValue(sheet, fmt.Sprintf("J%d", row), b.DriverName)
	}

	_ = f.SetColWidth(sheet, "C", "C", 25)
	_ = f.SetColWidth(sheet, "D", "E", 12)
	_ = f.SetColWidth(sheet, "J", "J", 20)
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("bookings_%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))

	if err := f.Write(w); err != nil {
		s.logger.Error().Err(err).Msg("failed to stream bookings export")
	}
}

// exportBookings resolves the filter params and loads the rows. A false
// return means the response has already been written.
func (s *HTTPServer) exportBookings(w http.ResponseWriter, r *http.Request) ([]*models.Booking, bool) {
	q := r.URL.Query()

	var passengerID, tripID int64
	if phone := q.Get("phone"); phone != "" {
		user, err := s.repo.GetUserByPhone(r.Context(), phone)
		if errors.Is(err, database.ErrNotFound) {
			// Same contract as GET /bookings: an unknown phone filters down
			// to an empty workbook, not an error.
			return []*models.Booking{}, true
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to look up user")
			return nil, false
		}
		passengerID = user.ID
	}
	if raw := q.Get("trip_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid trip_id")
			return nil, false
		}
		tripID = id
	}

	bookings, err := s.repo.ListBookings(r.Context(), passengerID, tripID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list bookings")
		return nil, false
	}
	return bookings, true
}
