package bot

import (
	"fmt"

	"routerider/internal/models"
)

// Reply texts sent back over the chat channel. Prompts name the exact
// expected format so a failed validation can re-send them verbatim.

const (
	msgHelp = "🚗 ROUTERIDER BOT COMMANDS\n\n" +
		"/register  - Register as driver\n" +
		"/post_trip - Post a new trip (drivers)\n" +
		"/ride      - Request a ride (passengers)\n" +
		"/my_stats  - View stats\n" +
		"/complete <trip_id> - Mark trip completed\n"

	msgRegisterPrompt = "✅ DRIVER REGISTRATION\n\n" +
		"Reply with:\n" +
		"NAME:\n" +
		"ROUTE: Daura - Katsina\n" +
		"CAR:\n" +
		"PLATE:"

	msgRegisterIncomplete = "❌ Incomplete details.\n\nReply like:\n" +
		"NAME: Ibrahim Musa\n" +
		"ROUTE: Daura - Katsina\n" +
		"CAR: Honda Accord\n" +
		"PLATE: KTS-456-AB"

	msgRegisterDone = "✅ Driver registered successfully! Now send /post_trip"

	msgRegisterRoleTaken = "❌ This number is already registered as a passenger."

	msgTripPrompt = "🚗 POST TRIP\n\n" +
		"Reply with:\n" +
		"FROM:\n" +
		"TO:\n" +
		"DATE: 2026-02-20\n" +
		"TIME: 06:30\n" +
		"SEATS:\n" +
		"PRICE:"

	msgTripIncomplete = "❌ Incomplete trip.\n\nReply like:\n" +
		"FROM: Daura\n" +
		"TO: Katsina\n" +
		"DATE: 2026-02-20\n" +
		"TIME: 06:30\n" +
		"SEATS: 3\n" +
		"PRICE: 2500"

	msgMustRegisterDriver = "❌ You must register as a driver first using /register"

	msgRidePrompt = "🧍 REQUEST A RIDE\n\n" +
		"Reply with:\n" +
		"FROM:\n" +
		"TO:\n" +
		"DATE: 2026-02-20\n" +
		"TIME: 06:30"

	msgRideIncomplete = "❌ Incomplete request.\n\nReply like:\n" +
		"FROM: Daura\n" +
		"TO: Katsina\n" +
		"DATE: 2026-02-20\n" +
		"TIME: 06:30"

	msgNoMatch = "😔 No trips found for that route yet.\n" +
		"Your request is saved and you will be notified when a matching trip appears."

	msgCompleteUsage = "Usage: /complete 1"

	msgOnlyDrivers = "❌ Only drivers can complete trips."

	msgTripNotYours = "❌ Trip not found (or not yours)."

	msgTripCompleted = "✅ Trip marked as completed."

	msgNotRegistered = "Not registered yet. Use /register (drivers) or /ride (passengers)."

	msgUnknown = "Send /help to see commands."

	msgInternalError = "⚠️ Something went wrong. Try again."

	msgRateLimited = "⏳ Too many messages. Please wait a minute and try again."
)

func tripPostedReply(trip *models.Trip) string {
	return fmt.Sprintf(
		"🚗 Trip posted!\nTrip ID: %d\n%s → %s\nSeats: %d | Price: ₦%d",
		trip.ID, trip.Origin, trip.Destination, trip.SeatsTotal, trip.PricePerSeat,
	)
}

func rideMatchedReply(trip *models.Trip, booking *models.Booking) string {
	when := "anytime"
	if trip.HasDate() {
		when = trip.TripDate.Format("2006-01-02")
		if trip.HasTime() {
			when += " " + trip.TripTime
		}
	} else if trip.HasTime() {
		when = trip.TripTime
	}
	return fmt.Sprintf(
		"✅ Ride booked!\nTrip ID: %d\n%s → %s\nDeparture: %s\nDriver: %s\nSeats: %d | Total: %d",
		trip.ID, trip.Origin, trip.Destination, when, trip.DriverName, booking.Seats, booking.AmountPaid,
	)
}

func driverStatsReply(stats *models.DriverStats) string {
	return fmt.Sprintf("📊 DRIVER STATS\nTrips posted: %d\nCompleted: %d", stats.TripsPosted, stats.TripsCompleted)
}

func passengerStatsReply(stats *models.PassengerStats) string {
	return fmt.Sprintf("📊 PASSENGER STATS\nRide requests: %d\nMatched: %d", stats.RideRequests, stats.Matched)
}

// DriverMatchNotification is the message sent to the driver whose trip was
// matched to a ride request.
func DriverMatchNotification(origin, destination string, seats int) string {
	return fmt.Sprintf("🎉 New passenger!\n%s → %s\nSeats booked: %d", origin, destination, seats)
}

// PassengerMatchNotification is sent to a passenger whose queued request was
// matched after the fact by the rematch sweep.
func PassengerMatchNotification(trip *models.Trip, booking *models.Booking) string {
	return "🎉 A trip matching your request was found!\n\n" + rideMatchedReply(trip, booking)
}
