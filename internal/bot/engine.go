// Package bot implements the conversational engine: the per-contact state
// machine that turns inbound chat text into registrations, trips, ride
// requests and replies.
package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"routerider/internal/config"
	"routerider/internal/database"
	"routerider/internal/domain"
	"routerider/internal/models"
	"routerider/internal/parse"
	"routerider/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// turnTimeout bounds one conversation turn end to end, storage included.
const turnTimeout = 30 * time.Second

type Engine struct {
	users   *service.UserService
	trips   *service.TripService
	rides   *service.RideService
	state   domain.StateManager
	cfg     config.BotConfig
	metrics *Metrics
	logger  *zerolog.Logger

	// One mutex per contact. A rapid double-send must not run two turns for
	// the same contact at once; different contacts proceed in parallel.
	locks sync.Map
}

func NewEngine(
	users *service.UserService,
	trips *service.TripService,
	rides *service.RideService,
	state domain.StateManager,
	cfg config.BotConfig,
	metrics *Metrics,
	logger *zerolog.Logger,
) *Engine {
	return &Engine{
		users:   users,
		trips:   trips,
		rides:   rides,
		state:   state,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
	}
}

func (e *Engine) contactLock(contact string) *sync.Mutex {
	mu, _ := e.locks.LoadOrStore(contact, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// HandleMessage runs one conversation turn and returns the reply text.
// An empty reply means nothing should be sent (duplicate delivery).
func (e *Engine) HandleMessage(ctx context.Context, contact, messageID, text string) string {
	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.TurnDuration.Observe(time.Since(start).Seconds())
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, turnTimeout)
	defer cancel()

	requestID := uuid.New().String()
	logger := e.logger.With().Str("request_id", requestID).Str("contact", contact).Logger()

	// The gateway redelivers at least once; the first delivery wins. A dedup
	// store failure degrades to processing the message, never to dropping it.
	if messageID != "" {
		fresh, err := e.state.MarkProcessed(ctx, messageID)
		if err != nil {
			logger.Warn().Err(err).Str("message_id", messageID).Msg("dedup check failed, processing anyway")
		} else if !fresh {
			logger.Debug().Str("message_id", messageID).Msg("duplicate delivery dropped")
			if e.metrics != nil {
				e.metrics.MessagesDeduped.Inc()
			}
			return ""
		}
	}

	allowed, err := e.state.CheckRateLimit(ctx, contact,
		e.cfg.RateLimitMessages, time.Duration(e.cfg.RateLimitWindow)*time.Second)
	if err != nil {
		logger.Warn().Err(err).Msg("rate limit check failed, allowing")
	} else if !allowed {
		if e.metrics != nil {
			e.metrics.MessagesLimited.Inc()
		}
		return msgRateLimited
	}

	mu := e.contactLock(contact)
	mu.Lock()
	defer mu.Unlock()

	reply, err := e.processTurn(logger.WithContext(ctx), contact, strings.TrimSpace(text))
	if err != nil {
		// Conversation state is deliberately left as it was: the user's next
		// identical reply retries the same transition.
		logger.Error().Err(err).Msg("turn failed")
		if e.metrics != nil {
			e.metrics.ErrorsTotal.Inc()
		}
		return msgInternalError
	}
	return reply
}

func (e *Engine) processTurn(ctx context.Context, contact, text string) (string, error) {
	state, err := e.state.GetContactState(ctx, contact)
	if err != nil {
		return "", err
	}

	if state != nil {
		// Any text, commands included, is treated as the reply to the active
		// prompt. A command sent mid-flow fails validation and re-prompts.
		switch state.Step {
		case models.StateAwaitingDriverRegistration:
			return e.finishRegistration(ctx, contact, text)
		case models.StateAwaitingTripDetails:
			return e.finishTripPosting(ctx, contact, text)
		case models.StateAwaitingRideRequest:
			return e.finishRideRequest(ctx, contact, text)
		default:
			// Unknown stored step, reset to idle.
			if err := e.state.ClearContactState(ctx, contact); err != nil {
				return "", err
			}
		}
	}

	return e.dispatchCommand(ctx, contact, text)
}

func (e *Engine) dispatchCommand(ctx context.Context, contact, text string) (string, error) {
	lower := strings.ToLower(text)
	command := lower
	if i := strings.IndexByte(lower, ' '); i >= 0 {
		command = lower[:i]
	}
	e.countCommand(command)

	switch {
	case lower == "/help":
		return msgHelp, nil

	case lower == "/register":
		return e.startRegistration(ctx, contact)

	case lower == "/post_trip":
		return e.startTripPosting(ctx, contact)

	case lower == "/ride":
		if err := e.state.SetContactState(ctx, contact, models.StateAwaitingRideRequest); err != nil {
			return "", err
		}
		return msgRidePrompt, nil

	case strings.HasPrefix(lower, "/complete"):
		return e.completeTrip(ctx, contact, lower)

	case lower == "/my_stats":
		return e.stats(ctx, contact)

	default:
		return msgUnknown, nil
	}
}

func (e *Engine) countCommand(command string) {
	if e.metrics == nil {
		return
	}
	switch command {
	case "/help", "/register", "/post_trip", "/ride", "/complete", "/my_stats":
		e.metrics.MessagesProcessed.WithLabelValues(command).Inc()
	default:
		e.metrics.MessagesProcessed.WithLabelValues("other").Inc()
	}
}

func (e *Engine) startRegistration(ctx context.Context, contact string) (string, error) {
	user, err := e.users.GetByPhone(ctx, contact)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return "", err
	}
	if user != nil && user.Role != models.RoleDriver {
		return msgRegisterRoleTaken, nil
	}

	if err := e.state.SetContactState(ctx, contact, models.StateAwaitingDriverRegistration); err != nil {
		return "", err
	}
	return msgRegisterPrompt, nil
}

func (e *Engine) finishRegistration(ctx context.Context, contact, text string) (string, error) {
	data := parse.KVLines(text)
	name := firstOf(data, "name", "full name")
	routeFrom, routeTo, _ := parse.Route(data["route"])
	car := firstOf(data, "car", "vehicle")
	plate := firstOf(data, "plate", "plate number")

	if name == "" || routeFrom == "" || routeTo == "" || car == "" || plate == "" {
		return msgRegisterIncomplete, nil
	}

	_, err := e.users.RegisterDriver(ctx, contact, name, routeFrom, routeTo, car, plate)
	if errors.Is(err, service.ErrRoleConflict) {
		// The flow cannot proceed under this number; drop back to idle.
		if clearErr := e.state.ClearContactState(ctx, contact); clearErr != nil {
			return "", clearErr
		}
		return msgRegisterRoleTaken, nil
	}
	if err != nil {
		return "", err
	}

	if err := e.state.ClearContactState(ctx, contact); err != nil {
		e.logger.Error().Err(err).Str("contact", contact).Msg("failed to clear state after registration")
	}
	return msgRegisterDone, nil
}

func (e *Engine) startTripPosting(ctx context.Context, contact string) (string, error) {
	user, err := e.users.GetByPhone(ctx, contact)
	if errors.Is(err, database.ErrNotFound) {
		return msgMustRegisterDriver, nil
	}
	if err != nil {
		return "", err
	}
	if user.Role != models.RoleDriver {
		return msgMustRegisterDriver, nil
	}

	if err := e.state.SetContactState(ctx, contact, models.StateAwaitingTripDetails); err != nil {
		return "", err
	}
	return msgTripPrompt, nil
}

func (e *Engine) finishTripPosting(ctx context.Context, contact, text string) (string, error) {
	data := parse.KVLines(text)
	origin := firstOf(data, "from", "origin")
	destination := firstOf(data, "to", "destination")
	seats, seatsOK := positiveInt(data["seats"])
	price, priceOK := nonNegativeInt(data["price"])

	if origin == "" || destination == "" || !seatsOK || !priceOK {
		return msgTripIncomplete, nil
	}

	user, err := e.users.GetByPhone(ctx, contact)
	if errors.Is(err, database.ErrNotFound) {
		if clearErr := e.state.ClearContactState(ctx, contact); clearErr != nil {
			return "", clearErr
		}
		return msgMustRegisterDriver, nil
	}
	if err != nil {
		return "", err
	}

	trip := &models.Trip{
		Origin:       origin,
		Destination:  destination,
		TripDate:     parse.Date(data["date"]),
		TripTime:     parse.TimeOfDay(data["time"]),
		SeatsTotal:   seats,
		PricePerSeat: price,
	}

	err = e.trips.PostTrip(ctx, user, trip)
	if errors.Is(err, service.ErrNotDriver) {
		if clearErr := e.state.ClearContactState(ctx, contact); clearErr != nil {
			return "", clearErr
		}
		return msgMustRegisterDriver, nil
	}
	if err != nil {
		return "", err
	}

	if err := e.state.ClearContactState(ctx, contact); err != nil {
		e.logger.Error().Err(err).Str("contact", contact).Msg("failed to clear state after trip post")
	}
	if e.metrics != nil {
		e.metrics.TripsPosted.Inc()
	}
	return tripPostedReply(trip), nil
}

func (e *Engine) finishRideRequest(ctx context.Context, contact, text string) (string, error) {
	data := parse.KVLines(text)
	origin := firstOf(data, "from", "origin")
	destination := firstOf(data, "to", "destination")

	if origin == "" || destination == "" {
		return msgRideIncomplete, nil
	}

	passenger, err := e.users.EnsurePassenger(ctx, contact)
	if err != nil {
		return "", err
	}

	req := &models.RideRequest{
		Origin:      origin,
		Destination: destination,
		RideDate:    parse.Date(data["date"]),
		RideTime:    parse.TimeOfDay(data["time"]),
	}

	result, err := e.rides.RequestRide(ctx, passenger, req)
	if err != nil {
		return "", err
	}

	if err := e.state.ClearContactState(ctx, contact); err != nil {
		e.logger.Error().Err(err).Str("contact", contact).Msg("failed to clear state after ride request")
	}

	if result.Matched() {
		if e.metrics != nil {
			e.metrics.RidesMatched.WithLabelValues("matched").Inc()
		}
		return rideMatchedReply(result.Trip, result.Booking), nil
	}
	if e.metrics != nil {
		e.metrics.RidesMatched.WithLabelValues("unmatched").Inc()
	}
	return msgNoMatch, nil
}

func (e *Engine) completeTrip(ctx context.Context, contact, lower string) (string, error) {
	parts := strings.Fields(lower)
	if len(parts) != 2 {
		return msgCompleteUsage, nil
	}
	tripID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || tripID <= 0 {
		return msgCompleteUsage, nil
	}

	user, err := e.users.GetByPhone(ctx, contact)
	if errors.Is(err, database.ErrNotFound) {
		return msgOnlyDrivers, nil
	}
	if err != nil {
		return "", err
	}
	if user.Role != models.RoleDriver {
		return msgOnlyDrivers, nil
	}

	_, err = e.trips.CompleteTrip(ctx, user, tripID)
	if errors.Is(err, service.ErrNotOwner) {
		return msgTripNotYours, nil
	}
	if err != nil {
		return "", err
	}
	return msgTripCompleted, nil
}

func (e *Engine) stats(ctx context.Context, contact string) (string, error) {
	user, err := e.users.GetByPhone(ctx, contact)
	if errors.Is(err, database.ErrNotFound) {
		return msgNotRegistered, nil
	}
	if err != nil {
		return "", err
	}

	if user.Role == models.RoleDriver {
		stats, err := e.users.DriverStats(ctx, user.ID)
		if err != nil {
			return "", err
		}
		return driverStatsReply(stats), nil
	}

	stats, err := e.users.PassengerStats(ctx, user.ID)
	if err != nil {
		return "", err
	}
	return passengerStatsReply(stats), nil
}

func firstOf(data map[string]string, keys ...string) string {
	for _, key := range keys {
		if v := data[key]; v != "" {
			return v
		}
	}
	return ""
}

func positiveInt(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func nonNegativeInt(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
