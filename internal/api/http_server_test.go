package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"routerider/internal/config"
	"routerider/internal/database"
	"routerider/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	mu    sync.Mutex
	calls []string // "contact|messageID|text"
	reply string
}

func (e *stubEngine) HandleMessage(_ context.Context, contact, messageID, text string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, contact+"|"+messageID+"|"+text)
	return e.reply
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string // "recipient|text"
}

func (n *recordingNotifier) Notify(_ context.Context, recipient, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, recipient+"|"+text)
}

func newTestServer(t *testing.T, apiCfg config.APIConfig) (*HTTPServer, *database.DB, *stubEngine, *recordingNotifier) {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	engine := &stubEngine{reply: "ok reply"}
	notifier := &recordingNotifier{}
	whatsappCfg := config.WhatsAppConfig{VerifyToken: "secret-verify"}

	srv := NewHTTPServer(apiCfg, whatsappCfg, db, engine, notifier, &logger)
	return srv, db, engine, notifier
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestWebhookVerify(t *testing.T) {
	srv, _, _, _ := newTestServer(t, config.APIConfig{Port: 8080})
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodGet,
		"/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=secret-verify&hub.challenge=12345", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "12345", rec.Body.String())

	rec = doJSON(t, h, http.MethodGet,
		"/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func webhookBody(from, id, text string) map[string]any {
	return map[string]any{
		"entry": []map[string]any{{
			"changes": []map[string]any{{
				"value": map[string]any{
					"messages": []map[string]any{{
						"from": from,
						"id":   id,
						"text": map[string]string{"body": text},
					}},
				},
			}},
		}},
	}
}

func TestWebhookPost_DispatchesAndReplies(t *testing.T) {
	srv, _, engine, notifier := newTestServer(t, config.APIConfig{Port: 8080})
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/webhook/whatsapp",
		webhookBody("233200000001", "wamid.1", "/help"), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, engine.calls, 1)
	assert.Equal(t, "233200000001|wamid.1|/help", engine.calls[0])
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "233200000001|ok reply", notifier.sent[0])
}

func TestWebhookPost_EmptyReplySendsNothing(t *testing.T) {
	srv, _, engine, notifier := newTestServer(t, config.APIConfig{Port: 8080})
	engine.reply = ""
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/webhook/whatsapp",
		webhookBody("233200000001", "wamid.2", "/help"), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, engine.calls, 1)
	assert.Empty(t, notifier.sent)
}

func TestWebhookPost_MalformedPayloadStill200(t *testing.T) {
	srv, _, engine, _ := newTestServer(t, config.APIConfig{Port: 8080})
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, engine.calls)
}

func TestAPIAuth(t *testing.T) {
	cfg := config.APIConfig{
		Port: 8080,
		Auth: config.APIAuthConfig{
			Enabled:      true,
			HeaderAPIKey: "x-api-key",
			APIKeys: []config.APIClientKey{
				{Key: "good-key", Name: "frontend", Permissions: []string{"read:trips"}},
			},
		},
	}
	srv, _, _, _ := newTestServer(t, cfg)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodGet, "/api/v1/trips", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/trips", nil, map[string]string{"x-api-key": "bad-key"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/trips", nil, map[string]string{"x-api-key": "good-key"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Key without write permission is refused on a write endpoint.
	rec = doJSON(t, h, http.MethodPost, "/api/v1/trips",
		map[string]any{}, map[string]string{"x-api-key": "good-key"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// The webhook and health never require a key.
	rec = doJSON(t, h, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIRateLimit(t *testing.T) {
	cfg := config.APIConfig{
		Port:      8080,
		RateLimit: config.APIRateLimitConfig{RPS: 0.001, Burst: 1},
	}
	srv, _, _, _ := newTestServer(t, cfg)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodGet, "/api/v1/trips", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/trips", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestUsersRegisterAndMe(t *testing.T) {
	srv, _, _, _ := newTestServer(t, config.APIConfig{Port: 8080})
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/v1/users/register",
		map[string]any{"phone": "233200000010", "role": "driver", "full_name": "Ama"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var registered struct {
		OK   bool         `json:"ok"`
		User *models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &registered))
	assert.True(t, registered.OK)
	assert.Equal(t, models.RoleDriver, registered.User.Role)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/users/me?phone=233200000010", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/users/me?phone=233999999999", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/users/register",
		map[string]any{"phone": "233200000011", "role": "admin"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTripsEndpoints(t *testing.T) {
	srv, db, _, _ := newTestServer(t, config.APIConfig{Port: 8080})
	h := srv.Handler()
	ctx := context.Background()

	_, err := db.CreateUser(ctx, "233200000020", models.RoleDriver, "Kofi")
	require.NoError(t, err)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/trips", map[string]any{
		"driver_phone":   "233200000020",
		"origin":         "Accra",
		"destination":    "Kumasi",
		"trip_date":      "2026-09-01",
		"trip_time":      "08:30",
		"seats_total":    3,
		"price_per_seat": 50,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Trip *models.Trip `json:"trip"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotNil(t, created.Trip)
	assert.NotZero(t, created.Trip.ID)

	// Unknown driver phone is refused.
	rec = doJSON(t, h, http.MethodPost, "/api/v1/trips", map[string]any{
		"driver_phone": "233999999999", "origin": "A", "destination": "B",
		"seats_total": 1, "price_per_seat": 10,
	}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/trips?origin=accra", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Trips []*models.Trip `json:"trips"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed.Trips, 1)

	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/v1/trips/%d", created.Trip.ID), nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/trips/9999", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/trips?date=tomorrow", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookingsEndpoints(t *testing.T) {
	srv, db, _, _ := newTestServer(t, config.APIConfig{Port: 8080})
	h := srv.Handler()
	ctx := context.Background()

	driver, err := db.CreateUser(ctx, "233200000030", models.RoleDriver, "Kofi")
	require.NoError(t, err)
	trip := &models.Trip{
		DriverUserID: driver.ID,
		Origin:       "Accra",
		Destination:  "Kumasi",
		SeatsTotal:   1,
		PricePerSeat: 50,
	}
	require.NoError(t, db.CreateTrip(ctx, trip))

	rec := doJSON(t, h, http.MethodPost, "/api/v1/bookings",
		map[string]any{"trip_id": trip.ID, "passenger_phone": "233200000031"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Booking *models.Booking `json:"booking"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotNil(t, created.Booking)
	assert.Equal(t, 50, created.Booking.AmountPaid)

	// Same passenger twice conflicts.
	rec = doJSON(t, h, http.MethodPost, "/api/v1/bookings",
		map[string]any{"trip_id": trip.ID, "passenger_phone": "233200000031"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Trip is full for everyone else.
	rec = doJSON(t, h, http.MethodPost, "/api/v1/bookings",
		map[string]any{"trip_id": trip.ID, "passenger_phone": "233200000032"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/bookings?phone=233200000031", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Bookings []*models.Booking `json:"bookings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed.Bookings, 1)

	// Unknown phone lists empty, not 404.
	rec = doJSON(t, h, http.MethodGet, "/api/v1/bookings?phone=233999999999", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Empty(t, listed.Bookings)

	rec = doJSON(t, h, http.MethodPatch, fmt.Sprintf("/api/v1/bookings/%d", created.Booking.ID),
		map[string]any{"status": "cancelled"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Cancelling released the seat.
	updated, err := db.GetTrip(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.SeatsBooked)

	rec = doJSON(t, h, http.MethodPatch, fmt.Sprintf("/api/v1/bookings/%d", created.Booking.ID),
		map[string]any{"status": "lost"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPatch, "/api/v1/bookings/9999",
		map[string]any{"status": "confirmed"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportBookings(t *testing.T) {
	srv, db, _, _ := newTestServer(t, config.APIConfig{Port: 8080})
	h := srv.Handler()
	ctx := context.Background()

	driver, err := db.CreateUser(ctx, "233200000040", models.RoleDriver, "Kofi")
	require.NoError(t, err)
	passenger, err := db.CreateUser(ctx, "233200000041", models.RolePassenger, "Ama")
	require.NoError(t, err)
	trip := &models.Trip{
		DriverUserID: driver.ID,
		Origin:       "Accra",
		Destination:  "Kumasi",
		SeatsTotal:   3,
		PricePerSeat: 50,
	}
	require.NoError(t, db.CreateTrip(ctx, trip))
	_, err = db.BookSeats(ctx, trip.ID, passenger.ID, 1)
	require.NoError(t, err)

	rec := doJSON(t, h, http.MethodGet, "/api/v1/export/bookings", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "bookings_")
	assert.NotEmpty(t, rec.Body.Bytes())

	// An unknown phone exports an empty workbook, matching GET /bookings.
	rec = doJSON(t, h, http.MethodGet, "/api/v1/export/bookings?phone=233999999999", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		rec.Header().Get("Content-Type"))
}
