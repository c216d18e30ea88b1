// Package api exposes the WhatsApp webhook and the REST API used by the
// frontend.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"routerider/internal/config"
	"routerider/internal/database"
	"routerider/internal/domain"

	"github.com/rs/zerolog"
)

// MessageHandler runs one conversation turn for an inbound chat message.
type MessageHandler interface {
	HandleMessage(ctx context.Context, contact, messageID, text string) string
}

type HTTPServer struct {
	cfg         config.APIConfig
	whatsappCfg config.WhatsAppConfig
	repo        domain.Repository
	engine      MessageHandler
	notifier    domain.Notifier
	auth        *HTTPAuth
	server      *http.Server
	logger      *zerolog.Logger
}

func NewHTTPServer(
	cfg config.APIConfig,
	whatsappCfg config.WhatsAppConfig,
	repo domain.Repository,
	engine MessageHandler,
	notifier domain.Notifier,
	logger *zerolog.Logger,
) *HTTPServer {
	srv := &HTTPServer{
		cfg:         cfg,
		whatsappCfg: whatsappCfg,
		repo:        repo,
		engine:      engine,
		notifier:    notifier,
		auth:        NewHTTPAuth(cfg),
		logger:      logger,
	}

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/api/v1/users/register", srv.handleUsersRegister)
	apiMux.HandleFunc("/api/v1/users/me", srv.handleUsersMe)
	apiMux.HandleFunc("/api/v1/trips", srv.handleTrips)
	apiMux.HandleFunc("/api/v1/trips/", srv.handleTrip)
	apiMux.HandleFunc("/api/v1/bookings", srv.handleBookings)
	apiMux.HandleFunc("/api/v1/bookings/", srv.handleBooking)
	apiMux.HandleFunc("/api/v1/export/bookings", srv.handleExportBookings)

	mux := http.NewServeMux()
	// The webhook stays outside auth: the gateway calls it with its own
	// verify token.
	mux.HandleFunc("/webhook/whatsapp", srv.handleWebhook)
	mux.HandleFunc("/health", srv.handleHealth)
	mux.HandleFunc("/api/v1/health", srv.handleHealth)
	mux.Handle("/api/v1/", srv.auth.Wrap(apiMux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.loggingMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return srv
}

func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("http server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the root handler, used by tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// webhookPayload is the slice of the WhatsApp Cloud API notification we
// consume.
type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []struct {
					From string `json:"from"`
					ID   string `json:"id"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

func (s *HTTPServer) handleWebhook(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.verifyWebhook(w, r)
	case http.MethodPost:
		s.receiveWebhook(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) verifyWebhook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") == "subscribe" && q.Get("hub.verify_token") == s.whatsappCfg.VerifyToken {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(q.Get("hub.challenge")))
		return
	}
	http.Error(w, "Forbidden", http.StatusForbidden)
}

// receiveWebhook always answers 200: a non-2xx makes the gateway redeliver,
// and redeliveries are already handled by the dedup check inside the engine.
func (s *HTTPServer) receiveWebhook(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.logger.Warn().Err(err).Msg("unreadable webhook payload")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if msg.From == "" {
					continue
				}
				reply := s.engine.HandleMessage(r.Context(), msg.From, msg.ID, msg.Text.Body)
				if reply != "" && s.notifier != nil {
					s.notifier.Notify(r.Context(), msg.From, reply)
				}
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleUsersRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		Phone    string `json:"phone"`
		Role     string `json:"role"`
		FullName string `json:"full_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Role == "" {
		body.Role = "passenger"
	}
	if body.Phone == "" || (body.Role != "driver" && body.Role != "passenger") {
		writeError(w, http.StatusBadRequest, "phone required, role must be driver|passenger")
		return
	}

	user, err := s.repo.EnsureUser(r.Context(), body.Phone, body.Role, body.FullName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to register user")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "user": user})
}

func (s *HTTPServer) handleUsersMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	phone := strings.TrimSpace(r.URL.Query().Get("phone"))
	if phone == "" {
		writeError(w, http.StatusBadRequest, "phone is required")
		return
	}

	user, err := s.repo.GetUserByPhone(r.Context(), phone)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to look up user")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "user": user})
}
