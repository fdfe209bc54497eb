package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/upatik/helpdesk-chatbot/engine/chatbot"
	"github.com/upatik/helpdesk-chatbot/engine/readiness"
	"github.com/upatik/helpdesk-chatbot/pkg/metrics"
	"github.com/upatik/helpdesk-chatbot/pkg/mid"
)

const maxBodyBytes = 64 << 10

// Client-facing messages.
const (
	msgHealthy        = "API Chatbot UPA TIK sedang berjalan"
	msgInitializing   = "Chatbot masih dalam proses inisialisasi. Silakan tunggu beberapa saat."
	msgUnavailable    = "Chatbot tidak tersedia: "
	msgNotReady       = "Chatbot belum siap"
	msgNeedJSON       = "Content-Type harus application/json"
	msgInvalidJSON    = "Body JSON tidak valid"
	msgNeedMessage    = "Field 'message' diperlukan"
	msgEmptyMessage   = "Pesan tidak boleh kosong"
	msgInternal       = "Terjadi kesalahan server internal"
	msgInternalDetail = "Maaf, terjadi kesalahan. Silakan coba lagi atau hubungi helpdesk."
	msgReset          = "Riwayat percakapan telah direset"
	msgNotFound       = "Endpoint tidak ditemukan"
	msgBadMethod      = "Method tidak diizinkan"
	msgTooMany        = "Terlalu banyak permintaan. Silakan coba lagi sebentar lagi."
)

var routes = []string{"/health", "/api/chat", "/api/stats", "/api/reset", "/metrics"}

type server struct {
	handle *chatbot.Handle
	logger *slog.Logger
	now    func() time.Time
}

func newServer(h *chatbot.Handle, logger *slog.Logger) *server {
	return &server{handle: h, logger: logger, now: time.Now}
}

// newHandler builds the routed, middleware-wrapped HTTP handler. A nil
// registry disables /metrics.
func newHandler(s *server, reg *metrics.Registry, limiter *rate.Limiter, corsOrigin string, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("POST /api/chat", s.chat)
	mux.HandleFunc("GET /api/stats", s.stats)
	mux.HandleFunc("POST /api/reset", s.reset)
	if reg != nil {
		mux.Handle("GET /metrics", reg.Handler())
	}
	for _, p := range routes {
		if p == "/metrics" && reg == nil {
			continue
		}
		mux.HandleFunc(p, s.methodNotAllowed)
	}
	mux.HandleFunc("/", s.notFound)

	mw := []mid.Middleware{
		mid.Recover(logger, http.HandlerFunc(s.internalError)),
		mid.OTel("helpdesk-chatbot"),
		mid.RequestID(),
		mid.Logger(logger),
	}
	if reg != nil {
		mw = append(mw, mid.Metrics(reg, routes...))
	}
	mw = append(mw,
		mid.CORS(corsOrigin),
		mid.RateLimit(limiter, http.HandlerFunc(s.tooManyRequests), "/api/chat"),
	)
	return mid.Chain(mux, mw...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error        string `json:"error"`
	Status       string `json:"status,omitempty"`
	Message      string `json:"message,omitempty"`
	ChatbotReady *bool  `json:"chatbot_ready,omitempty"`
	Timestamp    string `json:"timestamp,omitempty"`
}

func (s *server) timestamp() string { return s.now().Format(chatbot.TimestampLayout) }

type healthBody struct {
	Status       string  `json:"status"`
	Message      string  `json:"message"`
	Timestamp    string  `json:"timestamp"`
	ChatbotReady bool    `json:"chatbot_ready"`
	ChatbotError *string `json:"chatbot_error"`
	State        string  `json:"state"`
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	st := s.handle.State()
	body := healthBody{
		Status:       "sehat",
		Message:      msgHealthy,
		Timestamp:    s.timestamp(),
		ChatbotReady: st.Phase == readiness.Ready,
		State:        st.Phase.String(),
	}
	if st.Phase == readiness.Failed {
		body.ChatbotError = &st.Reason
	}
	writeJSON(w, http.StatusOK, body)
}

type chatRequest struct {
	Message *string `json:"message"`
}

func (s *server) chat(w http.ResponseWriter, r *http.Request) {
	e, err := s.handle.Engine()
	if err != nil {
		msg := msgInitializing
		var failed *readiness.FailedError
		if errors.As(err, &failed) {
			msg = msgUnavailable + failed.Reason
		}
		ready := false
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: msg, Status: "error", ChatbotReady: &ready})
		return
	}

	if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mt != "application/json" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: msgNeedJSON, Status: "error"})
		return
	}
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: msgInvalidJSON, Status: "error"})
		return
	}
	if req.Message == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: msgNeedMessage, Status: "error"})
		return
	}
	msg := strings.TrimSpace(*req.Message)
	if msg == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: msgEmptyMessage, Status: "error"})
		return
	}

	resp := e.Respond(r.Context(), msg)
	writeJSON(w, http.StatusOK, chatbot.NewReply(resp, s.now()))
}

func (s *server) stats(w http.ResponseWriter, _ *http.Request) {
	e, err := s.handle.Engine()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: msgNotReady})
		return
	}
	writeJSON(w, http.StatusOK, e.Stats())
}

func (s *server) reset(w http.ResponseWriter, _ *http.Request) {
	e, err := s.handle.Engine()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: msgNotReady})
		return
	}
	e.Reset()
	s.logger.Info("conversation history reset")
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": msgReset})
}

func (s *server) notFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, errorBody{Error: msgNotFound, Status: "error"})
}

func (s *server) methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: msgBadMethod, Status: "error"})
}

func (s *server) tooManyRequests(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusTooManyRequests, errorBody{Error: msgTooMany, Status: "error"})
}

func (s *server) internalError(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusInternalServerError, errorBody{
		Error:     msgInternal,
		Status:    "error",
		Message:   msgInternalDetail,
		Timestamp: s.timestamp(),
	})
}
