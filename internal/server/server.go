package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"lingua-chat-backend/internal/chat"
	"lingua-chat-backend/internal/config"
	"lingua-chat-backend/internal/db"
	"lingua-chat-backend/internal/markdown"
	"lingua-chat-backend/internal/messages"
	"lingua-chat-backend/internal/quota"
	"lingua-chat-backend/internal/store"
	"lingua-chat-backend/internal/types"
	"lingua-chat-backend/internal/upstream"
	"lingua-chat-backend/internal/whatsapp"
)

type Server struct {
	router   *chi.Mux
	cfg      config.Config
	chat     *chat.Controller
	tracker  *quota.Tracker
	sessions store.SessionStore
	links    *whatsapp.Builder
	database *db.DB
}

func New(cfg config.Config) (*Server, error) {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Session-Id"},
		ExposedHeaders:   []string{"X-Session-Id"},
		AllowCredentials: true, // Enable credentials for cookies
		MaxAge:           300,
	}))

	var (
		quotaStore   store.QuotaStore
		sessionStore store.SessionStore
		database     *db.DB
	)
	switch {
	case cfg.DatabaseURL != "":
		var err error
		database, err = db.New(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := database.Migrate(); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		log.Println("database connection established")
		ds := store.NewDatabaseStore(database)
		quotaStore, sessionStore = ds, ds
	case cfg.DataDir != "":
		fs := store.NewFileStore(cfg.DataDir)
		quotaStore, sessionStore = fs, fs
		log.Printf("using file-based storage in %s", cfg.DataDir)
	default:
		ms := store.NewMemoryStore()
		quotaStore, sessionStore = ms, ms
		log.Println("warning: no DB_URL or DATA_DIR provided, quota counters reset on restart")
	}

	texts := messages.Default(cfg.DefaultLanguage)
	if cfg.MessagesFile != "" {
		var err error
		texts, err = messages.Load(cfg.MessagesFile, cfg.DefaultLanguage)
		if err != nil {
			return nil, fmt.Errorf("failed to load messages file: %w", err)
		}
	}

	var up upstream.Upstream
	switch {
	case cfg.WebhookURL != "":
		up = upstream.NewWebhook(cfg.WebhookURL, time.Duration(cfg.RequestTimeout)*time.Second)
	case cfg.OpenAIAPIKey != "":
		up = upstream.NewOpenAI(cfg.OpenAIAPIKey, cfg.Model)
		log.Println("no webhook configured, answering chat directly via completion model")
	default:
		log.Println("warning: chat is not configured; replies will be the generic error text")
	}

	tracker := quota.New(quotaStore, cfg.DailyLimit)
	controller := chat.NewController(up, tracker, store.NewMessageLog(40), texts)

	s := &Server{
		router:   r,
		cfg:      cfg,
		chat:     controller,
		tracker:  tracker,
		sessions: sessionStore,
		links:    whatsapp.New(cfg.WhatsAppPhone),
		database: database,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Post("/api/chat", s.handleChat)
	s.router.Get("/api/chat/history", s.handleHistory)
	s.router.Get("/api/quota", s.handleQuota)
	s.router.Get("/api/whatsapp/link", s.handleWhatsAppLink)
}

func (s *Server) Router() http.Handler { return s.router }

// Close releases the database connection when one was opened.
func (s *Server) Close() error {
	if s.database != nil {
		return s.database.Close()
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	sid := s.getOrCreateSessionID(r, w)
	lang := req.Language
	if lang == "" {
		lang = s.cfg.DefaultLanguage
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(s.cfg.RequestTimeout+5)*time.Second)
	defer cancel()

	res, err := s.chat.Send(ctx, sid, lang, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrBusy):
			s.writeError(w, http.StatusTooManyRequests, "a message is already being processed")
		case errors.Is(err, chat.ErrEmptyMessage):
			s.writeError(w, http.StatusBadRequest, "message is required")
		default:
			log.Printf("[chat] unexpected send error: %v", err)
			s.writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	remaining, err := s.tracker.Remaining(ctx, sid)
	if err != nil {
		log.Printf("[chat] failed to read remaining quota for %s: %v", sid, err)
		remaining = 0
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Session-Id", sid)
	_ = json.NewEncoder(w).Encode(types.ChatResponse{
		SessionID: sid,
		Reply:     res.Message.Text,
		ReplyHTML: markdown.Render(res.Message.Text),
		Kind:      string(res.Kind),
		Remaining: remaining,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sid := s.getOrCreateSessionID(r, w)
	msgs := s.chat.History(sid)
	out := make([]types.HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, types.HistoryMessage{
			ID:        m.ID,
			Text:      m.Text,
			HTML:      markdown.Render(m.Text),
			Sender:    m.Sender,
			Timestamp: m.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Session-Id", sid)
	_ = json.NewEncoder(w).Encode(types.HistoryResponse{SessionID: sid, Messages: out})
}

func (s *Server) handleQuota(w http.ResponseWriter, r *http.Request) {
	sid := s.getOrCreateSessionID(r, w)
	rec, err := s.tracker.ReadState(r.Context(), sid)
	if err != nil {
		log.Printf("[quota] failed to read state for %s: %v", sid, err)
		s.writeError(w, http.StatusInternalServerError, "failed to read quota")
		return
	}
	remaining := s.tracker.Limit() - rec.Count
	if remaining < 0 {
		remaining = 0
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Session-Id", sid)
	_ = json.NewEncoder(w).Encode(types.QuotaResponse{
		SessionID: sid,
		Used:      rec.Count,
		Limit:     s.tracker.Limit(),
		Remaining: remaining,
		Date:      rec.Date,
	})
}

// handleWhatsAppLink builds the prefilled enquiry link the site's buttons
// open: kind selects the template, extra query params fill its slots.
func (s *Server) handleWhatsAppLink(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lang := q.Get("lang")
	var message string
	switch q.Get("kind") {
	case "", "general":
		message = whatsapp.General(lang)
	case "test":
		score, _ := strconv.Atoi(q.Get("score"))
		total, _ := strconv.Atoi(q.Get("total"))
		message = whatsapp.TestResult(lang, score, total, q.Get("level"))
	case "course":
		message = whatsapp.Course(lang, q.Get("name"))
	case "pricing":
		message = whatsapp.Pricing(lang, q.Get("plan"))
	case "contact":
		message = whatsapp.Contact(lang)
	default:
		s.writeError(w, http.StatusBadRequest, "unknown link kind")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(types.LinkResponse{URL: s.links.Link(message)})
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg})
}

// newSessionID mirrors the widget's ID shape: unix millis plus a random
// suffix.
func newSessionID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:13]
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), suffix)
}

// getSessionID retrieves the session ID from cookie, header or query
// parameter
func getSessionID(r *http.Request) string {
	// Try cookie first
	if cookie, err := GetSessionCookie(r); err == nil && cookie != "" {
		return cookie
	}
	// Fall back to header
	if sid := r.Header.Get("X-Session-Id"); sid != "" {
		return sid
	}
	// Fall back to query parameter
	if sid := r.URL.Query().Get("sessionId"); sid != "" {
		return sid
	}
	return ""
}

// getOrCreateSessionID gets the existing session ID or creates a new one,
// setting the cookie and recording the visit in the session store.
func (s *Server) getOrCreateSessionID(r *http.Request, w http.ResponseWriter) string {
	sid := getSessionID(r)
	now := time.Now()
	if sid == "" {
		sid = newSessionID()
		log.Printf("[session] creating new session: %s", sid)
		SetSessionCookie(w, sid)
		if err := s.sessions.SaveSession(r.Context(), store.Session{ID: sid, CreatedAt: now, LastSeenAt: now}); err != nil {
			log.Printf("[session] failed to save session %s: %v", sid, err)
		}
		return sid
	}
	existing, err := s.sessions.GetSession(r.Context(), sid)
	if err != nil {
		log.Printf("[session] failed to look up session %s: %v", sid, err)
		return sid
	}
	rec := store.Session{ID: sid, CreatedAt: now, LastSeenAt: now}
	if existing != nil {
		rec.CreatedAt = existing.CreatedAt
	}
	if err := s.sessions.SaveSession(r.Context(), rec); err != nil {
		log.Printf("[session] failed to update session %s: %v", sid, err)
	}
	return sid
}
