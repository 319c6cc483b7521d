package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"sierra/internal/engine"
	"sierra/internal/media"
	"sierra/internal/middleware"
	"sierra/internal/utils"
	"sierra/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Server holds all server dependencies, including the actor system and engine
type Server struct {
	System         *actor.ActorSystem
	Context        *actor.RootContext
	Engine         *engine.Engine
	Hub            *websocket.Hub
	Auth           *middleware.Auth
	Media          media.Storage
	Metrics        *utils.MetricsCollector
	Limiter        *middleware.RateLimiter
	Log            *zap.SugaredLogger
	RequestTimeout time.Duration
	MetricsEnabled bool
}

// NewServer creates a new Server instance with the given components
func NewServer(
	system *actor.ActorSystem,
	eng *engine.Engine,
	hub *websocket.Hub,
	auth *middleware.Auth,
	mediaStore media.Storage,
	metrics *utils.MetricsCollector,
	log *zap.SugaredLogger,
) *Server {
	return &Server{
		System:         system,
		Context:        system.Root,
		Engine:         eng,
		Hub:            hub,
		Auth:           auth,
		Media:          mediaStore,
		Metrics:        metrics,
		Limiter:        middleware.NewRateLimiter(25, 50),
		Log:            log,
		RequestTimeout: 5 * time.Second, // Default timeout for actor requests
		MetricsEnabled: true,
	}
}

// Routes builds the HTTP router with rate limiting and JWT middleware applied.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.HandleHealth()).Methods(http.MethodGet)
	if s.MetricsEnabled {
		r.Handle("/metrics", s.Metrics.Handler()).Methods(http.MethodGet)
	}

	r.HandleFunc("/register", s.HandleRegister()).Methods(http.MethodPost)
	r.HandleFunc("/login", s.HandleLogin()).Methods(http.MethodPost)

	r.HandleFunc("/users/me", s.HandleGetProfile()).Methods(http.MethodGet)
	r.HandleFunc("/users/me", s.HandleUpdateProfile()).Methods(http.MethodPut)
	r.HandleFunc("/users/me", s.HandleDeleteAccount()).Methods(http.MethodDelete)
	r.HandleFunc("/users/search", s.HandleSearchUsers()).Methods(http.MethodGet)
	r.HandleFunc("/users/contacts", s.HandleAddContact()).Methods(http.MethodPost)
	r.HandleFunc("/users/contacts/match", s.HandleMatchContacts()).Methods(http.MethodPost)
	r.HandleFunc("/users/push-tokens", s.HandleAddPushToken()).Methods(http.MethodPost)
	r.HandleFunc("/users/push-tokens", s.HandleRemovePushToken()).Methods(http.MethodDelete)

	r.HandleFunc("/messages", s.HandleSendMessage()).Methods(http.MethodPost)
	r.HandleFunc("/messages/read", s.HandleMarkRead()).Methods(http.MethodPost)
	r.HandleFunc("/messages/{userId}", s.HandleGetConversation()).Methods(http.MethodGet)
	r.HandleFunc("/messages/{userId}", s.HandleDeleteConversation()).Methods(http.MethodDelete)
	r.HandleFunc("/conversations", s.HandleGetInbox()).Methods(http.MethodGet)

	r.HandleFunc("/media", s.HandleUploadMedia()).Methods(http.MethodPost)
	r.HandleFunc("/ws", s.HandleWebSocket()).Methods(http.MethodGet)

	r.Use(s.Limiter.Middleware)
	r.Use(s.Auth.Middleware)

	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Log.Warnw("failed to encode response", "err", err)
	}
}

func (s *Server) writeAppError(w http.ResponseWriter, appErr *utils.AppError) {
	status := utils.AppErrorToHTTPStatus(appErr.Code)
	msg := appErr.Message
	if status >= 500 {
		// never leak internal detail on dependency failures
		msg = "Internal server error"
	}
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// requestActor sends a message to an actor and unwraps the response, writing
// an HTTP error and returning ok=false when the actor reports a failure.
func (s *Server) requestActor(w http.ResponseWriter, pid *actor.PID, msg any) (any, bool) {
	future := s.Context.RequestFuture(pid, msg, s.RequestTimeout)
	result, err := future.Result()
	if err != nil {
		s.Log.Errorw("actor request failed", "err", err)
		s.writeAppError(w, utils.NewAppError(utils.ErrActorTimeout, "Request timed out", err))
		return nil, false
	}
	if appErr, ok := result.(*utils.AppError); ok {
		s.writeAppError(w, appErr)
		return nil, false
	}
	return result, true
}
