package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chepyr/go-task-manager/internal/service"
)

const (
	requestTimeout = 5 * time.Second
	maxBodyBytes   = 1 << 20 // 1MB
)

type Handler struct {
	Tasks       *service.TaskService
	Categories  *service.CategoryService
	Users       *service.UserService
	RateLimiter *RateLimiter
	JWTSecret   []byte
	TokenTTL    time.Duration
	Log         *slog.Logger
}

func (h *Handler) logger() *slog.Logger {
	if h.Log == nil {
		return slog.Default()
	}
	return h.Log
}

// Routes registers every endpoint on a fresh mux wrapped in request logging.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.Health)

	mux.HandleFunc("/api/auth/register", h.Register)
	mux.HandleFunc("/api/auth/login", h.Login)
	mux.HandleFunc("/api/auth/demo", h.Demo)

	mux.HandleFunc("/api/tasks", h.AuthMiddleware(h.HandleTasks))
	mux.HandleFunc("/api/tasks/export", h.AuthMiddleware(h.ExportTasks))
	mux.HandleFunc("/api/tasks/{id}", h.AuthMiddleware(h.HandleTaskByID))
	mux.HandleFunc("/api/categories", h.AuthMiddleware(h.HandleCategories))

	return h.LoggingMiddleware(mux)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type RateLimiter struct {
	attempts map[string]int
	limit    int
	mutex    sync.Mutex
	window   time.Duration
	done     chan struct{}
	stopOnce sync.Once
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		attempts: make(map[string]int),
		limit:    limit,
		window:   window,
		done:     make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) Allow(ip string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	count, exists := rl.attempts[ip]
	if !exists {
		rl.attempts[ip] = 1
		return true
	}
	if count >= rl.limit {
		return false
	}
	rl.attempts[ip]++
	return true
}

// Stop ends the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// reset the attempts map every window duration
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.mutex.Lock()
			rl.attempts = make(map[string]int)
			rl.mutex.Unlock()
		case <-rl.done:
			return
		}
	}
}

func (h *Handler) allow(w http.ResponseWriter, r *http.Request, msg string) bool {
	if h.RateLimiter == nil {
		return true
	}
	ip := clientIP(r)
	if !h.RateLimiter.Allow(ip) {
		h.logger().Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
		sendError(w, msg, http.StatusTooManyRequests)
		return false
	}
	return true
}

// clientIP prefers the first X-Forwarded-For hop over the socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func sendError(w http.ResponseWriter, message string, status int) {
	sendJSON(w, status, errorResponse{Error: message})
}

func sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// sendServiceError maps the service error taxonomy to a status code.
// resource names the entity in not-found and conflict messages.
func (h *Handler) sendServiceError(w http.ResponseWriter, r *http.Request, err error, resource string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		msg := verr.Message
		if msg == "" {
			msg = "Invalid input data"
		}
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Fields: verr.Fields})
	case errors.Is(err, service.ErrUnauthenticated):
		sendError(w, "Unauthorized", http.StatusUnauthorized)
	case errors.Is(err, service.ErrInvalidCredentials):
		sendError(w, "Invalid email or password", http.StatusUnauthorized)
	case errors.Is(err, service.ErrForeignOwnership):
		sendError(w, "Forbidden", http.StatusForbidden)
	case errors.Is(err, service.ErrNotFound):
		sendError(w, resource+" not found", http.StatusNotFound)
	case errors.Is(err, service.ErrConflict):
		sendError(w, resource+" already exists", http.StatusConflict)
	default:
		h.logger().Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		sendError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func isJSONContentType(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		sendError(w, "Invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

func withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), requestTimeout)
}
