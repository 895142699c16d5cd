package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chepyr/go-task-manager/internal/db"
	"github.com/chepyr/go-task-manager/internal/service"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func setupHTTP(t *testing.T) (*Handler, http.Handler) {
	t.Helper()

	dbx, err := db.Open(context.Background(), "sqlite3", "file::memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { dbx.Close() })

	categoryRepo := db.NewCategoryRepository(dbx)
	rl := NewRateLimiter(100, time.Minute)
	t.Cleanup(rl.Stop)

	h := &Handler{
		Tasks:       service.NewTaskService(db.NewTaskRepository(dbx), categoryRepo, nil, nil),
		Categories:  service.NewCategoryService(categoryRepo, nil),
		Users:       service.NewUserService(db.NewUserRepository(dbx), nil),
		RateLimiter: rl,
		JWTSecret:   []byte(testSecret),
	}
	return h, h.Routes()
}

func bearerForUser(t *testing.T, secret, userID string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(1 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign jwt: %v", err)
	}
	return "Bearer " + signed
}

// registerUser creates an account through the service and returns its bearer header.
func registerUser(t *testing.T, h *Handler, email string) (uuid.UUID, string) {
	t.Helper()
	user, err := h.Users.Register(context.Background(), email, "secret1", "")
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return user.ID, bearerForUser(t, testSecret, user.ID.String())
}

func doJSON(t *testing.T, mux http.Handler, method, path, authz, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
}

func TestClientIP_XForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	req.RemoteAddr = "10.0.0.1:1234"

	if got := clientIP(req); got != "1.2.3.4" {
		t.Fatalf("clientIP = %q, want %q", got, "1.2.3.4")
	}
}

func TestClientIP_RemoteAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:5555"
	if got := clientIP(req); got != "127.0.0.1" {
		t.Fatalf("clientIP = %q, want %q", got, "127.0.0.1")
	}
}

func TestHealth(t *testing.T) {
	_, mux := setupHTTP(t)
	rec := doJSON(t, mux, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Fatalf("GET /health status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestSendServiceError(t *testing.T) {
	h := &Handler{}
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"validation", &service.ValidationError{Message: "Invalid input data", Fields: map[string]string{"title": "required"}}, http.StatusBadRequest, `"fields":{"title":"required"}`},
		{"unauthenticated", service.ErrUnauthenticated, http.StatusUnauthorized, `"error":"Unauthorized"`},
		{"credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, `"error":"Invalid email or password"`},
		{"foreign", service.ErrForeignOwnership, http.StatusForbidden, `"error":"Forbidden"`},
		{"not found", service.ErrNotFound, http.StatusNotFound, `"error":"Widget not found"`},
		{"conflict", service.ErrConflict, http.StatusConflict, `"error":"Widget already exists"`},
		{"internal", io.ErrUnexpectedEOF, http.StatusInternalServerError, `"error":"Internal server error"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			h.sendServiceError(rec, req, tt.err, "Widget")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Fatalf("body %s does not contain %s", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestLoggingMiddleware_KeepsStatus(t *testing.T) {
	h := &Handler{}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	rec := httptest.NewRecorder()
	h.LoggingMiddleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
}
