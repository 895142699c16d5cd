package handlers

import (
	"errors"
	"net/http"

	"github.com/chepyr/go-task-manager/internal/service"
)

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, "Use POST method", http.StatusMethodNotAllowed)
		return
	}
	if !h.allow(w, r, "Too many register attempts. Please try again later.") {
		return
	}

	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	if _, err := h.Users.Register(ctx, input.Email, input.Password, input.Name); err != nil {
		h.sendServiceError(w, r, err, "User")
		return
	}
	sendJSON(w, http.StatusCreated, map[string]any{
		"message": "User created successfully",
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, "Use POST method for login", http.StatusMethodNotAllowed)
		return
	}
	if !h.allow(w, r, "Too many login attempts. Please try again later.") {
		return
	}

	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	if input.Email == "" || input.Password == "" {
		sendError(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	user, err := h.Users.Authenticate(ctx, input.Email, input.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.logger().Info("failed login", "ip", clientIP(r))
		}
		h.sendServiceError(w, r, err, "User")
		return
	}

	tokenString, err := h.generateJWTToken(user.ID.String())
	if err != nil {
		h.logger().Error("cannot create token", "err", err)
		sendError(w, "Cannot create token", http.StatusInternalServerError)
		return
	}

	sendJSON(w, http.StatusOK, map[string]any{
		"user_email": user.Email,
		"user_id":    user.ID,
		"token":      tokenString,
	})
	h.logger().Info("user logged in", "user_id", user.ID)
}

// Demo creates the shared demo account on first use.
func (h *Handler) Demo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, "Use POST method", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	created, err := h.Users.BootstrapDemo(ctx)
	if err != nil {
		h.sendServiceError(w, r, err, "User")
		return
	}
	if !created {
		sendJSON(w, http.StatusOK, map[string]any{"message": "Demo user already exists"})
		return
	}
	sendJSON(w, http.StatusCreated, map[string]any{
		"message":  "Demo user and data created successfully",
		"email":    service.DemoEmail,
		"password": service.DemoPassword,
	})
}
