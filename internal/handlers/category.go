package handlers

import (
	"net/http"
)

/*
handles routes:
- GET /api/categories - list categories with task counts
- POST /api/categories - create a category
*/
func (h *Handler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listCategories(w, r)
	case http.MethodPost:
		h.createCategory(w, r)
	default:
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	categories, err := h.Categories.List(ctx, UserIDFromContext(r.Context()))
	if err != nil {
		h.sendServiceError(w, r, err, "Category")
		return
	}
	sendJSON(w, http.StatusOK, categories)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	if !isJSONContentType(r) {
		sendError(w, "Content-Type must be application/json", http.StatusBadRequest)
		return
	}
	var input struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	category, err := h.Categories.Create(ctx, UserIDFromContext(r.Context()), input.Name, input.Color)
	if err != nil {
		h.sendServiceError(w, r, err, "Category")
		return
	}
	sendJSON(w, http.StatusCreated, category)
}
