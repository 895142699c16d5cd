package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/chepyr/go-task-manager/internal/models"
	"github.com/chepyr/go-task-manager/internal/service"
	"github.com/google/uuid"
)

/*
handles routes:
- GET /api/tasks?category&priority&completed&search&sortField&sortDirection - list tasks
- POST /api/tasks - create a new task
*/
func (h *Handler) HandleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listTasks(w, r)
	case http.MethodPost:
		h.createTask(w, r)
	default:
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	filter, sort, err := parseTaskQuery(r.URL.Query())
	if err != nil {
		h.sendServiceError(w, r, err, "Task")
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	tasks, err := h.Tasks.List(ctx, UserIDFromContext(r.Context()), filter, sort)
	if err != nil {
		h.sendServiceError(w, r, err, "Task")
		return
	}
	sendJSON(w, http.StatusOK, tasks)
}

// parseTaskQuery reads the dashboard filters. "all" or an absent value
// means no filter; category=none selects tasks without a category.
func parseTaskQuery(q url.Values) (models.TaskFilter, models.TaskSort, error) {
	var filter models.TaskFilter
	verr := &service.ValidationError{Message: "Invalid query parameters", Fields: map[string]string{}}

	switch category := strings.TrimSpace(q.Get("category")); category {
	case "", "all":
	case "none":
		filter.WithoutCategory = true
	default:
		id, err := uuid.Parse(category)
		if err != nil {
			verr.Fields["category"] = "must be a category id, all or none"
		} else {
			filter.CategoryID = &id
		}
	}

	if priority := strings.TrimSpace(q.Get("priority")); priority != "" && !strings.EqualFold(priority, "all") {
		p, err := models.ParsePriority(priority)
		if err != nil {
			verr.Fields["priority"] = "must be one of LOW, MEDIUM, HIGH or all"
		} else {
			filter.Priority = &p
		}
	}

	if completed := strings.TrimSpace(q.Get("completed")); completed != "" && completed != "all" {
		done, err := strconv.ParseBool(completed)
		if err != nil {
			verr.Fields["completed"] = "must be true, false or all"
		} else {
			filter.Completed = &done
		}
	}

	filter.Search = strings.TrimSpace(q.Get("search"))

	sort, err := models.ParseTaskSort(q.Get("sortField"), q.Get("sortDirection"))
	if err != nil {
		if _, ferr := models.ParseTaskSort(q.Get("sortField"), ""); ferr != nil {
			verr.Fields["sortField"] = "must be one of createdAt, dueDate, title, priority"
		} else {
			verr.Fields["sortDirection"] = "must be asc or desc"
		}
	}

	if len(verr.Fields) > 0 {
		return models.TaskFilter{}, models.TaskSort{}, verr
	}
	return filter, sort, nil
}

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	if !isJSONContentType(r) {
		sendError(w, "Content-Type must be application/json", http.StatusBadRequest)
		return
	}
	var input struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Priority    string `json:"priority"`
		DueDate     string `json:"dueDate"`
		CategoryID  string `json:"categoryId"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	task, err := h.Tasks.Create(ctx, UserIDFromContext(r.Context()), service.CreateTaskInput{
		Title:       input.Title,
		Description: input.Description,
		Priority:    input.Priority,
		DueDate:     input.DueDate,
		CategoryID:  input.CategoryID,
	})
	if err != nil {
		h.sendServiceError(w, r, err, "Task")
		return
	}
	w.Header().Set("Location", "/api/tasks/"+task.ID.String())
	sendJSON(w, http.StatusCreated, task)
}

/*
routes:
- GET /api/tasks/{id},
- PUT/PATCH /api/tasks/{id},
- DELETE /api/tasks/{id}
*/
func (h *Handler) HandleTaskByID(w http.ResponseWriter, r *http.Request) {
	taskID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		// ids that cannot exist are reported like any other missing task
		sendError(w, "Task not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getTaskByID(w, r, taskID)
	case http.MethodPut, http.MethodPatch:
		h.updateTaskByID(w, r, taskID)
	case http.MethodDelete:
		h.deleteTaskByID(w, r, taskID)
	default:
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) getTaskByID(w http.ResponseWriter, r *http.Request, taskID uuid.UUID) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	task, err := h.Tasks.Get(ctx, UserIDFromContext(r.Context()), taskID)
	if err != nil {
		h.sendServiceError(w, r, err, "Task")
		return
	}
	sendJSON(w, http.StatusOK, task)
}

func (h *Handler) updateTaskByID(w http.ResponseWriter, r *http.Request, taskID uuid.UUID) {
	if !isJSONContentType(r) {
		sendError(w, "Content-Type must be application/json", http.StatusBadRequest)
		return
	}
	var input struct {
		Title       *string               `json:"title"`
		Description *string               `json:"description"`
		Completed   *bool                 `json:"completed"`
		Priority    *string               `json:"priority"`
		DueDate     models.NullableString `json:"dueDate"`
		CategoryID  models.NullableString `json:"categoryId"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	task, err := h.Tasks.Update(ctx, UserIDFromContext(r.Context()), taskID, service.UpdateTaskInput{
		Title:       input.Title,
		Description: input.Description,
		Completed:   input.Completed,
		Priority:    input.Priority,
		DueDate:     input.DueDate,
		CategoryID:  input.CategoryID,
	})
	if err != nil {
		h.sendServiceError(w, r, err, "Task")
		return
	}
	sendJSON(w, http.StatusOK, task)
}

func (h *Handler) deleteTaskByID(w http.ResponseWriter, r *http.Request, taskID uuid.UUID) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	if err := h.Tasks.Delete(ctx, UserIDFromContext(r.Context()), taskID); err != nil {
		h.sendServiceError(w, r, err, "Task")
		return
	}
	sendJSON(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
}

// GET /api/tasks/export
func (h *Handler) ExportTasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	data, err := h.Tasks.Export(ctx, UserIDFromContext(r.Context()))
	if err != nil {
		h.sendServiceError(w, r, err, "Task")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+service.ExportFilename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
