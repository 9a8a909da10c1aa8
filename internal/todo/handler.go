package todo

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/redmonkez12/go-todo-api/internal/auth"
	"github.com/redmonkez12/go-todo-api/internal/httputil"
	"github.com/redmonkez12/go-todo-api/internal/logging"
	"github.com/redmonkez12/go-todo-api/internal/validate"
)

// Handler contains HTTP handlers for the todo endpoints.
// Every route runs behind auth.Middleware.RequireAuth; the owner comes from the session only.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CreateTodoRequest represents the create request body
type CreateTodoRequest struct {
	Text     string  `json:"text" example:"Buy milk"`
	Priority string  `json:"priority,omitempty" enums:"low,medium,high" example:"medium"`
	DueDate  *string `json:"dueDate,omitempty" example:"2026-05-01"`
}

// UpdateTodoRequest represents the update request body. Omitted fields are
// unchanged; a null dueDate clears it.
type UpdateTodoRequest struct {
	Text      *string        `json:"text,omitempty"`
	Completed *bool          `json:"completed,omitempty"`
	Status    *string        `json:"status,omitempty" enums:"pending,in-progress,completed,cancelled"`
	Priority  *string        `json:"priority,omitempty" enums:"low,medium,high"`
	DueDate   NullableString `json:"dueDate" swaggertype:"string" example:"2026-05-01T09:00:00Z"`
}

type TodoResponse struct {
	Todo *Todo `json:"todo"`
}

type TodosResponse struct {
	Todos []*Todo `json:"todos"`
}

// List handles listing the caller's todos
// @Summary      List todos
// @Description  The caller's todos, newest first
// @Tags         todos
// @Produce      json
// @Security     BearerAuth
// @Param        status   query string false "Status filter, or all" Enums(all, pending, in-progress, completed, cancelled)
// @Param        priority query string false "Priority filter" Enums(low, medium, high)
// @Success      200 {object} TodosResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid filter"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /todos [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		respondUnauthorized(w)
		return
	}

	todos, err := h.service.List(r.Context(), ownerID, Filter{
		Status:   r.URL.Query().Get("status"),
		Priority: r.URL.Query().Get("priority"),
	})
	if err != nil {
		h.respondError(w, r, err, "list todos")
		return
	}

	httputil.RespondJSON(w, TodosResponse{Todos: todos}, http.StatusOK)
}

// Create handles creating a todo
// @Summary      Create todo
// @Description  New todos start pending and not completed; priority defaults to medium
// @Tags         todos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateTodoRequest true "Todo"
// @Success      201 {object} TodoResponse
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /todos [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		respondUnauthorized(w)
		return
	}

	var req CreateTodoRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		logging.GetLoggerFromContext(r.Context()).Warn("invalid create todo body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "Invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	in := CreateInput{Text: req.Text, Priority: req.Priority}
	if req.DueDate != nil {
		in.DueDate = *req.DueDate
	}

	t, err := h.service.Create(r.Context(), ownerID, in)
	if err != nil {
		h.respondError(w, r, err, "create todo")
		return
	}

	logging.GetLoggerFromContext(r.Context()).Info("todo created", "todo_id", t.ID)

	httputil.RespondJSON(w, TodoResponse{Todo: t}, http.StatusCreated)
}

// Get handles fetching one todo
// @Summary      Get todo
// @Tags         todos
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Todo ID" format(uuid)
// @Success      200 {object} TodoResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid todo ID"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      404 {object} httputil.ErrorResponse "Todo not found"
// @Router       /todos/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		respondUnauthorized(w)
		return
	}

	t, err := h.service.Get(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err, "get todo")
		return
	}

	httputil.RespondJSON(w, TodoResponse{Todo: t}, http.StatusOK)
}

// Update handles partial updates
// @Summary      Update todo
// @Description  Only supplied fields change. status and completed stay coupled: completed is true exactly when status is completed.
// @Tags         todos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string            true "Todo ID" format(uuid)
// @Param        request body UpdateTodoRequest true "Fields to change"
// @Success      200 {object} TodoResponse
// @Failure      400 {object} httputil.ErrorResponse "Validation error or invalid todo ID"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      404 {object} httputil.ErrorResponse "Todo not found"
// @Router       /todos/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		respondUnauthorized(w)
		return
	}

	var req UpdateTodoRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		logging.GetLoggerFromContext(r.Context()).Warn("invalid update todo body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "Invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	t, err := h.service.Update(r.Context(), ownerID, chi.URLParam(r, "id"), Patch{
		Text:      req.Text,
		Completed: req.Completed,
		Status:    req.Status,
		Priority:  req.Priority,
		DueDate:   req.DueDate,
	})
	if err != nil {
		h.respondError(w, r, err, "update todo")
		return
	}

	httputil.RespondJSON(w, TodoResponse{Todo: t}, http.StatusOK)
}

// Delete handles permanent deletion
// @Summary      Delete todo
// @Tags         todos
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Todo ID" format(uuid)
// @Success      200 {object} httputil.MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid todo ID"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      404 {object} httputil.ErrorResponse "Todo not found"
// @Router       /todos/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		respondUnauthorized(w)
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), ownerID, id); err != nil {
		h.respondError(w, r, err, "delete todo")
		return
	}

	logging.GetLoggerFromContext(r.Context()).Info("todo deleted", "todo_id", id)

	httputil.RespondJSON(w, httputil.MessageResponse{Message: "Todo deleted successfully"}, http.StatusOK)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error, action string) {
	logger := logging.GetLoggerFromContext(r.Context())

	if verr, ok := validate.As(err); ok {
		logger.Warn(action+" failed: validation error", "field", verr.Field, "error", verr.Message)
		httputil.RespondErrorWithCode(w, verr.Message, httputil.CodeValidationFailed, http.StatusBadRequest)
		return
	}

	switch {
	case errors.Is(err, ErrInvalidID):
		httputil.RespondErrorWithCode(w, "Invalid todo ID", httputil.CodeInvalidID, http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		httputil.RespondErrorWithCode(w, "Todo not found", httputil.CodeNotFound, http.StatusNotFound)
	default:
		logger.Error(action+" failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "Internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
	}
}

func respondUnauthorized(w http.ResponseWriter) {
	httputil.RespondErrorWithCode(w, "No token provided", httputil.CodeMissingAuth, http.StatusUnauthorized)
}
