package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/scholarhub/apiserver/internal/auth"
	"github.com/scholarhub/apiserver/internal/services"
	"github.com/scholarhub/apiserver/types"
	"go.uber.org/zap"
)

// UserHandler provides HTTP handlers for user records.
type UserHandler struct {
	userService *services.UserService
	logger      *zap.Logger
}

func NewUserHandler(userService *services.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{userService: userService, logger: orNop(logger)}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, userService *services.UserService, guards *Guards, logger *zap.Logger) {
	handler := NewUserHandler(userService, logger)
	admin := r.With(guards.RequireAuth, guards.RequireRole(auth.AdminOnly))

	r.Post("/users/{email}", handler.SignIn)
	r.Get("/users/role/{email}", handler.GetRole)
	r.With(guards.RequireAuth).Get("/user/{email}", handler.GetSelf)
	admin.Get("/users/{email}", handler.ListUsers)
	admin.Patch("/user-role/{id}", handler.UpdateRole)
	admin.Delete("/user/{id}", handler.DeleteUser)
}

// SignIn records the user the first time the email is seen.
func (h *UserHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	user, created, err := h.userService.SignIn(r.Context(), types.User{
		Email:    pathEmail(r),
		Name:     req.Name,
		PhotoURL: req.PhotoURL,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to save user")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, SignInResponse{User: user, Created: created})
}

// ListUsers returns every user, optionally filtered by ?role=. The path email
// must be the calling admin's own.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if !requireSelf(w, r) {
		return
	}

	users, err := h.userService.List(r.Context(), r.URL.Query().Get("role"))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to list users")
		return
	}
	if users == nil {
		users = []types.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) GetSelf(w http.ResponseWriter, r *http.Request) {
	if !requireSelf(w, r) {
		return
	}

	user, err := h.userService.GetByEmail(r.Context(), pathEmail(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) GetRole(w http.ResponseWriter, r *http.Request) {
	role, err := h.userService.Role(r.Context(), pathEmail(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, RoleResponse{Role: role})
}

func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req RoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.UpdateRole(r.Context(), id, req.Role)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to update role")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// DeleteUser removes the user record. Their applications are kept.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.userService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, err, "failed to delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type SignInRequest struct {
	Name     string `json:"name"`
	PhotoURL string `json:"photoURL"`
}

type SignInResponse struct {
	User    types.User `json:"user"`
	Created bool       `json:"created"`
}

type RoleRequest struct {
	Role string `json:"role"`
}

type RoleResponse struct {
	Role types.Role `json:"role"`
}
